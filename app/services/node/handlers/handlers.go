// Package handlers manages the different versions of the API and
// wires the node's three HTTP surfaces: debug, public, and private.
package handlers

import (
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"go.uber.org/zap"

	v1 "github.com/qcbit/powchain/app/services/node/handlers/v1"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/metrics"
	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/store"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
	"github.com/qcbit/powchain/foundation/web"
	"github.com/qcbit/powchain/foundation/web/mid"
)

// DebugMux registers the standard library's pprof and expvar
// endpoints plus the prometheus metrics handler, none of which need
// the versioned routing or tracing middleware the public/private
// muxes carry.
func DebugMux(build string, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/debug/metrics", metrics.Handler())

	return mux
}

// MuxConfig carries every dependency a handler in this service might
// need.
type MuxConfig struct {
	Shutdown  chan os.Signal
	Log       *zap.SugaredLogger
	Store     *store.Store
	Pool      *mempool.Mempool
	Miner     *worker.Miner
	Generator *worker.Generator
	Server    peer.Server
	Peers     *peer.Set
	Inbound   chan<- worker.Inbound
	SelfHost  string
}

func (c MuxConfig) v1Config() v1.Config {
	return v1.Config{
		Log:       c.Log,
		Store:     c.Store,
		Pool:      c.Pool,
		Miner:     c.Miner,
		Generator: c.Generator,
		Server:    c.Server,
		Peers:     c.Peers,
		Inbound:   c.Inbound,
		SelfHost:  c.SelfHost,
	}
}

// PublicMux constructs the mux for the externally reachable API.
func PublicMux(cfg MuxConfig) *web.App {
	app := web.NewApp(cfg.Shutdown, mid.Logger(cfg.Log), mid.Errors(cfg.Log), mid.Panics())

	v1.PublicRoutes(app, cfg.v1Config())

	return app
}

// PrivateMux constructs the mux for node-to-node traffic.
func PrivateMux(cfg MuxConfig) *web.App {
	app := web.NewApp(cfg.Shutdown, mid.Logger(cfg.Log), mid.Errors(cfg.Log), mid.Panics())

	v1.PrivateRoutes(app, cfg.v1Config())

	return app
}
