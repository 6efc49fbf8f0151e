// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/qcbit/powchain/app/services/node/handlers/v1/private"
	"github.com/qcbit/powchain/app/services/node/handlers/v1/public"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/store"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
	"github.com/qcbit/powchain/foundation/web"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
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

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:       cfg.Log,
		Store:     cfg.Store,
		Pool:      cfg.Pool,
		Miner:     cfg.Miner,
		Generator: cfg.Generator,
		Server:    cfg.Server,
	}

	app.Handle(http.MethodGet, version, "/miner/start", pbl.MinerStart)
	app.Handle(http.MethodGet, version, "/tx-generator/start", pbl.GeneratorStart)
	app.Handle(http.MethodGet, version, "/network/ping", pbl.NetworkPing)
	app.Handle(http.MethodGet, version, "/blockchain/longest-chain", pbl.LongestChain)
	app.Handle(http.MethodGet, version, "/blockchain/longest-chain-tx", pbl.LongestChainTx)
	app.Handle(http.MethodGet, version, "/blockchain/longest-chain-tx-count", pbl.LongestChainTxCount)
	app.Handle(http.MethodGet, version, "/blockchain/state", pbl.BlockchainState)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
}

// PrivateRoutes binds all the version 1 node-to-node routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:      cfg.Log,
		Inbound:  cfg.Inbound,
		Peers:    cfg.Peers,
		SelfHost: cfg.SelfHost,
	}

	app.Handle(http.MethodPost, version, "/node/message", prv.Message)
}
