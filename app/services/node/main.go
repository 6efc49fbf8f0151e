package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/common-nighthawk/go-figure"
	"go.uber.org/zap"

	"github.com/qcbit/powchain/app/services/node/handlers"
	"github.com/qcbit/powchain/app/services/node/handlers/v1/private"
	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/message"
	"github.com/qcbit/powchain/foundation/blockchain/metrics"
	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/store"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
	"github.com/qcbit/powchain/foundation/logger"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			SelfHost        string        `conf:"default:127.0.0.1:9080"`
		}
		State struct {
			BeneficiarySeed uint32 `conf:"default:0"`
		}
		Miner struct {
			Lambda uint64 `conf:"default:0"`
		}
		Generator struct {
			Theta uint64 `conf:"default:0"`
		}
		Network struct {
			Workers int      `conf:"default:4"`
			Peers   []string `conf:"default:"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "© 2026 WTFPL",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	banner := figure.NewFigure("PowChain", "", true)
	banner.Print()

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
	}

	// ----------------------------------------------------------------
	// Blockchain Support
	// ----------------------------------------------------------------

	gen := genesis.New()

	st := store.New(gen)
	pool := mempool.New()

	// A node always controls at least one key: the beneficiary, used
	// as the generator's seed key. Deriving it deterministically from
	// a configured seed lets multiple local nodes in a demo cluster
	// be given distinct, reproducible identities.
	_, beneficiaryKey := genesis.KeyFromSeed(cfg.State.BeneficiarySeed)
	beneficiaryPub := beneficiaryKey.Public().(ed25519.PublicKey)
	log.Infow("startup", "status", "beneficiary key", "public_key", hex.EncodeToString(beneficiaryPub))

	peers := peer.NewSet(cfg.Web.SelfHost)
	for _, host := range cfg.Network.Peers {
		peers.Add(peer.New(host))
	}
	server := private.NewHTTPServer(peers, cfg.Web.SelfHost)

	finishedBlocks := make(chan database.Block, 16)
	producedTx := make(chan database.SignedTransaction, 16)
	inbound := make(chan worker.Inbound, 256)

	miner := worker.NewMiner(st, pool, finishedBlocks, ev)
	gnr := worker.NewGenerator(st, beneficiaryKey, producedTx, ev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go miner.Run(ctx)
	go gnr.Run(ctx)
	go worker.RunGeneratorWorker(ctx, producedTx, pool, server, ev)
	worker.RunNetworkWorkers(ctx, cfg.Network.Workers, inbound, st, pool, server, miner.Control(), gnr.Control(), ev)
	go acceptMinedBlocks(ctx, finishedBlocks, st, server, miner, ev)
	go reportGaugeMetrics(ctx, st, pool, peers)

	// The miner and generator are started explicitly through the
	// public /miner/start and /tx-generator/start endpoints rather
	// than automatically at boot, so an operator can bring a node up
	// read-only (syncing and relaying) before opting it into block
	// production or traffic generation.

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log)

	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown:  shutdown,
		Log:       log,
		Store:     st,
		Pool:      pool,
		Miner:     miner,
		Generator: gnr,
		Server:    server,
		Peers:     peers,
		Inbound:   inbound,
		SelfHost:  cfg.Web.SelfHost,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(muxCfg)

	publicSrv := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", publicSrv.Addr)
		serverErrors <- publicSrv.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	privateMux := handlers.PrivateMux(muxCfg)

	privateSrv := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", privateSrv.Addr)
		serverErrors <- privateSrv.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		miner.Control() <- worker.Exit()
		gnr.Control() <- worker.Exit()
		cancel()

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := privateSrv.Shutdown(ctx); err != nil {
			privateSrv.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := publicSrv.Shutdown(ctx); err != nil {
			publicSrv.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// acceptMinedBlocks drains blocks the local miner solves, inserts
// each into the store, and broadcasts its hash on success.
func acceptMinedBlocks(ctx context.Context, ch <-chan database.Block, st *store.Store, srv peer.Server, m *worker.Miner, ev worker.EventHandler) {
	for {
		select {
		case block := <-ch:
			inserted, tipChanged, err := st.Insert(block)
			if err != nil || !inserted {
				ev("acceptMinedBlocks: insert failed for block %s: %v", block.Hash(), err)
				continue
			}
			metrics.BlocksAccepted.Inc()

			if tipChanged {
				m.Control() <- worker.Update()
			}

			raw, err := encodeNewBlockHash(block)
			if err != nil {
				ev("acceptMinedBlocks: encode: %s", err)
				continue
			}
			if err := srv.Broadcast(raw); err != nil {
				ev("acceptMinedBlocks: broadcast: %s", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

// reportGaugeMetrics periodically refreshes the gauges that reflect a
// point-in-time snapshot rather than a running total.
func reportGaugeMetrics(ctx context.Context, st *store.Store, pool *mempool.Mempool, peers *peer.Set) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.ChainHeight.Set(float64(st.TipHeight()))
			metrics.MempoolDepth.Set(float64(pool.QueueLength()))
			metrics.KnownPeers.Set(float64(len(peers.List())))
		case <-ctx.Done():
			return
		}
	}
}

// encodeNewBlockHash wraps a single mined block's hash in the wire
// envelope used to announce it to peers.
func encodeNewBlockHash(block database.Block) ([]byte, error) {
	return message.EncodeNewBlockHashes(message.NewBlockHashes{Hashes: []hash.H256{block.Hash()}})
}
