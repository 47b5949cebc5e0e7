package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/chainforge/ledger/app/services/node/handlers"
	"github.com/chainforge/ledger/foundation/blockchain/genesis"
	"github.com/chainforge/ledger/foundation/blockchain/gossip"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
	"github.com/chainforge/ledger/foundation/blockchain/state"
	"github.com/chainforge/ledger/foundation/blockchain/storage"
	"github.com/chainforge/ledger/foundation/blockchain/storage/disk"
	"github.com/chainforge/ledger/foundation/blockchain/storage/memory"
	"github.com/chainforge/ledger/foundation/blockchain/worker"
	"github.com/chainforge/ledger/foundation/events"
	"github.com/chainforge/ledger/foundation/logger"
)

// build is the git version of this program. It is set using build flags
// in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

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
			CORSOrigin      string        `conf:"default:*"`
		}
		Node struct {
			ID          string   `conf:"default:node1"`
			GossipHost  string   `conf:"default:0.0.0.0:9080"`
			MinerKey    string   `conf:"default:zblock/accounts/miner1.ecdsa"`
			GenesisPath string   `conf:"default:zblock/genesis.json"`
			DataDir     string   `conf:"default:zblock/node1"`
			Persist     bool     `conf:"default:true"`
			MineOnStart bool     `conf:"default:false"`
			KnownPeers  []string `conf:"default:"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
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

	fmt.Println(`     _    ____  ____    _    _   _    ____  _     ___   ____ _  ______ _   _    _    ___ _   _  `)
	fmt.Println(`    / \  |  _ \|  _ \  / \  | \ | |  | __ )| |   / _ \ / ___| |/ / ___| | | |  / \  |_ _| \ | | `)
	fmt.Println(`   / _ \ | |_) | | | |/ _ \ |  \| |  |  _ \| |  | | | | |   | ' / |   | |_| | / _ \  | ||  \| | `)
	fmt.Println(`  / ___ \|  _ <| |_| / ___ \| |\  |  | |_) | |__| |_| | |___| . \ |___|  _  |/ ___ \ | || |\  | `)
	fmt.Println(` /_/   \_\_| \_\____/_/   \_\_| \_|  |____/|_____\___/ \____|_|\_\____|_| |_/_/   \_\___|_| \_| `)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis and Miner Key

	gen, err := genesis.Load(cfg.Node.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	minerKey, err := crypto.LoadECDSA(cfg.Node.MinerKey)
	if err != nil {
		return fmt.Errorf("unable to load miner key: %w", err)
	}
	log.Infow("startup", "status", "miner key loaded", "path", cfg.Node.MinerKey, "public", minerKey.PublicKey)

	// =========================================================================
	// Storage

	var blocks storage.BlockSerializer
	var stateStore storage.StateSerializer

	if cfg.Node.Persist {
		d, err := disk.New(cfg.Node.DataDir)
		if err != nil {
			return fmt.Errorf("unable to open node storage: %w", err)
		}
		defer d.Close()
		blocks, stateStore = d, d
	} else {
		m := memory.New()
		blocks, stateStore = m, m
	}

	// =========================================================================
	// Events and Peers

	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	peers := peer.NewSet()
	for _, addr := range cfg.Node.KnownPeers {
		if addr == "" {
			continue
		}
		peers.Add(peer.New("", addr))
	}

	// =========================================================================
	// Blockchain State

	st, err := state.New(state.Config{
		NodeID:     cfg.Node.ID,
		Genesis:    gen,
		Blocks:     blocks,
		StateStore: stateStore,
		KnownPeers: peers,
		Log:        log,
		EvHandler:  ev,
	})
	if err != nil {
		return fmt.Errorf("unable to construct state: %w", err)
	}

	// =========================================================================
	// Gossip Server

	handler := state.NewGossipHandler(cfg.Node.ID, st)
	gs := gossip.New(log, handler, peers)

	if err := gs.Serve(cfg.Node.GossipHost); err != nil {
		return fmt.Errorf("unable to start gossip server: %w", err)
	}
	defer gs.Close()

	for _, p := range peers.All() {
		if _, err := gs.Dial(p.Address); err != nil {
			log.Errorw("startup", "status", "unable to dial peer", "address", p.Address, "ERROR", err)
		}
	}

	// =========================================================================
	// Worker

	w := worker.Run(st, gs, ev)
	defer w.Shutdown()

	if cfg.Node.MineOnStart {
		w.SignalStartMining()
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log)
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service (JSON-RPC + events)

	log.Infow("startup", "status", "initializing public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Node:     st,
		Worker:   w,
		Evts:     evts,
		Origin:   cfg.Web.CORSOrigin,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		if err := st.PersistState(); err != nil {
			log.Errorw("shutdown", "status", "unable to persist state", "ERROR", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
