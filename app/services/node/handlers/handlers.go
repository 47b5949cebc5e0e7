// Package handlers wires together the node's HTTP surface: the JSON-RPC
// dispatcher, the websocket event feed, and the debug endpoints.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/app/services/node/handlers/debug/checkgrp"
	"github.com/chainforge/ledger/app/services/node/handlers/rpc"
	"github.com/chainforge/ledger/app/services/node/handlers/ws"
	"github.com/chainforge/ledger/business/web/mid"
	"github.com/chainforge/ledger/foundation/blockchain/state"
	"github.com/chainforge/ledger/foundation/blockchain/worker"
	"github.com/chainforge/ledger/foundation/events"
	"github.com/chainforge/ledger/foundation/web"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Node     state.NodeApi
	Worker   *worker.Worker
	Evts     *events.Events
	Origin   string
}

// PublicMux constructs the node's public-facing http.Handler: the
// JSON-RPC endpoint and the event websocket.
func PublicMux(cfg MuxConfig) http.Handler {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors(cfg.Origin),
		mid.Panics(),
	)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "/*", h, mid.Cors(cfg.Origin))

	rpcHandlers := rpc.Handlers{
		Log:    cfg.Log,
		Node:   cfg.Node,
		Worker: cfg.Worker,
	}
	app.Handle(http.MethodPost, "/v1/rpc", rpcHandlers.Dispatch)

	wsHandlers := ws.Handlers{
		Log:  cfg.Log,
		Evts: cfg.Evts,
	}
	app.Handle(http.MethodGet, "/v1/events", wsHandlers.Events)

	return app
}

// DebugStandardLibraryMux registers the standard library's own debug
// routes on a fresh mux, bypassing http.DefaultServeMux so a dependency
// can never inject a handler into it without this package's knowledge.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers the standard library debug routes plus this
// service's own readiness and liveness checks.
func DebugMux(build string, log *zap.SugaredLogger) http.Handler {
	mux := DebugStandardLibraryMux()

	cgh := checkgrp.Handlers{Build: build, Log: log}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
