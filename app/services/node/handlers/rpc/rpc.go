// Package rpc implements the node's JSON-RPC 2.0 surface: a single POST
// endpoint that dispatches by method name onto the node's NodeApi and
// worker, modeled on the numbered method list spec.md lays out.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/business/web/errs"
	"github.com/chainforge/ledger/foundation/blockchain/state"
	"github.com/chainforge/ledger/foundation/blockchain/worker"
	"github.com/chainforge/ledger/foundation/web"
)

// Handlers bundles everything method implementations need.
type Handlers struct {
	Log    *zap.SugaredLogger
	Node   state.NodeApi
	Worker *worker.Worker
}

// request is a JSON-RPC 2.0 request object.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// response is a JSON-RPC 2.0 response object. Exactly one of Result or
// Error is ever set, per spec.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *errs.RPCError  `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// method is the signature every RPC method implementation has: decode its
// own params from raw JSON, call into Node/Worker, return a result value
// or an error the dispatcher maps onto the JSON-RPC envelope.
type method func(h Handlers, ctx context.Context, params json.RawMessage) (any, error)

var methods = map[string]method{
	"eth_getBalance":            getBalance,
	"eth_getAccountState":       getAccountState,
	"eth_getAccountNonce":       getAccountNonce,
	"eth_sendTransaction":       sendTransaction,
	"eth_getBlockByNumber":      getBlockByNumber,
	"eth_getBlockByHash":        getBlockByHash,
	"eth_blockNumber":           blockNumber,
	"eth_chainHeight":           blockNumber,
	"eth_getNetworkStats":       getNetworkStats,
	"net_peerCount":             peerCount,
	"eth_startMining":           startMining,
	"eth_stopMining":            stopMining,
	"eth_getContract":           getContract,
	"eth_getContractsByCreator": getContractsByCreator,
}

// Dispatch decodes a JSON-RPC request, routes it by method, and writes
// back a JSON-RPC response. A malformed envelope or unknown method never
// reaches a method implementation; it is answered directly with the
// matching JSON-RPC error code.
func (h Handlers) Dispatch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req request
	if err := web.Decode(r, &req); err != nil {
		return h.respond(ctx, w, nil, errs.NewRPCError(errs.CodeParseError, "invalid json"), nil)
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		return h.respond(ctx, w, nil, errs.NewRPCError(errs.CodeInvalidRequest, "not a well-formed jsonrpc 2.0 request"), req.ID)
	}

	fn, ok := methods[req.Method]
	if !ok {
		return h.respond(ctx, w, nil, errs.NewRPCError(errs.CodeMethodNotFound, "unknown method: "+req.Method), req.ID)
	}

	result, err := fn(h, ctx, req.Params)
	if err != nil {
		return h.respond(ctx, w, nil, asRPCError(err), req.ID)
	}

	return h.respond(ctx, w, result, nil, req.ID)
}

func (h Handlers) respond(ctx context.Context, w http.ResponseWriter, result any, rpcErr error, id json.RawMessage) error {
	resp := response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}

	if rpcErr != nil {
		resp.Error = asRPCError(rpcErr)
		h.Log.Errorw("rpc error", "traceid", web.GetTraceID(ctx), "code", resp.Error.Code, "message", resp.Error.Message)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// asRPCError maps an arbitrary error from a method implementation onto a
// JSON-RPC error object, defaulting to the generic server-error code for
// anything not already carrying one.
func asRPCError(err error) *errs.RPCError {
	if rpcErr := errs.GetRPCError(err); rpcErr != nil {
		return rpcErr
	}

	return &errs.RPCError{Code: errs.CodeServerError, Message: err.Error()}
}
