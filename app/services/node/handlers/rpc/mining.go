package rpc

import (
	"context"
	"encoding/json"

	"github.com/chainforge/ledger/business/web/errs"
)

// startMining implements eth_startMining: signal the worker to attempt
// to mine the next block from whatever is currently in the mempool.
func startMining(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if h.Worker == nil {
		return nil, errs.NewRPCError(errs.CodeServerError, "mining is not available on this node")
	}

	h.Worker.SignalStartMining()

	return struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}, nil
}

// stopMining implements eth_stopMining: cancel any mining attempt in
// progress and wait for it to actually stop.
func stopMining(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if h.Worker == nil {
		return nil, errs.NewRPCError(errs.CodeServerError, "mining is not available on this node")
	}

	done := h.Worker.SignalCancelMining()
	done()

	return struct {
		Status string `json:"status"`
	}{
		Status: "mining stopped",
	}, nil
}
