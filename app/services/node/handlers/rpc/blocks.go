package rpc

import (
	"context"
	"encoding/json"

	"github.com/chainforge/ledger/business/web/errs"
)

type blockByNumberParams struct {
	Index uint64 `json:"index"`
}

// getBlockByNumber implements eth_getBlockByNumber. An omitted or zero
// index returns the chain's tip.
func getBlockByNumber(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	var p blockByNumberParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errs.NewRPCError(errs.CodeInvalidParams, "malformed params")
		}
	}

	if p.Index == 0 {
		block, err := h.Node.LatestBlock()
		if err != nil {
			return nil, errs.NewRPCErrorWithData(errs.CodeServerError, "no blocks", err.Error())
		}
		return block, nil
	}

	block, err := h.Node.BlockByIndex(p.Index)
	if err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeServerError, "block not found", err.Error())
	}

	return block, nil
}

type blockByHashParams struct {
	Hash string `json:"hash"`
}

// getBlockByHash implements eth_getBlockByHash.
func getBlockByHash(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if len(params) == 0 {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "hash is required")
	}

	var p blockByHashParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "malformed params")
	}

	block, err := h.Node.BlockByHash(p.Hash)
	if err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeServerError, "block not found", err.Error())
	}

	return block, nil
}

// blockNumber implements eth_blockNumber / eth_chainHeight.
func blockNumber(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	return struct {
		Height uint64 `json:"height"`
	}{
		Height: h.Node.ChainHeight(),
	}, nil
}
