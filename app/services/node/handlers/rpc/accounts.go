package rpc

import (
	"context"
	"encoding/json"

	"github.com/chainforge/ledger/business/sys/validate"
	"github.com/chainforge/ledger/business/web/errs"
	"github.com/chainforge/ledger/foundation/blockchain/database"
)

type accountParams struct {
	Address database.AccountID `json:"address" validate:"required"`
}

func decodeAccountParams(params json.RawMessage) (accountParams, error) {
	var p accountParams
	if len(params) == 0 {
		return p, errs.NewRPCError(errs.CodeInvalidParams, "address is required")
	}

	if err := json.Unmarshal(params, &p); err != nil {
		return p, errs.NewRPCError(errs.CodeInvalidParams, "malformed params")
	}

	if err := validate.Check(p); err != nil {
		return p, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "invalid params", err.Error())
	}

	if !p.Address.IsAccountID() {
		return p, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "malformed account address", string(p.Address))
	}

	return p, nil
}

// getBalance implements eth_getBalance.
func getBalance(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decodeAccountParams(params)
	if err != nil {
		return nil, err
	}

	return struct {
		Balance uint64 `json:"balance"`
	}{
		Balance: h.Node.GetBalance(p.Address),
	}, nil
}

// getAccountNonce implements eth_getAccountNonce.
func getAccountNonce(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decodeAccountParams(params)
	if err != nil {
		return nil, err
	}

	nonce, _ := h.Node.GetNonce(p.Address)

	return struct {
		Nonce uint64 `json:"nonce"`
	}{
		Nonce: nonce,
	}, nil
}

// getAccountState implements eth_getAccountState: the balance and nonce
// together, or every account's state when no address is given.
func getAccountState(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if len(params) == 0 {
		return h.Node.Snapshot(), nil
	}

	p, err := decodeAccountParams(params)
	if err != nil {
		return nil, err
	}

	nonce, _ := h.Node.GetNonce(p.Address)

	return database.Account{
		AccountID: p.Address,
		Balance:   h.Node.GetBalance(p.Address),
		Nonce:     nonce,
	}, nil
}
