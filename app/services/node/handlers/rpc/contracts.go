package rpc

import (
	"context"
	"encoding/json"

	"github.com/chainforge/ledger/business/sys/validate"
	"github.com/chainforge/ledger/business/web/errs"
	"github.com/chainforge/ledger/foundation/blockchain/database"
)

type contractParams struct {
	Address database.AccountID `json:"address" validate:"required"`
}

// getContract implements eth_getContract: look up a deployed contract by
// its address.
func getContract(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if len(params) == 0 {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "address is required")
	}

	var p contractParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "malformed params")
	}

	if err := validate.Check(p); err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "invalid params", err.Error())
	}

	if !p.Address.IsAccountID() {
		return nil, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "malformed contract address", string(p.Address))
	}

	c, err := h.Node.ContractByAddress(p.Address)
	if err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeServerError, "contract not found", err.Error())
	}

	return c, nil
}

type creatorParams struct {
	Creator database.AccountID `json:"creator" validate:"required"`
}

// getContractsByCreator implements eth_getContractsByCreator: every
// contract deployed by a given account.
func getContractsByCreator(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if len(params) == 0 {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "creator is required")
	}

	var p creatorParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "malformed params")
	}

	if err := validate.Check(p); err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "invalid params", err.Error())
	}

	if !p.Creator.IsAccountID() {
		return nil, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "malformed account address", string(p.Creator))
	}

	return h.Node.ContractsByCreator(p.Creator), nil
}
