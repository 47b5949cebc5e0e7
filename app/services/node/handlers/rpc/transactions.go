package rpc

import (
	"context"
	"encoding/json"

	"github.com/chainforge/ledger/business/sys/validate"
	"github.com/chainforge/ledger/business/web/errs"
	"github.com/chainforge/ledger/foundation/blockchain/database"
)

// sendTransaction implements eth_sendTransaction: submit a signed
// transaction to the mempool.
func sendTransaction(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	if len(params) == 0 {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "signed transaction is required")
	}

	var tx database.SignedTx
	if err := json.Unmarshal(params, &tx); err != nil {
		return nil, errs.NewRPCError(errs.CodeInvalidParams, "malformed signed transaction")
	}

	if err := validate.Check(tx); err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeInvalidParams, "invalid transaction params", err.Error())
	}

	if err := h.Node.AddTransaction(tx); err != nil {
		return nil, errs.NewRPCErrorWithData(errs.CodeTransactionRejected, "transaction rejected", err.Error())
	}

	return struct {
		TransactionID string `json:"transaction_id"`
	}{
		TransactionID: tx.ID,
	}, nil
}
