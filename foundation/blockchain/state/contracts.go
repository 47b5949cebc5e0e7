package state

import (
	"encoding/json"
	"fmt"

	"github.com/chainforge/ledger/foundation/blockchain/contract"
	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/storage"
	"github.com/chainforge/ledger/foundation/blockchain/vm"
)

// applyContractEffects runs the contract side effects of a block's
// transactions once their base transfers have already been applied to
// the ledger: deployments register a new contract, and calls against an
// existing contract's address execute its bytecode and, on success,
// commit the resulting storage and staged balance deltas.
//
// This runs only on the real commit path (loadPersisted, appendLocked,
// the second pass of ApplySyncSuffix) — the trial-validation pass used
// to vet a sync suffix checks only account balances and nonces, not
// contract semantics, since contract.Manager has no Clone to trial
// against without mutating the live deploy-nonce counters.
func (s *State) applyContractEffects(index uint64, txs []database.SignedTx) error {
	for _, tx := range txs {
		switch {
		case tx.IsContractDeployment:
			bytecode, err := contract.DecodeBytecode(tx.ContractBytecode)
			if err != nil {
				return fmt.Errorf("state: deploy contract: %w", err)
			}

			if _, err := s.contracts.Deploy(tx.From, tx.ContractName, tx.ContractLanguage, bytecode, tx.Timestamp); err != nil {
				return fmt.Errorf("state: deploy contract: %w", err)
			}

		case tx.ContractAddress != "":
			if err := s.callContract(index, tx); err != nil {
				return err
			}
		}
	}

	return nil
}

// contractToSnapshot converts a Contract to its on-disk form, JSON-encoding
// the bytecode and each storage value individually since storage.
// ContractSnapshot, unlike Contract, has no business knowing about vm.Value.
func contractToSnapshot(c contract.Contract) (storage.ContractSnapshot, error) {
	bytecode, err := contract.EncodeBytecode(c.Bytecode)
	if err != nil {
		return storage.ContractSnapshot{}, fmt.Errorf("state: encode contract bytecode: %w", err)
	}

	store := make(map[string][]byte, len(c.Storage))
	for k, v := range c.Storage {
		data, err := json.Marshal(v)
		if err != nil {
			return storage.ContractSnapshot{}, fmt.Errorf("state: encode contract storage: %w", err)
		}
		store[k] = data
	}

	return storage.ContractSnapshot{
		Address:   string(c.Address),
		Creator:   string(c.Creator),
		Name:      c.Name,
		Language:  c.Language,
		Bytecode:  bytecode,
		Storage:   store,
		Timestamp: c.Timestamp,
	}, nil
}

// snapshotToContract reverses contractToSnapshot.
func snapshotToContract(snap storage.ContractSnapshot) (contract.Contract, error) {
	bytecode, err := contract.DecodeBytecode(snap.Bytecode)
	if err != nil {
		return contract.Contract{}, fmt.Errorf("state: decode contract bytecode: %w", err)
	}

	store := make(map[string]vm.Value, len(snap.Storage))
	for k, data := range snap.Storage {
		var v vm.Value
		if err := json.Unmarshal(data, &v); err != nil {
			return contract.Contract{}, fmt.Errorf("state: decode contract storage: %w", err)
		}
		store[k] = v
	}

	return contract.Contract{
		Address:   database.AccountID(snap.Address),
		Creator:   database.AccountID(snap.Creator),
		Name:      snap.Name,
		Language:  snap.Language,
		Bytecode:  bytecode,
		Storage:   store,
		Timestamp: snap.Timestamp,
	}, nil
}

func (s *State) callContract(index uint64, tx database.SignedTx) error {
	c, err := s.contracts.Get(tx.ContractAddress)
	if err != nil {
		return fmt.Errorf("state: contract call: %w", err)
	}

	result := vm.Execute(c.Bytecode, vm.Context{
		Caller:          tx.From,
		ContractAddress: tx.ContractAddress,
		Timestamp:       tx.Timestamp,
		BlockNumber:     index,
		Gas:             vm.DefaultGas,
		Ledger:          s.ledger,
		Storage:         c.Storage,
	})

	if !result.Success {
		s.ev("state: contract call: %s: reverted: %s", tx.ContractAddress, result.ErrorMessage)
		return nil
	}

	if err := s.contracts.CommitStorage(tx.ContractAddress, result.Storage); err != nil {
		return fmt.Errorf("state: contract call: %w", err)
	}

	if err := s.ledger.ApplyDeltas(result.BalanceDeltas); err != nil {
		return fmt.Errorf("state: contract call: %w", err)
	}

	return nil
}
