// Package validate holds the transaction and block acceptance rules that
// need more context than a transaction or block can check about itself:
// replay protection and balance sufficiency against the ledger, and
// linkage, timing, ordering, and proof-of-work checks against the chain.
package validate

import (
	"fmt"
	"time"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/pow"
)

// MaxBlockFutureTime is how far into the future, relative to the local
// wall clock, a block's timestamp may be and still be accepted.
const MaxBlockFutureTime = 120 * time.Second

// MinBlockTime is the minimum delta between a block's timestamp and its
// predecessor's.
const MinBlockTime = 1 * time.Second

const timeLayout = time.RFC3339

// InvalidTransactionError reports a transaction rejected by the
// transaction validator, carrying the specific reason.
type InvalidTransactionError struct {
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction: %s", e.Reason)
}

// ReplayDetectedError reports a transaction whose nonce has already been
// applied, or that skips ahead of the sender's expected next nonce.
type ReplayDetectedError struct {
	Account database.AccountID
	Want    uint64
	Got     uint64
}

func (e *ReplayDetectedError) Error() string {
	return fmt.Sprintf("replay detected: account %s expected nonce %d, got %d", e.Account, e.Want, e.Got)
}

// Transaction runs the full transaction validator: tx's own structural and
// cryptographic checks (SignedTx.Validate), then the replay and balance
// checks that require ledger context.
func Transaction(tx database.SignedTx, ledger *database.Ledger) error {
	if tx.Amount == 0 {
		return &InvalidTransactionError{Reason: "amount must be greater than zero"}
	}

	if err := tx.Validate(); err != nil {
		return &InvalidTransactionError{Reason: err.Error()}
	}

	fromID, err := tx.FromAddress()
	if err != nil {
		return &InvalidTransactionError{Reason: err.Error()}
	}

	want := ledger.ExpectedNonce(fromID)
	if tx.Nonce != want {
		return &ReplayDetectedError{Account: fromID, Want: want, Got: tx.Nonce}
	}

	if ledger.GetBalance(fromID) < tx.Amount+tx.GasPrice {
		return &InvalidTransactionError{Reason: "insufficient balance"}
	}

	return nil
}

// BlockError reports a block rejected by the block validator, naming the
// numbered rule (per this project's design notes, matching the order
// they're listed in) that failed.
type BlockError struct {
	Rule   int
	Reason string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("invalid block (rule %d): %s", e.Rule, e.Reason)
}

// preApplyLedger is the interface Block needs from the ledger as it stood
// just before the block's transactions were applied: the state root for
// rule 6, and each sender's expected nonce for rule 4's first-tx check.
// State's caller supplies this since only it knows what "before" means
// across a reorg.
type preApplyLedger interface {
	StateRoot() string
	ExpectedNonce(id database.AccountID) uint64
}

// Block validates block against previous and, if non-empty, against the
// pre-apply ledger state root. difficulty is the difficulty the miner was
// required to meet at block.Header.Index.
func Block(block, previous database.Block, difficulty int, ledger preApplyLedger) error {
	if block.Header.PreviousHash != previous.Hash() {
		return &BlockError{Rule: 1, Reason: "previous_hash does not match hash(previous_block)"}
	}

	wantMerkle, err := database.MerkleRoot(block.Transactions)
	if err != nil {
		return &BlockError{Rule: 2, Reason: err.Error()}
	}
	if block.Header.MerkleRoot != wantMerkle {
		return &BlockError{Rule: 2, Reason: "merkle_root does not match recomputed root"}
	}

	if err := validateTimestamp(block, previous); err != nil {
		return err
	}

	if err := validateNonceOrdering(block, ledger); err != nil {
		return err
	}

	hashHex := pow.DigestHex(previous.Header.Proof, block.Header.Proof, block.Header.Index, powInputData(block, previous))
	if !pow.IsSolved(hashHex, difficulty) {
		return &BlockError{Rule: 5, Reason: "proof-of-work does not meet difficulty"}
	}

	if block.Header.StateRoot != "" && ledger != nil {
		if block.Header.StateRoot != ledger.StateRoot() {
			return &BlockError{Rule: 6, Reason: "state_root does not match pre-apply state"}
		}
	}

	return nil
}

// powInputData reproduces the bytes the miner hashed alongside calc(proof):
// previous_hash || merkle_root. Kept in this package (rather than exported
// from database) since only the validator needs to recompute it outside of
// mining itself.
func powInputData(block, previous database.Block) []byte {
	return []byte(previous.Hash() + block.Header.MerkleRoot)
}

func validateTimestamp(block, previous database.Block) error {
	ts, err := time.Parse(timeLayout, block.Header.Timestamp)
	if err != nil {
		return &BlockError{Rule: 3, Reason: "timestamp is not well-formed: " + err.Error()}
	}

	prevTS, err := time.Parse(timeLayout, previous.Header.Timestamp)
	if err != nil {
		return &BlockError{Rule: 3, Reason: "previous block timestamp is not well-formed: " + err.Error()}
	}

	if !ts.After(prevTS) {
		return &BlockError{Rule: 3, Reason: "timestamp does not strictly follow previous block"}
	}

	if ts.Sub(prevTS) < MinBlockTime {
		return &BlockError{Rule: 3, Reason: "timestamp delta is below MIN_BLOCK_TIME"}
	}

	if ts.Sub(time.Now().UTC()) > MaxBlockFutureTime {
		return &BlockError{Rule: 3, Reason: "timestamp is too far in the future"}
	}

	return nil
}

func validateNonceOrdering(block database.Block, ledger preApplyLedger) error {
	last := make(map[database.AccountID]uint64)
	seen := make(map[database.AccountID]bool)

	for _, tx := range block.Transactions {
		fromID, err := tx.FromAddress()
		if err != nil {
			return &BlockError{Rule: 4, Reason: err.Error()}
		}

		if !seen[fromID] {
			if ledger != nil && tx.Nonce != ledger.ExpectedNonce(fromID) {
				return &BlockError{Rule: 4, Reason: fmt.Sprintf("account %s: first nonce in block does not match expected next nonce", fromID)}
			}
		} else if tx.Nonce != last[fromID]+1 {
			return &BlockError{Rule: 4, Reason: fmt.Sprintf("account %s: nonce out of order", fromID)}
		}

		last[fromID] = tx.Nonce
		seen[fromID] = true
	}

	return nil
}
