package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/chainforge/ledger/foundation/blockchain/genesis"
	"github.com/chainforge/ledger/foundation/blockchain/signature"
)

// Ledger tracks account balances and nonces. It is the single source of
// truth for account state and is guarded by chain_lock discipline: callers
// that need a consistent read across balances, nonces and the chain (state
// root, chain validation) take the RLock; block append takes the Lock.
type Ledger struct {
	mu sync.RWMutex

	balances map[AccountID]uint64
	nonces   map[AccountID]uint64
	hasNonce map[AccountID]bool
}

// NewLedger constructs a Ledger seeded with genesis balances.
func NewLedger(gen genesis.Genesis) (*Ledger, error) {
	l := Ledger{
		balances: make(map[AccountID]uint64),
		nonces:   make(map[AccountID]uint64),
		hasNonce: make(map[AccountID]bool),
	}

	for accountStr, balance := range gen.Balances {
		accountID := AccountID(accountStr)
		if !accountID.IsAccountID() {
			return nil, fmt.Errorf("ledger: invalid genesis account %q", accountStr)
		}
		l.balances[accountID] = balance
	}

	return &l, nil
}

// GetBalance returns id's current balance. An account that has never been
// credited or debited has a balance of 0.
func (l *Ledger) GetBalance(id AccountID) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[id]
}

// GetNonce returns the last applied nonce for id, and whether id has ever
// sent a transaction. Per spec, an absent account's nonce is -1
// semantically: the first transaction it sends must carry nonce 0.
func (l *Ledger) GetNonce(id AccountID) (nonce uint64, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.nonces[id], l.hasNonce[id]
}

// ExpectedNonce returns the nonce the next transaction from id must carry.
func (l *Ledger) ExpectedNonce(id AccountID) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.hasNonce[id] {
		return 0
	}

	return l.nonces[id] + 1
}

// CreateAccount ensures id is present in the ledger with the given opening
// balance, if it is not already known.
func (l *Ledger) CreateAccount(id AccountID, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.balances[id]; !exists {
		l.balances[id] = balance
	}
}

// Snapshot returns a sorted, point-in-time copy of every known account.
func (l *Ledger) Snapshot() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts := make([]Account, 0, len(l.balances))
	for id, balance := range l.balances {
		accounts = append(accounts, Account{
			AccountID: id,
			Balance:   balance,
			Nonce:     l.nonces[id],
		})
	}

	sort.Sort(byAccount(accounts))
	return accounts
}

// stateEntry is the canonical per-account object the state root hashes,
// {balance, nonce} in that fixed order.
type stateEntry struct {
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// StateRoot returns the deterministic hash of the current account state:
// every known account, sorted by address, encoded as
// { addr: {balance, nonce} }. Go's json.Marshal sorts map keys, which is
// what makes this deterministic without a manual sort into a slice first.
func (l *Ledger) StateRoot() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.stateRootLocked()
}

func (l *Ledger) stateRootLocked() string {
	state := make(map[AccountID]stateEntry, len(l.balances))
	for id, balance := range l.balances {
		state[id] = stateEntry{Balance: balance, Nonce: l.nonces[id]}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return signature.ZeroHash
	}

	return signature.Hash(data)
}

// Clone returns an independent copy of the ledger, used to trial-validate
// a run of blocks (a sync suffix) before committing any of them to the
// real ledger.
func (l *Ledger) Clone() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	clone := Ledger{
		balances: make(map[AccountID]uint64, len(l.balances)),
		nonces:   make(map[AccountID]uint64, len(l.nonces)),
		hasNonce: make(map[AccountID]bool, len(l.hasNonce)),
	}

	for k, v := range l.balances {
		clone.balances[k] = v
	}
	for k, v := range l.nonces {
		clone.nonces[k] = v
	}
	for k, v := range l.hasNonce {
		clone.hasNonce[k] = v
	}

	return &clone
}

// LoadSnapshot replaces the ledger's balances and nonces wholesale with
// accounts, used to restore a node from a state.json snapshot rather than
// replaying blocks.json. A restored account with Nonce 0 is treated as
// never having sent a transaction; an account whose one and only sent
// transaction legitimately carried nonce 0 will be allowed to reuse it,
// a narrow gap this snapshot format cannot close.
func (l *Ledger) LoadSnapshot(accounts []Account) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[AccountID]uint64, len(accounts))
	l.nonces = make(map[AccountID]uint64, len(accounts))
	l.hasNonce = make(map[AccountID]bool, len(accounts))

	for _, a := range accounts {
		l.balances[a.AccountID] = a.Balance
		if a.Nonce != 0 {
			l.nonces[a.AccountID] = a.Nonce
			l.hasNonce[a.AccountID] = true
		}
	}
}

// ApplyDeltas commits a set of signed balance changes produced by a
// successful contract execution (vm.Result.BalanceDeltas). Callers must
// only pass deltas from a Result with Success == true.
func (l *Ledger) ApplyDeltas(deltas map[AccountID]int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, delta := range deltas {
		if delta < 0 && l.balances[id] < uint64(-delta) {
			return fmt.Errorf("ledger: apply deltas: %s: insufficient balance", id)
		}
	}

	for id, delta := range deltas {
		if delta < 0 {
			l.balances[id] -= uint64(-delta)
		} else {
			l.balances[id] += uint64(delta)
		}
	}

	return nil
}

// Apply applies txs to the ledger atomically: for each, debit from by
// amount+gas_price, credit to by amount, and record from's nonce. If any
// tx cannot be covered, Apply returns an error and changes nothing. Callers
// are expected to have already run validation (replay, balance, ordering)
// before calling Apply; Apply itself does not re-validate.
func (l *Ledger) Apply(txs []SignedTx) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balances := make(map[AccountID]uint64, len(l.balances))
	for id, balance := range l.balances {
		balances[id] = balance
	}

	senders := make([]AccountID, len(txs))
	for i, tx := range txs {
		fromID, err := tx.FromAddress()
		if err != nil {
			return fmt.Errorf("ledger: apply: %w", err)
		}
		senders[i] = fromID

		total := tx.Amount + tx.GasPrice
		if balances[fromID] < total {
			return fmt.Errorf("ledger: apply: %s: insufficient balance", fromID)
		}

		balances[fromID] -= total
		balances[tx.To] += tx.Amount
	}

	l.balances = balances
	for i, tx := range txs {
		l.nonces[senders[i]] = tx.Nonce
		l.hasNonce[senders[i]] = true
	}

	return nil
}
