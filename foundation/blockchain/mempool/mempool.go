// Package mempool maintains the bounded FIFO of validated pending
// transactions awaiting inclusion in a block.
package mempool

import (
	"sync"

	"github.com/chainforge/ledger/foundation/blockchain/database"
)

// MaxSize is the maximum number of transactions the mempool holds before
// it starts evicting the oldest entries.
const MaxSize = 10000

// EvictSize is how many of the oldest entries are dropped once the
// mempool is full, to make room for new arrivals.
const EvictSize = 1000

// Mempool is a bounded, thread-safe FIFO of validated transactions. Its
// lock is independent of the chain lock, and is never held across
// validation side effects other than the single append or evict below.
type Mempool struct {
	mu  sync.RWMutex
	txs []database.SignedTx
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Size returns the current number of pending transactions.
func (mp *Mempool) Size() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.txs)
}

// Add appends tx to the pool. The caller is expected to have already run
// it through the transaction validator; Add does not itself validate.
// If the pool is at capacity, the oldest EvictSize entries are dropped
// first.
func (mp *Mempool) Add(tx database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.txs) >= MaxSize {
		evict := EvictSize
		if evict > len(mp.txs) {
			evict = len(mp.txs)
		}
		mp.txs = append([]database.SignedTx{}, mp.txs[evict:]...)
	}

	mp.txs = append(mp.txs, tx)
}

// Contains reports whether a transaction with the given id is already
// pending, the check the miner and gossip layer use to avoid duplicate
// submission and to suppress replay.
func (mp *Mempool) Contains(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, tx := range mp.txs {
		if tx.ID == id {
			return true
		}
	}

	return false
}

// Drain removes and returns up to max of the oldest pending transactions,
// in FIFO order.
func (mp *Mempool) Drain(max int) []database.SignedTx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if max > len(mp.txs) {
		max = len(mp.txs)
	}

	drained := make([]database.SignedTx, max)
	copy(drained, mp.txs[:max])
	mp.txs = mp.txs[max:]

	return drained
}

// Remove drops every pending transaction whose id appears in ids, used to
// clear entries that arrived in a block from another source (a peer's
// block, a sync suffix) so they are not later re-included from the
// mempool as duplicates.
func (mp *Mempool) Remove(ids []string) {
	if len(ids) == 0 {
		return
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	kept := mp.txs[:0:0]
	for _, tx := range mp.txs {
		if !drop[tx.ID] {
			kept = append(kept, tx)
		}
	}
	mp.txs = kept
}

// Truncate clears every pending transaction.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.txs = nil
}
