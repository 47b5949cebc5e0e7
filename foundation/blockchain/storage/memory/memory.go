// Package memory implements an in-memory storage.BlockSerializer and
// storage.StateSerializer, used by tests and by nodes run without
// persistence.
package memory

import (
	"errors"
	"sync"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/storage"
)

// Memory keeps every block, the latest state snapshot, and the latest
// contract snapshot in process memory.
type Memory struct {
	mu        sync.RWMutex
	blocks    []database.Block
	state     storage.StateSnapshot
	contracts []storage.ContractSnapshot
}

// New constructs an empty in-memory store.
func New() *Memory {
	return &Memory{}
}

// Close has nothing to release for an in-memory store.
func (m *Memory) Close() error {
	return nil
}

// Write appends block, which must be the next one in sequence.
func (m *Memory) Write(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if uint64(len(m.blocks)+1) != block.Header.Index {
		return errors.New("memory: block is out of order")
	}

	m.blocks = append(m.blocks, block)
	return nil
}

// ForEach returns an iterator over every stored block, oldest first.
func (m *Memory) ForEach() storage.BlockIterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.Block, len(m.blocks))
	copy(blocks, m.blocks)

	return &iterator{blocks: blocks}
}

// Reset discards every stored block.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	return nil
}

// WriteState replaces the stored state snapshot.
func (m *Memory) WriteState(snap storage.StateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = snap
	return nil
}

// ReadState returns the stored state snapshot.
func (m *Memory) ReadState() (storage.StateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state, nil
}

// WriteContracts replaces the stored contract snapshot.
func (m *Memory) WriteContracts(snaps []storage.ContractSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.contracts = snaps
	return nil
}

// ReadContracts returns the stored contract snapshot.
func (m *Memory) ReadContracts() ([]storage.ContractSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.contracts, nil
}

// =============================================================================

type iterator struct {
	blocks []database.Block
	pos    int
}

// Next returns the next block in the iteration.
func (it *iterator) Next() (database.Block, error) {
	if it.Done() {
		return database.Block{}, errors.New("memory: no more blocks")
	}

	b := it.blocks[it.pos]
	it.pos++
	return b, nil
}

// Done reports whether the iteration is exhausted.
func (it *iterator) Done() bool {
	return it.pos >= len(it.blocks)
}
