// Package state is the core API of the node: it owns the ledger, the
// chain, the mempool, and the contract registry, and is the only thing
// that ever holds all of them at once. RPC and gossip handlers are never
// handed this type directly; they receive the narrower NodeApi view (see
// api.go) so that giving a network-facing component read or write access
// is an explicit, auditable choice rather than an accident of a shared
// back-pointer.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/foundation/blockchain/contract"
	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/genesis"
	"github.com/chainforge/ledger/foundation/blockchain/mempool"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
	"github.com/chainforge/ledger/foundation/blockchain/pow"
	"github.com/chainforge/ledger/foundation/blockchain/storage"
	"github.com/chainforge/ledger/foundation/blockchain/validate"
)

// EventHandler is called with progress messages as the state machine
// works; it may be nil.
type EventHandler func(v string, args ...any)

// Worker is the background-operations contract the node.Worker type
// implements: mining, relaying, and sync. State only ever signals it;
// it never reaches back into State's internals.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(tx database.SignedTx)
}

// Config bundles everything State needs to come up.
type Config struct {
	NodeID     string
	Genesis    genesis.Genesis
	Blocks     storage.BlockSerializer
	StateStore storage.StateSerializer
	KnownPeers *peer.Set
	Log        *zap.SugaredLogger
	EvHandler  EventHandler
}

// State is the node's core: ledger, chain, mempool, and contracts, plus
// everything needed to mine and validate new blocks.
type State struct {
	mu sync.Mutex

	nodeID     string
	log        *zap.SugaredLogger
	evHandler  EventHandler
	genesis    genesis.Genesis
	knownPeers *peer.Set

	ledger    *database.Ledger
	chain     *database.Chain
	mempool   *mempool.Mempool
	contracts *contract.Manager

	blocks     storage.BlockSerializer
	stateStore storage.StateSerializer

	Worker Worker
}

// New constructs a State, loading genesis and then either replaying any
// persisted blocks or, absent a block log, restoring the last written
// state/contracts snapshot.
func New(cfg Config) (*State, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ledger, err := database.NewLedger(cfg.Genesis)
	if err != nil {
		return nil, fmt.Errorf("state: new ledger: %w", err)
	}

	genesisBlock := genesisBlock(cfg.Genesis, ledger.StateRoot())
	chain := database.NewChain(genesisBlock)
	contracts := contract.NewManager()

	s := State{
		nodeID:     cfg.NodeID,
		log:        cfg.Log,
		evHandler:  ev,
		genesis:    cfg.Genesis,
		knownPeers: cfg.KnownPeers,
		ledger:     ledger,
		chain:      chain,
		mempool:    mempool.New(),
		contracts:  contracts,
		blocks:     cfg.Blocks,
		stateStore: cfg.StateStore,
	}

	switch {
	case cfg.Blocks != nil:
		if err := s.loadPersisted(); err != nil {
			return nil, err
		}
	case cfg.StateStore != nil:
		// No block log to replay: fall back to the latest state.json /
		// contracts.json snapshot, if one was ever written.
		if err := s.restoreFromSnapshot(); err != nil {
			return nil, err
		}
	}

	return &s, nil
}

// restoreFromSnapshot rebuilds the ledger and contract registry from the
// configured StateSerializer's last written snapshot. Only called when
// there is no BlockSerializer to replay instead; running both would apply
// the same state twice. A store that has never been written to (a fresh
// node's first boot) leaves the genesis-seeded ledger and empty contract
// registry untouched rather than overwriting them with an empty snapshot.
func (s *State) restoreFromSnapshot() error {
	snap, err := s.stateStore.ReadState()
	if err != nil {
		return fmt.Errorf("state: restore: %w", err)
	}
	if len(snap.Accounts) > 0 {
		s.ledger.LoadSnapshot(snap.Accounts)
	}

	snaps, err := s.stateStore.ReadContracts()
	if err != nil {
		return fmt.Errorf("state: restore: %w", err)
	}
	if len(snaps) == 0 {
		return nil
	}

	contracts := make([]contract.Contract, len(snaps))
	for i, cs := range snaps {
		c, err := snapshotToContract(cs)
		if err != nil {
			return fmt.Errorf("state: restore: %w", err)
		}
		contracts[i] = c
	}
	s.contracts.LoadSnapshot(contracts)

	return nil
}

func genesisBlock(gen genesis.Genesis, stateRoot string) database.Block {
	merkleRoot, _ := database.MerkleRoot(nil)

	return database.Block{
		Header: database.BlockHeader{
			Index:        1,
			Timestamp:    gen.Date.Format(time.RFC3339),
			MerkleRoot:   merkleRoot,
			StateRoot:    stateRoot,
			Proof:        1,
			PreviousHash: database.ZeroHash,
		},
	}
}

// loadPersisted replays every block recorded by the configured
// BlockSerializer on top of genesis, validating each as it goes.
func (s *State) loadPersisted() error {
	iter := s.blocks.ForEach()

	previous, err := s.chain.Latest()
	if err != nil {
		return err
	}

	var blocks []database.Block
	for !iter.Done() {
		b, err := iter.Next()
		if err != nil {
			return err
		}
		if b.Header.Index == 0 {
			break
		}

		difficulty := pow.Difficulty(len(blocks) + 1)
		if err := validate.Block(b, previous, difficulty, s.ledger); err != nil {
			return fmt.Errorf("state: replay: %w", err)
		}

		if err := s.ledger.Apply(b.Transactions); err != nil {
			return fmt.Errorf("state: replay: apply: %w", err)
		}

		if err := s.applyContractEffects(b.Header.Index, b.Transactions); err != nil {
			return fmt.Errorf("state: replay: %w", err)
		}

		blocks = append(blocks, b)
		previous = b
	}

	if len(blocks) > 0 {
		s.chain.Replace(append([]database.Block{s.mustGenesis()}, blocks...))
	}

	return nil
}

func (s *State) mustGenesis() database.Block {
	b, _ := s.chain.ByIndex(1)
	return b
}

// =============================================================================

// GetBalance returns the current balance of addr.
func (s *State) GetBalance(addr database.AccountID) uint64 {
	return s.ledger.GetBalance(addr)
}

// GetNonce returns the last applied nonce of addr.
func (s *State) GetNonce(addr database.AccountID) (uint64, bool) {
	return s.ledger.GetNonce(addr)
}

// Snapshot returns a sorted copy of every known account.
func (s *State) Snapshot() []database.Account {
	return s.ledger.Snapshot()
}

// StateRoot returns the current ledger state root.
func (s *State) StateRoot() string {
	return s.ledger.StateRoot()
}

// ChainHeight returns the number of blocks in the chain, genesis included.
func (s *State) ChainHeight() uint64 {
	return uint64(s.chain.Height())
}

// LatestBlock returns the chain's tip.
func (s *State) LatestBlock() (database.Block, error) {
	return s.chain.Latest()
}

// BlockByIndex returns the block at index.
func (s *State) BlockByIndex(index uint64) (database.Block, error) {
	return s.chain.ByIndex(index)
}

// BlockByHash returns the block whose hash equals hash.
func (s *State) BlockByHash(hash string) (database.Block, error) {
	return s.chain.ByHash(hash)
}

// IsChainValid reports whether the chain's linkage still holds.
func (s *State) IsChainValid() bool {
	return s.chain.IsChainValid()
}

// MempoolSize returns the number of pending transactions.
func (s *State) MempoolSize() int {
	return s.mempool.Size()
}

// KnownPeers returns the node's known peer set.
func (s *State) KnownPeers() *peer.Set {
	return s.knownPeers
}

// Contracts returns the node's contract registry.
func (s *State) Contracts() *contract.Manager {
	return s.contracts
}

// ContractByAddress returns the contract deployed at address.
func (s *State) ContractByAddress(address database.AccountID) (contract.Contract, error) {
	return s.contracts.Get(address)
}

// ContractsByCreator returns every contract deployed by creator.
func (s *State) ContractsByCreator(creator database.AccountID) []contract.Contract {
	return s.contracts.ByCreator(creator)
}

// Ledger exposes the underlying ledger for components (the VM bridge,
// tests) that need the full read surface.
func (s *State) Ledger() *database.Ledger {
	return s.ledger
}

// =============================================================================

// AddTransaction validates tx against the current ledger state and, if
// accepted, adds it to the mempool and signals the worker to relay it.
func (s *State) AddTransaction(tx database.SignedTx) error {
	if s.mempool.Contains(tx.ID) {
		return &validate.ReplayDetectedError{Account: tx.From, Got: tx.Nonce}
	}

	if err := validate.Transaction(tx, s.ledger); err != nil {
		return err
	}

	s.mempool.Add(tx)

	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
	}

	return nil
}

// =============================================================================

// MineNewBlock drains up to maxTx pending transactions, finds the
// proof-of-work for the next block, applies the transactions, and
// appends the block to the chain. The PoW search itself is performed
// without holding State's lock, so incoming reads and mempool additions
// are not blocked while mining is in progress.
func (s *State) MineNewBlock(ctx context.Context, maxTx int) (database.Block, error) {
	s.mu.Lock()
	previous, err := s.chain.Latest()
	if err != nil {
		s.mu.Unlock()
		return database.Block{}, err
	}

	txs := s.mempool.Drain(maxTx)
	difficulty := pow.Difficulty(s.chain.Height())
	stateRoot := s.ledger.StateRoot()
	index := previous.Header.Index + 1
	s.mu.Unlock()

	// A block stamped less than MinBlockTime after its predecessor fails
	// rule 3, so a block mined sooner than that is stamped at the minimum.
	ts := time.Now().UTC()
	if prevTS, err := time.Parse(time.RFC3339, previous.Header.Timestamp); err == nil && ts.Before(prevTS.Add(validate.MinBlockTime)) {
		ts = prevTS.Add(validate.MinBlockTime)
	}

	block, err := database.Mine(ctx, index, ts.Format(time.RFC3339), previous.Hash(), previous.Header.Proof, stateRoot, txs, difficulty, s.ev)
	if err != nil {
		// Put the drained transactions back so a cancelled mine attempt
		// does not lose them.
		for _, tx := range txs {
			s.mempool.Add(tx)
		}
		return database.Block{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendLocked(block); err != nil {
		for _, tx := range txs {
			s.mempool.Add(tx)
		}
		return database.Block{}, err
	}

	return block, nil
}

// ApplyPeerBlock validates an externally-sourced block against the
// current tip and, if it passes, applies and appends it. Returns
// database.ErrChainForked if block is not the immediate successor of the
// local tip, signaling the caller should fall back to a suffix sync.
func (s *State) ApplyPeerBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.chain.Latest()
	if err != nil {
		return err
	}

	if block.Header.Index != previous.Header.Index+1 {
		return database.ErrChainForked
	}

	return s.appendLocked(block)
}

// appendLocked validates and applies block against the current tip. The
// caller must hold s.mu.
func (s *State) appendLocked(block database.Block) error {
	previous, err := s.chain.Latest()
	if err != nil {
		return err
	}

	difficulty := pow.Difficulty(s.chain.Height())
	if err := validate.Block(block, previous, difficulty, s.ledger); err != nil {
		return err
	}

	if err := s.ledger.Apply(block.Transactions); err != nil {
		return err
	}

	if err := s.applyContractEffects(block.Header.Index, block.Transactions); err != nil {
		return err
	}

	s.chain.Append(block)

	if s.blocks != nil {
		if err := s.blocks.Write(block); err != nil {
			s.ev("state: persist block: %s", err)
		}
	}

	ids := make([]string, len(block.Transactions))
	for i, tx := range block.Transactions {
		ids[i] = tx.ID
	}
	s.mempool.Remove(ids)

	return nil
}

// ApplySyncSuffix validates and applies a run of blocks returned by a
// peer's chain sync response, aborting without mutating anything if any
// block in the run fails validation.
func (s *State) ApplySyncSuffix(blocks []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.chain.Latest()
	if err != nil {
		return err
	}

	// Validate the whole run first so a partial failure never truncates
	// or partially-applies the chain.
	trialLedger := s.ledger.Clone()
	chainLen := s.chain.Height()
	for _, b := range blocks {
		difficulty := pow.Difficulty(chainLen)
		if err := validate.Block(b, previous, difficulty, trialLedger); err != nil {
			return fmt.Errorf("state: sync suffix: %w", err)
		}
		if err := trialLedger.Apply(b.Transactions); err != nil {
			return fmt.Errorf("state: sync suffix: %w", err)
		}
		previous = b
		chainLen++
	}

	for _, b := range blocks {
		if err := s.ledger.Apply(b.Transactions); err != nil {
			return err
		}
		if err := s.applyContractEffects(b.Header.Index, b.Transactions); err != nil {
			return err
		}
		s.chain.Append(b)
		if s.blocks != nil {
			if err := s.blocks.Write(b); err != nil {
				s.ev("state: persist block: %s", err)
			}
		}

		ids := make([]string, len(b.Transactions))
		for i, tx := range b.Transactions {
			ids[i] = tx.ID
		}
		s.mempool.Remove(ids)
	}

	return nil
}

func (s *State) ev(v string, args ...any) {
	if s.evHandler != nil {
		s.evHandler(v, args...)
	}
}

// PersistState writes the current account and contract snapshots to the
// configured StateSerializer, if any.
func (s *State) PersistState() error {
	if s.stateStore == nil {
		return nil
	}

	snap := storage.StateSnapshot{
		Accounts:   s.ledger.Snapshot(),
		Difficulty: pow.Difficulty(s.chain.Height()),
	}

	if err := s.stateStore.WriteState(snap); err != nil {
		return fmt.Errorf("state: persist state: %w", err)
	}

	contracts := s.contracts.All()
	snaps := make([]storage.ContractSnapshot, len(contracts))
	for i, c := range contracts {
		cs, err := contractToSnapshot(c)
		if err != nil {
			return fmt.Errorf("state: persist state: %w", err)
		}
		snaps[i] = cs
	}

	if err := s.stateStore.WriteContracts(snaps); err != nil {
		return fmt.Errorf("state: persist state: %w", err)
	}

	return nil
}
