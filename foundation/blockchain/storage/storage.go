// Package storage persists the node's blocks, account state, and contract
// registry to disk (or to memory, for tests and ephemeral nodes), in the
// layout described by this project's design notes: blocks.json,
// state.json, contracts.json.
package storage

import (
	"github.com/chainforge/ledger/foundation/blockchain/database"
)

// BlockIterator walks a block Serializer's stored blocks in order.
type BlockIterator interface {
	Next() (database.Block, error)
	Done() bool
}

// BlockSerializer is the behavior required of anything able to persist
// and recover the chain's blocks.
type BlockSerializer interface {
	Write(block database.Block) error
	ForEach() BlockIterator
	Close() error
	Reset() error
}

// StateSnapshot is the persisted form of state.json: every known account
// plus the difficulty in effect when it was written.
type StateSnapshot struct {
	Accounts   []database.Account `json:"accounts"`
	Difficulty int                `json:"difficulty"`
}

// ContractSnapshot is one entry of contracts.json.
type ContractSnapshot struct {
	Address   string            `json:"address"`
	Creator   string            `json:"creator"`
	Name      string            `json:"name"`
	Language  string            `json:"language"`
	Bytecode  []byte            `json:"bytecode"`
	Storage   map[string][]byte `json:"storage"`
	Timestamp string            `json:"timestamp"`
}

// StateSerializer is the behavior required to persist and recover
// account state and the contract registry.
type StateSerializer interface {
	WriteState(snap StateSnapshot) error
	ReadState() (StateSnapshot, error)
	WriteContracts(snaps []ContractSnapshot) error
	ReadContracts() ([]ContractSnapshot, error)
}
