// Package contract manages deployed smart contracts: their bytecode,
// persistent storage, and the (creator, nonce) derived address scheme.
// Contracts and their storage are part of a node's persisted state but
// are deliberately not folded into the account state root; see this
// project's design notes for why.
package contract

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/signature"
	"github.com/chainforge/ledger/foundation/blockchain/vm"
)

// Contract is a deployed smart contract and its persistent storage.
type Contract struct {
	Address   database.AccountID  `json:"address"`
	Creator   database.AccountID  `json:"creator"`
	Name      string              `json:"name"`
	Language  string              `json:"language"`
	Bytecode  []vm.Instruction    `json:"bytecode"`
	Storage   map[string]vm.Value `json:"storage"`
	Timestamp string              `json:"timestamp"`
}

// Manager is the registry of deployed contracts.
type Manager struct {
	mu        sync.RWMutex
	contracts map[database.AccountID]*Contract
	nonces    map[database.AccountID]uint64
}

// NewManager constructs an empty contract registry.
func NewManager() *Manager {
	return &Manager{
		contracts: make(map[database.AccountID]*Contract),
		nonces:    make(map[database.AccountID]uint64),
	}
}

// DeriveAddress computes the deterministic address a contract deployed by
// creator at creator's current contract nonce would receive, without
// allocating it. Used by callers that need to predict an address ahead of
// deployment.
func DeriveAddress(creator database.AccountID, nonce uint64) database.AccountID {
	h := signature.Hash([]byte(fmt.Sprintf("%s:%d", creator, nonce)))
	return database.AccountID("0x" + h[:40])
}

// Deploy registers a new contract owned by creator, allocating its
// address from (creator, creator's next contract nonce).
func (m *Manager) Deploy(creator database.AccountID, name, language string, bytecode []vm.Instruction, timestamp string) (database.AccountID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := m.nonces[creator]
	address := DeriveAddress(creator, nonce)
	m.nonces[creator] = nonce + 1

	if _, exists := m.contracts[address]; exists {
		return "", fmt.Errorf("contract: address collision at %s", address)
	}

	m.contracts[address] = &Contract{
		Address:   address,
		Creator:   creator,
		Name:      name,
		Language:  language,
		Bytecode:  bytecode,
		Storage:   make(map[string]vm.Value),
		Timestamp: timestamp,
	}

	return address, nil
}

// ErrNotFound is returned by Get and Delete when address names no
// deployed contract.
var ErrNotFound = fmt.Errorf("contract: not found")

// Get returns a copy of the contract deployed at address.
func (m *Manager) Get(address database.AccountID) (Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[address]
	if !ok {
		return Contract{}, ErrNotFound
	}

	return cloneContract(c), nil
}

// Delete removes the contract at address.
func (m *Manager) Delete(address database.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[address]; !ok {
		return ErrNotFound
	}

	delete(m.contracts, address)
	return nil
}

// ByCreator returns every contract deployed by creator, sorted by address.
func (m *Manager) ByCreator(creator database.AccountID) []Contract {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Contract
	for _, c := range m.contracts {
		if c.Creator == creator {
			out = append(out, cloneContract(c))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// All returns every deployed contract, sorted by address.
func (m *Manager) All() []Contract {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, cloneContract(c))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// CommitStorage overwrites the persistent storage of the contract at
// address with the result of a successful execution. Called only after a
// vm.Result with Success == true.
func (m *Manager) CommitStorage(address database.AccountID, storage map[string]vm.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contracts[address]
	if !ok {
		return ErrNotFound
	}

	c.Storage = storage
	return nil
}

// LoadSnapshot replaces the registry wholesale with contracts, restoring
// each creator's next deploy nonce as the count of contracts already on
// record for that creator. Deploy hands out nonces sequentially from 0,
// so this matches the creator's nonce only when none of its contracts was
// deleted; after a Delete the restored nonce is lower, and a later Deploy
// can be given a deleted contract's address again.
func (m *Manager) LoadSnapshot(contracts []Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.contracts = make(map[database.AccountID]*Contract, len(contracts))
	m.nonces = make(map[database.AccountID]uint64)

	for i := range contracts {
		c := contracts[i]
		m.contracts[c.Address] = &c
		m.nonces[c.Creator]++
	}
}

func cloneContract(c *Contract) Contract {
	storage := make(map[string]vm.Value, len(c.Storage))
	for k, v := range c.Storage {
		storage[k] = v
	}

	bytecode := make([]vm.Instruction, len(c.Bytecode))
	copy(bytecode, c.Bytecode)

	return Contract{
		Address:   c.Address,
		Creator:   c.Creator,
		Name:      c.Name,
		Language:  c.Language,
		Bytecode:  bytecode,
		Storage:   storage,
		Timestamp: c.Timestamp,
	}
}

// EncodeBytecode is the canonical on-the-wire encoding of a contract's
// instruction sequence, the form stored in a deployment transaction's
// contract_bytecode field.
func EncodeBytecode(code []vm.Instruction) ([]byte, error) {
	return json.Marshal(code)
}

// DecodeBytecode reverses EncodeBytecode.
func DecodeBytecode(data []byte) ([]vm.Instruction, error) {
	var code []vm.Instruction
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, err
	}
	return code, nil
}
