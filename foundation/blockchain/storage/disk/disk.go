// Package disk implements storage.BlockSerializer and
// storage.StateSerializer on top of the local filesystem, following this
// project's design notes for §6: blocks.json is an append-only sequence
// of newline-delimited JSON blocks; state.json and contracts.json are
// each overwritten whole on every write.
package disk

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/storage"
)

// Disk persists blocks, state, and contracts under a single directory.
type Disk struct {
	mu      sync.Mutex
	dir     string
	blocksF *os.File
}

// New opens (creating if necessary) the blocks.json file under dir.
func New(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, "blocks.json"), os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &Disk{dir: dir, blocksF: f}, nil
}

// Close releases the open blocks file.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.blocksF.Close()
}

// Write appends block to blocks.json.
func (d *Disk) Write(block database.Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := json.Marshal(block.ToFS())
	if err != nil {
		return err
	}

	_, err = d.blocksF.Write(append(data, '\n'))
	return err
}

// ForEach returns an iterator over blocks.json, read from the start of
// the file.
func (d *Disk) ForEach() storage.BlockIterator {
	f, err := os.Open(filepath.Join(d.dir, "blocks.json"))
	if err != nil {
		return &diskIterator{err: err, done: true}
	}

	return &diskIterator{file: f, scanner: bufio.NewScanner(f)}
}

// Reset truncates blocks.json back to empty.
func (d *Disk) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.blocksF.Close(); err != nil {
		return err
	}

	path := filepath.Join(d.dir, "blocks.json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}

	d.blocksF = f
	return nil
}

// WriteState overwrites state.json with snap.
func (d *Disk) WriteState(snap storage.StateSnapshot) error {
	return writeJSONFile(filepath.Join(d.dir, "state.json"), snap)
}

// ReadState reads state.json, returning a zero value if it does not yet
// exist.
func (d *Disk) ReadState() (storage.StateSnapshot, error) {
	var snap storage.StateSnapshot
	ok, err := readJSONFile(filepath.Join(d.dir, "state.json"), &snap)
	if err != nil || !ok {
		return storage.StateSnapshot{}, err
	}
	return snap, nil
}

// WriteContracts overwrites contracts.json with snaps.
func (d *Disk) WriteContracts(snaps []storage.ContractSnapshot) error {
	return writeJSONFile(filepath.Join(d.dir, "contracts.json"), snaps)
}

// ReadContracts reads contracts.json, returning nil if it does not yet
// exist.
func (d *Disk) ReadContracts() ([]storage.ContractSnapshot, error) {
	var snaps []storage.ContractSnapshot
	_, err := readJSONFile(filepath.Join(d.dir, "contracts.json"), &snaps)
	return snaps, err
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func readJSONFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}

	return true, nil
}

// =============================================================================

type diskIterator struct {
	file    *os.File
	scanner *bufio.Scanner
	err     error
	done    bool
}

// Next returns the next block in blocks.json.
func (it *diskIterator) Next() (database.Block, error) {
	if it.err != nil {
		return database.Block{}, it.err
	}

	if !it.scanner.Scan() {
		it.done = true
		if it.file != nil {
			it.file.Close()
		}
		if err := it.scanner.Err(); err != nil {
			return database.Block{}, err
		}
		return database.Block{}, nil
	}

	var bfs struct {
		Hash   string               `json:"hash"`
		Header database.BlockHeader `json:"block"`
		Trans  []database.SignedTx  `json:"trans"`
	}

	if err := json.Unmarshal(it.scanner.Bytes(), &bfs); err != nil {
		it.err = err
		return database.Block{}, err
	}

	return database.Block{Header: bfs.Header, Transactions: bfs.Trans}, nil
}

// Done reports whether the iteration is exhausted.
func (it *diskIterator) Done() bool {
	return it.done
}
