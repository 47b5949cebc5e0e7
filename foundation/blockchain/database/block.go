package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainforge/ledger/foundation/blockchain/merkle"
	"github.com/chainforge/ledger/foundation/blockchain/pow"
	"github.com/chainforge/ledger/foundation/blockchain/signature"
)

// ZeroHash is the previous_hash literal used by the genesis block. Per this
// project's design notes, the linkage this value would represent is never
// actually checked — only block[1]'s link to block[0] is.
const ZeroHash = signature.ZeroHash

// BlockHeader carries everything about a block except its transactions.
type BlockHeader struct {
	Index        uint64 `json:"index"`
	Timestamp    string `json:"timestamp"`
	MerkleRoot   string `json:"merkle_root"`
	StateRoot    string `json:"state_root"`
	Proof        uint64 `json:"proof"`
	PreviousHash string `json:"previous_hash"`
}

// Block represents a group of transactions batched together, along with
// the header committing to them.
type Block struct {
	Header       BlockHeader
	Transactions []SignedTx
}

// canonicalBlock is the fixed-order field set a block's hash is computed
// over. Field order matches spec.md's listing and must not change.
type canonicalBlock struct {
	MerkleRoot   string     `json:"merkle_root"`
	StateRoot    string     `json:"state_root"`
	Proof        uint64     `json:"proof"`
	PreviousHash string     `json:"previous_hash"`
	Index        uint64     `json:"index"`
	Timestamp    string     `json:"timestamp"`
	Transactions []SignedTx `json:"transactions"`
}

// Hash returns the block's canonical hash.
func (b Block) Hash() string {
	cb := canonicalBlock{
		MerkleRoot:   b.Header.MerkleRoot,
		StateRoot:    b.Header.StateRoot,
		Proof:        b.Header.Proof,
		PreviousHash: b.Header.PreviousHash,
		Index:        b.Header.Index,
		Timestamp:    b.Header.Timestamp,
		Transactions: b.Transactions,
	}

	data, err := json.Marshal(cb)
	if err != nil {
		return signature.ZeroHash
	}

	return signature.Hash(data)
}

// MerkleRoot computes the merkle root over txs, following the spec's rule
// that an empty transaction list roots to hash("").
func MerkleRoot(txs []SignedTx) (string, error) {
	if len(txs) == 0 {
		return signature.Hash([]byte("")), nil
	}

	tree, err := merkle.NewTree(txs)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// powData is the byte sequence proof-of-work digests are computed against,
// beyond the calc(proof) term: the block's content that isn't the proof
// itself. Resolving spec.md's silence on what "data" is, this project fixes
// it as previous_hash || merkle_root so a miner and a validator always
// agree without either needing to exchange anything extra.
func powData(previousHash, merkleRoot string) []byte {
	return []byte(previousHash + merkleRoot)
}

// Mine performs the proof-of-work search for a new block at index, on top
// of previousHash, and returns the unmined header fields filled in plus the
// discovered proof. stateRoot is sampled by the caller before any of txs
// are applied.
func Mine(ctx context.Context, index uint64, timestamp string, previousHash string, previousProof uint64, stateRoot string, txs []SignedTx, difficulty int, ev pow.EventHandler) (Block, error) {
	merkleRoot, err := MerkleRoot(txs)
	if err != nil {
		return Block{}, err
	}

	data := powData(previousHash, merkleRoot)

	proof, _, err := pow.FindNonce(ctx, previousProof, index, data, difficulty, ev)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: BlockHeader{
			Index:        index,
			Timestamp:    timestamp,
			MerkleRoot:   merkleRoot,
			StateRoot:    stateRoot,
			Proof:        proof,
			PreviousHash: previousHash,
		},
		Transactions: txs,
	}

	return b, nil
}

// =============================================================================

// blockFS is the on-disk representation of a block, matching
// blocks.json's schema.
type blockFS struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []SignedTx  `json:"trans"`
}

// ToFS converts a Block into its persisted representation.
func (b Block) ToFS() blockFS {
	return blockFS{
		Hash:   b.Hash(),
		Header: b.Header,
		Trans:  b.Transactions,
	}
}

// FromFS converts a persisted block back into a Block.
func FromFS(bfs blockFS) Block {
	return Block{
		Header:       bfs.Header,
		Transactions: bfs.Trans,
	}
}

// ErrChainForked is returned when a peer's block is more than one block
// ahead of our tip, meaning a fork happened and a resync is required
// instead of a simple append.
var ErrChainForked = errors.New("database: chain forked, resync required")

func (bh BlockHeader) String() string {
	return fmt.Sprintf("blk[%d]: %s", bh.Index, bh.PreviousHash)
}
