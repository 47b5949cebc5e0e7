package state

import (
	"github.com/chainforge/ledger/foundation/blockchain/contract"
	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/gossip"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
)

// NodeApi is the narrow capability handed to network-facing components
// (the JSON-RPC dispatcher, the gossip server) instead of the full
// mutable State. It exposes exactly the reads and the one write
// (AddTransaction) those components legitimately need, so giving an RPC
// handler or a gossip callback access to the node never also hands it
// the ledger's or chain's internal locking and mutation surface.
type NodeApi interface {
	GetBalance(addr database.AccountID) uint64
	GetNonce(addr database.AccountID) (uint64, bool)
	Snapshot() []database.Account
	StateRoot() string
	ChainHeight() uint64
	LatestBlock() (database.Block, error)
	BlockByIndex(index uint64) (database.Block, error)
	BlockByHash(hash string) (database.Block, error)
	IsChainValid() bool
	MempoolSize() int
	KnownPeers() *peer.Set
	AddTransaction(tx database.SignedTx) error
	ContractByAddress(address database.AccountID) (contract.Contract, error)
	ContractsByCreator(creator database.AccountID) []contract.Contract
}

var _ NodeApi = (*State)(nil)

// =============================================================================

// gossipAdapter implements gossip.Handler over a State, the bridge
// between the gossip server's view of the world and the node's actual
// ledger and chain.
type gossipAdapter struct {
	nodeID string
	state  *State
}

// NewGossipHandler builds a gossip.Handler backed by s.
func NewGossipHandler(nodeID string, s *State) gossip.Handler {
	return &gossipAdapter{nodeID: nodeID, state: s}
}

func (g *gossipAdapter) NodeID() string { return g.nodeID }

func (g *gossipAdapter) ChainHeight() uint64 { return g.state.ChainHeight() }

func (g *gossipAdapter) LatestHash() string {
	b, err := g.state.LatestBlock()
	if err != nil {
		return database.ZeroHash
	}
	return b.Hash()
}

func (g *gossipAdapter) KnownPeers() []peer.Peer {
	return g.state.KnownPeers().Copy(g.nodeID)
}

func (g *gossipAdapter) AcceptTransaction(payload gossip.NewTransactionPayload) bool {
	if err := g.state.AddTransaction(payload.Tx); err != nil {
		return false
	}
	return true
}

func (g *gossipAdapter) AcceptBlock(payload gossip.NewBlockPayload) bool {
	if err := g.state.ApplyPeerBlock(payload.Block); err != nil {
		return false
	}
	return true
}

func (g *gossipAdapter) ChainFrom(index uint64) []gossip.ResponseChainPayload {
	height := g.state.ChainHeight()
	if index == 0 {
		index = 1
	}

	var blocks []database.Block
	for i := index; i <= height; i++ {
		b, err := g.state.BlockByIndex(i)
		if err != nil {
			break
		}
		blocks = append(blocks, b)
	}

	if len(blocks) == 0 {
		return nil
	}

	return []gossip.ResponseChainPayload{{Blocks: blocks}}
}

func (g *gossipAdapter) StateSnapshot() gossip.StateSyncResponsePayload {
	return gossip.StateSyncResponsePayload{
		StateRoot:   g.state.StateRoot(),
		BlockHeight: g.state.ChainHeight(),
		Accounts:    g.state.Snapshot(),
	}
}
