package gossip

import (
	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
)

// HandshakePayload is exchanged when two nodes first connect.
type HandshakePayload struct {
	NodeID      string `json:"node_id"`
	ListenAddr  string `json:"listen_addr"`
	ChainHeight uint64 `json:"chain_height"`
}

// NewTransactionPayload announces a transaction accepted into the
// sender's mempool.
type NewTransactionPayload struct {
	Tx database.SignedTx `json:"tx"`
}

// NewBlockPayload announces a block accepted onto the sender's chain.
type NewBlockPayload struct {
	Block database.Block `json:"block"`
}

// RequestChainPayload asks a peer for every block from FromIndex onward.
type RequestChainPayload struct {
	FromIndex uint64 `json:"from_index"`
}

// ResponseChainPayload answers a RequestChainPayload.
type ResponseChainPayload struct {
	Blocks []database.Block `json:"blocks"`
}

// SyncRequestPayload asks a peer to report its current chain height, the
// first step of the periodic sync monitor.
type SyncRequestPayload struct{}

// SyncResponsePayload reports the responder's chain height and latest
// block hash.
type SyncResponsePayload struct {
	ChainHeight uint64 `json:"chain_height"`
	LatestHash  string `json:"latest_hash"`
}

// PeerListPayload shares the sender's known peers.
type PeerListPayload struct {
	Peers []peer.Peer `json:"peers"`
}

// AckPayload is an empty acknowledgement.
type AckPayload struct{}

// StateSyncRequestPayload asks a peer for its account state snapshot.
type StateSyncRequestPayload struct{}

// StateSyncResponsePayload answers a StateSyncRequestPayload.
type StateSyncResponsePayload struct {
	StateRoot   string             `json:"state_root"`
	BlockHeight uint64             `json:"block_height"`
	Accounts    []database.Account `json:"accounts"`
}
