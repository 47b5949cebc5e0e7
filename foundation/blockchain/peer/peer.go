// Package peer maintains per-node knowledge of its peers: who they are,
// how to reach them, and the set of currently known peers.
package peer

import (
	"sync"
)

// Peer identifies a remote node by id and its dialable address.
type Peer struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

// New constructs a Peer.
func New(nodeID, address string) Peer {
	return Peer{NodeID: nodeID, Address: address}
}

// Match reports whether p is the peer identified by nodeID.
func (p Peer) Match(nodeID string) bool {
	return p.NodeID == nodeID
}

// =============================================================================

// Status is a peer's self-reported chain position, exchanged during
// handshake and sync.
type Status struct {
	NodeID      string `json:"node_id"`
	ChainHeight uint64 `json:"chain_height"`
	LatestHash  string `json:"latest_hash"`
}

// =============================================================================

// Set is a thread-safe collection of known peers, keyed by node id.
type Set struct {
	mu  sync.RWMutex
	set map[string]Peer
}

// NewSet constructs an empty peer set.
func NewSet() *Set {
	return &Set{set: make(map[string]Peer)}
}

// Add registers peer, returning true if it was not already known.
func (s *Set) Add(peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.set[peer.NodeID]; exists {
		return false
	}

	s.set[peer.NodeID] = peer
	return true
}

// Remove drops the peer identified by nodeID.
func (s *Set) Remove(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.set, nodeID)
}

// Get returns the peer identified by nodeID, if known.
func (s *Set) Get(nodeID string) (Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.set[nodeID]
	return p, ok
}

// Copy returns every known peer except self, the set a broadcast or
// handshake response hands out.
func (s *Set) Copy(self string) []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Peer, 0, len(s.set))
	for id, p := range s.set {
		if id != self {
			peers = append(peers, p)
		}
	}

	return peers
}

// All returns every known peer.
func (s *Set) All() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Peer, 0, len(s.set))
	for _, p := range s.set {
		peers = append(peers, p)
	}

	return peers
}

// Len returns the number of known peers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.set)
}
