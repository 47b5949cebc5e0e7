package rpc

import (
	"context"
	"encoding/json"
)

// getNetworkStats implements eth_getNetworkStats.
func getNetworkStats(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	return struct {
		ChainHeight  uint64 `json:"chain_height"`
		MempoolSize  int    `json:"mempool_size"`
		PeerCount    int    `json:"peer_count"`
		StateRoot    string `json:"state_root"`
		IsChainValid bool   `json:"is_chain_valid"`
	}{
		ChainHeight:  h.Node.ChainHeight(),
		MempoolSize:  h.Node.MempoolSize(),
		PeerCount:    h.Node.KnownPeers().Len(),
		StateRoot:    h.Node.StateRoot(),
		IsChainValid: h.Node.IsChainValid(),
	}, nil
}

// peerCount implements net_peerCount.
func peerCount(h Handlers, ctx context.Context, params json.RawMessage) (any, error) {
	return struct {
		Count int `json:"count"`
	}{
		Count: h.Node.KnownPeers().Len(),
	}, nil
}
