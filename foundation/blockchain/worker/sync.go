package worker

import (
	"errors"
	"time"

	"github.com/chainforge/ledger/foundation/blockchain/database"
)

const syncQueryTimeout = 2 * time.Second

// syncOperations runs the periodic sync monitor: every syncInterval, poll
// each known peer's chain height, and pull the suffix from whichever peer
// is strictly ahead.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: started")
	defer w.evHandler("worker: syncOperations: completed")

	for {
		select {
		case <-w.ticker.C:
			w.runSyncOperation()
		case <-w.shut:
			return
		}
	}
}

func (w *Worker) runSyncOperation() {
	if w.gossip == nil {
		return
	}

	localHeight := w.state.ChainHeight()

	for _, p := range w.state.KnownPeers().All() {
		status, err := w.gossip.QuerySyncStatus(p.NodeID, syncQueryTimeout)
		if err != nil {
			continue
		}

		if status.ChainHeight <= localHeight {
			continue
		}

		w.evHandler("worker: runSyncOperation: peer[%s] ahead: local[%d] peer[%d]", p.NodeID, localHeight, status.ChainHeight)

		blocks, err := w.gossip.QueryChainSuffix(p.NodeID, localHeight+1, syncQueryTimeout)
		if err != nil {
			w.evHandler("worker: runSyncOperation: peer[%s]: %s", p.NodeID, err)
			continue
		}

		if err := w.applySuffix(blocks); err != nil {
			w.evHandler("worker: runSyncOperation: peer[%s]: sync aborted: %s", p.NodeID, err)
			continue
		}

		localHeight = w.state.ChainHeight()
	}
}

var errNoBlocks = errors.New("worker: peer returned no blocks")

func (w *Worker) applySuffix(blocks []database.Block) error {
	if len(blocks) == 0 {
		return errNoBlocks
	}
	return w.state.ApplySyncSuffix(blocks)
}
