package worker

import (
	"github.com/chainforge/ledger/foundation/blockchain/gossip"
)

// shareTxOperations relays queued transactions to peers, one at a time,
// until shutdown.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: started")
	defer w.evHandler("worker: shareTxOperations: completed")

	for {
		select {
		case tx := <-w.txShare:
			if w.gossip != nil {
				w.gossip.BroadcastTransaction(gossip.NewTransactionPayload{Tx: tx})
			}
		case <-w.shut:
			return
		}
	}
}
