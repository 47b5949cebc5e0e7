package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chainforge/ledger/foundation/blockchain/gossip"
	"github.com/chainforge/ledger/foundation/blockchain/pow"
)

func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: started")
	defer w.evHandler("worker: miningOperations: completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case wait := <-w.cancelMining:
			// No mining operation is running, so there is nothing to wait for.
			close(wait)
		case <-w.shut:
			return
		}
	}
}

// runMiningOperation mines at most one block, respecting a cancellation
// requested through SignalCancelMining while the PoW search is in
// flight.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: started")
	defer w.evHandler("worker: runMiningOperation: completed")

	if w.state.MempoolSize() == 0 {
		w.evHandler("worker: runMiningOperation: no pending transactions")
		return
	}

	// Drain any stale cancel signal so a leftover from a previous run
	// doesn't immediately abort this one.
	select {
	case wait := <-w.cancelMining:
		close(wait)
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)

	var waitCh chan struct{}
	go func() {
		defer wg.Done()
		select {
		case waitCh = <-w.cancelMining:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	block, err := w.state.MineNewBlock(ctx, maxMineBatch)
	w.evHandler("worker: runMiningOperation: duration[%v]", time.Since(start))

	cancel()
	wg.Wait()
	if waitCh != nil {
		close(waitCh)
	}

	if err != nil {
		switch {
		case errors.Is(err, pow.ErrCancelled):
			w.evHandler("worker: runMiningOperation: cancelled")
		default:
			w.evHandler("worker: runMiningOperation: error: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: mined block[%d]", block.Header.Index)

	if w.gossip != nil {
		w.gossip.BroadcastBlock(gossip.NewBlockPayload{Block: block})
	}

	if w.state.MempoolSize() > 0 {
		w.SignalStartMining()
	}
}
