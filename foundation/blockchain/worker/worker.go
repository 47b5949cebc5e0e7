// Package worker runs the node's background goroutines: mining,
// transaction relay, and the periodic sync monitor. It is the concrete
// implementation of the state.Worker interface: State only ever signals
// it through channels, never reaches into its internals.
package worker

import (
	"sync"
	"time"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/gossip"
	"github.com/chainforge/ledger/foundation/blockchain/state"
)

// syncInterval is how often the sync monitor polls peers for a taller
// chain, per spec.md's default.
const syncInterval = 5 * time.Second

// maxMineBatch is the largest number of transactions drained into a
// single mined block.
const maxMineBatch = 100

// maxTxShareBacklog bounds the transaction relay queue.
const maxTxShareBacklog = 1000

var _ state.Worker = (*Worker)(nil)

// Worker owns the goroutines backing one node's mining, relay, and sync.
type Worker struct {
	state  *state.State
	gossip *gossip.Server
	ticker *time.Ticker
	shut   chan struct{}
	wg     sync.WaitGroup

	startMining  chan bool
	cancelMining chan chan struct{}
	txShare      chan database.SignedTx

	evHandler state.EventHandler
}

// Run constructs a Worker, registers it with state as state.Worker, and
// starts its background goroutines. It blocks until every goroutine has
// confirmed it is running.
func Run(st *state.State, gs *gossip.Server, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		state:        st,
		gossip:       gs,
		ticker:       time.NewTicker(syncInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan chan struct{}, 1),
		txShare:      make(chan database.SignedTx, maxTxShareBacklog),
		evHandler:    evHandler,
	}

	st.Worker = &w

	operations := []func(){
		w.syncOperations,
		w.miningOperations,
		w.shareTxOperations,
	}

	started := make(chan struct{})
	w.wg.Add(len(operations))

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			started <- struct{}{}
			op()
		}(op)
	}

	for range operations {
		<-started
	}

	return &w
}

// Shutdown stops every background goroutine and waits for them to exit.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	w.SignalCancelMining()
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining requests a mining attempt. A pending signal already in
// the channel means one will happen soon regardless, so the send is
// best-effort.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
}

// SignalCancelMining asks any in-flight mining operation to abort, and
// returns a function the caller can invoke to block until it has. If no
// mining operation is running, the returned function returns immediately.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
		return func() { <-wait }
	default:
		close(wait)
		return func() { <-wait }
	}
}

// SignalShareTx queues tx for relay to peers.
func (w *Worker) SignalShareTx(tx database.SignedTx) {
	select {
	case w.txShare <- tx:
	default:
		w.evHandler("worker: SignalShareTx: backlog full, dropping tx[%s]", tx.ID)
	}
}

func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
