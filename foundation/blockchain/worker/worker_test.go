package worker_test

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/genesis"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
	"github.com/chainforge/ledger/foundation/blockchain/signature"
	"github.com/chainforge/ledger/foundation/blockchain/state"
	"github.com/chainforge/ledger/foundation/blockchain/worker"
)

const (
	success = "✓"
	failed  = "✗"
)

const bob = database.AccountID("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

// testNode bundles a state, its funded private key, and the worker driving
// it, so each test only has to build the transactions it needs.
type testNode struct {
	state      *state.State
	worker     *worker.Worker
	privateKey *ecdsa.PrivateKey
	from       database.AccountID
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()

	privateKey, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a keypair: %s", failed, err)
	}

	from, err := signature.Address(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to derive an address: %s", failed, err)
	}

	gen := genesis.Default()
	gen.Balances[from] = 1_000

	s, err := state.New(state.Config{
		NodeID:     "node-a",
		Genesis:    gen,
		KnownPeers: peer.NewSet(),
		Log:        zap.NewNop().Sugar(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct state: %s", failed, err)
	}

	w := worker.Run(s, nil, nil)

	return &testNode{state: s, worker: w, privateKey: privateKey, from: database.AccountID(from)}
}

func (n *testNode) signedTx(t *testing.T, to database.AccountID, amount, gasPrice, nonce uint64) database.SignedTx {
	t.Helper()

	tx := database.Tx{
		From:      n.from,
		To:        to,
		Amount:    amount,
		GasPrice:  gasPrice,
		Nonce:     nonce,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		PublicKey: signature.PublicKeyBytes(&n.privateKey.PublicKey),
	}

	signed, err := tx.Sign(n.privateKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a transaction: %s", failed, err)
	}

	return signed
}

func waitForHeight(n *testNode, height uint64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n.state.ChainHeight() >= height {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestSignalStartMiningMinesPendingTx(t *testing.T) {
	t.Log("Given the need for a background worker to mine a block once signalled.")
	{
		t.Logf("\tTest 0:\tWhen a transaction is pending and SignalStartMining fires.")
		{
			n := newTestNode(t)
			defer n.worker.Shutdown()

			tx := n.signedTx(t, bob, 10, 1, 0)
			if err := n.state.AddTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the transaction into the mempool: %s", failed, err)
			}

			n.worker.SignalStartMining()

			if !waitForHeight(n, 2, 2*time.Second) {
				t.Fatalf("\t%s\tTest 0:\tShould mine a block once signalled.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould mine a block once signalled.", success)

			if n.state.GetBalance(bob) != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould apply the mined transaction, got balance %d.", failed, n.state.GetBalance(bob))
			}
			t.Logf("\t%s\tTest 0:\tShould apply the mined transaction to the ledger.", success)
		}
	}
}

func TestSignalCancelMiningWithNoRunInFlight(t *testing.T) {
	t.Log("Given the need for SignalCancelMining to be safe with no mining operation running.")
	{
		t.Logf("\tTest 0:\tWhen no mining operation is currently in flight.")
		{
			n := newTestNode(t)
			defer n.worker.Shutdown()

			done := n.worker.SignalCancelMining()

			waited := make(chan struct{})
			go func() {
				done()
				close(waited)
			}()

			select {
			case <-waited:
				t.Logf("\t%s\tTest 0:\tShould return immediately with no mining in flight.", success)
			case <-time.After(time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould not block when there is nothing to cancel.", failed)
			}
		}
	}
}

func TestShutdownStopsBackgroundGoroutines(t *testing.T) {
	t.Log("Given the need to cleanly stop every background goroutine on Shutdown.")
	{
		t.Logf("\tTest 0:\tWhen Shutdown is called on a freshly started worker.")
		{
			n := newTestNode(t)

			done := make(chan struct{})
			go func() {
				n.worker.Shutdown()
				close(done)
			}()

			select {
			case <-done:
				t.Logf("\t%s\tTest 0:\tShould return once every goroutine has exited.", success)
			case <-time.After(2 * time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould not hang waiting for goroutines to exit.", failed)
			}
		}
	}
}
