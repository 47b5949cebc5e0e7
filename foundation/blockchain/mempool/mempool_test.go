package mempool_test

import (
	"fmt"
	"testing"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/mempool"
)

const (
	success = "✓"
	failed  = "✗"
)

func txWithID(id string) database.SignedTx {
	return database.SignedTx{ID: id}
}

func TestFIFOOrder(t *testing.T) {
	t.Log("Given the need to drain pending transactions in FIFO order.")
	{
		t.Logf("\tTest 0:\tWhen three transactions arrive in sequence.")
		{
			mp := mempool.New()
			mp.Add(txWithID("1"))
			mp.Add(txWithID("2"))
			mp.Add(txWithID("3"))

			if got := mp.Size(); got != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould report the right size, got %d want 3.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould report the right size.", success)

			drained := mp.Drain(2)
			if len(drained) != 2 || drained[0].ID != "1" || drained[1].ID != "2" {
				t.Fatalf("\t%s\tTest 0:\tShould drain the oldest entries first.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould drain the oldest entries first.", success)

			if got := mp.Size(); got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the remaining entry, got size %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the remaining entry pending.", success)
		}
	}
}

func TestContainsAndRemove(t *testing.T) {
	t.Log("Given the need to track and drop pending transactions by id.")
	{
		t.Logf("\tTest 0:\tWhen a known transaction is removed.")
		{
			mp := mempool.New()
			mp.Add(txWithID("a"))
			mp.Add(txWithID("b"))

			if !mp.Contains("a") {
				t.Fatalf("\t%s\tTest 0:\tShould find a pending transaction by id.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould find a pending transaction by id.", success)

			mp.Remove([]string{"a"})

			if mp.Contains("a") {
				t.Fatalf("\t%s\tTest 0:\tShould no longer find a removed transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould no longer find a removed transaction.", success)

			if !mp.Contains("b") {
				t.Fatalf("\t%s\tTest 0:\tShould leave unrelated transactions untouched.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave unrelated transactions untouched.", success)
		}
	}
}

func TestEviction(t *testing.T) {
	t.Log("Given the need to bound mempool size.")
	{
		t.Logf("\tTest 0:\tWhen the pool is filled past capacity.")
		{
			mp := mempool.New()
			for i := 0; i < mempool.MaxSize; i++ {
				mp.Add(txWithID(fmt.Sprintf("tx-%d", i)))
			}

			mp.Add(txWithID("overflow"))

			want := mempool.MaxSize - mempool.EvictSize + 1
			if got := mp.Size(); got != want {
				t.Fatalf("\t%s\tTest 0:\tShould evict the oldest EvictSize entries, got %d want %d.", failed, got, want)
			}
			t.Logf("\t%s\tTest 0:\tShould evict the oldest EvictSize entries on overflow.", success)

			if mp.Contains("tx-0") {
				t.Fatalf("\t%s\tTest 0:\tShould have evicted the oldest entry.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have evicted the oldest entry.", success)

			if !mp.Contains("overflow") {
				t.Fatalf("\t%s\tTest 0:\tShould keep the newly added entry.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the newly added entry.", success)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Log("Given the need to clear the mempool.")
	{
		t.Logf("\tTest 0:\tWhen truncating a non-empty pool.")
		{
			mp := mempool.New()
			mp.Add(txWithID("1"))
			mp.Truncate()

			if got := mp.Size(); got != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the pool empty, got size %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the pool empty.", success)
		}
	}
}
