package pow_test

import (
	"context"
	"testing"

	"github.com/chainforge/ledger/foundation/blockchain/pow"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestDifficultyRetargeting(t *testing.T) {
	type table struct {
		name        string
		chainLength int
		want        int
	}

	tt := []table{
		{name: "below retarget", chainLength: 1, want: 4},
		{name: "at retarget boundary", chainLength: 10, want: 4},
		{name: "well past retarget", chainLength: 250, want: 6},
	}

	t.Log("Given the need to compute difficulty from chain length.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a chain of length %d (%s).", testID, tst.chainLength, tst.name)
			{
				got := pow.Difficulty(tst.chainLength)
				if got != tst.want {
					t.Fatalf("\t%s\tTest %d:\tShould compute difficulty %d, got %d.", failed, testID, tst.want, got)
				}
				t.Logf("\t%s\tTest %d:\tShould compute difficulty %d.", success, testID, tst.want)
			}
		}
	}
}

func TestFindNonceSolves(t *testing.T) {
	t.Log("Given the need to find a proof satisfying the difficulty target.")
	{
		t.Logf("\tTest 0:\tWhen searching at the minimum difficulty.")
		{
			proof, hashHex, err := pow.FindNonce(context.Background(), 0, 1, []byte("data"), pow.Difficulty(0), nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to find a solving proof: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to find a solving proof: %d", success, proof)

			if !pow.IsSolved(hashHex, pow.Difficulty(0)) {
				t.Fatalf("\t%s\tTest 0:\tShould report the returned hash as solved.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report the returned hash as solved.", success)

			recomputed := pow.DigestHex(0, proof, 1, []byte("data"))
			if recomputed != hashHex {
				t.Fatalf("\t%s\tTest 0:\tShould recompute the identical digest for the same inputs.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould recompute the identical digest for the same inputs.", success)
		}
	}
}

func TestFindNonceCancellation(t *testing.T) {
	t.Log("Given the need to abort a search when its context is cancelled.")
	{
		t.Logf("\tTest 0:\tWhen the context is already cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, _, err := pow.FindNonce(ctx, 0, 1, []byte("data"), 64, nil)
			if err != pow.ErrCancelled {
				t.Fatalf("\t%s\tTest 0:\tShould return ErrCancelled, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould return ErrCancelled.", success)
		}
	}
}
