package merkle_test

import (
	"crypto/sha256"
	"testing"

	"github.com/chainforge/ledger/foundation/blockchain/merkle"
)

const (
	success = "✓"
	failed  = "✗"
)

type leaf string

func (l leaf) Hash() ([]byte, error) {
	sum := sha256.Sum256([]byte(l))
	return sum[:], nil
}

func (l leaf) Equals(other leaf) bool {
	return l == other
}

func TestTreeEvenOdd(t *testing.T) {
	type table struct {
		name   string
		values []leaf
	}

	tt := []table{
		{name: "even", values: []leaf{"a", "b", "c", "d"}},
		{name: "odd", values: []leaf{"a", "b", "c"}},
		{name: "single", values: []leaf{"a"}},
	}

	t.Log("Given the need to build a merkle tree over a set of values.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s-sized set of values.", testID, tst.name)
			{
				f := func(t *testing.T) {
					tree, err := merkle.NewTree(tst.values)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to build a tree: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to build a tree.", success, testID)

					if err := tree.Verify(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould verify its own root: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould verify its own root.", success, testID)

					got := tree.Values()
					if len(got) != len(tst.values) {
						t.Fatalf("\t%s\tTest %d:\tShould return exactly the original values, got %d want %d.", failed, testID, len(got), len(tst.values))
					}
					for i := range got {
						if got[i] != tst.values[i] {
							t.Fatalf("\t%s\tTest %d:\tShould preserve value order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould return exactly the original values in order.", success, testID)

					if tst.name == "odd" && len(tree.Leafs)%2 != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould duplicate the last leaf to balance an odd set.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould have an even leaf count internally.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestTreeEmpty(t *testing.T) {
	t.Log("Given the need to reject construction over an empty set.")
	{
		t.Logf("\tTest 0:\tWhen handling an empty value set.")
		{
			if _, err := merkle.NewTree([]leaf{}); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject an empty tree.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject an empty tree.", success)
		}
	}
}

func TestTreeTamperDetection(t *testing.T) {
	t.Log("Given the need to detect a tampered tree.")
	{
		t.Logf("\tTest 0:\tWhen a leaf's value is swapped after construction.")
		{
			tree, err := merkle.NewTree([]leaf{"a", "b", "c", "d"})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to build a tree: %s", failed, err)
			}

			tree.Leafs[0].Value = "tampered"

			if err := tree.Verify(); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould detect a tampered leaf.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould detect a tampered leaf.", success)
		}
	}
}
