package signature_test

import (
	"testing"

	"github.com/chainforge/ledger/foundation/blockchain/signature"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestSignVerify(t *testing.T) {
	t.Log("Given the need to sign and verify a digest.")
	{
		t.Logf("\tTest 0:\tWhen handling a single signed digest.")
		{
			privateKey, err := signature.GenerateKeyPair()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a keypair: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to generate a keypair.", success)

			digest := signature.HashBytes([]byte("some transaction payload"))

			sig, err := signature.Sign(privateKey, digest[:])
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign a digest: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign a digest.", success)

			if !signature.Verify(&privateKey.PublicKey, digest[:], sig) {
				t.Fatalf("\t%s\tTest 0:\tShould verify a signature made by the matching key.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould verify a signature made by the matching key.", success)

			other, err := signature.GenerateKeyPair()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a second keypair: %s", failed, err)
			}

			if signature.Verify(&other.PublicKey, digest[:], sig) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a signature checked against the wrong key.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a signature checked against the wrong key.", success)
		}
	}
}

func TestAddress(t *testing.T) {
	t.Log("Given the need to derive an address from a public key.")
	{
		t.Logf("\tTest 0:\tWhen deriving an address twice from the same key.")
		{
			privateKey, err := signature.GenerateKeyPair()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a keypair: %s", failed, err)
			}

			addr1, err := signature.Address(&privateKey.PublicKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to derive an address: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to derive an address: %s", success, addr1)

			addr2, _ := signature.Address(&privateKey.PublicKey)
			if addr1 != addr2 {
				t.Fatalf("\t%s\tTest 0:\tShould derive the same address deterministically.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould derive the same address deterministically.", success)

			if len(addr1) != 42 || addr1[:2] != "0x" {
				t.Fatalf("\t%s\tTest 0:\tShould produce a 0x-prefixed 40 hex char address, got %q.", failed, addr1)
			}
			t.Logf("\t%s\tTest 0:\tShould produce a 0x-prefixed 40 hex char address.", success)

			pubBytes := signature.PublicKeyBytes(&privateKey.PublicKey)
			addr3, err := signature.AddressFromPublicKeyBytes(pubBytes)
			if err != nil || addr3 != addr1 {
				t.Fatalf("\t%s\tTest 0:\tShould derive the same address from raw public key bytes.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould derive the same address from raw public key bytes.", success)
		}
	}
}
