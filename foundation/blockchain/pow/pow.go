// Package pow implements the proof-of-work puzzle miners solve to produce a
// new block and validators recheck to accept one.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
)

// baseDifficulty is the minimum number of leading hex zeros ever required,
// regardless of chain length.
const baseDifficulty = 4

// retargetChainLength is the chain length below which difficulty stays
// pinned at baseDifficulty.
const retargetChainLength = 10

// EventHandler is called with progress messages during a search; it may be
// nil.
type EventHandler func(v string, args ...any)

// Difficulty returns the number of leading zero hex characters a solved
// hash must have, given the current chain length.
func Difficulty(chainLength int) int {
	if chainLength < retargetChainLength {
		return baseDifficulty
	}

	return baseDifficulty + chainLength/100
}

// Digest computes the SHA-256 hash of the proof-of-work input for a
// candidate proof: sha256(toString(proof² - previousProof² + index) || data).
func Digest(previousProof, proof uint64, index uint64, data []byte) []byte {
	calc := new(big.Int).Sub(
		new(big.Int).Mul(new(big.Int).SetUint64(proof), new(big.Int).SetUint64(proof)),
		new(big.Int).Mul(new(big.Int).SetUint64(previousProof), new(big.Int).SetUint64(previousProof)),
	)
	calc.Add(calc, new(big.Int).SetUint64(index))

	input := append([]byte(calc.String()), data...)
	sum := sha256.Sum256(input)
	return sum[:]
}

// DigestHex is Digest, hex-encoded.
func DigestHex(previousProof, proof uint64, index uint64, data []byte) string {
	return hex.EncodeToString(Digest(previousProof, proof, index, data))
}

// IsSolved reports whether hashHex has at least difficulty leading '0' hex
// characters.
func IsSolved(hashHex string, difficulty int) bool {
	if difficulty < baseDifficulty {
		difficulty = baseDifficulty
	}

	if len(hashHex) < difficulty {
		return false
	}

	for i := 0; i < difficulty; i++ {
		if hashHex[i] != '0' {
			return false
		}
	}

	return true
}

// ErrCancelled is returned when the search context is cancelled before a
// solution is found.
var ErrCancelled = errors.New("pow: search cancelled")

// FindNonce searches, starting at 0 and incrementing by 1, for the first
// proof whose digest satisfies IsSolved at the given difficulty.
func FindNonce(ctx context.Context, previousProof, index uint64, data []byte, difficulty int, ev EventHandler) (uint64, string, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("pow: FindNonce: started: index[%d] difficulty[%d]", index, difficulty)
	defer ev("pow: FindNonce: completed: index[%d]", index)

	var proof uint64
	for {
		if ctx.Err() != nil {
			return 0, "", ErrCancelled
		}

		hashHex := DigestHex(previousProof, proof, index, data)
		if IsSolved(hashHex, difficulty) {
			ev("pow: FindNonce: solved: index[%d] proof[%s] hash[%s]", index, strconv.FormatUint(proof, 10), hashHex)
			return proof, hashHex, nil
		}

		proof++
	}
}
