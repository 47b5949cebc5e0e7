// Package signature provides the crypto primitives required by the rest of
// the blockchain: hashing, keypair generation, signing, verification and
// address derivation. The signing capability is exposed behind a stated
// interface; the curve underneath (secp256k1, borrowed from
// go-ethereum/crypto) is an implementation detail the rest of the code
// never assumes.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash is the hash value used in place of a real hash when one has not
// yet been computed, e.g. the genesis block's previous hash.
const ZeroHash = "0"

// CryptoError reports malformed key or signature material.
type CryptoError struct {
	Reason string
}

func (e *CryptoError) Error() string {
	return "crypto: " + e.Reason
}

// =============================================================================

// Hash returns the lowercase hex-encoded SHA-256 digest of data. Two nodes
// hashing the same bytes must always agree, so this is the single hashing
// primitive used everywhere a hash is required.
func Hash(data []byte) string {
	sum := HashBytes(data)
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the raw 32-byte SHA-256 digest of data, the form
// required as input to Sign/Verify.
func HashBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// GenerateKeyPair creates a new private/public keypair over the curve the
// signing capability is built on.
func GenerateKeyPair() (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	return privateKey, nil
}

// Sign produces a signature over digest using privateKey. digest is expected
// to already be a 32-byte hash (the caller controls what was hashed and how).
func Sign(privateKey *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, &CryptoError{Reason: "nil private key"}
	}

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	return sig, nil
}

// Verify reports whether sig is a valid signature over digest produced by
// the private key matching publicKey.
func Verify(publicKey *ecdsa.PublicKey, digest []byte, sig []byte) bool {
	if publicKey == nil || len(sig) < crypto.RecoveryIDOffset {
		return false
	}

	pubBytes := crypto.FromECDSAPub(publicKey)
	return crypto.VerifySignature(pubBytes, digest, sig[:crypto.RecoveryIDOffset])
}

// PublicKeyBytes returns the uncompressed byte encoding of a public key,
// the canonical input to Address.
func PublicKeyBytes(publicKey *ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(publicKey)
}

// Address derives an account address from a public key. Per this project's
// design notes, this is a truncated SHA-256 of the public key bytes, not
// the conventional Keccak-256 used by Ethereum — the two must not be
// confused when comparing against Ethereum tooling.
func Address(publicKey *ecdsa.PublicKey) (string, error) {
	if publicKey == nil {
		return "", &CryptoError{Reason: "nil public key"}
	}

	h := Hash(PublicKeyBytes(publicKey))
	return "0x" + h[:40], nil
}

// AddressFromPublicKeyBytes derives an address directly from encoded public
// key bytes, for use when a node only has the raw bytes carried on a
// transaction rather than a parsed *ecdsa.PublicKey.
func AddressFromPublicKeyBytes(pubKeyBytes []byte) (string, error) {
	if len(pubKeyBytes) == 0 {
		return "", &CryptoError{Reason: "empty public key"}
	}

	h := Hash(pubKeyBytes)
	return "0x" + h[:40], nil
}

// ParsePublicKey decodes the uncompressed byte encoding of a public key.
func ParsePublicKey(pubKeyBytes []byte) (*ecdsa.PublicKey, error) {
	pub, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	return pub, nil
}

// ErrInvalidSignature is returned by higher layers when Verify fails; kept
// here so callers that only import signature can compare against it.
var ErrInvalidSignature = errors.New("invalid signature")
