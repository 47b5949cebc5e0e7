package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainforge/ledger/foundation/blockchain/signature"
)

// Tx is the transactional information between two parties, before a
// signature has been attached.
type Tx struct {
	From      AccountID `json:"from" validate:"required"`
	To        AccountID `json:"to" validate:"required"`
	Amount    uint64    `json:"amount"`
	GasPrice  uint64    `json:"gas_price"`
	Nonce     uint64    `json:"nonce"`
	Timestamp string    `json:"timestamp" validate:"required"`
	PublicKey []byte    `json:"public_key" validate:"required"`

	// Contract fields are optional; ContractAddress is set by the node on
	// deployment, the rest are supplied by the caller.
	ContractAddress      AccountID `json:"contract_address,omitempty"`
	IsContractDeployment bool      `json:"is_contract_deployment,omitempty"`
	ContractBytecode     []byte    `json:"contract_bytecode,omitempty"`
	ContractName         string    `json:"contract_name,omitempty"`
	ContractLanguage     string    `json:"contract_language,omitempty"`
	Data                 []byte    `json:"data,omitempty"`
}

// idPayload is the exact, fixed-order field set that transaction_id and the
// signature digest are computed over. Field order here is the canonical
// encoding; it must never change once transactions have been signed
// against it.
type idPayload struct {
	From      AccountID `json:"from"`
	To        AccountID `json:"to"`
	Amount    uint64    `json:"amount"`
	GasPrice  uint64    `json:"gas_price"`
	Timestamp string    `json:"timestamp"`
	PublicKey []byte    `json:"public_key"`
}

func (tx Tx) digest() ([32]byte, error) {
	payload := idPayload{
		From:      tx.From,
		To:        tx.To,
		Amount:    tx.Amount,
		GasPrice:  tx.GasPrice,
		Timestamp: tx.Timestamp,
		PublicKey: tx.PublicKey,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return [32]byte{}, err
	}

	return signature.HashBytes(data), nil
}

// ComputeID returns the transaction id: the hash of the canonical encoding
// of tx excluding any signature.
func (tx Tx) ComputeID() (string, error) {
	digest, err := tx.digest()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(digest[:]), nil
}

// Sign produces a SignedTx by signing tx's id digest with privateKey. The
// public key embedded on tx must correspond to privateKey or the resulting
// signature will fail verification.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	digest, err := tx.digest()
	if err != nil {
		return SignedTx{}, err
	}

	sig, err := signature.Sign(privateKey, digest[:])
	if err != nil {
		return SignedTx{}, err
	}

	return SignedTx{
		Tx:        tx,
		ID:        hex.EncodeToString(digest[:]),
		Signature: sig,
	}, nil
}

// =============================================================================

// SignedTx is a signed transaction, the form clients submit and the form
// recorded in a block.
type SignedTx struct {
	Tx
	ID        string `json:"transaction_id" validate:"required"`
	Signature []byte `json:"signature" validate:"required"`
}

// Validate performs the structural and cryptographic checks a signed
// transaction must pass on its own, without any ledger context: the
// recomputed id must match the carried id, the signature must be both
// non-empty and itself verify against the embedded public key, and the
// claimed From must be the address that key actually derives to.
func (tx SignedTx) Validate() error {
	if tx.From == "" || tx.To == "" {
		return errors.New("invalid transaction: empty from/to")
	}

	if tx.From == tx.To {
		return errors.New("invalid transaction: from and to are the same account")
	}

	if !tx.From.IsAccountID() || !tx.To.IsAccountID() {
		return errors.New("invalid transaction: malformed account id")
	}

	digest, err := tx.Tx.digest()
	if err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	if hex.EncodeToString(digest[:]) != tx.ID {
		return errors.New("invalid transaction: id does not match recomputed hash")
	}

	if len(tx.Signature) == 0 {
		return signature.ErrInvalidSignature
	}

	pub, err := signature.ParsePublicKey(tx.PublicKey)
	if err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	if !signature.Verify(pub, digest[:], tx.Signature) {
		return signature.ErrInvalidSignature
	}

	addr, err := signature.Address(pub)
	if err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	if tx.From != AccountID(addr) {
		return errors.New("invalid transaction: from does not match the address derived from public_key")
	}

	return nil
}

// FromAddress derives the sending address from the transaction's own
// embedded public key.
func (tx SignedTx) FromAddress() (AccountID, error) {
	pub, err := signature.ParsePublicKey(tx.PublicKey)
	if err != nil {
		return "", err
	}

	addr, err := signature.Address(pub)
	if err != nil {
		return "", err
	}

	return AccountID(addr), nil
}

// Hash implements merkle.Hashable, hashing the full signed transaction
// (including its signature) for inclusion in the transaction merkle tree.
func (tx SignedTx) Hash() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	sum := signature.HashBytes(data)
	return sum[:], nil
}

// Equals implements merkle.Hashable.
func (tx SignedTx) Equals(other SignedTx) bool {
	return tx.ID == other.ID
}

// String implements fmt.Stringer for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%d", tx.From, tx.Nonce)
}

