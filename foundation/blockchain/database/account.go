package database

import (
	"strings"
)

// AccountID represents an account address, "0x" followed by 40 hex
// characters, as produced by signature.Address.
type AccountID string

// IsAccountID reports whether a represents a well-formed address.
func (a AccountID) IsAccountID() bool {
	const addressLength = 20

	s := string(a)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	s = s[2:]

	if len(s) != 2*addressLength {
		return false
	}

	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}

	return true
}

// =============================================================================

// Account represents the ledger's view of a single address: its spendable
// balance and the nonce of the last transaction it sent.
type Account struct {
	AccountID AccountID `json:"account_id"`
	Balance   uint64    `json:"balance"`
	Nonce     uint64    `json:"nonce"`
}

// byAccount provides sort.Interface for a slice of accounts, ascending by
// address — the order the state root is computed over.
type byAccount []Account

func (ba byAccount) Len() int           { return len(ba) }
func (ba byAccount) Less(i, j int) bool { return ba[i].AccountID < ba[j].AccountID }
func (ba byAccount) Swap(i, j int)      { ba[i], ba[j] = ba[j], ba[i] }
