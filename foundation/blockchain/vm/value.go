package vm

import (
	"fmt"

	"github.com/chainforge/ledger/foundation/blockchain/database"
)

// Kind tags the dynamic type carried by a Value.
type Kind int

// The value kinds a VM stack slot may hold.
const (
	KindInteger Kind = iota
	KindString
	KindBoolean
	KindAddress
	KindBytes
)

func (k Kind) String() string {
	names := [...]string{"integer", "string", "boolean", "address", "bytes"}
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown"
	}
	return names[k]
}

// Value is a tagged stack/storage slot. Only the field matching Kind is
// meaningful; the rest are zero.
type Value struct {
	Kind Kind               `json:"kind"`
	Int  int64              `json:"int,omitempty"`
	Str  string             `json:"str,omitempty"`
	Bool bool               `json:"bool,omitempty"`
	Addr database.AccountID `json:"addr,omitempty"`
	Byte []byte             `json:"bytes,omitempty"`
}

// Int64 returns an integer Value.
func Int64(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBoolean, Bool: v} }

// Address returns an address Value.
func Address(v database.AccountID) Value { return Value{Kind: KindAddress, Addr: v} }

// Bytes returns a bytes Value.
func Bytes(v []byte) Value { return Value{Kind: KindBytes, Byte: v} }

// TypeMismatchError reports a Value accessed as the wrong kind.
type TypeMismatchError struct {
	Want, Got Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("vm: type mismatch: want %s, got %s", e.Want, e.Got)
}

// AsInteger returns v's integer payload, or an error if v is not an integer.
func (v Value) AsInteger() (int64, error) {
	if v.Kind != KindInteger {
		return 0, &TypeMismatchError{Want: KindInteger, Got: v.Kind}
	}
	return v.Int, nil
}

// AsString returns v's string payload, or an error if v is not a string.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", &TypeMismatchError{Want: KindString, Got: v.Kind}
	}
	return v.Str, nil
}

// AsBoolean returns v's boolean payload, or an error if v is not a boolean.
func (v Value) AsBoolean() (bool, error) {
	if v.Kind != KindBoolean {
		return false, &TypeMismatchError{Want: KindBoolean, Got: v.Kind}
	}
	return v.Bool, nil
}

// AsAddress returns v's address payload, or an error if v is not an address.
func (v Value) AsAddress() (database.AccountID, error) {
	if v.Kind != KindAddress {
		return "", &TypeMismatchError{Want: KindAddress, Got: v.Kind}
	}
	return v.Addr, nil
}

// AsBytes returns v's byte payload, or an error if v is not bytes.
func (v Value) AsBytes() ([]byte, error) {
	if v.Kind != KindBytes {
		return nil, &TypeMismatchError{Want: KindBytes, Got: v.Kind}
	}
	return v.Byte, nil
}

// Truthy reports whether v is considered true by ASSERT: a nonzero
// integer, a non-empty string, true, a non-empty address, or non-empty
// bytes.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInteger:
		return v.Int != 0
	case KindString:
		return v.Str != ""
	case KindBoolean:
		return v.Bool
	case KindAddress:
		return v.Addr != ""
	case KindBytes:
		return len(v.Byte) > 0
	default:
		return false
	}
}
