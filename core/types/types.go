package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// AddressLength is the expected length of an account address
	AddressLength = 20

	// PercDivisor is the denominator for all rate parameters (reward cut,
	// fee share, slash fractions). A rate of PercDivisor means 100%.
	PercDivisor = 1000000
)

// Address represents 20-byte account address
type Address [AddressLength]byte

// BytesToAddress converts given byte slice to Address
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts given hex string with Vx prefix to Address
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s, "Vx"))
}

// StringToAddress converts given string with Vx prefix to Address
func StringToAddress(s string) Address {
	return HexToAddress(s)
}

// SetBytes sets the address to the value of b.
// If b is larger than len(a) it will panic.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Bytes returns address bytes
func (a Address) Bytes() []byte { return a[:] }

// String returns Vx-prefixed hex representation of the address
func (a Address) String() string {
	return "Vx" + hex.EncodeToString(a[:])
}

// Compare compares addresses as big-endian unsigned integers
func (a Address) Compare(a2 Address) int {
	return bytes.Compare(a.Bytes(), a2.Bytes())
}

// IsZero reports whether the address is the zero address
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalJSON marshals address to json
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%s\"", a.String())), nil
}

// UnmarshalJSON unmarshals address from json
func (a *Address) UnmarshalJSON(input []byte) error {
	s := string(input)
	if len(s) < 4 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid address %s", s)
	}
	a.SetBytes(fromHex(s[1:len(s)-1], "Vx"))
	return nil
}

func fromHex(s, prefix string) []byte {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		s = s[len(prefix):]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid hex string %q: %s", s, err))
	}
	return b
}

// TranscoderStatus represents the registration state of a transcoder
type TranscoderStatus byte

const (
	// TranscoderNotRegistered means the account never entered the ranked
	// pool or its delegator withdraw round has passed
	TranscoderNotRegistered TranscoderStatus = iota
	// TranscoderRegistered means the account is currently a ranked-pool member
	TranscoderRegistered
	// TranscoderResigned means the account left (or was slashed out of) the
	// pool and its delegators are still locked
	TranscoderResigned
)

func (s TranscoderStatus) String() string {
	switch s {
	case TranscoderRegistered:
		return "Registered"
	case TranscoderResigned:
		return "Resigned"
	default:
		return "NotRegistered"
	}
}

// DelegatorStatus represents the bonding state of a delegator
type DelegatorStatus byte

const (
	// DelegatorUnbonded means the account has no active stake commitment
	DelegatorUnbonded DelegatorStatus = iota
	// DelegatorPending means the delegation starts at a future round
	DelegatorPending
	// DelegatorBonded means the delegation is in force
	DelegatorBonded
	// DelegatorUnbonding means the account is in its withdraw cooldown,
	// either by its own unbond or inherited from its delegate
	DelegatorUnbonding
)

func (s DelegatorStatus) String() string {
	switch s {
	case DelegatorPending:
		return "Pending"
	case DelegatorBonded:
		return "Bonded"
	case DelegatorUnbonding:
		return "Unbonding"
	default:
		return "Unbonded"
	}
}

// Big0 is a reusable zero value for comparisons
var Big0 = big.NewInt(0)
