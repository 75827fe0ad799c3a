// Package types defines the core value types of the Hubble rollup:
// 32-byte roots and commitments, 20-byte identities, and the fixed-width
// BLS public key and signature encodings of the MinPk scheme.
package types

import (
	"encoding/hex"
	"fmt"
)

const (
	HashLength      = 32
	AddressLength   = 20
	PubkeyLength    = 48 // compressed G1
	SignatureLength = 96 // compressed G2
)

// Hash represents the 32-byte Keccak256 hash of data: state roots, account
// roots, transaction commitments and merkle nodes are all of this type.
type Hash [HashLength]byte

// Address represents the 20-byte identity of an actor: the coordinator, a
// challenger, or a stake recipient.
type Address [AddressLength]byte

// Pubkey is a compressed BLS12-381 G1 public key.
type Pubkey [PubkeyLength]byte

// Signature is a compressed BLS12-381 G2 signature, possibly an aggregate.
type Signature [SignatureLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros. A zero hash stands for "no
// commitment" throughout the ledger (deposit batches have a zero TxCommit,
// transaction batches a zero deposit root).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// BytesToAddress converts bytes to Address, left-padding if shorter than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the hex string representation of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// SetBytes sets the address from a byte slice.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero returns whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// BytesToPubkey converts bytes to Pubkey, left-padding if shorter than 48 bytes.
func BytesToPubkey(b []byte) Pubkey {
	var p Pubkey
	if len(b) > PubkeyLength {
		b = b[len(b)-PubkeyLength:]
	}
	copy(p[PubkeyLength-len(b):], b)
	return p
}

// Bytes returns the byte representation of the public key.
func (p Pubkey) Bytes() []byte { return p[:] }

// IsZero returns whether the public key is all zeros.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// BytesToSignature converts bytes to Signature, left-padding if shorter than
// 96 bytes.
func BytesToSignature(b []byte) Signature {
	var s Signature
	if len(b) > SignatureLength {
		b = b[len(b)-SignatureLength:]
	}
	copy(s[SignatureLength-len(b):], b)
	return s
}

// Bytes returns the byte representation of the signature.
func (s Signature) Bytes() []byte { return s[:] }

// IsZero returns whether the signature is all zeros. Deposit batches carry a
// zero signature.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// fromHex decodes a hex string, stripping an optional "0x" prefix.
func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
