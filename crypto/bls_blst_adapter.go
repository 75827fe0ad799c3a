//go:build blst

// Real BLS12-381 backend using the supranational/blst library.
//
// Implements the Verifier interface with the MinPk scheme used by Ethereum:
// public keys in G1 (48-byte compressed), signatures in G2 (96-byte
// compressed), DST BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_.
//
// Build with: go build -tags blst
package crypto

import (
	blst "github.com/supranational/blst/bindings/go"

	"github.com/Hubble-Project/hubble/core/types"
)

// blstDST is the domain separation tag for Ethereum BLS signatures.
var blstDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// BlstVerifier implements Verifier using the blst C library via CGO.
type BlstVerifier struct{}

var _ Verifier = (*BlstVerifier)(nil)

// IsWellFormed reports whether sig decompresses to a point in the G2 group.
func (v *BlstVerifier) IsWellFormed(sig types.Signature) bool {
	s := new(blst.P2Affine).Uncompress(sig[:])
	if s == nil {
		return false
	}
	return s.SigValidate(false)
}

// VerifyAggregate checks the aggregate signature where pubkeys[i] signed
// messages[i], with group and infinity checks on every input point.
func (v *BlstVerifier) VerifyAggregate(sig types.Signature, pubkeys []types.Pubkey, messages [][]byte) bool {
	n := len(pubkeys)
	if n == 0 || n != len(messages) {
		return false
	}

	s := new(blst.P2Affine).Uncompress(sig[:])
	if s == nil {
		return false
	}

	pks := make([]*blst.P1Affine, n)
	for i := range pubkeys {
		pks[i] = new(blst.P1Affine).Uncompress(pubkeys[i][:])
		if pks[i] == nil {
			return false
		}
	}

	msgs := make([]blst.Message, n)
	for i, m := range messages {
		msgs[i] = m
	}

	return s.AggregateVerify(true, pks, true, msgs, blstDST)
}

// MapToMessage derives the signed message bytes for a transaction slot; the
// hash-to-curve mapping onto G2 happens inside AggregateVerify.
func (v *BlstVerifier) MapToMessage(tx []byte) []byte {
	return Keccak256(BLSDomainTx, tx)
}
