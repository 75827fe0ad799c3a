// BLS aggregate-signature surface for the dispute protocol.
//
// The rollup core never verifies signatures at submission time beyond a
// structural well-formedness check; full aggregate verification is deferred
// to dispute time. Two backends implement the Verifier interface:
//
//   - ReferenceVerifier: a deterministic keccak-based simulation, suitable
//     for tests and for running the core without CGO. Signatures produced by
//     its Sign/Aggregate helpers verify; anything else does not.
//   - BlstVerifier: the real MinPk BLS12-381 scheme via supranational/blst,
//     compiled with the "blst" build tag (see bls_blst_adapter.go).
//
// MinPk layout as used by Ethereum: public keys are 48-byte compressed G1
// points, signatures are 96-byte compressed G2 points.
package crypto

import (
	"github.com/Hubble-Project/hubble/core/types"
)

// BLSDomainTx is the domain separation prefix applied when mapping a raw
// transaction slot to the message that was signed over it.
var BLSDomainTx = []byte("HUBBLE_TX_BLS_MSG_")

// Verifier is the signature-verification contract consumed by the rollup
// core. Implementations must be safe for concurrent use.
type Verifier interface {
	// IsWellFormed reports whether sig is structurally plausible: the cheap
	// check performed at batch submission. It does not authenticate anything.
	IsWellFormed(sig types.Signature) bool

	// VerifyAggregate reports whether sig is a valid aggregate signature
	// where pubkeys[i] signed messages[i].
	VerifyAggregate(sig types.Signature, pubkeys []types.Pubkey, messages [][]byte) bool

	// MapToMessage derives the signed message for a raw transaction slot.
	MapToMessage(tx []byte) []byte
}

// ReferenceVerifier is the deterministic non-cryptographic backend. A
// simulated signature by pubkey pk over message m is keccak(pk || m); an
// aggregate is the byte-wise XOR of the individual parts, carried in the
// first 32 bytes of the 96-byte signature with a length tag in byte 32.
type ReferenceVerifier struct{}

var _ Verifier = (*ReferenceVerifier)(nil)

// IsWellFormed accepts any non-zero signature.
func (v *ReferenceVerifier) IsWellFormed(sig types.Signature) bool {
	return !sig.IsZero()
}

// VerifyAggregate recomputes the simulated aggregate and compares.
func (v *ReferenceVerifier) VerifyAggregate(sig types.Signature, pubkeys []types.Pubkey, messages [][]byte) bool {
	if len(pubkeys) == 0 || len(pubkeys) != len(messages) {
		return false
	}
	expect := aggregateParts(pubkeys, messages)
	if sig != expect {
		return false
	}
	return true
}

// MapToMessage prefixes the slot with the tx domain tag and hashes.
func (v *ReferenceVerifier) MapToMessage(tx []byte) []byte {
	return Keccak256(BLSDomainTx, tx)
}

// SignAggregate produces the simulated aggregate signature for the given
// signer set. Test helper: the reference scheme has no secret keys, the
// public key alone determines the signature.
func (v *ReferenceVerifier) SignAggregate(pubkeys []types.Pubkey, messages [][]byte) types.Signature {
	return aggregateParts(pubkeys, messages)
}

func aggregateParts(pubkeys []types.Pubkey, messages [][]byte) types.Signature {
	var agg [32]byte
	for i := range pubkeys {
		part := Keccak256(pubkeys[i][:], messages[i])
		for j := 0; j < 32; j++ {
			agg[j] ^= part[j]
		}
	}
	var sig types.Signature
	copy(sig[:32], agg[:])
	sig[32] = byte(len(pubkeys))
	return sig
}
