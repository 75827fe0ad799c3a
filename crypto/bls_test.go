package crypto

import (
	"testing"

	"github.com/Hubble-Project/hubble/core/types"
)

func refPubkey(seed byte) types.Pubkey {
	var p types.Pubkey
	for i := range p {
		p[i] = seed ^ byte(i)
	}
	return p
}

func TestReferenceVerifierWellFormed(t *testing.T) {
	v := &ReferenceVerifier{}
	if v.IsWellFormed(types.Signature{}) {
		t.Fatal("zero signature should not be well formed")
	}
	sig := types.BytesToSignature([]byte{1, 2, 3})
	if !v.IsWellFormed(sig) {
		t.Fatal("non-zero signature should be well formed")
	}
}

func TestReferenceAggregateRoundTrip(t *testing.T) {
	v := &ReferenceVerifier{}
	pubkeys := []types.Pubkey{refPubkey(0x11), refPubkey(0x22), refPubkey(0x33)}
	messages := [][]byte{
		v.MapToMessage([]byte("tx-0")),
		v.MapToMessage([]byte("tx-1")),
		v.MapToMessage([]byte("tx-2")),
	}

	sig := v.SignAggregate(pubkeys, messages)
	if !v.VerifyAggregate(sig, pubkeys, messages) {
		t.Fatal("aggregate signature should verify")
	}
}

func TestReferenceAggregateRejectsTamper(t *testing.T) {
	v := &ReferenceVerifier{}
	pubkeys := []types.Pubkey{refPubkey(0x11), refPubkey(0x22)}
	messages := [][]byte{
		v.MapToMessage([]byte("tx-0")),
		v.MapToMessage([]byte("tx-1")),
	}
	sig := v.SignAggregate(pubkeys, messages)

	// Flip one bit of the aggregate.
	bad := sig
	bad[0] ^= 0x01
	if v.VerifyAggregate(bad, pubkeys, messages) {
		t.Fatal("tampered signature should not verify")
	}

	// Swap a message.
	swapped := [][]byte{messages[1], messages[0]}
	if v.VerifyAggregate(sig, pubkeys, swapped) {
		t.Fatal("reordered messages should not verify")
	}

	// Wrong signer set.
	if v.VerifyAggregate(sig, []types.Pubkey{refPubkey(0x44), refPubkey(0x22)}, messages) {
		t.Fatal("wrong pubkeys should not verify")
	}
}

func TestReferenceAggregateShapeChecks(t *testing.T) {
	v := &ReferenceVerifier{}
	if v.VerifyAggregate(types.Signature{}, nil, nil) {
		t.Fatal("empty signer set should not verify")
	}
	pubkeys := []types.Pubkey{refPubkey(1)}
	if v.VerifyAggregate(types.Signature{}, pubkeys, [][]byte{{1}, {2}}) {
		t.Fatal("mismatched lengths should not verify")
	}
}

func TestMapToMessageDomainSeparated(t *testing.T) {
	v := &ReferenceVerifier{}
	m := v.MapToMessage([]byte("tx"))
	raw := Keccak256([]byte("tx"))
	if string(m) == string(raw) {
		t.Fatal("message mapping must be domain separated from plain keccak")
	}
	if string(m) != string(v.MapToMessage([]byte("tx"))) {
		t.Fatal("message mapping must be deterministic")
	}
}
