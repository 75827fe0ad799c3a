// Package crypto provides the hashing and signature-verification surface the
// rollup core depends on: Keccak-256 content hashing, the BLS aggregate
// verifier used by signature disputes, and the blob content-commitment
// backend used at batch submission.
package crypto

import (
	"github.com/Hubble-Project/hubble/core/types"
	"golang.org/x/crypto/sha3"
)

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
