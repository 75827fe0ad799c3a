//go:build goethkzg

// KZG blob-commitment backend using crate-crypto/go-eth-kzg with the real
// Ethereum ceremony trusted setup.
//
// Build with: go build -tags goethkzg
package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	goethkzg "github.com/crate-crypto/go-eth-kzg"

	"github.com/Hubble-Project/hubble/core/types"
)

// kzgVersionByte is the EIP-4844 versioned-hash version prefix.
const kzgVersionByte = 0x01

// ErrBlobTooLarge is returned when a blob exceeds one KZG blob's capacity.
var ErrBlobTooLarge = errors.New("blobcommit: blob exceeds KZG blob capacity")

// kzgUsableBytesPerElement is the number of blob payload bytes packed into
// each 32-byte field element. The top byte of every element is left zero so
// the element stays below the BLS scalar modulus.
const kzgUsableBytesPerElement = 31

// KZGCommitter commits to blobs with a KZG polynomial commitment and returns
// the versioned hash of that commitment, mirroring how Ethereum blob
// transactions reference blob content.
type KZGCommitter struct {
	ctx *goethkzg.Context
}

var _ BlobCommitter = (*KZGCommitter)(nil)

// NewKZGCommitter initializes the go-eth-kzg context from the embedded
// ceremony SRS. Construction is slow (seconds); hold one instance.
func NewKZGCommitter() (*KZGCommitter, error) {
	ctx, err := goethkzg.NewContext4096Secure()
	if err != nil {
		return nil, fmt.Errorf("blobcommit: failed to initialize kzg context: %w", err)
	}
	return &KZGCommitter{ctx: ctx}, nil
}

// Commit packs the blob into canonical field elements, commits, and returns
// the versioned hash 0x01 || sha256(commitment)[1:].
func (c *KZGCommitter) Commit(blob []byte) (types.Hash, error) {
	if len(blob) == 0 {
		return types.Hash{}, ErrBlobEmpty
	}
	if len(blob) > goethkzg.ScalarsPerBlob*kzgUsableBytesPerElement {
		return types.Hash{}, ErrBlobTooLarge
	}

	var padded goethkzg.Blob
	for i := 0; i < len(blob); i += kzgUsableBytesPerElement {
		end := i + kzgUsableBytesPerElement
		if end > len(blob) {
			end = len(blob)
		}
		elem := i / kzgUsableBytesPerElement
		// Byte 0 of each element stays zero; payload occupies bytes 1..31.
		copy(padded[elem*32+1:], blob[i:end])
	}

	comm, err := c.ctx.BlobToKZGCommitment(&padded, 0)
	if err != nil {
		return types.Hash{}, fmt.Errorf("blobcommit: BlobToKZGCommitment failed: %w", err)
	}

	digest := sha256.Sum256(comm[:])
	digest[0] = kzgVersionByte
	return types.BytesToHash(digest[:]), nil
}
