// Blob content-commitment backend.
//
// At submission time the core binds each batch to its raw compressed
// transaction blob through a content commitment; at dispute time the same
// commitment gates which blob a challenger may dissect. Two backends:
//
//   - KeccakCommitter: keccak256 of the raw blob. Default.
//   - KZGCommitter: EIP-4844-style versioned hash of a KZG polynomial
//     commitment over the padded blob, via crate-crypto/go-eth-kzg,
//     compiled with the "goethkzg" build tag (see blobcommit_kzg_adapter.go).
package crypto

import (
	"errors"

	"github.com/Hubble-Project/hubble/core/types"
)

// ErrBlobEmpty is returned when asked to commit to an empty blob.
var ErrBlobEmpty = errors.New("blobcommit: blob must be non-empty")

// BlobCommitter binds a raw transaction blob to a 32-byte content commitment.
type BlobCommitter interface {
	Commit(blob []byte) (types.Hash, error)
}

// KeccakCommitter is the default content-commitment backend.
type KeccakCommitter struct{}

var _ BlobCommitter = (*KeccakCommitter)(nil)

// Commit returns keccak256(blob).
func (c *KeccakCommitter) Commit(blob []byte) (types.Hash, error) {
	if len(blob) == 0 {
		return types.Hash{}, ErrBlobEmpty
	}
	return Keccak256Hash(blob), nil
}
