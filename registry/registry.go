// Package registry implements the append-only account registry: a merkle
// accumulator of BLS public keys. Batches snapshot its root at commit time;
// signature disputes later prove key membership against that snapshot.
package registry

import (
	"errors"
	"sync"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/merkle"
)

// DefaultDepth fits 2^20 accounts, the registry size Hubble provisions.
const DefaultDepth = 20

var (
	ErrZeroPubkey     = errors.New("registry: zero public key")
	ErrRegistryFull   = errors.New("registry: registry is full")
	ErrUnknownAccount = errors.New("registry: unknown account id")
)

// AccountRegistry is the membership authority for signature disputes.
// Registration is append-only; leaves are keccak hashes of the compressed
// public key bytes.
type AccountRegistry struct {
	mu   sync.RWMutex
	tree *merkle.Tree
}

// New creates an empty registry of the given depth.
func New(depth uint) (*AccountRegistry, error) {
	tree, err := merkle.NewTree(depth)
	if err != nil {
		return nil, err
	}
	return &AccountRegistry{tree: tree}, nil
}

// LeafOf is the leaf encoding of a public key.
func LeafOf(pubkey types.Pubkey) types.Hash {
	return crypto.Keccak256Hash(pubkey[:])
}

// Register appends a public key and returns its account id.
func (r *AccountRegistry) Register(pubkey types.Pubkey) (uint32, error) {
	if pubkey.IsZero() {
		return 0, ErrZeroPubkey
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.tree.Append(LeafOf(pubkey))
	if err != nil {
		return 0, ErrRegistryFull
	}
	return uint32(id), nil
}

// Root returns the current registry root.
func (r *AccountRegistry) Root() types.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Root()
}

// Count returns the number of registered accounts.
func (r *AccountRegistry) Count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Count()
}

// WitnessFor builds the membership witness for an account against the
// current root. Challengers attach these to signature disputes.
func (r *AccountRegistry) WitnessFor(accountID uint32) (merkle.Witness, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, err := r.tree.Witness(uint64(accountID))
	if err != nil {
		return merkle.Witness{}, ErrUnknownAccount
	}
	return w, nil
}

// ExistsAt reports whether the witness proves that accountID held pubkey
// under the given historical root. The witness path must match the claimed
// account id; a witness for a different slot proves nothing.
func (r *AccountRegistry) ExistsAt(root types.Hash, accountID uint32, pubkey types.Pubkey, witness merkle.Witness) bool {
	if pubkey.IsZero() {
		return false
	}
	if witness.Path != uint64(accountID) {
		return false
	}
	return merkle.VerifyLeaf(root, LeafOf(pubkey), witness)
}
