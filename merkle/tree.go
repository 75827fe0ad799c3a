// Package merkle implements the binary merkle utilities the rollup core and
// its collaborators share: root computation over hashed leaves, single-leaf
// updates along a sibling path, witness verification, and a fixed-depth
// accumulator tree used by the account registry and the deposit manager.
//
// Nodes combine as keccak256(left || right). Absent subtrees are represented
// by the zero-hash table: Z[0] is the all-zero leaf and Z[i+1] =
// keccak256(Z[i] || Z[i]).
package merkle

import (
	"errors"
	"math/bits"
	"sync"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
)

// MaxDepth bounds every tree this package will build or verify.
const MaxDepth = 32

var (
	ErrDepthRange    = errors.New("merkle: depth out of range")
	ErrTreeFull      = errors.New("merkle: tree is full")
	ErrIndexRange    = errors.New("merkle: leaf index out of range")
	ErrEmptyLeafSet  = errors.New("merkle: no leaves")
	ErrWitnessLength = errors.New("merkle: witness depth out of range")
)

// Witness is a sibling path proving a leaf's position under a root.
type Witness struct {
	// Path is the leaf index; bit i selects left (0) or right (1) at level i.
	Path uint64

	// Siblings holds one node per level, leaf level first.
	Siblings []types.Hash
}

var (
	zeroOnce   sync.Once
	zeroHashes [MaxDepth + 1]types.Hash
)

// ZeroHash returns the root of an empty subtree of the given depth.
func ZeroHash(depth uint) types.Hash {
	zeroOnce.Do(func() {
		for i := 1; i <= MaxDepth; i++ {
			zeroHashes[i] = crypto.Keccak256Hash(zeroHashes[i-1][:], zeroHashes[i-1][:])
		}
	})
	if depth > MaxDepth {
		depth = MaxDepth
	}
	return zeroHashes[depth]
}

// HashLeaf hashes raw leaf content into a leaf node.
func HashLeaf(data []byte) types.Hash {
	return crypto.Keccak256Hash(data)
}

// combine hashes a left/right node pair into their parent.
func combine(left, right types.Hash) types.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

// depthFor returns the smallest depth whose capacity holds n leaves.
func depthFor(n int) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len(uint(n - 1)))
}

// RootOfLeaves computes the root of the smallest zero-padded power-of-two
// tree containing the given leaf hashes, in order.
func RootOfLeaves(leaves []types.Hash) (types.Hash, error) {
	if len(leaves) == 0 {
		return types.Hash{}, ErrEmptyLeafSet
	}
	return rootAtDepth(leaves, depthFor(len(leaves)))
}

// RootOfRawLeaves hashes each raw leaf and computes the root over them.
func RootOfRawLeaves(raw [][]byte) (types.Hash, error) {
	leaves := make([]types.Hash, len(raw))
	for i, r := range raw {
		leaves[i] = HashLeaf(r)
	}
	return RootOfLeaves(leaves)
}

// RootAtDepth computes the root of a depth-d tree whose first len(leaves)
// positions hold the given hashes and whose remainder is empty.
func RootAtDepth(leaves []types.Hash, depth uint) (types.Hash, error) {
	if depth > MaxDepth {
		return types.Hash{}, ErrDepthRange
	}
	if depth < MaxDepth && uint64(len(leaves)) > 1<<depth {
		return types.Hash{}, ErrIndexRange
	}
	return rootAtDepth(leaves, depth)
}

func rootAtDepth(leaves []types.Hash, depth uint) (types.Hash, error) {
	level := make([]types.Hash, len(leaves))
	copy(level, leaves)
	for d := uint(0); d < depth; d++ {
		next := make([]types.Hash, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := ZeroHash(d)
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = combine(left, right)
		}
		level = next
	}
	if len(level) == 0 {
		return ZeroHash(depth), nil
	}
	return level[0], nil
}

// UpdateLeafWithSiblings recomputes the root that results from placing leaf
// at the witnessed position, climbing the sibling path.
func UpdateLeafWithSiblings(leaf types.Hash, path uint64, siblings []types.Hash) (types.Hash, error) {
	if len(siblings) > MaxDepth {
		return types.Hash{}, ErrWitnessLength
	}
	node := leaf
	for i, sib := range siblings {
		if path>>uint(i)&1 == 1 {
			node = combine(sib, node)
		} else {
			node = combine(node, sib)
		}
	}
	return node, nil
}

// VerifyLeaf reports whether the witness places leaf under root.
func VerifyLeaf(root, leaf types.Hash, w Witness) bool {
	got, err := UpdateLeafWithSiblings(leaf, w.Path, w.Siblings)
	if err != nil {
		return false
	}
	return got == root
}

// Tree is a fixed-depth append-capable merkle accumulator with witness
// generation. Positions beyond Count are empty subtrees.
type Tree struct {
	depth  uint
	leaves []types.Hash
}

// NewTree creates an empty tree of the given depth.
func NewTree(depth uint) (*Tree, error) {
	if depth == 0 || depth > MaxDepth {
		return nil, ErrDepthRange
	}
	return &Tree{depth: depth}, nil
}

// Depth returns the tree depth.
func (t *Tree) Depth() uint { return t.depth }

// Count returns the number of occupied leaves.
func (t *Tree) Count() uint64 { return uint64(len(t.leaves)) }

// Append inserts a leaf at the next free position and returns its index.
func (t *Tree) Append(leaf types.Hash) (uint64, error) {
	if t.depth < 64 && uint64(len(t.leaves)) >= 1<<t.depth {
		return 0, ErrTreeFull
	}
	t.leaves = append(t.leaves, leaf)
	return uint64(len(t.leaves) - 1), nil
}

// Set overwrites the leaf at an occupied position.
func (t *Tree) Set(index uint64, leaf types.Hash) error {
	if index >= uint64(len(t.leaves)) {
		return ErrIndexRange
	}
	t.leaves[index] = leaf
	return nil
}

// Leaf returns the leaf at the given position.
func (t *Tree) Leaf(index uint64) (types.Hash, error) {
	if index >= uint64(len(t.leaves)) {
		return types.Hash{}, ErrIndexRange
	}
	return t.leaves[index], nil
}

// Root computes the current root.
func (t *Tree) Root() types.Hash {
	root, _ := rootAtDepth(t.leaves, t.depth)
	return root
}

// Witness builds the sibling path for the leaf at the given position.
func (t *Tree) Witness(index uint64) (Witness, error) {
	if index >= uint64(len(t.leaves)) {
		return Witness{}, ErrIndexRange
	}
	siblings := make([]types.Hash, t.depth)
	level := make([]types.Hash, len(t.leaves))
	copy(level, t.leaves)
	pos := index
	for d := uint(0); d < t.depth; d++ {
		sib := pos ^ 1
		if sib < uint64(len(level)) {
			siblings[d] = level[sib]
		} else {
			siblings[d] = ZeroHash(d)
		}
		next := make([]types.Hash, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := ZeroHash(d)
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = combine(left, right)
		}
		level = next
		pos >>= 1
	}
	return Witness{Path: index, Siblings: siblings}, nil
}
