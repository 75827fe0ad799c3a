// Package deposits implements the deposit pipeline feeding the rollup:
// individual deposits queue up as state leaves, get packed into fixed-depth
// subtrees, and are folded into the rollup state by a deposit-merge batch.
// When a rollback discards a batch that had merged a subtree, the subtree
// root is re-enqueued so the deposits are not lost.
package deposits

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/merkle"
)

var (
	ErrZeroAmount   = errors.New("deposits: deposit amount must be positive")
	ErrNoDeposits   = errors.New("deposits: nothing to finalise")
	ErrVacancyProof = errors.New("deposits: vacancy proof does not open an empty subtree")
	ErrDepthRange   = errors.New("deposits: subtree depth out of range")
)

// Deposit is one pending credit to a rollup account.
type Deposit struct {
	// Recipient is the rollup account id being credited.
	Recipient uint32

	// Amount is the credited value.
	Amount uint64
}

// Leaf is the state-leaf encoding of a deposit.
func (d Deposit) Leaf() types.Hash {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], d.Recipient)
	binary.BigEndian.PutUint64(b[4:12], d.Amount)
	return crypto.Keccak256Hash(b[:])
}

// Manager queues deposits and hands packed subtrees to the rollup core.
// Re-enqueued subtrees (from rollbacks) are replayed before fresh deposits.
type Manager struct {
	mu      sync.Mutex
	pending []types.Hash // individual deposit leaves, FIFO
	ready   []types.Hash // packed subtree roots awaiting (re-)merge, FIFO
}

// NewManager creates an empty deposit manager.
func NewManager() *Manager {
	return &Manager{}
}

// Submit queues one deposit.
func (m *Manager) Submit(d Deposit) (types.Hash, error) {
	if d.Amount == 0 {
		return types.Hash{}, ErrZeroAmount
	}
	leaf := d.Leaf()
	m.mu.Lock()
	m.pending = append(m.pending, leaf)
	m.mu.Unlock()
	return leaf, nil
}

// Enqueue re-queues a discarded subtree root for future reprocessing.
// Called by the rollback engine for every slashed deposit-merge batch.
func (m *Manager) Enqueue(subtreeRoot types.Hash) {
	if subtreeRoot.IsZero() {
		return
	}
	m.mu.Lock()
	m.ready = append(m.ready, subtreeRoot)
	m.mu.Unlock()
}

// PendingCount returns the number of unpacked deposit leaves.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ReadyCount returns the number of queued subtree roots.
func (m *Manager) ReadyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ready)
}

// FinaliseDeposits yields the next depth-d deposit subtree root, after
// checking that the supplied vacancy witness opens an empty depth-d subtree
// of the latest state root (the position the subtree will be merged into).
// Re-enqueued subtrees are served first; otherwise up to 2^d pending leaves
// are packed into a fresh subtree. The manager's queues are only mutated
// once the vacancy proof has been accepted.
func (m *Manager) FinaliseDeposits(depth uint, vacancy merkle.Witness, latestStateRoot types.Hash) (types.Hash, error) {
	if depth == 0 || depth > merkle.MaxDepth {
		return types.Hash{}, ErrDepthRange
	}
	if !merkle.VerifyLeaf(latestStateRoot, merkle.ZeroHash(depth), vacancy) {
		return types.Hash{}, ErrVacancyProof
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ready) > 0 {
		root := m.ready[0]
		m.ready = m.ready[1:]
		return root, nil
	}

	if len(m.pending) == 0 {
		return types.Hash{}, ErrNoDeposits
	}
	n := len(m.pending)
	if limit := 1 << depth; n > limit {
		n = limit
	}
	root, err := merkle.RootAtDepth(m.pending[:n], depth)
	if err != nil {
		return types.Hash{}, err
	}
	m.pending = m.pending[n:]
	return root, nil
}
