// Package treasury implements value custody for the rollup core: coordinator
// bonds are escrowed at submission, paid back at withdrawal, and split
// between challenger reward and the burn sink when a batch is slashed.
package treasury

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
)

var (
	ErrNilAmount           = errors.New("treasury: nil amount")
	ErrInsufficientBalance = errors.New("treasury: insufficient balance")
	ErrZeroRecipient       = errors.New("treasury: zero recipient")
)

// Treasury is an in-memory ledger of free balances plus an escrow pool and a
// cumulative burn counter. The escrow pool is not attributed per batch; the
// rollup ledger's per-batch stake field is the authoritative breakdown.
type Treasury struct {
	mu       sync.Mutex
	balances map[types.Address]*uint256.Int
	escrowed *uint256.Int
	burned   *uint256.Int
}

// New creates an empty treasury.
func New() *Treasury {
	return &Treasury{
		balances: make(map[types.Address]*uint256.Int),
		escrowed: uint256.NewInt(0),
		burned:   uint256.NewInt(0),
	}
}

// Mint credits a free balance. Test and genesis funding hook.
func (t *Treasury) Mint(addr types.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if addr.IsZero() {
		return ErrZeroRecipient
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(addr, amount)
	return nil
}

// Escrow moves amount from the payer's free balance into the bond pool.
// Called by the core when a batch is submitted.
func (t *Treasury) Escrow(payer types.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	bal, ok := t.balances[payer]
	if !ok || bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	t.escrowed.Add(t.escrowed, amount)
	return nil
}

// Payout releases amount from the bond pool to the recipient's free balance.
// Covers both stake withdrawal and challenger rewards.
func (t *Treasury) Payout(recipient types.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if recipient.IsZero() {
		return ErrZeroRecipient
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.escrowed.Lt(amount) {
		return ErrInsufficientBalance
	}
	t.escrowed.Sub(t.escrowed, amount)
	t.credit(recipient, amount)
	return nil
}

// Burn destroys amount from the bond pool, accumulating the burn sink.
func (t *Treasury) Burn(amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.escrowed.Lt(amount) {
		return ErrInsufficientBalance
	}
	t.escrowed.Sub(t.escrowed, amount)
	t.burned.Add(t.burned, amount)
	return nil
}

// BalanceOf returns the free balance of addr.
func (t *Treasury) BalanceOf(addr types.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bal, ok := t.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Escrowed returns the total value held in the bond pool.
func (t *Treasury) Escrowed() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.escrowed)
}

// Burned returns the cumulative burned value.
func (t *Treasury) Burned() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.burned)
}

// credit adds amount to addr's free balance. Caller holds the lock.
func (t *Treasury) credit(addr types.Address, amount *uint256.Int) {
	if bal, ok := t.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	t.balances[addr] = new(uint256.Int).Set(amount)
}
