package rollup

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/codec"
	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/merkle"
)

// SubmitBatch validates and appends an ordinary transaction batch. The
// caller must be the coordinator, the marker must be idle, and the bond
// must meet the governance stake. The aggregate signature only gets a
// structural check here; full verification is deferred to dispute time.
// Returns the new batch's index.
func (c *Chain) SubmitBatch(caller types.Address, blob []byte, claimedTxRoot, newStateRoot types.Hash, sig types.Signature, bond *uint256.Int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireCoordinator(caller); err != nil {
		return 0, err
	}
	if err := c.requireIdle(); err != nil {
		return 0, err
	}
	if bond == nil || bond.Lt(c.params.StakeAmount) {
		return 0, ErrInsufficientBond
	}
	if err := codec.Validate(blob); err != nil {
		return 0, err
	}
	if uint64(codec.Count(blob)) > c.params.MaxTxsPerBatch {
		return 0, ErrBatchTooLarge
	}

	txCommit, err := c.blobs.Commit(blob)
	if err != nil {
		return 0, fmt.Errorf("rollup: blob commitment: %w", err)
	}
	if !c.sigs.IsWellFormed(sig) {
		return 0, ErrSignatureMalformed
	}
	if err := c.treasury.Escrow(caller, bond); err != nil {
		return 0, fmt.Errorf("rollup: bond escrow: %w", err)
	}

	batch := &Batch{
		StateRoot:   newStateRoot,
		AccountRoot: c.accounts.Root(),
		Committer:   caller,
		TxCommit:    txCommit,
		TxRoot:      claimedTxRoot,
		Stake:       new(uint256.Int).Set(bond),
		FinalisesOn: c.clock.Height() + c.params.FinalityDelay,
		Timestamp:   c.clock.Now(),
		Signature:   sig,
	}
	id := c.append(batch)

	c.log.Info("batch committed",
		"id", id,
		"hash", batch.Hash(),
		"committer", caller,
		"txs", codec.Count(blob),
		"stateRoot", newStateRoot,
		"finalisesOn", batch.FinalisesOn,
	)
	return id, nil
}

// FinaliseDepositsAndSubmitBatch folds the next pending deposit subtree
// into the rollup state and appends the resulting deposit-merge batch. The
// vacancy witness both authorizes the merge position (checked by the
// deposit pool against the latest state root) and determines the new state
// root. Deposit batches carry no transaction commitment and no signature.
func (c *Chain) FinaliseDepositsAndSubmitBatch(caller types.Address, depth uint, vacancy merkle.Witness, bond *uint256.Int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireCoordinator(caller); err != nil {
		return 0, err
	}
	if err := c.requireIdle(); err != nil {
		return 0, err
	}
	if bond == nil || bond.Lt(c.params.StakeAmount) {
		return 0, ErrInsufficientBond
	}

	latest := c.ledger[c.tip-1].StateRoot
	subtree, err := c.deposits.FinaliseDeposits(depth, vacancy, latest)
	if err != nil {
		return 0, fmt.Errorf("rollup: finalise deposits: %w", err)
	}
	newStateRoot, err := merkle.UpdateLeafWithSiblings(subtree, vacancy.Path, vacancy.Siblings)
	if err != nil {
		return 0, fmt.Errorf("rollup: deposit state root: %w", err)
	}
	if err := c.treasury.Escrow(caller, bond); err != nil {
		return 0, fmt.Errorf("rollup: bond escrow: %w", err)
	}

	batch := &Batch{
		StateRoot:   newStateRoot,
		AccountRoot: c.accounts.Root(),
		DepositRoot: subtree,
		Committer:   caller,
		TxRoot:      subtree,
		Stake:       new(uint256.Int).Set(bond),
		FinalisesOn: c.clock.Height() + c.params.FinalityDelay,
		Timestamp:   c.clock.Now(),
	}
	id := c.append(batch)

	c.log.Info("batch committed",
		"id", id,
		"hash", batch.Hash(),
		"committer", caller,
		"depositRoot", subtree,
		"stateRoot", newStateRoot,
		"finalisesOn", batch.FinalisesOn,
	)
	return id, nil
}

// append stores the batch at the tip and advances it. Caller holds the lock.
func (c *Chain) append(b *Batch) uint64 {
	id := c.tip
	c.ledger[id] = b
	c.tip++
	c.committedCtr.Inc()
	c.tipGauge.Set(int64(c.tip))
	return id
}
