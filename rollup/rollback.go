package rollup

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
)

// rewardNumerator / rewardDenominator split slashed stake: two thirds to
// the challenger, the remainder burned.
const (
	rewardNumerator   = 2
	rewardDenominator = 3
)

// SettleRollback resumes (or finishes) a pending rollback. It slashes and
// removes batches from the ledger tip down toward the marker's target,
// consuming one unit of work budget per batch. If the budget runs out
// first, the call settles the value split for the batches it did remove
// and leaves the marker active; any caller may resume with a later call.
// When the target itself is removed, the marker returns to idle and
// submission reopens.
func (c *Chain) SettleRollback(caller types.Address, budget uint64) (*RollbackReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller.IsZero() {
		return nil, ErrZeroCaller
	}
	if err := c.requireRollingBack(); err != nil {
		return nil, err
	}
	if budget < c.params.MinRollbackBudget {
		return nil, ErrBudgetTooSmall
	}
	return c.settle(caller, budget)
}

// settle runs the bounded unwind loop and settles this call's value split.
// Caller holds the lock and has verified the marker is active.
func (c *Chain) settle(caller types.Address, budget uint64) (*RollbackReport, error) {
	target := c.marker.Target
	report := &RollbackReport{
		Target: target,
		Reward: uint256.NewInt(0),
		Burned: uint256.NewInt(0),
	}

	for budget > 0 && c.tip > target {
		id := c.tip - 1
		batch := c.ledger[id]

		reward := new(uint256.Int).Mul(batch.Stake, uint256.NewInt(rewardNumerator))
		reward.Div(reward, uint256.NewInt(rewardDenominator))
		burn := new(uint256.Int).Sub(batch.Stake, reward)
		report.Reward.Add(report.Reward, reward)
		report.Burned.Add(report.Burned, burn)

		delete(c.ledger, id)
		c.tip--
		budget--
		report.Removed++
		c.slashedCtr.Inc()

		if !batch.DepositRoot.IsZero() {
			c.deposits.Enqueue(batch.DepositRoot)
		}

		c.log.Info("batch rolled back",
			"id", id,
			"hash", batch.Hash(),
			"stake", batch.Stake,
			"reward", reward,
			"burn", burn,
		)
	}

	if c.tip == target {
		c.marker = RollbackMarker{}
		report.Completed = true
	}

	// This call's split settles before returning: no value is held across
	// calls even when the unwind is still incomplete.
	if !report.Reward.IsZero() {
		if err := c.treasury.Payout(caller, report.Reward); err != nil {
			return nil, fmt.Errorf("rollup: challenger payout: %w", err)
		}
	}
	if !report.Burned.IsZero() {
		if err := c.treasury.Burn(report.Burned); err != nil {
			return nil, fmt.Errorf("rollup: burn: %w", err)
		}
	}

	c.settledCtr.Inc()
	c.tipGauge.Set(int64(c.tip))
	c.log.Info("rollback settled",
		"target", target,
		"removed", report.Removed,
		"reward", report.Reward,
		"burn", report.Burned,
		"completed", report.Completed,
	)
	return report, nil
}
