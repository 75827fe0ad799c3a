package rollup

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
)

// WithdrawStake releases a batch's bond to its committer once the finality
// deadline has strictly passed undisputed. The zeroed stake is what makes
// the operation idempotent: a second call fails the liveness check.
func (c *Chain) WithdrawStake(caller types.Address, batchID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch, ok := c.ledger[batchID]
	if !ok {
		return ErrUnknownBatch
	}
	if !batch.Live() {
		return ErrBatchInert
	}
	if caller != batch.Committer {
		return ErrNotCommitter
	}
	if c.clock.Height() <= batch.FinalisesOn {
		return ErrNotYetFinal
	}

	amount := new(uint256.Int).Set(batch.Stake)
	if err := c.treasury.Payout(caller, amount); err != nil {
		return fmt.Errorf("rollup: stake payout: %w", err)
	}
	batch.Stake = uint256.NewInt(0)
	c.withdrawnCtr.Inc()

	c.log.Info("stake withdrawn",
		"id", batchID,
		"committer", caller,
		"amount", amount,
	)
	return nil
}
