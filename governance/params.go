// Package governance holds the protocol parameters the rollup core reads:
// the per-batch stake bond, the batch size cap, the dispute window length,
// and the minimum work budget a rollback settlement call must bring.
package governance

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrZeroStake     = errors.New("governance: stake amount must be positive")
	ErrZeroBatchCap  = errors.New("governance: max txs per batch must be positive")
	ErrZeroDelay     = errors.New("governance: finality delay must be positive")
	ErrZeroMinBudget = errors.New("governance: min rollback budget must be positive")
)

// Params is the read-only configuration surface consumed by the core.
type Params struct {
	// StakeAmount is the bond a coordinator must post per batch.
	StakeAmount *uint256.Int

	// MaxTxsPerBatch caps the decoded transaction count of one batch.
	MaxTxsPerBatch uint64

	// FinalityDelay is the number of blocks a batch remains disputable.
	FinalityDelay uint64

	// MinRollbackBudget is the smallest work budget SettleRollback accepts;
	// a unit of budget pays for slashing one batch.
	MinRollbackBudget uint64
}

// DefaultParams returns the parameter set used in tests and local deployments.
func DefaultParams() Params {
	return Params{
		StakeAmount:       uint256.NewInt(1_000_000),
		MaxTxsPerBatch:    1024,
		FinalityDelay:     40320, // ~one week of 15s blocks
		MinRollbackBudget: 1,
	}
}

// Validate rejects unusable parameter sets.
func (p Params) Validate() error {
	if p.StakeAmount == nil || p.StakeAmount.IsZero() {
		return ErrZeroStake
	}
	if p.MaxTxsPerBatch == 0 {
		return ErrZeroBatchCap
	}
	if p.FinalityDelay == 0 {
		return ErrZeroDelay
	}
	if p.MinRollbackBudget == 0 {
		return ErrZeroMinBudget
	}
	return nil
}
