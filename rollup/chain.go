package rollup

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/governance"
	"github.com/Hubble-Project/hubble/log"
	"github.com/Hubble-Project/hubble/metrics"
)

// Chain is the batch commitment ledger and its dispute state machine. All
// public operations are serialized by one mutex: submission, dispute,
// settlement and withdrawal run to completion before the next operation
// begins, and all cross-call coordination goes through the persisted
// ledger, tip and marker.
type Chain struct {
	mu sync.Mutex

	coordinator types.Address
	params      governance.Params

	clock    Clock
	deposits DepositPool
	accounts AccountSource
	sigs     crypto.Verifier
	fraud    FraudVerifier
	treasury Treasury
	blobs    crypto.BlobCommitter

	ledger map[uint64]*Batch
	tip    uint64
	marker RollbackMarker

	log *log.Logger

	committedCtr *metrics.Counter
	slashedCtr   *metrics.Counter
	settledCtr   *metrics.Counter
	withdrawnCtr *metrics.Counter
	tipGauge     *metrics.Gauge
}

// NewChain constructs a chain with its genesis batch at index 0: zero
// commitments, the configured state root, no stake.
func NewChain(cfg Config) (*Chain, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Blobs == nil {
		cfg.Blobs = &crypto.KeccakCommitter{}
	}
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}

	c := &Chain{
		coordinator: cfg.Coordinator,
		params:      cfg.Params,
		clock:       cfg.Clock,
		deposits:    cfg.Deposits,
		accounts:    cfg.Accounts,
		sigs:        cfg.Signatures,
		fraud:       cfg.Fraud,
		treasury:    cfg.Treasury,
		blobs:       cfg.Blobs,
		ledger:      make(map[uint64]*Batch),
		log:         cfg.Log.Module("rollup"),

		committedCtr: metrics.NewCounter("rollup_batches_committed"),
		slashedCtr:   metrics.NewCounter("rollup_batches_slashed"),
		settledCtr:   metrics.NewCounter("rollup_rollbacks_settled"),
		withdrawnCtr: metrics.NewCounter("rollup_stakes_withdrawn"),
		tipGauge:     metrics.NewGauge("rollup_ledger_tip"),
	}

	c.ledger[0] = &Batch{
		StateRoot:   cfg.GenesisStateRoot,
		AccountRoot: cfg.Accounts.Root(),
		Stake:       uint256.NewInt(0),
		Timestamp:   cfg.Clock.Now(),
	}
	c.tip = 1
	c.tipGauge.Set(1)
	return c, nil
}

// Tip returns the current ledger tip: the index the next batch will take.
func (c *Chain) Tip() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// Marker returns the current rollback marker.
func (c *Chain) Marker() RollbackMarker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marker
}

// BatchAt returns a copy of the batch at the given index.
func (c *Chain) BatchAt(id uint64) (Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.ledger[id]
	if !ok {
		return Batch{}, ErrUnknownBatch
	}
	return b.clone(), nil
}

// requireCoordinator aborts unless caller is the designated coordinator.
func (c *Chain) requireCoordinator(caller types.Address) error {
	if caller != c.coordinator {
		return ErrNotCoordinator
	}
	return nil
}

// requireIdle aborts unless no rollback is pending.
func (c *Chain) requireIdle() error {
	if !c.marker.Idle() {
		return ErrRollbackPending
	}
	return nil
}

// requireRollingBack aborts unless a rollback is pending.
func (c *Chain) requireRollingBack() error {
	if c.marker.Idle() {
		return ErrNotRollingBack
	}
	return nil
}
