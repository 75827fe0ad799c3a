// Package rollup implements the dispute-resolution core of the Hubble
// optimistic rollup: the append-only batch ledger, the commitment gate, the
// three falsifiability checks a challenger can raise against a pending
// batch, the resource-bounded rollback/slashing engine, and post-finality
// stake withdrawal.
package rollup

import (
	"errors"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
)

// Errors of the core, grouped by the failure class they report.
var (
	// Authorization.
	ErrNotCoordinator = errors.New("rollup: caller is not the coordinator")

	// Liveness: the marker is in the wrong phase for the operation.
	ErrRollbackPending = errors.New("rollup: rollback in progress")
	ErrNotRollingBack  = errors.New("rollup: no rollback in progress")

	// Validation.
	ErrInsufficientBond    = errors.New("rollup: bond below required stake")
	ErrBatchTooLarge       = errors.New("rollup: transaction count exceeds batch limit")
	ErrSignatureMalformed  = errors.New("rollup: structurally invalid signature")
	ErrUnknownBatch        = errors.New("rollup: unknown batch id")
	ErrBatchInert          = errors.New("rollup: batch already slashed or withdrawn")
	ErrBatchFinalized      = errors.New("rollup: batch is past its finality deadline")
	ErrBatchSuperseded     = errors.New("rollup: batch superseded by an earlier rollback target")
	ErrDepositBatch        = errors.New("rollup: deposit batch carries no transaction commitment")
	ErrBlobMismatch        = errors.New("rollup: blob does not match the committed transaction blob")
	ErrMembershipProof     = errors.New("rollup: account membership proof rejected")
	ErrSignatureProofShape = errors.New("rollup: signature proof shape does not match transaction count")
	ErrNotCommitter        = errors.New("rollup: caller did not commit this batch")
	ErrBudgetTooSmall      = errors.New("rollup: work budget below governance minimum")
	ErrZeroCaller          = errors.New("rollup: zero caller address")

	// Not-yet-final.
	ErrNotYetFinal = errors.New("rollup: batch finality deadline has not passed")
)

// Batch is one committed unit of off-chain activity. A batch is written once
// at submission and mutated exactly once afterwards: its stake is zeroed by
// withdrawal, or the whole slot is freed by slashing.
type Batch struct {
	// StateRoot is the balance-tree root resulting from this batch.
	StateRoot types.Hash

	// AccountRoot snapshots the account registry at commit time; signature
	// disputes verify key membership against it.
	AccountRoot types.Hash

	// DepositRoot is the merged deposit subtree root; zero for transaction
	// batches.
	DepositRoot types.Hash

	// Committer posted the bond and may withdraw it after finality.
	Committer types.Address

	// TxCommit is the content commitment of the raw compressed transaction
	// blob; zero for deposit-merge batches.
	TxCommit types.Hash

	// TxRoot is the merkle root over per-transaction leaves as claimed by
	// the committer. For deposit batches it equals DepositRoot.
	TxRoot types.Hash

	// Stake is the bond posted at submission. Zero means the batch is
	// inert: already withdrawn or slashed.
	Stake *uint256.Int

	// FinalisesOn is the block height after which the batch can no longer
	// be disputed and its bond becomes withdrawable.
	FinalisesOn uint64

	// Timestamp is the submission time (unix seconds).
	Timestamp uint64

	// Signature is the aggregate BLS signature over the batch's
	// transactions; zero for deposit batches.
	Signature types.Signature
}

// Live reports whether the batch still carries its bond.
func (b *Batch) Live() bool {
	return b.Stake != nil && !b.Stake.IsZero()
}

// Hash returns the canonical batch hash: keccak256 of the RLP encoding.
func (b *Batch) Hash() types.Hash {
	enc, err := rlp.EncodeToBytes(b)
	if err != nil {
		// All field types are RLP-encodable; this cannot fail at runtime.
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// clone returns a deep copy safe to hand to callers.
func (b *Batch) clone() Batch {
	cp := *b
	if b.Stake != nil {
		cp.Stake = new(uint256.Int).Set(b.Stake)
	}
	return cp
}

// RollbackMarker is the process-wide dispute flag. Idle permits submission;
// an active marker freezes submission until the ledger has been unwound
// down to and including Target.
type RollbackMarker struct {
	Active bool
	Target uint64
}

// Idle reports whether no dispute is pending settlement.
func (m RollbackMarker) Idle() bool { return !m.Active }

// RollbackReport summarizes one SettleRollback call.
type RollbackReport struct {
	// Target is the batch id the unwind is heading for.
	Target uint64

	// Removed is the number of batches slashed by this call.
	Removed uint64

	// Reward is the challenger payout settled by this call.
	Reward *uint256.Int

	// Burned is the slashed remainder sent to the burn sink by this call.
	Burned *uint256.Int

	// Completed reports whether the unwind reached its target; false means
	// the work budget ran out and a later call must resume.
	Completed bool
}
