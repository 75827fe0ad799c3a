// Collaborator contracts consumed by the core. Each is resolved once at
// construction and held as a capability handle; the core never re-resolves
// a collaborator per call.

package rollup

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/fraudproof"
	"github.com/Hubble-Project/hubble/governance"
	"github.com/Hubble-Project/hubble/log"
	"github.com/Hubble-Project/hubble/merkle"
)

// Clock supplies the chain's notion of height and wall time.
type Clock interface {
	// Height is the current block height; finality deadlines and dispute
	// windows are measured against it.
	Height() uint64

	// Now is the current unix time in seconds, recorded into batches.
	Now() uint64
}

// DepositPool is the deposit-queue collaborator.
type DepositPool interface {
	// FinaliseDeposits folds pending deposits into a depth-d subtree after
	// checking the vacancy witness against the latest state root.
	FinaliseDeposits(depth uint, vacancy merkle.Witness, latestStateRoot types.Hash) (types.Hash, error)

	// Enqueue re-queues a discarded deposit subtree for reprocessing.
	Enqueue(subtreeRoot types.Hash)
}

// AccountSource is the account-registry collaborator.
type AccountSource interface {
	// Root is the current registry root, snapshotted into every batch.
	Root() types.Hash

	// ExistsAt checks a membership witness against a historical root.
	ExistsAt(root types.Hash, accountID uint32, pubkey types.Pubkey, witness merkle.Witness) bool
}

// FraudVerifier replays a batch's transactions for state-transition disputes.
type FraudVerifier interface {
	ProcessBatch(priorRoot types.Hash, blob []byte, proof fraudproof.Proof) (types.Hash, bool, error)
}

// Treasury custodies bonds: escrow at submission, payout at withdrawal or
// challenge, burn on slashing.
type Treasury interface {
	Escrow(payer types.Address, amount *uint256.Int) error
	Payout(recipient types.Address, amount *uint256.Int) error
	Burn(amount *uint256.Int) error
}

// Config wires a Chain to its collaborators.
type Config struct {
	// Coordinator is the sole identity permitted to submit batches.
	Coordinator types.Address

	// GenesisStateRoot seeds batch 0.
	GenesisStateRoot types.Hash

	// Params is the governance-controlled parameter set.
	Params governance.Params

	Clock      Clock
	Deposits   DepositPool
	Accounts   AccountSource
	Signatures crypto.Verifier
	Fraud      FraudVerifier
	Treasury   Treasury

	// Blobs computes transaction-blob content commitments. Optional;
	// defaults to the keccak committer.
	Blobs crypto.BlobCommitter

	// Log is the event sink. Optional; defaults to the process logger.
	Log *log.Logger
}

var errConfigIncomplete = errors.New("rollup: config is missing a collaborator")

func (cfg *Config) validate() error {
	if cfg.Coordinator.IsZero() {
		return ErrZeroCaller
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	if cfg.Clock == nil || cfg.Deposits == nil || cfg.Accounts == nil ||
		cfg.Signatures == nil || cfg.Fraud == nil || cfg.Treasury == nil {
		return errConfigIncomplete
	}
	return nil
}
