package rollup

import (
	"fmt"

	"github.com/Hubble-Project/hubble/codec"
	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/fraudproof"
	"github.com/Hubble-Project/hubble/merkle"
)

// SignatureProof accompanies a signature dispute: for every transaction in
// the blob, the sender's public key and its membership witness against the
// account root recorded in the disputed batch.
type SignatureProof struct {
	Pubkeys   []types.Pubkey
	Witnesses []merkle.Witness
}

// DisputeTxRoot challenges a batch's claimed transaction root. The supplied
// blob must hash to the batch's content commitment; the root is then
// recomputed over the blob's per-transaction leaves. A mismatch flags the
// batch invalid and runs the rollback engine once with the given budget; a
// match is a pure no-op. Disputing is permissionless.
func (c *Chain) DisputeTxRoot(challenger types.Address, batchID uint64, blob []byte, budget uint64) (*RollbackReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch, err := c.disputable(challenger, batchID, budget)
	if err != nil {
		return nil, err
	}
	slots, err := c.boundSlots(batch, blob)
	if err != nil {
		return nil, err
	}

	root, err := merkle.RootOfRawLeaves(slots)
	if err != nil {
		return nil, fmt.Errorf("rollup: tx root: %w", err)
	}
	if root == batch.TxRoot {
		return nil, nil
	}

	c.flagInvalid(batchID, "tx root mismatch", "claimed", batch.TxRoot, "actual", root)
	return c.settle(challenger, budget)
}

// DisputeSignature challenges a batch's aggregate signature. Every
// transaction's sender must be proven a member of the account registry as
// snapshotted by the batch; a membership failure rejects the dispute as
// malformed rather than slashing the batch. With all memberships accepted,
// the aggregate signature is verified over the derived message points; a
// verification failure flags the batch invalid.
func (c *Chain) DisputeSignature(challenger types.Address, batchID uint64, blob []byte, proof SignatureProof, budget uint64) (*RollbackReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch, err := c.disputable(challenger, batchID, budget)
	if err != nil {
		return nil, err
	}
	slots, err := c.boundSlots(batch, blob)
	if err != nil {
		return nil, err
	}
	if len(proof.Pubkeys) != len(slots) || len(proof.Witnesses) != len(slots) {
		return nil, ErrSignatureProofShape
	}

	messages := make([][]byte, len(slots))
	for i, slot := range slots {
		sender, err := codec.SenderOf(blob, i)
		if err != nil {
			return nil, err
		}
		if !c.accounts.ExistsAt(batch.AccountRoot, sender, proof.Pubkeys[i], proof.Witnesses[i]) {
			return nil, ErrMembershipProof
		}
		messages[i] = c.sigs.MapToMessage(slot)
	}

	if c.sigs.VerifyAggregate(batch.Signature, proof.Pubkeys, messages) {
		return nil, nil
	}

	c.flagInvalid(batchID, "aggregate signature invalid")
	return c.settle(challenger, budget)
}

// DisputeBatch challenges a batch's state transition by full replay. The
// fraud-proof verifier re-applies the blob's transactions on top of the
// prior batch's state root; the batch is flagged invalid if the replay
// reports an inherently invalid transition or recomputes a different root
// than the one committed.
func (c *Chain) DisputeBatch(challenger types.Address, batchID uint64, blob []byte, proof fraudproof.Proof, budget uint64) (*RollbackReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch, err := c.disputable(challenger, batchID, budget)
	if err != nil {
		return nil, err
	}
	if _, err := c.boundSlots(batch, blob); err != nil {
		return nil, err
	}

	prior := c.ledger[batchID-1]
	root, invalid, err := c.fraud.ProcessBatch(prior.StateRoot, blob, proof)
	if err != nil {
		return nil, err
	}
	if !invalid && root == batch.StateRoot {
		return nil, nil
	}

	c.flagInvalid(batchID, "state transition fraud", "claimed", batch.StateRoot, "recomputed", root, "invalidTransition", invalid)
	return c.settle(challenger, budget)
}

// disputable runs the common precondition block of all three dispute entry
// points and returns the targeted batch. Caller holds the lock.
func (c *Chain) disputable(challenger types.Address, batchID uint64, budget uint64) (*Batch, error) {
	if challenger.IsZero() {
		return nil, ErrZeroCaller
	}
	if budget < c.params.MinRollbackBudget {
		return nil, ErrBudgetTooSmall
	}
	b, ok := c.ledger[batchID]
	if !ok {
		return nil, ErrUnknownBatch
	}
	if !b.Live() {
		return nil, ErrBatchInert
	}
	if c.clock.Height() >= b.FinalisesOn {
		return nil, ErrBatchFinalized
	}
	if !c.marker.Idle() && batchID >= c.marker.Target {
		return nil, ErrBatchSuperseded
	}
	if b.TxCommit.IsZero() {
		return nil, ErrDepositBatch
	}
	return b, nil
}

// boundSlots binds the supplied blob to the batch's content commitment and
// splits it into transaction slots. Caller holds the lock.
func (c *Chain) boundSlots(batch *Batch, blob []byte) ([][]byte, error) {
	commit, err := c.blobs.Commit(blob)
	if err != nil {
		return nil, fmt.Errorf("rollup: blob commitment: %w", err)
	}
	if commit != batch.TxCommit {
		return nil, ErrBlobMismatch
	}
	return codec.Slots(blob)
}

// flagInvalid freezes submission and aims the rollback engine at batchID.
// Caller holds the lock.
func (c *Chain) flagInvalid(batchID uint64, reason string, fields ...any) {
	c.marker = RollbackMarker{Active: true, Target: batchID}
	args := append([]any{"id", batchID, "reason", reason}, fields...)
	c.log.Warn("batch flagged invalid", args...)
}
