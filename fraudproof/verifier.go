// Package fraudproof implements state-transition replay for disputes. Given
// a batch's prior state root, its raw transaction blob, and per-transaction
// witnesses into the balance tree, ProcessBatch re-applies every transfer
// and returns the recomputed post-state root together with a flag marking
// the batch's transition as inherently invalid (bad transfer semantics, not
// just a wrong claimed root).
//
// The balance tree is indexed by account id: the leaf for account i sits at
// path i and commits to that account's balance and nonce. Witness failures
// are malformed-proof errors, never evidence of fraud.
package fraudproof

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Hubble-Project/hubble/codec"
	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/merkle"
)

var (
	ErrProofLength     = errors.New("fraudproof: step count does not match transaction count")
	ErrSenderWitness   = errors.New("fraudproof: sender witness does not open the prior state")
	ErrReceiverWitness = errors.New("fraudproof: receiver witness does not open the updated state")
	ErrWitnessPath     = errors.New("fraudproof: witness path does not match the transaction account")
)

// StateLeaf is the balance-tree leaf preimage for one account.
type StateLeaf struct {
	Balance uint64
	Nonce   uint64
}

// Hash returns the leaf node committed into the balance tree.
func (l StateLeaf) Hash() types.Hash {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], l.Balance)
	binary.BigEndian.PutUint64(b[8:16], l.Nonce)
	return crypto.Keccak256Hash(b[:])
}

// Step carries the witnesses for replaying one transfer: the sender leaf
// opened against the running root, and the receiver leaf opened against the
// root after the sender update has been applied.
type Step struct {
	Sender          StateLeaf
	SenderWitness   merkle.Witness
	Receiver        StateLeaf
	ReceiverWitness merkle.Witness
}

// Proof accompanies a state-transition dispute: one step per transaction.
type Proof struct {
	Steps []Step
}

// Verifier replays transfer batches. Stateless.
type Verifier struct{}

// NewVerifier returns a replay verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// ProcessBatch replays the blob's transfers on top of priorRoot. It returns
// the recomputed root, and invalid=true when a transfer itself cannot be
// applied (self-transfer, zero amount, insufficient balance, balance
// overflow); in that case the returned root is the state just before the
// offending transfer. Malformed blobs or witnesses return an error instead.
func (v *Verifier) ProcessBatch(priorRoot types.Hash, blob []byte, proof Proof) (types.Hash, bool, error) {
	txs, err := codec.DecodeBatch(blob)
	if err != nil {
		return types.Hash{}, false, fmt.Errorf("fraudproof: %w", err)
	}
	if len(proof.Steps) != len(txs) {
		return types.Hash{}, false, ErrProofLength
	}

	root := priorRoot
	for i, tx := range txs {
		step := proof.Steps[i]

		if step.SenderWitness.Path != uint64(tx.Sender) {
			return types.Hash{}, false, ErrWitnessPath
		}
		if !merkle.VerifyLeaf(root, step.Sender.Hash(), step.SenderWitness) {
			return types.Hash{}, false, ErrSenderWitness
		}

		// Semantic checks: failure here is fraud, not a malformed dispute.
		if tx.Sender == tx.Receiver || tx.Amount == 0 || step.Sender.Balance < tx.Amount {
			return root, true, nil
		}

		sender := StateLeaf{Balance: step.Sender.Balance - tx.Amount, Nonce: step.Sender.Nonce + 1}
		root, err = merkle.UpdateLeafWithSiblings(sender.Hash(), step.SenderWitness.Path, step.SenderWitness.Siblings)
		if err != nil {
			return types.Hash{}, false, fmt.Errorf("fraudproof: %w", err)
		}

		if step.ReceiverWitness.Path != uint64(tx.Receiver) {
			return types.Hash{}, false, ErrWitnessPath
		}
		if !merkle.VerifyLeaf(root, step.Receiver.Hash(), step.ReceiverWitness) {
			return types.Hash{}, false, ErrReceiverWitness
		}

		if step.Receiver.Balance > math.MaxUint64-tx.Amount {
			return root, true, nil
		}

		receiver := StateLeaf{Balance: step.Receiver.Balance + tx.Amount, Nonce: step.Receiver.Nonce}
		root, err = merkle.UpdateLeafWithSiblings(receiver.Hash(), step.ReceiverWitness.Path, step.ReceiverWitness.Siblings)
		if err != nil {
			return types.Hash{}, false, fmt.Errorf("fraudproof: %w", err)
		}
	}

	return root, false, nil
}
