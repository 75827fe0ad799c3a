package rollup

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/Hubble-Project/hubble/codec"
	"github.com/Hubble-Project/hubble/core/types"
	"github.com/Hubble-Project/hubble/crypto"
	"github.com/Hubble-Project/hubble/deposits"
	"github.com/Hubble-Project/hubble/fraudproof"
	"github.com/Hubble-Project/hubble/governance"
	"github.com/Hubble-Project/hubble/merkle"
	"github.com/Hubble-Project/hubble/registry"
	"github.com/Hubble-Project/hubble/treasury"
)

var (
	coordinator = types.HexToAddress("0xc0de")
	challenger  = types.HexToAddress("0xca11")
	stranger    = types.HexToAddress("0xbeef")
)

type testClock struct {
	height uint64
	now    uint64
}

func (c *testClock) Height() uint64 { return c.height }
func (c *testClock) Now() uint64    { return c.now }

// env wires a chain to real collaborators: an in-memory treasury, the
// deposit manager, a four-account registry and the reference signature
// scheme.
type env struct {
	t       *testing.T
	chain   *Chain
	clock   *testClock
	bank    *treasury.Treasury
	pool    *deposits.Manager
	reg     *registry.AccountRegistry
	sigs    *crypto.ReferenceVerifier
	pubkeys []types.Pubkey
	params  governance.Params
}

func newEnv(t *testing.T) *env {
	return newEnvWithGenesis(t, types.HexToHash("0x9e4e515"), 1_000_000)
}

func newEnvWithGenesis(t *testing.T, genesis types.Hash, funds uint64) *env {
	t.Helper()

	reg, err := registry.New(4)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	e := &env{
		t:     t,
		clock: &testClock{height: 1000, now: 1_700_000_000},
		bank:  treasury.New(),
		pool:  deposits.NewManager(),
		reg:   reg,
		sigs:  &crypto.ReferenceVerifier{},
		params: governance.Params{
			StakeAmount:       uint256.NewInt(900),
			MaxTxsPerBatch:    4,
			FinalityDelay:     100,
			MinRollbackBudget: 1,
		},
	}
	for i := 0; i < 4; i++ {
		var pk types.Pubkey
		pk[0] = byte(i + 1)
		if _, err := reg.Register(pk); err != nil {
			t.Fatalf("register: %v", err)
		}
		e.pubkeys = append(e.pubkeys, pk)
	}
	if err := e.bank.Mint(coordinator, uint256.NewInt(funds)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	e.chain, err = NewChain(Config{
		Coordinator:      coordinator,
		GenesisStateRoot: genesis,
		Params:           e.params,
		Clock:            e.clock,
		Deposits:         e.pool,
		Accounts:         reg,
		Signatures:       e.sigs,
		Fraud:            fraudproof.NewVerifier(),
		Treasury:         e.bank,
	})
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	return e
}

func (e *env) bond() *uint256.Int {
	return new(uint256.Int).Set(e.params.StakeAmount)
}

// signedBlob encodes the transfers and produces the honest transaction root
// and aggregate signature for them.
func (e *env) signedBlob(txs []codec.Tx) (blob []byte, txRoot types.Hash, sig types.Signature) {
	e.t.Helper()
	blob = codec.EncodeBatch(txs)
	slots, err := codec.Slots(blob)
	if err != nil {
		e.t.Fatalf("slots: %v", err)
	}
	txRoot, err = merkle.RootOfRawLeaves(slots)
	if err != nil {
		e.t.Fatalf("tx root: %v", err)
	}
	pks := make([]types.Pubkey, len(txs))
	msgs := make([][]byte, len(txs))
	for i, tx := range txs {
		pks[i] = e.pubkeys[tx.Sender]
		msgs[i] = e.sigs.MapToMessage(slots[i])
	}
	return blob, txRoot, e.sigs.SignAggregate(pks, msgs)
}

// submit commits an honestly signed batch claiming the given state root.
func (e *env) submit(txs []codec.Tx, stateRoot types.Hash) (uint64, []byte) {
	e.t.Helper()
	blob, txRoot, sig := e.signedBlob(txs)
	id, err := e.chain.SubmitBatch(coordinator, blob, txRoot, stateRoot, sig, e.bond())
	if err != nil {
		e.t.Fatalf("submit: %v", err)
	}
	return id, blob
}

// membershipProof builds the signature-dispute proof an honest challenger
// would attach: sender pubkeys plus registry witnesses.
func (e *env) membershipProof(txs []codec.Tx) SignatureProof {
	e.t.Helper()
	proof := SignatureProof{
		Pubkeys:   make([]types.Pubkey, len(txs)),
		Witnesses: make([]merkle.Witness, len(txs)),
	}
	for i, tx := range txs {
		proof.Pubkeys[i] = e.pubkeys[tx.Sender]
		w, err := e.reg.WitnessFor(tx.Sender)
		if err != nil {
			e.t.Fatalf("witness: %v", err)
		}
		proof.Witnesses[i] = w
	}
	return proof
}

func TestGenesisLedger(t *testing.T) {
	e := newEnv(t)

	if tip := e.chain.Tip(); tip != 1 {
		t.Fatalf("tip = %d, want 1", tip)
	}
	if !e.chain.Marker().Idle() {
		t.Fatal("fresh chain must have an idle marker")
	}

	genesis, err := e.chain.BatchAt(0)
	if err != nil {
		t.Fatalf("genesis batch: %v", err)
	}
	if genesis.Live() {
		t.Fatal("genesis batch must carry no stake")
	}
	if genesis.AccountRoot != e.reg.Root() {
		t.Fatal("genesis must snapshot the registry root")
	}
	if _, err := e.chain.BatchAt(5); err != ErrUnknownBatch {
		t.Fatalf("expected ErrUnknownBatch, got %v", err)
	}
}

func TestNewChainConfigValidation(t *testing.T) {
	e := newEnv(t)

	cfg := Config{
		Coordinator:      coordinator,
		GenesisStateRoot: types.HexToHash("0x01"),
		Params:           e.params,
		Clock:            e.clock,
		Deposits:         e.pool,
		Accounts:         e.reg,
		Signatures:       e.sigs,
		Fraud:            fraudproof.NewVerifier(),
		Treasury:         e.bank,
	}

	bad := cfg
	bad.Coordinator = types.Address{}
	if _, err := NewChain(bad); err != ErrZeroCaller {
		t.Fatalf("expected ErrZeroCaller, got %v", err)
	}

	bad = cfg
	bad.Clock = nil
	if _, err := NewChain(bad); err != errConfigIncomplete {
		t.Fatalf("expected errConfigIncomplete, got %v", err)
	}

	bad = cfg
	bad.Params.StakeAmount = uint256.NewInt(0)
	if _, err := NewChain(bad); err != governance.ErrZeroStake {
		t.Fatalf("expected ErrZeroStake, got %v", err)
	}
}

func TestSubmitBatchRecords(t *testing.T) {
	e := newEnv(t)
	txs := []codec.Tx{{Sender: 0, Receiver: 1, Amount: 10}}
	stateRoot := types.HexToHash("0x02")

	id, _ := e.submit(txs, stateRoot)
	if id != 1 {
		t.Fatalf("batch id = %d, want 1", id)
	}
	if tip := e.chain.Tip(); tip != 2 {
		t.Fatalf("tip = %d, want 2", tip)
	}

	b, err := e.chain.BatchAt(id)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if b.Committer != coordinator {
		t.Fatal("committer mismatch")
	}
	if b.StateRoot != stateRoot {
		t.Fatal("state root mismatch")
	}
	if b.AccountRoot != e.reg.Root() {
		t.Fatal("account root not snapshotted")
	}
	if !b.Live() || !b.Stake.Eq(e.params.StakeAmount) {
		t.Fatal("stake not recorded")
	}
	if want := e.clock.height + e.params.FinalityDelay; b.FinalisesOn != want {
		t.Fatalf("finalisesOn = %d, want %d", b.FinalisesOn, want)
	}
	if !e.bank.Escrowed().Eq(e.params.StakeAmount) {
		t.Fatal("bond not escrowed")
	}
}

func TestSubmitBatchRejections(t *testing.T) {
	e := newEnv(t)
	blob, txRoot, sig := e.signedBlob([]codec.Tx{{Sender: 0, Receiver: 1, Amount: 10}})
	root := types.HexToHash("0x02")

	if _, err := e.chain.SubmitBatch(stranger, blob, txRoot, root, sig, e.bond()); err != ErrNotCoordinator {
		t.Fatalf("expected ErrNotCoordinator, got %v", err)
	}
	if _, err := e.chain.SubmitBatch(coordinator, blob, txRoot, root, sig, nil); err != ErrInsufficientBond {
		t.Fatalf("expected ErrInsufficientBond for nil bond, got %v", err)
	}
	if _, err := e.chain.SubmitBatch(coordinator, blob, txRoot, root, sig, uint256.NewInt(899)); err != ErrInsufficientBond {
		t.Fatalf("expected ErrInsufficientBond, got %v", err)
	}
	if _, err := e.chain.SubmitBatch(coordinator, nil, txRoot, root, sig, e.bond()); err != codec.ErrEmptyBlob {
		t.Fatalf("expected ErrEmptyBlob, got %v", err)
	}
	if _, err := e.chain.SubmitBatch(coordinator, blob[:len(blob)-1], txRoot, root, sig, e.bond()); err != codec.ErrTrailingBytes {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}

	big := make([]codec.Tx, e.params.MaxTxsPerBatch+1)
	for i := range big {
		big[i] = codec.Tx{Sender: 0, Receiver: 1, Amount: 1}
	}
	bigBlob, bigRoot, bigSig := e.signedBlob(big)
	if _, err := e.chain.SubmitBatch(coordinator, bigBlob, bigRoot, root, bigSig, e.bond()); err != ErrBatchTooLarge {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}

	if _, err := e.chain.SubmitBatch(coordinator, blob, txRoot, root, types.Signature{}, e.bond()); err != ErrSignatureMalformed {
		t.Fatalf("expected ErrSignatureMalformed, got %v", err)
	}

	if tip := e.chain.Tip(); tip != 1 {
		t.Fatalf("rejected submissions must not advance the tip, tip = %d", tip)
	}
}

func TestSubmitBatchUnfundedCoordinator(t *testing.T) {
	e := newEnvWithGenesis(t, types.HexToHash("0x01"), 100)
	blob, txRoot, sig := e.signedBlob([]codec.Tx{{Sender: 0, Receiver: 1, Amount: 10}})

	_, err := e.chain.SubmitBatch(coordinator, blob, txRoot, types.HexToHash("0x02"), sig, e.bond())
	if !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestWithdrawStake(t *testing.T) {
	e := newEnv(t)
	id, _ := e.submit([]codec.Tx{{Sender: 0, Receiver: 1, Amount: 10}}, types.HexToHash("0x02"))
	b, _ := e.chain.BatchAt(id)

	before := e.bank.BalanceOf(coordinator)
	e.clock.height = b.FinalisesOn + 1

	if err := e.chain.WithdrawStake(coordinator, id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	after := e.bank.BalanceOf(coordinator)
	if got := new(uint256.Int).Sub(after, before); !got.Eq(e.params.StakeAmount) {
		t.Fatalf("withdrawn %s, want %s", got, e.params.StakeAmount)
	}
	if !e.bank.Escrowed().IsZero() {
		t.Fatal("escrow pool should be empty")
	}

	withdrawn, _ := e.chain.BatchAt(id)
	if withdrawn.Live() {
		t.Fatal("withdrawn batch must be inert")
	}
	if err := e.chain.WithdrawStake(coordinator, id); err != ErrBatchInert {
		t.Fatalf("second withdraw: expected ErrBatchInert, got %v", err)
	}
}

func TestWithdrawStakeGuards(t *testing.T) {
	e := newEnv(t)
	id, _ := e.submit([]codec.Tx{{Sender: 0, Receiver: 1, Amount: 10}}, types.HexToHash("0x02"))
	b, _ := e.chain.BatchAt(id)

	if err := e.chain.WithdrawStake(coordinator, 99); err != ErrUnknownBatch {
		t.Fatalf("expected ErrUnknownBatch, got %v", err)
	}
	if err := e.chain.WithdrawStake(coordinator, 0); err != ErrBatchInert {
		t.Fatalf("genesis: expected ErrBatchInert, got %v", err)
	}
	if err := e.chain.WithdrawStake(stranger, id); err != ErrNotCommitter {
		t.Fatalf("expected ErrNotCommitter, got %v", err)
	}
	if err := e.chain.WithdrawStake(coordinator, id); err != ErrNotYetFinal {
		t.Fatalf("before deadline: expected ErrNotYetFinal, got %v", err)
	}

	// The deadline height itself is still disputable.
	e.clock.height = b.FinalisesOn
	if err := e.chain.WithdrawStake(coordinator, id); err != ErrNotYetFinal {
		t.Fatalf("at deadline: expected ErrNotYetFinal, got %v", err)
	}
}

// vacantGenesis builds a depth-4 state root whose right depth-3 subtree is
// empty, plus the vacancy witness for it.
func vacantGenesis(t *testing.T) (types.Hash, merkle.Witness) {
	t.Helper()
	occupied, err := merkle.RootAtDepth([]types.Hash{merkle.HashLeaf([]byte("acct"))}, 3)
	if err != nil {
		t.Fatalf("left subtree: %v", err)
	}
	root, err := merkle.UpdateLeafWithSiblings(merkle.ZeroHash(3), 1, []types.Hash{occupied})
	if err != nil {
		t.Fatalf("state root: %v", err)
	}
	return root, merkle.Witness{Path: 1, Siblings: []types.Hash{occupied}}
}

func TestFinaliseDepositsAndSubmitBatch(t *testing.T) {
	genesis, vacancy := vacantGenesis(t)
	e := newEnvWithGenesis(t, genesis, 1_000_000)

	deps := []deposits.Deposit{
		{Recipient: 0, Amount: 50},
		{Recipient: 1, Amount: 75},
	}
	for _, d := range deps {
		if _, err := e.pool.Submit(d); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	id, err := e.chain.FinaliseDepositsAndSubmitBatch(coordinator, 3, vacancy, e.bond())
	if err != nil {
		t.Fatalf("deposit batch: %v", err)
	}

	b, _ := e.chain.BatchAt(id)
	subtree, _ := merkle.RootAtDepth([]types.Hash{deps[0].Leaf(), deps[1].Leaf()}, 3)
	if b.DepositRoot != subtree || b.TxRoot != subtree {
		t.Fatal("deposit batch must commit the packed subtree root")
	}
	if !b.TxCommit.IsZero() || !b.Signature.IsZero() {
		t.Fatal("deposit batch carries no blob commitment and no signature")
	}
	wantState, _ := merkle.UpdateLeafWithSiblings(subtree, vacancy.Path, vacancy.Siblings)
	if b.StateRoot != wantState {
		t.Fatal("deposit batch state root must splice the subtree into the vacancy")
	}

	if _, err := e.chain.DisputeTxRoot(challenger, id, nil, 1); err != ErrDepositBatch {
		t.Fatalf("expected ErrDepositBatch, got %v", err)
	}
}

func TestFinaliseDepositsGuards(t *testing.T) {
	genesis, vacancy := vacantGenesis(t)
	e := newEnvWithGenesis(t, genesis, 1_000_000)

	if _, err := e.chain.FinaliseDepositsAndSubmitBatch(stranger, 3, vacancy, e.bond()); err != ErrNotCoordinator {
		t.Fatalf("expected ErrNotCoordinator, got %v", err)
	}
	if _, err := e.chain.FinaliseDepositsAndSubmitBatch(coordinator, 3, vacancy, uint256.NewInt(1)); err != ErrInsufficientBond {
		t.Fatalf("expected ErrInsufficientBond, got %v", err)
	}
	if _, err := e.chain.FinaliseDepositsAndSubmitBatch(coordinator, 3, vacancy, e.bond()); !errors.Is(err, deposits.ErrNoDeposits) {
		t.Fatalf("expected ErrNoDeposits, got %v", err)
	}
}
