package delegators

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	db "github.com/tendermint/tm-db"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/state/checker"
	"github.com/vidra-network/vidra-go-node/core/state/ranking"
	"github.com/vidra-network/vidra-go-node/core/state/transcoders"
	"github.com/vidra-network/vidra-go-node/core/types"
	"github.com/vidra-network/vidra-go-node/tree"
)

type harness struct {
	delegators  *Delegators
	transcoders *transcoders.Transcoders
	ranking     *ranking.Ranking
	tree        tree.MTree
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	b := bus.NewBus()
	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	checker.NewChecker(b)
	rankingState := ranking.NewRanking(b, mutableTree.GetLastImmutable(), 5, 5)
	transcodersState := transcoders.NewTranscoders(b, mutableTree.GetLastImmutable())

	return &harness{
		delegators:  NewDelegators(b, mutableTree.GetLastImmutable()),
		transcoders: transcodersState,
		ranking:     rankingState,
		tree:        mutableTree,
	}
}

// registerDelegate makes the address a registered transcoder backed by the
// given total stake
func (h *harness) registerDelegate(address types.Address, stake *big.Int) {
	h.transcoders.GetOrNew(address)
	h.ranking.Add(address, stake)
}

func (h *harness) bond(delegator, delegate types.Address, amount *big.Int, round uint64) {
	h.delegators.AddBonded(delegator, amount)
	h.delegators.SetDelegation(delegator, delegate, round+1)
	h.delegators.SetLastStakeUpdateRound(delegator, round)
}

func TestDelegatorStatusLifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	if h.delegators.Status(delegator, 5) != types.DelegatorUnbonded {
		t.Fatal("unknown address must be Unbonded")
	}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)

	if h.delegators.Status(delegator, 5) != types.DelegatorPending {
		t.Fatal("must be Pending before the start round")
	}
	if h.delegators.Status(delegator, 6) != types.DelegatorBonded {
		t.Fatal("must be Bonded from the start round")
	}

	h.delegators.SetWithdrawRound(delegator, 9)
	if h.delegators.Status(delegator, 7) != types.DelegatorUnbonding {
		t.Fatal("must be Unbonding before the withdraw round")
	}
	if h.delegators.Status(delegator, 9) != types.DelegatorUnbonded {
		t.Fatal("must be Unbonded once the withdraw round arrives")
	}
}

func TestDelegatorStatusCascadesFromDelegate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)

	if h.delegators.Status(delegator, 7) != types.DelegatorBonded {
		t.Fatal("must be Bonded before the slash")
	}

	// delegate slashed at round 7, unbonding period 2
	h.transcoders.SetDelegatorWithdrawRound(delegate, 9)
	h.ranking.Remove(delegate)

	if h.delegators.Status(delegator, 7) != types.DelegatorUnbonding {
		t.Fatal("delegator must inherit Unbonding from the slashed delegate")
	}
	if h.delegators.Status(delegator, 9) != types.DelegatorUnbonded {
		t.Fatal("delegator must become Unbonded at the inherited withdraw round")
	}
}

func TestApplyRewardsScenario(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	// bond 1000 at round 5, delegate earns a 100-unit reward at round 6
	// with a 10% cut: the delegator pool receives 90 against a 1000 snapshot
	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)
	h.transcoders.AddToRewardPool(delegate, 6, big.NewInt(90), big.NewInt(1000))

	applied, err := h.delegators.ApplyRewardsAndFees(delegator, 7, 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 7 {
		t.Fatalf("expected watermark 7, got %d", applied)
	}

	if got := h.delegators.BondedAmount(delegator); got.Cmp(big.NewInt(1090)) != 0 {
		t.Fatalf("expected bonded 1090, got %s", got)
	}
}

func TestApplyRewardsCompounds(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 0)

	// 10% per round against snapshots matching the compounded stake
	h.transcoders.AddToRewardPool(delegate, 1, big.NewInt(100), big.NewInt(1000))
	h.transcoders.AddToRewardPool(delegate, 2, big.NewInt(110), big.NewInt(1100))

	if _, err := h.delegators.ApplyRewardsAndFees(delegator, 2, 2, 0); err != nil {
		t.Fatal(err)
	}

	// round 2's share is computed on the post-round-1 running stake
	if got := h.delegators.BondedAmount(delegator); got.Cmp(big.NewInt(1210)) != 0 {
		t.Fatalf("expected compounded bonded 1210, got %s", got)
	}
}

func TestLazyEquivalence(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate := types.Address{1}
	eager, lazy := types.Address{2}, types.Address{3}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(eager, delegate, big.NewInt(500), 0)
	h.bond(lazy, delegate, big.NewInt(500), 0)

	// 10% per round; snapshots track the compounded total as they do when
	// pools are funded through live minting
	rewards := []int64{100, 110, 121}
	snapshots := []int64{1000, 1100, 1210}
	for round := uint64(1); round <= 3; round++ {
		h.transcoders.AddToRewardPool(delegate, round, big.NewInt(rewards[round-1]), big.NewInt(snapshots[round-1]))

		if _, err := h.delegators.ApplyRewardsAndFees(eager, round, round, 0); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := h.delegators.ApplyRewardsAndFees(lazy, 3, 3, 0); err != nil {
		t.Fatal(err)
	}

	eagerBonded := h.delegators.BondedAmount(eager)
	lazyBonded := h.delegators.BondedAmount(lazy)
	if eagerBonded.Cmp(lazyBonded) != 0 {
		t.Fatalf("eager %s != lazy %s", eagerBonded, lazyBonded)
	}
}

func TestLazyEquivalenceWithFees(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	eagerDelegate, lazyDelegate := types.Address{1}, types.Address{4}
	eager, lazy := types.Address{2}, types.Address{3}

	// two delegates with identical pool schedules so the lazy walk and the
	// round-by-round walk deplete independent pools: a reward round, a fee
	// round, then another reward round computed on the fee-inflated stake
	for _, delegate := range []types.Address{eagerDelegate, lazyDelegate} {
		h.registerDelegate(delegate, big.NewInt(1000))
		h.transcoders.AddToRewardPool(delegate, 1, big.NewInt(100), big.NewInt(1000))
		h.transcoders.AddToFeePool(delegate, 2, big.NewInt(110), big.NewInt(1100))
		h.transcoders.AddToRewardPool(delegate, 3, big.NewInt(121), big.NewInt(1210))
	}
	h.bond(eager, eagerDelegate, big.NewInt(1000), 0)
	h.bond(lazy, lazyDelegate, big.NewInt(1000), 0)

	for round := uint64(1); round <= 3; round++ {
		if _, err := h.delegators.ApplyRewardsAndFees(eager, round, round, 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := h.delegators.ApplyRewardsAndFees(lazy, 3, 3, 0); err != nil {
		t.Fatal(err)
	}

	eagerBonded := h.delegators.BondedAmount(eager)
	lazyBonded := h.delegators.BondedAmount(lazy)
	if eagerBonded.Cmp(lazyBonded) != 0 {
		t.Fatalf("eager %s != lazy %s", eagerBonded, lazyBonded)
	}
	// 1000 + 100 reward + 110 fee, then 121 on the 1210 running stake
	if eagerBonded.Cmp(big.NewInt(1331)) != 0 {
		t.Fatalf("expected bonded 1331, got %s", eagerBonded)
	}
}

func TestApplyRejectedMidWalkLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 0)

	// round 1 pays out, round 2's fee snapshot is smaller than the running
	// stake the walk carries into it, so the walk must reject as a whole
	h.transcoders.AddToRewardPool(delegate, 1, big.NewInt(100), big.NewInt(1000))
	h.transcoders.AddToFeePool(delegate, 2, big.NewInt(60), big.NewInt(1050))

	applied, err := h.delegators.ApplyRewardsAndFees(delegator, 2, 2, 0)
	if err == nil {
		t.Fatal("walk into an undersized fee snapshot must fail")
	}
	if errors.Is(err, ErrMonotonicityViolation) {
		t.Fatalf("wrong error kind: %v", err)
	}
	if applied != 0 {
		t.Fatalf("watermark moved on a rejected walk: %d", applied)
	}

	if got := h.delegators.BondedAmount(delegator); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("principal changed on a rejected walk: %s", got)
	}
	if got := h.delegators.LastStakeUpdateRound(delegator); got != 0 {
		t.Fatalf("stored watermark changed on a rejected walk: %d", got)
	}
	if pool := h.transcoders.GetPool(delegate, 1); pool.GetRewardPool().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("round 1 pool depleted on a rejected walk: %s", pool.GetRewardPool())
	}
}

func TestApplyRewardsMaxRoundsBound(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 0)
	for round := uint64(1); round <= 6; round++ {
		h.transcoders.AddToRewardPool(delegate, round, big.NewInt(10), big.NewInt(1000))
	}

	applied, err := h.delegators.ApplyRewardsAndFees(delegator, 6, 6, 2)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 2 {
		t.Fatalf("expected watermark 2 after bounded pass, got %d", applied)
	}

	for applied < 6 {
		if applied, err = h.delegators.ApplyRewardsAndFees(delegator, 6, 6, 2); err != nil {
			t.Fatal(err)
		}
	}

	if got := h.delegators.BondedAmount(delegator); got.Cmp(big.NewInt(1060)) != 0 {
		t.Fatalf("expected bonded 1060 after catch-up, got %s", got)
	}
}

func TestApplyRewardsMonotonicity(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)

	if _, err := h.delegators.ApplyRewardsAndFees(delegator, 3, 10, 0); !errors.Is(err, ErrMonotonicityViolation) {
		t.Fatalf("expected monotonicity violation, got %v", err)
	}

	// same-round reinvocation is a no-op, not an error
	applied, err := h.delegators.ApplyRewardsAndFees(delegator, 5, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 5 {
		t.Fatalf("expected watermark 5, got %d", applied)
	}
}

func TestApplyRewardsNoOpForUnbondedDelegator(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)
	h.transcoders.AddToRewardPool(delegate, 6, big.NewInt(90), big.NewInt(1000))
	h.delegators.SetWithdrawRound(delegator, 7)

	applied, err := h.delegators.ApplyRewardsAndFees(delegator, 8, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 5 {
		t.Fatal("watermark must not advance for a non-bonded delegator")
	}
	if got := h.delegators.BondedAmount(delegator); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("principal must stay untouched, got %s", got)
	}
}

func TestPendingStakeDoesNotMutate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)
	h.transcoders.AddToRewardPool(delegate, 6, big.NewInt(90), big.NewInt(1000))

	pending := h.delegators.PendingStake(delegator, 7)
	if pending.Cmp(big.NewInt(1090)) != 0 {
		t.Fatalf("expected pending 1090, got %s", pending)
	}

	if got := h.delegators.BondedAmount(delegator); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatal("pending stake estimate mutated the principal")
	}
	if pool := h.transcoders.GetPool(delegate, 6); pool.GetRewardPool().Cmp(big.NewInt(90)) != 0 {
		t.Fatal("pending stake estimate depleted the pool")
	}
}

func TestDelegatorsCommitAndReload(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	delegate, delegator := types.Address{1}, types.Address{2}

	h.registerDelegate(delegate, big.NewInt(1000))
	h.bond(delegator, delegate, big.NewInt(1000), 5)
	h.delegators.AddDelegated(delegate, big.NewInt(1000))

	if _, _, err := h.tree.Commit(h.delegators); err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus()
	checker.NewChecker(b)
	ranking.NewRanking(b, h.tree.GetLastImmutable(), 5, 5)
	transcoders.NewTranscoders(b, h.tree.GetLastImmutable())
	reloaded := NewDelegators(b, h.tree.GetLastImmutable())

	if got := reloaded.BondedAmount(delegator); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("bonded amount lost on reload: %s", got)
	}
	if reloaded.DelegateAddress(delegator) != delegate {
		t.Fatal("delegate address lost on reload")
	}
	if got := reloaded.DelegatedAmount(delegate); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("delegated amount lost on reload: %s", got)
	}

	reloaded.Delete(delegator)
	if _, _, err := h.tree.Commit(reloaded); err != nil {
		t.Fatal(err)
	}
	if reloaded.Exists(delegator) {
		t.Fatal("record still present after delete and commit")
	}
}
