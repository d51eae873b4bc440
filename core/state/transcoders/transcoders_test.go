package transcoders

import (
	"math/big"
	"testing"

	db "github.com/tendermint/tm-db"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/state/checker"
	"github.com/vidra-network/vidra-go-node/core/state/ranking"
	"github.com/vidra-network/vidra-go-node/core/types"
	"github.com/vidra-network/vidra-go-node/tree"
)

func newTestTranscoders(t *testing.T) (*Transcoders, *ranking.Ranking, tree.MTree) {
	t.Helper()

	b := bus.NewBus()
	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	checker.NewChecker(b)
	rankingState := ranking.NewRanking(b, mutableTree.GetLastImmutable(), 5, 5)
	transcodersState := NewTranscoders(b, mutableTree.GetLastImmutable())

	return transcodersState, rankingState, mutableTree
}

func TestTranscoderRatesCommitAtTransition(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestTranscoders(t)
	address := types.Address{1}

	ts.SetPendingRates(address, 100000, 250000, big.NewInt(5))

	if cut, _, _ := ts.GetRates(address); cut != 0 {
		t.Fatal("pending rates leaked into force before transition")
	}

	ts.CommitRates(address)

	cut, share, price := ts.GetRates(address)
	if cut != 100000 || share != 250000 || price.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("rates not committed: %d %d %s", cut, share, price)
	}
}

func TestTranscoderStatus(t *testing.T) {
	t.Parallel()
	ts, rankingState, _ := newTestTranscoders(t)
	address := types.Address{1}

	if ts.Status(address, 5) != types.TranscoderNotRegistered {
		t.Fatal("unknown address must be NotRegistered")
	}

	ts.GetOrNew(address)
	rankingState.Add(address, big.NewInt(100))
	if ts.Status(address, 5) != types.TranscoderRegistered {
		t.Fatal("pool member must be Registered")
	}

	ts.SetDelegatorWithdrawRound(address, 8)
	rankingState.Remove(address)
	if ts.Status(address, 5) != types.TranscoderResigned {
		t.Fatal("must be Resigned before the withdraw round")
	}
	if ts.Status(address, 8) != types.TranscoderNotRegistered {
		t.Fatal("must be NotRegistered once the withdraw round arrives")
	}
}

func TestPoolFreezesTotalStake(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestTranscoders(t)
	address := types.Address{1}

	ts.AddToRewardPool(address, 3, big.NewInt(90), big.NewInt(1000))
	// later funding in the same round must not move the snapshot
	ts.AddToRewardPool(address, 3, big.NewInt(10), big.NewInt(5000))

	pool := ts.GetPool(address, 3)
	if pool.GetTotalStake().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("snapshot moved: %s", pool.GetTotalStake())
	}
	if pool.GetRewardPool().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("wrong reward pool: %s", pool.GetRewardPool())
	}
}

func TestClaimPoolShares(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestTranscoders(t)
	address := types.Address{1}

	ts.AddToRewardPool(address, 3, big.NewInt(90), big.NewInt(1000))
	ts.AddToFeePool(address, 3, big.NewInt(60), big.NewInt(1000))

	reward, fee, err := ts.ClaimPoolShares(address, 3, big.NewInt(500))
	if err != nil {
		t.Fatal(err)
	}
	if reward.Cmp(big.NewInt(45)) != 0 {
		t.Fatalf("wrong reward share: %s", reward)
	}
	if fee.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("wrong fee share: %s", fee)
	}

	pool := ts.GetPool(address, 3)
	if pool.GetRewardPool().Cmp(big.NewInt(45)) != 0 {
		t.Fatalf("reward pool not depleted: %s", pool.GetRewardPool())
	}
	if pool.GetFeePool().Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("fee pool not depleted: %s", pool.GetFeePool())
	}
	if pool.GetStakeRemaining().Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("stake remaining not depleted: %s", pool.GetStakeRemaining())
	}
}

func TestClaimBeyondStakeRemainingFails(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestTranscoders(t)
	address := types.Address{1}

	ts.AddToRewardPool(address, 3, big.NewInt(90), big.NewInt(1000))
	ts.AddToFeePool(address, 3, big.NewInt(60), big.NewInt(1000))

	if _, _, err := ts.ClaimPoolShares(address, 3, big.NewInt(800)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ts.ClaimPoolShares(address, 3, big.NewInt(300)); err == nil {
		t.Fatal("claim beyond stake remaining must fail")
	}

	// the failed claim must not deplete anything, reward pool included
	pool := ts.GetPool(address, 3)
	if pool.GetStakeRemaining().Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("partial depletion after failed claim: %s", pool.GetStakeRemaining())
	}
	if pool.GetRewardPool().Cmp(big.NewInt(18)) != 0 {
		t.Fatalf("reward pool depleted by failed claim: %s", pool.GetRewardPool())
	}
}

func TestClaimFromMissingPoolIsZero(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestTranscoders(t)

	reward, fee, err := ts.ClaimPoolShares(types.Address{1}, 7, big.NewInt(100))
	if err != nil {
		t.Fatal(err)
	}
	if reward.Sign() != 0 || fee.Sign() != 0 {
		t.Fatal("claim from a missing pool must be zero")
	}
}

func TestTranscodersCommitAndReload(t *testing.T) {
	t.Parallel()
	ts, _, mutableTree := newTestTranscoders(t)
	address := types.Address{1}

	ts.SetPendingRates(address, 100000, 250000, big.NewInt(5))
	ts.CommitRates(address)
	ts.SetLastRewardRound(address, 4)
	ts.AddToRewardPool(address, 4, big.NewInt(90), big.NewInt(1000))

	if _, _, err := mutableTree.Commit(ts); err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus()
	checker.NewChecker(b)
	ranking.NewRanking(b, mutableTree.GetLastImmutable(), 5, 5)
	reloaded := NewTranscoders(b, mutableTree.GetLastImmutable())

	cut, _, _ := reloaded.GetRates(address)
	if cut != 100000 {
		t.Fatalf("rates lost on reload: %d", cut)
	}
	if reloaded.GetLastRewardRound(address) != 4 {
		t.Fatal("last reward round lost on reload")
	}

	pool := reloaded.GetPool(address, 4)
	if pool == nil || pool.GetRewardPool().Cmp(big.NewInt(90)) != 0 {
		t.Fatal("pool lost on reload")
	}
}
