package unbonding

import (
	"math/big"
	"testing"

	db "github.com/tendermint/tm-db"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/state/checker"
	"github.com/vidra-network/vidra-go-node/core/types"
	"github.com/vidra-network/vidra-go-node/tree"
)

func newTestUnbonding(t *testing.T) (*Unbonding, tree.MTree) {
	t.Helper()

	b := bus.NewBus()
	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	checker.NewChecker(b)

	return NewUnbonding(b, mutableTree.GetLastImmutable()), mutableTree
}

func TestUnbondingLockAndTake(t *testing.T) {
	t.Parallel()
	u, _ := newTestUnbonding(t)
	first, second := types.Address{1}, types.Address{2}

	u.Lock(first, 9, big.NewInt(100))
	u.Lock(second, 9, big.NewInt(50))
	u.Lock(first, 9, big.NewInt(25))

	if got := u.AmountAt(first, 9); got.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("wrong locked amount: %s", got)
	}

	if got := u.Take(first, 9); got.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("wrong taken amount: %s", got)
	}
	if got := u.AmountAt(first, 9); got.Sign() != 0 {
		t.Fatal("funds still locked after take")
	}
	if got := u.AmountAt(second, 9); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatal("take touched another address's funds")
	}
}

func TestUnbondingTakeEmptiesRound(t *testing.T) {
	t.Parallel()
	u, mutableTree := newTestUnbonding(t)
	address := types.Address{1}

	u.Lock(address, 9, big.NewInt(100))
	u.Take(address, 9)

	if _, _, err := mutableTree.Commit(u); err != nil {
		t.Fatal(err)
	}
	if u.Get(9) != nil {
		t.Fatal("empty round entry not deleted")
	}

	if got := u.Take(address, 9); got.Sign() != 0 {
		t.Fatal("second take returned funds")
	}
}

func TestUnbondingRoundsAreIndependent(t *testing.T) {
	t.Parallel()
	u, _ := newTestUnbonding(t)
	address := types.Address{1}

	u.Lock(address, 5, big.NewInt(100))
	u.Lock(address, 6, big.NewInt(200))

	if got := u.Take(address, 5); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("wrong amount for round 5: %s", got)
	}
	if got := u.AmountAt(address, 6); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatal("take drained a different round")
	}
}

func TestUnbondingCommitAndReload(t *testing.T) {
	t.Parallel()
	u, mutableTree := newTestUnbonding(t)
	address := types.Address{1}

	u.Lock(address, 9, big.NewInt(100))

	if _, _, err := mutableTree.Commit(u); err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus()
	checker.NewChecker(b)
	reloaded := NewUnbonding(b, mutableTree.GetLastImmutable())

	if got := reloaded.AmountAt(address, 9); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("locked funds lost on reload: %s", got)
	}
}
