package app

import (
	"math/big"
	"testing"

	db "github.com/tendermint/tm-db"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/state/checker"
	"github.com/vidra-network/vidra-go-node/tree"
)

func newTestApp(t *testing.T) (*App, tree.MTree) {
	t.Helper()

	b := bus.NewBus()
	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	checker.NewChecker(b)

	return NewApp(b, mutableTree.GetLastImmutable()), mutableTree
}

func TestTotalSupply(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	app.AddTotalMinted(big.NewInt(1000))
	app.AddTotalBurned(big.NewInt(300))

	if got := app.GetTotalSupply(); got.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("wrong total supply: %s", got)
	}
}

func TestAppCommitAndReload(t *testing.T) {
	t.Parallel()
	app, mutableTree := newTestApp(t)

	app.AddTotalMinted(big.NewInt(1000))
	app.AddTotalBurned(big.NewInt(300))

	if _, _, err := mutableTree.Commit(app); err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus()
	checker.NewChecker(b)
	reloaded := NewApp(b, mutableTree.GetLastImmutable())

	if got := reloaded.GetTotalMinted(); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("minted counter lost on reload: %s", got)
	}
	if got := reloaded.GetTotalBurned(); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("burned counter lost on reload: %s", got)
	}
}
