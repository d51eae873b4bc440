package accounts

import (
	"math/big"
	"testing"

	db "github.com/tendermint/tm-db"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/state/checker"
	"github.com/vidra-network/vidra-go-node/core/types"
	"github.com/vidra-network/vidra-go-node/tree"
)

func newTestAccounts(t *testing.T) (*Accounts, tree.MTree) {
	t.Helper()

	b := bus.NewBus()
	mutableTree, err := tree.NewMutableTree(0, db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	checker.NewChecker(b)

	return NewAccounts(b, mutableTree.GetLastImmutable()), mutableTree
}

func TestAccountsBalance(t *testing.T) {
	t.Parallel()
	accounts, _ := newTestAccounts(t)
	address := types.Address{1}

	if got := accounts.GetBalance(address); got.Sign() != 0 {
		t.Fatal("unknown account must have zero balance")
	}

	accounts.AddBalance(address, big.NewInt(100))
	accounts.SubBalance(address, big.NewInt(40))

	if got := accounts.GetBalance(address); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("wrong balance: %s", got)
	}
}

func TestAccountsSubBeyondBalancePanics(t *testing.T) {
	t.Parallel()
	accounts, _ := newTestAccounts(t)
	address := types.Address{1}

	accounts.AddBalance(address, big.NewInt(10))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overdraft")
		}
	}()
	accounts.SubBalance(address, big.NewInt(11))
}

func TestAccountsCommitAndReload(t *testing.T) {
	t.Parallel()
	accounts, mutableTree := newTestAccounts(t)
	kept, emptied := types.Address{1}, types.Address{2}

	accounts.AddBalance(kept, big.NewInt(100))
	accounts.AddBalance(emptied, big.NewInt(50))
	accounts.SubBalance(emptied, big.NewInt(50))

	if _, _, err := mutableTree.Commit(accounts); err != nil {
		t.Fatal(err)
	}

	b := bus.NewBus()
	checker.NewChecker(b)
	reloaded := NewAccounts(b, mutableTree.GetLastImmutable())

	if got := reloaded.GetBalance(kept); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance lost on reload: %s", got)
	}

	state := new(types.AppState)
	reloaded.Export(state)
	if len(state.Accounts) != 1 {
		t.Fatalf("zero balance kept in export: %v", state.Accounts)
	}
}
