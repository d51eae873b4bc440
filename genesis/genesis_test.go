package genesis

import (
	"path/filepath"
	"testing"

	"github.com/vidra-network/vidra-go-node/core/types"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Testnet().Validate(); err != nil {
		t.Fatal(err)
	}

	doc := Testnet()
	doc.ChainID = ""
	if doc.Validate() == nil {
		t.Fatal("empty chain_id must be rejected")
	}

	doc = Testnet()
	doc.AppState.TotalMinted = "-5"
	if doc.Validate() == nil {
		t.Fatal("negative total_minted must be rejected")
	}

	doc = Testnet()
	doc.AppState.Accounts[0].Balance = "lots"
	if doc.Validate() == nil {
		t.Fatal("malformed balance must be rejected")
	}

	doc = Testnet()
	doc.AppState.Delegators = []types.Delegator{{
		Address:         types.Address{1},
		BondedAmount:    "100",
		DelegateAddress: types.Address{2},
		DelegatedAmount: "",
	}}
	if doc.Validate() == nil {
		t.Fatal("empty delegated_amount must be rejected")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := Testnet().Save(path); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ChainID != Testnet().ChainID {
		t.Fatalf("chain_id lost on reload: %s", doc.ChainID)
	}
	if doc.AppState.TotalMinted != Testnet().AppState.TotalMinted {
		t.Fatal("total_minted lost on reload")
	}
}
