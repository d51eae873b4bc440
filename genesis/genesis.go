package genesis

import (
	"encoding/json"
	"math/big"
	"os"

	"github.com/pkg/errors"

	"github.com/vidra-network/vidra-go-node/core/types"
	"github.com/vidra-network/vidra-go-node/helpers"
)

// Genesis is the engine's start-of-chain document: network identity, the
// round the clock starts from, the privileged protocol addresses and the
// initial ledger snapshot.
type Genesis struct {
	ChainID    string `json:"chain_id"`
	StartRound uint64 `json:"start_round"`

	WorkProtocolAddress types.Address `json:"work_protocol_address"`
	RoundClockAddress   types.Address `json:"round_clock_address"`

	AppState types.AppState `json:"app_state"`
}

// Load reads a genesis document from disk
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read genesis %s", path)
	}

	doc := new(Genesis)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "parse genesis %s", path)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Save writes the document next to the node's data directory
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode genesis")
	}

	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write genesis %s", path)
}

// Validate rejects documents the engine cannot start from
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return errors.New("genesis chain_id is empty")
	}
	if g.WorkProtocolAddress.IsZero() {
		return errors.New("genesis work_protocol_address is empty")
	}
	if g.RoundClockAddress.IsZero() {
		return errors.New("genesis round_clock_address is empty")
	}

	if !helpers.IsValidBigInt(g.AppState.TotalMinted) {
		return errors.Errorf("invalid total_minted: %q", g.AppState.TotalMinted)
	}
	if !helpers.IsValidBigInt(g.AppState.TotalBurned) {
		return errors.Errorf("invalid total_burned: %q", g.AppState.TotalBurned)
	}
	for _, account := range g.AppState.Accounts {
		if !helpers.IsValidBigInt(account.Balance) {
			return errors.Errorf("invalid balance %q at %s", account.Balance, account.Address.String())
		}
	}
	for _, delegator := range g.AppState.Delegators {
		if !helpers.IsValidBigInt(delegator.BondedAmount) {
			return errors.Errorf("invalid bonded_amount %q at %s", delegator.BondedAmount, delegator.Address.String())
		}
		if !helpers.IsValidBigInt(delegator.DelegatedAmount) {
			return errors.Errorf("invalid delegated_amount %q at %s", delegator.DelegatedAmount, delegator.Address.String())
		}
	}

	return nil
}

// Testnet returns a self-contained development genesis: one funded faucet
// account plus the two protocol addresses, all supply entered as minted.
func Testnet() *Genesis {
	faucet := types.HexToAddress("Vxee81347211c72524338f9680072af90744333146")
	supply := helpers.VidToAtto(big.NewInt(1000000000))

	return &Genesis{
		ChainID:             "vidra-test-network-1",
		StartRound:          1,
		WorkProtocolAddress: types.HexToAddress("Vxfe60014a6e9ac91618f5d1cab3fd58cded61ee99"),
		RoundClockAddress:   types.HexToAddress("Vxa93163aa20c3f33e54e8b5e298fd45b06dc1d9f8"),
		AppState: types.AppState{
			TotalMinted: supply.String(),
			TotalBurned: "0",
			Accounts: []types.Account{
				{Address: faucet, Balance: supply.String()},
			},
		},
	}
}
