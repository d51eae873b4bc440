package unbonding

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// Item is one withdrawal locked until its round arrives
type Item struct {
	Address types.Address
	Value   *big.Int
}

// Model is the persisted list of withdrawals maturing at one round
type Model struct {
	List []Item

	round     uint64
	deleted   bool
	markDirty func(round uint64)
}

func (m *Model) addItem(address types.Address, value *big.Int) {
	m.List = append(m.List, Item{
		Address: address,
		Value:   big.NewInt(0).Set(value),
	})
	m.markDirty(m.round)
}

func (m *Model) delete() {
	m.deleted = true
	m.markDirty(m.round)
}
