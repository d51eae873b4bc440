package accounts

import (
	"math/big"
	"sync"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// Model of an account with its base-token balance
type Model struct {
	Balance *big.Int

	address   types.Address
	markDirty func(types.Address)
	lock      sync.RWMutex
}

func (model *Model) getBalance() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.Balance == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.Balance)
}

func (model *Model) addBalance(value *big.Int) {
	model.lock.Lock()
	defer model.lock.Unlock()

	if model.Balance == nil {
		model.Balance = big.NewInt(0)
	}

	model.Balance = big.NewInt(0).Add(model.Balance, value)
	model.markDirty(model.address)
}

func (model *Model) subBalance(value *big.Int) {
	model.lock.Lock()
	defer model.lock.Unlock()

	if model.Balance == nil {
		model.Balance = big.NewInt(0)
	}

	model.Balance = big.NewInt(0).Sub(model.Balance, value)
	model.markDirty(model.address)
}
