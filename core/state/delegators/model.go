package delegators

import (
	"math/big"
	"sync"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// Model represents a delegator record which is stored on disk. Transcoders
// are self-delegators: their own bond lives in a record like anyone else's.
type Model struct {
	BondedAmount         *big.Int
	DelegateAddress      types.Address
	DelegatedAmount      *big.Int
	StartRound           uint64
	WithdrawRound        uint64
	LastStakeUpdateRound uint64

	address   types.Address
	deleted   bool
	markDirty func(types.Address)
	lock      sync.RWMutex
}

func (model *Model) getBondedAmount() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.BondedAmount == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.BondedAmount)
}

func (model *Model) setBondedAmount(value *big.Int) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.BondedAmount = big.NewInt(0).Set(value)
	model.markDirty(model.address)
}

func (model *Model) getDelegatedAmount() *big.Int {
	model.lock.RLock()
	defer model.lock.RUnlock()

	if model.DelegatedAmount == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.DelegatedAmount)
}

func (model *Model) addDelegatedAmount(value *big.Int) {
	model.lock.Lock()
	defer model.lock.Unlock()

	if model.DelegatedAmount == nil {
		model.DelegatedAmount = big.NewInt(0)
	}

	model.DelegatedAmount = big.NewInt(0).Add(model.DelegatedAmount, value)
	model.markDirty(model.address)
}

func (model *Model) subDelegatedAmount(value *big.Int) {
	model.lock.Lock()
	defer model.lock.Unlock()

	if model.DelegatedAmount == nil {
		model.DelegatedAmount = big.NewInt(0)
	}

	model.DelegatedAmount = big.NewInt(0).Sub(model.DelegatedAmount, value)
	model.markDirty(model.address)
}

func (model *Model) getDelegateAddress() types.Address {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.DelegateAddress
}

func (model *Model) setDelegateAddress(delegate types.Address) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.DelegateAddress = delegate
	model.markDirty(model.address)
}

func (model *Model) getStartRound() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.StartRound
}

func (model *Model) setStartRound(round uint64) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.StartRound = round
	model.markDirty(model.address)
}

func (model *Model) getWithdrawRound() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.WithdrawRound
}

func (model *Model) setWithdrawRound(round uint64) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.WithdrawRound = round
	model.markDirty(model.address)
}

func (model *Model) getLastStakeUpdateRound() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.LastStakeUpdateRound
}

func (model *Model) setLastStakeUpdateRound(round uint64) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.LastStakeUpdateRound = round
	model.markDirty(model.address)
}

func (model *Model) delete() {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.deleted = true
	model.markDirty(model.address)
}
