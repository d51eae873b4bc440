package app

import (
	"math/big"
	"sync"
)

type Model struct {
	TotalMinted *big.Int
	TotalBurned *big.Int

	markDirty func()
	mx        sync.RWMutex
}

func (model *Model) getTotalMinted() *big.Int {
	model.mx.RLock()
	defer model.mx.RUnlock()

	if model.TotalMinted == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.TotalMinted)
}

func (model *Model) addTotalMinted(value *big.Int) {
	model.mx.Lock()
	defer model.mx.Unlock()

	if model.TotalMinted == nil {
		model.TotalMinted = big.NewInt(0)
	}

	model.TotalMinted.Add(model.TotalMinted, value)
	model.markDirty()
}

func (model *Model) getTotalBurned() *big.Int {
	model.mx.RLock()
	defer model.mx.RUnlock()

	if model.TotalBurned == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(model.TotalBurned)
}

func (model *Model) addTotalBurned(value *big.Int) {
	model.mx.Lock()
	defer model.mx.Unlock()

	if model.TotalBurned == nil {
		model.TotalBurned = big.NewInt(0)
	}

	model.TotalBurned.Add(model.TotalBurned, value)
	model.markDirty()
}
