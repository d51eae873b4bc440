package app

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/types"
)

const mainPrefix = 'a'

// RApp is the read-only interface of the global counters store
type RApp interface {
	Export(state *types.AppState)
	GetTotalMinted() *big.Int
	GetTotalBurned() *big.Int
	GetTotalSupply() *big.Int
}

// App is a store of global token supply counters
type App struct {
	model   *Model
	isDirty bool

	db atomic.Value

	bus *bus.Bus
	mx  sync.Mutex
}

func NewApp(stateBus *bus.Bus, db *iavl.ImmutableTree) *App {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &App{bus: stateBus, db: immutableTree}
}

func (a *App) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *App) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (a *App) Commit(db *iavl.MutableTree, version int64) error {
	a.mx.Lock()
	defer a.mx.Unlock()

	if !a.isDirty {
		return nil
	}

	a.isDirty = false

	data, err := rlp.EncodeToBytes(a.model)
	if err != nil {
		return fmt.Errorf("can't encode app model: %s", err)
	}

	path := []byte{mainPrefix}
	db.Set(path, data)

	return nil
}

func (a *App) GetTotalMinted() *big.Int {
	return a.getOrNew().getTotalMinted()
}

func (a *App) GetTotalBurned() *big.Int {
	return a.getOrNew().getTotalBurned()
}

// GetTotalSupply returns minted minus burned supply
func (a *App) GetTotalSupply() *big.Int {
	model := a.getOrNew()

	return big.NewInt(0).Sub(model.getTotalMinted(), model.getTotalBurned())
}

// AddTotalMinted increases the minted counter and reports the supply change
func (a *App) AddTotalMinted(value *big.Int) {
	a.getOrNew().addTotalMinted(value)
	a.bus.Checker().AddVolume(value)
}

// AddTotalBurned increases the burned counter and reports the supply change
func (a *App) AddTotalBurned(value *big.Int) {
	a.getOrNew().addTotalBurned(value)
	a.bus.Checker().AddVolume(big.NewInt(0).Neg(value))
}

// SetTotalMinted sets the minted counter on genesis import, without
// touching the checker
func (a *App) SetTotalMinted(value *big.Int) {
	model := a.getOrNew()

	model.mx.Lock()
	model.TotalMinted = big.NewInt(0).Set(value)
	model.mx.Unlock()
	model.markDirty()
}

// SetTotalBurned sets the burned counter on genesis import, without
// touching the checker
func (a *App) SetTotalBurned(value *big.Int) {
	model := a.getOrNew()

	model.mx.Lock()
	model.TotalBurned = big.NewInt(0).Set(value)
	model.mx.Unlock()
	model.markDirty()
}

func (a *App) getOrNew() *Model {
	a.mx.Lock()
	defer a.mx.Unlock()

	if a.model != nil {
		return a.model
	}

	model := &Model{
		TotalMinted: big.NewInt(0),
		TotalBurned: big.NewInt(0),
	}

	if a.immutableTree() != nil {
		path := []byte{mainPrefix}
		_, enc := a.immutableTree().Get(path)
		if len(enc) != 0 {
			if err := rlp.DecodeBytes(enc, model); err != nil {
				panic(fmt.Sprintf("failed to decode app model: %s", err))
			}
		}
	}

	model.markDirty = a.markDirty
	a.model = model

	return a.model
}

func (a *App) markDirty() {
	a.isDirty = true
}

// Export exports all data to the given state
func (a *App) Export(state *types.AppState) {
	state.TotalMinted = a.GetTotalMinted().String()
	state.TotalBurned = a.GetTotalBurned().String()
}
