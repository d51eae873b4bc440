package accounts

import (
	"bytes"
	"fmt"
	"log"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/types"
)

const mainPrefix = byte('b')

// RAccounts is the read-only interface of the balances store
type RAccounts interface {
	GetBalance(address types.Address) *big.Int
	Export(state *types.AppState)
}

// Accounts is a store of base-token balances
type Accounts struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewAccounts(stateBus *bus.Bus, db *iavl.ImmutableTree) *Accounts {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Accounts{
		bus:   stateBus,
		db:    immutableTree,
		list:  map[types.Address]*Model{},
		dirty: map[types.Address]struct{}{},
	}
}

func (a *Accounts) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *Accounts) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (a *Accounts) Commit(db *iavl.MutableTree, version int64) error {
	for _, address := range a.getOrderedDirty() {
		account := a.getFromMap(address)
		path := append([]byte{mainPrefix}, address.Bytes()...)

		a.lock.Lock()
		delete(a.dirty, address)
		a.lock.Unlock()

		account.lock.RLock()
		if account.Balance != nil && account.Balance.Sign() != 0 {
			data, err := rlp.EncodeToBytes(account)
			if err != nil {
				account.lock.RUnlock()
				return fmt.Errorf("can't encode account at %s: %v", address.String(), err)
			}
			db.Set(path, data)
		} else {
			db.Remove(path)

			a.lock.Lock()
			delete(a.list, address)
			a.lock.Unlock()
		}
		account.lock.RUnlock()
	}

	return nil
}

// GetBalance returns the balance of the given account
func (a *Accounts) GetBalance(address types.Address) *big.Int {
	account := a.get(address)
	if account == nil {
		return big.NewInt(0)
	}

	return account.getBalance()
}

// AddBalance adds the given value to the account's balance
func (a *Accounts) AddBalance(address types.Address, value *big.Int) {
	a.getOrNew(address).addBalance(value)
	a.bus.Checker().AddValue(value, "balance")
}

// SubBalance subtracts the given value from the account's balance.
// Balances never go negative: callers check funds before mutating.
func (a *Accounts) SubBalance(address types.Address, value *big.Int) {
	account := a.get(address)
	if account == nil || account.getBalance().Cmp(value) == -1 {
		log.Panicf("Insufficient balance at %s", address.String())
	}

	account.subBalance(value)
	a.bus.Checker().AddValue(big.NewInt(0).Neg(value), "balance")
}

func (a *Accounts) getOrNew(address types.Address) *Model {
	account := a.get(address)
	if account == nil {
		account = &Model{
			Balance:   big.NewInt(0),
			address:   address,
			markDirty: a.markDirty,
		}
		a.setToMap(address, account)
	}

	return account
}

func (a *Accounts) get(address types.Address) *Model {
	if account := a.getFromMap(address); account != nil {
		return account
	}

	path := append([]byte{mainPrefix}, address.Bytes()...)
	_, enc := a.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	account := new(Model)
	if err := rlp.DecodeBytes(enc, account); err != nil {
		panic(fmt.Sprintf("failed to decode account at address %s: %s", address.String(), err))
	}

	account.address = address
	account.markDirty = a.markDirty
	a.setToMap(address, account)

	return account
}

func (a *Accounts) getFromMap(address types.Address) *Model {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.list[address]
}

func (a *Accounts) setToMap(address types.Address, model *Model) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.list[address] = model
}

func (a *Accounts) markDirty(address types.Address) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dirty[address] = struct{}{}
}

func (a *Accounts) getOrderedDirty() []types.Address {
	a.lock.Lock()
	keys := make([]types.Address, 0, len(a.dirty))
	for k := range a.dirty {
		keys = append(keys, k)
	}
	a.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == 1
	})

	return keys
}

// Export exports all data to the given state
func (a *Accounts) Export(state *types.AppState) {
	a.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 || key[0] != mainPrefix {
			return false
		}

		address := types.BytesToAddress(key[1:])
		state.Accounts = append(state.Accounts, types.Account{
			Address: address,
			Balance: a.GetBalance(address).String(),
		})

		return false
	})

	sort.SliceStable(state.Accounts, func(i, j int) bool {
		return state.Accounts[i].Address.Compare(state.Accounts[j].Address) == -1
	})
}
