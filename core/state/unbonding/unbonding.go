package unbonding

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/types"
)

const mainPrefix = byte('f')

// RUnbonding is the read-only interface of the unbonding store
type RUnbonding interface {
	Get(round uint64) *Model
	AmountAt(address types.Address, round uint64) *big.Int
	Export(state *types.AppState)
}

// Unbonding is the store of funds locked through the unbonding period,
// keyed by the round at which they become withdrawable.
type Unbonding struct {
	list  map[uint64]*Model
	dirty map[uint64]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewUnbonding(stateBus *bus.Bus, db *iavl.ImmutableTree) *Unbonding {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Unbonding{
		bus:   stateBus,
		db:    immutableTree,
		list:  map[uint64]*Model{},
		dirty: map[uint64]struct{}{},
	}
}

func (u *Unbonding) immutableTree() *iavl.ImmutableTree {
	db := u.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (u *Unbonding) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	u.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (u *Unbonding) Commit(db *iavl.MutableTree, version int64) error {
	for _, round := range u.getOrderedDirty() {
		funds := u.getFromMap(round)
		path := roundPath(round)

		u.lock.Lock()
		delete(u.dirty, round)
		u.lock.Unlock()

		if funds.deleted {
			u.lock.Lock()
			delete(u.list, round)
			u.lock.Unlock()

			db.Remove(path)
			continue
		}

		data, err := rlp.EncodeToBytes(funds)
		if err != nil {
			return fmt.Errorf("can't encode unbonding funds at round %d: %v", round, err)
		}

		db.Set(path, data)
	}

	return nil
}

// Lock schedules value for withdrawal at the given round
func (u *Unbonding) Lock(address types.Address, round uint64, value *big.Int) {
	u.getOrNew(round).addItem(address, value)
	u.bus.Checker().AddValue(value, "unbonding")
}

// Get returns the funds maturing at the round, nil if none
func (u *Unbonding) Get(round uint64) *Model {
	return u.get(round)
}

// AmountAt sums the address's locked funds maturing at the round
func (u *Unbonding) AmountAt(address types.Address, round uint64) *big.Int {
	total := big.NewInt(0)

	funds := u.get(round)
	if funds == nil {
		return total
	}

	for _, item := range funds.List {
		if item.Address == address {
			total.Add(total, item.Value)
		}
	}

	return total
}

// Take removes and returns the address's matured funds at the round. The
// round entry is deleted once its last item is taken.
func (u *Unbonding) Take(address types.Address, round uint64) *big.Int {
	total := big.NewInt(0)

	funds := u.get(round)
	if funds == nil {
		return total
	}

	rest := funds.List[:0]
	for _, item := range funds.List {
		if item.Address == address {
			total.Add(total, item.Value)
			continue
		}
		rest = append(rest, item)
	}
	funds.List = rest

	if len(funds.List) == 0 {
		funds.delete()
	} else {
		funds.markDirty(round)
	}

	if total.Sign() == 1 {
		u.bus.Checker().AddValue(big.NewInt(0).Neg(total), "unbonding")
	}

	return total
}

func (u *Unbonding) get(round uint64) *Model {
	if funds := u.getFromMap(round); funds != nil {
		if funds.deleted {
			return nil
		}
		return funds
	}

	_, enc := u.immutableTree().Get(roundPath(round))
	if len(enc) == 0 {
		return nil
	}

	funds := new(Model)
	if err := rlp.DecodeBytes(enc, funds); err != nil {
		panic(fmt.Sprintf("failed to decode unbonding funds at round %d: %s", round, err))
	}

	funds.round = round
	funds.markDirty = u.markDirty
	u.setToMap(round, funds)

	return funds
}

func (u *Unbonding) getOrNew(round uint64) *Model {
	funds := u.get(round)
	if funds == nil {
		funds = &Model{
			round:     round,
			markDirty: u.markDirty,
		}
		u.setToMap(round, funds)
	}

	return funds
}

func (u *Unbonding) getFromMap(round uint64) *Model {
	u.lock.RLock()
	defer u.lock.RUnlock()

	return u.list[round]
}

func (u *Unbonding) setToMap(round uint64, model *Model) {
	u.lock.Lock()
	defer u.lock.Unlock()

	u.list[round] = model
}

func (u *Unbonding) markDirty(round uint64) {
	u.lock.Lock()
	defer u.lock.Unlock()

	u.dirty[round] = struct{}{}
}

func (u *Unbonding) getOrderedDirty() []uint64 {
	u.lock.Lock()
	keys := make([]uint64, 0, len(u.dirty))
	for k := range u.dirty {
		keys = append(keys, k)
	}
	u.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

func roundPath(round uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, round)

	return append([]byte{mainPrefix}, b...)
}

// Export exports all data to the given state
func (u *Unbonding) Export(state *types.AppState) {
	u.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 || key[0] != mainPrefix {
			return false
		}

		round := binary.BigEndian.Uint64(key[1:])
		funds := u.get(round)
		if funds == nil {
			return false
		}

		for _, item := range funds.List {
			state.Unbonding = append(state.Unbonding, types.Unbond{
				Round:   round,
				Address: item.Address,
				Value:   item.Value.String(),
			})
		}

		return false
	})

	sort.SliceStable(state.Unbonding, func(i, j int) bool {
		if state.Unbonding[i].Round != state.Unbonding[j].Round {
			return state.Unbonding[i].Round < state.Unbonding[j].Round
		}
		return state.Unbonding[i].Address.Compare(state.Unbonding[j].Address) == -1
	})
}
