package activeset

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

const mainPrefix = byte('v')

// Member is a ranked-pool entry selected into the set at round transition
type Member struct {
	Address types.Address
	Stake   *big.Int
}

// RActiveSet is the read-only interface of the active set store
type RActiveSet interface {
	Round() uint64
	IsActive(address types.Address) bool
	Position(address types.Address) (int, bool)
	GetSlot(address types.Address) *Slot
	GetAll() []*Slot
	TotalActiveStake() *big.Int
	Export(state *types.AppState)
}

// ActiveSet is the store of the current round's frozen transcoder set. The
// whole set is replaced atomically at each round transition and persisted
// under a single key.
type ActiveSet struct {
	model  *Model
	loaded bool
	dirty  bool

	db  atomic.Value
	bus *bus.Bus

	lock sync.Mutex
}

func NewActiveSet(stateBus *bus.Bus, db *iavl.ImmutableTree) *ActiveSet {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &ActiveSet{
		bus: stateBus,
		db:  immutableTree,
	}
}

func (a *ActiveSet) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *ActiveSet) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (a *ActiveSet) Commit(db *iavl.MutableTree, version int64) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if !a.dirty {
		return nil
	}
	a.dirty = false

	data, err := rlp.EncodeToBytes(a.model)
	if err != nil {
		return fmt.Errorf("can't encode active set: %v", err)
	}

	db.Set([]byte{mainPrefix}, data)
	return nil
}

// SetNewActiveSet replaces the set for the given round. Pending rates of
// each selected transcoder are committed first, so the captured snapshot is
// the rates in force for the whole round.
func (a *ActiveSet) SetNewActiveSet(round uint64, members []Member) {
	slots := make([]*Slot, 0, len(members))
	for _, member := range members {
		a.bus.Transcoders().CommitRates(member.Address)

		transcoder := a.bus.Transcoders().GetTranscoder(member.Address)
		if transcoder == nil {
			continue
		}

		slots = append(slots, &Slot{
			Address:         member.Address,
			Stake:           big.NewInt(0).Set(member.Stake),
			RewardCut:       transcoder.RewardCut,
			FeeShare:        transcoder.FeeShare,
			PricePerSegment: big.NewInt(0).Set(transcoder.PricePerSegment),
		})
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	a.model = &Model{Round: round, Slots: slots}
	a.loaded = true
	a.dirty = true
}

// Import seeds the set wholesale with already-frozen snapshots, used on
// genesis import. Unlike SetNewActiveSet it does not touch pending rates.
func (a *ActiveSet) Import(round uint64, slots []*Slot) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.model = &Model{Round: round, Slots: slots}
	a.loaded = true
	a.dirty = true
}

// Round returns the round the current set was frozen for
func (a *ActiveSet) Round() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.getOrNew().Round
}

// IsActive reports membership in the current set
func (a *ActiveSet) IsActive(address types.Address) bool {
	_, ok := a.Position(address)
	return ok
}

// Position returns the slot index of the address in the current set
func (a *ActiveSet) Position(address types.Address) (int, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()

	for i, slot := range a.getOrNew().Slots {
		if slot.Address == address {
			return i, true
		}
	}

	return 0, false
}

// GetSlot returns the address's frozen slot, nil if not active
func (a *ActiveSet) GetSlot(address types.Address) *Slot {
	a.lock.Lock()
	defer a.lock.Unlock()

	for _, slot := range a.getOrNew().Slots {
		if slot.Address == address {
			return slot
		}
	}

	return nil
}

// GetAll returns the slots in frozen order
func (a *ActiveSet) GetAll() []*Slot {
	a.lock.Lock()
	defer a.lock.Unlock()

	return append([]*Slot{}, a.getOrNew().Slots...)
}

// TotalActiveStake sums the frozen stakes of the set
func (a *ActiveSet) TotalActiveStake() *big.Int {
	a.lock.Lock()
	defer a.lock.Unlock()

	total := big.NewInt(0)
	for _, slot := range a.getOrNew().Slots {
		total.Add(total, slot.Stake)
	}

	return total
}

// Remove drops the address from the set in place, used on slashing. The
// remaining slots keep their order and snapshots.
func (a *ActiveSet) Remove(address types.Address) {
	a.lock.Lock()
	defer a.lock.Unlock()

	model := a.getOrNew()
	for i, slot := range model.Slots {
		if slot.Address == address {
			model.Slots = append(model.Slots[:i], model.Slots[i+1:]...)
			a.dirty = true
			return
		}
	}
}

// getOrNew lazily loads the persisted set. Callers must hold the lock.
func (a *ActiveSet) getOrNew() *Model {
	if a.loaded {
		return a.model
	}
	a.loaded = true

	_, enc := a.immutableTree().Get([]byte{mainPrefix})
	if len(enc) == 0 {
		a.model = &Model{}
		return a.model
	}

	model := new(Model)
	if err := rlp.DecodeBytes(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode active set: %s", err))
	}

	a.model = model
	return a.model
}

// Export exports all data to the given state
func (a *ActiveSet) Export(state *types.AppState) {
	state.ActiveRound = a.Round()
	for _, slot := range a.GetAll() {
		state.ActiveSet = append(state.ActiveSet, types.ActiveSlot{
			Address:         slot.Address,
			Stake:           slot.Stake.String(),
			RewardCut:       slot.RewardCut,
			FeeShare:        slot.FeeShare,
			PricePerSegment: slot.PricePerSegment.String(),
		})
	}
}
