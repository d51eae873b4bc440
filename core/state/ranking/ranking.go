package ranking

import (
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

const mainPrefix = byte('r')

// RRanking is the read-only interface of the ranked pool
type RRanking interface {
	IsMember(address types.Address) bool
	InCandidatePool(address types.Address) bool
	StakeOf(address types.Address) *big.Int
	CandidateCount() int
	ReserveCount() int
	IterateCandidates(fn func(address types.Address, stake *big.Int) bool)
	Export(state *types.AppState)
}

// Ranking keeps two bounded ordered sets of transcoders keyed by total
// stake: the candidate pool (eligible for the next active set) and the
// reserve pool. The two are partitioned by rank: every candidate outranks
// every reserve member. Capacities are fixed at construction.
//
// Adding a present member or removing/re-keying a missing one is a
// programming error and panics.
type Ranking struct {
	model   *Model
	loaded  bool
	isDirty bool

	candidateCap int
	reserveCap   int

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewRanking(stateBus *bus.Bus, db *iavl.ImmutableTree, candidateCap, reserveCap int) *Ranking {
	if candidateCap < 1 || reserveCap < 0 {
		log.Panicf("invalid ranking capacities: %d/%d", candidateCap, reserveCap)
	}

	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	ranking := &Ranking{
		db:           immutableTree,
		bus:          stateBus,
		candidateCap: candidateCap,
		reserveCap:   reserveCap,
	}
	ranking.bus.SetRanking(NewBus(ranking))

	return ranking
}

func (r *Ranking) immutableTree() *iavl.ImmutableTree {
	db := r.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (r *Ranking) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	r.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (r *Ranking) Commit(db *iavl.MutableTree, version int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.isDirty {
		return nil
	}
	r.isDirty = false

	data, err := rlp.EncodeToBytes(r.getOrNew())
	if err != nil {
		return fmt.Errorf("can't encode ranked pool: %v", err)
	}

	db.Set([]byte{mainPrefix}, data)

	return nil
}

// Add inserts a new member with the given initial stake. It returns the
// address of a member dropped from the reserve pool on overflow, if any,
// and whether the insertion was accepted at all. An insertion is rejected
// only when both pools are full and the newcomer ranks below every member.
func (r *Ranking) Add(address types.Address, stake *big.Int) (dropped *types.Address, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	model := r.getOrNew()
	if r.find(address) != nil {
		log.Panicf("Ranked pool member already present: %s", address.String())
	}

	entry := &Entry{
		Address: address,
		Stake:   big.NewInt(0).Set(stake),
		Seq:     model.NextSeq,
	}
	model.NextSeq++

	model.Candidates = append(model.Candidates, entry)
	droppedEntries := r.rebalance()

	for _, d := range droppedEntries {
		if d.Address == address {
			// ranked below everything, undo
			model.NextSeq--
			r.isDirty = true
			return nil, false
		}
		a := d.Address
		dropped = &a
	}

	r.isDirty = true
	return dropped, true
}

// Remove deletes a member from whichever pool holds it
func (r *Ranking) Remove(address types.Address) {
	r.lock.Lock()
	defer r.lock.Unlock()

	model := r.getOrNew()
	removed := false

	for i, e := range model.Candidates {
		if e.Address == address {
			model.Candidates = append(model.Candidates[:i], model.Candidates[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i, e := range model.Reserve {
			if e.Address == address {
				model.Reserve = append(model.Reserve[:i], model.Reserve[i+1:]...)
				removed = true
				break
			}
		}
	}

	if !removed {
		log.Panicf("Ranked pool member not found: %s", address.String())
	}

	if d := r.rebalance(); len(d) != 0 {
		log.Panicf("unexpected drop while removing %s", address.String())
	}
	r.isDirty = true
}

// IncreaseStake increases a member's key by delta and repositions it
func (r *Ranking) IncreaseStake(address types.Address, delta *big.Int) {
	r.updateStake(address, delta, false)
}

// DecreaseStake decreases a member's key by delta and repositions it
func (r *Ranking) DecreaseStake(address types.Address, delta *big.Int) {
	r.updateStake(address, delta, true)
}

func (r *Ranking) updateStake(address types.Address, delta *big.Int, negative bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.getOrNew()
	entry := r.find(address)
	if entry == nil {
		log.Panicf("Ranked pool member not found: %s", address.String())
	}

	if negative {
		if entry.Stake.Cmp(delta) == -1 {
			log.Panicf("Ranked pool stake underflow at %s", address.String())
		}
		entry.Stake = big.NewInt(0).Sub(entry.Stake, delta)
	} else {
		entry.Stake = big.NewInt(0).Add(entry.Stake, delta)
	}

	if d := r.rebalance(); len(d) != 0 {
		log.Panicf("unexpected drop while re-keying %s", address.String())
	}
	r.isDirty = true
}

// IsMember reports membership in either pool
func (r *Ranking) IsMember(address types.Address) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.getOrNew()
	return r.find(address) != nil
}

// InCandidatePool reports membership in the candidate pool
func (r *Ranking) InCandidatePool(address types.Address) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	model := r.getOrNew()
	for _, e := range model.Candidates {
		if e.Address == address {
			return true
		}
	}
	return false
}

// StakeOf returns the member's current key, or zero for non-members
func (r *Ranking) StakeOf(address types.Address) *big.Int {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.getOrNew()
	entry := r.find(address)
	if entry == nil {
		return big.NewInt(0)
	}

	return big.NewInt(0).Set(entry.Stake)
}

func (r *Ranking) CandidateCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.getOrNew().Candidates)
}

func (r *Ranking) ReserveCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.getOrNew().Reserve)
}

// IterateCandidates walks the candidate pool in descending rank order
// until fn returns true
func (r *Ranking) IterateCandidates(fn func(address types.Address, stake *big.Int) bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, e := range r.getOrNew().Candidates {
		if fn(e.Address, big.NewInt(0).Set(e.Stake)) {
			return
		}
	}
}

// find returns the live entry for the address, nil if absent.
// Callers must hold the lock.
func (r *Ranking) find(address types.Address) *Entry {
	for _, e := range r.model.Candidates {
		if e.Address == address {
			return e
		}
	}
	for _, e := range r.model.Reserve {
		if e.Address == address {
			return e
		}
	}
	return nil
}

// rebalance restores both pools' ordering, the partition between them and
// their capacities. Returns entries dropped on reserve overflow.
// Callers must hold the lock.
func (r *Ranking) rebalance() []*Entry {
	model := r.model

	sort.SliceStable(model.Candidates, func(i, j int) bool {
		return rankHigher(model.Candidates[i], model.Candidates[j])
	})
	sort.SliceStable(model.Reserve, func(i, j int) bool {
		return rankHigher(model.Reserve[i], model.Reserve[j])
	})

	// demote candidate overflow
	for len(model.Candidates) > r.candidateCap {
		last := model.Candidates[len(model.Candidates)-1]
		model.Candidates = model.Candidates[:len(model.Candidates)-1]
		model.Reserve = append(model.Reserve, last)
	}

	// promote into free candidate slots
	for len(model.Candidates) < r.candidateCap && len(model.Reserve) > 0 {
		first := model.Reserve[0]
		model.Reserve = model.Reserve[1:]
		model.Candidates = append(model.Candidates, first)
	}

	sort.SliceStable(model.Candidates, func(i, j int) bool {
		return rankHigher(model.Candidates[i], model.Candidates[j])
	})
	sort.SliceStable(model.Reserve, func(i, j int) bool {
		return rankHigher(model.Reserve[i], model.Reserve[j])
	})

	// swap across the partition while the best reserve member outranks the
	// worst candidate
	for len(model.Reserve) > 0 && len(model.Candidates) > 0 &&
		rankHigher(model.Reserve[0], model.Candidates[len(model.Candidates)-1]) {
		worst := model.Candidates[len(model.Candidates)-1]
		best := model.Reserve[0]
		model.Candidates[len(model.Candidates)-1] = best
		model.Reserve[0] = worst

		sort.SliceStable(model.Candidates, func(i, j int) bool {
			return rankHigher(model.Candidates[i], model.Candidates[j])
		})
		sort.SliceStable(model.Reserve, func(i, j int) bool {
			return rankHigher(model.Reserve[i], model.Reserve[j])
		})
	}

	// reserve overflow falls out of the pool
	var dropped []*Entry
	for len(model.Reserve) > r.reserveCap {
		last := model.Reserve[len(model.Reserve)-1]
		model.Reserve = model.Reserve[:len(model.Reserve)-1]
		dropped = append(dropped, last)
	}

	return dropped
}

// getOrNew loads the persisted model on first use.
// Callers must hold the lock.
func (r *Ranking) getOrNew() *Model {
	if r.loaded {
		return r.model
	}
	r.loaded = true

	model := &Model{}
	if r.immutableTree() != nil {
		_, enc := r.immutableTree().Get([]byte{mainPrefix})
		if len(enc) != 0 {
			if err := rlp.DecodeBytes(enc, model); err != nil {
				panic(fmt.Sprintf("failed to decode ranked pool: %s", err))
			}
		}
	}

	r.model = model
	return r.model
}

// Export exports all data to the given state
func (r *Ranking) Export(state *types.AppState) {
	r.lock.Lock()
	defer r.lock.Unlock()

	model := r.getOrNew()
	for i := range state.Transcoders {
		for _, e := range model.Candidates {
			if e.Address == state.Transcoders[i].Address {
				state.Transcoders[i].InCandidatePool = true
			}
		}
		for _, e := range model.Reserve {
			if e.Address == state.Transcoders[i].Address {
				state.Transcoders[i].InReservePool = true
			}
		}
	}
}
