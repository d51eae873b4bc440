package delegators

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/types"
)

const mainPrefix = byte('d')

// ErrMonotonicityViolation is returned when a lazy catch-up is requested
// for a round before the delegator's last-updated round
var ErrMonotonicityViolation = errors.New("stake update round monotonicity violation")

// RDelegators is the read-only interface of the delegators store
type RDelegators interface {
	Exists(address types.Address) bool
	GetDelegator(address types.Address) *Model
	Status(address types.Address, currentRound uint64) types.DelegatorStatus
	BondedAmount(address types.Address) *big.Int
	DelegatedAmount(address types.Address) *big.Int
	DelegateAddress(address types.Address) types.Address
	WithdrawRound(address types.Address) uint64
	LastStakeUpdateRound(address types.Address) uint64
	PendingStake(address types.Address, throughRound uint64) *big.Int
	Export(state *types.AppState)
}

// Delegators is a store of delegator records and the engine that lazily
// applies their accrued reward and fee shares.
type Delegators struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewDelegators(stateBus *bus.Bus, db *iavl.ImmutableTree) *Delegators {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	return &Delegators{
		bus:   stateBus,
		db:    immutableTree,
		list:  map[types.Address]*Model{},
		dirty: map[types.Address]struct{}{},
	}
}

func (d *Delegators) immutableTree() *iavl.ImmutableTree {
	db := d.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (d *Delegators) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	d.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (d *Delegators) Commit(db *iavl.MutableTree, version int64) error {
	for _, address := range d.getOrderedDirty() {
		delegator := d.getFromMap(address)
		path := append([]byte{mainPrefix}, address.Bytes()...)

		d.lock.Lock()
		delete(d.dirty, address)
		d.lock.Unlock()

		delegator.lock.RLock()
		if delegator.deleted {
			d.lock.Lock()
			delete(d.list, address)
			d.lock.Unlock()

			db.Remove(path)
		} else {
			data, err := rlp.EncodeToBytes(delegator)
			if err != nil {
				delegator.lock.RUnlock()
				return fmt.Errorf("can't encode delegator at %s: %v", address.String(), err)
			}
			db.Set(path, data)
		}
		delegator.lock.RUnlock()
	}

	return nil
}

// Exists reports whether a record exists for the address
func (d *Delegators) Exists(address types.Address) bool {
	return d.get(address) != nil
}

// GetDelegator returns the delegator record, nil if absent
func (d *Delegators) GetDelegator(address types.Address) *Model {
	return d.get(address)
}

// GetOrNew returns the delegator record, creating it on first interaction
func (d *Delegators) GetOrNew(address types.Address) *Model {
	delegator := d.get(address)
	if delegator == nil {
		delegator = &Model{
			BondedAmount:    big.NewInt(0),
			DelegatedAmount: big.NewInt(0),
			address:         address,
			markDirty:       d.markDirty,
		}
		d.setToMap(address, delegator)
		d.markDirty(address)
	}

	return delegator
}

// Status derives the delegator's bonding state. A delegator whose delegate
// resigned or was slashed inherits the delegate's withdraw round and is
// forced into Unbonding without issuing any transaction itself.
func (d *Delegators) Status(address types.Address, currentRound uint64) types.DelegatorStatus {
	delegator := d.get(address)
	if delegator == nil {
		return types.DelegatorUnbonded
	}

	if withdrawRound := delegator.getWithdrawRound(); withdrawRound > 0 {
		if currentRound >= withdrawRound {
			return types.DelegatorUnbonded
		}
		return types.DelegatorUnbonding
	}

	if delegate := delegator.getDelegateAddress(); !delegate.IsZero() {
		if transcoder := d.bus.Transcoders().GetTranscoder(delegate); transcoder != nil &&
			transcoder.DelegatorWithdrawRound > 0 {
			if currentRound >= transcoder.DelegatorWithdrawRound {
				return types.DelegatorUnbonded
			}
			return types.DelegatorUnbonding
		}
	}

	if startRound := delegator.getStartRound(); startRound > 0 {
		if startRound > currentRound {
			return types.DelegatorPending
		}
		return types.DelegatorBonded
	}

	return types.DelegatorUnbonded
}

// ApplyRewardsAndFees walks the delegator's unapplied rounds up to
// throughRound, claiming its share of each round's reward and fee pools
// against the stake it carried into that round, and compounds both into the
// bonded amount. At most maxRounds rounds are applied per call; the returned
// round is the new watermark, and callers loop until it reaches throughRound.
// The walk is validated in full before any pool is touched, so a rejected
// claim leaves every pool and the watermark unchanged.
//
// No-op unless the delegator is Bonded to a Registered transcoder: a
// delegator cut loose by its transcoder keeps its already-applied principal
// and accrues nothing further.
func (d *Delegators) ApplyRewardsAndFees(address types.Address, throughRound, currentRound uint64, maxRounds uint64) (appliedThrough uint64, err error) {
	delegator := d.get(address)
	if delegator == nil {
		return throughRound, nil
	}

	last := delegator.getLastStakeUpdateRound()
	if throughRound < last {
		return last, errors.Wrapf(ErrMonotonicityViolation,
			"at %s: last update round %d, requested %d", address.String(), last, throughRound)
	}
	if throughRound == last {
		return last, nil
	}

	if d.Status(address, currentRound) != types.DelegatorBonded {
		return last, nil
	}
	delegate := delegator.getDelegateAddress()
	if d.bus.Transcoders().Status(delegate, currentRound) != types.TranscoderRegistered {
		return last, nil
	}

	target := throughRound
	if maxRounds > 0 && target > last+maxRounds {
		target = last + maxRounds
	}

	original := delegator.getBondedAmount()

	// dry run first so pools stay whole when any round rejects the claim
	runningStake := big.NewInt(0).Set(original)
	for r := last + 1; r <= target; r++ {
		reward, fee, err := d.bus.Transcoders().ComputePoolShares(delegate, r, runningStake)
		if err != nil {
			return last, err
		}

		runningStake.Add(runningStake, reward)
		runningStake.Add(runningStake, fee)
	}

	runningStake.Set(original)
	for r := last + 1; r <= target; r++ {
		reward, fee, err := d.bus.Transcoders().ClaimPoolShares(delegate, r, runningStake)
		if err != nil {
			return last, err
		}

		runningStake.Add(runningStake, reward)
		runningStake.Add(runningStake, fee)
	}

	newBonded := runningStake
	if newBonded.Cmp(original) != 0 {
		// the pools reported the claimed value as leaving; this entry is the
		// matching arrival, so the two cancel at commit
		delegator.setBondedAmount(newBonded)
		d.bus.Checker().AddValue(big.NewInt(0).Sub(newBonded, original), "bonded")
	}

	delegator.setLastStakeUpdateRound(target)

	return target, nil
}

// PendingStake returns the delegator's bonded amount plus its still
// unapplied pool shares through the given round, without mutating anything
func (d *Delegators) PendingStake(address types.Address, throughRound uint64) *big.Int {
	delegator := d.get(address)
	if delegator == nil {
		return big.NewInt(0)
	}

	original := delegator.getBondedAmount()
	if d.Status(address, throughRound) != types.DelegatorBonded {
		return original
	}
	delegate := delegator.getDelegateAddress()
	if d.bus.Transcoders().Status(delegate, throughRound) != types.TranscoderRegistered {
		return original
	}

	runningStake := big.NewInt(0).Set(original)

	for r := delegator.getLastStakeUpdateRound() + 1; r <= throughRound; r++ {
		reward, fee, err := d.bus.Transcoders().ComputePoolShares(delegate, r, runningStake)
		if err != nil {
			break
		}

		runningStake.Add(runningStake, reward)
		runningStake.Add(runningStake, fee)
	}

	return runningStake
}

// BondedAmount returns the delegator's applied principal
func (d *Delegators) BondedAmount(address types.Address) *big.Int {
	delegator := d.get(address)
	if delegator == nil {
		return big.NewInt(0)
	}

	return delegator.getBondedAmount()
}

// DelegatedAmount returns the total stake delegated to the address
func (d *Delegators) DelegatedAmount(address types.Address) *big.Int {
	delegator := d.get(address)
	if delegator == nil {
		return big.NewInt(0)
	}

	return delegator.getDelegatedAmount()
}

// DelegateAddress returns who the delegator currently backs
func (d *Delegators) DelegateAddress(address types.Address) types.Address {
	delegator := d.get(address)
	if delegator == nil {
		return types.Address{}
	}

	return delegator.getDelegateAddress()
}

// WithdrawRound returns the delegator's own cooldown round, zero if none
func (d *Delegators) WithdrawRound(address types.Address) uint64 {
	delegator := d.get(address)
	if delegator == nil {
		return 0
	}

	return delegator.getWithdrawRound()
}

// LastStakeUpdateRound returns the lazy watermark
func (d *Delegators) LastStakeUpdateRound(address types.Address) uint64 {
	delegator := d.get(address)
	if delegator == nil {
		return 0
	}

	return delegator.getLastStakeUpdateRound()
}

// AddBonded adds value to the delegator's own principal
func (d *Delegators) AddBonded(address types.Address, value *big.Int) {
	delegator := d.GetOrNew(address)
	delegator.setBondedAmount(big.NewInt(0).Add(delegator.getBondedAmount(), value))
	d.bus.Checker().AddValue(value, "bonded")
}

// SubBonded subtracts value from the delegator's own principal
func (d *Delegators) SubBonded(address types.Address, value *big.Int) {
	delegator := d.GetOrNew(address)
	delegator.setBondedAmount(big.NewInt(0).Sub(delegator.getBondedAmount(), value))
	d.bus.Checker().AddValue(big.NewInt(0).Neg(value), "bonded")
}

// AddDelegated adds to the delegate's received-stake index
func (d *Delegators) AddDelegated(address types.Address, value *big.Int) {
	d.GetOrNew(address).addDelegatedAmount(value)
}

// SubDelegated subtracts from the delegate's received-stake index
func (d *Delegators) SubDelegated(address types.Address, value *big.Int) {
	d.GetOrNew(address).subDelegatedAmount(value)
}

// SetDelegation points the delegator at a delegate effective at startRound
func (d *Delegators) SetDelegation(address, delegate types.Address, startRound uint64) {
	delegator := d.GetOrNew(address)
	delegator.setDelegateAddress(delegate)
	delegator.setStartRound(startRound)
}

// SetWithdrawRound starts the delegator's withdraw cooldown
func (d *Delegators) SetWithdrawRound(address types.Address, round uint64) {
	d.GetOrNew(address).setWithdrawRound(round)
}

// SetLastStakeUpdateRound moves the lazy watermark, used when bonding
func (d *Delegators) SetLastStakeUpdateRound(address types.Address, round uint64) {
	d.GetOrNew(address).setLastStakeUpdateRound(round)
}

// Delete removes the record after a final payout
func (d *Delegators) Delete(address types.Address) {
	delegator := d.get(address)
	if delegator == nil {
		return
	}

	delegator.delete()
}

func (d *Delegators) get(address types.Address) *Model {
	if delegator := d.getFromMap(address); delegator != nil {
		if delegator.deleted {
			return nil
		}
		return delegator
	}

	path := append([]byte{mainPrefix}, address.Bytes()...)
	_, enc := d.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	delegator := new(Model)
	if err := rlp.DecodeBytes(enc, delegator); err != nil {
		panic(fmt.Sprintf("failed to decode delegator at address %s: %s", address.String(), err))
	}

	delegator.address = address
	delegator.markDirty = d.markDirty
	d.setToMap(address, delegator)

	return delegator
}

func (d *Delegators) getFromMap(address types.Address) *Model {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.list[address]
}

func (d *Delegators) setToMap(address types.Address, model *Model) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.list[address] = model
}

func (d *Delegators) markDirty(address types.Address) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.dirty[address] = struct{}{}
}

func (d *Delegators) getOrderedDirty() []types.Address {
	d.lock.Lock()
	keys := make([]types.Address, 0, len(d.dirty))
	for k := range d.dirty {
		keys = append(keys, k)
	}
	d.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == 1
	})

	return keys
}

// Export exports all data to the given state
func (d *Delegators) Export(state *types.AppState) {
	d.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 || key[0] != mainPrefix {
			return false
		}

		address := types.BytesToAddress(key[1:])
		delegator := d.get(address)
		if delegator == nil {
			return false
		}

		state.Delegators = append(state.Delegators, types.Delegator{
			Address:              address,
			BondedAmount:         delegator.getBondedAmount().String(),
			DelegateAddress:      delegator.getDelegateAddress(),
			DelegatedAmount:      delegator.getDelegatedAmount().String(),
			StartRound:           delegator.getStartRound(),
			WithdrawRound:        delegator.getWithdrawRound(),
			LastStakeUpdateRound: delegator.getLastStakeUpdateRound(),
		})

		return false
	})

	sort.SliceStable(state.Delegators, func(i, j int) bool {
		return state.Delegators[i].Address.Compare(state.Delegators[j].Address) == -1
	})
}
