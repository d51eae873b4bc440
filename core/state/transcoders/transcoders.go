package transcoders

import (
	"bytes"
	"encoding/binary"
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

const (
	mainPrefix = byte('t')
	poolPrefix = byte('p')
)

type poolKey struct {
	transcoder types.Address
	round      uint64
}

// RTranscoders is the read-only interface of the transcoders store
type RTranscoders interface {
	Exists(address types.Address) bool
	GetTranscoder(address types.Address) *Model
	GetPool(address types.Address, round uint64) *PoolModel
	Status(address types.Address, currentRound uint64) types.TranscoderStatus
	Export(state *types.AppState)
}

// Transcoders is a store of transcoder records and their per-round token
// pools. Pool entries are append-only: they persist for as long as any
// delegator's lazy catch-up may still reach them.
type Transcoders struct {
	list       map[types.Address]*Model
	dirty      map[types.Address]struct{}
	pools      map[poolKey]*PoolModel
	dirtyPools map[poolKey]struct{}

	db  atomic.Value
	bus *bus.Bus

	lock sync.RWMutex
}

func NewTranscoders(stateBus *bus.Bus, db *iavl.ImmutableTree) *Transcoders {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}

	transcoders := &Transcoders{
		bus:        stateBus,
		db:         immutableTree,
		list:       map[types.Address]*Model{},
		dirty:      map[types.Address]struct{}{},
		pools:      map[poolKey]*PoolModel{},
		dirtyPools: map[poolKey]struct{}{},
	}
	transcoders.bus.SetTranscoders(NewBus(transcoders))

	return transcoders
}

func (t *Transcoders) immutableTree() *iavl.ImmutableTree {
	db := t.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (t *Transcoders) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	t.db.Store(immutableTree)
}

// Commit writes changes to iavl, may return an error
func (t *Transcoders) Commit(db *iavl.MutableTree, version int64) error {
	for _, address := range t.getOrderedDirty() {
		transcoder := t.getFromMap(address)

		t.lock.Lock()
		delete(t.dirty, address)
		t.lock.Unlock()

		transcoder.lock.RLock()
		data, err := rlp.EncodeToBytes(transcoder)
		transcoder.lock.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode transcoder at %s: %v", address.String(), err)
		}

		db.Set(transcoderPath(address), data)
	}

	for _, key := range t.getOrderedDirtyPools() {
		pool := t.getPoolFromMap(key)

		t.lock.Lock()
		delete(t.dirtyPools, key)
		t.lock.Unlock()

		pool.lock.RLock()
		data, err := rlp.EncodeToBytes(pool)
		pool.lock.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode token pool at %s round %d: %v", key.transcoder.String(), key.round, err)
		}

		db.Set(poolPath(key.transcoder, key.round), data)
	}

	return nil
}

// Exists reports whether a record was ever created for the address
func (t *Transcoders) Exists(address types.Address) bool {
	return t.get(address) != nil
}

// GetTranscoder returns the transcoder record, nil if absent
func (t *Transcoders) GetTranscoder(address types.Address) *Model {
	return t.get(address)
}

// GetOrNew returns the transcoder record, creating it on first interaction
func (t *Transcoders) GetOrNew(address types.Address) *Model {
	transcoder := t.get(address)
	if transcoder == nil {
		transcoder = &Model{
			PricePerSegment:        big.NewInt(0),
			PendingPricePerSegment: big.NewInt(0),
			address:                address,
			markDirty:              t.markDirty,
		}
		t.setToMap(address, transcoder)
		t.markDirty(address)
	}

	return transcoder
}

// SetPendingRates stores the transcoder's proposed rates. They take effect
// at the next round transition.
func (t *Transcoders) SetPendingRates(address types.Address, rewardCut, feeShare uint32, pricePerSegment *big.Int) {
	t.GetOrNew(address).setPendingRates(rewardCut, feeShare, pricePerSegment)
}

// CommitRates promotes pending rates into force, called at round transition
func (t *Transcoders) CommitRates(address types.Address) {
	transcoder := t.get(address)
	if transcoder == nil {
		return
	}

	transcoder.commitRates()
}

// GetRates returns the rates currently in force
func (t *Transcoders) GetRates(address types.Address) (rewardCut, feeShare uint32, pricePerSegment *big.Int) {
	transcoder := t.get(address)
	if transcoder == nil {
		return 0, 0, big.NewInt(0)
	}

	return transcoder.getRates()
}

// GetLastRewardRound returns the last round the transcoder minted a reward
func (t *Transcoders) GetLastRewardRound(address types.Address) uint64 {
	transcoder := t.get(address)
	if transcoder == nil {
		return 0
	}

	return transcoder.getLastRewardRound()
}

// SetLastRewardRound marks the transcoder's reward mint for the round
func (t *Transcoders) SetLastRewardRound(address types.Address, round uint64) {
	t.GetOrNew(address).setLastRewardRound(round)
}

// GetDelegatorWithdrawRound returns the round at which the transcoder's
// delegators become eligible to exit, zero unless resigned or slashed
func (t *Transcoders) GetDelegatorWithdrawRound(address types.Address) uint64 {
	transcoder := t.get(address)
	if transcoder == nil {
		return 0
	}

	return transcoder.getDelegatorWithdrawRound()
}

// SetDelegatorWithdrawRound schedules the transcoder's delegators for exit
func (t *Transcoders) SetDelegatorWithdrawRound(address types.Address, round uint64) {
	t.GetOrNew(address).setDelegatorWithdrawRound(round)
}

// Status derives the transcoder's registration state from the ledger and
// the ranked pool. Pure given the current round: no flags are cached.
func (t *Transcoders) Status(address types.Address, currentRound uint64) types.TranscoderStatus {
	transcoder := t.get(address)
	if transcoder == nil {
		return types.TranscoderNotRegistered
	}

	if withdrawRound := transcoder.getDelegatorWithdrawRound(); withdrawRound > 0 {
		if currentRound >= withdrawRound {
			return types.TranscoderNotRegistered
		}
		return types.TranscoderResigned
	}

	if t.bus.Ranking().IsMember(address) {
		return types.TranscoderRegistered
	}

	return types.TranscoderNotRegistered
}

// GetPool returns the (transcoder, round) token pool, nil if never funded
func (t *Transcoders) GetPool(address types.Address, round uint64) *PoolModel {
	return t.getPool(address, round)
}

// GetOrNewPool returns the (transcoder, round) pool, creating it with the
// given frozen total-stake denominator on first funding or election
func (t *Transcoders) GetOrNewPool(address types.Address, round uint64, totalStake *big.Int) *PoolModel {
	pool := t.getPool(address, round)
	if pool == nil {
		pool = &PoolModel{
			RewardTotal:    big.NewInt(0),
			RewardPool:     big.NewInt(0),
			FeePool:        big.NewInt(0),
			TotalStake:     big.NewInt(0).Set(totalStake),
			StakeRemaining: big.NewInt(0).Set(totalStake),
			transcoder:     address,
			round:          round,
			markDirty:      t.markPoolDirty,
		}
		t.setPoolToMap(poolKey{address, round}, pool)
		t.markPoolDirty(poolKey{address, round})
	}

	return pool
}

// AddToRewardPool credits freshly minted delegator rewards to the round's
// pool. The total-stake snapshot is used only if the pool does not exist yet.
func (t *Transcoders) AddToRewardPool(address types.Address, round uint64, value, totalStake *big.Int) {
	t.GetOrNewPool(address, round, totalStake).addReward(value)
	t.bus.Checker().AddValue(value, "reward pool")
}

// AddToFeePool credits deposited delegator fees to the round's pool
func (t *Transcoders) AddToFeePool(address types.Address, round uint64, value, totalStake *big.Int) {
	t.GetOrNewPool(address, round, totalStake).addFee(value)
	t.bus.Checker().AddValue(value, "fee pool")
}

// ClaimPoolShares claims one delegator's proportional share of the round's
// reward and fee pools, both computed from the claimant's stake entering the
// round, before that round's reward compounds. Rewards divide the deposited
// total by the frozen TotalStake, clamped to what is left; fees divide by
// the shrinking StakeRemaining, which is depleted by the claimed stake.
// Destructive: must run at most once per delegator per round. Nothing is
// depleted when the claim is rejected.
func (t *Transcoders) ClaimPoolShares(address types.Address, round uint64, stake *big.Int) (reward *big.Int, fee *big.Int, err error) {
	reward, fee = big.NewInt(0), big.NewInt(0)

	pool := t.getPool(address, round)
	if pool == nil {
		return reward, fee, nil
	}

	pool.lock.Lock()
	defer pool.lock.Unlock()

	if pool.FeePool.Sign() == 1 && pool.StakeRemaining.Cmp(stake) == -1 {
		return nil, nil, errors.Errorf(
			"fee claim beyond stake remaining at %s round %d: remaining %s, claimed %s",
			address.String(), round, pool.StakeRemaining.String(), stake.String())
	}

	if pool.RewardPool.Sign() == 1 && pool.TotalStake.Sign() == 1 {
		reward = big.NewInt(0).Mul(pool.RewardTotal, stake)
		reward.Div(reward, pool.TotalStake)
		if reward.Cmp(pool.RewardPool) == 1 {
			reward.Set(pool.RewardPool)
		}
		pool.RewardPool = big.NewInt(0).Sub(pool.RewardPool, reward)
	}

	if pool.FeePool.Sign() == 1 {
		fee = big.NewInt(0).Mul(pool.FeePool, stake)
		fee.Div(fee, pool.StakeRemaining)
		pool.FeePool = big.NewInt(0).Sub(pool.FeePool, fee)
		pool.StakeRemaining = big.NewInt(0).Sub(pool.StakeRemaining, stake)
	}

	claimed := big.NewInt(0).Add(reward, fee)
	if claimed.Sign() == 1 {
		pool.markDirty(poolKey{address, round})
		t.bus.Checker().AddValue(big.NewInt(0).Neg(claimed), "pool claim")
	}

	return reward, fee, nil
}

// ImportTranscoder seeds a record wholesale, used on genesis import
func (t *Transcoders) ImportTranscoder(address types.Address, rewardCut, feeShare uint32, pricePerSegment *big.Int,
	pendingRewardCut, pendingFeeShare uint32, pendingPricePerSegment *big.Int,
	lastRewardRound, delegatorWithdrawRound uint64) {
	transcoder := t.GetOrNew(address)

	transcoder.lock.Lock()
	transcoder.RewardCut = rewardCut
	transcoder.FeeShare = feeShare
	transcoder.PricePerSegment = big.NewInt(0).Set(pricePerSegment)
	transcoder.PendingRewardCut = pendingRewardCut
	transcoder.PendingFeeShare = pendingFeeShare
	transcoder.PendingPricePerSegment = big.NewInt(0).Set(pendingPricePerSegment)
	transcoder.LastRewardRound = lastRewardRound
	transcoder.DelegatorWithdrawRound = delegatorWithdrawRound
	transcoder.lock.Unlock()

	t.markDirty(address)
}

// ImportPool seeds a token pool wholesale, used on genesis import
func (t *Transcoders) ImportPool(address types.Address, round uint64, rewardTotal, rewardPool, feePool, totalStake, stakeRemaining *big.Int) {
	pool := t.GetOrNewPool(address, round, totalStake)

	pool.lock.Lock()
	pool.RewardTotal = big.NewInt(0).Set(rewardTotal)
	pool.RewardPool = big.NewInt(0).Set(rewardPool)
	pool.FeePool = big.NewInt(0).Set(feePool)
	pool.TotalStake = big.NewInt(0).Set(totalStake)
	pool.StakeRemaining = big.NewInt(0).Set(stakeRemaining)
	pool.lock.Unlock()

	t.markPoolDirty(poolKey{address, round})
}

// ComputePoolShares computes the shares ClaimPoolShares would pay out,
// without depleting the pool, and rejects exactly the claims the claim
// itself would reject.
func (t *Transcoders) ComputePoolShares(address types.Address, round uint64, stake *big.Int) (reward *big.Int, fee *big.Int, err error) {
	reward, fee = big.NewInt(0), big.NewInt(0)

	pool := t.getPool(address, round)
	if pool == nil {
		return reward, fee, nil
	}

	pool.lock.RLock()
	defer pool.lock.RUnlock()

	if pool.FeePool.Sign() == 1 && pool.StakeRemaining.Cmp(stake) == -1 {
		return nil, nil, errors.Errorf(
			"fee claim beyond stake remaining at %s round %d: remaining %s, claimed %s",
			address.String(), round, pool.StakeRemaining.String(), stake.String())
	}

	if pool.RewardPool.Sign() == 1 && pool.TotalStake.Sign() == 1 {
		reward = big.NewInt(0).Mul(pool.RewardTotal, stake)
		reward.Div(reward, pool.TotalStake)
		if reward.Cmp(pool.RewardPool) == 1 {
			reward.Set(pool.RewardPool)
		}
	}

	if pool.FeePool.Sign() == 1 {
		fee = big.NewInt(0).Mul(pool.FeePool, stake)
		fee.Div(fee, pool.StakeRemaining)
	}

	return reward, fee, nil
}

func (t *Transcoders) get(address types.Address) *Model {
	if transcoder := t.getFromMap(address); transcoder != nil {
		return transcoder
	}

	_, enc := t.immutableTree().Get(transcoderPath(address))
	if len(enc) == 0 {
		return nil
	}

	transcoder := new(Model)
	if err := rlp.DecodeBytes(enc, transcoder); err != nil {
		panic(fmt.Sprintf("failed to decode transcoder at address %s: %s", address.String(), err))
	}

	transcoder.address = address
	transcoder.markDirty = t.markDirty
	t.setToMap(address, transcoder)

	return transcoder
}

func (t *Transcoders) getPool(address types.Address, round uint64) *PoolModel {
	key := poolKey{address, round}
	if pool := t.getPoolFromMap(key); pool != nil {
		return pool
	}

	_, enc := t.immutableTree().Get(poolPath(address, round))
	if len(enc) == 0 {
		return nil
	}

	pool := new(PoolModel)
	if err := rlp.DecodeBytes(enc, pool); err != nil {
		panic(fmt.Sprintf("failed to decode token pool at %s round %d: %s", address.String(), round, err))
	}

	pool.transcoder = address
	pool.round = round
	pool.markDirty = t.markPoolDirty
	t.setPoolToMap(key, pool)

	return pool
}

func (t *Transcoders) getFromMap(address types.Address) *Model {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.list[address]
}

func (t *Transcoders) setToMap(address types.Address, model *Model) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.list[address] = model
}

func (t *Transcoders) getPoolFromMap(key poolKey) *PoolModel {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.pools[key]
}

func (t *Transcoders) setPoolToMap(key poolKey, pool *PoolModel) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.pools[key] = pool
}

func (t *Transcoders) markDirty(address types.Address) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dirty[address] = struct{}{}
}

func (t *Transcoders) markPoolDirty(key poolKey) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dirtyPools[key] = struct{}{}
}

func (t *Transcoders) getOrderedDirty() []types.Address {
	t.lock.Lock()
	keys := make([]types.Address, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}
	t.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == 1
	})

	return keys
}

func (t *Transcoders) getOrderedDirtyPools() []poolKey {
	t.lock.Lock()
	keys := make([]poolKey, 0, len(t.dirtyPools))
	for k := range t.dirtyPools {
		keys = append(keys, k)
	}
	t.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		compare := bytes.Compare(keys[i].transcoder.Bytes(), keys[j].transcoder.Bytes())
		if compare != 0 {
			return compare == 1
		}
		return keys[i].round < keys[j].round
	})

	return keys
}

func transcoderPath(address types.Address) []byte {
	return append([]byte{mainPrefix}, address.Bytes()...)
}

func poolPath(address types.Address, round uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, round)

	path := append([]byte{poolPrefix}, address.Bytes()...)
	return append(path, b...)
}

// Export exports all data to the given state
func (t *Transcoders) Export(state *types.AppState) {
	t.immutableTree().Iterate(func(key []byte, value []byte) bool {
		if len(key) == 0 {
			return false
		}

		switch key[0] {
		case mainPrefix:
			address := types.BytesToAddress(key[1:])
			transcoder := t.get(address)
			state.Transcoders = append(state.Transcoders, types.Transcoder{
				Address:                address,
				RewardCut:              transcoder.RewardCut,
				FeeShare:               transcoder.FeeShare,
				PricePerSegment:        transcoder.PricePerSegment.String(),
				PendingRewardCut:       transcoder.PendingRewardCut,
				PendingFeeShare:        transcoder.PendingFeeShare,
				PendingPricePerSegment: transcoder.PendingPricePerSegment.String(),
				LastRewardRound:        transcoder.LastRewardRound,
				DelegatorWithdrawRound: transcoder.DelegatorWithdrawRound,
			})
		case poolPrefix:
			address := types.BytesToAddress(key[1 : 1+types.AddressLength])
			round := binary.BigEndian.Uint64(key[1+types.AddressLength:])
			pool := t.getPool(address, round)
			state.Pools = append(state.Pools, types.TokenPool{
				Transcoder:     address,
				Round:          round,
				RewardTotal:    pool.GetRewardTotal().String(),
				RewardPool:     pool.GetRewardPool().String(),
				FeePool:        pool.GetFeePool().String(),
				TotalStake:     pool.GetTotalStake().String(),
				StakeRemaining: pool.GetStakeRemaining().String(),
			})
		}

		return false
	})

	sort.SliceStable(state.Transcoders, func(i, j int) bool {
		return state.Transcoders[i].Address.Compare(state.Transcoders[j].Address) == -1
	})
	sort.SliceStable(state.Pools, func(i, j int) bool {
		compare := state.Pools[i].Transcoder.Compare(state.Pools[j].Transcoder)
		if compare != 0 {
			return compare == -1
		}
		return state.Pools[i].Round < state.Pools[j].Round
	})
}
