package transcoders

import (
	"math/big"
	"sync"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// Model represents a transcoder record which is stored on disk.
// Pending rates are the ones the transcoder proposed; they are promoted to
// the active rates at the next round transition and stay fixed for the
// whole round.
type Model struct {
	RewardCut              uint32
	FeeShare               uint32
	PricePerSegment        *big.Int
	PendingRewardCut       uint32
	PendingFeeShare        uint32
	PendingPricePerSegment *big.Int
	LastRewardRound        uint64
	DelegatorWithdrawRound uint64

	address   types.Address
	markDirty func(types.Address)
	lock      sync.RWMutex
}

func (model *Model) setPendingRates(rewardCut, feeShare uint32, pricePerSegment *big.Int) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.PendingRewardCut = rewardCut
	model.PendingFeeShare = feeShare
	model.PendingPricePerSegment = big.NewInt(0).Set(pricePerSegment)
	model.markDirty(model.address)
}

func (model *Model) commitRates() {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.RewardCut = model.PendingRewardCut
	model.FeeShare = model.PendingFeeShare
	model.PricePerSegment = big.NewInt(0).Set(model.PendingPricePerSegment)
	model.markDirty(model.address)
}

func (model *Model) setLastRewardRound(round uint64) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.LastRewardRound = round
	model.markDirty(model.address)
}

func (model *Model) setDelegatorWithdrawRound(round uint64) {
	model.lock.Lock()
	defer model.lock.Unlock()

	model.DelegatorWithdrawRound = round
	model.markDirty(model.address)
}

func (model *Model) getDelegatorWithdrawRound() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.DelegatorWithdrawRound
}

func (model *Model) getLastRewardRound() uint64 {
	model.lock.RLock()
	defer model.lock.RUnlock()

	return model.LastRewardRound
}

func (model *Model) getRates() (rewardCut, feeShare uint32, pricePerSegment *big.Int) {
	model.lock.RLock()
	defer model.lock.RUnlock()

	price := big.NewInt(0)
	if model.PricePerSegment != nil {
		price.Set(model.PricePerSegment)
	}

	return model.RewardCut, model.FeeShare, price
}

// PoolModel represents a per-(transcoder, round) token pool which is stored
// on disk. TotalStake is frozen when the pool is created; StakeRemaining is
// the shrinking fee-share denominator. RewardTotal keeps the full deposited
// reward as the share numerator so claims are order-independent, while
// RewardPool tracks what is actually left to hand out.
type PoolModel struct {
	RewardTotal    *big.Int
	RewardPool     *big.Int
	FeePool        *big.Int
	TotalStake     *big.Int
	StakeRemaining *big.Int

	transcoder types.Address
	round      uint64
	markDirty  func(poolKey)
	lock       sync.RWMutex
}

func (pool *PoolModel) addReward(value *big.Int) {
	pool.lock.Lock()
	defer pool.lock.Unlock()

	pool.RewardTotal = big.NewInt(0).Add(pool.RewardTotal, value)
	pool.RewardPool = big.NewInt(0).Add(pool.RewardPool, value)
	pool.markDirty(poolKey{pool.transcoder, pool.round})
}

func (pool *PoolModel) addFee(value *big.Int) {
	pool.lock.Lock()
	defer pool.lock.Unlock()

	pool.FeePool = big.NewInt(0).Add(pool.FeePool, value)
	pool.markDirty(poolKey{pool.transcoder, pool.round})
}

// GetRewardTotal returns the full reward deposited into the round
func (pool *PoolModel) GetRewardTotal() *big.Int {
	pool.lock.RLock()
	defer pool.lock.RUnlock()

	return big.NewInt(0).Set(pool.RewardTotal)
}

// GetRewardPool returns the undistributed reward amount
func (pool *PoolModel) GetRewardPool() *big.Int {
	pool.lock.RLock()
	defer pool.lock.RUnlock()

	return big.NewInt(0).Set(pool.RewardPool)
}

// GetFeePool returns the undistributed fee amount
func (pool *PoolModel) GetFeePool() *big.Int {
	pool.lock.RLock()
	defer pool.lock.RUnlock()

	return big.NewInt(0).Set(pool.FeePool)
}

// GetTotalStake returns the frozen reward-share denominator
func (pool *PoolModel) GetTotalStake() *big.Int {
	pool.lock.RLock()
	defer pool.lock.RUnlock()

	return big.NewInt(0).Set(pool.TotalStake)
}

// GetStakeRemaining returns the current fee-share denominator
func (pool *PoolModel) GetStakeRemaining() *big.Int {
	pool.lock.RLock()
	defer pool.lock.RUnlock()

	return big.NewInt(0).Set(pool.StakeRemaining)
}
