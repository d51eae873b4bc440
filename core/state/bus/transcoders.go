package bus

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

type Transcoders interface {
	GetTranscoder(types.Address) *Transcoder
	Status(address types.Address, currentRound uint64) types.TranscoderStatus
	HasPool(address types.Address, round uint64) bool
	// ClaimPoolShares computes and claims one delegator's share of the
	// (address, round) token pool. Destructive: it depletes the pool's
	// balances and stake-remaining denominator.
	ClaimPoolShares(address types.Address, round uint64, stake *big.Int) (reward *big.Int, fee *big.Int, err error)
	// ComputePoolShares is the read-only counterpart of ClaimPoolShares,
	// used for pending-stake estimates and claim validation
	ComputePoolShares(address types.Address, round uint64, stake *big.Int) (reward *big.Int, fee *big.Int, err error)
	CommitRates(types.Address)
}

type Transcoder struct {
	Address                types.Address
	RewardCut              uint32
	FeeShare               uint32
	PricePerSegment        *big.Int
	LastRewardRound        uint64
	DelegatorWithdrawRound uint64
}
