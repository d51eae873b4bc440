package transcoders

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/types"
)

type Bus struct {
	transcoders *Transcoders
}

func NewBus(transcoders *Transcoders) *Bus {
	return &Bus{transcoders: transcoders}
}

func (b *Bus) GetTranscoder(address types.Address) *bus.Transcoder {
	transcoder := b.transcoders.GetTranscoder(address)
	if transcoder == nil {
		return nil
	}

	rewardCut, feeShare, price := transcoder.getRates()
	return &bus.Transcoder{
		Address:                address,
		RewardCut:              rewardCut,
		FeeShare:               feeShare,
		PricePerSegment:        price,
		LastRewardRound:        transcoder.getLastRewardRound(),
		DelegatorWithdrawRound: transcoder.getDelegatorWithdrawRound(),
	}
}

func (b *Bus) Status(address types.Address, currentRound uint64) types.TranscoderStatus {
	return b.transcoders.Status(address, currentRound)
}

func (b *Bus) HasPool(address types.Address, round uint64) bool {
	return b.transcoders.GetPool(address, round) != nil
}

func (b *Bus) ClaimPoolShares(address types.Address, round uint64, stake *big.Int) (*big.Int, *big.Int, error) {
	return b.transcoders.ClaimPoolShares(address, round, stake)
}

func (b *Bus) ComputePoolShares(address types.Address, round uint64, stake *big.Int) (*big.Int, *big.Int, error) {
	return b.transcoders.ComputePoolShares(address, round, stake)
}

func (b *Bus) CommitRates(address types.Address) {
	b.transcoders.CommitRates(address)
}
