package ranking

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

type Bus struct {
	ranking *Ranking
}

func NewBus(ranking *Ranking) *Bus {
	return &Bus{ranking: ranking}
}

func (b *Bus) IsMember(address types.Address) bool {
	return b.ranking.IsMember(address)
}

func (b *Bus) InCandidatePool(address types.Address) bool {
	return b.ranking.InCandidatePool(address)
}

func (b *Bus) StakeOf(address types.Address) *big.Int {
	return b.ranking.StakeOf(address)
}
