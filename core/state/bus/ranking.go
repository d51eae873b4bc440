package bus

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

type Ranking interface {
	IsMember(types.Address) bool
	InCandidatePool(types.Address) bool
	StakeOf(types.Address) *big.Int
}
