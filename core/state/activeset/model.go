package activeset

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// Slot is one member of the round's frozen active set. Stake and rates are
// snapshots taken at the round transition: later bonds, unbonds and rate
// proposals do not touch them.
type Slot struct {
	Address         types.Address
	Stake           *big.Int
	RewardCut       uint32
	FeeShare        uint32
	PricePerSegment *big.Int
}

// Model is the persisted active set of a single round
type Model struct {
	Round uint64
	Slots []*Slot
}
