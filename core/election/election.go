package election

import (
	"math/big"

	"github.com/tendermint/tendermint/crypto/tmhash"

	"github.com/vidra-network/vidra-go-node/core/state/activeset"
)

// RandProvider draws one pseudorandom integer in [0, max). Implementations
// must be deterministic given their seed material so election stays
// replayable.
type RandProvider interface {
	Draw(max *big.Int) *big.Int
}

// SeedProvider derives draws from an external unpredictable seed, such as a
// recent block hash. The same seed always yields the same draw.
type SeedProvider struct {
	seed []byte
}

func NewSeedProvider(seed []byte) *SeedProvider {
	return &SeedProvider{seed: seed}
}

func (p *SeedProvider) Draw(max *big.Int) *big.Int {
	if max.Sign() != 1 {
		return big.NewInt(0)
	}

	hash := tmhash.Sum(p.seed)
	draw := big.NewInt(0).SetBytes(hash)
	return draw.Mod(draw, max)
}

// FixedProvider returns a fixed draw clamped into range, used in tests
type FixedProvider struct {
	value *big.Int
}

func NewFixedProvider(value *big.Int) *FixedProvider {
	return &FixedProvider{value: big.NewInt(0).Set(value)}
}

func (p *FixedProvider) Draw(max *big.Int) *big.Int {
	if max.Sign() != 1 {
		return big.NewInt(0)
	}
	if p.value.Cmp(max) != -1 {
		return big.NewInt(0).Mod(p.value, max)
	}

	return big.NewInt(0).Set(p.value)
}

// Elect picks one member of the active set whose advertised price does not
// exceed the ceiling, weighted by frozen stake: a single draw in
// [0, totalEligibleStake) followed by a cumulative walk over the filtered
// set in frozen order. Returns nil when no member is eligible, which is a
// valid empty result rather than an error.
func Elect(slots []*activeset.Slot, priceCeiling *big.Int, provider RandProvider) *activeset.Slot {
	eligible := make([]*activeset.Slot, 0, len(slots))
	totalStake := big.NewInt(0)
	for _, slot := range slots {
		if slot.PricePerSegment.Cmp(priceCeiling) == 1 {
			continue
		}

		eligible = append(eligible, slot)
		totalStake.Add(totalStake, slot.Stake)
	}

	if len(eligible) == 0 || totalStake.Sign() != 1 {
		return nil
	}

	draw := provider.Draw(totalStake)

	sum := big.NewInt(0)
	for _, slot := range eligible {
		sum.Add(sum, slot.Stake)
		if sum.Cmp(draw) == 1 {
			return slot
		}
	}

	// unreachable while draw < totalStake; kept as a hard stop
	return eligible[len(eligible)-1]
}
