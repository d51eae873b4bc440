package rewards

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// DefaultInflationRate is the per-round issuance as millionths of total
// supply, roughly 0.0137% per round
const DefaultInflationRate = 137

// RoundIssuance returns the amount minted for one round given the current
// total supply and the inflation rate in millionths
func RoundIssuance(totalSupply *big.Int, inflationRate uint32) *big.Int {
	issuance := big.NewInt(0).Mul(totalSupply, big.NewInt(int64(inflationRate)))
	return issuance.Div(issuance, big.NewInt(types.PercDivisor))
}

// MintShare splits the round's issuance proportionally to a participant's
// weight. Used with weight = a transcoder's frozen active stake and
// totalWeight = the round's total active stake.
func MintShare(issuance, weight, totalWeight *big.Int) *big.Int {
	if totalWeight.Sign() != 1 || weight.Sign() != 1 {
		return big.NewInt(0)
	}

	share := big.NewInt(0).Mul(issuance, weight)
	return share.Div(share, totalWeight)
}
