package bus

import (
	"math/big"
)

type Checker interface {
	// AddValue records token value entering (positive) or leaving (negative)
	// custody of the engine's ledgers
	AddValue(*big.Int, ...string)
	// AddVolume records supply changes (mint positive, burn negative)
	AddVolume(*big.Int)
}
