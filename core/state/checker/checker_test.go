package checker

import (
	"math/big"
	"testing"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
)

func TestCheckerBalancedDeltas(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	// a mint that lands in a value ledger must balance out
	c.AddVolume(big.NewInt(100))
	c.AddValue(big.NewInt(100), "bonded")

	if err := c.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestCheckerCatchesLeak(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	c.AddValue(big.NewInt(100), "bonded")

	if err := c.Check(); err == nil {
		t.Fatal("value appeared without a mint, check must fail")
	}
}

func TestCheckerInternalMovesCancel(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	c.AddValue(big.NewInt(-100), "balance")
	c.AddValue(big.NewInt(100), "bonded")

	if err := c.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestCheckerReset(t *testing.T) {
	t.Parallel()
	c := NewChecker(bus.NewBus())

	c.AddValue(big.NewInt(100), "bonded")
	c.Reset()

	if err := c.Check(); err != nil {
		t.Fatal(err)
	}
}
