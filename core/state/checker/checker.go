package checker

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/vidra-network/vidra-go-node/core/state/bus"
)

// Checker tracks token movement during a block. Every ledger that holds
// value (balances, bonded stake, token pools) reports its deltas; mint and
// burn report supply deltas. At commit the two must match, otherwise value
// appeared or vanished outside a mint or burn.
type Checker struct {
	delta       *big.Int
	volumeDelta *big.Int

	lock sync.RWMutex
}

func NewChecker(bus *bus.Bus) *Checker {
	checker := &Checker{
		delta:       big.NewInt(0),
		volumeDelta: big.NewInt(0),
	}
	bus.SetChecker(checker)

	return checker
}

func (c *Checker) AddValue(value *big.Int, _ ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.delta.Add(c.delta, value)
}

func (c *Checker) AddVolume(value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.volumeDelta.Add(c.volumeDelta, value)
}

// Reset resets checker data, called after each commit
func (c *Checker) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.delta = big.NewInt(0)
	c.volumeDelta = big.NewInt(0)
}

// Check verifies that value deltas match supply deltas for the block
func (c *Checker) Check() error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.delta.Cmp(c.volumeDelta) != 0 {
		return fmt.Errorf("invariants error: %s", big.NewInt(0).Sub(c.volumeDelta, c.delta).String())
	}

	return nil
}
