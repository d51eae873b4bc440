package rounds

import (
	"sync"
)

// Clock is the engine's view of the external round clock. The engine never
// advances rounds itself; it only reads the current round index and whether
// the round has been initialized by the clock's owner.
type Clock interface {
	CurrentRound() uint64
	CurrentRoundInitialized() bool
}

// ManualClock is a settable Clock, driven by an external round
// controller in production and by hand in tests.
type ManualClock struct {
	round       uint64
	initialized bool

	lock sync.RWMutex
}

func NewManualClock(round uint64) *ManualClock {
	return &ManualClock{round: round, initialized: true}
}

func (c *ManualClock) CurrentRound() uint64 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.round
}

func (c *ManualClock) CurrentRoundInitialized() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.initialized
}

// SetRound moves the clock to the given round and marks it initialized
func (c *ManualClock) SetRound(round uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.round = round
	c.initialized = true
}

// SetInitialized toggles the initialized flag for the current round
func (c *ManualClock) SetInitialized(initialized bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.initialized = initialized
}
