package ranking

import (
	"math/big"

	"github.com/vidra-network/vidra-go-node/core/types"
)

// Entry is one ranked-pool member. Seq is the global insertion counter,
// used to break stake ties deterministically: on equal stake the earlier
// insertion ranks higher.
type Entry struct {
	Address types.Address
	Stake   *big.Int
	Seq     uint64
}

// Model is the persisted form of both pools
type Model struct {
	Candidates []*Entry
	Reserve    []*Entry
	NextSeq    uint64
}

// rankHigher reports whether a outranks b
func rankHigher(a, b *Entry) bool {
	switch a.Stake.Cmp(b.Stake) {
	case 1:
		return true
	case -1:
		return false
	}
	return a.Seq < b.Seq
}
