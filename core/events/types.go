package events

import (
	"github.com/vidra-network/vidra-go-node/core/types"
)

// Event type names
const (
	TypeRewardEvent   = "vidra/RewardEvent"
	TypeSlashEvent    = "vidra/SlashEvent"
	TypeUnbondEvent   = "vidra/UnbondEvent"
	TypeWithdrawEvent = "vidra/WithdrawEvent"
	TypeElectionEvent = "vidra/ElectionEvent"
	TypeResignEvent   = "vidra/ResignEvent"
)

type Event interface {
	Type() string
}

type Events []Event

type Role byte

const (
	RoleTranscoder Role = iota
	RoleDelegator
	RoleFinder
)

func (r Role) String() string {
	switch r {
	case RoleTranscoder:
		return "Transcoder"
	case RoleDelegator:
		return "Delegator"
	case RoleFinder:
		return "Finder"
	}
	panic("unknown role")
}

// RewardEvent is emitted when a transcoder mints its per-round reward
type RewardEvent struct {
	Role       string        `json:"role"`
	Address    types.Address `json:"address"`
	Transcoder types.Address `json:"transcoder"`
	Amount     string        `json:"amount"`
	Round      uint64        `json:"round"`
}

func (e *RewardEvent) Type() string { return TypeRewardEvent }

// SlashEvent is emitted when a transcoder is penalized
type SlashEvent struct {
	Transcoder types.Address `json:"transcoder"`
	Penalty    string        `json:"penalty"`
	Burned     string        `json:"burned"`
	Finder     types.Address `json:"finder,omitempty"`
	FinderFee  string        `json:"finder_fee,omitempty"`
	Round      uint64        `json:"round"`
}

func (e *SlashEvent) Type() string { return TypeSlashEvent }

// UnbondEvent is emitted when a delegator starts its withdraw cooldown
type UnbondEvent struct {
	Address       types.Address `json:"address"`
	Transcoder    types.Address `json:"transcoder"`
	Amount        string        `json:"amount"`
	WithdrawRound uint64        `json:"withdraw_round"`
}

func (e *UnbondEvent) Type() string { return TypeUnbondEvent }

// WithdrawEvent is emitted when a delegator exits with its stake
type WithdrawEvent struct {
	Address types.Address `json:"address"`
	Amount  string        `json:"amount"`
	Round   uint64        `json:"round"`
}

func (e *WithdrawEvent) Type() string { return TypeWithdrawEvent }

// ElectionEvent is emitted when a transcoder is elected for a job
type ElectionEvent struct {
	Transcoder types.Address `json:"transcoder"`
	Round      uint64        `json:"round"`
}

func (e *ElectionEvent) Type() string { return TypeElectionEvent }

// ResignEvent is emitted when a transcoder resigns from the pool
type ResignEvent struct {
	Transcoder    types.Address `json:"transcoder"`
	WithdrawRound uint64        `json:"withdraw_round"`
}

func (e *ResignEvent) Type() string { return TypeResignEvent }
