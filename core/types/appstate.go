package types

// AppState is a snapshot of the whole engine state, used for export and
// genesis import. All amounts are decimal strings.
type AppState struct {
	TotalMinted string       `json:"total_minted"`
	TotalBurned string       `json:"total_burned"`
	Accounts    []Account    `json:"accounts,omitempty"`
	Transcoders []Transcoder `json:"transcoders,omitempty"`
	Delegators  []Delegator  `json:"delegators,omitempty"`
	Pools       []TokenPool  `json:"token_pools,omitempty"`
	ActiveRound uint64       `json:"active_round"`
	ActiveSet   []ActiveSlot `json:"active_set,omitempty"`
	Unbonding   []Unbond     `json:"unbonding,omitempty"`
}

type Account struct {
	Address Address `json:"address"`
	Balance string  `json:"balance"`
}

type Transcoder struct {
	Address                Address `json:"address"`
	RewardCut              uint32  `json:"reward_cut"`
	FeeShare               uint32  `json:"fee_share"`
	PricePerSegment        string  `json:"price_per_segment"`
	PendingRewardCut       uint32  `json:"pending_reward_cut"`
	PendingFeeShare        uint32  `json:"pending_fee_share"`
	PendingPricePerSegment string  `json:"pending_price_per_segment"`
	LastRewardRound        uint64  `json:"last_reward_round"`
	DelegatorWithdrawRound uint64  `json:"delegator_withdraw_round"`
	InCandidatePool        bool    `json:"in_candidate_pool"`
	InReservePool          bool    `json:"in_reserve_pool"`
}

type Delegator struct {
	Address              Address `json:"address"`
	BondedAmount         string  `json:"bonded_amount"`
	DelegateAddress      Address `json:"delegate_address"`
	DelegatedAmount      string  `json:"delegated_amount"`
	StartRound           uint64  `json:"start_round"`
	WithdrawRound        uint64  `json:"withdraw_round"`
	LastStakeUpdateRound uint64  `json:"last_stake_update_round"`
}

type TokenPool struct {
	Transcoder     Address `json:"transcoder"`
	Round          uint64  `json:"round"`
	RewardTotal    string  `json:"reward_total"`
	RewardPool     string  `json:"reward_pool"`
	FeePool        string  `json:"fee_pool"`
	TotalStake     string  `json:"total_stake"`
	StakeRemaining string  `json:"stake_remaining"`
}

type ActiveSlot struct {
	Address         Address `json:"address"`
	Stake           string  `json:"stake"`
	RewardCut       uint32  `json:"reward_cut"`
	FeeShare        uint32  `json:"fee_share"`
	PricePerSegment string  `json:"price_per_segment"`
}

type Unbond struct {
	Round   uint64  `json:"round"`
	Address Address `json:"address"`
	Value   string  `json:"value"`
}
