package bonding

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/vidra-network/vidra-go-node/config"
	"github.com/vidra-network/vidra-go-node/core/code"
	"github.com/vidra-network/vidra-go-node/core/election"
	"github.com/vidra-network/vidra-go-node/core/events"
	"github.com/vidra-network/vidra-go-node/core/rewards"
	"github.com/vidra-network/vidra-go-node/core/rounds"
	"github.com/vidra-network/vidra-go-node/core/state"
	"github.com/vidra-network/vidra-go-node/core/state/activeset"
	"github.com/vidra-network/vidra-go-node/core/state/delegators"
	"github.com/vidra-network/vidra-go-node/core/types"
)

// BondingManager is the engine's operation surface. Every mutating call
// validates all its preconditions before touching any store, so a non-zero
// response code guarantees the ledger is unchanged. Calls are serialized by
// the caller; the manager holds no lock of its own.
type BondingManager struct {
	state  *state.State
	clock  rounds.Clock
	cfg    *config.Config
	logger tmlog.Logger

	// restricted operations check the caller against these two
	workProtocol types.Address
	roundClock   types.Address
}

func NewBondingManager(s *state.State, clock rounds.Clock, cfg *config.Config, logger tmlog.Logger,
	workProtocol, roundClock types.Address) *BondingManager {
	return &BondingManager{
		state:        s,
		clock:        clock,
		cfg:          cfg,
		logger:       logger,
		workProtocol: workProtocol,
		roundClock:   roundClock,
	}
}

// RegisterTranscoder enters the caller into the ranked pool with an initial
// self-bond and proposed rates. The rates take effect at the next round
// transition.
func (m *BondingManager) RegisterTranscoder(caller types.Address, rewardCut, feeShare uint32, pricePerSegment, initialStake *big.Int) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if rewardCut > types.PercDivisor || feeShare > types.PercDivisor {
		return Response{
			Code: code.InvalidRate,
			Log:  fmt.Sprintf("rate out of range: reward cut %d, fee share %d", rewardCut, feeShare),
			Info: EncodeError(code.NewInvalidRate(fmt.Sprintf("%d/%d", rewardCut, feeShare))),
		}
	}
	if pricePerSegment.Sign() == -1 {
		return Response{
			Code: code.InvalidRate,
			Log:  "price per segment must not be negative",
			Info: EncodeError(code.NewInvalidRate(pricePerSegment.String())),
		}
	}

	switch m.state.Transcoders.Status(caller, round) {
	case types.TranscoderResigned:
		return Response{
			Code: code.IneligibleCaller,
			Log:  "resigned transcoder may not re-register before its withdraw round",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), types.TranscoderResigned.String())),
		}
	case types.TranscoderRegistered:
		return Response{
			Code: code.TranscoderExists,
			Log:  "transcoder already registered",
			Info: EncodeError(code.NewTranscoderExists(caller.String())),
		}
	}

	if m.state.Delegators.Status(caller, round) == types.DelegatorUnbonding {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "caller is mid-unbonding",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), types.DelegatorUnbonding.String())),
		}
	}

	if initialStake.Sign() != 1 {
		return Response{
			Code: code.StakeShouldBePositive,
			Log:  "initial stake must be positive",
			Info: EncodeError(code.NewStakeShouldBePositive(initialStake.String())),
		}
	}

	if m.state.Accounts.GetBalance(caller).Cmp(initialStake) == -1 {
		return Response{
			Code: code.InsufficientFunds,
			Log:  "insufficient balance for initial stake",
			Info: EncodeError(code.NewInsufficientFunds(caller.String(), initialStake.String())),
		}
	}

	if err := m.catchUp(caller, round); err != nil {
		return *err
	}

	// prospective ranking key is the existing delegated stake plus the new
	// self-bond; a rejected insert leaves the pool untouched
	stake := big.NewInt(0).Add(m.state.Delegators.DelegatedAmount(caller), initialStake)
	if _, ok := m.state.Ranking.Add(caller, stake); !ok {
		return Response{
			Code: code.InsufficientStake,
			Log:  "stake too low for both pools",
			Info: EncodeError(code.NewInsufficientStake(caller.String(), stake.String())),
		}
	}

	m.state.Accounts.SubBalance(caller, initialStake)
	m.state.Delegators.AddBonded(caller, initialStake)
	m.state.Delegators.AddDelegated(caller, initialStake)
	m.state.Delegators.SetDelegation(caller, caller, round+1)
	m.state.Delegators.SetWithdrawRound(caller, 0)
	m.state.Delegators.SetLastStakeUpdateRound(caller, round)

	m.state.Transcoders.SetPendingRates(caller, rewardCut, feeShare, pricePerSegment)
	m.state.Transcoders.SetDelegatorWithdrawRound(caller, 0)

	return Response{Code: code.OK}
}

// Resign removes the caller from the ranked pool and schedules its
// delegators for exit after the unbonding period. The caller's own bond
// exits through the same cascade.
func (m *BondingManager) Resign(caller types.Address) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if m.state.Transcoders.Status(caller, round) != types.TranscoderRegistered {
		return Response{
			Code: code.TranscoderNotFound,
			Log:  "caller is not a registered transcoder",
			Info: EncodeError(code.NewTranscoderNotFound(caller.String())),
		}
	}

	if err := m.catchUp(caller, round); err != nil {
		return *err
	}

	withdrawRound := round + m.cfg.UnbondingPeriod
	m.state.Transcoders.SetDelegatorWithdrawRound(caller, withdrawRound)
	m.state.Ranking.Remove(caller)
	m.state.ActiveSet.Remove(caller)

	m.emit(&events.ResignEvent{Transcoder: caller, WithdrawRound: withdrawRound})

	return Response{Code: code.OK}
}

// Bond stakes amount from the caller's balance toward a registered
// transcoder. The delegation becomes effective next round; a bonded
// delegator may only add stake toward its current delegate.
func (m *BondingManager) Bond(caller, delegate types.Address, amount *big.Int) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if amount.Sign() != 1 {
		return Response{
			Code: code.StakeShouldBePositive,
			Log:  "bond amount must be positive",
			Info: EncodeError(code.NewStakeShouldBePositive(amount.String())),
		}
	}

	status := m.state.Delegators.Status(caller, round)
	if status == types.DelegatorUnbonding {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "may not bond mid-unbonding",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), status.String())),
		}
	}
	if status != types.DelegatorUnbonded && m.state.Delegators.DelegateAddress(caller) != delegate {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "changing delegate requires a full unbond first",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), status.String())),
		}
	}

	if m.state.Transcoders.Status(delegate, round) != types.TranscoderRegistered {
		return Response{
			Code: code.TranscoderNotFound,
			Log:  "delegate is not a registered transcoder",
			Info: EncodeError(code.NewTranscoderNotFound(delegate.String())),
		}
	}

	if m.state.Accounts.GetBalance(caller).Cmp(amount) == -1 {
		return Response{
			Code: code.InsufficientFunds,
			Log:  "insufficient balance for bond",
			Info: EncodeError(code.NewInsufficientFunds(caller.String(), amount.String())),
		}
	}

	if err := m.catchUp(caller, round); err != nil {
		return *err
	}

	newDelegation := status == types.DelegatorUnbonded
	m.state.Accounts.SubBalance(caller, amount)
	m.state.Delegators.AddBonded(caller, amount)
	if newDelegation {
		m.state.Delegators.SetDelegation(caller, delegate, round+1)
		m.state.Delegators.SetWithdrawRound(caller, 0)
		m.state.Delegators.SetLastStakeUpdateRound(caller, round)
	}

	m.state.Delegators.AddDelegated(delegate, amount)
	if m.state.Ranking.IsMember(delegate) {
		m.state.Ranking.IncreaseStake(delegate, amount)
	}

	return Response{Code: code.OK}
}

// Unbond starts the caller's withdraw cooldown for its whole bond. The
// stake stops backing the delegate immediately; the funds unlock after the
// unbonding period.
func (m *BondingManager) Unbond(caller types.Address) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	status := m.state.Delegators.Status(caller, round)
	if status != types.DelegatorBonded {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "only a bonded delegator may unbond",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), status.String())),
		}
	}

	if err := m.catchUp(caller, round); err != nil {
		return *err
	}

	bonded := m.state.Delegators.BondedAmount(caller)
	delegate := m.state.Delegators.DelegateAddress(caller)
	withdrawRound := round + m.cfg.UnbondingPeriod

	m.state.Delegators.SetWithdrawRound(caller, withdrawRound)
	m.state.Delegators.SubBonded(caller, bonded)
	m.state.Unbonding.Lock(caller, withdrawRound, bonded)

	m.state.Delegators.SubDelegated(delegate, bonded)
	if m.state.Ranking.IsMember(delegate) {
		m.state.Ranking.DecreaseStake(delegate, bonded)
	}

	m.emit(&events.UnbondEvent{
		Address:       caller,
		Transcoder:    delegate,
		Amount:        bonded.String(),
		WithdrawRound: withdrawRound,
	})

	return Response{Code: code.OK}
}

// Withdraw pays out the caller's matured stake and deletes its record.
// Covers both paths: a voluntary unbond whose cooldown elapsed, and the
// cascade where the caller's delegate resigned or was slashed.
func (m *BondingManager) Withdraw(caller types.Address) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if !m.state.Delegators.Exists(caller) {
		return Response{
			Code: code.DelegatorNotFound,
			Log:  "no delegator record",
			Info: EncodeError(code.NewDelegatorNotFound(caller.String())),
		}
	}

	status := m.state.Delegators.Status(caller, round)
	if status != types.DelegatorUnbonded {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "stake is not withdrawable yet",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), status.String())),
		}
	}

	total := big.NewInt(0)

	if withdrawRound := m.state.Delegators.WithdrawRound(caller); withdrawRound > 0 {
		total.Add(total, m.state.Unbonding.Take(caller, withdrawRound))
	}

	// cascade path: funds never left the bonded ledger
	if bonded := m.state.Delegators.BondedAmount(caller); bonded.Sign() == 1 {
		m.state.Delegators.SubBonded(caller, bonded)
		total.Add(total, bonded)
	}

	delegate := m.state.Delegators.DelegateAddress(caller)
	if !delegate.IsZero() && m.state.Delegators.WithdrawRound(caller) == 0 {
		// cascade exit: the stake still counts toward the delegate's index
		if delegated := m.state.Delegators.DelegatedAmount(delegate); delegated.Sign() == 1 {
			m.state.Delegators.SubDelegated(delegate, minBig(delegated, total))
		}
	}

	m.state.Delegators.Delete(caller)
	m.state.Accounts.AddBalance(caller, total)

	m.emit(&events.WithdrawEvent{Address: caller, Amount: total.String(), Round: round})

	return Response{Code: code.OK}
}

// Reward mints the caller's share of the round's issuance. The delegator
// portion lands in the round's token pool; the transcoder's cut compounds
// into its own bond immediately. At most one mint per transcoder per round.
func (m *BondingManager) Reward(caller types.Address) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	slot := m.state.ActiveSet.GetSlot(caller)
	if slot == nil || m.state.ActiveSet.Round() != round {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "caller is not in the current round's active set",
			Info: EncodeError(code.NewIneligibleCaller(caller.String(), m.state.Transcoders.Status(caller, round).String())),
		}
	}

	if m.state.Transcoders.GetLastRewardRound(caller) >= round {
		return Response{
			Code: code.DuplicateRewardClaim,
			Log:  "reward already minted this round",
			Info: EncodeError(code.NewDuplicateRewardClaim(caller.String(), strconv.FormatUint(round, 10))),
		}
	}

	if err := m.catchUp(caller, round); err != nil {
		return *err
	}

	issuance := rewards.RoundIssuance(m.state.App.GetTotalSupply(), m.cfg.InflationRate)
	minted := rewards.MintShare(issuance, slot.Stake, m.state.ActiveSet.TotalActiveStake())

	m.state.Transcoders.SetLastRewardRound(caller, round)
	if minted.Sign() != 1 {
		return Response{Code: code.OK}
	}

	m.state.App.AddTotalMinted(minted)

	transcoderCut := big.NewInt(0).Mul(minted, big.NewInt(int64(slot.RewardCut)))
	transcoderCut.Div(transcoderCut, big.NewInt(types.PercDivisor))
	delegatorShare := big.NewInt(0).Sub(minted, transcoderCut)

	if transcoderCut.Sign() == 1 {
		m.state.Delegators.AddBonded(caller, transcoderCut)
	}
	if delegatorShare.Sign() == 1 {
		m.state.Transcoders.AddToRewardPool(caller, round, delegatorShare, slot.Stake)
	}

	// the ranking key tracks accrual before delegators lazily claim it
	m.state.Delegators.AddDelegated(caller, minted)
	if m.state.Ranking.IsMember(caller) {
		m.state.Ranking.IncreaseStake(caller, minted)
	}

	m.emit(&events.RewardEvent{
		Role:       events.RoleTranscoder.String(),
		Address:    caller,
		Transcoder: caller,
		Amount:     minted.String(),
		Round:      round,
	})

	return Response{Code: code.OK}
}

// DepositFees credits earned service fees to a transcoder's round pool,
// split by its committed fee share. Work-protocol only; the fees move out
// of the work protocol's custody balance.
func (m *BondingManager) DepositFees(caller, transcoder types.Address, amount *big.Int, round uint64) Response {
	currentRound, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if caller != m.workProtocol {
		return m.unauthorized(caller)
	}

	if amount.Sign() != 1 {
		return Response{
			Code: code.StakeShouldBePositive,
			Log:  "fee amount must be positive",
			Info: EncodeError(code.NewStakeShouldBePositive(amount.String())),
		}
	}

	if m.state.Transcoders.Status(transcoder, currentRound) != types.TranscoderRegistered {
		return Response{
			Code: code.TranscoderNotFound,
			Log:  "fee target is not a registered transcoder",
			Info: EncodeError(code.NewTranscoderNotFound(transcoder.String())),
		}
	}

	if m.state.Accounts.GetBalance(caller).Cmp(amount) == -1 {
		return Response{
			Code: code.InsufficientFunds,
			Log:  "insufficient work-protocol balance for fee deposit",
			Info: EncodeError(code.NewInsufficientFunds(caller.String(), amount.String())),
		}
	}

	if err := m.catchUp(transcoder, currentRound); err != nil {
		return *err
	}

	_, feeShare, _ := m.state.Transcoders.GetRates(transcoder)

	delegatorFees := big.NewInt(0).Mul(amount, big.NewInt(int64(feeShare)))
	delegatorFees.Div(delegatorFees, big.NewInt(types.PercDivisor))
	transcoderFees := big.NewInt(0).Sub(amount, delegatorFees)

	m.state.Accounts.SubBalance(caller, amount)
	if transcoderFees.Sign() == 1 {
		m.state.Delegators.AddBonded(transcoder, transcoderFees)
	}
	if delegatorFees.Sign() == 1 {
		m.state.Transcoders.AddToFeePool(transcoder, round, delegatorFees, m.state.Ranking.StakeOf(transcoder))
	}

	m.state.Delegators.AddDelegated(transcoder, amount)
	m.state.Ranking.IncreaseStake(transcoder, amount)

	return Response{Code: code.OK}
}

// Slash penalizes a registered transcoder by a fraction of its own bond,
// pays the finder its fee and burns the remainder. The transcoder leaves
// both pools and its delegators cascade into unbonding.
func (m *BondingManager) Slash(caller, transcoder, finder types.Address, slashFraction, finderFeeFraction uint32) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if caller != m.workProtocol {
		return m.unauthorized(caller)
	}

	if slashFraction > types.PercDivisor || finderFeeFraction > types.PercDivisor {
		return Response{
			Code: code.InvalidRate,
			Log:  fmt.Sprintf("fraction out of range: slash %d, finder fee %d", slashFraction, finderFeeFraction),
			Info: EncodeError(code.NewInvalidRate(fmt.Sprintf("%d/%d", slashFraction, finderFeeFraction))),
		}
	}

	if m.state.Transcoders.Status(transcoder, round) != types.TranscoderRegistered {
		return Response{
			Code: code.IneligibleCaller,
			Log:  "slash target is not a registered transcoder",
			Info: EncodeError(code.NewIneligibleCaller(transcoder.String(), m.state.Transcoders.Status(transcoder, round).String())),
		}
	}

	if err := m.catchUp(transcoder, round); err != nil {
		return *err
	}

	bonded := m.state.Delegators.BondedAmount(transcoder)
	penalty := big.NewInt(0).Mul(bonded, big.NewInt(int64(slashFraction)))
	penalty.Div(penalty, big.NewInt(types.PercDivisor))
	if penalty.Cmp(bonded) == 1 {
		penalty.Set(bonded)
	}

	finderFee := big.NewInt(0)
	if !finder.IsZero() {
		finderFee.Mul(penalty, big.NewInt(int64(finderFeeFraction)))
		finderFee.Div(finderFee, big.NewInt(types.PercDivisor))
	}
	burned := big.NewInt(0).Sub(penalty, finderFee)

	if penalty.Sign() == 1 {
		m.state.Delegators.SubBonded(transcoder, penalty)
		m.state.Delegators.SubDelegated(transcoder, penalty)
	}
	if finderFee.Sign() == 1 {
		m.state.Accounts.AddBalance(finder, finderFee)
	}
	if burned.Sign() == 1 {
		m.state.App.AddTotalBurned(burned)
	}

	withdrawRound := round + m.cfg.UnbondingPeriod
	m.state.Transcoders.SetDelegatorWithdrawRound(transcoder, withdrawRound)
	m.state.Ranking.Remove(transcoder)
	m.state.ActiveSet.Remove(transcoder)

	m.logger.Info("transcoder slashed", "transcoder", transcoder.String(),
		"penalty", penalty.String(), "burned", burned.String(), "round", round)
	m.emit(&events.SlashEvent{
		Transcoder: transcoder,
		Penalty:    penalty.String(),
		Burned:     burned.String(),
		Finder:     finder,
		FinderFee:  finderFee.String(),
		Round:      round,
	})

	return Response{Code: code.OK}
}

// Elect picks an active transcoder for a job under the given price ceiling,
// stake-weighted. A nil address with code OK is a valid empty result. The
// elected transcoder's pool denominator is frozen for the round on first
// election.
func (m *BondingManager) Elect(caller types.Address, priceCeiling *big.Int, provider election.RandProvider) (*types.Address, Response) {
	round, resp := m.requireRound()
	if resp != nil {
		return nil, *resp
	}

	if caller != m.workProtocol {
		return nil, m.unauthorized(caller)
	}

	slot := election.Elect(m.state.ActiveSet.GetAll(), priceCeiling, provider)
	if slot == nil {
		return nil, Response{Code: code.OK, Log: "no eligible transcoder"}
	}

	m.state.Transcoders.GetOrNewPool(slot.Address, round, m.state.Ranking.StakeOf(slot.Address))

	elected := slot.Address
	m.emit(&events.ElectionEvent{Transcoder: elected, Round: round})

	return &elected, Response{Code: code.OK}
}

// SetCurrentRoundActiveSet freezes the ranked candidate pool into the
// round's active set and commits pending rates. Round-clock only.
func (m *BondingManager) SetCurrentRoundActiveSet(caller types.Address) Response {
	round, resp := m.requireRound()
	if resp != nil {
		return *resp
	}

	if caller != m.roundClock {
		return m.unauthorized(caller)
	}

	var members []activeset.Member
	m.state.Ranking.IterateCandidates(func(address types.Address, stake *big.Int) bool {
		members = append(members, activeset.Member{Address: address, Stake: stake})
		return false
	})

	m.state.ActiveSet.SetNewActiveSet(round, members)

	return Response{Code: code.OK}
}

// DelegatorStake returns the delegator's bond including unclaimed accrual
func (m *BondingManager) DelegatorStake(address types.Address) *big.Int {
	if !m.clock.CurrentRoundInitialized() {
		return m.state.Delegators.BondedAmount(address)
	}

	return m.state.Delegators.PendingStake(address, m.clock.CurrentRound())
}

// TranscoderTotalStake returns the transcoder's ranking key
func (m *BondingManager) TranscoderTotalStake(address types.Address) *big.Int {
	return m.state.Ranking.StakeOf(address)
}

// TranscoderStatus derives the transcoder's registration state
func (m *BondingManager) TranscoderStatus(address types.Address) types.TranscoderStatus {
	return m.state.Transcoders.Status(address, m.clock.CurrentRound())
}

// DelegatorStatus derives the delegator's bonding state
func (m *BondingManager) DelegatorStatus(address types.Address) types.DelegatorStatus {
	return m.state.Delegators.Status(address, m.clock.CurrentRound())
}

// catchUp force-applies the lazy engine for the address through the current
// round, looping over the per-call bound until the watermark stops moving
func (m *BondingManager) catchUp(address types.Address, round uint64) *Response {
	var prev uint64
	for first := true; ; first = false {
		applied, err := m.state.Delegators.ApplyRewardsAndFees(address, round, round, m.cfg.MaxLazyRounds)
		if err != nil {
			if errors.Is(err, delegators.ErrMonotonicityViolation) {
				resp := Response{
					Code: code.MonotonicityViolation,
					Log:  err.Error(),
					Info: EncodeError(code.NewMonotonicityViolation(address.String(),
						strconv.FormatUint(applied, 10), strconv.FormatUint(round, 10))),
				}
				return &resp
			}

			resp := Response{
				Code: code.PoolDepleted,
				Log:  err.Error(),
				Info: EncodeError(code.NewPoolDepleted(address.String())),
			}
			return &resp
		}

		if applied >= round || (!first && applied == prev) {
			return nil
		}
		prev = applied
	}
}

func (m *BondingManager) requireRound() (uint64, *Response) {
	if !m.clock.CurrentRoundInitialized() {
		resp := Response{
			Code: code.RoundNotInitialized,
			Log:  "round clock has not initialized the current round",
			Info: EncodeError(code.NewRoundNotInitialized(strconv.FormatUint(m.clock.CurrentRound(), 10))),
		}
		return 0, &resp
	}

	return m.clock.CurrentRound(), nil
}

func (m *BondingManager) unauthorized(caller types.Address) Response {
	return Response{
		Code: code.Unauthorized,
		Log:  "caller is not allowed to invoke this operation",
		Info: EncodeError(code.NewUnauthorized(caller.String())),
	}
}

func (m *BondingManager) emit(event events.Event) {
	if m.state.Bus().Events() != nil {
		m.state.Bus().Events().AddEvent(event)
	}
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) == -1 {
		return a
	}
	return b
}
