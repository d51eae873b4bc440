package state

import (
	"log"
	"math/big"
	"sync"

	"github.com/cosmos/iavl"
	db "github.com/tendermint/tm-db"

	eventsdb "github.com/vidra-network/vidra-go-node/core/events"
	"github.com/vidra-network/vidra-go-node/core/state/accounts"
	"github.com/vidra-network/vidra-go-node/core/state/activeset"
	"github.com/vidra-network/vidra-go-node/core/state/app"
	"github.com/vidra-network/vidra-go-node/core/state/bus"
	"github.com/vidra-network/vidra-go-node/core/state/checker"
	"github.com/vidra-network/vidra-go-node/core/state/delegators"
	"github.com/vidra-network/vidra-go-node/core/state/ranking"
	"github.com/vidra-network/vidra-go-node/core/state/transcoders"
	"github.com/vidra-network/vidra-go-node/core/state/unbonding"
	"github.com/vidra-network/vidra-go-node/core/types"
	"github.com/vidra-network/vidra-go-node/helpers"
	"github.com/vidra-network/vidra-go-node/tree"
)

// CheckState is a read-only view over the state, handed to query paths
type CheckState struct {
	state *State
}

func NewCheckState(state *State) *CheckState {
	return &CheckState{state: state}
}

func (cs *CheckState) App() app.RApp {
	return cs.state.App
}
func (cs *CheckState) Accounts() accounts.RAccounts {
	return cs.state.Accounts
}
func (cs *CheckState) Transcoders() transcoders.RTranscoders {
	return cs.state.Transcoders
}
func (cs *CheckState) Delegators() delegators.RDelegators {
	return cs.state.Delegators
}
func (cs *CheckState) Ranking() *ranking.Ranking {
	return cs.state.Ranking
}
func (cs *CheckState) ActiveSet() activeset.RActiveSet {
	return cs.state.ActiveSet
}
func (cs *CheckState) Unbonding() unbonding.RUnbonding {
	return cs.state.Unbonding
}

func (cs *CheckState) Export() types.AppState {
	appState := new(types.AppState)
	cs.state.App.Export(appState)
	cs.state.Accounts.Export(appState)
	cs.state.Transcoders.Export(appState)
	cs.state.Delegators.Export(appState)
	cs.state.Ranking.Export(appState)
	cs.state.ActiveSet.Export(appState)
	cs.state.Unbonding.Export(appState)

	return *appState
}

// State ties the engine's stores to one iavl tree and commits them together
type State struct {
	App         *app.App
	Accounts    *accounts.Accounts
	Transcoders *transcoders.Transcoders
	Delegators  *delegators.Delegators
	Ranking     *ranking.Ranking
	ActiveSet   *activeset.ActiveSet
	Unbonding   *unbonding.Unbonding
	Checker     *checker.Checker

	db     db.DB
	events eventsdb.IEventsDB
	tree   tree.MTree

	bus  *bus.Bus
	lock sync.RWMutex
}

// Options carry the ranked-pool capacities, fixed at genesis
type Options struct {
	CandidateCap int
	ReserveCap   int
}

func NewState(height uint64, database db.DB, events eventsdb.IEventsDB, cacheSize int, opts Options) (*State, error) {
	iavlTree, err := tree.NewMutableTree(height, database, cacheSize)
	if err != nil {
		return nil, err
	}

	state := newStateForTree(iavlTree.GetLastImmutable(), events, database, opts)
	state.tree = iavlTree

	return state, nil
}

func (s *State) Tree() tree.MTree {
	return s.tree
}

func (s *State) Bus() *bus.Bus {
	return s.bus
}

func (s *State) Lock() {
	s.lock.Lock()
}

func (s *State) Unlock() {
	s.lock.Unlock()
}

func (s *State) RLock() {
	s.lock.RLock()
}

func (s *State) RUnlock() {
	s.lock.RUnlock()
}

// Check asserts value conservation for the uncommitted changes
func (s *State) Check() error {
	return s.Checker.Check()
}

// Commit flushes all dirty store entries into the tree and saves a version.
// Conservation is checked first: a failed check aborts the commit.
func (s *State) Commit() ([]byte, error) {
	if err := s.Checker.Check(); err != nil {
		return nil, err
	}
	s.Checker.Reset()

	hash, _, err := s.tree.Commit(
		s.Accounts,
		s.App,
		s.Transcoders,
		s.Delegators,
		s.Ranking,
		s.ActiveSet,
		s.Unbonding,
	)

	return hash, err
}

// Import seeds the state from an exported snapshot. The checker is reset at
// the end: genesis value enters by fiat, not by mint.
func (s *State) Import(state types.AppState) error {
	s.App.SetTotalMinted(helpers.StringToBigInt(state.TotalMinted))
	s.App.SetTotalBurned(helpers.StringToBigInt(state.TotalBurned))

	for _, account := range state.Accounts {
		s.Accounts.AddBalance(account.Address, helpers.StringToBigInt(account.Balance))
	}

	for _, transcoder := range state.Transcoders {
		s.Transcoders.ImportTranscoder(transcoder.Address,
			transcoder.RewardCut, transcoder.FeeShare, helpers.StringToBigInt(transcoder.PricePerSegment),
			transcoder.PendingRewardCut, transcoder.PendingFeeShare, helpers.StringToBigInt(transcoder.PendingPricePerSegment),
			transcoder.LastRewardRound, transcoder.DelegatorWithdrawRound)
	}

	for _, pool := range state.Pools {
		s.Transcoders.ImportPool(pool.Transcoder, pool.Round,
			helpers.StringToBigInt(pool.RewardTotal), helpers.StringToBigInt(pool.RewardPool), helpers.StringToBigInt(pool.FeePool),
			helpers.StringToBigInt(pool.TotalStake), helpers.StringToBigInt(pool.StakeRemaining))
	}

	for _, delegator := range state.Delegators {
		s.Delegators.AddBonded(delegator.Address, helpers.StringToBigInt(delegator.BondedAmount))
		s.Delegators.AddDelegated(delegator.Address, helpers.StringToBigInt(delegator.DelegatedAmount))
		s.Delegators.SetDelegation(delegator.Address, delegator.DelegateAddress, delegator.StartRound)
		s.Delegators.SetWithdrawRound(delegator.Address, delegator.WithdrawRound)
		s.Delegators.SetLastStakeUpdateRound(delegator.Address, delegator.LastStakeUpdateRound)
	}

	// candidates first so that ties keep the exported partition
	for _, pass := range []bool{true, false} {
		for _, transcoder := range state.Transcoders {
			if transcoder.InCandidatePool != pass {
				continue
			}
			if !transcoder.InCandidatePool && !transcoder.InReservePool {
				continue
			}

			stake := s.Delegators.DelegatedAmount(transcoder.Address)
			if _, ok := s.Ranking.Add(transcoder.Address, stake); !ok {
				log.Panicf("ranked pool rejected %s on import", transcoder.Address.String())
			}
		}
	}

	slots := make([]*activeset.Slot, 0, len(state.ActiveSet))
	for _, slot := range state.ActiveSet {
		slots = append(slots, &activeset.Slot{
			Address:         slot.Address,
			Stake:           helpers.StringToBigInt(slot.Stake),
			RewardCut:       slot.RewardCut,
			FeeShare:        slot.FeeShare,
			PricePerSegment: helpers.StringToBigInt(slot.PricePerSegment),
		})
	}
	if len(slots) != 0 || state.ActiveRound != 0 {
		s.ActiveSet.Import(state.ActiveRound, slots)
	}

	for _, unbond := range state.Unbonding {
		s.Unbonding.Lock(unbond.Address, unbond.Round, helpers.StringToBigInt(unbond.Value))
	}

	s.Checker.Reset()

	return nil
}

func (s *State) Export() types.AppState {
	return NewCheckState(s).Export()
}

func newStateForTree(immutableTree *iavl.ImmutableTree, events eventsdb.IEventsDB, database db.DB, opts Options) *State {
	stateBus := bus.NewBus()
	if events != nil {
		stateBus.SetEvents(events)
	}

	stateChecker := checker.NewChecker(stateBus)
	appState := app.NewApp(stateBus, immutableTree)
	accountsState := accounts.NewAccounts(stateBus, immutableTree)
	rankingState := ranking.NewRanking(stateBus, immutableTree, opts.CandidateCap, opts.ReserveCap)
	transcodersState := transcoders.NewTranscoders(stateBus, immutableTree)
	delegatorsState := delegators.NewDelegators(stateBus, immutableTree)
	activeSetState := activeset.NewActiveSet(stateBus, immutableTree)
	unbondingState := unbonding.NewUnbonding(stateBus, immutableTree)

	return &State{
		App:         appState,
		Accounts:    accountsState,
		Transcoders: transcodersState,
		Delegators:  delegatorsState,
		Ranking:     rankingState,
		ActiveSet:   activeSetState,
		Unbonding:   unbondingState,
		Checker:     stateChecker,
		db:          database,
		events:      events,
		bus:         stateBus,
	}
}

// TotalBonded sums bonded principal over the exported view, used in tests
// and by supply queries
func (s *State) TotalBonded() *big.Int {
	total := big.NewInt(0)
	for _, delegator := range s.Export().Delegators {
		total.Add(total, helpers.StringToBigInt(delegator.BondedAmount))
	}

	return total
}
