package events

import (
	"testing"

	"github.com/vidra-network/vidra-go-node/core/types"
)

func TestMemStoreCommitsPerRound(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	store.AddEvent(&RewardEvent{Address: types.Address{1}, Amount: "100", Round: 5})
	store.AddEvent(&UnbondEvent{Address: types.Address{2}, Amount: "50", WithdrawRound: 7})

	// nothing is visible until the round is committed
	if loaded := store.LoadEvents(5); len(loaded) != 0 {
		t.Fatalf("loaded %d events before commit", len(loaded))
	}

	if err := store.CommitEvents(5); err != nil {
		t.Fatal(err)
	}

	loaded := store.LoadEvents(5)
	if len(loaded) != 2 {
		t.Fatalf("loaded %d events, want 2", len(loaded))
	}
	if loaded[0].Type() != TypeRewardEvent || loaded[1].Type() != TypeUnbondEvent {
		t.Fatalf("unexpected event types %s, %s", loaded[0].Type(), loaded[1].Type())
	}

	// the pending buffer is drained by the commit
	if err := store.CommitEvents(6); err != nil {
		t.Fatal(err)
	}
	if loaded := store.LoadEvents(6); len(loaded) != 0 {
		t.Fatalf("round 6 has %d events, want 0", len(loaded))
	}
}
