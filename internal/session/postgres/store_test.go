package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/session"
	"github.com/jensholdgaard/franchise-auction/internal/session/postgres"
)

func testState(runID string) *session.StateV1 {
	return &session.StateV1{
		Version:   session.CurrentVersion,
		RunID:     runID,
		HumanTeam: "CSK",
		Phase:     "AWAITING_PLAYER",
		Pool: []pool.Player{
			{Name: "A", Role: pool.RoleBatter, Demand: 96, BasePrice: 27},
			{Name: "B", Role: pool.RoleBowler, Demand: 2250, BasePrice: 200},
		},
		Teams: map[string]session.TeamStateV1{
			"CSK": {Budget: 1850, SquadNames: []string{"C"}, Prices: map[string]int{"C": 150}},
			"MI":  {Budget: 2000},
		},
		CurrentIndex: 0,
		HighestBid:   27,
	}
}

func TestStore_SaveLoad(t *testing.T) {
	db := newTestDB(t)
	clk := clock.Mock{T: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := postgres.NewStore(db, clk)
	ctx := context.Background()

	want := testState("run-pg-1")
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "run-pg-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.HumanTeam != "CSK" || got.CurrentIndex != 0 || got.HighestBid != 27 {
		t.Errorf("loaded state = %+v, want the saved run", got)
	}
	if len(got.Pool) != 2 || got.Pool[1].Name != "B" {
		t.Errorf("pool = %v, want order preserved", got.Pool)
	}
	if got.Teams["CSK"].Prices["C"] != 150 {
		t.Errorf("CSK prices = %v, want C=150", got.Teams["CSK"].Prices)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	db := newTestDB(t)
	store := postgres.NewStore(db, clock.Real{})
	ctx := context.Background()

	st := testState("run-pg-2")
	if err := store.Save(ctx, st); err != nil {
		t.Fatal(err)
	}
	st.CurrentIndex = 1
	st.HighestBid = 90
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Load(ctx, "run-pg-2")
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentIndex != 1 || got.HighestBid != 90 {
		t.Errorf("state = (index %d, bid %d), want updated (1, 90)", got.CurrentIndex, got.HighestBid)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	db := newTestDB(t)
	store := postgres.NewStore(db, clock.Real{})

	_, err := store.Load(context.Background(), "no-such-run")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := newTestDB(t)
	store := postgres.NewStore(db, clock.Real{})
	ctx := context.Background()

	if err := store.Save(ctx, testState("run-pg-3")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "run-pg-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "run-pg-3"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrNotFound", err)
	}
}
