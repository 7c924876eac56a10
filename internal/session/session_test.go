package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/session"

	// Import the driver so its init() registers it.
	_ "github.com/jensholdgaard/franchise-auction/internal/session/memory"
)

func validState() *session.StateV1 {
	return &session.StateV1{
		Version:   session.CurrentVersion,
		RunID:     session.NewRunID(),
		HumanTeam: "CSK",
		Phase:     "AWAITING_PLAYER",
		Pool: []pool.Player{
			{Name: "A", Role: pool.RoleBatter, BasePrice: 20},
		},
		Teams: map[string]session.TeamStateV1{
			"CSK": {Budget: 1700, SquadNames: []string{"B"}, Prices: map[string]int{"B": 150}},
			"MI":  {Budget: 2000},
		},
		CurrentIndex: -1,
	}
}

func TestStateV1_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*session.StateV1)
		wantField string
	}{
		{"valid", func(s *session.StateV1) {}, ""},
		{"wrong version", func(s *session.StateV1) { s.Version = 2 }, "version"},
		{"missing run id", func(s *session.StateV1) { s.RunID = "" }, "run_id"},
		{"missing human team", func(s *session.StateV1) { s.HumanTeam = "" }, "human_team"},
		{"human team unknown", func(s *session.StateV1) { s.HumanTeam = "RCB" }, "human_team"},
		{"missing phase", func(s *session.StateV1) { s.Phase = "" }, "phase"},
		{"no teams", func(s *session.StateV1) { s.Teams = nil }, "teams"},
		{"negative budget", func(s *session.StateV1) {
			s.Teams["MI"] = session.TeamStateV1{Budget: -5}
		}, "teams"},
		{"squad player without price", func(s *session.StateV1) {
			s.Teams["CSK"] = session.TeamStateV1{Budget: 100, SquadNames: []string{"B"}}
		}, "teams"},
		{"unknown role in pool", func(s *session.StateV1) {
			s.Pool[0].Role = "Captain"
		}, "pool"},
		{"index out of range", func(s *session.StateV1) { s.CurrentIndex = 7 }, "current_index"},
		{"unknown role on open player", func(s *session.StateV1) {
			s.CurrentIndex = 0
			s.CurrentPlayer = &pool.Player{Name: "A", Role: "Captain", BasePrice: 20}
			s.HighestBid = 20
		}, "current_player"},
		{"unknown highest bidder", func(s *session.StateV1) { s.HighestBidder = "RCB" }, "highest_bidder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := validState()
			tt.mutate(st)
			err := st.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var rehydrationErr *session.RehydrationError
			if !errors.As(err, &rehydrationErr) {
				t.Fatalf("Validate() error = %v (%T), want *RehydrationError", err, err)
			}
			if rehydrationErr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", rehydrationErr.Field, tt.wantField)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{"memory driver registered", "memory", false},
		{"unknown driver fails", "nonexistent", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.SessionConfig{Driver: tt.driver}
			st, err := session.Open(context.Background(), cfg, clock.Real{})
			if (err != nil) != tt.wantErr {
				t.Errorf("Open(driver=%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if st != nil {
				st.Close()
			}
		})
	}
}
