// Package session persists the full state of one auction run between
// requests. State is versioned; every load runs field-by-field validation
// so a stale or truncated blob surfaces as a RehydrationError the front
// end can answer with "restart the flow" instead of crashing mid-run.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jensholdgaard/franchise-auction/internal/bidding"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
)

// CurrentVersion is the state schema version written by this build.
const CurrentVersion = 1

// RehydrationError reports persisted state that cannot be trusted. The
// caller must restart the run from initialization.
type RehydrationError struct {
	Field  string
	Reason string
}

func (e *RehydrationError) Error() string {
	return fmt.Sprintf("rehydrating session state: field %q: %s", e.Field, e.Reason)
}

// NewRunID mints an identifier for a new auction run.
func NewRunID() string {
	return uuid.NewString()
}

// TeamStateV1 is the persisted form of one franchise. The squad is stored
// as (names, price map); full player records are re-derived from the
// master pool on restore.
type TeamStateV1 struct {
	Budget     int            `json:"budget"`
	SquadNames []string       `json:"squad"`
	Prices     map[string]int `json:"prices"`
}

// SoldPlayer is one completed sale.
type SoldPlayer struct {
	Name  string    `json:"name"`
	Price int       `json:"price"`
	Team  string    `json:"team_id"`
	Role  pool.Role `json:"role"`
}

// StateV1 is version 1 of the persisted run state. It carries everything
// needed to resume mid-auction: the shuffled bidding pool in order, every
// team's budget and squad, the open player with its bid log, and the
// sold/unsold history.
type StateV1 struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	SavedAt   time.Time `json:"saved_at"`
	HumanTeam string    `json:"human_team"`
	Phase     string    `json:"phase"`

	Pool  []pool.Player          `json:"pool"`
	Teams map[string]TeamStateV1 `json:"teams"`

	CurrentIndex  int             `json:"current_index"`
	CurrentPlayer *pool.Player    `json:"current_player,omitempty"`
	BidLog        []bidding.Event `json:"bid_log"`
	HighestBid    int             `json:"highest_bid"`
	HighestBidder string          `json:"highest_bidder,omitempty"`

	Sold   []SoldPlayer  `json:"sold"`
	Unsold []pool.Player `json:"unsold"`
}

// Validate checks the state field by field. Any failure is a
// *RehydrationError; a valid state restores without surprises.
func (s *StateV1) Validate() error {
	if s.Version != CurrentVersion {
		return &RehydrationError{Field: "version", Reason: fmt.Sprintf("got %d, want %d", s.Version, CurrentVersion)}
	}
	if s.RunID == "" {
		return &RehydrationError{Field: "run_id", Reason: "empty"}
	}
	if s.HumanTeam == "" {
		return &RehydrationError{Field: "human_team", Reason: "empty"}
	}
	if s.Phase == "" {
		return &RehydrationError{Field: "phase", Reason: "empty"}
	}
	if len(s.Teams) == 0 {
		return &RehydrationError{Field: "teams", Reason: "no teams"}
	}
	if _, ok := s.Teams[s.HumanTeam]; !ok {
		return &RehydrationError{Field: "human_team", Reason: fmt.Sprintf("%q not among persisted teams", s.HumanTeam)}
	}
	for name, ts := range s.Teams {
		if ts.Budget < 0 {
			return &RehydrationError{Field: "teams", Reason: fmt.Sprintf("team %q has negative budget %d", name, ts.Budget)}
		}
		for _, player := range ts.SquadNames {
			if _, ok := ts.Prices[player]; !ok {
				return &RehydrationError{Field: "teams", Reason: fmt.Sprintf("team %q squad player %q has no price", name, player)}
			}
		}
	}
	for _, p := range s.Pool {
		if !p.Role.Valid() {
			return &RehydrationError{Field: "pool", Reason: fmt.Sprintf("player %q has unknown role %q", p.Name, p.Role)}
		}
	}
	if s.CurrentIndex < -1 || s.CurrentIndex > len(s.Pool) {
		return &RehydrationError{Field: "current_index", Reason: fmt.Sprintf("%d out of range for pool of %d", s.CurrentIndex, len(s.Pool))}
	}
	if s.CurrentPlayer != nil {
		if s.HighestBid < 0 {
			return &RehydrationError{Field: "highest_bid", Reason: "negative while a player is open"}
		}
		if !s.CurrentPlayer.Role.Valid() {
			return &RehydrationError{Field: "current_player", Reason: fmt.Sprintf("unknown role %q", s.CurrentPlayer.Role)}
		}
	}
	if s.HighestBidder != "" {
		if _, ok := s.Teams[s.HighestBidder]; !ok {
			return &RehydrationError{Field: "highest_bidder", Reason: fmt.Sprintf("%q not among persisted teams", s.HighestBidder)}
		}
	}
	return nil
}
