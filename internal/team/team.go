package team

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
)

// Errors returned by squad operations.
var (
	ErrSquadFull    = errors.New("squad is full")
	ErrCannotAfford = errors.New("cannot afford this price")
)

// Rules are the per-run squad composition constraints, fixed at run start.
type Rules struct {
	MaxSquadSize     int
	MinBatters       int
	MinBowlers       int
	MinWicketkeepers int
	MinAllRounders   int
}

// RulesFromConfig converts the configured rule set.
func RulesFromConfig(cfg config.RulesConfig) Rules {
	return Rules{
		MaxSquadSize:     cfg.MaxSquadSize,
		MinBatters:       cfg.MinBatters,
		MinBowlers:       cfg.MinBowlers,
		MinWicketkeepers: cfg.MinWicketkeeper,
		MinAllRounders:   cfg.MinAllRounders,
	}
}

// SquadMember is a player owned by a team together with the price paid for
// them, whether by retention fee or winning bid.
type SquadMember struct {
	Player pool.Player
	Price  int
}

// Team is one franchise. Budget never goes negative and the squad never
// exceeds MaxSquadSize; a player's price is deducted exactly once, when the
// player enters the squad.
type Team struct {
	Name          string
	Budget        int
	InitialBudget int
	Rules         Rules
	Squad         []SquadMember
}

// CanonicalName is the uppercase form under which a franchise is keyed.
func CanonicalName(name string) string {
	return strings.ToUpper(name)
}

// New creates a team with the canonical uppercase name and a full budget.
func New(name string, budget int, rules Rules) *Team {
	return &Team{
		Name:          CanonicalName(name),
		Budget:        budget,
		InitialBudget: budget,
		Rules:         rules,
	}
}

// CanAdd reports whether a player can be bought at the given price.
func (t *Team) CanAdd(price int) error {
	if len(t.Squad) >= t.Rules.MaxSquadSize {
		return ErrSquadFull
	}
	if t.Budget < price {
		return ErrCannotAfford
	}
	return nil
}

// Add commits a player to the squad at the given price, deducting it from
// the budget. The invariants are re-checked here so a caller that skipped
// CanAdd cannot drive the budget negative.
func (t *Team) Add(p pool.Player, price int) error {
	if err := t.CanAdd(price); err != nil {
		return err
	}
	t.Squad = append(t.Squad, SquadMember{Player: p, Price: price})
	t.Budget -= price
	return nil
}

// Batters counts squad members in a pure batting role (keepers excluded,
// they satisfy their own minimum).
func (t *Team) Batters() int {
	n := 0
	for _, m := range t.Squad {
		if m.Player.Role.IsBatting() && !m.Player.Role.IsKeeper() {
			n++
		}
	}
	return n
}

// Bowlers counts squad members in the bowling role.
func (t *Team) Bowlers() int {
	n := 0
	for _, m := range t.Squad {
		if m.Player.Role == pool.RoleBowler {
			n++
		}
	}
	return n
}

// Keepers counts squad members satisfying the wicketkeeper minimum.
func (t *Team) Keepers() int {
	n := 0
	for _, m := range t.Squad {
		if m.Player.Role.IsKeeper() {
			n++
		}
	}
	return n
}

// AllRounders counts squad members in the all-rounder role.
func (t *Team) AllRounders() int {
	n := 0
	for _, m := range t.Squad {
		if m.Player.Role == pool.RoleAllRounder {
			n++
		}
	}
	return n
}

// RoleUrgency scores how badly the team needs a player of the given role.
// Unmet minimums dominate; a half-empty squad still carries mild urgency.
func (t *Team) RoleUrgency(role pool.Role) float64 {
	switch {
	case role.IsKeeper() && t.Keepers() < t.Rules.MinWicketkeepers:
		return 3.5
	case role.IsBatting() && !role.IsKeeper() && t.Batters() < t.Rules.MinBatters:
		return 3.0
	case role == pool.RoleBowler && t.Bowlers() < t.Rules.MinBowlers:
		return 3.0
	case role == pool.RoleAllRounder && t.AllRounders() < t.Rules.MinAllRounders:
		return 2.5
	case len(t.Squad) < t.Rules.MaxSquadSize/2:
		return 1.5
	default:
		return 1.0
	}
}

// SquadNames returns squad member names in acquisition order.
func (t *Team) SquadNames() []string {
	names := make([]string, len(t.Squad))
	for i, m := range t.Squad {
		names[i] = m.Player.Name
	}
	return names
}

// Prices returns the price paid for each squad member by name.
func (t *Team) Prices() map[string]int {
	prices := make(map[string]int, len(t.Squad))
	for _, m := range t.Squad {
		prices[m.Player.Name] = m.Price
	}
	return prices
}

// RebuildSquad reconstructs the squad from persisted (names, price map)
// state, sourcing full player records from the master pool. The budget is
// not touched; it is restored separately, so rebuilding must reproduce the
// exact pre-serialization squad.
func (t *Team) RebuildSquad(names []string, prices map[string]int, master pool.Pool) error {
	squad := make([]SquadMember, 0, len(names))
	for _, name := range names {
		p, ok := master.Find(name)
		if !ok {
			return fmt.Errorf("squad player %q not in master pool", name)
		}
		squad = append(squad, SquadMember{Player: p, Price: prices[name]})
	}
	t.Squad = squad
	return nil
}
