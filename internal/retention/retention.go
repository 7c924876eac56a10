package retention

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/team"
)

// ErrConstraint reports a retention submission that violates the configured
// bounds. The whole submission is rejected; the caller may resubmit.
var ErrConstraint = errors.New("retention constraint violated")

// Mode selects how retention counts are bounded.
type Mode string

const (
	// ModeExact requires every team to retain exactly the target count.
	ModeExact Mode = "exact"
	// ModeAny lets the human retain any number within the configured cap;
	// AI teams pick a small random count.
	ModeAny Mode = "any"
)

// Resolver performs the one-time pre-auction retention phase.
type Resolver struct {
	cfg    config.RetentionConfig
	logger *slog.Logger
	rng    random.Source
}

// NewResolver returns a retention Resolver.
func NewResolver(cfg config.RetentionConfig, logger *slog.Logger, rng random.Source) *Resolver {
	return &Resolver{cfg: cfg, logger: logger, rng: rng}
}

// Fee returns the fixed per-player retention fee.
func (r *Resolver) Fee() int { return r.cfg.Fee }

// ValidateHumanChoice checks the human submission against the mode bounds.
func (r *Resolver) ValidateHumanChoice(mode Mode, target int, chosen []string) error {
	switch mode {
	case ModeExact:
		if target < r.cfg.ExactMin || target > r.cfg.ExactMax {
			return fmt.Errorf("%w: exact retention count %d outside [%d, %d]",
				ErrConstraint, target, r.cfg.ExactMin, r.cfg.ExactMax)
		}
		if len(chosen) != target {
			return fmt.Errorf("%w: selected %d players, need exactly %d",
				ErrConstraint, len(chosen), target)
		}
	case ModeAny:
		if len(chosen) > r.cfg.AnyMax {
			return fmt.Errorf("%w: selected %d players, cap is %d",
				ErrConstraint, len(chosen), r.cfg.AnyMax)
		}
	default:
		return fmt.Errorf("%w: unknown retention mode %q", ErrConstraint, mode)
	}
	return nil
}

// AICount picks the number of players an AI team retains in any-number
// mode: random in [1, 4], clamped so the team keeps at least one open squad
// slot and never exceeds its roster.
func (r *Resolver) AICount(rosterLen, maxSquadSize int) int {
	if rosterLen == 0 {
		return 0
	}
	n := random.Between(r.rng, 1, 4)
	if limit := maxSquadSize - 1; n > limit {
		n = limit
	}
	if n > rosterLen {
		n = rosterLen
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Resolve retains up to target players for one team and removes them from
// the global pool. Candidates come from the team's original roster, sorted
// by demand descending. A human submission retains the chosen names in the
// order given, ignoring unknowns; AI teams take the top candidates by
// demand. A candidate the team cannot afford is skipped silently and stays
// in the pool. Returns the names retained.
func (r *Resolver) Resolve(tm *team.Team, global *pool.Pool, rosterNames []string, target int, chosenNames []string, isHuman bool) ([]string, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: negative retention target %d", ErrConstraint, target)
	}

	candidates := make([]pool.Player, 0, len(rosterNames))
	for _, name := range rosterNames {
		if p, ok := global.Find(name); ok {
			candidates = append(candidates, p)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Demand > candidates[j].Demand
	})

	var picks []pool.Player
	if isHuman && chosenNames != nil {
		seen := make(map[string]struct{}, len(chosenNames))
		for _, name := range chosenNames {
			if len(picks) >= target {
				break
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			for _, c := range candidates {
				if c.Name == name {
					picks = append(picks, c)
					break
				}
			}
		}
	} else {
		if target > len(candidates) {
			target = len(candidates)
		}
		picks = candidates[:target]
	}

	var retained []string
	for _, p := range picks {
		if tm.Budget < r.cfg.Fee {
			r.logger.Info("retention skipped, fee unaffordable",
				slog.String("team", tm.Name),
				slog.String("player", p.Name),
				slog.Int("budget", tm.Budget),
			)
			continue
		}
		if err := tm.Add(p, r.cfg.Fee); err != nil {
			r.logger.Warn("retention skipped",
				slog.String("team", tm.Name),
				slog.String("player", p.Name),
				slog.Any("error", err),
			)
			continue
		}
		global.Remove(p.Name)
		retained = append(retained, p.Name)
	}

	r.logger.Info("retention resolved",
		slog.String("team", tm.Name),
		slog.Int("retained", len(retained)),
		slog.Int("budget_left", tm.Budget),
	)
	return retained, nil
}
