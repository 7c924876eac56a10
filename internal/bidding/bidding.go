// Package bidding resolves the price and buyer for a single auctioned
// player. Two strategies live here: Resolve runs a full weighted bidding
// war between AI franchises, used when a player is simulated end to end;
// CounterBid runs the single reactive AI pass used after a human bid.
package bidding

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/team"
)

// Demand thresholds that change bidder behavior.
const (
	marqueeDemand   = 300
	contestedDemand = 200
	bargainDemand   = 100

	// A bidding war needs at least this many contenders to feel real;
	// lower-budget teams are pulled in to fill the field.
	minContenders = 4

	eventTimeLayout = "15:04:05"
)

// NoEligibleBuyerError means no franchise could take the player even after
// the fallback chain. The run is misconfigured (all teams full or broke)
// and cannot make progress.
type NoEligibleBuyerError struct {
	Player string
}

func (e *NoEligibleBuyerError) Error() string {
	return fmt.Sprintf("no team can take player %q: all squads full or budgets exhausted", e.Player)
}

// Event is one entry in a player's append-only bid log.
type Event struct {
	Bidder    string `json:"bidder"`
	Info      string `json:"info"`
	Timestamp string `json:"timestamp"`
}

// SystemBidder marks log events emitted by the auction itself rather than
// a franchise.
const SystemBidder = "System"

// Request describes one player going under the hammer.
type Request struct {
	Player pool.Player
	// Teams is every franchise in the run, human included.
	Teams []*team.Team
	// Human is the human-managed franchise, nil for a fully AI run.
	Human *team.Team
	// HumanJoins lets the human franchise jump in late during an
	// autosimulated run, the way an engaged owner would.
	HumanJoins bool
	// Index and PoolSize locate the player in the bidding order; early
	// and late phases change bidder appetite.
	Index    int
	PoolSize int
}

// Outcome is the settled result for one player.
type Outcome struct {
	Price  int
	Winner *team.Team
	Events []Event
}

// Simulator runs bidding wars. All randomness goes through the injected
// Source so a run replays exactly from a seed.
type Simulator struct {
	logger *slog.Logger
	rng    random.Source
	clk    clock.Clock
}

// NewSimulator returns a bidding Simulator.
func NewSimulator(logger *slog.Logger, rng random.Source, clk clock.Clock) *Simulator {
	return &Simulator{logger: logger, rng: rng, clk: clk}
}

func (s *Simulator) event(bidder, info string) Event {
	return Event{Bidder: bidder, Info: info, Timestamp: s.clk.Now().Format(eventTimeLayout)}
}

// earlyPhase is the first fifth of the bidding order, when budgets are
// full and marquee names draw a premium.
func earlyPhase(index, poolSize int) bool {
	return float64(index) < float64(poolSize)*0.2
}

// latePhase holds once at least four franchises are still visibly short
// of a full squad, which makes contested players fierce.
func latePhase(teams []*team.Team) bool {
	short := 0
	for _, t := range teams {
		if len(t.Squad) < t.Rules.MaxSquadSize-1 {
			short++
		}
	}
	return short >= 4
}

// Resolve runs the full bidding war for one player and commits the sale
// to the winning team. The fallback chain guarantees a sale whenever any
// franchise can still take a player; otherwise a NoEligibleBuyerError is
// returned and the run must stop. The lot is announced by whoever opened
// it, so the returned events start with the first bid.
func (s *Simulator) Resolve(req Request) (*Outcome, error) {
	p := req.Player
	price := p.BasePrice
	var winner *team.Team
	var events []Event

	early := earlyPhase(req.Index, req.PoolSize)
	late := latePhase(req.Teams)

	bidStep := random.Pick(s.rng, []int{10, 20})
	if p.Demand > contestedDemand {
		bidStep = random.Pick(s.rng, []int{10, 20, 50, 100})
	}
	maxBids := random.Between(s.rng, 10, 20)
	dropout := 0.05
	if p.Demand > contestedDemand && late {
		maxBids = random.Between(s.rng, 20, 30)
		dropout = 0.03
	}

	contenders := s.gatherContenders(req, price)

	var prevBidder *team.Team
	for bidCount := 0; bidCount < maxBids && len(contenders) > 1; bidCount++ {
		contenders = s.applyDropout(contenders, p.Role, dropout)
		if len(contenders) <= 1 {
			break
		}

		eligible := contenders
		if prevBidder != nil {
			withoutPrev := make([]*team.Team, 0, len(contenders))
			for _, t := range contenders {
				if t != prevBidder {
					withoutPrev = append(withoutPrev, t)
				}
			}
			if len(withoutPrev) > 0 {
				eligible = withoutPrev
			}
		}

		weights := make([]float64, len(eligible))
		for i, t := range eligible {
			urgency := t.RoleUrgency(p.Role)
			w := urgency * (1 + float64(t.Budget)/float64(t.InitialBudget))
			remaining := t.Rules.MaxSquadSize - len(t.Squad)

			if early && p.Demand > marqueeDemand && float64(t.Budget) > float64(t.InitialBudget)*0.75 {
				w *= 2.0
			}

			// Budget pacing: spend freely in the first half, then hold
			// enough back to fill the remaining slots.
			maxBid := float64(t.Budget) * 0.6
			if float64(req.Index) >= float64(req.PoolSize)*0.5 {
				maxBid = float64(t.Budget) / float64(remaining) * 1.5
			}

			// Bargain hunting in the late phase pulls cash-strapped
			// teams toward cheap players and calms the step size.
			if float64(req.Index) > float64(req.PoolSize)*0.7 && p.Demand < bargainDemand {
				if float64(t.Budget) < float64(t.InitialBudget)*0.35 {
					w *= 2.0
				}
				bidStep = random.Pick(s.rng, []int{10, 20})
			}

			if float64(price) > float64(t.Budget)*0.25 && urgency < 2.0 {
				w *= 0.2
			}

			if float64(t.Budget) < float64(t.InitialBudget)*0.35 && len(t.Squad) < (t.Rules.MaxSquadSize+1)/2 {
				if p.Demand < bargainDemand {
					w *= 3.0
				} else {
					w *= 0.3
				}
				if float64(price+bidStep) > maxBid {
					w *= 0.5
				}
			}

			weights[i] = w
		}

		bidder := eligible[random.PickWeighted(s.rng, weights)]
		if bidder.Budget < price+bidStep {
			contenders = removeTeam(contenders, bidder)
			continue
		}
		if p.Demand > marqueeDemand && s.rng.Float64() < 0.15 {
			bidStep = random.Pick(s.rng, []int{50, 75, 100})
		}
		price += bidStep
		winner = bidder
		prevBidder = bidder
		events = append(events, s.event(bidder.Name, fmt.Sprintf("bids %dL.", price)))
	}

	// An engaged human owner snipes high-demand players during autosim.
	if req.Human != nil && req.HumanJoins && len(req.Human.Squad) < req.Human.Rules.MaxSquadSize {
		if p.Demand > 150 && req.Human.Budget >= price+bidStep && s.rng.Float64() < 0.8 {
			price += bidStep
			winner = req.Human
			events = append(events, s.event(req.Human.Name, fmt.Sprintf("bids %dL.", price)))
		}
	}

	if winner == nil {
		var fallbackEvent Event
		winner, price, fallbackEvent = s.fallbackSale(p, req.Teams)
		if winner == nil {
			return nil, &NoEligibleBuyerError{Player: p.Name}
		}
		events = append(events, fallbackEvent)
	}

	if err := winner.Add(p, price); err != nil {
		return nil, fmt.Errorf("committing %q to %s at %dL: %w", p.Name, winner.Name, price, err)
	}
	events = append(events, s.event(SystemBidder, fmt.Sprintf("SOLD to %s for %dL.", winner.Name, price)))

	s.logger.Info("player sold",
		slog.String("player", p.Name),
		slog.String("team", winner.Name),
		slog.Int("price", price),
	)
	return &Outcome{Price: price, Winner: winner, Events: events}, nil
}

// gatherContenders seeds the bidding war with affordably placed,
// high-budget teams, then tops the field up to minContenders from teams
// that can still stretch to half slack.
func (s *Simulator) gatherContenders(req Request, price int) []*team.Team {
	var contenders []*team.Team
	for _, t := range req.Teams {
		if t == req.Human && !req.HumanJoins {
			continue
		}
		if float64(t.Budget) >= float64(price)*0.8 && len(t.Squad) < t.Rules.MaxSquadSize {
			contenders = append(contenders, t)
		}
	}
	sort.SliceStable(contenders, func(i, j int) bool {
		return contenders[i].Budget > contenders[j].Budget
	})

	if len(contenders) > 0 && len(contenders) < minContenders {
		var extras []*team.Team
		for _, t := range req.Teams {
			if containsTeam(contenders, t) || len(t.Squad) >= t.Rules.MaxSquadSize {
				continue
			}
			if float64(t.Budget) >= float64(price)*0.5 {
				extras = append(extras, t)
			}
		}
		sort.SliceStable(extras, func(i, j int) bool {
			return extras[i].Budget > extras[j].Budget
		})
		if need := minContenders - len(contenders); len(extras) > need {
			extras = extras[:need]
		}
		contenders = append(contenders, extras...)
	}
	return contenders
}

// applyDropout thins the field each round; a team with real urgency for
// the role never drops out.
func (s *Simulator) applyDropout(contenders []*team.Team, role pool.Role, dropout float64) []*team.Team {
	kept := contenders[:0]
	for _, t := range contenders {
		if s.rng.Float64() > dropout || t.RoleUrgency(role) > 1.5 {
			kept = append(kept, t)
		}
	}
	return kept
}

// fallbackSale guarantees the sale: first the richest team that affords
// base price with slack takes the player at base price, then any team with
// squad room takes them at half base price (floor 10).
func (s *Simulator) fallbackSale(p pool.Player, teams []*team.Team) (*team.Team, int, Event) {
	var eligible []*team.Team
	for _, t := range teams {
		if float64(t.Budget) >= float64(p.BasePrice)*0.8 && len(t.Squad) < t.Rules.MaxSquadSize {
			eligible = append(eligible, t)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Budget > eligible[j].Budget })
	if len(eligible) > 0 {
		w := eligible[0]
		return w, p.BasePrice, s.event(SystemBidder, fmt.Sprintf("%s secures %s at base price %dL.", w.Name, p.Name, p.BasePrice))
	}

	half := p.BasePrice / 2
	if half < 10 {
		half = 10
	}
	eligible = eligible[:0]
	for _, t := range teams {
		if len(t.Squad) < t.Rules.MaxSquadSize && t.Budget >= half {
			eligible = append(eligible, t)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Budget > eligible[j].Budget })
	if len(eligible) > 0 {
		w := eligible[0]
		return w, half, s.event(SystemBidder, fmt.Sprintf("%s assigned %s for %dL.", w.Name, p.Name, half))
	}
	return nil, 0, Event{}
}

// CounterBid runs one reactive AI pass against the current highest bid.
// Only the strongest candidate considers a counter: candidates are ranked
// by role urgency then budget, and the leader bids only when a round
// number just above the current price stays inside both their budget and
// their perceived value of the player. Returns the (possibly unchanged)
// highest bid, the outbidding team or nil, and the events generated.
func (s *Simulator) CounterBid(p pool.Player, candidates []*team.Team, highest int, excludeName string) (int, *team.Team, []Event) {
	var eligible []*team.Team
	for _, t := range candidates {
		if t.Name == excludeName {
			continue
		}
		if t.CanAdd(highest+10) == nil {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return highest, nil, nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		ui, uj := eligible[i].RoleUrgency(p.Role), eligible[j].RoleUrgency(p.Role)
		if ui != uj {
			return ui > uj
		}
		return eligible[i].Budget > eligible[j].Budget
	})

	top := eligible[0]
	urgency := top.RoleUrgency(p.Role)
	perceived := float64(p.BasePrice) + float64(p.Demand)*urgency*uniform(s.rng, 0.7, 1.3)
	maxWilling := perceived
	if limit := float64(top.Budget) * uniform(s.rng, 0.3, 0.5); limit < maxWilling {
		maxWilling = limit
	}
	if limit := float64(top.Budget - 10); limit < maxWilling {
		maxWilling = limit
	}

	potential := (highest + random.Pick(s.rng, []int{10, 20, 50, 70})) / 10 * 10
	if potential <= top.Budget && float64(potential) <= maxWilling && potential > highest {
		ev := s.event(top.Name, fmt.Sprintf("bids %dL.", potential))
		return potential, top, []Event{ev}
	}
	return highest, nil, nil
}

func uniform(src random.Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

func removeTeam(teams []*team.Team, victim *team.Team) []*team.Team {
	out := teams[:0]
	for _, t := range teams {
		if t != victim {
			out = append(out, t)
		}
	}
	return out
}

func containsTeam(teams []*team.Team, needle *team.Team) bool {
	for _, t := range teams {
		if t == needle {
			return true
		}
	}
	return false
}
