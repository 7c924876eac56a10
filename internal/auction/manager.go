// Package auction drives one franchise auction run from retention through
// the last player. The Manager is a state machine over the shuffled
// bidding pool: each player opens at base price, collects human and AI
// bids, and is finalized as sold or unsold before the next opens. All
// state snapshots to a session.StateV1 and restores from one, so a run
// survives process boundaries between requests.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/franchise-auction/internal/bidding"
	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/session"
	"github.com/jensholdgaard/franchise-auction/internal/team"
)

// ErrInvalidBid is a recoverable, user-facing rejection: bid too low,
// unaffordable, squad full, or no player open. The run continues and the
// human may resubmit.
var ErrInvalidBid = errors.New("invalid bid")

// Phase names the manager's position in the run.
type Phase string

const (
	PhaseIdle           Phase = "IDLE"
	PhaseAwaitingPlayer Phase = "AWAITING_PLAYER"
	PhasePlayerOpen     Phase = "PLAYER_OPEN"
	PhasePlayerResolved Phase = "PLAYER_RESOLVED"
	PhaseOver           Phase = "AUCTION_OVER"
)

// Params configure a new run.
type Params struct {
	RunID         string
	HumanTeam     string
	Master        pool.Pool
	TeamNames     []string
	InitialBudget int
	Rules         team.Rules
}

// Manager coordinates a single auction run.
type Manager struct {
	logger *slog.Logger
	tracer trace.Tracer
	clk    clock.Clock
	rng    random.Source
	sim    *bidding.Simulator

	runID     string
	humanTeam string
	master    pool.Pool
	teams     map[string]*team.Team
	teamOrder []string

	biddingPool   pool.Pool
	index         int
	current       *pool.Player
	bidLog        []bidding.Event
	highestBid    int
	highestBidder *team.Team
	sold          []session.SoldPlayer
	unsold        []pool.Player
	phase         Phase
}

// NewManager creates a Manager with empty franchises; squads are filled by
// retention and Setup.
func NewManager(p Params, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock, rng random.Source) *Manager {
	m := &Manager{
		logger:    logger,
		tracer:    tp.Tracer("github.com/jensholdgaard/franchise-auction/internal/auction"),
		clk:       clk,
		rng:       rng,
		sim:       bidding.NewSimulator(logger, rng, clk),
		runID:     p.RunID,
		humanTeam: p.HumanTeam,
		master:    p.Master.Clone(),
		teams:     make(map[string]*team.Team, len(p.TeamNames)),
		index:     -1,
		phase:     PhaseIdle,
	}
	for _, name := range p.TeamNames {
		tm := team.New(name, p.InitialBudget, p.Rules)
		m.teams[tm.Name] = tm
		m.teamOrder = append(m.teamOrder, tm.Name)
	}
	sort.Strings(m.teamOrder)
	return m
}

// RunID identifies the run.
func (m *Manager) RunID() string { return m.runID }

// HumanTeamName returns the canonical name of the human-managed franchise.
func (m *Manager) HumanTeamName() string { return m.humanTeam }

// Phase reports the manager's current state.
func (m *Manager) Phase() Phase { return m.phase }

// Team returns the franchise with the given name, nil if unknown.
func (m *Manager) Team(name string) *team.Team {
	return m.teams[team.CanonicalName(name)]
}

// Teams returns every franchise in stable name order.
func (m *Manager) Teams() []*team.Team {
	out := make([]*team.Team, 0, len(m.teamOrder))
	for _, name := range m.teamOrder {
		out = append(out, m.teams[name])
	}
	return out
}

// Master returns the full pre-retention player pool.
func (m *Manager) Master() pool.Pool { return m.master.Clone() }

// Setup enters the bidding stage: team budgets and squads come from the
// post-retention states, and the reduced pool is shuffled into this run's
// bidding order.
func (m *Manager) Setup(ctx context.Context, states map[string]session.TeamStateV1, reduced pool.Pool) error {
	_, span := m.tracer.Start(ctx, "Manager.Setup",
		trace.WithAttributes(
			attribute.String("run_id", m.runID),
			attribute.Int("pool_size", len(reduced)),
		),
	)
	defer span.End()

	for name, st := range states {
		tm := m.Team(name)
		if tm == nil {
			return fmt.Errorf("state references unknown team %q", name)
		}
		tm.Budget = st.Budget
		if err := tm.RebuildSquad(st.SquadNames, st.Prices, m.master); err != nil {
			return fmt.Errorf("rebuilding squad for %s: %w", tm.Name, err)
		}
	}

	m.biddingPool = reduced.Clone()
	m.rng.Shuffle(len(m.biddingPool), func(i, j int) {
		m.biddingPool[i], m.biddingPool[j] = m.biddingPool[j], m.biddingPool[i]
	})
	m.index = -1
	m.current = nil
	m.bidLog = nil
	m.highestBid = 0
	m.highestBidder = nil
	m.sold = nil
	m.unsold = nil
	m.phase = PhaseAwaitingPlayer

	m.logger.InfoContext(ctx, "bidding stage ready",
		slog.String("run_id", m.runID),
		slog.Int("pool_size", len(m.biddingPool)),
	)
	return nil
}

// StartNextPlayer advances to the next player in the bidding order.
// Returns the opened player (nil when the pool is exhausted), the opening
// bid, and whether the run is over. While a player is still open the lot
// must be settled first; the open player is returned unchanged so no
// player can fall out of the run unaccounted.
func (m *Manager) StartNextPlayer(ctx context.Context) (*pool.Player, int, bool) {
	_, span := m.tracer.Start(ctx, "Manager.StartNextPlayer",
		trace.WithAttributes(attribute.String("run_id", m.runID)),
	)
	defer span.End()

	if m.current != nil {
		m.logger.WarnContext(ctx, "next player requested while a lot is open",
			slog.String("run_id", m.runID),
			slog.String("player", m.current.Name),
		)
		cp := *m.current
		return &cp, m.highestBid, m.IsOver()
	}

	m.index++
	if m.index >= len(m.biddingPool) {
		m.index = len(m.biddingPool)
		m.current = nil
		m.logSystem("All players auctioned.")
		m.phase = PhaseOver
		return nil, 0, m.IsOver()
	}

	p := m.biddingPool[m.index]
	m.current = &p
	m.bidLog = nil
	m.highestBid = p.BasePrice
	m.highestBidder = nil
	m.phase = PhasePlayerOpen
	m.logSystem(fmt.Sprintf("Auction started for %s (Role: %s) at base price %dL.", p.Name, p.Role, p.BasePrice))

	m.logger.InfoContext(ctx, "player open",
		slog.String("run_id", m.runID),
		slog.String("player", p.Name),
		slog.Int("base_price", p.BasePrice),
	)
	cp := p
	return &cp, m.highestBid, m.IsOver()
}

// IsOver is true once the pool index has passed the last player and no
// player is open. It is idempotent: without an intervening state change it
// always answers the same.
func (m *Manager) IsOver() bool {
	return m.index >= len(m.biddingPool)-1 && m.current == nil
}

// ProcessUserBid records a human bid on the open player. Failures wrap
// ErrInvalidBid and leave all state untouched.
func (m *Manager) ProcessUserBid(ctx context.Context, teamName string, amount int) (string, error) {
	_, span := m.tracer.Start(ctx, "Manager.ProcessUserBid",
		trace.WithAttributes(
			attribute.String("run_id", m.runID),
			attribute.String("team", teamName),
			attribute.Int("amount", amount),
		),
	)
	defer span.End()

	if m.current == nil {
		return "", fmt.Errorf("%w: no player is currently up for auction", ErrInvalidBid)
	}
	tm := m.Team(teamName)
	if tm == nil {
		return "", fmt.Errorf("%w: unknown team %q", ErrInvalidBid, teamName)
	}
	if err := tm.CanAdd(amount); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidBid, err)
	}
	if amount <= m.highestBid {
		return "", fmt.Errorf("%w: bid must exceed the current highest of %dL", ErrInvalidBid, m.highestBid)
	}

	m.highestBid = amount
	m.highestBidder = tm
	m.logEvent(tm.Name, fmt.Sprintf("bids %dL.", amount))

	m.logger.InfoContext(ctx, "user bid accepted",
		slog.String("run_id", m.runID),
		slog.String("team", tm.Name),
		slog.Int("amount", amount),
	)
	return fmt.Sprintf("Your bid of %dL for %s is now the highest.", amount, m.current.Name), nil
}

// TriggerAIBids runs one reactive AI counter pass against the current
// highest bid. The current highest bidder sits this pass out and the human
// franchise never counters itself here.
func (m *Manager) TriggerAIBids(ctx context.Context) (*team.Team, string) {
	_, span := m.tracer.Start(ctx, "Manager.TriggerAIBids",
		trace.WithAttributes(attribute.String("run_id", m.runID)),
	)
	defer span.End()

	if m.current == nil {
		return nil, "No player to run AI bids for."
	}

	var candidates []*team.Team
	for _, tm := range m.Teams() {
		if m.highestBidder != nil && tm == m.highestBidder {
			continue
		}
		candidates = append(candidates, tm)
	}

	newBid, winner, events := m.sim.CounterBid(*m.current, candidates, m.highestBid, m.humanTeam)
	m.bidLog = append(m.bidLog, events...)

	if winner != nil && newBid > m.highestBid {
		m.highestBid = newBid
		m.highestBidder = winner
		m.logger.InfoContext(ctx, "ai counter bid",
			slog.String("run_id", m.runID),
			slog.String("team", winner.Name),
			slog.Int("amount", newBid),
		)
		return winner, fmt.Sprintf("%s outbids with %dL.", winner.Name, newBid)
	}
	if m.highestBidder != nil {
		return m.highestBidder, fmt.Sprintf("%s remains the highest bidder with %dL.", m.highestBidder.Name, m.highestBid)
	}
	return nil, "No AI bids placed."
}

// FinalizeResult reports how the open player's auction settled.
type FinalizeResult struct {
	Sold        bool
	Message     string
	WinningTeam string
	AuctionOver bool
}

// FinalizeCurrentPlayer settles the open player: commits the sale to the
// highest bidder, or pushes the player to the unsold log when nobody bid.
// A commit failure is logged and the player goes unsold rather than
// stalling the run.
func (m *Manager) FinalizeCurrentPlayer(ctx context.Context) (*FinalizeResult, error) {
	_, span := m.tracer.Start(ctx, "Manager.FinalizeCurrentPlayer",
		trace.WithAttributes(attribute.String("run_id", m.runID)),
	)
	defer span.End()

	if m.current == nil {
		return nil, fmt.Errorf("%w: no player auction to finalize", ErrInvalidBid)
	}
	p := *m.current
	res := &FinalizeResult{}

	if m.highestBidder != nil {
		if err := m.highestBidder.Add(p, m.highestBid); err != nil {
			m.logSystem(fmt.Sprintf("Sale FAILED for %s to %s (%s). Player UNSOLD.", p.Name, m.highestBidder.Name, err))
			m.logger.WarnContext(ctx, "sale failed at finalize",
				slog.String("run_id", m.runID),
				slog.String("player", p.Name),
				slog.String("team", m.highestBidder.Name),
				slog.Any("error", err),
			)
			m.unsold = append(m.unsold, p)
			res.Message = fmt.Sprintf("Sale failed for %s. Player UNSOLD.", p.Name)
		} else {
			m.sold = append(m.sold, session.SoldPlayer{
				Name:  p.Name,
				Price: m.highestBid,
				Team:  m.highestBidder.Name,
				Role:  p.Role,
			})
			m.logSystem(fmt.Sprintf("SOLD to %s for %dL.", m.highestBidder.Name, m.highestBid))
			m.logger.InfoContext(ctx, "player sold",
				slog.String("run_id", m.runID),
				slog.String("player", p.Name),
				slog.String("team", m.highestBidder.Name),
				slog.Int("price", m.highestBid),
			)
			res.Sold = true
			res.Message = fmt.Sprintf("%s sold to %s for %dL.", p.Name, m.highestBidder.Name, m.highestBid)
			res.WinningTeam = m.highestBidder.Name
		}
	} else {
		m.logSystem(fmt.Sprintf("%s is UNSOLD at %dL.", p.Name, p.BasePrice))
		m.logger.InfoContext(ctx, "player unsold",
			slog.String("run_id", m.runID),
			slog.String("player", p.Name),
		)
		m.unsold = append(m.unsold, p)
		res.Message = fmt.Sprintf("%s UNSOLD.", p.Name)
	}

	m.current = nil
	m.highestBidder = nil
	m.phase = PhasePlayerResolved
	if m.IsOver() {
		m.phase = PhaseOver
	}
	res.AuctionOver = m.IsOver()
	return res, nil
}

// AutoResolveCurrent runs the full bidding war for the open player,
// committing the sale directly. Used by the autosimulation path and when
// the human skips a player. humanJoins lets the human franchise bid as an
// AI would.
func (m *Manager) AutoResolveCurrent(ctx context.Context, humanJoins bool) (*bidding.Outcome, error) {
	_, span := m.tracer.Start(ctx, "Manager.AutoResolveCurrent",
		trace.WithAttributes(attribute.String("run_id", m.runID)),
	)
	defer span.End()

	if m.current == nil {
		return nil, fmt.Errorf("%w: no player is currently up for auction", ErrInvalidBid)
	}
	p := *m.current

	out, err := m.sim.Resolve(bidding.Request{
		Player:     p,
		Teams:      m.Teams(),
		Human:      m.Team(m.humanTeam),
		HumanJoins: humanJoins,
		Index:      m.index,
		PoolSize:   len(m.biddingPool),
	})
	if err != nil {
		return nil, err
	}

	m.bidLog = append(m.bidLog, out.Events...)
	m.sold = append(m.sold, session.SoldPlayer{
		Name:  p.Name,
		Price: out.Price,
		Team:  out.Winner.Name,
		Role:  p.Role,
	})
	m.current = nil
	m.highestBidder = nil
	m.phase = PhasePlayerResolved
	if m.IsOver() {
		m.phase = PhaseOver
	}
	return out, nil
}

// CurrentPlayer returns a copy of the open player, nil when none.
func (m *Manager) CurrentPlayer() *pool.Player {
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}

// HighestBid returns the current highest bid for the open player.
func (m *Manager) HighestBid() int { return m.highestBid }

// HighestBidderName returns the current highest bidder, empty when none.
func (m *Manager) HighestBidderName() string {
	if m.highestBidder == nil {
		return ""
	}
	return m.highestBidder.Name
}

// BidLog returns a copy of the open player's event log.
func (m *Manager) BidLog() []bidding.Event {
	out := make([]bidding.Event, len(m.bidLog))
	copy(out, m.bidLog)
	return out
}

// SoldLog returns a copy of all completed sales.
func (m *Manager) SoldLog() []session.SoldPlayer {
	out := make([]session.SoldPlayer, len(m.sold))
	copy(out, m.sold)
	return out
}

// UnsoldLog returns a copy of the unsold players.
func (m *Manager) UnsoldLog() []pool.Player {
	out := make([]pool.Player, len(m.unsold))
	copy(out, m.unsold)
	return out
}

func (m *Manager) logSystem(info string) {
	m.logEvent(bidding.SystemBidder, info)
}

func (m *Manager) logEvent(bidder, info string) {
	m.bidLog = append(m.bidLog, bidding.Event{
		Bidder:    bidder,
		Info:      info,
		Timestamp: m.clk.Now().Format("15:04:05"),
	})
}
