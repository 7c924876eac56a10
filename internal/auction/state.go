package auction

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/franchise-auction/internal/session"
)

// Snapshot serializes the full run state. Restoring the snapshot into a
// fresh manager reproduces the run exactly: budgets, squads, the shuffled
// bidding order, the open player and its bid log, and both history logs.
func (m *Manager) Snapshot() *session.StateV1 {
	st := &session.StateV1{
		Version:       session.CurrentVersion,
		RunID:         m.runID,
		HumanTeam:     m.humanTeam,
		Phase:         string(m.phase),
		Pool:          m.biddingPool.Clone(),
		Teams:         make(map[string]session.TeamStateV1, len(m.teams)),
		CurrentIndex:  m.index,
		CurrentPlayer: m.CurrentPlayer(),
		BidLog:        m.BidLog(),
		HighestBid:    m.highestBid,
		HighestBidder: m.HighestBidderName(),
		Sold:          m.SoldLog(),
		Unsold:        m.UnsoldLog(),
	}
	for name, tm := range m.teams {
		st.Teams[name] = session.TeamStateV1{
			Budget:     tm.Budget,
			SquadNames: tm.SquadNames(),
			Prices:     tm.Prices(),
		}
	}
	return st
}

// Restore rebuilds the run from a snapshot. The state is validated first;
// any defect surfaces as a *session.RehydrationError and the caller must
// restart the flow from initialization.
func (m *Manager) Restore(ctx context.Context, st *session.StateV1) error {
	_, span := m.tracer.Start(ctx, "Manager.Restore",
		trace.WithAttributes(attribute.String("run_id", st.RunID)),
	)
	defer span.End()

	if err := st.Validate(); err != nil {
		return err
	}

	for name, ts := range st.Teams {
		tm := m.Team(name)
		if tm == nil {
			return &session.RehydrationError{Field: "teams", Reason: fmt.Sprintf("team %q not part of this run", name)}
		}
		tm.Budget = ts.Budget
		if err := tm.RebuildSquad(ts.SquadNames, ts.Prices, m.master); err != nil {
			return &session.RehydrationError{Field: "teams", Reason: err.Error()}
		}
	}

	m.runID = st.RunID
	m.humanTeam = st.HumanTeam
	m.biddingPool = append(m.biddingPool[:0:0], st.Pool...)
	m.index = st.CurrentIndex
	m.current = nil
	if st.CurrentPlayer != nil {
		cp := *st.CurrentPlayer
		m.current = &cp
	}
	m.bidLog = append(m.bidLog[:0:0], st.BidLog...)
	m.highestBid = st.HighestBid
	m.highestBidder = nil
	if st.HighestBidder != "" {
		m.highestBidder = m.Team(st.HighestBidder)
	}
	m.sold = append(m.sold[:0:0], st.Sold...)
	m.unsold = append(m.unsold[:0:0], st.Unsold...)

	switch phase := Phase(st.Phase); phase {
	case PhaseIdle, PhaseAwaitingPlayer, PhasePlayerOpen, PhasePlayerResolved, PhaseOver:
		m.phase = phase
	default:
		return &session.RehydrationError{Field: "phase", Reason: fmt.Sprintf("unknown phase %q", st.Phase)}
	}
	if (m.phase == PhasePlayerOpen) != (m.current != nil) {
		return &session.RehydrationError{Field: "phase", Reason: fmt.Sprintf("phase %q does not match open player", st.Phase)}
	}
	return nil
}
