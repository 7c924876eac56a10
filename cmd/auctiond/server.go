package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/franchise-auction/internal/auction"
	"github.com/jensholdgaard/franchise-auction/internal/bidding"
	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/retention"
	"github.com/jensholdgaard/franchise-auction/internal/session"
	"github.com/jensholdgaard/franchise-auction/internal/team"
	"github.com/jensholdgaard/franchise-auction/internal/telemetry"
)

// Server exposes the auction engine as a JSON-over-HTTP surface. It holds
// no per-run state: every request rehydrates the manager from the session
// store, applies one operation, and saves the state back. The master pool
// and rosters are read-only and shared across runs.
type Server struct {
	cfg     *config.Config
	master  pool.Pool
	rosters map[string][]string
	store   session.Store
	logger  *slog.Logger
	tp      trace.TracerProvider
	metrics *telemetry.Metrics
	clk     clock.Clock
	newRNG  func() random.Source
}

// NewServer builds the request surface over an already-built master pool.
func NewServer(cfg *config.Config, master pool.Pool, rosters map[string][]string, store session.Store, logger *slog.Logger, tp trace.TracerProvider, metrics *telemetry.Metrics, clk clock.Clock, newRNG func() random.Source) *Server {
	return &Server{
		cfg:     cfg,
		master:  master,
		rosters: rosters,
		store:   store,
		logger:  logger,
		tp:      tp,
		metrics: metrics,
		clk:     clk,
		newRNG:  newRNG,
	}
}

// Routes registers all run endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /runs", s.handleCreateRun)
	mux.HandleFunc("POST /runs/{id}/retention", s.handleRetention)
	mux.HandleFunc("GET /runs/{id}", s.handleStatus)
	mux.HandleFunc("POST /runs/{id}/next", s.handleNextPlayer)
	mux.HandleFunc("POST /runs/{id}/bid", s.handleBid)
	mux.HandleFunc("POST /runs/{id}/skip", s.handleSkip)
	mux.HandleFunc("POST /runs/{id}/finalize", s.handleFinalize)
	mux.HandleFunc("GET /runs/{id}/summary", s.handleSummary)
	mux.HandleFunc("DELETE /runs/{id}", s.handleDeleteRun)
}

func (s *Server) teamNames() []string {
	names := make([]string, 0, len(s.rosters))
	for name := range s.rosters {
		names = append(names, name)
	}
	return names
}

func (s *Server) newManager(runID, humanTeam string) *auction.Manager {
	return auction.NewManager(auction.Params{
		RunID:         runID,
		HumanTeam:     team.CanonicalName(humanTeam),
		Master:        s.master,
		TeamNames:     s.teamNames(),
		InitialBudget: s.cfg.Rules.InitialBudget,
		Rules:         team.RulesFromConfig(s.cfg.Rules),
	}, s.logger, s.tp, s.clk, s.newRNG())
}

// loadManager rehydrates the manager for a run from the session store.
func (s *Server) loadManager(ctx context.Context, runID string) (*auction.Manager, error) {
	st, err := s.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	m := s.newManager(st.RunID, st.HumanTeam)
	if err := m.Restore(ctx, st); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Server) saveManager(ctx context.Context, m *auction.Manager) error {
	return s.store.Save(ctx, m.Snapshot())
}

type createRunRequest struct {
	HumanTeam string `json:"human_team"`
}

type createRunResponse struct {
	RunID     string   `json:"run_id"`
	HumanTeam string   `json:"human_team"`
	Teams     []string `json:"teams"`
	PoolSize  int      `json:"pool_size"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	canonical := team.CanonicalName(req.HumanTeam)
	if _, ok := s.rosters[canonicalRosterKey(s.rosters, canonical)]; !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown franchise %q", req.HumanTeam))
		return
	}

	m := s.newManager(session.NewRunID(), canonical)
	if err := s.saveManager(r.Context(), m); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.RunsStarted.Add(r.Context(), 1)
	s.logger.InfoContext(r.Context(), "run created",
		slog.String("run_id", m.RunID()),
		slog.String("human_team", canonical),
	)

	names := make([]string, 0, len(s.rosters))
	for _, tm := range m.Teams() {
		names = append(names, tm.Name)
	}
	writeJSON(w, http.StatusCreated, createRunResponse{
		RunID:     m.RunID(),
		HumanTeam: canonical,
		Teams:     names,
		PoolSize:  len(s.master),
	})
}

type retentionRequest struct {
	Mode    string   `json:"mode"` // "exact" or "any"
	Target  int      `json:"target"`
	Players []string `json:"players"`
}

type retentionResponse struct {
	Retained map[string][]string `json:"retained"`
	Budgets  map[string]int      `json:"budgets"`
	PoolSize int                 `json:"pool_size"`
}

// handleRetention runs the one-time retention phase for every franchise
// and enters the bidding stage.
func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.loadManager(ctx, r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	// Retention happens exactly once per run. Re-resolving against the
	// master pool would retain players a second time and charge the fee
	// again.
	if m.Phase() != auction.PhaseIdle {
		s.writeError(w, http.StatusConflict, fmt.Errorf("retention already completed for run %s", m.RunID()))
		return
	}
	var req retentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	rng := s.newRNG()
	resolver := retention.NewResolver(s.cfg.Retention, s.logger, rng)
	mode := retention.Mode(req.Mode)
	target := req.Target
	if mode == retention.ModeAny {
		target = len(req.Players)
	}
	if err := resolver.ValidateHumanChoice(mode, target, req.Players); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	working := m.Master()
	retained := make(map[string][]string)

	humanName := m.HumanTeamName()
	human := m.Team(humanName)
	names, err := resolver.Resolve(human, &working, s.rosterFor(humanName), target, req.Players, true)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	retained[humanName] = names

	for _, tm := range m.Teams() {
		if tm.Name == humanName {
			continue
		}
		roster := s.rosterFor(tm.Name)
		aiTarget := target
		if mode == retention.ModeAny {
			aiTarget = resolver.AICount(len(roster), tm.Rules.MaxSquadSize)
		}
		names, err := resolver.Resolve(tm, &working, roster, aiTarget, nil, false)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		retained[tm.Name] = names
	}

	states := make(map[string]session.TeamStateV1, len(s.rosters))
	budgets := make(map[string]int, len(s.rosters))
	for _, tm := range m.Teams() {
		states[tm.Name] = session.TeamStateV1{
			Budget:     tm.Budget,
			SquadNames: tm.SquadNames(),
			Prices:     tm.Prices(),
		}
		budgets[tm.Name] = tm.Budget
	}
	if err := m.Setup(ctx, states, working); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.saveManager(ctx, m); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, retentionResponse{Retained: retained, Budgets: budgets, PoolSize: len(working)})
}

type statusResponse struct {
	RunID         string                `json:"run_id"`
	Phase         auction.Phase         `json:"phase"`
	HumanTeam     string                `json:"human_team"`
	CurrentPlayer *pool.Player          `json:"current_player,omitempty"`
	HighestBid    int                   `json:"highest_bid"`
	HighestBidder string                `json:"highest_bidder,omitempty"`
	BidLog        []bidding.Event       `json:"bid_log"`
	Teams         []auction.TeamSummary `json:"teams"`
	AuctionOver   bool                  `json:"auction_over"`
}

func (s *Server) status(m *auction.Manager) statusResponse {
	return statusResponse{
		RunID:         m.RunID(),
		Phase:         m.Phase(),
		HumanTeam:     m.HumanTeamName(),
		CurrentPlayer: m.CurrentPlayer(),
		HighestBid:    m.HighestBid(),
		HighestBidder: m.HighestBidderName(),
		BidLog:        m.BidLog(),
		Teams:         m.TeamsSummary(),
		AuctionOver:   m.IsOver(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m, err := s.loadManager(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status(m))
}

func (s *Server) handleNextPlayer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.loadManager(ctx, r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	m.StartNextPlayer(ctx)
	if err := s.saveManager(ctx, m); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status(m))
}

type bidRequest struct {
	Amount int `json:"amount"`
}

type bidResponse struct {
	Accepted  bool           `json:"accepted"`
	Message   string         `json:"message"`
	AIMessage string         `json:"ai_message,omitempty"`
	Status    statusResponse `json:"status"`
}

// handleBid records a human bid and immediately runs the reactive AI
// counter pass, mirroring one press of the bid button.
func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.loadManager(ctx, r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	msg, err := m.ProcessUserBid(ctx, m.HumanTeamName(), req.Amount)
	if err != nil {
		if errors.Is(err, auction.ErrInvalidBid) {
			// Declined, not failed: state is untouched and the human may
			// resubmit.
			writeJSON(w, http.StatusOK, bidResponse{Accepted: false, Message: err.Error(), Status: s.status(m)})
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.BidsPlaced.Add(ctx, 1)

	_, aiMsg := m.TriggerAIBids(ctx)

	if err := s.saveManager(ctx, m); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, bidResponse{Accepted: true, Message: msg, AIMessage: aiMsg, Status: s.status(m)})
}

// handleSkip lets the AI field settle the open player without the human.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.loadManager(ctx, r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	out, err := m.AutoResolveCurrent(ctx, false)
	if err != nil {
		var buyerErr *bidding.NoEligibleBuyerError
		if errors.As(err, &buyerErr) {
			s.writeError(w, http.StatusConflict, err)
			return
		}
		if errors.Is(err, auction.ErrInvalidBid) {
			s.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.PlayersSold.Add(ctx, 1)
	s.metrics.SalePrice.Record(ctx, int64(out.Price))

	if err := s.saveManager(ctx, m); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status(m))
}

type finalizeResponse struct {
	Sold        bool           `json:"sold"`
	Message     string         `json:"message"`
	WinningTeam string         `json:"winning_team,omitempty"`
	AuctionOver bool           `json:"auction_over"`
	Status      statusResponse `json:"status"`
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.loadManager(ctx, r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	res, err := m.FinalizeCurrentPlayer(ctx)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if res.Sold {
		s.metrics.PlayersSold.Add(ctx, 1)
		s.metrics.SalePrice.Record(ctx, int64(m.SoldLog()[len(m.SoldLog())-1].Price))
	}

	if err := s.saveManager(ctx, m); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeResponse{
		Sold:        res.Sold,
		Message:     res.Message,
		WinningTeam: res.WinningTeam,
		AuctionOver: res.AuctionOver,
		Status:      s.status(m),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	m, err := s.loadManager(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Summary())
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rosterFor returns the original roster for a canonical team name.
func (s *Server) rosterFor(name string) []string {
	return s.rosters[canonicalRosterKey(s.rosters, name)]
}

// canonicalRosterKey matches a canonical team name to the roster map key,
// which the data files keep lowercase.
func canonicalRosterKey(rosters map[string][]string, canonical string) string {
	for key := range rosters {
		if team.CanonicalName(key) == canonical {
			return key
		}
	}
	return ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.logger.Warn("request failed", slog.Int("status", code), slog.Any("error", err))
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeLoadError maps store failures: absent runs are 404, bad state is
// 409 telling the caller to restart the flow.
func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	default:
		var rehydrationErr *session.RehydrationError
		if errors.As(err, &rehydrationErr) {
			s.writeError(w, http.StatusConflict, fmt.Errorf("session state unusable, restart the run: %w", err))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
