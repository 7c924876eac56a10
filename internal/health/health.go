// Package health exposes the auction service's liveness and readiness
// endpoints. Liveness answers as long as the process runs; readiness
// flips on once startup wiring (pool build, session store) is done and
// stays green only while every registered dependency check passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
)

// checkTimeout bounds one readiness probe across all dependency checks.
const checkTimeout = 5 * time.Second

// Status is the body of a health response.
type Status struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
}

// Checker is a named dependency check run on every readiness probe.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the health endpoints.
type Handler struct {
	mu       sync.RWMutex
	ready    bool
	checkers []Checker
	clock    clock.Clock
	started  time.Time
}

// NewHandler creates a health handler; uptime counts from here.
func NewHandler(clk clock.Clock, checkers ...Checker) *Handler {
	return &Handler{checkers: checkers, clock: clk, started: clk.Now()}
}

// Routes registers the health endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleLiveness)
	mux.HandleFunc("GET /readyz", h.handleReadiness)
}

// SetReady marks the service as ready to receive traffic. Flipped on
// after startup wiring completes and off again during shutdown.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status("ok", nil))
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready := h.ready
	h.mu.RUnlock()

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, h.status("not_ready", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checkers))
	allOK := true
	for _, c := range h.checkers {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	if !allOK {
		writeJSON(w, http.StatusServiceUnavailable, h.status("not_ready", checks))
		return
	}
	writeJSON(w, http.StatusOK, h.status("ready", checks))
}

func (h *Handler) status(state string, checks map[string]string) Status {
	now := h.clock.Now()
	return Status{
		Status:    state,
		Checks:    checks,
		Uptime:    now.Sub(h.started).Round(time.Second).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
