// Package memory provides an in-process session.Store. State is deep
// copied through JSON on both save and load so callers never share memory
// with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/session"
)

func init() {
	session.Register("memory", openMemory)
}

func openMemory(_ context.Context, _ config.SessionConfig, clk clock.Clock) (session.Store, error) {
	return New(clk), nil
}

// Store keeps serialized run state in a map.
type Store struct {
	clk clock.Clock

	mu     sync.RWMutex
	states map[string][]byte
}

// New returns an empty in-memory Store.
func New(clk clock.Clock) *Store {
	return &Store{clk: clk, states: make(map[string][]byte)}
}

// Save validates and stores a serialized copy of the state.
func (s *Store) Save(_ context.Context, state *session.StateV1) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state.SavedAt = s.clk.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.RunID] = raw
	return nil
}

// Load returns a validated copy of the state for runID.
func (s *Store) Load(_ context.Context, runID string) (*session.StateV1, error) {
	s.mu.RLock()
	raw, ok := s.states[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, session.ErrNotFound
	}
	var state session.StateV1
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &session.RehydrationError{Field: "state", Reason: err.Error()}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// Delete removes the state for runID. Deleting an absent run is not an
// error.
func (s *Store) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, runID)
	return nil
}

// Close releases nothing; the store lives in process memory.
func (s *Store) Close() error { return nil }
