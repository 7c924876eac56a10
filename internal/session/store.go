package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
)

// ErrNotFound is returned when no state exists for a run ID.
var ErrNotFound = errors.New("session not found")

// Store persists run state keyed by run ID.
type Store interface {
	Save(ctx context.Context, state *StateV1) error
	Load(ctx context.Context, runID string) (*StateV1, error)
	Delete(ctx context.Context, runID string) error
	io.Closer
}

// Driver is a function that opens a backing store.
type Driver func(ctx context.Context, cfg config.SessionConfig, clk clock.Clock) (Store, error)

// registry maps driver names to their factory functions.
var registry = map[string]Driver{}

// Register adds a named driver to the global registry.
// It is intended to be called from init() in each driver package.
func Register(name string, d Driver) {
	registry[name] = d
}

// Open selects the driver specified in cfg.Driver and returns a Store.
func Open(ctx context.Context, cfg config.SessionConfig, clk clock.Clock) (Store, error) {
	d, ok := registry[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown session driver %q (registered: %v)", cfg.Driver, registeredNames())
	}
	return d(ctx, cfg, clk)
}

func registeredNames() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	return names
}
