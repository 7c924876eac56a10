package clock

import "time"

// Clock abstracts time operations for testability. Bid-log timestamps come
// from here so tests can pin them.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that always returns a fixed time.
type Mock struct {
	T time.Time
}

// Now returns the fixed time.
func (m Mock) Now() time.Time { return m.T }

// Ticking is a Clock that advances by Step on every call, so consecutive
// bid events get distinct, ordered timestamps in tests.
type Ticking struct {
	T    time.Time
	Step time.Duration
}

// Now returns the current mock time and advances it.
func (t *Ticking) Now() time.Time {
	now := t.T
	t.T = t.T.Add(t.Step)
	return now
}
