package toolregistry

import "context"

// Gate serializes mutating tool calls within a single turn: non-mutating
// calls bypass it entirely (they run with full parallelism), but any two
// concurrent mutating calls on the same turn are forced into single-file
// order, matching spec §4.2's "single-waiter cooperative gate".
//
// It is implemented as a buffered channel of capacity one acting as a
// channel-based mutex, rather than sync.Mutex, so Acquire can respect
// context cancellation while waiting.
type Gate struct {
	slot chan struct{}
}

// NewGate constructs a ready (unheld) Gate.
func NewGate() *Gate {
	g := &Gate{slot: make(chan struct{}, 1)}
	g.slot <- struct{}{}
	return g
}

// Acquire blocks until the gate is free or ctx is done, whichever comes
// first.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case <-g.slot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the gate to the free state. Calling Release without a
// matching successful Acquire is a programming error.
func (g *Gate) Release() {
	select {
	case g.slot <- struct{}{}:
	default:
	}
}
