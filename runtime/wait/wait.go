// Package wait implements the C7 wait coordinator: multi-agent
// wait/wait_team with any/all modes, clamped deadlines, and cancellation.
package wait

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// MinDeadline and MaxDeadline bound any timeout this package accepts, per
// spec §5's "wait/wait_team use absolute deadlines clamped to [10s,300s]".
const (
	MinDeadline     = 10 * time.Second
	MaxDeadline     = 300 * time.Second
	DefaultDeadline = 30 * time.Second
)

// Mode selects whether Wait resolves on the first final id (Any) or only
// once every id is final (All).
type Mode string

const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

// StatusSource resolves a thread id's current status and lets a caller
// subscribe to its changes; the thread manager implements this.
type StatusSource interface {
	GetStatus(id ids.ThreadID) protocol.AgentStatus
	Subscribe(id ids.ThreadID) (<-chan protocol.AgentStatus, func(), bool)
}

// Result is the outcome of a Wait call.
type Result struct {
	Status   map[ids.ThreadID]protocol.AgentStatus
	TimedOut bool
}

// ClampDeadline normalizes a requested timeout per spec §4.5 by clamping
// it into [MinDeadline, MaxDeadline]. It does not reject anything: a ≤0
// value clamps to MinDeadline like any other value below it, so callers
// reject negative timeouts before calling it.
func ClampDeadline(requested time.Duration) time.Duration {
	switch {
	case requested < MinDeadline:
		return MinDeadline
	case requested > MaxDeadline:
		return MaxDeadline
	default:
		return requested
	}
}

// Wait blocks until mode's resolution condition is met or deadline
// elapses, whichever comes first.
func Wait(ctx context.Context, source StatusSource, threadIDs []ids.ThreadID, mode Mode, deadline time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result := Result{Status: make(map[ids.ThreadID]protocol.AgentStatus, len(threadIDs))}

	var pending []ids.ThreadID
	for _, id := range threadIDs {
		st := source.GetStatus(id)
		result.Status[id] = st
		if !st.IsFinal() {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return result
	}
	if mode == ModeAny && len(result.Status) > len(pending) {
		// At least one id was already final at entry.
		return result
	}

	updates := make(chan statusUpdate, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range pending {
		id := id
		ch, unsubscribe, ok := source.Subscribe(id)
		if !ok {
			result.Status[id] = protocol.AgentStatusNotFound
			continue
		}
		g.Go(func() error {
			defer unsubscribe()
			for {
				select {
				case st, open := <-ch:
					if !open {
						return nil
					}
					if st.IsFinal() {
						select {
						case updates <- statusUpdate{id, st}:
						default:
						}
						return nil
					}
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	switch mode {
	case ModeAny:
		select {
		case u := <-updates:
			result.Status[u.id] = u.status
			drainNonBlocking(updates, result.Status)
			cancel()
			_ = g.Wait()
			return result
		case <-ctx.Done():
			result.TimedOut = true
			_ = g.Wait()
			return result
		}
	default: // ModeAll
		done := make(chan struct{})
		go func() {
			_ = g.Wait()
			close(done)
		}()
		for {
			select {
			case u, open := <-updates:
				if open {
					result.Status[u.id] = u.status
				}
			case <-done:
				drainNonBlocking(updates, result.Status)
				result.TimedOut = countFinal(result.Status) < len(threadIDs)
				return result
			case <-ctx.Done():
				<-done
				drainNonBlocking(updates, result.Status)
				result.TimedOut = countFinal(result.Status) < len(threadIDs)
				return result
			}
		}
	}
}

type statusUpdate struct {
	id     ids.ThreadID
	status protocol.AgentStatus
}

func drainNonBlocking(updates chan statusUpdate, status map[ids.ThreadID]protocol.AgentStatus) {
	for {
		select {
		case u := <-updates:
			status[u.id] = u.status
		default:
			return
		}
	}
}

func countFinal(status map[ids.ThreadID]protocol.AgentStatus) int {
	n := 0
	for _, s := range status {
		if s.IsFinal() {
			n++
		}
	}
	return n
}
