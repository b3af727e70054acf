package thread

import (
	"context"
	"sync"

	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// opQueueCapacity bounds how many submissions may queue against a thread
// before Submit blocks, preventing one runaway caller from exhausting
// memory while still giving normal bursts (a handful of tool results,
// an interrupt) headroom.
const opQueueCapacity = 64

// TurnRunner drives a single model turn for a thread. The thread manager
// supplies the concrete implementation (wiring the stream adapter and
// tool dispatch pipeline); Thread itself only sequences submissions.
type TurnRunner interface {
	RunTurn(ctx context.Context, th *Thread, input UserInputSpec, finalOutputSchema *string) error
}

// Thread is one isolated agent conversation: its own goroutine reads Ops
// from a channel and drives turns through a TurnRunner, emitting status
// changes to subscribers. The manager exclusively owns each Thread;
// callers only ever see it through the manager's capability handle.
type Thread struct {
	ID           ids.ThreadID
	Source       protocol.SessionSource
	LeadThreadID ids.ThreadID // for members, the team's lead

	// History holds the user_input records replayed from a resumed
	// thread's rollout, if any; empty for a freshly started thread.
	History []UserInputSpec

	runner  TurnRunner
	rollout *rolloutWriter

	ops    chan Op
	status *protocol.Broadcaster[protocol.AgentStatus]

	mu         sync.RWMutex
	curStatus  protocol.AgentStatus
	cancelTurn context.CancelFunc

	done chan struct{}
}

func newThread(id ids.ThreadID, source protocol.SessionSource, runner TurnRunner, rollout *rolloutWriter, history []UserInputSpec) *Thread {
	th := &Thread{
		ID:        id,
		Source:    source,
		History:   history,
		runner:    runner,
		rollout:   rollout,
		ops:       make(chan Op, opQueueCapacity),
		status:    protocol.NewBroadcaster[protocol.AgentStatus](),
		curStatus: protocol.AgentStatusPendingInit,
		done:      make(chan struct{}),
	}
	_ = th.rollout.append(rolloutRecord{Kind: "session_source", Source: &source})
	th.status.Publish(protocol.AgentStatusPendingInit)
	go th.driveLoop()
	return th
}

// Status returns the thread's last known status.
func (t *Thread) Status() protocol.AgentStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.curStatus
}

// SubscribeStatus returns a channel delivering status updates (primed with
// the current status) and an unsubscribe function.
func (t *Thread) SubscribeStatus() (<-chan protocol.AgentStatus, func()) {
	return t.status.Subscribe()
}

// Submit enqueues op for processing and waits for it to be accepted into
// the driver's queue (not for the turn itself to finish, for UserInput).
func (t *Thread) Submit(ctx context.Context, op Op) error {
	select {
	case t.ops <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return errThreadShutdown
	}
}

func (t *Thread) setStatus(s protocol.AgentStatus) {
	t.mu.Lock()
	t.curStatus = s
	t.mu.Unlock()
	t.status.Publish(s)
}

func (t *Thread) driveLoop() {
	t.setStatus(protocol.AgentStatusIdle)
	for op := range t.ops {
		switch op.Kind {
		case OpUserInput:
			text, items := op.Input.Text, op.Input.Items
			_ = t.rollout.append(rolloutRecord{Kind: "user_input", Text: text, Items: items})
			t.runTurn(op)
		case OpInterrupt:
			t.mu.Lock()
			cancel := t.cancelTurn
			t.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			if op.Done != nil {
				op.Done <- nil
			}
		case OpShutdown:
			t.setStatus(protocol.AgentStatusShutdown)
			if op.Done != nil {
				op.Done <- nil
			}
			close(t.done)
			t.status.Close()
			t.rollout.close()
			return
		}
	}
}

func (t *Thread) runTurn(op Op) {
	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancelTurn = cancel
	t.mu.Unlock()
	defer cancel()

	t.setStatus(protocol.AgentStatusRunning)
	err := t.runner.RunTurn(ctx, t, op.Input, op.FinalOutputSchema)
	t.setStatus(protocol.AgentStatusIdle)

	if op.Done != nil {
		op.Done <- err
	}
}
