package thread

import (
	"context"
	"errors"
	"sync"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

var errThreadShutdown = errors.New("thread: already shut down")

// NewThread is the result of starting or resuming a thread.
type NewThread struct {
	ThreadID ids.ThreadID
	Thread   *Thread
}

// Manager owns every live Thread in the process: it is the sole place
// that creates, enumerates, and removes them, enforcing the
// agent_max_threads/agent_max_depth limits spec §4.4 names. Callers never
// hold a Thread directly; they go through Manager's narrow capability
// surface (AgentControl).
type Manager struct {
	mu               sync.RWMutex
	threads          map[ids.ThreadID]*Thread
	recentlyShutdown map[ids.ThreadID]struct{}

	maxThreads int
	maxDepth   int

	newRunner func() TurnRunner
	layout    config.Layout
}

// NewManager constructs a Manager. newRunner builds a fresh TurnRunner per
// thread (so per-thread state, like a stream adapter's tool-name map,
// never leaks across threads). layout locates each thread's rollout file
// under CODEX_HOME; a zero Layout disables rollout persistence (useful in
// tests that never resume).
func NewManager(maxThreads, maxDepth int, newRunner func() TurnRunner, layout config.Layout) *Manager {
	return &Manager{
		threads:          make(map[ids.ThreadID]*Thread),
		recentlyShutdown: make(map[ids.ThreadID]struct{}),
		maxThreads:       maxThreads,
		maxDepth:         maxDepth,
		newRunner:        newRunner,
		layout:           layout,
	}
}

// NonShutdownCount returns the number of threads not in a final status.
func (m *Manager) NonShutdownCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, th := range m.threads {
		if !th.Status().IsFinal() {
			n++
		}
	}
	return n
}

// StartThread allocates a new ThreadID and starts its driver loop.
func (m *Manager) StartThread(source protocol.SessionSource) (NewThread, error) {
	return m.startThreadLocked(ids.NewThreadID(), source)
}

// SpawnAgent creates a sub-agent, enforcing the thread_limit and depth
// limit described in spec §4.4/§4.5.
func (m *Manager) SpawnAgent(source protocol.SessionSource) (NewThread, error) {
	if source.NextSpawnDepth() > m.maxDepth {
		return NewThread{}, codexerr.InvalidRequest("Agent depth limit reached. Solve the task yourself.")
	}
	m.mu.Lock()
	count := 0
	for _, th := range m.threads {
		if !th.Status().IsFinal() {
			count++
		}
	}
	if count+1 > m.maxThreads {
		m.mu.Unlock()
		return NewThread{}, codexerr.InvalidRequest("agent thread limit reached (max %d)", m.maxThreads)
	}
	m.mu.Unlock()
	return m.startThreadLocked(ids.NewThreadID(), source)
}

func (m *Manager) startThreadLocked(id ids.ThreadID, source protocol.SessionSource) (NewThread, error) {
	rollout, err := m.openRollout(id)
	if err != nil {
		return NewThread{}, codexerr.Fatal("thread: open rollout: %v", err)
	}
	th := newThread(id, source, m.newRunner(), rollout, nil)
	m.mu.Lock()
	m.threads[id] = th
	delete(m.recentlyShutdown, id)
	m.mu.Unlock()
	return NewThread{ThreadID: id, Thread: th}, nil
}

// ResumeThread restarts a driver loop under an id that previously existed,
// replaying its rollout's session source and user-input history (the
// caller has already verified the rollout file is present and checked any
// depth limit against its own session source). If a thread is already live
// under id, it is returned unchanged.
func (m *Manager) ResumeThread(id ids.ThreadID) (NewThread, error) {
	if th, ok := m.Lookup(id); ok {
		return NewThread{ThreadID: id, Thread: th}, nil
	}

	history, resumedSource, err := m.loadRollout(id)
	if err != nil {
		return NewThread{}, codexerr.Fatal("thread: load rollout: %v", err)
	}
	rollout, err := m.openRollout(id)
	if err != nil {
		return NewThread{}, codexerr.Fatal("thread: open rollout: %v", err)
	}
	th := newThread(id, resumedSource, m.newRunner(), rollout, history)

	m.mu.Lock()
	m.threads[id] = th
	delete(m.recentlyShutdown, id)
	m.mu.Unlock()
	return NewThread{ThreadID: id, Thread: th}, nil
}

func (m *Manager) openRollout(id ids.ThreadID) (*rolloutWriter, error) {
	if m.layout.Root() == "" {
		return nil, nil
	}
	return openRolloutWriter(m.layout.RolloutPath(id.String()))
}

func (m *Manager) loadRollout(id ids.ThreadID) ([]UserInputSpec, protocol.SessionSource, error) {
	if m.layout.Root() == "" {
		return nil, protocol.SessionSource{}, nil
	}
	return loadRolloutHistory(m.layout.RolloutPath(id.String()))
}

// Lookup returns the thread for id, or ok=false if unknown or removed.
func (m *Manager) Lookup(id ids.ThreadID) (*Thread, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	th, ok := m.threads[id]
	return th, ok
}

// GetStatus returns a thread's status, or AgentStatusNotFound for an
// unknown id.
func (m *Manager) GetStatus(id ids.ThreadID) protocol.AgentStatus {
	th, ok := m.Lookup(id)
	if !ok {
		return protocol.AgentStatusNotFound
	}
	return th.Status()
}

// Subscribe implements wait.StatusSource: it returns a status channel for
// id, or ok=false if the thread is unknown.
func (m *Manager) Subscribe(id ids.ThreadID) (<-chan protocol.AgentStatus, func(), bool) {
	th, ok := m.Lookup(id)
	if !ok {
		return nil, func() {}, false
	}
	ch, unsubscribe := th.SubscribeStatus()
	return ch, unsubscribe, true
}

// SendInput submits a UserInput op and returns a freshly minted submission
// id once the driver has accepted it into its queue.
func (m *Manager) SendInput(ctx context.Context, id ids.ThreadID, input UserInputSpec) (string, error) {
	th, ok := m.Lookup(id)
	if !ok {
		return "", codexerr.ThreadNotFound(id)
	}
	submissionID := ids.NewTaskID().String()
	if err := th.Submit(ctx, Op{Kind: OpUserInput, Input: input, SubmissionID: submissionID}); err != nil {
		return "", err
	}
	return submissionID, nil
}

// InterruptAgent submits an Interrupt op, blocking until the driver has
// acknowledged it.
func (m *Manager) InterruptAgent(ctx context.Context, id ids.ThreadID) error {
	th, ok := m.Lookup(id)
	if !ok {
		return codexerr.ThreadNotFound(id)
	}
	done := make(chan error, 1)
	if err := th.Submit(ctx, Op{Kind: OpInterrupt, Done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownAgent submits a Shutdown op and removes the thread from the
// registry once it reaches Shutdown.
func (m *Manager) ShutdownAgent(ctx context.Context, id ids.ThreadID) error {
	th, ok := m.Lookup(id)
	if !ok {
		return nil
	}
	done := make(chan error, 1)
	if err := th.Submit(ctx, Op{Kind: OpShutdown, Done: done}); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	delete(m.threads, id)
	m.recentlyShutdown[id] = struct{}{}
	m.mu.Unlock()
	return nil
}
