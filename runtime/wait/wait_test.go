package wait

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

type fakeSource struct {
	mu     sync.Mutex
	status map[ids.ThreadID]protocol.AgentStatus
	subs   map[ids.ThreadID][]chan protocol.AgentStatus
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		status: make(map[ids.ThreadID]protocol.AgentStatus),
		subs:   make(map[ids.ThreadID][]chan protocol.AgentStatus),
	}
}

func (f *fakeSource) set(id ids.ThreadID, st protocol.AgentStatus) {
	f.mu.Lock()
	f.status[id] = st
	chans := append([]chan protocol.AgentStatus(nil), f.subs[id]...)
	f.mu.Unlock()
	for _, ch := range chans {
		ch <- st
	}
}

func (f *fakeSource) GetStatus(id ids.ThreadID) protocol.AgentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.status[id]
	if !ok {
		return protocol.AgentStatusIdle
	}
	return st
}

func (f *fakeSource) Subscribe(id ids.ThreadID) (<-chan protocol.AgentStatus, func(), bool) {
	ch := make(chan protocol.AgentStatus, 8)
	f.mu.Lock()
	f.subs[id] = append(f.subs[id], ch)
	f.mu.Unlock()
	return ch, func() {}, true
}

func TestClampDeadlineBoundsToMinAndMax(t *testing.T) {
	assert.Equal(t, MinDeadline, ClampDeadline(time.Second))
	assert.Equal(t, MaxDeadline, ClampDeadline(time.Hour))
	assert.Equal(t, 20*time.Second, ClampDeadline(20*time.Second))
}

func TestWaitAnyResolvesImmediatelyWhenOneAlreadyFinal(t *testing.T) {
	src := newFakeSource()
	a, b := ids.ThreadID("thread_a"), ids.ThreadID("thread_b")
	src.set(a, protocol.AgentStatusIdle)
	src.set(b, protocol.AgentStatusShutdown)

	start := time.Now()
	res := Wait(context.Background(), src, []ids.ThreadID{a, b}, ModeAny, MinDeadline)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, res.TimedOut)
	assert.Equal(t, protocol.AgentStatusShutdown, res.Status[b])
}

func TestWaitAnyResolvesOnFirstTransitionToFinal(t *testing.T) {
	src := newFakeSource()
	a, b := ids.ThreadID("thread_a"), ids.ThreadID("thread_b")
	src.set(a, protocol.AgentStatusIdle)
	src.set(b, protocol.AgentStatusIdle)

	go func() {
		time.Sleep(20 * time.Millisecond)
		src.set(b, protocol.AgentStatusShutdown)
	}()

	res := Wait(context.Background(), src, []ids.ThreadID{a, b}, ModeAny, MinDeadline)
	assert.False(t, res.TimedOut)
	assert.Equal(t, protocol.AgentStatusShutdown, res.Status[b])
}

func TestWaitAllWaitsForEveryID(t *testing.T) {
	src := newFakeSource()
	a, b := ids.ThreadID("thread_a"), ids.ThreadID("thread_b")
	src.set(a, protocol.AgentStatusIdle)
	src.set(b, protocol.AgentStatusIdle)

	go func() {
		time.Sleep(10 * time.Millisecond)
		src.set(a, protocol.AgentStatusShutdown)
		time.Sleep(10 * time.Millisecond)
		src.set(b, protocol.AgentStatusShutdown)
	}()

	res := Wait(context.Background(), src, []ids.ThreadID{a, b}, ModeAll, MaxDeadline)
	assert.False(t, res.TimedOut)
	assert.Equal(t, protocol.AgentStatusShutdown, res.Status[a])
	assert.Equal(t, protocol.AgentStatusShutdown, res.Status[b])
}

func TestWaitTimesOutWhenDeadlineElapsesWithoutResolution(t *testing.T) {
	src := newFakeSource()
	a := ids.ThreadID("thread_a")
	src.set(a, protocol.AgentStatusIdle)

	res := Wait(context.Background(), src, []ids.ThreadID{a}, ModeAny, MinDeadline)
	assert.True(t, res.TimedOut)
}
