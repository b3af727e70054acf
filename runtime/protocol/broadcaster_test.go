package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster[AgentStatus]()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish(AgentStatusRunning)

	require.Equal(t, AgentStatusRunning, <-ch1)
	require.Equal(t, AgentStatusRunning, <-ch2)
}

func TestBroadcasterPrimesLateSubscriberWithLastValue(t *testing.T) {
	b := NewBroadcaster[AgentStatus]()
	b.Publish(AgentStatusIdle)

	ch, unsub := b.Subscribe()
	defer unsub()

	select {
	case v := <-ch:
		assert.Equal(t, AgentStatusIdle, v)
	case <-time.After(time.Second):
		t.Fatal("late subscriber did not receive primed value")
	}
}

func TestBroadcasterNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer*4; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never drained")
	}

	// Drain whatever is left without blocking; slow subscribers only see
	// the tail of a fast producer's output, never cause it to stall.
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, unsub := b.Subscribe()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
}
