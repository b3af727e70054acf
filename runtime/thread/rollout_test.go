package thread

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

func newTestManagerWithLayout(t *testing.T, maxThreads, maxDepth int) *Manager {
	t.Helper()
	layout := config.NewLayout(t.TempDir())
	return NewManager(maxThreads, maxDepth, func() TurnRunner { return fakeRunner{} }, layout)
}

func TestResumeThreadReplaysSessionSourceAndHistory(t *testing.T) {
	m := newTestManagerWithLayout(t, 10, 4)
	source := protocol.SessionSource{Kind: protocol.SessionSourceSubAgent, AgentRole: "reviewer", Depth: 1}
	nt, err := m.StartThread(source)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return nt.Thread.Status() == protocol.AgentStatusIdle
	}, time.Second, time.Millisecond)

	text := "first message"
	_, err = m.SendInput(context.Background(), nt.ThreadID, UserInputSpec{Text: &text})
	require.NoError(t, err)

	require.NoError(t, m.ShutdownAgent(context.Background(), nt.ThreadID))

	resumed, err := m.ResumeThread(nt.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, source, resumed.Thread.Source)
	require.Len(t, resumed.Thread.History, 1)
	require.NotNil(t, resumed.Thread.History[0].Text)
	assert.Equal(t, text, *resumed.Thread.History[0].Text)
}

func TestResumeThreadOfLiveThreadIsNoOp(t *testing.T) {
	m := newTestManagerWithLayout(t, 10, 4)
	nt, err := m.StartThread(protocol.SessionSource{Kind: protocol.SessionSourceCLI})
	require.NoError(t, err)

	resumed, err := m.ResumeThread(nt.ThreadID)
	require.NoError(t, err)
	assert.Same(t, nt.Thread, resumed.Thread)
}

func TestStartThreadWithoutLayoutDisablesRolloutPersistence(t *testing.T) {
	m := newTestManager(10, 4)
	nt, err := m.StartThread(protocol.SessionSource{Kind: protocol.SessionSourceCLI})
	require.NoError(t, err)
	assert.Nil(t, nt.Thread.rollout)
}
