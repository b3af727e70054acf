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

type fakeRunner struct{}

func (fakeRunner) RunTurn(ctx context.Context, th *Thread, input UserInputSpec, schema *string) error {
	return nil
}

func newTestManager(maxThreads, maxDepth int) *Manager {
	return NewManager(maxThreads, maxDepth, func() TurnRunner { return fakeRunner{} }, config.Layout{})
}

func TestStartThreadBeginsIdle(t *testing.T) {
	m := newTestManager(10, 4)
	nt, err := m.StartThread(protocol.SessionSource{Kind: protocol.SessionSourceCLI})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return nt.Thread.Status() == protocol.AgentStatusIdle
	}, time.Second, time.Millisecond)
}

func TestSpawnAgentEnforcesThreadLimit(t *testing.T) {
	m := newTestManager(1, 4)
	_, err := m.SpawnAgent(protocol.SessionSource{Kind: protocol.SessionSourceCLI})
	require.NoError(t, err)

	_, err = m.SpawnAgent(protocol.SessionSource{Kind: protocol.SessionSourceCLI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent thread limit reached")
}

func TestSpawnAgentEnforcesDepthLimit(t *testing.T) {
	m := newTestManager(10, 1)
	source := protocol.SessionSource{Kind: protocol.SessionSourceSubAgent, Depth: 1}

	_, err := m.SpawnAgent(source)
	require.Error(t, err)
	assert.Equal(t, "Agent depth limit reached. Solve the task yourself.", err.Error())
}

func TestShutdownAgentRemovesFromRegistry(t *testing.T) {
	m := newTestManager(10, 4)
	nt, err := m.StartThread(protocol.SessionSource{Kind: protocol.SessionSourceCLI})
	require.NoError(t, err)

	require.NoError(t, m.ShutdownAgent(context.Background(), nt.ThreadID))

	_, ok := m.Lookup(nt.ThreadID)
	assert.False(t, ok)
	assert.Equal(t, protocol.AgentStatusNotFound, m.GetStatus(nt.ThreadID))
}

func TestGetStatusUnknownIDIsNotFound(t *testing.T) {
	m := newTestManager(10, 4)
	assert.Equal(t, protocol.AgentStatusNotFound, m.GetStatus("thread_does_not_exist"))
}
