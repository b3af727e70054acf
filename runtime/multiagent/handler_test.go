package multiagent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/toolregistry"
)

func decodeInto(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestHandlerSpawnAgentRoutesThroughCollab(t *testing.T) {
	c := newTestCollab(t, 10, 4)
	root, err := c.Threads.StartThread(rootSource())
	require.NoError(t, err)

	h := &Handler{Collab: c, CallerThreadID: root.ThreadID, CallerSource: rootSource()}
	out, err := h.Handle(context.Background(), toolregistry.Invocation{
		ToolInvocation:  protocol.ToolInvocation{CallID: "call_1", Name: "spawn_agent"},
		PayloadKind:     toolregistry.PayloadFunction,
		StructuredInput: decodeInto(t, `{"message":"go do it"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.ToolOutputSuccess, out.Status)

	var result SpawnAgentResult
	require.NoError(t, json.Unmarshal([]byte(out.Output), &result))
	assert.NotEmpty(t, result.AgentID)
}

func TestHandlerSpawnAgentAcceptsBackendgroundAlias(t *testing.T) {
	c := newTestCollab(t, 10, 4)
	root, err := c.Threads.StartThread(rootSource())
	require.NoError(t, err)

	h := &Handler{Collab: c, CallerThreadID: root.ThreadID, CallerSource: rootSource()}
	out, err := h.Handle(context.Background(), toolregistry.Invocation{
		ToolInvocation:  protocol.ToolInvocation{CallID: "call_1", Name: "spawn_agent"},
		PayloadKind:     toolregistry.PayloadFunction,
		StructuredInput: decodeInto(t, `{"message":"go do it","backendground":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.ToolOutputSuccess, out.Status)
}

func TestHandlerUnknownToolRespondsToModel(t *testing.T) {
	c := newTestCollab(t, 10, 4)
	h := &Handler{Collab: c, CallerThreadID: ids.ThreadID("thread_caller"), CallerSource: rootSource()}

	_, err := h.Handle(context.Background(), toolregistry.Invocation{
		ToolInvocation: protocol.ToolInvocation{CallID: "call_1", Name: "not_a_real_tool"},
		PayloadKind:    toolregistry.PayloadFunction,
	})
	require.Error(t, err)
}

func TestHandlerMissingMessageAndItemsRespondsToModel(t *testing.T) {
	c := newTestCollab(t, 10, 4)
	root, err := c.Threads.StartThread(rootSource())
	require.NoError(t, err)
	h := &Handler{Collab: c, CallerThreadID: root.ThreadID, CallerSource: rootSource()}

	_, err = h.Handle(context.Background(), toolregistry.Invocation{
		ToolInvocation:  protocol.ToolInvocation{CallID: "call_1", Name: "spawn_agent"},
		PayloadKind:     toolregistry.PayloadFunction,
		StructuredInput: decodeInto(t, `{}`),
	})
	require.Error(t, err)
}
