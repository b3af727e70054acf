package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreToolUseHookBlockingEndsChain(t *testing.T) {
	d := NewDispatcher(nil)
	cfg := CommandHookConfig{
		Name:    "deny-all",
		Kind:    HandlerCommand,
		Command: []string{"sh", "-c", `echo '{"decision":"deny","reason":"no"}'`},
	}

	result, err := d.RunChain(context.Background(), EventPreToolUse, []CommandHookConfig{cfg}, Payload{Event: EventPreToolUse}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, result.Decision)
	assert.Equal(t, "no", result.Reason)
}

func TestHookChainStopsAtFirstAbortingFailure(t *testing.T) {
	d := NewDispatcher(nil)
	first := CommandHookConfig{Name: "fails", Kind: HandlerCommand, Command: []string{"false"}, AbortOnError: true}
	second := CommandHookConfig{Name: "never-runs", Kind: HandlerCommand, Command: []string{"sh", "-c", "echo hi"}}

	_, err := d.RunChain(context.Background(), EventPostToolUse, []CommandHookConfig{first, second}, Payload{}, nil, nil)
	assert.Error(t, err)
}

func TestHookChainContinuesPastNonAbortingFailure(t *testing.T) {
	d := NewDispatcher(nil)
	first := CommandHookConfig{Name: "fails-soft", Kind: HandlerCommand, Command: []string{"false"}, AbortOnError: false}
	second := CommandHookConfig{Name: "runs", Kind: HandlerCommand, Command: []string{"sh", "-c", `echo '{"decision":"approve"}'`}}

	result, err := d.RunChain(context.Background(), EventPreToolUse, []CommandHookConfig{first, second}, Payload{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DecisionPass, result.Decision)
}

func TestHookWithEmptyCommandIsSkippedSilently(t *testing.T) {
	d := NewDispatcher(nil)
	cfg := CommandHookConfig{Name: "empty", Kind: HandlerCommand}
	result, err := d.RunChain(context.Background(), EventPreToolUse, []CommandHookConfig{cfg}, Payload{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DecisionPass, result.Decision)
}

func TestMatcherRequiresAllSuppliedFields(t *testing.T) {
	name := "shell"
	m := Matcher{ToolName: &name}
	other := "edit"
	assert.True(t, m.Matches(&name, nil))
	assert.False(t, m.Matches(&other, nil))
	assert.False(t, m.Matches(nil, nil))
}
