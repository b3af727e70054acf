package anthropic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// TestMessageAndToolCallInOneStream exercises spec §8 scenario 1 exactly:
// feeding the six-event fixture must produce the six-event output in the
// literal order and shape given.
func TestMessageAndToolCallInOneStream(t *testing.T) {
	m := newStreamMachine(nil)

	var got []protocol.ResponseEvent
	feed := func(ev rawEvent) {
		out, err := m.Feed(ev)
		require.NoError(t, err)
		got = append(got, out...)
	}

	feed(rawEvent{Kind: rawMessageStart, MessageID: "resp_1"})
	feed(rawEvent{Kind: rawContentBlockStart, Index: 0, BlockKind: rawBlockText, TextSeed: ""})
	feed(rawEvent{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaText, Text: "Hello"})
	feed(rawEvent{
		Kind: rawContentBlockStart, Index: 1, BlockKind: rawBlockToolUse,
		ToolID: "call_1", ToolName: "shell", ToolInput: `{"command":["pwd"]}`,
	})
	feed(rawEvent{
		Kind: rawMessageDelta, StopReason: "tool_use",
		Usage: rawUsage{InputTokens: 7, CacheReadInputTokens: 2, OutputTokens: 5},
	})
	feed(rawEvent{Kind: rawMessageStop})

	require.Len(t, got, 6)

	require.Equal(t, protocol.EventCreated, got[0].Kind)

	require.Equal(t, protocol.EventOutputItemAdded, got[1].Kind)
	require.Equal(t, protocol.ResponseItemMessage, got[1].Item.Kind)
	require.Equal(t, "assistant", got[1].Item.Role)

	require.Equal(t, protocol.EventOutputTextDelta, got[2].Kind)
	require.Equal(t, "Hello", got[2].Text)

	require.Equal(t, protocol.EventOutputItemDone, got[3].Kind)
	require.Equal(t, protocol.ResponseItemMessage, got[3].Item.Kind)
	require.Equal(t, "Hello", got[3].Item.Content[0].Text)
	require.NotNil(t, got[3].Item.EndTurn)
	require.False(t, *got[3].Item.EndTurn)

	require.Equal(t, protocol.EventOutputItemDone, got[4].Kind)
	require.Equal(t, protocol.ResponseItemFunctionCall, got[4].Item.Kind)
	require.Equal(t, "shell", got[4].Item.Name)
	require.Equal(t, "call_1", got[4].Item.CallID)
	require.Equal(t, `{"command":["pwd"]}`, got[4].Item.Arguments)

	require.Equal(t, protocol.EventCompleted, got[5].Kind)
	require.Equal(t, "resp_1", got[5].ResponseID)
	require.Equal(t, 7, got[5].TokenUsage.InputTokens)
	require.Equal(t, 2, got[5].TokenUsage.CachedInputTokens)
	require.Equal(t, 5, got[5].TokenUsage.OutputTokens)
	require.Equal(t, 12, got[5].TokenUsage.TotalTokens)
	require.False(t, got[5].CanAppend)
}

// TestFreeformToolUsesInputFieldAsText exercises spec §4.1 step 3: a
// freeform tool (e.g. apply_patch) is declared to the model with an
// input_schema of {"input": {"type": "string"}}, so its accumulated
// partial_json fragments parse as {"input": "<text>"} and the resulting
// CustomToolCall's Input must be exactly "<text>", not the JSON-encoded
// wrapper object.
func TestFreeformToolUsesInputFieldAsText(t *testing.T) {
	m := newStreamMachine(map[string]struct{}{"apply_patch": {}})

	var got []protocol.ResponseEvent
	feed := func(ev rawEvent) {
		out, err := m.Feed(ev)
		require.NoError(t, err)
		got = append(got, out...)
	}

	feed(rawEvent{Kind: rawMessageStart, MessageID: "resp_3"})
	feed(rawEvent{
		Kind: rawContentBlockStart, Index: 0, BlockKind: rawBlockToolUse,
		ToolID: "call_2", ToolName: "apply_patch",
	})
	feed(rawEvent{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaInputJSON, PartialJSON: `{"input":`})
	feed(rawEvent{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaInputJSON, PartialJSON: `"*** Begin Patch"}`})
	feed(rawEvent{Kind: rawMessageDelta, StopReason: "tool_use"})
	feed(rawEvent{Kind: rawMessageStop})

	var done *protocol.ResponseItem
	for i := range got {
		if got[i].Kind == protocol.EventOutputItemDone && got[i].Item.Kind == protocol.ResponseItemCustomToolCall {
			done = &got[i].Item
		}
	}
	require.NotNil(t, done)
	require.Equal(t, "call_2", done.CallID)
	require.Equal(t, "*** Begin Patch", done.Input)
}

// TestFreeformToolFallsBackToRawStringWhenUnparsable covers the case
// where the accumulated fragments never parse as a JSON object at all
// (e.g. a truncated stream): the raw accumulated text is used directly.
func TestFreeformToolFallsBackToRawStringWhenUnparsable(t *testing.T) {
	m := newStreamMachine(map[string]struct{}{"apply_patch": {}})

	var got []protocol.ResponseEvent
	feed := func(ev rawEvent) {
		out, err := m.Feed(ev)
		require.NoError(t, err)
		got = append(got, out...)
	}

	feed(rawEvent{Kind: rawMessageStart, MessageID: "resp_4"})
	feed(rawEvent{
		Kind: rawContentBlockStart, Index: 0, BlockKind: rawBlockToolUse,
		ToolID: "call_3", ToolName: "apply_patch",
	})
	feed(rawEvent{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaInputJSON, PartialJSON: `not valid json`})
	feed(rawEvent{Kind: rawMessageDelta, StopReason: "tool_use"})
	feed(rawEvent{Kind: rawMessageStop})

	var done *protocol.ResponseItem
	for i := range got {
		if got[i].Kind == protocol.EventOutputItemDone && got[i].Item.Kind == protocol.ResponseItemCustomToolCall {
			done = &got[i].Item
		}
	}
	require.NotNil(t, done)
	require.Equal(t, "not valid json", done.Input)
}

func TestReasoningSummaryDeltaAlwaysPrecededByPartAdded(t *testing.T) {
	m := newStreamMachine(nil)

	var got []protocol.ResponseEvent
	feed := func(ev rawEvent) {
		out, err := m.Feed(ev)
		require.NoError(t, err)
		got = append(got, out...)
	}

	feed(rawEvent{Kind: rawMessageStart, MessageID: "resp_2"})
	feed(rawEvent{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaThinking, Thinking: "first "})
	feed(rawEvent{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaThinking, Thinking: "second"})
	feed(rawEvent{Kind: rawMessageDelta, StopReason: "end_turn"})
	feed(rawEvent{Kind: rawMessageStop})

	seenPartAdded := map[int]bool{}
	for _, ev := range got {
		if ev.Kind == protocol.EventReasoningSummaryDelta {
			require.True(t, seenPartAdded[ev.SummaryIndex], "delta at index %d not preceded by part-added", ev.SummaryIndex)
		}
		if ev.Kind == protocol.EventReasoningSummaryPartAdded {
			seenPartAdded[ev.SummaryIndex] = true
		}
	}
}

func TestCompletedAppearsExactlyOnceAndLast(t *testing.T) {
	m := newStreamMachine(nil)
	var got []protocol.ResponseEvent
	for _, ev := range []rawEvent{
		{Kind: rawMessageStart, MessageID: "r1"},
		{Kind: rawContentBlockDelta, Index: 0, DeltaKind: rawDeltaText, Text: "hi"},
		{Kind: rawMessageDelta, StopReason: "end_turn"},
		{Kind: rawMessageStop},
	} {
		out, err := m.Feed(ev)
		require.NoError(t, err)
		got = append(got, out...)
	}

	count := 0
	for i, ev := range got {
		if ev.Kind == protocol.EventCompleted {
			count++
			require.Equal(t, len(got)-1, i, "Completed must be last")
		}
	}
	require.Equal(t, 1, count)
}
