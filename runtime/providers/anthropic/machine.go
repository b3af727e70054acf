package anthropic

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// streamMachine is the deterministic state machine described in spec §4.1:
// it consumes rawEvents in order and produces the corresponding
// ResponseEvent sequence, with no dependency on the network or the
// Anthropic SDK's wire types. That separation is what makes stream
// ordering testable with canned event sequences.
type streamMachine struct {
	freeformToolNames map[string]struct{}

	responseID string
	stopReason string
	usage      rawUsage
	haveUsage  bool

	messageOpened bool
	textBlocks    map[int]*strings.Builder

	reasoningOpened      bool
	reasoningPartStarted map[int]bool
	reasoningBlocks      map[int]*strings.Builder

	toolBlocks map[int]*toolBlockState

	finished bool
}

type toolBlockState struct {
	id          string
	name        string
	input       string // JSON object literal seeded at block start, if any
	partialJSON strings.Builder
}

func newStreamMachine(freeformToolNames map[string]struct{}) *streamMachine {
	if freeformToolNames == nil {
		freeformToolNames = map[string]struct{}{}
	}
	return &streamMachine{
		freeformToolNames:    freeformToolNames,
		textBlocks:           make(map[int]*strings.Builder),
		reasoningPartStarted: make(map[int]bool),
		reasoningBlocks:      make(map[int]*strings.Builder),
		toolBlocks:           make(map[int]*toolBlockState),
	}
}

// Feed advances the machine by one raw event, returning any ResponseEvents
// it produces. A MessageStop event triggers Finish internally.
func (m *streamMachine) Feed(ev rawEvent) ([]protocol.ResponseEvent, error) {
	switch ev.Kind {
	case rawMessageStart:
		m.reset()
		m.responseID = ev.MessageID
		return []protocol.ResponseEvent{protocol.Created()}, nil

	case rawContentBlockStart:
		switch ev.BlockKind {
		case rawBlockText:
			b := &strings.Builder{}
			b.WriteString(ev.TextSeed)
			m.textBlocks[ev.Index] = b
		case rawBlockToolUse:
			m.toolBlocks[ev.Index] = &toolBlockState{id: ev.ToolID, name: ev.ToolName, input: ev.ToolInput}
		}
		return nil, nil

	case rawContentBlockDelta:
		return m.feedDelta(ev)

	case rawContentBlockStop:
		return nil, nil

	case rawMessageDelta:
		m.stopReason = ev.StopReason
		m.usage = ev.Usage
		m.haveUsage = true
		return nil, nil

	case rawMessageStop:
		return m.Finish()

	default:
		return nil, nil
	}
}

func (m *streamMachine) feedDelta(ev rawEvent) ([]protocol.ResponseEvent, error) {
	var out []protocol.ResponseEvent

	switch ev.DeltaKind {
	case rawDeltaText:
		if ev.Text == "" {
			return nil, nil
		}
		if !m.messageOpened {
			if closed := m.closeReasoningIfOpen(); closed != nil {
				out = append(out, closed...)
			}
			out = append(out, protocol.OutputItemAdded(protocol.NewAssistantMessageAdded()))
			m.messageOpened = true
		}
		b := m.textBlocks[ev.Index]
		if b == nil {
			b = &strings.Builder{}
			m.textBlocks[ev.Index] = b
		}
		b.WriteString(ev.Text)
		out = append(out, protocol.OutputTextDelta(ev.Text))
		return out, nil

	case rawDeltaInputJSON:
		if ev.PartialJSON == "" {
			return nil, nil
		}
		tb := m.toolBlocks[ev.Index]
		if tb == nil {
			tb = &toolBlockState{}
			m.toolBlocks[ev.Index] = tb
		}
		tb.partialJSON.WriteString(ev.PartialJSON)
		return nil, nil

	case rawDeltaThinking:
		if ev.Thinking == "" {
			return nil, nil
		}
		if !m.reasoningOpened {
			out = append(out, protocol.OutputItemAdded(protocol.NewReasoningAdded()))
			m.reasoningOpened = true
		}
		if !m.reasoningPartStarted[ev.Index] {
			m.reasoningPartStarted[ev.Index] = true
			out = append(out, protocol.ReasoningSummaryPartAdded(ev.Index))
		}
		b := m.reasoningBlocks[ev.Index]
		if b == nil {
			b = &strings.Builder{}
			m.reasoningBlocks[ev.Index] = b
		}
		b.WriteString(ev.Thinking)
		out = append(out, protocol.ReasoningSummaryDelta(ev.Index, ev.Thinking))
		return out, nil

	case rawDeltaSignature:
		// Signatures accompany redacted/verified thinking blocks but carry
		// no independent event; spec §4.1 says ignore.
		return nil, nil

	default:
		return nil, nil
	}
}

func (m *streamMachine) closeReasoningIfOpen() []protocol.ResponseEvent {
	if !m.reasoningOpened {
		return nil
	}
	m.reasoningOpened = false
	return []protocol.ResponseEvent{m.buildReasoningDone()}
}

func (m *streamMachine) buildReasoningDone() protocol.ResponseEvent {
	var indices []int
	for idx := range m.reasoningBlocks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var joined strings.Builder
	for i, idx := range indices {
		if i > 0 {
			joined.WriteString("\n")
		}
		joined.WriteString(m.reasoningBlocks[idx].String())
	}
	text := joined.String()

	item := protocol.ResponseItem{Kind: protocol.ResponseItemReasoning}
	if text != "" {
		item.Summary = []protocol.SummaryPart{{Text: text}}
		item.RContent = []protocol.ReasoningContent{{Kind: protocol.ReasoningContentText, Text: text}}
	}
	return protocol.OutputItemDone(item)
}

// Finish closes any open items, emits the final FunctionCall/CustomToolCall
// items in ascending block-index order, and emits Completed.
func (m *streamMachine) Finish() ([]protocol.ResponseEvent, error) {
	if m.finished {
		return nil, nil
	}
	m.finished = true

	var out []protocol.ResponseEvent

	if closed := m.closeReasoningIfOpen(); closed != nil {
		out = append(out, closed...)
	}

	if text, ok := m.joinedText(); ok {
		if !m.messageOpened {
			out = append(out, protocol.OutputItemAdded(protocol.NewAssistantMessageAdded()))
			m.messageOpened = true
		}
		item := protocol.ResponseItem{
			Kind:    protocol.ResponseItemMessage,
			Role:    "assistant",
			Content: []protocol.ContentBlock{{Kind: protocol.ContentOutputText, Text: text}},
			EndTurn: endTurnFromStopReason(m.stopReason),
		}
		out = append(out, protocol.OutputItemDone(item))
	}

	toolEvents, err := m.finishToolBlocks()
	if err != nil {
		return nil, err
	}
	out = append(out, toolEvents...)

	usage := (*protocol.TokenUsage)(nil)
	if m.haveUsage {
		usage = &protocol.TokenUsage{
			InputTokens:       m.usage.InputTokens,
			CachedInputTokens: m.usage.CacheReadInputTokens,
			OutputTokens:      m.usage.OutputTokens,
			TotalTokens:       m.usage.InputTokens + m.usage.OutputTokens,
		}
	}
	out = append(out, protocol.Completed(m.responseID, usage, false))
	return out, nil
}

func (m *streamMachine) joinedText() (string, bool) {
	if len(m.textBlocks) == 0 {
		return "", false
	}
	var indices []int
	for idx := range m.textBlocks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var joined strings.Builder
	any := false
	for _, idx := range indices {
		s := m.textBlocks[idx].String()
		if s == "" {
			continue
		}
		any = true
		joined.WriteString(s)
	}
	if !any {
		return "", false
	}
	return joined.String(), true
}

func (m *streamMachine) finishToolBlocks() ([]protocol.ResponseEvent, error) {
	var indices []int
	for idx := range m.toolBlocks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var out []protocol.ResponseEvent
	for _, idx := range indices {
		tb := m.toolBlocks[idx]
		name := tb.name
		if name == "" {
			name = fmt.Sprintf("anthropic_tool_missing_name_%d", idx)
		}
		id := tb.id
		if id == "" {
			id = fmt.Sprintf("anthropic_tool_%d", idx)
		}

		inputValue, rawString, err := mergeToolInput(tb.input, tb.partialJSON.String())
		if err != nil {
			return nil, err
		}

		item := protocol.ResponseItem{CallID: id, Name: name}
		if _, freeform := m.freeformToolNames[name]; freeform {
			item.Kind = protocol.ResponseItemCustomToolCall
			text, err := freeformInputText(inputValue, rawString)
			if err != nil {
				return nil, err
			}
			item.Input = text
		} else {
			item.Kind = protocol.ResponseItemFunctionCall
			b, err := json.Marshal(inputValue)
			if err != nil {
				return nil, err
			}
			item.Arguments = string(b)
		}
		out = append(out, protocol.OutputItemDone(item))
	}
	return out, nil
}

// freeformInputText extracts a freeform tool's text per spec §4.1 step
// 3: the model declares freeform tools with an input_schema of
// {"input": {"type": "string"}}, so the merged object carries its text
// under the "input" key. If present, that key's value is the text
// (stringified if the model sent something other than a string); the
// remaining keys are discarded. If absent — the fragments never parsed
// as an object — fall back to the raw accumulated string, then to
// JSON-stringifying whatever merged.
func freeformInputText(inputValue map[string]any, rawString string) (string, error) {
	if v, ok := inputValue["input"]; ok {
		if s, ok := v.(string); ok {
			return s, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if rawString != "" {
		return rawString, nil
	}
	b, err := json.Marshal(inputValue)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// mergeToolInput combines the block-start input literal with the
// accumulated input_json_delta fragments per spec §4.1 step 3: if the
// fragments parse as a JSON object, overlay them onto the base object;
// otherwise preserve the base and return the fragments as a raw string.
func mergeToolInput(baseJSON, fragments string) (map[string]any, string, error) {
	base := map[string]any{}
	if strings.TrimSpace(baseJSON) != "" {
		if err := json.Unmarshal([]byte(baseJSON), &base); err != nil {
			base = map[string]any{}
		}
	}

	trimmed := strings.TrimSpace(fragments)
	if trimmed == "" {
		return base, "", nil
	}

	var overlay map[string]any
	if err := json.Unmarshal([]byte(trimmed), &overlay); err == nil {
		for k, v := range overlay {
			base[k] = v
		}
		return base, "", nil
	}

	base["raw_partial_json"] = trimmed
	return base, trimmed, nil
}

func endTurnFromStopReason(stopReason string) *bool {
	t, f := true, false
	switch stopReason {
	case "end_turn":
		return &t
	case "tool_use":
		return &f
	default:
		return nil
	}
}

func (m *streamMachine) reset() {
	*m = streamMachine{
		freeformToolNames:    m.freeformToolNames,
		textBlocks:           make(map[int]*strings.Builder),
		reasoningPartStarted: make(map[int]bool),
		reasoningBlocks:      make(map[int]*strings.Builder),
		toolBlocks:           make(map[int]*toolBlockState),
	}
}
