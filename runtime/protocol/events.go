package protocol

// ResponseEventKind discriminates the variant carried by a ResponseEvent.
type ResponseEventKind string

const (
	EventCreated                   ResponseEventKind = "created"
	EventOutputItemAdded           ResponseEventKind = "output_item_added"
	EventOutputTextDelta           ResponseEventKind = "output_text_delta"
	EventReasoningSummaryPartAdded ResponseEventKind = "reasoning_summary_part_added"
	EventReasoningSummaryDelta     ResponseEventKind = "reasoning_summary_delta"
	EventOutputItemDone            ResponseEventKind = "output_item_done"
	EventCompleted                 ResponseEventKind = "completed"
)

// TokenUsage reports token accounting for a completed turn.
type TokenUsage struct {
	InputTokens       int
	CachedInputTokens int
	OutputTokens      int
	ReasoningTokens   int
	TotalTokens       int
}

// ResponseEvent is a single item of the stream a provider adapter emits for
// one turn. It is a tagged union over ResponseEventKind; only the fields
// relevant to Kind are populated, matching spec.md's ResponseEvent variant
// list exactly.
type ResponseEvent struct {
	Kind ResponseEventKind

	// OutputItemAdded / OutputItemDone.
	Item *ResponseItem

	// OutputTextDelta.
	Text string

	// ReasoningSummaryPartAdded / ReasoningSummaryDelta.
	SummaryIndex int
	Delta        string

	// Completed.
	ResponseID string
	TokenUsage *TokenUsage
	CanAppend  bool
}

// Created builds the stream-start event.
func Created() ResponseEvent { return ResponseEvent{Kind: EventCreated} }

// OutputItemAdded builds an OutputItemAdded event wrapping item.
func OutputItemAdded(item ResponseItem) ResponseEvent {
	return ResponseEvent{Kind: EventOutputItemAdded, Item: &item}
}

// OutputTextDelta builds an OutputTextDelta event carrying text.
func OutputTextDelta(text string) ResponseEvent {
	return ResponseEvent{Kind: EventOutputTextDelta, Text: text}
}

// ReasoningSummaryPartAdded builds the event marking the start of a new
// reasoning summary part at summaryIndex.
func ReasoningSummaryPartAdded(summaryIndex int) ResponseEvent {
	return ResponseEvent{Kind: EventReasoningSummaryPartAdded, SummaryIndex: summaryIndex}
}

// ReasoningSummaryDelta builds an incremental reasoning summary text event.
func ReasoningSummaryDelta(summaryIndex int, delta string) ResponseEvent {
	return ResponseEvent{Kind: EventReasoningSummaryDelta, SummaryIndex: summaryIndex, Delta: delta}
}

// OutputItemDone builds the terminal event for a single output item.
func OutputItemDone(item ResponseItem) ResponseEvent {
	return ResponseEvent{Kind: EventOutputItemDone, Item: &item}
}

// Completed builds the terminal event for the whole turn. canAppend
// indicates whether a subsequent turn may reuse responseID for context
// caching (spec.md §3, "can_append").
func Completed(responseID string, usage *TokenUsage, canAppend bool) ResponseEvent {
	return ResponseEvent{Kind: EventCompleted, ResponseID: responseID, TokenUsage: usage, CanAppend: canAppend}
}

// ToolInvocation is the normalized shape a provider's function/custom tool
// call is translated into before entering the tool dispatch pipeline.
type ToolInvocation struct {
	CallID    string
	Name      string
	Arguments string
	Mutating  bool
}

// ToolOutputStatus reports how a tool invocation concluded.
type ToolOutputStatus string

const (
	ToolOutputSuccess ToolOutputStatus = "success"
	ToolOutputError   ToolOutputStatus = "error"
)

// ToolOutput is the normalized result of dispatching a ToolInvocation,
// translated back into a FunctionCallOutput/CustomToolCallOutput item by
// the provider adapter.
type ToolOutput struct {
	CallID string
	Status ToolOutputStatus
	Output string
}
