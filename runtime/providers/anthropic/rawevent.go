package anthropic

// rawEventKind discriminates the neutral event shape the state machine
// consumes. Keeping this separate from the SDK's own union lets the
// machine be driven by hand-built fixtures in tests without touching the
// network or the SDK's wire types.
type rawEventKind int

const (
	rawMessageStart rawEventKind = iota
	rawContentBlockStart
	rawContentBlockDelta
	rawContentBlockStop
	rawMessageDelta
	rawMessageStop
)

// rawBlockKind discriminates a ContentBlockStart's block payload.
type rawBlockKind int

const (
	rawBlockText rawBlockKind = iota
	rawBlockToolUse
	rawBlockThinking
	rawBlockOther
)

// rawDeltaKind discriminates a ContentBlockDelta's delta payload.
type rawDeltaKind int

const (
	rawDeltaText rawDeltaKind = iota
	rawDeltaInputJSON
	rawDeltaThinking
	rawDeltaSignature
	rawDeltaOther
)

// rawUsage carries the token accounting reported on MessageDelta.
type rawUsage struct {
	InputTokens          int
	CacheReadInputTokens int
	OutputTokens         int
}

// rawEvent is the neutral shape the state machine translates. Only the
// fields relevant to Kind (and, for ContentBlockStart/Delta, the nested
// Block/Delta kind) are populated.
type rawEvent struct {
	Kind rawEventKind

	// MessageStart.
	MessageID string

	// ContentBlockStart / ContentBlockDelta / ContentBlockStop.
	Index int

	// ContentBlockStart.
	BlockKind rawBlockKind
	ToolID    string
	ToolName  string
	ToolInput string // raw JSON object literal, if provided at block start
	TextSeed  string

	// ContentBlockDelta.
	DeltaKind   rawDeltaKind
	Text        string // rawDeltaText
	PartialJSON string // rawDeltaInputJSON
	Thinking    string // rawDeltaThinking
	Signature   string // rawDeltaSignature

	// MessageDelta.
	StopReason string
	Usage      rawUsage
}
