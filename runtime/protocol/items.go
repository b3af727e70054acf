package protocol

import "encoding/json"

// ResponseItemKind discriminates the variant carried by a ResponseItem.
type ResponseItemKind string

const (
	ResponseItemMessage              ResponseItemKind = "message"
	ResponseItemReasoning            ResponseItemKind = "reasoning"
	ResponseItemFunctionCall         ResponseItemKind = "function_call"
	ResponseItemCustomToolCall       ResponseItemKind = "custom_tool_call"
	ResponseItemFunctionCallOutput   ResponseItemKind = "function_call_output"
	ResponseItemCustomToolCallOutput ResponseItemKind = "custom_tool_call_output"
	ResponseItemLocalShellCall       ResponseItemKind = "local_shell_call"

	// Input-only variants: a spawn_agent/send_input caller's items? list
	// may carry these in addition to Message, each rendered with its own
	// marker in an input preview rather than participating in a turn's
	// output stream.
	ResponseItemImage      ResponseItemKind = "image"
	ResponseItemLocalImage ResponseItemKind = "local_image"
	ResponseItemSkillRef   ResponseItemKind = "skill_ref"
	ResponseItemMentionRef ResponseItemKind = "mention_ref"
)

// ContentBlockKind discriminates a Message content block.
type ContentBlockKind string

const (
	ContentOutputText ContentBlockKind = "output_text"
	ContentInputText  ContentBlockKind = "input_text"
)

// ContentBlock is a single block of a Message's Content.
type ContentBlock struct {
	Kind ContentBlockKind
	Text string
}

// SummaryPart is one entry of a Reasoning item's Summary.
type SummaryPart struct {
	Text string
}

// ReasoningContentKind discriminates a Reasoning item's Content entries.
type ReasoningContentKind string

const (
	ReasoningContentText ReasoningContentKind = "reasoning_text"
)

// ReasoningContent is one entry of a Reasoning item's Content.
type ReasoningContent struct {
	Kind ReasoningContentKind
	Text string
}

// LocalShellParams describes a local shell tool invocation payload.
type LocalShellParams struct {
	Command          []string          `json:"command"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	TimeoutMs        int               `json:"timeout_ms,omitempty"`
}

// ResponseItem is a single item in a turn's output (or input) sequence. It
// is a tagged union: Kind selects which of the remaining fields are
// meaningful, matching spec.md's ResponseItem variant list exactly.
type ResponseItem struct {
	Kind ResponseItemKind

	// Message fields.
	ID      string
	Role    string
	Content []ContentBlock
	EndTurn *bool
	Phase   string

	// Reasoning fields.
	Summary   []SummaryPart
	RContent  []ReasoningContent
	Encrypted []byte

	// FunctionCall / CustomToolCall fields.
	Name      string
	CallID    string
	Arguments string // FunctionCall: JSON-encoded arguments
	Input     string // CustomToolCall: raw string input
	Status    string // CustomToolCall: optional status

	// FunctionCallOutput / CustomToolCallOutput fields.
	Output string

	// LocalShellCall fields.
	Shell *LocalShellParams

	// LocalImage / SkillRef / MentionRef fields. SkillRef/MentionRef also
	// reuse Name above for the referenced skill/mention name.
	Path string
}

// NewAssistantMessageAdded builds the OutputItemAdded(Message{role:
// "assistant"}) item emitted once per turn before the first text delta.
func NewAssistantMessageAdded() ResponseItem {
	return ResponseItem{Kind: ResponseItemMessage, Role: "assistant"}
}

// NewReasoningAdded builds the OutputItemAdded(Reasoning{}) item.
func NewReasoningAdded() ResponseItem {
	return ResponseItem{Kind: ResponseItemReasoning}
}

// MarshalArguments canonically JSON-encodes v into a FunctionCall's
// Arguments field (no pretty-printing, per spec.md §6 "JSON is canonical").
func MarshalArguments(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
