// Package toolregistry implements the C2 tool registry and hook-wrapped
// dispatch pipeline: handler lookup, pre/post hook dispatch, the mutating
// tool call gate, and dispatch telemetry.
package toolregistry

import (
	"context"

	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// PayloadKind discriminates the shape a tool call's payload arrived in,
// distinct from the provider-level FunctionCall/CustomToolCall split: it
// is what a Handler checks against to decide whether it can serve the
// call at all.
type PayloadKind string

const (
	PayloadFunction   PayloadKind = "function"
	PayloadCustom     PayloadKind = "custom"
	PayloadLocalShell PayloadKind = "local_shell"
	PayloadMCP        PayloadKind = "mcp"
)

// HandlerKind discriminates the two top-level handler families spec §4.2
// enumerates.
type HandlerKind string

const (
	HandlerFunction HandlerKind = "function"
	HandlerMCP      HandlerKind = "mcp"
)

// Invocation is a dispatch-ready tool call: the normalized
// protocol.ToolInvocation plus the payload kind it was decoded from and
// any already-resolved structured input.
type Invocation struct {
	protocol.ToolInvocation
	PayloadKind PayloadKind
	// StructuredInput is the decoded JSON object for Function/Mcp/
	// LocalShell payloads, or nil for a raw-string Custom payload.
	StructuredInput map[string]any
}

// Handler dispatches tool calls for one or more tool names. Concrete
// variants are enumerated at registry build time; dispatch never uses
// runtime type introspection, per spec §9's "Dynamic dispatch" note.
type Handler interface {
	Kind() HandlerKind
	MatchesKind(kind PayloadKind) bool
	IsMutating(inv Invocation) bool
	Handle(ctx context.Context, inv Invocation) (protocol.ToolOutput, error)
}
