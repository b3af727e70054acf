// Package protocol defines the provider-agnostic wire types shared by the
// thread manager, stream adapter, and tool dispatch pipeline: agent status,
// session source, response events/items, and tool invocation/output shapes.
package protocol

import "github.com/agentrtkit/codexrt/runtime/ids"

// AgentStatus is the lifecycle state of an agent thread.
type AgentStatus string

const (
	// AgentStatusPendingInit is set immediately after a thread is created,
	// before its driver loop starts processing submissions.
	AgentStatusPendingInit AgentStatus = "pending_init"

	// AgentStatusRunning indicates the thread is actively driving a turn.
	AgentStatusRunning AgentStatus = "running"

	// AgentStatusIdle indicates the thread has no turn in flight.
	AgentStatusIdle AgentStatus = "idle"

	// AgentStatusShutdown is a final state: the thread has been torn down.
	AgentStatusShutdown AgentStatus = "shutdown"

	// AgentStatusNotFound is reported for an id the registry has never seen,
	// or no longer holds. It is final by construction.
	AgentStatusNotFound AgentStatus = "not_found"
)

// IsFinal reports whether status is one the thread cannot leave.
func (s AgentStatus) IsFinal() bool {
	return s == AgentStatusShutdown || s == AgentStatusNotFound
}

// SessionSourceKind discriminates the origin of a thread.
type SessionSourceKind string

const (
	SessionSourceCLI      SessionSourceKind = "cli"
	SessionSourceWeb      SessionSourceKind = "web"
	SessionSourceMCP      SessionSourceKind = "mcp"
	SessionSourceSubAgent SessionSourceKind = "sub_agent"
)

// SessionSource records where a thread came from. For SessionSourceSubAgent,
// ParentThreadID/Depth are populated; Depth is non-negative and bounded by
// the runtime's configured max spawn depth.
type SessionSource struct {
	Kind           SessionSourceKind
	ParentThreadID ids.ThreadID
	Depth          int
	AgentNickname  string
	AgentRole      string
}

// NextSpawnDepth returns the depth a child spawned from this session would
// have: the parent's depth + 1 for a sub-agent source, 0 otherwise.
func (s SessionSource) NextSpawnDepth() int {
	if s.Kind == SessionSourceSubAgent {
		return s.Depth + 1
	}
	return 0
}
