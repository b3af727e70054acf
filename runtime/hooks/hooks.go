// Package hooks implements the C3 hook engine: user-defined command
// hooks dispatched per lifecycle event, with matchers, decision parsing,
// and timeout handling.
package hooks

import (
	"regexp"
	"strconv"
)

// EventKind identifies a hook lifecycle event.
type EventKind string

const (
	EventSessionStart       EventKind = "session_start"
	EventSessionEnd         EventKind = "session_end"
	EventUserPromptSubmit   EventKind = "user_prompt_submit"
	EventPreToolUse         EventKind = "pre_tool_use"
	EventPermissionRequest  EventKind = "permission_request"
	EventNotification       EventKind = "notification"
	EventPostToolUse        EventKind = "post_tool_use"
	EventPostToolUseFailure EventKind = "post_tool_use_failure"
	EventStop               EventKind = "stop"
	EventTeammateIdle       EventKind = "teammate_idle"
	EventTaskCompleted      EventKind = "task_completed"
	EventConfigChange       EventKind = "config_change"
	EventSubagentStart      EventKind = "subagent_start"
	EventSubagentStop       EventKind = "subagent_stop"
	EventPreCompact         EventKind = "pre_compact"
	EventWorktreeCreate     EventKind = "worktree_create"
	EventWorktreeRemove     EventKind = "worktree_remove"
)

// honorsBlockDecision is the set of event kinds whose hook chain can
// short-circuit dispatch via a Block decision, per spec §4.3.
var honorsBlockDecision = map[EventKind]bool{
	EventUserPromptSubmit: true,
	EventPreToolUse:       true,
	EventStop:             true,
	EventSubagentStop:     true,
	EventPreCompact:       true,
}

// HonorsBlockDecision reports whether kind's hook chain can block the
// operation it guards.
func HonorsBlockDecision(kind EventKind) bool { return honorsBlockDecision[kind] }

// PermissionMode mirrors the runtime's approval policy as seen by a hook.
type PermissionMode string

const (
	PermissionUntrusted PermissionMode = "untrusted"
	PermissionOnFailure PermissionMode = "on-failure"
	PermissionOnRequest PermissionMode = "on-request"
	PermissionReject    PermissionMode = "reject"
	PermissionNever     PermissionMode = "never"
)

// HandlerKind discriminates how a hook is executed.
type HandlerKind string

const (
	HandlerCommand HandlerKind = "command"
	HandlerPrompt  HandlerKind = "prompt"
	HandlerAgent   HandlerKind = "agent"
)

// Matcher filters which events a hook runs for. A hook runs only when
// every supplied matcher field matches; a nil field is not supplied and
// is vacuously satisfied.
type Matcher struct {
	ToolName      *string
	ToolNameRegex *regexp.Regexp
	PromptRegex   *regexp.Regexp
}

// Matches reports whether m matches the given tool name and/or prompt.
// Matching fields absent from the event (e.g. no tool on a user-prompt
// event) make that matcher field fail to match.
func (m Matcher) Matches(toolName *string, prompt *string) bool {
	if m.ToolName != nil {
		if toolName == nil || *toolName != *m.ToolName {
			return false
		}
	}
	if m.ToolNameRegex != nil {
		if toolName == nil || !m.ToolNameRegex.MatchString(*toolName) {
			return false
		}
	}
	if m.PromptRegex != nil {
		if prompt == nil || !m.PromptRegex.MatchString(*prompt) {
			return false
		}
	}
	return true
}

// CommandHookConfig describes one configured hook.
type CommandHookConfig struct {
	Name    string
	Kind    HandlerKind
	Matcher Matcher

	// Command is the argv for HandlerCommand; empty means "skip silently".
	Command []string
	// Prompt is the prompt template for HandlerPrompt.
	Prompt string
	// Agent names the agent role to invoke for HandlerAgent.
	Agent string

	Async         bool
	TimeoutMillis int
	AbortOnError  bool
}

// Hooks holds a runtime's configured hooks, grouped by event. post_tool_use
// is understood to already be merged with the legacy after_tool_use name,
// and after_agent/stop are understood to already be merged, by whatever
// loads the Hooks value (config loading is out of this component's scope).
type Hooks struct {
	SessionStart     []CommandHookConfig
	SessionEnd       []CommandHookConfig
	UserPromptSubmit []CommandHookConfig
	PreToolUse       []CommandHookConfig
	PostToolUse      []CommandHookConfig
	Stop             []CommandHookConfig
	SubagentStop     []CommandHookConfig
	PreCompact       []CommandHookConfig
}

// ForEvent returns the configured hooks for kind, or nil if kind has no
// dedicated slot in Hooks (event kinds outside the core lifecycle set,
// e.g. skill-scoped-only events, are carried by the caller separately).
func (h Hooks) ForEvent(kind EventKind) []CommandHookConfig {
	switch kind {
	case EventSessionStart:
		return h.SessionStart
	case EventSessionEnd:
		return h.SessionEnd
	case EventUserPromptSubmit:
		return h.UserPromptSubmit
	case EventPreToolUse:
		return h.PreToolUse
	case EventPostToolUse:
		return h.PostToolUse
	case EventStop:
		return h.Stop
	case EventSubagentStop:
		return h.SubagentStop
	case EventPreCompact:
		return h.PreCompact
	default:
		return nil
	}
}

// WithNotifyArgv returns a copy of h with a legacy notify_argv command
// appended to both after_agent/stop and subagent_stop, matching the
// source's dual-registration behavior.
func (h Hooks) WithNotifyArgv(argv []string) Hooks {
	if len(argv) == 0 {
		return h
	}
	cfg := CommandHookConfig{Name: "notify_argv", Kind: HandlerCommand, Command: argv}
	out := h
	out.Stop = append(append([]CommandHookConfig{}, h.Stop...), cfg)
	out.SubagentStop = append(append([]CommandHookConfig{}, h.SubagentStop...), cfg)
	return out
}

// defaultName returns name, or "<event>-<index+1>" if name is empty, per
// spec §4.3's hook naming default.
func defaultName(name string, kind EventKind, index int) string {
	if name != "" {
		return name
	}
	return string(kind) + "-" + strconv.Itoa(index+1)
}
