// Package multiagent implements the C5 tool handlers that let a thread
// spawn, message, and coordinate other threads and teams: spawn_agent,
// send_input, resume_agent, wait, close_agent, spawn_team, wait_team,
// close_team, the team_task_* family, team messaging, and team_cleanup.
package multiagent

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/hooks"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/team"
	"github.com/agentrtkit/codexrt/runtime/thread"
	"github.com/agentrtkit/codexrt/runtime/wait"
	"github.com/agentrtkit/codexrt/runtime/worktree"
)

// Collab wires together the components a multi-agent tool call touches:
// the thread manager, the team store, the worktree lease manager, and the
// hook dispatcher used to fire SubagentStart/TaskCompleted.
type Collab struct {
	Threads   *thread.Manager
	Teams     *team.Store
	Worktrees *worktree.Manager
	Layout    config.Layout
	MaxDepth  int

	HookDispatcher *hooks.Dispatcher
	SubagentStart  []hooks.CommandHookConfig
	TaskCompleted  []hooks.CommandHookConfig

	// Now returns the current time in epoch milliseconds; overridable in
	// tests for deterministic timestamps.
	Now func() int64

	leasesMu sync.Mutex
	leases   map[ids.ThreadID]leaseRecord
}

// leaseRecord is the worktree lease acquired for a thread at spawn time,
// kept so close_agent/close_team/team_cleanup can release it without a
// caller re-threading the lease and its cwd through by hand.
type leaseRecord struct {
	lease worktree.Lease
	cwd   string
}

// trackLease records the lease acquired for id, overwriting any prior
// entry (a thread is spawned once, so this only ever inserts).
func (c *Collab) trackLease(id ids.ThreadID, lease worktree.Lease, cwd string) {
	c.leasesMu.Lock()
	defer c.leasesMu.Unlock()
	if c.leases == nil {
		c.leases = make(map[ids.ThreadID]leaseRecord)
	}
	c.leases[id] = leaseRecord{lease: lease, cwd: cwd}
}

// takeLease removes and returns id's tracked lease, if any.
func (c *Collab) takeLease(id ids.ThreadID) (worktree.Lease, string, bool) {
	c.leasesMu.Lock()
	defer c.leasesMu.Unlock()
	rec, ok := c.leases[id]
	if !ok {
		return worktree.Lease{}, "", false
	}
	delete(c.leases, id)
	return rec.lease, rec.cwd, true
}

// releaseTrackedLease releases id's tracked lease, if one was recorded at
// spawn time. A no-op for threads spawned without worktree: true.
func (c *Collab) releaseTrackedLease(ctx context.Context, id ids.ThreadID) {
	if lease, cwd, ok := c.takeLease(id); ok {
		_ = c.Worktrees.Release(ctx, cwd, lease)
	}
}

// UserInput is the raw {message?|items?} union every handler in this
// package accepts, parsed once at the boundary per spec's tagged-variant
// design note.
type UserInput struct {
	Message *string
	Items   []protocol.ResponseItem
}

func (u UserInput) toSpec() (thread.UserInputSpec, error) {
	hasMessage := u.Message != nil
	hasItems := len(u.Items) > 0
	if hasMessage == hasItems {
		return thread.UserInputSpec{}, codexerr.RespondToModel("exactly one of message or items is required")
	}
	if hasMessage {
		return thread.UserInputSpec{Text: u.Message}, nil
	}
	return thread.UserInputSpec{Items: u.Items}, nil
}

func requireNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return codexerr.RespondToModel("%s must be non-empty", field)
	}
	return nil
}

// collabSpawnError maps a spawn failure per spec §4.5's shared mapping.
func collabSpawnError(err error) error {
	if codexerr.KindOf(err) == codexerr.KindUnsupportedOperation {
		return codexerr.RespondToModel("collab manager unavailable")
	}
	if e, ok := err.(*codexerr.Error); ok {
		return e
	}
	return codexerr.RespondToModel("collab spawn failed: %v", err)
}

// collabAgentError maps a by-id operation failure per spec §4.5's shared
// mapping.
func collabAgentError(id ids.ThreadID, err error) error {
	switch codexerr.KindOf(err) {
	case codexerr.KindThreadNotFound:
		return codexerr.RespondToModel("agent with id %s not found", id)
	case codexerr.KindInternalAgentDied:
		return codexerr.RespondToModel("agent with id %s is closed", id)
	case codexerr.KindUnsupportedOperation:
		return codexerr.RespondToModel("collab manager unavailable")
	default:
		return codexerr.RespondToModel("collab tool failed: %v", err)
	}
}

// inputPreview concatenates a UserInputSpec's content into a short text
// preview, rendering non-text items with the markers spec §4.5 names.
func inputPreview(spec thread.UserInputSpec) string {
	if spec.Text != nil {
		return *spec.Text
	}
	var parts []string
	for i, item := range spec.Items {
		switch item.Kind {
		case protocol.ResponseItemMessage:
			for _, block := range item.Content {
				if block.Text != "" {
					parts = append(parts, block.Text)
				}
			}
		default:
			parts = append(parts, markerFor(item, i))
		}
	}
	return strings.Join(parts, " ")
}

// markerFor renders the non-text item kinds a spawn_agent/send_input
// input preview can contain, matching the marker shapes the original
// multi-agent tool surface used for each.
func markerFor(item protocol.ResponseItem, index int) string {
	switch item.Kind {
	case protocol.ResponseItemImage:
		return "[image]"
	case protocol.ResponseItemLocalImage:
		return "[local_image:" + item.Path + "]"
	case protocol.ResponseItemSkillRef:
		return "[skill:$" + item.Name + "](" + item.Path + ")"
	case protocol.ResponseItemMentionRef:
		return "[mention:$" + item.Name + "](" + item.Path + ")"
	case protocol.ResponseItemLocalShellCall:
		return "[local_shell]"
	default:
		if item.Shell != nil {
			return "[local_shell]"
		}
		return "[mention:$" + strconv.Itoa(index) + "]"
	}
}

// checkDepth rejects a spawn from source whose child depth would exceed
// c.MaxDepth.
func (c *Collab) checkDepth(source protocol.SessionSource) error {
	if source.NextSpawnDepth() > c.MaxDepth {
		return codexerr.InvalidRequest("Agent depth limit reached. Solve the task yourself.")
	}
	return nil
}

func (c *Collab) now() int64 {
	if c.Now != nil {
		return c.Now()
	}
	return nowMillis()
}

// Compile-time check that *thread.Manager implements wait.StatusSource
// directly, so Collab passes its Threads to wait.Wait with no adapter.
var _ wait.StatusSource = (*thread.Manager)(nil)

func wrapCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
