package multiagent

import (
	"context"
	"os"
	"time"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/hooks"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/wait"
	"github.com/agentrtkit/codexrt/runtime/worktree"
)

// SpawnAgentInput is the spawn_agent request.
type SpawnAgentInput struct {
	UserInput
	AgentType     string
	ModelProvider string
	Model         string
	Worktree      bool
	Background    bool
	SessionCwd    string
}

// SpawnAgentResult is the spawn_agent response.
type SpawnAgentResult struct {
	AgentID ids.ThreadID `json:"agent_id"`
}

// SpawnAgent creates a sub-agent thread seeded with in.Message/in.Items.
// callerThreadID is the spawning thread's own id (the lead thread for any
// worktree lease the child requests).
func (c *Collab) SpawnAgent(ctx context.Context, callerThreadID ids.ThreadID, caller protocol.SessionSource, in SpawnAgentInput) (SpawnAgentResult, error) {
	ctx = wrapCtx(ctx)

	childSource := protocol.SessionSource{
		Kind:           protocol.SessionSourceSubAgent,
		ParentThreadID: callerThreadID,
		Depth:          caller.NextSpawnDepth(),
		AgentRole:      in.AgentType,
	}
	if err := c.checkDepth(caller); err != nil {
		return SpawnAgentResult{}, err
	}
	if in.AgentType != "" {
		if _, err := config.LoadRoleOverride(c.Layout, in.AgentType); err != nil {
			return SpawnAgentResult{}, err
		}
	}
	if err := config.ValidateModelProvider(in.ModelProvider); err != nil {
		return SpawnAgentResult{}, err
	}

	var lease *worktree.Lease
	if in.Worktree {
		l, err := c.Worktrees.Acquire(ctx, callerThreadID, "", in.SessionCwd)
		if err != nil {
			return SpawnAgentResult{}, err
		}
		lease = &l
	}

	nt, err := c.Threads.SpawnAgent(childSource)
	if err != nil {
		if lease != nil {
			_ = c.Worktrees.Release(ctx, in.SessionCwd, *lease)
		}
		return SpawnAgentResult{}, collabSpawnError(err)
	}
	if lease != nil {
		lease.OwnerThreadID = nt.ThreadID
		c.trackLease(nt.ThreadID, *lease, in.SessionCwd)
	}

	spec, err := in.UserInput.toSpec()
	if err != nil {
		_ = c.Threads.ShutdownAgent(ctx, nt.ThreadID)
		c.releaseTrackedLease(ctx, nt.ThreadID)
		return SpawnAgentResult{}, err
	}
	if _, err := c.Threads.SendInput(ctx, nt.ThreadID, spec); err != nil {
		_ = c.Threads.ShutdownAgent(ctx, nt.ThreadID)
		c.releaseTrackedLease(ctx, nt.ThreadID)
		return SpawnAgentResult{}, collabSpawnError(err)
	}

	c.fireSubagentStart(ctx, nt.ThreadID)

	return SpawnAgentResult{AgentID: nt.ThreadID}, nil
}

func (c *Collab) fireSubagentStart(ctx context.Context, newThreadID ids.ThreadID) {
	if c.HookDispatcher == nil || len(c.SubagentStart) == 0 {
		return
	}
	payload := hooks.Payload{
		Event:     hooks.EventSubagentStart,
		SessionID: newThreadID.String(),
	}
	_, _ = c.HookDispatcher.RunChain(ctx, hooks.EventSubagentStart, c.SubagentStart, payload, nil, nil)
}

// SendInputInput is the send_input request.
type SendInputInput struct {
	UserInput
	ID        ids.ThreadID
	Interrupt bool
}

// SendInputResult is the send_input response.
type SendInputResult struct {
	SubmissionID string `json:"submission_id"`
}

// SendInput delivers a new user input to an existing thread.
func (c *Collab) SendInput(ctx context.Context, in SendInputInput) (SendInputResult, error) {
	ctx = wrapCtx(ctx)
	if in.Interrupt {
		if err := c.Threads.InterruptAgent(ctx, in.ID); err != nil {
			return SendInputResult{}, collabAgentError(in.ID, err)
		}
	}
	spec, err := in.UserInput.toSpec()
	if err != nil {
		return SendInputResult{}, err
	}
	submissionID, err := c.Threads.SendInput(ctx, in.ID, spec)
	if err != nil {
		return SendInputResult{}, collabAgentError(in.ID, err)
	}
	return SendInputResult{SubmissionID: submissionID}, nil
}

// ResumeAgentResult is the resume_agent response.
type ResumeAgentResult struct {
	Status protocol.AgentStatus `json:"status"`
}

// ResumeAgent restarts a thread's driver loop from its persisted rollout
// if it is not already live.
func (c *Collab) ResumeAgent(ctx context.Context, caller protocol.SessionSource, id ids.ThreadID) (ResumeAgentResult, error) {
	ctx = wrapCtx(ctx)
	if err := c.checkDepth(caller); err != nil {
		return ResumeAgentResult{}, err
	}
	if th, ok := c.Threads.Lookup(id); ok {
		return ResumeAgentResult{Status: th.Status()}, nil
	}

	rolloutPath := c.Layout.RolloutPath(id.String())
	if !pathExists(rolloutPath) {
		return ResumeAgentResult{}, codexerr.RespondToModel("agent with id %s not found", id)
	}

	nt, err := c.Threads.ResumeThread(id)
	if err != nil {
		return ResumeAgentResult{}, collabAgentError(id, err)
	}
	return ResumeAgentResult{Status: nt.Thread.Status()}, nil
}

// WaitInput is the wait request.
type WaitInput struct {
	IDs       []ids.ThreadID
	TimeoutMs int
}

// WaitResult is the wait response.
type WaitResult struct {
	Status   map[ids.ThreadID]protocol.AgentStatus `json:"status"`
	TimedOut bool                                  `json:"timed_out"`
}

// Wait blocks until any of in.IDs reaches a final status or the deadline
// elapses.
func (c *Collab) Wait(ctx context.Context, in WaitInput) (WaitResult, error) {
	ctx = wrapCtx(ctx)
	if in.TimeoutMs <= 0 && in.TimeoutMs != 0 {
		return WaitResult{}, codexerr.RespondToModel("timeout_ms must be positive")
	}
	deadline := wait.DefaultDeadline
	if in.TimeoutMs > 0 {
		deadline = wait.ClampDeadline(time.Duration(in.TimeoutMs) * time.Millisecond)
	}
	res := wait.Wait(ctx, c.Threads, in.IDs, wait.ModeAny, deadline)
	return WaitResult{Status: res.Status, TimedOut: res.TimedOut}, nil
}

// CloseAgentResult is the close_agent response.
type CloseAgentResult struct {
	Status protocol.AgentStatus `json:"status"`
}

// CloseAgent shuts down a thread and releases its worktree lease, if any.
// An explicit lease takes precedence; otherwise the lease tracked since
// spawn_agent/spawn_team time is released automatically, so callers that
// only have the thread id (the real tool-dispatch path) still clean up.
func (c *Collab) CloseAgent(ctx context.Context, id ids.ThreadID, lease *worktree.Lease, originCwd string) (CloseAgentResult, error) {
	ctx = wrapCtx(ctx)
	pre := c.Threads.GetStatus(id)
	if pre != protocol.AgentStatusShutdown {
		if err := c.Threads.ShutdownAgent(ctx, id); err != nil {
			return CloseAgentResult{}, collabAgentError(id, err)
		}
	}
	if lease != nil {
		_ = c.Worktrees.Release(ctx, originCwd, *lease)
	} else {
		c.releaseTrackedLease(ctx, id)
	}
	return CloseAgentResult{Status: pre}, nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
