package multiagent

import (
	"context"

	"github.com/agentrtkit/codexrt/runtime/hooks"
	"github.com/agentrtkit/codexrt/runtime/team"
)

// TaskListResult is the team_task_list response.
type TaskListResult struct {
	TeamID string      `json:"team_id"`
	Tasks  []team.Task `json:"tasks"`
}

// TeamTaskList enumerates every task file for a team.
func (c *Collab) TeamTaskList(ctx context.Context, teamID string) (TaskListResult, error) {
	if _, err := c.Teams.LoadTeam(teamID); err != nil {
		return TaskListResult{}, err
	}
	tasks, err := c.Teams.ListTasks(teamID)
	if err != nil {
		return TaskListResult{}, err
	}
	return TaskListResult{TeamID: teamID, Tasks: tasks}, nil
}

// TaskResult wraps a single task document.
type TaskResult struct {
	Task team.Task `json:"task"`
}

// TeamTaskClaim atomically claims taskID for its assignee, failing if its
// dependencies are unresolved or it is already claimed/completed.
func (c *Collab) TeamTaskClaim(ctx context.Context, teamID, taskID string) (TaskResult, error) {
	t, err := c.Teams.ClaimTask(teamID, taskID, c.now())
	if err != nil {
		return TaskResult{}, err
	}
	return TaskResult{Task: t}, nil
}

// ClaimNextResult is the team_task_claim_next response.
type ClaimNextResult struct {
	Claimed bool       `json:"claimed"`
	Task    *team.Task `json:"task,omitempty"`
}

// TeamTaskClaimNext claims the first eligible pending task assigned to
// memberName, if any.
func (c *Collab) TeamTaskClaimNext(ctx context.Context, teamID, memberName string) (ClaimNextResult, error) {
	t, found, err := c.Teams.ClaimNextTask(teamID, memberName, c.now())
	if err != nil {
		return ClaimNextResult{}, err
	}
	if !found {
		return ClaimNextResult{Claimed: false}, nil
	}
	return ClaimNextResult{Claimed: true, Task: &t}, nil
}

// TeamTaskComplete transitions taskID to completed, firing the
// TaskCompleted hook exactly once even under concurrent callers (the
// store's file lock serializes the transition; only the caller that
// performs it fires the hook).
func (c *Collab) TeamTaskComplete(ctx context.Context, teamID, taskID string) (TaskResult, error) {
	t, transitioned, err := c.Teams.CompleteTask(teamID, taskID, c.now())
	if err != nil {
		return TaskResult{}, err
	}
	if transitioned {
		c.fireTaskCompleted(ctx, teamID, t)
	}
	return TaskResult{Task: t}, nil
}

func (c *Collab) fireTaskCompleted(ctx context.Context, teamID string, t team.Task) {
	if c.HookDispatcher == nil || len(c.TaskCompleted) == 0 {
		return
	}
	payload := hooks.Payload{
		Event:     hooks.EventTaskCompleted,
		SessionID: t.Assignee.ThreadID.String(),
		Prompt:    t.Title,
	}
	_, _ = c.HookDispatcher.RunChain(ctx, hooks.EventTaskCompleted, c.TaskCompleted, payload, nil, nil)
}
