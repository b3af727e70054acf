package multiagent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/team"
	"github.com/agentrtkit/codexrt/runtime/wait"
)

// TeamMemberSpec is one requested member of spawn_team.
type TeamMemberSpec struct {
	Name          string
	Task          string
	AgentType     string
	ModelProvider string
	Model         string
	Worktree      bool
	Background    bool
}

// SpawnTeamInput is the spawn_team request.
type SpawnTeamInput struct {
	TeamID  string
	Members []TeamMemberSpec
	Cwd     string
}

// SpawnTeamMemberResult reports one member's outcome.
type SpawnTeamMemberResult struct {
	Name    string               `json:"name"`
	AgentID ids.ThreadID         `json:"agent_id"`
	Status  protocol.AgentStatus `json:"status"`
}

// SpawnTeamResult is the spawn_team response.
type SpawnTeamResult struct {
	TeamID  string                  `json:"team_id"`
	Members []SpawnTeamMemberResult `json:"members"`
}

// SpawnTeam creates one sub-agent thread per requested member, persists
// the team config and one pending task per member, and rolls everything
// back if any member fails to spawn.
func (c *Collab) SpawnTeam(ctx context.Context, callerThreadID ids.ThreadID, caller protocol.SessionSource, in SpawnTeamInput) (SpawnTeamResult, error) {
	ctx = wrapCtx(ctx)

	if len(in.Members) == 0 {
		return SpawnTeamResult{}, codexerr.RespondToModel("members must be non-empty")
	}
	seen := make(map[string]struct{}, len(in.Members))
	for _, m := range in.Members {
		if err := requireNonEmpty("name", m.Name); err != nil {
			return SpawnTeamResult{}, err
		}
		if err := requireNonEmpty("task", m.Task); err != nil {
			return SpawnTeamResult{}, err
		}
		if _, dup := seen[m.Name]; dup {
			return SpawnTeamResult{}, codexerr.RespondToModel("member name `%s` is not unique", m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	if err := c.checkDepth(caller); err != nil {
		return SpawnTeamResult{}, err
	}

	teamID := in.TeamID
	if teamID == "" {
		teamID = ids.NewThreadID().String()
	}

	var spawned []SpawnTeamMemberResult
	rollback := func() {
		for _, m := range spawned {
			// CloseAgent also releases any worktree lease tracked for
			// this member since it spawned via c.SpawnAgent below.
			_, _ = c.CloseAgent(ctx, m.AgentID, nil, in.Cwd)
		}
	}

	tasks := make([]team.Task, 0, len(in.Members))
	for _, m := range in.Members {
		result, err := c.SpawnAgent(ctx, callerThreadID, caller, SpawnAgentInput{
			UserInput:     UserInput{Message: &m.Task},
			AgentType:     m.AgentType,
			ModelProvider: m.ModelProvider,
			Model:         m.Model,
			Worktree:      m.Worktree,
			Background:    m.Background,
			SessionCwd:    in.Cwd,
		})
		if err != nil {
			rollback()
			return SpawnTeamResult{}, err
		}
		spawned = append(spawned, SpawnTeamMemberResult{
			Name:    m.Name,
			AgentID: result.AgentID,
			Status:  c.Threads.GetStatus(result.AgentID),
		})
		tasks = append(tasks, team.Task{
			ID:    fmt.Sprintf("task_%s", uuid.NewString()),
			Title: m.Task,
			Assignee: team.Assignee{
				Name:     m.Name,
				ThreadID: result.AgentID,
			},
			State:     team.TaskPending,
			UpdatedAt: c.now(),
		})
	}

	cfg := team.Config{LeadThreadID: callerThreadID}
	for _, s := range spawned {
		cfg.Members = append(cfg.Members, team.Member{Name: s.Name, AgentID: s.AgentID})
	}
	if err := c.Teams.CreateTeam(teamID, cfg, tasks); err != nil {
		rollback()
		return SpawnTeamResult{}, err
	}

	return SpawnTeamResult{TeamID: teamID, Members: spawned}, nil
}

// WaitTeamInput is the wait_team request.
type WaitTeamInput struct {
	TeamID    string
	Mode      wait.Mode
	TimeoutMs int
}

// MemberStatus is one team member's status in a wait_team result.
type MemberStatus struct {
	Name    string               `json:"name"`
	AgentID ids.ThreadID         `json:"agent_id"`
	State   protocol.AgentStatus `json:"state"`
}

// WaitTeamResult is the wait_team response.
type WaitTeamResult struct {
	Completed       bool           `json:"completed"`
	Mode            wait.Mode      `json:"mode"`
	TriggeredMember string         `json:"triggered_member,omitempty"`
	MemberStatuses  []MemberStatus `json:"member_statuses"`
}

// WaitTeam waits for a team's members to reach a final status, per mode.
func (c *Collab) WaitTeam(ctx context.Context, in WaitTeamInput) (WaitTeamResult, error) {
	ctx = wrapCtx(ctx)
	cfg, err := c.Teams.LoadTeam(in.TeamID)
	if err != nil {
		return WaitTeamResult{}, err
	}
	if len(cfg.Members) == 0 {
		return WaitTeamResult{}, codexerr.RespondToModel("team `%s` has no members", in.TeamID)
	}

	mode := in.Mode
	if mode == "" {
		mode = wait.ModeAll
	}
	deadline := wait.DefaultDeadline
	if in.TimeoutMs > 0 {
		deadline = wait.ClampDeadline(time.Duration(in.TimeoutMs) * time.Millisecond)
	}

	memberIDs := make([]ids.ThreadID, len(cfg.Members))
	for i, m := range cfg.Members {
		memberIDs[i] = m.AgentID
	}
	res := wait.Wait(ctx, c.Threads, memberIDs, mode, deadline)

	statuses := make([]MemberStatus, len(cfg.Members))
	var triggered string
	allFinal := true
	for i, m := range cfg.Members {
		st := res.Status[m.AgentID]
		statuses[i] = MemberStatus{Name: m.Name, AgentID: m.AgentID, State: st}
		if !st.IsFinal() {
			allFinal = false
		} else if triggered == "" {
			triggered = m.Name
		}
	}

	completed := !res.TimedOut
	if mode == wait.ModeAll {
		completed = completed && allFinal
	}

	return WaitTeamResult{
		Completed:       completed,
		Mode:            mode,
		TriggeredMember: triggered,
		MemberStatuses:  statuses,
	}, nil
}

// CloseTeamInput is the close_team request.
type CloseTeamInput struct {
	TeamID  string
	Members []string
	Cwd     string
}

// ClosedMember reports one member's close outcome.
type ClosedMember struct {
	Name    string               `json:"name"`
	AgentID ids.ThreadID         `json:"agent_id"`
	OK      bool                 `json:"ok"`
	Status  protocol.AgentStatus `json:"status"`
	Error   string               `json:"error,omitempty"`
}

// CloseTeamResult is the close_team response.
type CloseTeamResult struct {
	TeamID string         `json:"team_id"`
	Closed []ClosedMember `json:"closed"`
}

// CloseTeam shuts down selected members (or all, if in.Members is empty),
// releasing their worktree leases, and removes the team entirely once no
// members remain.
func (c *Collab) CloseTeam(ctx context.Context, in CloseTeamInput) (CloseTeamResult, error) {
	ctx = wrapCtx(ctx)
	cfg, err := c.Teams.LoadTeam(in.TeamID)
	if err != nil {
		return CloseTeamResult{}, err
	}

	selected := in.Members
	if len(selected) == 0 {
		for _, m := range cfg.Members {
			selected = append(selected, m.Name)
		}
	} else {
		for _, n := range selected {
			if err := requireNonEmpty("member name", n); err != nil {
				return CloseTeamResult{}, err
			}
		}
	}

	var closed []ClosedMember
	remaining := make([]team.Member, 0, len(cfg.Members))
	selectedSet := make(map[string]struct{}, len(selected))
	for _, n := range selected {
		selectedSet[n] = struct{}{}
	}

	for _, m := range cfg.Members {
		if _, wanted := selectedSet[m.Name]; !wanted {
			remaining = append(remaining, m)
			continue
		}

		pre := c.Threads.GetStatus(m.AgentID)
		var shutdownErr error
		if pre != protocol.AgentStatusShutdown && pre != protocol.AgentStatusNotFound {
			// CloseAgent also releases any worktree lease tracked for
			// this member since it spawned.
			_, shutdownErr = c.CloseAgent(ctx, m.AgentID, nil, in.Cwd)
		} else {
			c.releaseTrackedLease(ctx, m.AgentID)
		}
		post := c.Threads.GetStatus(m.AgentID)

		status := closeTeamMemberStatus(pre, post, shutdownErr)
		entry := ClosedMember{Name: m.Name, AgentID: m.AgentID, Status: status}
		if shutdownErr != nil {
			entry.Error = shutdownErr.Error()
		} else {
			entry.OK = true
		}
		closed = append(closed, entry)
	}

	cfg.Members = remaining
	if len(remaining) == 0 {
		c.Teams.RemoveTeam(in.TeamID)
	} else if err := c.Teams.SaveTeam(in.TeamID, cfg); err != nil {
		return CloseTeamResult{}, err
	}

	return CloseTeamResult{TeamID: in.TeamID, Closed: closed}, nil
}

func closeTeamMemberStatus(pre, post protocol.AgentStatus, shutdownErr error) protocol.AgentStatus {
	switch {
	case pre == protocol.AgentStatusNotFound:
		return protocol.AgentStatusNotFound
	case pre == protocol.AgentStatusShutdown:
		return protocol.AgentStatusShutdown
	case shutdownErr == nil && post == protocol.AgentStatusNotFound:
		return protocol.AgentStatusShutdown
	case shutdownErr == nil:
		return post
	default:
		return post
	}
}

// TeamCleanupResult is the team_cleanup response.
type TeamCleanupResult struct {
	TeamID              string         `json:"team_id"`
	RemovedFromRegistry bool           `json:"removed_from_registry"`
	RemovedTeamConfig   bool           `json:"removed_team_config"`
	RemovedTaskDir      bool           `json:"removed_task_dir"`
	Closed              []ClosedMember `json:"closed"`
}

// TeamCleanup closes every member (even already-shutdown ones, to release
// slots and worktrees) and removes the team's persisted state entirely.
func (c *Collab) TeamCleanup(ctx context.Context, teamID, cwd string) (TeamCleanupResult, error) {
	ctx = wrapCtx(ctx)
	closeRes, err := c.CloseTeam(ctx, CloseTeamInput{TeamID: teamID, Cwd: cwd})
	if err != nil {
		return TeamCleanupResult{}, err
	}
	removedConfig, removedTaskDir := c.Teams.RemoveTeam(teamID)
	return TeamCleanupResult{
		TeamID:              teamID,
		RemovedFromRegistry: true,
		RemovedTeamConfig:   removedConfig,
		RemovedTaskDir:      removedTaskDir,
		Closed:              closeRes.Closed,
	}, nil
}
