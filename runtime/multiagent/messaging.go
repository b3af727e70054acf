package multiagent

import (
	"context"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/team"
)

// TeamMessageInput is the team_message request.
type TeamMessageInput struct {
	UserInput
	TeamID     string
	MemberName string
	FromName   string
	Interrupt  bool
}

// TeamMessageResult is the team_message/team_ask_lead response shape.
type TeamMessageResult struct {
	Delivered    bool   `json:"delivered"`
	SubmissionID string `json:"submission_id"`
	InboxEntryID string `json:"inbox_entry_id"`
	Error        string `json:"error,omitempty"`
}

// TeamMessage delivers a message to a named member, falling back to a
// durable inbox entry when live delivery fails.
func (c *Collab) TeamMessage(ctx context.Context, in TeamMessageInput) (TeamMessageResult, error) {
	ctx = wrapCtx(ctx)
	cfg, err := c.Teams.LoadTeam(in.TeamID)
	if err != nil {
		return TeamMessageResult{}, err
	}
	member, ok := cfg.MemberByName(in.MemberName)
	if !ok {
		return TeamMessageResult{}, codexerr.RespondToModel("member `%s` not found in team `%s`", in.MemberName, in.TeamID)
	}
	return c.deliverOrPersist(ctx, in.TeamID, cfg.LeadThreadID, member.AgentID, in.FromName, in.UserInput, in.Interrupt)
}

func (c *Collab) deliverOrPersist(ctx context.Context, teamID string, fromThreadID, toThreadID ids.ThreadID, fromName string, input UserInput, interrupt bool) (TeamMessageResult, error) {
	spec, err := input.toSpec()
	if err != nil {
		return TeamMessageResult{}, err
	}

	if interrupt {
		_ = c.Threads.InterruptAgent(ctx, toThreadID)
	}

	submissionID, sendErr := c.Threads.SendInput(ctx, toThreadID, spec)
	if sendErr == nil {
		return TeamMessageResult{Delivered: true, SubmissionID: submissionID}, nil
	}

	entry := team.InboxEntry{
		FromThreadID: fromThreadID,
		ToThreadID:   toThreadID,
		FromName:     fromName,
	}
	if spec.Text != nil {
		entry.Prompt = *spec.Text
	} else {
		entry.InputItems = spec.Items
	}
	entryID, persistErr := c.Teams.AppendInboxEntry(teamID, entry, c.now())
	if persistErr != nil {
		return TeamMessageResult{}, persistErr
	}
	return TeamMessageResult{
		Delivered:    false,
		InboxEntryID: entryID,
		Error:        sendErr.Error(),
	}, nil
}

// TeamBroadcastInput is the team_broadcast request.
type TeamBroadcastInput struct {
	UserInput
	TeamID    string
	Interrupt bool
}

// TeamBroadcastResult partitions members into sent/failed.
type TeamBroadcastResult struct {
	Sent   []string `json:"sent"`
	Failed []string `json:"failed"`
}

// TeamBroadcast applies TeamMessage semantics to every member of a team.
func (c *Collab) TeamBroadcast(ctx context.Context, in TeamBroadcastInput) (TeamBroadcastResult, error) {
	ctx = wrapCtx(ctx)
	cfg, err := c.Teams.LoadTeam(in.TeamID)
	if err != nil {
		return TeamBroadcastResult{}, err
	}

	var result TeamBroadcastResult
	for _, m := range cfg.Members {
		res, err := c.deliverOrPersist(ctx, in.TeamID, cfg.LeadThreadID, m.AgentID, "", in.UserInput, in.Interrupt)
		if err == nil && res.Delivered {
			result.Sent = append(result.Sent, m.Name)
		} else {
			result.Failed = append(result.Failed, m.Name)
		}
	}
	return result, nil
}

// TeamAskLeadInput is the team_ask_lead request.
type TeamAskLeadInput struct {
	UserInput
	TeamID         string
	CallerName     string
	CallerThreadID ids.ThreadID
	CallerIsLead   bool
}

// TeamAskLeadResult is the team_ask_lead response.
type TeamAskLeadResult struct {
	TeamID       string       `json:"team_id"`
	LeadThreadID ids.ThreadID `json:"lead_thread_id"`
	Delivered    bool         `json:"delivered"`
	SubmissionID string       `json:"submission_id"`
	InboxEntryID string       `json:"inbox_entry_id"`
	Error        string       `json:"error,omitempty"`
}

// TeamAskLead lets a non-lead member message the team's lead thread,
// persisting to the lead's inbox if direct delivery fails.
func (c *Collab) TeamAskLead(ctx context.Context, in TeamAskLeadInput) (TeamAskLeadResult, error) {
	ctx = wrapCtx(ctx)
	if in.CallerIsLead {
		return TeamAskLeadResult{}, codexerr.RespondToModel("team_ask_lead cannot be called by the lead")
	}
	cfg, err := c.Teams.LoadTeam(in.TeamID)
	if err != nil {
		return TeamAskLeadResult{}, err
	}

	// The caller's own thread id is authoritative for fromThreadID; a
	// name lookup is only a display fallback and must never silently
	// substitute an empty agent id when the name doesn't resolve.
	fromThreadID := in.CallerThreadID
	if fromThreadID == "" {
		if member, ok := cfg.MemberByName(in.CallerName); ok {
			fromThreadID = member.AgentID
		}
	}
	res, err := c.deliverOrPersist(ctx, in.TeamID, fromThreadID, cfg.LeadThreadID, in.CallerName, in.UserInput, false)
	if err != nil {
		return TeamAskLeadResult{}, err
	}
	return TeamAskLeadResult{
		TeamID:       in.TeamID,
		LeadThreadID: cfg.LeadThreadID,
		Delivered:    res.Delivered,
		SubmissionID: res.SubmissionID,
		InboxEntryID: res.InboxEntryID,
		Error:        res.Error,
	}, nil
}

// TeamInboxPopResult is the team_inbox_pop response.
type TeamInboxPopResult struct {
	TeamID   string            `json:"team_id"`
	ThreadID ids.ThreadID      `json:"thread_id"`
	Messages []team.InboxEntry `json:"messages"`
	AckToken *team.AckToken    `json:"ack_token,omitempty"`
}

// TeamInboxPop reads up to limit undelivered entries from the calling
// thread's own inbox.
func (c *Collab) TeamInboxPop(ctx context.Context, teamID string, callerThreadID ids.ThreadID, limit int) (TeamInboxPopResult, error) {
	cfg, err := c.Teams.LoadTeam(teamID)
	if err != nil {
		return TeamInboxPopResult{}, err
	}
	if !cfg.IsMember(callerThreadID) {
		return TeamInboxPopResult{}, codexerr.RespondToModel("thread `%s` is not a member of team `%s`", callerThreadID, teamID)
	}

	entries, token, err := c.Teams.PopInbox(teamID, callerThreadID, limit)
	if err != nil {
		return TeamInboxPopResult{}, err
	}
	return TeamInboxPopResult{TeamID: teamID, ThreadID: callerThreadID, Messages: entries, AckToken: token}, nil
}

// TeamInboxAckResult is the team_inbox_ack response.
type TeamInboxAckResult struct {
	Acked bool `json:"acked"`
}

// TeamInboxAck truncates the calling thread's inbox up to token's entry.
func (c *Collab) TeamInboxAck(ctx context.Context, teamID string, callerThreadID ids.ThreadID, tokenJSON string) (TeamInboxAckResult, error) {
	if tokenJSON == "" {
		return TeamInboxAckResult{Acked: false}, nil
	}
	token, err := parseAckToken(tokenJSON)
	if err != nil {
		return TeamInboxAckResult{}, codexerr.RespondToModel("ack_token is invalid: %v", err)
	}
	if err := c.Teams.AckInbox(teamID, callerThreadID, token); err != nil {
		return TeamInboxAckResult{}, err
	}
	return TeamInboxAckResult{Acked: true}, nil
}
