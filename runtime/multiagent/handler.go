package multiagent

import (
	"context"
	"encoding/json"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/toolregistry"
	"github.com/agentrtkit/codexrt/runtime/wait"
)

// ToolNames lists the eighteen function-call names this package's Handler
// serves, matching spec §4.5's operation list.
var ToolNames = []string{
	"spawn_agent", "send_input", "resume_agent", "wait", "close_agent",
	"spawn_team", "wait_team", "close_team",
	"team_task_list", "team_task_claim", "team_task_claim_next", "team_task_complete",
	"team_message", "team_broadcast", "team_ask_lead",
	"team_inbox_pop", "team_inbox_ack", "team_cleanup",
}

// Handler adapts Collab to toolregistry.Handler, decoding each tool
// call's StructuredInput into the typed request Collab's methods expect
// and re-encoding the result as canonical JSON tool output. One Handler
// is bound to a single calling thread: every C5 operation needs that
// thread's own id and session source to enforce depth limits and resolve
// "the calling thread" (send_input's target, team_ask_lead's caller,
// team_inbox_pop/ack's receiver).
type Handler struct {
	Collab         *Collab
	CallerThreadID ids.ThreadID
	CallerSource   protocol.SessionSource
}

var _ toolregistry.Handler = (*Handler)(nil)

func (h *Handler) Kind() toolregistry.HandlerKind { return toolregistry.HandlerFunction }

func (h *Handler) MatchesKind(kind toolregistry.PayloadKind) bool {
	return kind == toolregistry.PayloadFunction || kind == toolregistry.PayloadCustom
}

// IsMutating is true for every C5 operation: each either changes thread/
// team state or blocks on it, so none qualifies for the read-only fast
// path the gate exempts.
func (h *Handler) IsMutating(toolregistry.Invocation) bool { return true }

func (h *Handler) Handle(ctx context.Context, inv toolregistry.Invocation) (protocol.ToolOutput, error) {
	result, err := h.dispatch(ctx, inv.Name, inv.StructuredInput)
	if err != nil {
		return protocol.ToolOutput{}, err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return protocol.ToolOutput{}, codexerr.Fatal("marshal %s result: %v", inv.Name, err)
	}
	return protocol.ToolOutput{CallID: inv.CallID, Status: protocol.ToolOutputSuccess, Output: string(out)}, nil
}

func (h *Handler) dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	c := h.Collab
	switch name {
	case "spawn_agent":
		var in rawSpawnAgent
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		ui, err := in.userInput()
		if err != nil {
			return nil, err
		}
		return c.SpawnAgent(ctx, h.CallerThreadID, h.CallerSource, SpawnAgentInput{
			UserInput: ui, AgentType: in.AgentType, ModelProvider: in.ModelProvider,
			Model: in.Model, Worktree: in.Worktree, Background: in.background(),
		})

	case "send_input":
		var in rawSendInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		ui, err := in.userInput()
		if err != nil {
			return nil, err
		}
		return c.SendInput(ctx, SendInputInput{UserInput: ui, ID: ids.ThreadID(in.ID), Interrupt: in.Interrupt})

	case "resume_agent":
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.ResumeAgent(ctx, h.CallerSource, ids.ThreadID(in.ID))

	case "wait":
		var in struct {
			IDs       []string `json:"ids"`
			TimeoutMs int      `json:"timeout_ms"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.Wait(ctx, WaitInput{IDs: toThreadIDs(in.IDs), TimeoutMs: in.TimeoutMs})

	case "close_agent":
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.CloseAgent(ctx, ids.ThreadID(in.ID), nil, "")

	case "spawn_team":
		var in rawSpawnTeam
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		members := make([]TeamMemberSpec, len(in.Members))
		for i, m := range in.Members {
			members[i] = TeamMemberSpec{
				Name: m.Name, Task: m.Task, AgentType: m.AgentType,
				ModelProvider: m.ModelProvider, Model: m.Model,
				Worktree: m.Worktree, Background: m.background(),
			}
		}
		return c.SpawnTeam(ctx, h.CallerThreadID, h.CallerSource, SpawnTeamInput{TeamID: in.TeamID, Members: members})

	case "wait_team":
		var in struct {
			TeamID    string    `json:"team_id"`
			Mode      wait.Mode `json:"mode"`
			TimeoutMs int       `json:"timeout_ms"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.WaitTeam(ctx, WaitTeamInput{TeamID: in.TeamID, Mode: in.Mode, TimeoutMs: in.TimeoutMs})

	case "close_team":
		var in struct {
			TeamID  string   `json:"team_id"`
			Members []string `json:"members"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.CloseTeam(ctx, CloseTeamInput{TeamID: in.TeamID, Members: in.Members})

	case "team_task_list":
		var in struct {
			TeamID string `json:"team_id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamTaskList(ctx, in.TeamID)

	case "team_task_claim":
		var in struct {
			TeamID string `json:"team_id"`
			TaskID string `json:"task_id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamTaskClaim(ctx, in.TeamID, in.TaskID)

	case "team_task_claim_next":
		var in struct {
			TeamID     string `json:"team_id"`
			MemberName string `json:"member_name"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamTaskClaimNext(ctx, in.TeamID, in.MemberName)

	case "team_task_complete":
		var in struct {
			TeamID string `json:"team_id"`
			TaskID string `json:"task_id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamTaskComplete(ctx, in.TeamID, in.TaskID)

	case "team_message":
		var in rawTeamMessage
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		ui, err := in.userInput()
		if err != nil {
			return nil, err
		}
		return c.TeamMessage(ctx, TeamMessageInput{
			UserInput: ui, TeamID: in.TeamID, MemberName: in.MemberName,
			FromName: in.FromName, Interrupt: in.Interrupt,
		})

	case "team_broadcast":
		var in rawTeamMessage
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		ui, err := in.userInput()
		if err != nil {
			return nil, err
		}
		return c.TeamBroadcast(ctx, TeamBroadcastInput{UserInput: ui, TeamID: in.TeamID, Interrupt: in.Interrupt})

	case "team_ask_lead":
		var in rawTeamMessage
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		ui, err := in.userInput()
		if err != nil {
			return nil, err
		}
		return c.TeamAskLead(ctx, TeamAskLeadInput{
			UserInput: ui, TeamID: in.TeamID, CallerName: in.FromName,
			CallerThreadID: h.CallerThreadID,
			CallerIsLead:   h.CallerThreadID == teamLeadOf(c, in.TeamID),
		})

	case "team_inbox_pop":
		var in struct {
			TeamID string `json:"team_id"`
			Limit  int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamInboxPop(ctx, in.TeamID, h.CallerThreadID, in.Limit)

	case "team_inbox_ack":
		var in struct {
			TeamID   string `json:"team_id"`
			AckToken string `json:"ack_token"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamInboxAck(ctx, in.TeamID, h.CallerThreadID, in.AckToken)

	case "team_cleanup":
		var in struct {
			TeamID string `json:"team_id"`
			Cwd    string `json:"cwd"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return c.TeamCleanup(ctx, in.TeamID, in.Cwd)

	default:
		return nil, codexerr.RespondToModel("unsupported call: %s", name)
	}
}

func teamLeadOf(c *Collab, teamID string) ids.ThreadID {
	cfg, err := c.Teams.LoadTeam(teamID)
	if err != nil {
		return ""
	}
	return cfg.LeadThreadID
}

func toThreadIDs(ss []string) []ids.ThreadID {
	out := make([]ids.ThreadID, len(ss))
	for i, s := range ss {
		out[i] = ids.ThreadID(s)
	}
	return out
}

func decodeArgs(args map[string]any, dst any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return codexerr.RespondToModel("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return codexerr.RespondToModel("invalid arguments: %v", err)
	}
	return nil
}

// rawUserInput is the {message?|items?} shape shared by every C5 request
// that accepts free-form content.
type rawUserInput struct {
	Message *string                 `json:"message"`
	Items   []protocol.ResponseItem `json:"items"`
}

func (r rawUserInput) userInput() (UserInput, error) {
	return UserInput{Message: r.Message, Items: r.Items}, nil
}

// rawBackground carries the source's background field and its
// backendground alias: both map to the same request field, per spec's
// note that the source accepts the misspelling with no distinct
// semantics.
type rawBackground struct {
	Background    *bool `json:"background"`
	Backendground *bool `json:"backendground"`
}

func (r rawBackground) background() bool {
	if r.Background != nil {
		return *r.Background
	}
	if r.Backendground != nil {
		return *r.Backendground
	}
	return false
}

type rawSpawnAgent struct {
	rawUserInput
	rawBackground
	AgentType     string `json:"agent_type"`
	ModelProvider string `json:"model_provider"`
	Model         string `json:"model"`
	Worktree      bool   `json:"worktree"`
}

type rawSendInput struct {
	rawUserInput
	ID        string `json:"id"`
	Interrupt bool   `json:"interrupt"`
}

type rawSpawnTeamMember struct {
	rawBackground
	Name          string `json:"name"`
	Task          string `json:"task"`
	AgentType     string `json:"agent_type"`
	ModelProvider string `json:"model_provider"`
	Model         string `json:"model"`
	Worktree      bool   `json:"worktree"`
}

type rawSpawnTeam struct {
	TeamID  string               `json:"team_id"`
	Members []rawSpawnTeamMember `json:"members"`
}

type rawTeamMessage struct {
	rawUserInput
	TeamID     string `json:"team_id"`
	MemberName string `json:"member_name"`
	FromName   string `json:"from_name"`
	Interrupt  bool   `json:"interrupt"`
}
