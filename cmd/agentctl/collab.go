package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/hooks"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/multiagent"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/skills"
	"github.com/agentrtkit/codexrt/runtime/team"
	"github.com/agentrtkit/codexrt/runtime/telemetry"
	"github.com/agentrtkit/codexrt/runtime/thread"
	"github.com/agentrtkit/codexrt/runtime/worktree"
)

// stubRunner satisfies thread.TurnRunner without driving an actual model
// turn: this CLI exercises thread lifecycle and team coordination only.
// A real host process supplies its own TurnRunner wiring providers/
// anthropic and toolregistry; that wiring is outside this runtime's scope
// (spec.md §1 treats model provider transport as an external collaborator).
type stubRunner struct{}

func (stubRunner) RunTurn(ctx context.Context, th *thread.Thread, input thread.UserInputSpec, schema *string) error {
	return nil
}

func newCollab(cfg config.Config) *multiagent.Collab {
	layout := config.NewLayout(cfg.CodexHome)
	mgr := thread.NewManager(cfg.AgentMaxThreads, cfg.AgentMaxDepth, func() thread.TurnRunner { return stubRunner{} }, layout)

	loaded, err := skills.LoadDir(filepath.Join(cfg.CodexHome, "skills"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentctl: load skills: %v\n", err)
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(os.Stderr, "agentctl: %s\n", w)
	}

	return &multiagent.Collab{
		Threads:        mgr,
		Teams:          team.NewStore(layout),
		Worktrees:      worktree.NewManager(layout),
		Layout:         layout,
		MaxDepth:       cfg.AgentMaxDepth,
		HookDispatcher: hooks.NewDispatcher(telemetry.NewNoopLogger()),
		SubagentStart:  loaded.ForEvent(hooks.EventSubagentStart),
		TaskCompleted:  loaded.ForEvent(hooks.EventTaskCompleted),
	}
}

// cliSource builds the root CLI thread's session source used as the
// calling source for spawn_agent and resume_agent.
func cliSource() protocol.SessionSource {
	return protocol.SessionSource{Kind: protocol.SessionSourceCLI}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseThreadID(s string) ids.ThreadID {
	return ids.ThreadID(s)
}
