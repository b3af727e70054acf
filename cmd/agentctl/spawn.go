package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentrtkit/codexrt/runtime/multiagent"
)

func spawnCmd() *cobra.Command {
	var (
		message    string
		agentType  string
		worktree   bool
		background bool
	)

	cmd := &cobra.Command{
		Use:   "spawn",
		Short: "Start a root thread and spawn one sub-agent from it",
		Run: func(cmd *cobra.Command, args []string) {
			runSpawn(message, agentType, worktree, background)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "seed message for the spawned agent (required)")
	cmd.Flags().StringVar(&agentType, "agent-type", "", "named agent role to spawn as")
	cmd.Flags().BoolVar(&worktree, "worktree", false, "give the spawned agent an isolated git worktree")
	cmd.Flags().BoolVar(&background, "background", false, "spawn in background mode")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func runSpawn(message, agentType string, worktreeFlag, background bool) {
	ctx := context.Background()
	cfg := loadConfig()
	collab := newCollab(cfg)

	lead, err := collab.Threads.StartThread(cliSource())
	if err != nil {
		fatalf("agentctl: start root thread: %v", err)
	}

	result, err := collab.SpawnAgent(ctx, lead.ThreadID, cliSource(), multiagent.SpawnAgentInput{
		UserInput:  multiagent.UserInput{Message: &message},
		AgentType:  agentType,
		Worktree:   worktreeFlag,
		Background: background,
	})
	if err != nil {
		fatalf("agentctl: spawn_agent: %v", err)
	}

	fmt.Printf("lead_thread_id: %s\n", lead.ThreadID)
	fmt.Printf("agent_id: %s\n", result.AgentID)
	fmt.Printf("status: %s\n", collab.Threads.GetStatus(result.AgentID))
}
