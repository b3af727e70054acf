package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report an agent's status, resuming it from its rollout if not live",
		Run: func(cmd *cobra.Command, args []string) {
			runStatus(id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "agent thread id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runStatus(id string) {
	ctx := context.Background()
	cfg := loadConfig()
	collab := newCollab(cfg)
	threadID := parseThreadID(id)

	result, err := collab.ResumeAgent(ctx, cliSource(), threadID)
	if err != nil {
		fatalf("agentctl: resume_agent: %v", err)
	}
	fmt.Printf("status: %s\n", result.Status)
}
