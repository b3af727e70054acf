package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func closeCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Resume an agent if needed, then shut it down",
		Run: func(cmd *cobra.Command, args []string) {
			runClose(id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "agent thread id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runClose(id string) {
	ctx := context.Background()
	cfg := loadConfig()
	collab := newCollab(cfg)
	threadID := parseThreadID(id)

	if _, err := collab.ResumeAgent(ctx, cliSource(), threadID); err != nil {
		fatalf("agentctl: resume_agent: %v", err)
	}

	result, err := collab.CloseAgent(ctx, threadID, nil, "")
	if err != nil {
		fatalf("agentctl: close_agent: %v", err)
	}
	fmt.Printf("pre_close_status: %s\n", result.Status)
}
