package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/multiagent"
)

func waitCmd() *cobra.Command {
	var (
		id        string
		timeoutMs int
	)
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Resume an agent if needed, then wait for it to reach a final status",
		Run: func(cmd *cobra.Command, args []string) {
			runWait(id, timeoutMs)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "agent thread id (required)")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "deadline in milliseconds (clamped to [10s,300s]; default 30s)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runWait(id string, timeoutMs int) {
	ctx := context.Background()
	cfg := loadConfig()
	collab := newCollab(cfg)
	threadID := parseThreadID(id)

	if _, err := collab.ResumeAgent(ctx, cliSource(), threadID); err != nil {
		fatalf("agentctl: resume_agent: %v", err)
	}
	result, err := collab.Wait(ctx, multiagent.WaitInput{IDs: []ids.ThreadID{threadID}, TimeoutMs: timeoutMs})
	if err != nil {
		fatalf("agentctl: wait: %v", err)
	}
	fmt.Printf("status: %s\n", result.Status[threadID])
	fmt.Printf("timed_out: %t\n", result.TimedOut)
}
