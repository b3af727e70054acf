package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentrtkit/codexrt/runtime/config"
)

var codexHome string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentctl",
		Short: "Smoke-test the multi-agent runtime's thread and team lifecycle",
		Long: `agentctl drives the thread manager and team store directly for local
smoke-testing: spawning an agent, waiting on it, checking its status, and
closing it. It does not drive an actual model turn.`,
	}
	cmd.PersistentFlags().StringVar(&codexHome, "codex-home", "", "CODEX_HOME override (default: $CODEX_HOME or ~/.codex)")

	cmd.AddCommand(spawnCmd())
	cmd.AddCommand(statusCmd())
	cmd.AddCommand(waitCmd())
	cmd.AddCommand(closeCmd())
	return cmd
}

func loadConfig() config.Config {
	cfg, err := config.Load(codexHome)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentctl: load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
