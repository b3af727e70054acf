// Command agentctl is a thin smoke-test CLI for exercising the multi-agent
// runtime's thread manager and team store locally: spawn an agent, wait on
// it, inspect its status, and close it. It is not a product CLI; end-user
// chat/TUI surfaces are out of scope for this runtime (spec.md §1).
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
