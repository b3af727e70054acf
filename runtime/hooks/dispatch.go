package hooks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/agentrtkit/codexrt/runtime/telemetry"
)

const stderrPreviewBudget = 300

// OutcomeKind discriminates how a single hook run concluded.
type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomeFailedContinue OutcomeKind = "failed_continue"
	OutcomeFailedAbort    OutcomeKind = "failed_abort"
)

// Outcome is the result of running one configured hook.
type Outcome struct {
	Kind     OutcomeKind
	Decision *DecisionResult // non-nil only when the event kind honors decisions
	Err      error
}

// Dispatcher runs command hooks for an event.
type Dispatcher struct {
	logger telemetry.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(logger telemetry.Logger) *Dispatcher {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Dispatcher{logger: logger}
}

// RunChain runs every configured hook matching tool/prompt, in order,
// against payload. It stops early (and returns that hook's outcome) on
// the first FailedAbort. Non-aborting failures and decisions are
// accumulated: the returned AdditionalContext is every hook's contribution
// joined, and UpdatedInput is the last non-nil one seen.
func (d *Dispatcher) RunChain(ctx context.Context, kind EventKind, cfgs []CommandHookConfig, payload Payload, toolName, prompt *string) (DecisionResult, error) {
	var acc DecisionResult
	acc.Decision = DecisionPass

	var contexts []string
	for i, cfg := range cfgs {
		if !cfg.Matcher.Matches(toolName, prompt) {
			continue
		}
		name := defaultName(cfg.Name, kind, i)

		outcome := d.run(ctx, cfg, payload, kind)
		switch outcome.Kind {
		case OutcomeFailedAbort:
			return acc, fmt.Errorf("%s hook %q failed: %w", kind, name, outcome.Err)
		case OutcomeFailedContinue:
			d.logger.Warn(ctx, "hook failed, continuing", "hook", name, "event", string(kind), "error", outcome.Err)
			continue
		}
		if outcome.Decision == nil {
			continue
		}
		if outcome.Decision.AdditionalContext != "" {
			contexts = append(contexts, outcome.Decision.AdditionalContext)
		}
		if outcome.Decision.UpdatedInput != nil {
			acc.UpdatedInput = outcome.Decision.UpdatedInput
		}
		if outcome.Decision.Decision == DecisionBlock || outcome.Decision.Decision == DecisionAsk {
			acc.Decision = outcome.Decision.Decision
			acc.Reason = outcome.Decision.Reason
			acc.AdditionalContext = strings.Join(contexts, "\n")
			return acc, nil
		}
	}
	acc.AdditionalContext = strings.Join(contexts, "\n")
	return acc, nil
}

func (d *Dispatcher) run(ctx context.Context, cfg CommandHookConfig, payload Payload, kind EventKind) Outcome {
	if cfg.Kind != HandlerCommand {
		// Prompt/agent handler variants are executed by the thread
		// manager (they submit work to a model), not by this
		// process-spawning dispatcher.
		return Outcome{Kind: OutcomeSuccess}
	}
	if len(cfg.Command) == 0 {
		return Outcome{Kind: OutcomeSuccess}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return d.classifyError(cfg, fmt.Errorf("marshal hook payload: %w", err))
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.TimeoutMillis > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutMillis)*time.Millisecond)
		defer cancel()
	}

	cmd := buildCommand(runCtx, cfg.Command)
	cmd.Stdin = bytes.NewReader(body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if cfg.Async {
		if err := cmd.Start(); err != nil {
			return d.classifyError(cfg, err)
		}
		go func() { _ = cmd.Wait() }()
		return Outcome{Kind: OutcomeSuccess}
	}

	runErr := cmd.Run()
	if runCtx.Err() != nil {
		return d.classifyError(cfg, fmt.Errorf("hook %q timed out", cfg.Name))
	}

	if HonorsBlockDecision(kind) {
		if dec := parseDecision(stdout.Bytes()); dec != nil {
			return Outcome{Kind: OutcomeSuccess, Decision: dec}
		}
	}

	if runErr != nil {
		preview := previewStderr(stderr.Bytes())
		return d.classifyError(cfg, fmt.Errorf("hook %q exited with error: %v (stderr: %s)", cfg.Name, runErr, preview))
	}
	return Outcome{Kind: OutcomeSuccess}
}

func (d *Dispatcher) classifyError(cfg CommandHookConfig, err error) Outcome {
	if cfg.AbortOnError {
		return Outcome{Kind: OutcomeFailedAbort, Err: err}
	}
	return Outcome{Kind: OutcomeFailedContinue, Err: err}
}

func buildCommand(ctx context.Context, argv []string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		full := append([]string{"/C"}, argv...)
		return exec.CommandContext(ctx, "cmd", full...)
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

// parseDecision scans stdout line by line for the first line that parses
// as a {"decision": "...", "reason": "..."} JSON object, per spec §4.3
// step 6. Lines that don't parse are ignored.
func parseDecision(stdout []byte) *DecisionResult {
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw struct {
			Decision string `json:"decision"`
			Reason   string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		switch strings.ToLower(raw.Decision) {
		case "approve", "allow", "continue":
			return &DecisionResult{Decision: DecisionPass, Reason: raw.Reason}
		case "block", "deny", "abort":
			reason := raw.Reason
			if reason == "" {
				reason = "hook blocked operation"
			}
			return &DecisionResult{Decision: DecisionBlock, Reason: reason}
		case "ask":
			reason := raw.Reason
			if reason == "" {
				reason = "hook requested an explicit user approval"
			}
			return &DecisionResult{Decision: DecisionAsk, Reason: reason}
		default:
			continue
		}
	}
	return nil
}

func previewStderr(stderr []byte) string {
	s := string(stderr)
	if len(s) <= stderrPreviewBudget {
		return s
	}
	return s[:stderrPreviewBudget] + "..."
}
