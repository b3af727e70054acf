package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/hooks"
	"github.com/agentrtkit/codexrt/runtime/protocol"
	"github.com/agentrtkit/codexrt/runtime/telemetry"
)

// SandboxPolicy is the sandbox tag attached to dispatch telemetry, per
// spec §4.2's telemetry-tags paragraph.
type SandboxPolicy string

const (
	SandboxReadOnly         SandboxPolicy = "read-only"
	SandboxWorkspaceWrite   SandboxPolicy = "workspace-write"
	SandboxDangerFullAccess SandboxPolicy = "danger-full-access"
	SandboxExternal         SandboxPolicy = "external-sandbox"
)

// DispatchContext carries the per-call context a Dispatcher needs beyond
// the invocation itself: session/turn identity for hook payloads, the
// turn's mutating-call gate, and sandbox tagging for telemetry.
type DispatchContext struct {
	SessionID      string
	TranscriptPath string
	Cwd            string
	PermissionMode hooks.PermissionMode
	Gate           *Gate
	Sandbox        SandboxPolicy
}

// Dispatcher implements the C2 dispatch pipeline: handler lookup, hook
// wrapping, gate-serialized mutating execution, and telemetry.
type Dispatcher struct {
	registry *ToolRegistry
	hookSet  hooks.Hooks
	hookRun  *hooks.Dispatcher
	logger   telemetry.Logger
	tracer   telemetry.Tracer
	metrics  telemetry.Metrics
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(registry *ToolRegistry, hookSet hooks.Hooks, hookRun *hooks.Dispatcher, logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics) *Dispatcher {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Dispatcher{registry: registry, hookSet: hookSet, hookRun: hookRun, logger: logger, tracer: tracer, metrics: metrics}
}

// Dispatch runs the full pipeline for inv and returns its ToolOutput, or
// an error. RespondToModel errors should be surfaced as tool output text
// to the model (by the caller, which has the call_id); Fatal errors end
// the turn.
func (d *Dispatcher) Dispatch(ctx context.Context, dc DispatchContext, inv Invocation) (protocol.ToolOutput, error) {
	ctx, span := d.tracer.Start(ctx, "toolregistry.dispatch")
	defer span.End()

	handler, ok := d.registry.Lookup(inv.Name)
	if !ok {
		d.emitTelemetry(dc, inv.Name, false, false, 0)
		if inv.PayloadKind == PayloadCustom {
			return protocol.ToolOutput{}, codexerr.RespondToModel("unsupported custom tool call: %s", inv.Name)
		}
		return protocol.ToolOutput{}, codexerr.RespondToModel("unsupported call: %s", inv.Name)
	}

	if !handler.MatchesKind(inv.PayloadKind) {
		return protocol.ToolOutput{}, codexerr.Fatal("tool %s invoked with incompatible payload", inv.Name)
	}

	isMutating := handler.IsMutating(inv)

	toolNameForHook := inv.Name
	blockDecision, err := d.runPreToolUse(ctx, dc, &inv, toolNameForHook)
	if err != nil {
		return protocol.ToolOutput{}, err
	}
	if blockDecision != "" {
		return protocol.ToolOutput{}, codexerr.RespondToModel("pre_tool_use hook '%s' blocked tool '%s': %s", toolNameForHook, inv.Name, blockDecision)
	}

	if isMutating && dc.Gate != nil {
		if err := dc.Gate.Acquire(ctx); err != nil {
			return protocol.ToolOutput{}, codexerr.TurnAborted()
		}
		defer dc.Gate.Release()
	}

	start := time.Now()
	output, handleErr := handler.Handle(ctx, inv)
	duration := time.Since(start)
	success := handleErr == nil

	d.emitTelemetry(dc, inv.Name, true, success, duration)
	d.runPostToolUse(ctx, dc, inv, success, duration, isMutating, output)
	if handleErr != nil {
		d.runPostToolUseFailure(ctx, dc, inv, handleErr)
		return protocol.ToolOutput{}, handleErr
	}
	return output, nil
}

func (d *Dispatcher) runPreToolUse(ctx context.Context, dc DispatchContext, inv *Invocation, toolName string) (string, error) {
	cfgs := d.hookSet.ForEvent(hooks.EventPreToolUse)
	if len(cfgs) == 0 || d.hookRun == nil {
		return "", nil
	}
	payload := hooks.Payload{
		Event:          hooks.EventPreToolUse,
		SessionID:      dc.SessionID,
		TranscriptPath: dc.TranscriptPath,
		Cwd:            dc.Cwd,
		PermissionMode: dc.PermissionMode,
		ToolName:       toolName,
		ToolKind:       string(inv.PayloadKind),
		ToolInput:      toolInputForHook(*inv),
	}
	result, err := d.hookRun.RunChain(ctx, hooks.EventPreToolUse, cfgs, payload, &toolName, nil)
	if err != nil {
		return "", codexerr.Wrap(codexerr.KindFatal, "pre_tool_use hooks", err)
	}
	if result.UpdatedInput != nil {
		applyUpdatedToolInput(inv, *result.UpdatedInput)
	}
	if result.Decision == hooks.DecisionBlock {
		return result.Reason, nil
	}
	return "", nil
}

func (d *Dispatcher) runPostToolUse(ctx context.Context, dc DispatchContext, inv Invocation, success bool, duration time.Duration, mutating bool, output protocol.ToolOutput) {
	cfgs := d.hookSet.ForEvent(hooks.EventPostToolUse)
	if len(cfgs) == 0 || d.hookRun == nil {
		return
	}
	executed := true
	durMillis := duration.Milliseconds()
	payload := hooks.Payload{
		Event:          hooks.EventPostToolUse,
		SessionID:      dc.SessionID,
		Cwd:            dc.Cwd,
		PermissionMode: dc.PermissionMode,
		ToolName:       inv.Name,
		Executed:       &executed,
		Success:        &success,
		DurationMillis: &durMillis,
		Mutating:       &mutating,
		OutputPreview:  preview(output.Output, 300),
	}
	toolName := inv.Name
	if _, err := d.hookRun.RunChain(ctx, hooks.EventPostToolUse, cfgs, payload, &toolName, nil); err != nil {
		d.logger.Warn(ctx, "post_tool_use hook failed", "tool", inv.Name, "error", err)
	}
}

func (d *Dispatcher) runPostToolUseFailure(ctx context.Context, dc DispatchContext, inv Invocation, handleErr error) {
	cfgs := d.hookSet.ForEvent(hooks.EventPostToolUseFailure)
	if len(cfgs) == 0 || d.hookRun == nil {
		return
	}
	payload := hooks.Payload{
		Event:         hooks.EventPostToolUseFailure,
		SessionID:     dc.SessionID,
		Cwd:           dc.Cwd,
		ToolName:      inv.Name,
		OutputPreview: preview(handleErr.Error(), 300),
	}
	toolName := inv.Name
	if _, err := d.hookRun.RunChain(ctx, hooks.EventPostToolUseFailure, cfgs, payload, &toolName, nil); err != nil {
		d.logger.Warn(ctx, "post_tool_use_failure hook failed", "tool", inv.Name, "error", err)
	}
}

func (d *Dispatcher) emitTelemetry(dc DispatchContext, toolName string, executed, success bool, duration time.Duration) {
	labels := []string{"tool", toolName, "sandbox_policy", string(dc.Sandbox)}
	if !executed {
		labels = append(labels, "success", "false")
		d.metrics.IncCounter("tool_dispatch_total", 1, labels...)
		return
	}
	labels = append(labels, "success", fmt.Sprintf("%t", success))
	d.metrics.IncCounter("tool_dispatch_total", 1, labels...)
	d.metrics.RecordTimer("tool_dispatch_duration", duration, labels...)
}

func toolInputForHook(inv Invocation) any {
	if inv.PayloadKind == PayloadCustom {
		return inv.Arguments
	}
	return inv.StructuredInput
}

// applyUpdatedToolInput implements spec §4.2's apply_updated_tool_input:
// a plain string replaces the arguments verbatim; anything else (accepted
// here as the raw updated-input string already JSON-encoded by the hook)
// is re-parsed as structured input for Function/Mcp payloads.
func applyUpdatedToolInput(inv *Invocation, updated string) {
	if inv.PayloadKind == PayloadCustom {
		inv.Arguments = updated
		return
	}
	var structured map[string]any
	if err := json.Unmarshal([]byte(updated), &structured); err != nil {
		// A parsing failure leaves inv unchanged and is not reported;
		// this function only mutates on success.
		return
	}
	inv.StructuredInput = structured
	if b, err := json.Marshal(structured); err == nil {
		inv.Arguments = string(b)
	}
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
