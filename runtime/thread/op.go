// Package thread implements the C4 thread manager: Thread lifecycle
// (start/resume/spawn/send_input/interrupt/shutdown), its per-thread
// driver loop, and status broadcasting.
package thread

import (
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// OpKind discriminates a submission to a Thread's driver loop.
type OpKind string

const (
	OpUserInput OpKind = "user_input"
	OpInterrupt OpKind = "interrupt"
	OpShutdown  OpKind = "shutdown"
)

// UserInputSpec is the tagged Text|Items union spec §9 describes for the
// raw request boundary: the handler parses it once into exactly one of
// the two forms.
type UserInputSpec struct {
	Text  *string
	Items []protocol.ResponseItem
}

// Op is one submission into a thread's driver loop.
type Op struct {
	Kind OpKind

	// OpUserInput.
	Input             UserInputSpec
	FinalOutputSchema *string

	// SubmissionID is the id the submitter minted for an OpUserInput.
	// Result delivery: when Done is non-nil the driver sends the turn's
	// error (OpUserInput) or nil (Interrupt/Shutdown) on it.
	SubmissionID string
	Done         chan error
}
