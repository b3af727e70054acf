// Package codexerr defines the runtime's error taxonomy. Every error that
// crosses a component boundary (tool dispatch, hooks, the thread manager,
// the stream adapter) is one of the kinds below so callers can branch on
// Kind rather than string-matching messages.
package codexerr

import (
	"errors"
	"fmt"

	"github.com/agentrtkit/codexrt/runtime/ids"
)

// Kind classifies a runtime error for propagation-policy decisions.
type Kind string

const (
	// KindInvalidRequest is a caller-visible validation failure; never retried.
	KindInvalidRequest Kind = "invalid_request"

	// KindRespondToModel is surfaced back to the model as a failed tool output.
	KindRespondToModel Kind = "respond_to_model"

	// KindFatal is a pipeline-level bug; it ends the turn.
	KindFatal Kind = "fatal"

	// KindTimeout is a deadline that elapsed.
	KindTimeout Kind = "timeout"

	// KindRetryLimit is a provider 429 (or equivalent) response.
	KindRetryLimit Kind = "retry_limit"

	// KindUnexpectedStatus is a provider 4xx/other response.
	KindUnexpectedStatus Kind = "unexpected_status"

	// KindInternalServerError is a provider 5xx response.
	KindInternalServerError Kind = "internal_server_error"

	// KindStream is a malformed or aborted provider stream.
	KindStream Kind = "stream"

	// KindTurnAborted indicates the user or an ancestor interrupted the turn.
	KindTurnAborted Kind = "turn_aborted"

	// KindThreadNotFound indicates the referenced thread does not exist.
	KindThreadNotFound Kind = "thread_not_found"

	// KindInternalAgentDied indicates the referenced thread has shut down.
	KindInternalAgentDied Kind = "internal_agent_died"

	// KindUnsupportedOperation indicates a feature is disabled.
	KindUnsupportedOperation Kind = "unsupported_operation"

	// KindEnvVar indicates missing credential material.
	KindEnvVar Kind = "env_var"
)

// Error is the concrete error type returned by runtime components. It
// carries a Kind for branching plus optional structured context (status
// code, request id, thread id) preserved when available.
type Error struct {
	Kind      Kind
	Message   string
	Status    int
	RequestID string
	ThreadID  ids.ThreadID
	EnvVar    string
	cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	switch e.Kind {
	case KindRetryLimit, KindUnexpectedStatus:
		if e.Status > 0 {
			msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
		}
		if e.RequestID != "" {
			msg = fmt.Sprintf("%s [request_id=%s]", msg, e.RequestID)
		}
	case KindThreadNotFound, KindInternalAgentDied:
		if e.ThreadID != "" {
			msg = fmt.Sprintf("%s: %s", msg, e.ThreadID)
		}
	}
	return msg
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, codexerr.New(kind, "")) matches by kind alone. A bare Kind
// value is not an error and cannot be passed to errors.Is; use
// KindOf(err) == codexerr.KindX or errors.As for typed matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a bare error of the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// InvalidRequest builds a KindInvalidRequest error.
func InvalidRequest(format string, args ...any) *Error {
	return New(KindInvalidRequest, fmt.Sprintf(format, args...))
}

// RespondToModel builds a KindRespondToModel error.
func RespondToModel(format string, args ...any) *Error {
	return New(KindRespondToModel, fmt.Sprintf(format, args...))
}

// Fatal builds a KindFatal error.
func Fatal(format string, args ...any) *Error {
	return New(KindFatal, fmt.Sprintf(format, args...))
}

// Timeout builds a KindTimeout error.
func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, fmt.Sprintf(format, args...))
}

// RetryLimit builds a KindRetryLimit error with provider status/request id context.
func RetryLimit(status int, requestID string) *Error {
	return &Error{Kind: KindRetryLimit, Message: "rate limited", Status: status, RequestID: requestID}
}

// UnexpectedStatus builds a KindUnexpectedStatus error.
func UnexpectedStatus(status int, body, requestID string) *Error {
	return &Error{Kind: KindUnexpectedStatus, Message: body, Status: status, RequestID: requestID}
}

// InternalServerError builds a KindInternalServerError error.
func InternalServerError(format string, args ...any) *Error {
	return New(KindInternalServerError, fmt.Sprintf(format, args...))
}

// Stream builds a KindStream error.
func Stream(format string, args ...any) *Error {
	return New(KindStream, fmt.Sprintf(format, args...))
}

// TurnAborted builds a KindTurnAborted error.
func TurnAborted() *Error {
	return New(KindTurnAborted, "turn aborted")
}

// ThreadNotFound builds a KindThreadNotFound error for id.
func ThreadNotFound(id ids.ThreadID) *Error {
	return &Error{Kind: KindThreadNotFound, Message: "thread not found", ThreadID: id}
}

// InternalAgentDied builds a KindInternalAgentDied error for id.
func InternalAgentDied(id ids.ThreadID) *Error {
	return &Error{Kind: KindInternalAgentDied, Message: "agent is closed", ThreadID: id}
}

// UnsupportedOperation builds a KindUnsupportedOperation error.
func UnsupportedOperation(reason string) *Error {
	return New(KindUnsupportedOperation, reason)
}

// EnvVar builds a KindEnvVar error for a missing environment variable.
func EnvVar(name, instructions string) *Error {
	msg := fmt.Sprintf("missing environment variable %q", name)
	if instructions != "" {
		msg = fmt.Sprintf("%s: %s", msg, instructions)
	}
	return &Error{Kind: KindEnvVar, Message: msg, EnvVar: name}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
