package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
)

// classifyTransportError maps a transport-level failure from the SDK into
// the typed error taxonomy per spec §7: 429 → RetryLimit, 5xx →
// InternalServerError, other 4xx → UnexpectedStatus, timeouts →
// Timeout, cancellation → TurnAborted.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return codexerr.TurnAborted()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codexerr.Timeout("anthropic request deadline exceeded")
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		requestID := apiErr.RequestID
		switch {
		case status == 429:
			return codexerr.RetryLimit(status, requestID)
		case status >= 500:
			return codexerr.InternalServerError("anthropic server error: %s", apiErr.Error())
		case status >= 400:
			return codexerr.UnexpectedStatus(status, apiErr.Error(), requestID)
		}
	}
	return codexerr.Stream("%v", err)
}
