// Package backend provides a uniform interface over interchangeable
// generative-model providers.
//
// A backend accepts a system-context string, a bounded window of prior
// exchanges, and a user instruction, and returns free-form generated text.
// How the context and history are packed into a provider's request shape,
// and how the reply is unwrapped, is entirely internal to each
// implementation and invisible to the rest of the engine.
//
// Key types:
//   - [Generator]: the capability interface both providers satisfy
//   - [Request]: the (system, history, instruction) triple for one call
//   - [ProviderError]: transport/auth/rate-limit failure with retryability
//   - [AnthropicGenerator], [OpenAIGenerator]: the two provider adapters
//   - [ScriptedGenerator]: in-memory implementation for tests and dry runs
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Exchange is one prior instruction/response pair included as conversation
// history in a request.
type Exchange struct {
	Instruction string
	Response    string
}

// Request describes a single generation call.
type Request struct {
	// System is the fixed system-context string shared by every step of a run.
	System string

	// History is the bounded window of prior accepted exchanges, oldest first.
	History []Exchange

	// Instruction is the user instruction for this call.
	Instruction string

	// MaxTokens bounds the length of the generated output.
	MaxTokens int
}

// Generator is the capability interface over a generative-model provider.
//
// Generate returns the provider's free-form text output, or an error. Errors
// originating from the provider or transport are returned as a
// [ProviderError] so callers can distinguish retryable failures (rate
// limits, transient network errors) from terminal ones (bad credentials,
// malformed requests).
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderError represents a failure from a model provider or its transport.
//
// Retryable failures (rate limiting, server errors, transient network
// problems) may be retried with backoff. Non-retryable failures
// (authentication, malformed requests) must not be retried.
type ProviderError struct {
	// Provider names the backend that produced the error ("anthropic",
	// "openai", "scripted").
	Provider string

	// StatusCode is the HTTP status returned by the provider, or 0 when the
	// failure happened before a response was received.
	StatusCode int

	// Retryable reports whether the failure is worth retrying with backoff.
	Retryable bool

	// Detail is a human-readable description of the failure.
	Detail string

	// Err is the underlying error, if any.
	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider error (status %d, retryable=%t): %s", e.Provider, e.StatusCode, e.Retryable, e.Detail)
	}
	return fmt.Sprintf("%s provider error (retryable=%t): %s", e.Provider, e.Retryable, e.Detail)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError checks whether err is (or wraps) a [ProviderError].
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// retryableStatus classifies an HTTP status from a provider.
//
// Request timeouts, conflicts, rate limits and server-side errors are
// transient. Client errors such as bad credentials or malformed requests
// are not.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// transportError wraps a pre-response failure (DNS, connection reset,
// context deadline) as a retryable [ProviderError], unless the context was
// cancelled by the caller.
func transportError(provider string, ctx context.Context, err error) error {
	retryable := true
	if ctx.Err() != nil {
		// Caller-initiated cancellation is not worth retrying.
		retryable = false
	}
	return &ProviderError{
		Provider:  provider,
		Retryable: retryable,
		Detail:    err.Error(),
		Err:       err,
	}
}
