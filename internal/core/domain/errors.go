package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates a missing or invalid required setting.
	// Configuration errors are fatal and abort before any document is touched.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingTitle indicates the agent response had no TITLE label.
	// The title is the only field the parser requires.
	ErrMissingTitle = errors.New("agent response missing title")

	// ErrMalformedResponse indicates the agent response contained none of
	// the expected labels and cannot be interpreted at all.
	ErrMalformedResponse = errors.New("agent response malformed")

	// ErrNoContent indicates a document has no OCR content to analyze.
	ErrNoContent = errors.New("document has no OCR content")
)

// AgentErrorKind classifies agent subprocess failures.
type AgentErrorKind string

// Available agent failure kinds.
const (
	// AgentTimeout means the subprocess exceeded the configured timeout
	// and was terminated.
	AgentTimeout AgentErrorKind = "timeout"

	// AgentExitError means the subprocess ran but returned a nonzero exit code.
	AgentExitError AgentErrorKind = "exit_error"

	// AgentLaunchFailure means the subprocess could not be started at all.
	AgentLaunchFailure AgentErrorKind = "launch_failure"
)

// AgentError is a typed failure from an agent invocation. Agent errors are
// retried a bounded number of times per document and never abort the batch.
type AgentError struct {
	// Kind classifies the failure.
	Kind AgentErrorKind

	// ExitCode is the subprocess exit code for exit errors.
	ExitCode int

	// Stderr is the captured standard error output, when any.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	switch e.Kind {
	case AgentTimeout:
		return "agent timed out"
	case AgentExitError:
		msg := fmt.Sprintf("agent exited with code %d", e.ExitCode)
		if e.Stderr != "" {
			msg += ": " + e.Stderr
		}
		return msg
	case AgentLaunchFailure:
		return fmt.Sprintf("agent failed to launch: %v", e.Err)
	default:
		return fmt.Sprintf("agent failure: %v", e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// StoreErrorKind classifies document store failures.
type StoreErrorKind string

// Available store failure kinds.
const (
	// StoreAuthFailure means the store rejected the API token (401/403).
	// Not retried; surfaced immediately.
	StoreAuthFailure StoreErrorKind = "auth_failure"

	// StoreUnavailable means a transient failure (timeout, 429, 5xx).
	// Read requests are retried with bounded exponential backoff; writes
	// are not re-sent.
	StoreUnavailable StoreErrorKind = "unavailable"

	// StoreBadRequest means the store rejected the request payload (4xx).
	StoreBadRequest StoreErrorKind = "bad_request"

	// StoreNotFound means the requested resource does not exist.
	StoreNotFound StoreErrorKind = "not_found"
)

// StoreError is a typed failure from the document store client.
type StoreError struct {
	// Kind classifies the failure.
	Kind StoreErrorKind

	// StatusCode is the HTTP status, 0 for transport errors.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("document store: %s (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("document store: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is transient.
func (e *StoreError) Retryable() bool {
	return e.Kind == StoreUnavailable
}
