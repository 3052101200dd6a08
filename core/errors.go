package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the module. Match with errors.Is.
var (
	// ErrSessionNotFound is returned by session managers when no snapshot
	// exists for the requested session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when a second run attempts to acquire a
	// session that is already exclusively owned by an in-flight run.
	ErrSessionBusy = errors.New("session busy: owned by another run")

	// ErrConversationClosed is returned when a message is appended after a
	// termination outcome has been set.
	ErrConversationClosed = errors.New("conversation already terminated")

	// ErrNoEligibleAgent is returned by selectors when the registry yields
	// no agent to act, a fatal scheduling condition.
	ErrNoEligibleAgent = errors.New("no eligible agent to act")
)

// SelectionError reports that a selection policy produced an identity that is
// not in the agent registry. Immediately fatal; never retried.
type SelectionError struct {
	Identity string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid selection: %q is not a registered agent", e.Identity)
}

// HandoffError reports an explicit handoff to a target that the acting agent
// is not permitted to transfer to. It is surfaced as a fatal error, never
// silently replaced by default selection.
type HandoffError struct {
	From   string
	Target string
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("invalid handoff: %q may not transfer to %q", e.From, e.Target)
}

// TransientError wraps a retryable backend failure (transport hiccup,
// deadline). The orchestrator retries these up to the configured budget
// before classifying the turn as fatal.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// FatalAgentError wraps an unrecoverable backend failure attributed to a
// named agent, including a transient failure whose retry budget is spent.
type FatalAgentError struct {
	Agent string
	Err   error
}

func (e *FatalAgentError) Error() string {
	return fmt.Sprintf("agent %s failed fatally: %v", e.Agent, e.Err)
}

func (e *FatalAgentError) Unwrap() error { return e.Err }
