package core

import "time"

// OutcomeKind enumerates the ways a conversation can terminate. Exactly one
// outcome is attached to a finished conversation.
type OutcomeKind string

const (
	// OutcomeMaxRounds means the configured round budget was exhausted.
	OutcomeMaxRounds OutcomeKind = "max_rounds_reached"
	// OutcomeGoalSatisfied means an agent declared the task complete.
	OutcomeGoalSatisfied OutcomeKind = "goal_satisfied"
	// OutcomeFatalError means an unrecoverable agent or tooling failure.
	OutcomeFatalError OutcomeKind = "fatal_error"
	// OutcomeCostExceeded means a session or daily cost threshold was crossed.
	OutcomeCostExceeded OutcomeKind = "cost_threshold_exceeded"
	// OutcomeCancelled means an external cancellation signal was received.
	OutcomeCancelled OutcomeKind = "user_cancelled"
)

// Outcome records why a conversation terminated. Reason carries the
// human-readable cause (the declaring agent for GoalSatisfied, the failure
// cause for FatalError, the crossed threshold for CostExceeded).
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Reason    string      `json:"reason,omitempty"`
	DecidedAt time.Time   `json:"decided_at"`
}

// NewOutcome constructs an outcome stamped with the current time.
func NewOutcome(kind OutcomeKind, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason, DecidedAt: time.Now().UTC()}
}

// Success reports whether the outcome represents a completed answer rather
// than a failure or cancellation. Only successful outcomes are cached.
func (o Outcome) Success() bool { return o.Kind == OutcomeGoalSatisfied }
