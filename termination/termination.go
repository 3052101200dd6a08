// Package termination decides when a conversation must stop. The Evaluator
// is a composite predicate over conversation state and the cost ledger,
// checked after every appended message. Evaluation is deterministic and free
// of side effects: the same state and ledger readings always produce the
// same verdict, in a fixed rule order where the first match wins.
package termination

import (
	"fmt"

	"github.com/umair-ds92/datawise-ai/core"
)

// Ledger is the read side of the cost tracker the evaluator consults.
type Ledger interface {
	SessionTotal(sessionID string) float64
	DailyTotal() float64
}

// Options configure an Evaluator. Zero-valued limits disable the
// corresponding rule.
type Options struct {
	// MaxRounds bounds agent-authored messages per conversation.
	MaxRounds int
	// SessionCostLimit bounds cumulative session cost in USD.
	SessionCostLimit float64
	// DailyCostLimit bounds the shared daily ledger in USD.
	DailyCostLimit float64
	// MaxConsecutiveFailures bounds trailing recoverable failures before
	// the conversation is declared fatally stuck.
	MaxConsecutiveFailures int
}

// Evaluator applies the termination rules in fixed priority order:
// round budget, cost thresholds, goal declaration, unrecoverable failure,
// external cancellation.
type Evaluator struct {
	opts   Options
	ledger Ledger
}

// NewEvaluator constructs an Evaluator over the given ledger.
func NewEvaluator(ledger Ledger, optFns ...func(o *Options)) *Evaluator {
	opts := Options{
		MaxRounds:              15,
		MaxConsecutiveFailures: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Evaluator{opts: opts, ledger: ledger}
}

// Evaluate returns the termination outcome for the current state, or nil to
// continue. cancelled reports whether an external cancellation signal has
// been observed by the caller.
func (e *Evaluator) Evaluate(state *core.ConversationState, cancelled bool) *core.Outcome {
	if e.opts.MaxRounds > 0 && state.Rounds() >= e.opts.MaxRounds {
		o := core.NewOutcome(core.OutcomeMaxRounds,
			fmt.Sprintf("round budget of %d exhausted", e.opts.MaxRounds))
		return &o
	}

	if e.opts.SessionCostLimit > 0 {
		if total := e.ledger.SessionTotal(state.ID); total >= e.opts.SessionCostLimit {
			o := core.NewOutcome(core.OutcomeCostExceeded,
				fmt.Sprintf("session cost %.4f reached limit %.4f", total, e.opts.SessionCostLimit))
			return &o
		}
	}
	if e.opts.DailyCostLimit > 0 {
		if total := e.ledger.DailyTotal(); total >= e.opts.DailyCostLimit {
			o := core.NewOutcome(core.OutcomeCostExceeded,
				fmt.Sprintf("daily cost %.4f reached threshold %.4f", total, e.opts.DailyCostLimit))
			return &o
		}
	}

	if last, ok := state.Last(); ok {
		if last.IsFinal() {
			o := core.NewOutcome(core.OutcomeGoalSatisfied, last.Author)
			return &o
		}
		if last.IsFatal() {
			o := core.NewOutcome(core.OutcomeFatalError, *last.FailureCause)
			return &o
		}
	}
	if n := e.consecutiveFailures(state); e.opts.MaxConsecutiveFailures > 0 && n >= e.opts.MaxConsecutiveFailures {
		o := core.NewOutcome(core.OutcomeFatalError,
			fmt.Sprintf("%d consecutive failed turns", n))
		return &o
	}

	if cancelled {
		o := core.NewOutcome(core.OutcomeCancelled, "cancellation requested")
		return &o
	}

	return nil
}

// consecutiveFailures counts trailing agent-authored messages flagged as
// recoverable failures.
func (e *Evaluator) consecutiveFailures(state *core.ConversationState) int {
	messages := state.Messages()
	n := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if !messages[i].IsAgentAuthored() {
			break
		}
		if !messages[i].IsFailed() {
			break
		}
		n++
	}
	return n
}
