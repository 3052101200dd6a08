// Package selector decides which agent acts next. All policies share the
// same priority rule: an explicit pending handoff always wins and is
// validated against the acting agent's allowed-handoff set before the
// configured policy is even consulted. Selection is pure; no policy mutates
// conversation state, so re-running a selection on the same state yields the
// same agent.
package selector

import (
	"context"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/core"
)

// Selector chooses exactly one next agent given conversation state and the
// registry, or fails when no eligible agent remains.
type Selector interface {
	// Name identifies the policy for logging.
	Name() string

	// Next returns the agent that acts next. It returns a *core.HandoffError
	// for an invalid explicit handoff and a *core.SelectionError when a
	// policy yields an unregistered identity; both are fatal to the run.
	Next(ctx context.Context, state *core.ConversationState, reg *agent.Registry) (core.Agent, error)
}

// resolveHandoff applies priority rule one: if the most recent message
// carries a handoff target, the target is selected unconditionally provided
// the transfer is permitted. Returns (nil, nil) when no handoff is pending.
func resolveHandoff(state *core.ConversationState, reg *agent.Registry) (core.Agent, error) {
	pending := state.PendingHandoff()
	if pending == nil {
		return nil, nil
	}
	last, ok := state.Last()
	if !ok {
		return nil, nil
	}
	if !reg.AllowsHandoff(last.Author, *pending) {
		return nil, &core.HandoffError{From: last.Author, Target: *pending}
	}
	target, ok := reg.Get(*pending)
	if !ok {
		return nil, &core.HandoffError{From: last.Author, Target: *pending}
	}
	return target, nil
}

// leastRecentlyUsed picks the candidate whose most recent message is oldest,
// breaking remaining ties by registration order. Candidates must be
// non-empty.
func leastRecentlyUsed(state *core.ConversationState, candidates []core.Agent) core.Agent {
	best := candidates[0]
	bestSeq := state.LastActed(best.Name())
	for _, c := range candidates[1:] {
		if seq := state.LastActed(c.Name()); seq < bestSeq {
			best, bestSeq = c, seq
		}
	}
	return best
}
