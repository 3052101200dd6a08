package selector

import (
	"context"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/core"
)

// RoundRobin cycles through the registry in registration order. The position
// is derived from the round count rather than internal state, so selection
// stays deterministic across process restarts of a resumed session.
type RoundRobin struct{}

// NewRoundRobin constructs the round-robin policy.
func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

// Name implements Selector.
func (*RoundRobin) Name() string { return "round_robin" }

// Next implements Selector.
func (s *RoundRobin) Next(ctx context.Context, state *core.ConversationState, reg *agent.Registry) (core.Agent, error) {
	if target, err := resolveHandoff(state, reg); target != nil || err != nil {
		return target, err
	}
	names := reg.Names()
	if len(names) == 0 {
		return nil, core.ErrNoEligibleAgent
	}
	next, _ := reg.Get(names[state.Rounds()%len(names)])
	return next, nil
}
