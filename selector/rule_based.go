package selector

import (
	"context"
	"strings"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/core"
)

// defaultRoutingRules map keyword groups to the capability that should handle
// the request, checked in order. Visualization and statistics are checked
// before execution so "run a regression plot" routes to the specialist that
// writes the code rather than the agent that executes it.
var defaultRoutingRules = []RoutingRule{
	{
		Capability: core.CapabilityVisualization,
		Keywords:   []string{"plot", "chart", "graph", "visualize", "visualization", "show me"},
	},
	{
		Capability: core.CapabilityStatistics,
		Keywords:   []string{"correlation", "regression", "t-test", "anova", "mean", "median", "std", "statistical"},
	},
	{
		Capability: core.CapabilityExecution,
		Keywords:   []string{"run", "execute", "error", "traceback", "install"},
	},
	{
		Capability: core.CapabilityPlanning,
		Keywords:   []string{"analyze", "data", "dataset", "csv", "load", "read"},
	},
}

// RoutingRule routes messages containing any of its keywords to agents with
// the given capability.
type RoutingRule struct {
	Capability core.Capability
	Keywords   []string
}

func (r RoutingRule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// RuleBased routes the conversation by keyword-matching the most recent
// message against capability rules. When several registered agents share the
// matched capability, the least recently used one is picked so no agent
// starves. With no rule match it falls back to a planning agent, then to
// round-robin order.
type RuleBased struct {
	rules []RoutingRule
}

// RuleBasedOptions configure a RuleBased selector.
type RuleBasedOptions struct {
	// Rules override the default keyword routing table.
	Rules []RoutingRule
}

// NewRuleBased constructs the rule-based policy.
func NewRuleBased(optFns ...func(o *RuleBasedOptions)) *RuleBased {
	opts := RuleBasedOptions{Rules: defaultRoutingRules}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RuleBased{rules: opts.Rules}
}

// Name implements Selector.
func (*RuleBased) Name() string { return "rule_based" }

// Next implements Selector.
func (s *RuleBased) Next(ctx context.Context, state *core.ConversationState, reg *agent.Registry) (core.Agent, error) {
	if target, err := resolveHandoff(state, reg); target != nil || err != nil {
		return target, err
	}

	last, ok := state.Last()
	if ok {
		text := strings.ToLower(last.Text())
		for _, rule := range s.rules {
			if !rule.matches(text) {
				continue
			}
			candidates := reg.ByCapability(rule.Capability)
			// A matched rule with no registered agent falls through to
			// the next rule rather than failing the run.
			if len(candidates) == 0 {
				continue
			}
			return leastRecentlyUsed(state, candidates), nil
		}
	}

	if planners := reg.ByCapability(core.CapabilityPlanning); len(planners) > 0 {
		return leastRecentlyUsed(state, planners), nil
	}
	agents := reg.Agents()
	if len(agents) == 0 {
		return nil, core.ErrNoEligibleAgent
	}
	return leastRecentlyUsed(state, agents), nil
}
