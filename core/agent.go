package core

import "context"

// Capability tags what kind of work an agent does. The rule-based selector
// routes requests by capability.
type Capability string

const (
	// CapabilityPlanning plans the analysis and interprets results.
	CapabilityPlanning Capability = "planning"
	// CapabilityExecution runs code in the sandboxed execution backend.
	CapabilityExecution Capability = "execution"
	// CapabilityVisualization produces chart-generation code.
	CapabilityVisualization Capability = "visualization"
	// CapabilityStatistics produces statistical-analysis code.
	CapabilityStatistics Capability = "statistics"
)

// Agent is a conversation participant. Identity, capability and the allowed
// handoff set are immutable once the agent is registered for a run.
//
// Invoke produces exactly one message given the conversation so far. A nil
// error with a message is the normal path; a TransientError is retried by the
// orchestrator; any other error is classified fatal. Implementations must
// honor ctx cancellation and deadlines.
type Agent interface {
	// Name returns the agent's unique identity within a registry.
	Name() string

	// Capability returns the agent's declared capability tag.
	Capability() Capability

	// Handoffs returns the ordered list of agent names this agent may
	// explicitly transfer control to. Must not contain the agent itself.
	Handoffs() []string

	// Invoke produces the agent's next message given the conversation state.
	Invoke(ctx context.Context, state *ConversationState) (Message, error)
}
