package agent

import (
	"fmt"

	"github.com/umair-ds92/datawise-ai/code"
	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/model"
)

// Canonical agent names of the default analysis team.
const (
	NamePlanner      = "Data_Analyzer"
	NameExecutor     = "Code_Executor"
	NameVisualizer   = "Visualization_Specialist"
	NameStatistician = "Statistics_Analyst"
)

// TeamOptions configure the marker protocol shared by every agent of the
// default team. The markers also appear in the agents' instructions so the
// model is told the same protocol the reply parser expects.
type TeamOptions struct {
	// TerminationMarker overrides DefaultTerminationMarker, typically from
	// config.Config.TerminationMarker.
	TerminationMarker string
	// HandoffPrefix overrides DefaultHandoffPrefix.
	HandoffPrefix string
}

// DefaultTeam builds the standard four-agent analysis team wired with the
// default handoff graph: the planner hands analysis code to the executor,
// the executor always returns control to the planner, and the specialist
// agents hand their generated code to the executor.
func DefaultTeam(llm model.Model, exec code.Executor, optFns ...func(o *TeamOptions)) *Registry {
	team := TeamOptions{
		TerminationMarker: DefaultTerminationMarker,
		HandoffPrefix:     DefaultHandoffPrefix,
	}
	for _, fn := range optFns {
		fn(&team)
	}

	handoffLine := fmt.Sprintf("Hand the code to %s with a %s line. ", NameExecutor, team.HandoffPrefix)

	planner := NewModelAgent(NamePlanner, llm, func(o *ModelAgentOptions) {
		o.Capability = core.CapabilityPlanning
		o.Handoffs = []string{NameExecutor, NameVisualizer, NameStatistician}
		o.TerminationMarker = team.TerminationMarker
		o.HandoffPrefix = team.HandoffPrefix
		o.Instruction = "You are Data_Analyzer, the planning agent of a data-analysis team. " +
			"Break the user's question into executable Python steps, write code in fenced blocks, " +
			"and interpret execution results. " + handoffLine +
			fmt.Sprintf("When the question is fully answered, state the answer and include the word %s.",
				team.TerminationMarker)
	})
	executor := NewExecutorAgent(NameExecutor, exec, func(o *ExecutorAgentOptions) {
		o.Handoffs = []string{NamePlanner}
		o.HandoffAfterRun = NamePlanner
	})
	visualizer := NewModelAgent(NameVisualizer, llm, func(o *ModelAgentOptions) {
		o.Capability = core.CapabilityVisualization
		o.Handoffs = []string{NameExecutor}
		o.TerminationMarker = team.TerminationMarker
		o.HandoffPrefix = team.HandoffPrefix
		o.Instruction = "You are Visualization_Specialist. Produce matplotlib code in fenced blocks " +
			"that renders the requested chart and saves it to a file. " + handoffLine
	})
	statistician := NewModelAgent(NameStatistician, llm, func(o *ModelAgentOptions) {
		o.Capability = core.CapabilityStatistics
		o.Handoffs = []string{NameExecutor}
		o.TerminationMarker = team.TerminationMarker
		o.HandoffPrefix = team.HandoffPrefix
		o.Instruction = "You are Statistics_Analyst. Produce Python code in fenced blocks that computes " +
			"the requested statistics (correlation, regression, hypothesis tests). " + handoffLine
	})

	return MustNewRegistry(planner, executor, visualizer, statistician)
}
