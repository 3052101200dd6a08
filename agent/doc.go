// Package agent provides the participants of a DataWise conversation: the
// Registry holding the fixed set of agents for a run, the model-backed
// ModelAgent (planner, visualizer, statistician), the ExecutorAgent that
// feeds code blocks to the sandboxed execution backend, and the default
// four-agent analysis team.
//
// Handoff validity is checked statically at registration time: every declared
// handoff target must itself be registered and no agent may hand off to
// itself.
package agent
