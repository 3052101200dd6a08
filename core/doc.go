// Package core defines the shared data model of the DataWise orchestrator:
// messages, conversation state, termination outcomes, resource usage and the
// error taxonomy. Everything else in the module is built on these types.
//
// The central invariants live here and are enforced at the data-structure
// level rather than by convention:
//   - a ConversationState's round count always equals the number of
//     agent-authored messages in its log
//   - its cumulative cost always equals the sum of the per-message usage deltas
//   - once a termination outcome is attached, no further messages can be
//     appended (terminal finality)
package core
