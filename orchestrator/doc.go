// Package orchestrator drives multi-agent conversations end to end. Each
// conversation runs in its own goroutine: the loop selects a speaker, invokes
// it with a retry budget, records cost, persists the updated state and asks
// the termination evaluator for a verdict, repeating until an outcome is
// reached. The orchestrator also fronts the result cache, so a repeated query
// over the same data returns without touching any backend.
package orchestrator
