package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/umair-ds92/datawise-ai/code"
	"github.com/umair-ds92/datawise-ai/core"
)

// ExecutorAgentOptions configure an ExecutorAgent.
type ExecutorAgentOptions struct {
	// Handoffs is the ordered allowed-handoff set.
	Handoffs []string
	// HandoffAfterRun, when set, attaches an explicit handoff to every
	// result message so control returns to the planner (the original
	// executor always handed back for interpretation).
	HandoffAfterRun string
}

// ExecutorAgent runs fenced code blocks from the most recent message through
// the execution backend and reports the combined output as its turn. A
// snippet that exits non-zero flags the message as a recoverable failure;
// the termination evaluator's failure budget decides when repeated failures
// become fatal.
type ExecutorAgent struct {
	name string
	exec code.Executor
	opts ExecutorAgentOptions
}

// NewExecutorAgent creates an execution agent backed by the given executor.
func NewExecutorAgent(name string, exec code.Executor, optFns ...func(o *ExecutorAgentOptions)) *ExecutorAgent {
	opts := ExecutorAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ExecutorAgent{name: name, exec: exec, opts: opts}
}

// Name implements core.Agent.
func (a *ExecutorAgent) Name() string { return a.name }

// Capability implements core.Agent.
func (a *ExecutorAgent) Capability() core.Capability { return core.CapabilityExecution }

// Handoffs implements core.Agent.
func (a *ExecutorAgent) Handoffs() []string { return a.opts.Handoffs }

// Invoke implements core.Agent.
func (a *ExecutorAgent) Invoke(ctx context.Context, state *core.ConversationState) (core.Message, error) {
	last, ok := state.Last()
	if !ok {
		return core.Message{}, fmt.Errorf("executor %s: empty conversation", a.name)
	}

	blocks := code.ExtractBlocks(last.Text())
	if len(blocks) == 0 {
		msg := core.NewTextMessage(a.name, "No code blocks found to execute.")
		return a.withHandoff(msg), nil
	}

	var out strings.Builder
	data := map[string]any{"snippets": len(blocks)}
	failed := false
	for i, snippet := range blocks {
		res, err := a.exec.Run(ctx, snippet)
		if err != nil {
			// Backend failure, not a snippet failure: let the
			// orchestrator's retry / fatal classification handle it.
			return core.Message{}, fmt.Errorf("executor %s: %w", a.name, err)
		}
		fmt.Fprintf(&out, "--- snippet %d (exit %d) ---\n%s\n", i+1, res.ExitCode, res.Output)
		data[fmt.Sprintf("exit_code_%d", i+1)] = res.ExitCode
		if !res.OK() {
			failed = true
		}
	}

	msg := core.NewResultMessage(a.name, strings.TrimSpace(out.String()), data)
	if failed {
		msg = msg.WithFailed()
	}
	return a.withHandoff(msg), nil
}

func (a *ExecutorAgent) withHandoff(msg core.Message) core.Message {
	if a.opts.HandoffAfterRun != "" {
		return msg.WithHandoff(a.opts.HandoffAfterRun)
	}
	return msg
}
