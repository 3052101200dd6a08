package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/cost"
	"github.com/umair-ds92/datawise-ai/model"
)

// Default markers agents embed in replies to signal orchestration intent.
const (
	// DefaultTerminationMarker declares the goal satisfied when present in
	// a reply.
	DefaultTerminationMarker = "TERMINATE"
	// DefaultHandoffPrefix starts a line naming the agent to hand off to,
	// e.g. "HANDOFF: Code_Executor".
	DefaultHandoffPrefix = "HANDOFF:"
)

// ModelAgentOptions configure a ModelAgent.
type ModelAgentOptions struct {
	// Instruction is the system prompt for the agent.
	Instruction string
	// Capability tags the agent for rule-based routing.
	Capability core.Capability
	// Handoffs is the ordered allowed-handoff set.
	Handoffs []string
	// TerminationMarker overrides DefaultTerminationMarker.
	TerminationMarker string
	// HandoffPrefix overrides DefaultHandoffPrefix.
	HandoffPrefix string
	// MaxHistoryMessages bounds the conversation window sent to the model.
	// Zero means unbounded.
	MaxHistoryMessages int
}

// ModelAgent produces its turn by sending the conversation history to a
// language-model backend and interpreting orchestration markers in the reply.
// The reply's token usage is priced into the message's usage delta so cost
// accounting needs no provider-specific knowledge downstream.
type ModelAgent struct {
	name string
	llm  model.Model
	opts ModelAgentOptions
}

// NewModelAgent creates a model-backed agent.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        fmt.Sprintf("You are %s, a data-analysis assistant.", name),
		Capability:         core.CapabilityPlanning,
		TerminationMarker:  DefaultTerminationMarker,
		HandoffPrefix:      DefaultHandoffPrefix,
		MaxHistoryMessages: 20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelAgent{name: name, llm: llm, opts: opts}
}

// Name implements core.Agent.
func (a *ModelAgent) Name() string { return a.name }

// Capability implements core.Agent.
func (a *ModelAgent) Capability() core.Capability { return a.opts.Capability }

// Handoffs implements core.Agent.
func (a *ModelAgent) Handoffs() []string { return a.opts.Handoffs }

// Invoke implements core.Agent. Transport failures from the backend pass
// through unchanged so the orchestrator can distinguish transient from fatal.
func (a *ModelAgent) Invoke(ctx context.Context, state *core.ConversationState) (core.Message, error) {
	req := model.Request{
		Instructions: a.opts.Instruction,
		Messages:     a.buildHistory(state),
	}

	resp, err := a.llm.Generate(ctx, req)
	if err != nil {
		return core.Message{}, err
	}

	text, handoff, final := a.parseReply(resp.Text)

	msg := core.NewTextMessage(a.name, text)
	msg.Usage = core.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Cost:             cost.Estimate(a.llm.Info().Name, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}
	if handoff != "" {
		msg = msg.WithHandoff(handoff)
	}
	if final {
		msg = msg.WithFinal()
	}
	return msg, nil
}

// buildHistory converts the message log into provider-neutral chat messages.
// The agent's own messages map to the assistant role, everything else to the
// user role, so each agent sees the conversation from its own perspective.
func (a *ModelAgent) buildHistory(state *core.ConversationState) []model.ChatMessage {
	messages := state.Messages()
	if n := a.opts.MaxHistoryMessages; n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}

	history := make([]model.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Author == a.name {
			role = "assistant"
		}
		content := m.Text()
		if m.IsAgentAuthored() && m.Author != a.name {
			content = fmt.Sprintf("[%s] %s", m.Author, content)
		}
		if content == "" {
			continue
		}
		history = append(history, model.ChatMessage{Role: role, Content: content})
	}
	return history
}

// parseReply strips orchestration markers from the reply and returns the
// remaining text, the handoff target (if any) and the goal-satisfied flag.
func (a *ModelAgent) parseReply(reply string) (text, handoff string, final bool) {
	lines := strings.Split(reply, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, a.opts.HandoffPrefix); ok {
			handoff = strings.TrimSpace(rest)
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")
	if strings.Contains(text, a.opts.TerminationMarker) {
		final = true
		text = strings.TrimSpace(strings.ReplaceAll(text, a.opts.TerminationMarker, ""))
	}
	return strings.TrimSpace(text), handoff, final
}
