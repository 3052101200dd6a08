package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/model"
)

// ModelDriven asks the language-model backend to pick the next speaker from
// the registry's identity list. The returned identity is validated strictly
// against the registry; anything else fails the run immediately with an
// invalid-selection error. The raw model output is never trusted.
type ModelDriven struct {
	llm model.Model
	// historyWindow bounds how many trailing messages are shown to the
	// model when asking for the next speaker.
	historyWindow int
}

// ModelDrivenOptions configure a ModelDriven selector.
type ModelDrivenOptions struct {
	HistoryWindow int
}

// NewModelDriven constructs the model-driven policy.
func NewModelDriven(llm model.Model, optFns ...func(o *ModelDrivenOptions)) *ModelDriven {
	opts := ModelDrivenOptions{HistoryWindow: 10}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelDriven{llm: llm, historyWindow: opts.HistoryWindow}
}

// Name implements Selector.
func (*ModelDriven) Name() string { return "model_driven" }

// Next implements Selector.
func (s *ModelDriven) Next(ctx context.Context, state *core.ConversationState, reg *agent.Registry) (core.Agent, error) {
	if target, err := resolveHandoff(state, reg); target != nil || err != nil {
		return target, err
	}

	names := reg.Names()
	if len(names) == 0 {
		return nil, core.ErrNoEligibleAgent
	}

	resp, err := s.llm.Generate(ctx, model.Request{
		Instructions: "You coordinate a team of data-analysis agents. Given the conversation, reply with " +
			"exactly one name from the candidate list: the agent best suited to act next. Reply with the " +
			"name only.",
		Messages: append(s.transcript(state), model.ChatMessage{
			Role:    "user",
			Content: fmt.Sprintf("Candidates: %s. Who speaks next?", strings.Join(names, ", ")),
		}),
	})
	if err != nil {
		return nil, err
	}

	identity := strings.TrimSpace(resp.Text)
	next, ok := reg.Get(identity)
	if !ok {
		return nil, &core.SelectionError{Identity: identity}
	}
	return next, nil
}

func (s *ModelDriven) transcript(state *core.ConversationState) []model.ChatMessage {
	messages := state.Messages()
	if len(messages) > s.historyWindow {
		messages = messages[len(messages)-s.historyWindow:]
	}
	out := make([]model.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Text() == "" {
			continue
		}
		out = append(out, model.ChatMessage{
			Role:    "user",
			Content: fmt.Sprintf("[%s] %s", m.Author, m.Text()),
		})
	}
	return out
}
