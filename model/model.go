package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ChatMessage is one provider-neutral conversation entry. Role is "system",
// "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized model input built by agents.
type Request struct {
	Instructions string        `json:"instructions"`
	Messages     []ChatMessage `json:"messages"`
}

// TokenUsage reports the token counts of one generation.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the completed reply for a Request.
type Response struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// Info describes a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Model is the minimal interface agents use to drive generation. Generate
// must honor ctx deadlines; implementations wrap retryable transport
// failures in core.Transient so the orchestrator's retry policy applies.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns metadata about the model implementation.
	Info() Info
}

// MockModel is a deterministic in-memory Model for tests and examples.
// Replies are matched on the text of the last message; unmatched inputs get
// an echo response. Safe for concurrent use.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	queue     []string
	calls     int
}

// NewMockModel constructs an empty MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned reply for an exact last-message text.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// QueueResponses registers replies returned in order regardless of input.
// Queued replies take precedence over prompt-matched ones.
func (m *MockModel) QueueResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// Calls returns how many times Generate has been invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	var input string
	if n := len(req.Messages); n > 0 {
		input = req.Messages[n-1].Content
	}

	var text string
	switch {
	case len(m.queue) > 0:
		text = m.queue[0]
		m.queue = m.queue[1:]
	case m.responses[input] != "":
		text = m.responses[input]
	default:
		text = fmt.Sprintf("Mock response to: %s", input)
	}

	return Response{
		Text: text,
		Usage: TokenUsage{
			PromptTokens:     approxTokens(req),
			CompletionTokens: len(strings.Fields(text)),
		},
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func approxTokens(req Request) int {
	n := len(strings.Fields(req.Instructions))
	for _, msg := range req.Messages {
		n += len(strings.Fields(msg.Content))
	}
	return n
}
