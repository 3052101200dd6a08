package core

import (
	"time"

	"github.com/google/uuid"
)

// RoleUser is the author identity of the initiating query message. All other
// authors are registered agent names. User messages do not count as rounds.
const RoleUser = "user"

// Usage is the resource delta attributable to producing a single message.
// Cost is denominated in USD; token counts are zero for non-model turns
// (e.g. code execution results).
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// Add returns the sum of two usage deltas.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		Cost:             u.Cost + o.Cost,
	}
}

// Content is the payload of a message: free text and/or structured result
// references (e.g. execution output, produced chart paths).
type Content struct {
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Message is one turn in a conversation. After being appended to a
// ConversationState it must be treated as immutable. Seq is assigned on
// append and is monotonic within the conversation.
//
// Optional fields use pointers so absence can be distinguished from the zero
// value when snapshots are serialized:
//   - Handoff requests explicit transfer of the next turn to a named agent
//   - Final marks the message as a goal-satisfied declaration
//   - Failed marks a recoverable failure reported by the producing agent
//     (e.g. code exited non-zero); repeated failures trip the termination
//     evaluator's failure budget
//   - FailureCause marks an unrecoverable failure and carries its cause
type Message struct {
	ID           string    `json:"id"`
	Seq          int       `json:"seq"`
	Author       string    `json:"author"`
	Content      *Content  `json:"content,omitempty"`
	Handoff      *string   `json:"handoff,omitempty"`
	Final        *bool     `json:"final,omitempty"`
	Failed       *bool     `json:"failed,omitempty"`
	FailureCause *string   `json:"failure_cause,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Usage        Usage     `json:"usage"`
}

// NewMessage creates a bare message authored by the given agent. Seq is left
// unset; ConversationState.Append assigns it.
func NewMessage(author string) Message {
	return Message{ID: NewID(), Author: author, Timestamp: time.Now().UTC()}
}

// NewTextMessage creates an agent-authored text message.
func NewTextMessage(author, text string) Message {
	m := NewMessage(author)
	m.Content = &Content{Text: text}
	return m
}

// NewUserMessage creates the initiating user query message.
func NewUserMessage(query string) Message {
	return NewTextMessage(RoleUser, query)
}

// NewResultMessage creates an agent-authored message carrying structured
// result references alongside optional text.
func NewResultMessage(author, text string, data map[string]any) Message {
	m := NewMessage(author)
	m.Content = &Content{Text: text, Data: data}
	return m
}

// WithHandoff returns a copy of the message carrying an explicit handoff
// request targeting the named agent.
func (m Message) WithHandoff(target string) Message {
	m.Handoff = &target
	return m
}

// WithFinal returns a copy of the message flagged as a goal-satisfied
// declaration.
func (m Message) WithFinal() Message {
	f := true
	m.Final = &f
	return m
}

// WithFailed returns a copy of the message flagged as a recoverable failure.
func (m Message) WithFailed() Message {
	f := true
	m.Failed = &f
	return m
}

// WithFailureCause returns a copy of the message flagged as an unrecoverable
// failure with the given cause.
func (m Message) WithFailureCause(cause string) Message {
	m.FailureCause = &cause
	return m
}

// Text returns the plain-text payload, or "" for data-only messages.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.Text
}

// IsFinal reports whether the producing agent declared the goal satisfied.
func (m Message) IsFinal() bool { return m.Final != nil && *m.Final }

// IsFailed reports whether the message records a recoverable failure.
func (m Message) IsFailed() bool { return m.Failed != nil && *m.Failed }

// IsFatal reports whether the message records an unrecoverable failure.
func (m Message) IsFatal() bool { return m.FailureCause != nil }

// IsAgentAuthored reports whether the message counts as a round.
func (m Message) IsAgentAuthored() bool { return m.Author != RoleUser }

// NewID generates a unique identifier for messages and sessions.
func NewID() string { return uuid.NewString() }
