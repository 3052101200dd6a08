package testutil

import (
	"github.com/umair-ds92/datawise-ai/core"
)

// StateBuilder helps construct conversation states with fluent chaining for
// tests. Example:
//
//	state := NewStateBuilder("s1").Query("top sellers").Messages(m1, m2).Build()
type StateBuilder struct {
	id       string
	query    string
	dataRef  string
	messages []core.Message
}

// NewStateBuilder creates a new builder for a conversation with the given id.
// Use chainable methods (Query, DataRef, Message, Messages) then call Build.
func NewStateBuilder(id string) *StateBuilder {
	return &StateBuilder{id: id, query: "test query"}
}

// Query sets the initiating user query (chainable).
func (b *StateBuilder) Query(q string) *StateBuilder { b.query = q; return b }

// DataRef sets the dataset reference (chainable).
func (b *StateBuilder) DataRef(ref string) *StateBuilder { b.dataRef = ref; return b }

// Message appends a single message to the log (chainable).
func (b *StateBuilder) Message(m core.Message) *StateBuilder {
	b.messages = append(b.messages, m)
	return b
}

// Messages appends multiple messages to the log (chainable).
func (b *StateBuilder) Messages(ms ...core.Message) *StateBuilder {
	b.messages = append(b.messages, ms...)
	return b
}

// Build returns a *core.ConversationState with the messages appended in
// order. Build panics if a message cannot be appended; tests construct open
// conversations only.
func (b *StateBuilder) Build() *core.ConversationState {
	s := core.NewConversationState(b.id, b.query, b.dataRef)
	for _, m := range b.messages {
		if err := s.Append(m); err != nil {
			panic(err)
		}
	}
	return s
}
