package testutil

import (
	"github.com/umair-ds92/datawise-ai/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder("Data_Analyzer").Text("plan ready").Handoff("Code_Executor").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	author       string
	text         string
	data         map[string]any
	handoff      *string
	final        bool
	failed       bool
	failureCause *string
	usage        core.Usage
}

// NewMessageBuilder creates a builder for a message authored by the given
// agent.
func NewMessageBuilder(author string) *MessageBuilder {
	return &MessageBuilder{author: author}
}

// Text sets the plain-text payload (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder { b.text = t; return b }

// Data sets a structured result payload (chainable).
func (b *MessageBuilder) Data(d map[string]any) *MessageBuilder { b.data = d; return b }

// Handoff requests explicit transfer to the named agent (chainable).
func (b *MessageBuilder) Handoff(target string) *MessageBuilder { b.handoff = &target; return b }

// Final flags the message as a goal-satisfied declaration (chainable).
func (b *MessageBuilder) Final() *MessageBuilder { b.final = true; return b }

// Failed flags the message as a recoverable failure (chainable).
func (b *MessageBuilder) Failed() *MessageBuilder { b.failed = true; return b }

// Fatal flags the message as an unrecoverable failure with a cause (chainable).
func (b *MessageBuilder) Fatal(cause string) *MessageBuilder { b.failureCause = &cause; return b }

// Cost sets the usage cost in USD (chainable).
func (b *MessageBuilder) Cost(usd float64) *MessageBuilder { b.usage.Cost = usd; return b }

// Usage sets the full usage delta (chainable).
func (b *MessageBuilder) Usage(u core.Usage) *MessageBuilder { b.usage = u; return b }

// Build returns the constructed message. Seq is left for Append to assign.
func (b *MessageBuilder) Build() core.Message {
	m := core.NewResultMessage(b.author, b.text, b.data)
	m.Usage = b.usage
	if b.handoff != nil {
		m = m.WithHandoff(*b.handoff)
	}
	if b.final {
		m = m.WithFinal()
	}
	if b.failed {
		m = m.WithFailed()
	}
	if b.failureCause != nil {
		m = m.WithFailureCause(*b.failureCause)
	}
	return m
}
