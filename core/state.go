package core

import (
	"sync"
	"time"
)

// ConversationState is the full state of one conversation: the append-only
// message log plus the derived counters the scheduler needs. It is owned
// exclusively by a single orchestrator run while active and persisted as a
// snapshot between runs. Safe for concurrent read access; Append and
// SetOutcome serialize writers internally.
//
// Invariants (enforced, not assumed):
//   - Rounds() == number of agent-authored messages
//   - Cost() == sum of message usage deltas
//   - Append after SetOutcome fails with ErrConversationClosed
//   - messages are never reordered; Seq equals position in the log
type ConversationState struct {
	ID      string    `json:"id"`
	Query   string    `json:"query"`
	DataRef string    `json:"data_ref,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	messages []Message
	rounds   int
	usage    Usage
	pending  *string
	outcome  *Outcome

	mu sync.RWMutex
}

// NewConversationState creates a fresh conversation for the given query. The
// query is recorded as the seq-0 user message so agents receive it as
// history.
func NewConversationState(id, query, dataRef string) *ConversationState {
	now := time.Now().UTC()
	s := &ConversationState{ID: id, Query: query, DataRef: dataRef, Created: now, Updated: now}
	user := NewUserMessage(query)
	user.Seq = 0
	s.messages = []Message{user}
	return s
}

// RestoredConversationState rebuilds a state from a persisted snapshot.
// Counters are recomputed from the log rather than trusted from storage so a
// corrupted snapshot cannot violate the invariants silently.
func RestoredConversationState(id, query, dataRef string, created, updated time.Time, messages []Message, outcome *Outcome) *ConversationState {
	s := &ConversationState{ID: id, Query: query, DataRef: dataRef, Created: created, Updated: updated}
	s.messages = make([]Message, len(messages))
	copy(s.messages, messages)
	for _, m := range s.messages {
		if m.IsAgentAuthored() {
			s.rounds++
		}
		s.usage = s.usage.Add(m.Usage)
	}
	if n := len(s.messages); n > 0 {
		s.pending = s.messages[n-1].Handoff
	}
	s.outcome = outcome
	return s
}

// Append adds a message to the log, assigns its sequence index and updates
// round count, cumulative usage and the pending handoff target. Appending to
// a terminated conversation fails.
func (s *ConversationState) Append(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != nil {
		return ErrConversationClosed
	}
	m.Seq = len(s.messages)
	s.messages = append(s.messages, m)
	if m.IsAgentAuthored() {
		s.rounds++
	}
	s.usage = s.usage.Add(m.Usage)
	s.pending = m.Handoff
	s.Updated = time.Now().UTC()
	return nil
}

// SetOutcome attaches the termination outcome, closing the conversation.
// A second call fails: terminal state is final.
func (s *ConversationState) SetOutcome(o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != nil {
		return ErrConversationClosed
	}
	s.outcome = &o
	s.Updated = time.Now().UTC()
	return nil
}

// Outcome returns the termination outcome, or nil while the conversation is
// still open.
func (s *ConversationState) Outcome() *Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outcome == nil {
		return nil
	}
	o := *s.outcome
	return &o
}

// Terminated reports whether an outcome has been set.
func (s *ConversationState) Terminated() bool { return s.Outcome() != nil }

// Rounds returns the number of agent-authored messages.
func (s *ConversationState) Rounds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rounds
}

// Cost returns the cumulative cost of the conversation so far.
func (s *ConversationState) Cost() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage.Cost
}

// Usage returns the cumulative resource usage of the conversation.
func (s *ConversationState) Usage() Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}

// PendingHandoff returns the handoff target carried by the most recent
// message, or nil when the next speaker is unconstrained.
func (s *ConversationState) PendingHandoff() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return nil
	}
	t := *s.pending
	return &t
}

// Messages returns a copy of the log in append order.
func (s *ConversationState) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message and whether one exists.
func (s *ConversationState) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LastActed returns the sequence index of the given agent's most recent
// message, or -1 if it has not acted. Used for least-recently-used
// fairness in selection tie-breaks.
func (s *ConversationState) LastActed(agent string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Author == agent {
			return s.messages[i].Seq
		}
	}
	return -1
}

// Clone returns a deep copy safe for independent mutation, used by session
// managers to hand out snapshots without aliasing internal slices.
func (s *ConversationState) Clone() *ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &ConversationState{
		ID:      s.ID,
		Query:   s.Query,
		DataRef: s.DataRef,
		Created: s.Created,
		Updated: s.Updated,
		rounds:  s.rounds,
		usage:   s.usage,
	}
	c.messages = make([]Message, len(s.messages))
	copy(c.messages, s.messages)
	if s.pending != nil {
		t := *s.pending
		c.pending = &t
	}
	if s.outcome != nil {
		o := *s.outcome
		c.outcome = &o
	}
	return c
}

// FinalAnswer returns the text of the most recent goal-satisfied message, or
// the last agent message text when none was flagged final.
func (s *ConversationState) FinalAnswer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].IsFinal() {
			return s.messages[i].Text()
		}
	}
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].IsAgentAuthored() {
			return s.messages[i].Text()
		}
	}
	return ""
}
