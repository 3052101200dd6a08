package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/umair-ds92/datawise-ai/cache"
	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/logging"
)

// runConversation owns one conversation from lease acquisition to terminal
// outcome. It runs in its own goroutine; all communication with callers goes
// through the run record.
func (o *Orchestrator) runConversation(ctx context.Context, r *run, log *logging.ConversationLogger) {
	leader := o.awaitFlight(ctx, r, log)
	if leader {
		defer o.flight.End(r.fingerprint)
	}
	select {
	case <-r.done:
		// Resolved from cache while waiting on the in-flight leader.
		return
	default:
	}

	if err := o.sessions.Acquire(r.sessionID); err != nil {
		log.Error("session acquisition failed", "error", err)
		r.finish(Result{SessionID: r.sessionID, State: StateFailed})
		return
	}
	defer o.sessions.Release(r.sessionID)

	r.setPhase(StateRunning)
	log.Info("conversation started",
		"query", r.state.Query,
		"policy", o.sel.Name(),
		"max_rounds", o.cfg.MaxRounds,
	)

	state := r.state
	for {
		if outcome := o.eval.Evaluate(state, r.cancelled.Load()); outcome != nil {
			o.conclude(ctx, r, *outcome, log)
			return
		}

		next, err := o.sel.Next(ctx, state, o.registry)
		if err != nil {
			log.Error("selection failed", "error", err)
			o.conclude(ctx, r, core.NewOutcome(core.OutcomeFatalError, err.Error()), log)
			return
		}
		log.Debug("speaker selected", "agent", next.Name(), "round", state.Rounds()+1)

		msg, err := o.invokeWithRetry(ctx, next, state, log)
		if err != nil {
			// Retry budget spent or the failure was never retryable.
			// Record it as a fatal turn so the outcome carries the cause.
			msg = core.NewTextMessage(next.Name(), "").WithFailureCause(err.Error())
		}

		o.costs.Record(r.sessionID, msg.Usage)
		if err := state.Append(msg); err != nil {
			log.Error("append failed", "error", err)
			o.conclude(ctx, r, core.NewOutcome(core.OutcomeFatalError, err.Error()), log)
			return
		}
		if err := o.sessions.Save(ctx, state); err != nil {
			log.Error("save failed", "error", err)
			o.conclude(ctx, r, core.NewOutcome(core.OutcomeFatalError, err.Error()), log)
			return
		}

		log.Debug("turn recorded",
			"agent", msg.Author,
			"round", state.Rounds(),
			"cost", state.Cost(),
			"failed", msg.IsFailed(),
		)
	}
}

// awaitFlight coordinates concurrent requests sharing a fingerprint. The
// returned flag reports whether this run is the leader and must End the
// flight. A follower that resolves from cache finishes the run before
// returning.
func (o *Orchestrator) awaitFlight(ctx context.Context, r *run, log *logging.ConversationLogger) bool {
	for {
		leader, leaderDone := o.flight.Begin(r.fingerprint)
		if leader {
			return true
		}
		if !o.cfg.WaitForInflight {
			log.Debug("proceeding alongside in-flight run", "fingerprint", r.fingerprint)
			return false
		}

		log.Debug("waiting on in-flight run", "fingerprint", r.fingerprint)
		<-leaderDone

		if r.cancelled.Load() {
			return false
		}
		if !o.cfg.CacheEnabled {
			continue
		}
		entry, ok, err := o.cache.Lookup(ctx, r.fingerprint)
		if err != nil {
			log.Warn("cache lookup failed", "error", err)
			continue
		}
		if !ok {
			// The leader did not produce a cacheable result; run in full.
			continue
		}
		log.Info("resolved from in-flight run", "fingerprint", r.fingerprint)
		r.finish(Result{
			SessionID: r.sessionID,
			State:     StateCompleted,
			Answer:    entry.Result,
			Outcome:   &core.Outcome{Kind: entry.Outcome, DecidedAt: entry.CachedAt},
			Rounds:    entry.Rounds,
			Cost:      entry.Cost,
			Cached:    true,
		})
		return false
	}
}

// invokeWithRetry runs a single agent turn under the configured timeout,
// retrying transient failures with doubling backoff. Retries do not consume
// rounds; only the message finally appended does.
func (o *Orchestrator) invokeWithRetry(ctx context.Context, a core.Agent, state *core.ConversationState, log *logging.ConversationLogger) (core.Message, error) {
	var lastErr error
	backoff := o.cfg.RetryBackoff

	for attempt := 0; attempt <= o.cfg.RetryBudget; attempt++ {
		if attempt > 0 {
			log.Warn("retrying agent invocation",
				"agent", a.Name(),
				"attempt", attempt,
				"error", lastErr,
			)
			if backoff > 0 {
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return core.Message{}, ctx.Err()
				}
				backoff *= 2
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AgentTimeout)
		msg, err := a.Invoke(attemptCtx, state)
		cancel()
		if err == nil {
			return msg, nil
		}

		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return core.Message{}, &core.FatalAgentError{Agent: a.Name(), Err: lastErr}
}

// retryable treats explicit transient classifications and per-attempt
// timeouts as retry-worthy; everything else fails the turn immediately.
func retryable(err error) bool {
	return core.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

// conclude attaches the outcome, persists the final snapshot, caches a
// successful answer and publishes the result.
func (o *Orchestrator) conclude(ctx context.Context, r *run, outcome core.Outcome, log *logging.ConversationLogger) {
	state := r.state
	if err := state.SetOutcome(outcome); err != nil {
		log.Error("outcome already set", "error", err)
	}
	if err := o.sessions.Save(ctx, state); err != nil {
		log.Error("final save failed", "error", err)
	}

	answer := state.FinalAnswer()
	if o.cfg.CacheEnabled && outcome.Success() {
		entry := cache.Entry{
			Fingerprint: r.fingerprint,
			Result:      answer,
			Outcome:     outcome.Kind,
			Cost:        state.Cost(),
			Rounds:      state.Rounds(),
			CachedAt:    time.Now().UTC(),
		}
		if err := o.cache.Store(ctx, entry); err != nil {
			log.Warn("cache store failed", "error", err)
		}
	}

	result := Result{
		SessionID: r.sessionID,
		State:     terminalState(outcome.Kind),
		Answer:    answer,
		Outcome:   &outcome,
		Rounds:    state.Rounds(),
		Cost:      state.Cost(),
	}
	log.Info("conversation finished",
		"state", string(result.State),
		"outcome", string(outcome.Kind),
		"reason", outcome.Reason,
		"rounds", result.Rounds,
		"cost", result.Cost,
	)
	r.finish(result)
}

// terminalState maps a termination outcome to the run's lifecycle state.
func terminalState(kind core.OutcomeKind) State {
	switch kind {
	case core.OutcomeGoalSatisfied:
		return StateCompleted
	case core.OutcomeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}
