package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/cache"
	"github.com/umair-ds92/datawise-ai/config"
	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/cost"
	"github.com/umair-ds92/datawise-ai/logging"
	"github.com/umair-ds92/datawise-ai/selector"
	"github.com/umair-ds92/datawise-ai/session"
	"github.com/umair-ds92/datawise-ai/termination"
)

// State is the lifecycle phase of a conversation run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Status is a point-in-time view of a run.
type Status struct {
	SessionID string  `json:"session_id"`
	State     State   `json:"state"`
	Rounds    int     `json:"rounds"`
	Cost      float64 `json:"cost"`
}

// Result is the terminal output of a run.
type Result struct {
	SessionID string        `json:"session_id"`
	State     State         `json:"state"`
	Answer    string        `json:"answer,omitempty"`
	Outcome   *core.Outcome `json:"outcome,omitempty"`
	Rounds    int           `json:"rounds"`
	Cost      float64       `json:"cost"`
	Cached    bool          `json:"cached"`
}

// run is the orchestrator's bookkeeping for one conversation.
type run struct {
	sessionID   string
	fingerprint string
	state       *core.ConversationState
	cancelled   atomic.Bool
	done        chan struct{}

	mu     sync.Mutex
	phase  State
	result Result
}

func (r *run) setPhase(s State) {
	r.mu.Lock()
	r.phase = s
	r.mu.Unlock()
}

func (r *run) finish(result Result) {
	r.mu.Lock()
	r.phase = result.State
	r.result = result
	r.mu.Unlock()
	close(r.done)
}

// Options configure an Orchestrator. Every dependency has an in-process
// default so a bare New(registry) is fully functional.
type Options struct {
	// Selector is the speaker selection policy. Defaults to the policy
	// named by Config.SelectionPolicy (rule-based unless overridden).
	Selector selector.Selector

	// Sessions persists conversation state. Defaults to in-memory.
	Sessions session.Manager

	// Cache stores completed results. Defaults to in-memory; only
	// consulted when Config.CacheEnabled.
	Cache cache.Store

	// Costs is the shared cost ledger. Defaults to a fresh tracker.
	Costs *cost.Tracker

	// Config carries limits and policies. Defaults to config.Default().
	Config *config.Config

	// Logger receives structured run events. Defaults to no-op.
	Logger logging.Logger
}

// Orchestrator coordinates conversations over a fixed agent registry. Safe
// for concurrent use; each conversation is serialized by its session lease.
type Orchestrator struct {
	registry *agent.Registry
	sel      selector.Selector
	sessions session.Manager
	cache    cache.Store
	flight   *cache.Flight
	costs    *cost.Tracker
	eval     *termination.Evaluator
	cfg      *config.Config
	logger   *logging.ConversationLogger

	mu   sync.RWMutex
	runs map[string]*run
}

// New constructs an Orchestrator over the registry.
func New(registry *agent.Registry, optFns ...func(o *Options)) (*Orchestrator, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("orchestrator requires a non-empty agent registry")
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sel := opts.Selector
	if sel == nil {
		switch cfg.SelectionPolicy {
		case config.PolicyRoundRobin:
			sel = selector.NewRoundRobin()
		case config.PolicyRuleBased:
			sel = selector.NewRuleBased()
		default:
			return nil, fmt.Errorf("selection policy %q requires an explicit Selector", cfg.SelectionPolicy)
		}
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewInMemoryManager()
	}
	store := opts.Cache
	if store == nil {
		store = cache.NewInMemoryStore(func(o *cache.InMemoryStoreOptions) {
			o.TTL = cfg.CacheTTL
		})
	}
	costs := opts.Costs
	if costs == nil {
		costs = cost.NewTracker()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	eval := termination.NewEvaluator(costs, func(o *termination.Options) {
		o.MaxRounds = cfg.MaxRounds
		o.SessionCostLimit = cfg.PerSessionCostLimit
		o.DailyCostLimit = cfg.DailyCostThreshold
		o.MaxConsecutiveFailures = cfg.MaxConsecutiveFailures
	})

	return &Orchestrator{
		registry: registry,
		sel:      sel,
		sessions: sessions,
		cache:    store,
		flight:   cache.NewFlight(),
		costs:    costs,
		eval:     eval,
		cfg:      cfg,
		logger:   logging.NewConversationLogger(logger, "orchestrator"),
	}, nil
}

// StartConversation begins an asynchronous conversation for the query and
// returns its session id. An empty sessionID gets a generated one. A cache
// hit completes the run immediately without invoking any agent; concurrent
// requests for the same fingerprint are coordinated so only one full run
// executes.
//
// Calling again with a sessionID whose run is still in flight is idempotent
// when the query and data reference match: the same id is returned and the
// caller can collect the shared result. A conflicting request for a running
// session fails with core.ErrSessionBusy. A sessionID with a persisted
// snapshot resumes that conversation; if it already terminated, the recorded
// outcome is republished without re-running.
func (o *Orchestrator) StartConversation(ctx context.Context, query, dataRef, sessionID string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query must not be empty")
	}
	if sessionID == "" {
		sessionID = core.NewID()
	}
	fingerprint := cache.Fingerprint(query, dataRef)

	o.mu.Lock()
	if o.runs == nil {
		o.runs = make(map[string]*run)
	}
	if existing, ok := o.runs[sessionID]; ok {
		select {
		case <-existing.done:
		default:
			same := existing.fingerprint == fingerprint
			o.mu.Unlock()
			if same {
				return sessionID, nil
			}
			return "", core.ErrSessionBusy
		}
	}
	r := &run{
		sessionID:   sessionID,
		fingerprint: fingerprint,
		done:        make(chan struct{}),
		phase:       StateIdle,
	}
	o.runs[sessionID] = r
	o.mu.Unlock()

	log := o.logger.WithSession(sessionID)

	if o.cfg.CacheEnabled {
		if entry, ok, err := o.cache.Lookup(ctx, r.fingerprint); err != nil {
			log.Warn("cache lookup failed", "error", err)
		} else if ok {
			log.Info("cache hit", "fingerprint", r.fingerprint)
			r.finish(Result{
				SessionID: sessionID,
				State:     StateCompleted,
				Answer:    entry.Result,
				Outcome:   &core.Outcome{Kind: entry.Outcome, DecidedAt: entry.CachedAt},
				Rounds:    entry.Rounds,
				Cost:      entry.Cost,
				Cached:    true,
			})
			return sessionID, nil
		}
	}

	state, err := o.sessions.Load(ctx, sessionID)
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		if state, err = o.sessions.Create(ctx, sessionID, query, dataRef); err != nil {
			r.finish(Result{SessionID: sessionID, State: StateFailed})
			return "", fmt.Errorf("create session: %w", err)
		}
	case err != nil:
		r.finish(Result{SessionID: sessionID, State: StateFailed})
		return "", fmt.Errorf("load session: %w", err)
	case state.Terminated():
		// The id names a finished conversation. Terminal states have no
		// transitions out, so republish the recorded outcome.
		outcome := state.Outcome()
		r.state = state
		log.Info("replaying terminated session", "outcome", string(outcome.Kind))
		r.finish(Result{
			SessionID: sessionID,
			State:     terminalState(outcome.Kind),
			Answer:    state.FinalAnswer(),
			Outcome:   outcome,
			Rounds:    state.Rounds(),
			Cost:      state.Cost(),
		})
		return sessionID, nil
	default:
		// Resuming an interrupted conversation: the persisted query names
		// the conversation, so it also keys the flight and the cache.
		log.Info("resuming persisted session", "rounds", state.Rounds())
		o.mu.Lock()
		r.fingerprint = cache.Fingerprint(state.Query, state.DataRef)
		o.mu.Unlock()
	}
	r.state = state

	go o.runConversation(context.WithoutCancel(ctx), r, log)
	return sessionID, nil
}

// GetStatus returns the current status of a run.
func (o *Orchestrator) GetStatus(sessionID string) (Status, error) {
	o.mu.RLock()
	r, ok := o.runs[sessionID]
	o.mu.RUnlock()
	if !ok {
		return Status{}, core.ErrSessionNotFound
	}

	r.mu.Lock()
	phase := r.phase
	result := r.result
	r.mu.Unlock()

	status := Status{SessionID: sessionID, State: phase}
	switch {
	case r.state != nil:
		status.Rounds = r.state.Rounds()
		status.Cost = r.state.Cost()
	default:
		status.Rounds = result.Rounds
		status.Cost = result.Cost
	}
	return status, nil
}

// GetResult blocks until the run terminates (or ctx expires) and returns its
// result.
func (o *Orchestrator) GetResult(ctx context.Context, sessionID string) (Result, error) {
	o.mu.RLock()
	r, ok := o.runs[sessionID]
	o.mu.RUnlock()
	if !ok {
		return Result{}, core.ErrSessionNotFound
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, nil
}

// Cancel requests cooperative cancellation of a run. The in-flight agent
// invocation is allowed to finish; the loop observes the flag before the next
// turn. Cancelling a finished run is a no-op.
func (o *Orchestrator) Cancel(sessionID string) error {
	o.mu.RLock()
	r, ok := o.runs[sessionID]
	o.mu.RUnlock()
	if !ok {
		return core.ErrSessionNotFound
	}
	r.cancelled.Store(true)
	o.logger.WithSession(sessionID).Info("cancellation requested")
	return nil
}

// InvalidateCache removes the cached result for a query over a data
// reference, forcing the next identical request to run in full.
func (o *Orchestrator) InvalidateCache(ctx context.Context, query, dataRef string) error {
	return o.cache.Invalidate(ctx, cache.Fingerprint(query, dataRef))
}

// CostHistory returns the archived per-day cost totals.
func (o *Orchestrator) CostHistory() []cost.DayTotal { return o.costs.History() }

// SessionCost returns the cumulative usage recorded for a session.
func (o *Orchestrator) SessionCost(sessionID string) core.Usage {
	return o.costs.SessionUsage(sessionID)
}
