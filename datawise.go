// Package datawise provides a high-level façade over the conversation
// orchestrator for multi-agent data analysis. Most applications interact with
// this package by:
//  1. Building an agent team (agent.DefaultTeam or a custom registry)
//  2. Creating a DataWise via New() (optionally overriding default in-memory
//     stores, the selection policy or the configuration)
//  3. Asking questions with Ask and collecting answers with Result
//
// The façade delegates orchestration to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply the SQLite
// stores, a structured logger and environment-driven configuration.
package datawise

import (
	"context"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/cache"
	"github.com/umair-ds92/datawise-ai/config"
	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/cost"
	"github.com/umair-ds92/datawise-ai/logging"
	"github.com/umair-ds92/datawise-ai/orchestrator"
	"github.com/umair-ds92/datawise-ai/selector"
	"github.com/umair-ds92/datawise-ai/session"
)

// Options configures the DataWise instance.
type Options struct {
	// Selector overrides the speaker selection policy named by the
	// configuration.
	Selector selector.Selector

	// Sessions persists conversation state (defaults to in-memory).
	Sessions session.Manager

	// Cache stores completed answers (defaults to in-memory).
	Cache cache.Store

	// Costs is the shared spending ledger (defaults to a fresh tracker).
	Costs *cost.Tracker

	// Config carries limits and policies (defaults to config.Default()).
	Config *config.Config

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// DataWise is the high-level façade aggregating the orchestrator and its
// services.
type DataWise struct {
	orch *orchestrator.Orchestrator
}

// New creates a DataWise over the given agent registry with optional
// overrides. Any unset service is initialized with an in-memory
// implementation.
func New(registry *agent.Registry, optFns ...func(o *Options)) (*DataWise, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	orch, err := orchestrator.New(registry, func(o *orchestrator.Options) {
		o.Selector = opts.Selector
		o.Sessions = opts.Sessions
		o.Cache = opts.Cache
		o.Costs = opts.Costs
		o.Config = opts.Config
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}
	return &DataWise{orch: orch}, nil
}

// Ask starts an asynchronous conversation answering the query over the data
// reference and returns its session id. Pair with Result to collect the
// answer, or with Status/Cancel to observe and stop the run.
func (d *DataWise) Ask(ctx context.Context, query, dataRef string) (string, error) {
	return d.orch.StartConversation(ctx, query, dataRef, "")
}

// AskSession is Ask with a caller-chosen session id, useful for idempotent
// request handling. Repeating an identical call while the session is running
// returns the same id; a conflicting query or data reference for a running
// session fails with core.ErrSessionBusy. A persisted session id resumes the
// stored conversation.
func (d *DataWise) AskSession(ctx context.Context, query, dataRef, sessionID string) (string, error) {
	return d.orch.StartConversation(ctx, query, dataRef, sessionID)
}

// Status returns a point-in-time view of a run.
func (d *DataWise) Status(sessionID string) (orchestrator.Status, error) {
	return d.orch.GetStatus(sessionID)
}

// Result blocks until the run terminates or ctx expires.
func (d *DataWise) Result(ctx context.Context, sessionID string) (orchestrator.Result, error) {
	return d.orch.GetResult(ctx, sessionID)
}

// Cancel requests cooperative cancellation of a run.
func (d *DataWise) Cancel(sessionID string) error {
	return d.orch.Cancel(sessionID)
}

// InvalidateCache drops the cached answer for a query over a data reference.
func (d *DataWise) InvalidateCache(ctx context.Context, query, dataRef string) error {
	return d.orch.InvalidateCache(ctx, query, dataRef)
}

// CostHistory returns archived per-day spending totals.
func (d *DataWise) CostHistory() []cost.DayTotal { return d.orch.CostHistory() }

// SessionCost returns the cumulative usage recorded for a session.
func (d *DataWise) SessionCost(sessionID string) core.Usage {
	return d.orch.SessionCost(sessionID)
}
