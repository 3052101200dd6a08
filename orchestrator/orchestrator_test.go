package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umair-ds92/datawise-ai/agent"
	"github.com/umair-ds92/datawise-ai/code"
	"github.com/umair-ds92/datawise-ai/config"
	"github.com/umair-ds92/datawise-ai/core"
	"github.com/umair-ds92/datawise-ai/model"
	"github.com/umair-ds92/datawise-ai/selector"
	"github.com/umair-ds92/datawise-ai/session"
)

func testConfig(mutate ...func(*config.Config)) *config.Config {
	cfg := config.Default()
	cfg.RetryBackoff = 0
	cfg.AgentTimeout = 5 * time.Second
	for _, fn := range mutate {
		fn(cfg)
	}
	return cfg
}

func analysisTeam(t *testing.T, replies ...string) (*agent.Registry, *model.MockModel, *code.MockExecutor) {
	t.Helper()
	llm := model.NewMockModel("mock-gpt", "mock")
	llm.QueueResponses(replies...)
	exec := &code.MockExecutor{Results: []code.Result{{Output: "15.75\n"}}}
	return agent.DefaultTeam(llm, exec), llm, exec
}

func TestOrchestrator_HappyPath(t *testing.T) {
	ctx := context.Background()
	reg, llm, exec := analysisTeam(t,
		"Computing the average.\n```python\nprint((3+7+11+42)/4)\n```\nHANDOFF: Code_Executor",
		"The average is 15.75. TERMINATE",
	)
	o, err := New(reg, func(opt *Options) { opt.Config = testConfig() })
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "What is the average of 3, 7, 11 and 42?", "", "")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "The average is 15.75.", result.Answer)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, core.OutcomeGoalSatisfied, result.Outcome.Kind)
	assert.Equal(t, 3, result.Rounds, "planner, executor and final answer")
	assert.False(t, result.Cached)
	assert.Equal(t, 2, llm.Calls())
	assert.Equal(t, 1, exec.Calls())
}

func TestOrchestrator_CacheHitSkipsBackends(t *testing.T) {
	ctx := context.Background()
	reg, llm, _ := analysisTeam(t,
		"```python\nprint(1)\n```\nHANDOFF: Code_Executor",
		"Done. TERMINATE",
	)
	o, err := New(reg, func(opt *Options) { opt.Config = testConfig() })
	require.NoError(t, err)

	first, err := o.StartConversation(ctx, "what is the answer?", "d.csv", "")
	require.NoError(t, err)
	firstResult, err := o.GetResult(ctx, first)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, firstResult.State)
	callsAfterFirst := llm.Calls()

	// Same query modulo case and whitespace, same data.
	second, err := o.StartConversation(ctx, "  What is THE answer?  ", "d.csv", "")
	require.NoError(t, err)
	secondResult, err := o.GetResult(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, secondResult.State)
	assert.True(t, secondResult.Cached)
	assert.Equal(t, firstResult.Answer, secondResult.Answer)
	assert.Equal(t, callsAfterFirst, llm.Calls(), "cached replay must not invoke the model")
}

func TestOrchestrator_InvalidateCacheForcesRerun(t *testing.T) {
	ctx := context.Background()
	reg, llm, _ := analysisTeam(t,
		"First answer. TERMINATE",
		"Second answer. TERMINATE",
	)
	o, err := New(reg, func(opt *Options) { opt.Config = testConfig() })
	require.NoError(t, err)

	first, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	_, err = o.GetResult(ctx, first)
	require.NoError(t, err)

	require.NoError(t, o.InvalidateCache(ctx, "q", ""))

	second, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, second)
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, "Second answer.", result.Answer)
	assert.Equal(t, 2, llm.Calls())
}

func TestOrchestrator_FailedOutcomesAreNotCached(t *testing.T) {
	ctx := context.Background()
	// No queued replies: every turn echoes and never terminates.
	reg, _, _ := analysisTeam(t)
	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.MaxRounds = 2 })
	})
	require.NoError(t, err)

	first, err := o.StartConversation(ctx, "unanswerable", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, first)
	require.NoError(t, err)
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, core.OutcomeMaxRounds, result.Outcome.Kind)

	// A repeat of the failed query runs again instead of replaying failure.
	second, err := o.StartConversation(ctx, "unanswerable", "", "")
	require.NoError(t, err)
	secondResult, err := o.GetResult(ctx, second)
	require.NoError(t, err)
	assert.False(t, secondResult.Cached)
}

func TestOrchestrator_MaxRounds(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := analysisTeam(t) // unmatched prompts echo and never terminate
	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) {
			c.MaxRounds = 4
			c.CacheEnabled = false
		})
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "never done", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, core.OutcomeMaxRounds, result.Outcome.Kind)
	assert.Equal(t, 4, result.Rounds, "terminates exactly at the budget")
}

func TestOrchestrator_SessionCostLimit(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := analysisTeam(t)
	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) {
			// Any first recorded cost crosses this.
			c.PerSessionCostLimit = 0.0000001
			c.CacheEnabled = false
		})
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "expensive question", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, core.OutcomeCostExceeded, result.Outcome.Kind)
}

// flakyModel fails with transient errors a fixed number of times before
// delegating to a canned reply.
type flakyModel struct {
	mu        sync.Mutex
	failures  int
	calls     int
	transient bool
	reply     string
}

func (m *flakyModel) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		err := errors.New("upstream hiccup")
		if m.transient {
			return model.Response{}, core.Transient(err)
		}
		return model.Response{}, err
	}
	return model.Response{Text: m.reply, Usage: model.TokenUsage{PromptTokens: 1, CompletionTokens: 1}}, nil
}

func (m *flakyModel) Info() model.Info { return model.Info{Name: "flaky", Provider: "mock"} }

func TestOrchestrator_TransientFailuresAreRetried(t *testing.T) {
	ctx := context.Background()
	llm := &flakyModel{failures: 2, transient: true, reply: "Recovered. TERMINATE"}
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.RetryBudget = 3 })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 1, result.Rounds, "retries do not consume rounds")
	assert.Equal(t, 3, llm.calls)
}

func TestOrchestrator_ExhaustedRetryBudgetIsFatal(t *testing.T) {
	ctx := context.Background()
	llm := &flakyModel{failures: 10, transient: true, reply: "never reached"}
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.RetryBudget = 2 })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, core.OutcomeFatalError, result.Outcome.Kind)
	assert.Equal(t, 3, llm.calls, "initial attempt plus two retries")
}

func TestOrchestrator_NonTransientFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	llm := &flakyModel{failures: 1, transient: false, reply: "never reached"}
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.RetryBudget = 3 })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, core.OutcomeFatalError, result.Outcome.Kind)
	assert.Equal(t, 1, llm.calls)
}

func TestOrchestrator_InvalidHandoffFailsTheRun(t *testing.T) {
	ctx := context.Background()
	// The visualizer may only hand off to the executor; handing back to the
	// planner is invalid and must fail the run rather than fall back to
	// default selection.
	reg, llm, _ := analysisTeam(t,
		"Needs a chart.\nHANDOFF: Visualization_Specialist",
		"Chart code ready.\nHANDOFF: Data_Analyzer",
	)
	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.CacheEnabled = false })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "summarize the sales trend", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, core.OutcomeFatalError, result.Outcome.Kind)
	assert.Contains(t, result.Outcome.Reason, "invalid handoff")
	assert.Equal(t, 2, llm.Calls(), "the run stops at the invalid transfer")
}

func TestOrchestrator_InvalidModelSelectionIsFatal(t *testing.T) {
	ctx := context.Background()
	picker := model.NewMockModel("picker", "mock")
	picker.QueueResponses("NotARealAgent")

	reg, _, _ := analysisTeam(t)
	o, err := New(reg, func(opt *Options) {
		opt.Selector = selector.NewModelDriven(picker)
		opt.Config = testConfig()
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, core.OutcomeFatalError, result.Outcome.Kind)
	assert.Contains(t, result.Outcome.Reason, "NotARealAgent")
}

// gatedModel blocks inside Generate until released, signalling entry so tests
// can order events deterministically.
type gatedModel struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	reply   string
}

func newGatedModel(reply string) *gatedModel {
	return &gatedModel{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		reply:   reply,
	}
}

func (m *gatedModel) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	m.once.Do(func() { close(m.entered) })
	select {
	case <-m.release:
	case <-ctx.Done():
		return model.Response{}, ctx.Err()
	}
	return model.Response{Text: m.reply}, nil
}

func (m *gatedModel) Info() model.Info { return model.Info{Name: "gated", Provider: "mock"} }

func TestOrchestrator_ConflictingSessionIsBusy(t *testing.T) {
	ctx := context.Background()
	llm := newGatedModel("Done. TERMINATE")
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.CacheEnabled = false })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "q", "", "fixed-id")
	require.NoError(t, err)
	<-llm.entered

	// A different query for the running session conflicts with its owner.
	_, err = o.StartConversation(ctx, "a different q", "", "fixed-id")
	assert.ErrorIs(t, err, core.ErrSessionBusy)

	// The identical request attaches to the running conversation instead.
	again, err := o.StartConversation(ctx, "q", "", "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, sessionID, again)

	close(llm.release)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
}

func TestOrchestrator_TerminatedSessionReplaysRecordedOutcome(t *testing.T) {
	ctx := context.Background()
	reg, llm, _ := analysisTeam(t, "The answer is 42. TERMINATE")
	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.CacheEnabled = false })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "what is the answer?", "", "kept-id")
	require.NoError(t, err)
	first, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, first.State)
	calls := llm.Calls()

	// Starting the finished id again republishes the stored outcome; the
	// persisted log is neither wiped nor re-run.
	again, err := o.StartConversation(ctx, "what is the answer?", "", "kept-id")
	require.NoError(t, err)
	replay, err := o.GetResult(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, replay.State)
	assert.Equal(t, first.Answer, replay.Answer)
	assert.Equal(t, first.Rounds, replay.Rounds)
	assert.Equal(t, calls, llm.Calls(), "a finished conversation is not re-run")
}

func TestOrchestrator_ResumesPersistedSession(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewInMemoryManager()
	prior := core.NewConversationState("persisted", "summarize the sales figures", "")
	require.NoError(t, prior.Append(core.NewTextMessage(agent.NamePlanner, "Partial plan from the previous run.")))
	require.NoError(t, mgr.Save(ctx, prior))

	reg, llm, _ := analysisTeam(t, "All figures summarized. TERMINATE")
	o, err := New(reg, func(opt *Options) {
		opt.Sessions = mgr
		opt.Config = testConfig(func(c *config.Config) { c.CacheEnabled = false })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "summarize the sales figures", "", "persisted")
	require.NoError(t, err)
	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 2, result.Rounds, "the restored round counts alongside the new one")
	assert.Equal(t, "All figures summarized.", result.Answer)
	assert.Equal(t, 1, llm.Calls())

	loaded, err := mgr.Load(ctx, "persisted")
	require.NoError(t, err)
	msgs := loaded.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Partial plan from the previous run.", msgs[1].Text())
}

func TestOrchestrator_CancelFinishesInFlightTurn(t *testing.T) {
	ctx := context.Background()
	llm := newGatedModel("still working")
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.CacheEnabled = false })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "long question", "", "")
	require.NoError(t, err)
	<-llm.entered

	require.NoError(t, o.Cancel(sessionID))
	close(llm.release) // the in-flight invocation completes normally

	result, err := o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, result.State)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, core.OutcomeCancelled, result.Outcome.Kind)
	assert.Equal(t, 1, result.Rounds, "the in-flight turn was recorded before stopping")
}

func TestOrchestrator_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	llm := newGatedModel("Done. TERMINATE")
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.CacheEnabled = false })
	})
	require.NoError(t, err)

	sessionID, err := o.StartConversation(ctx, "q", "", "")
	require.NoError(t, err)
	<-llm.entered

	status, err := o.GetStatus(sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, status.State)

	close(llm.release)
	_, err = o.GetResult(ctx, sessionID)
	require.NoError(t, err)

	status, err = o.GetStatus(sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, 1, status.Rounds)

	_, err = o.GetStatus("unknown")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestOrchestrator_ConcurrentIdenticalQueriesShareOneRun(t *testing.T) {
	ctx := context.Background()
	llm := newGatedModel("Shared answer. TERMINATE")
	reg := agent.DefaultTeam(llm, &code.MockExecutor{})

	o, err := New(reg, func(opt *Options) { opt.Config = testConfig() })
	require.NoError(t, err)

	leader, err := o.StartConversation(ctx, "shared question", "", "")
	require.NoError(t, err)
	<-llm.entered

	follower, err := o.StartConversation(ctx, "shared question", "", "")
	require.NoError(t, err)
	require.NotEqual(t, leader, follower)

	// Give the follower goroutine time to join the flight before the
	// leader is released.
	time.Sleep(100 * time.Millisecond)
	close(llm.release)

	leaderResult, err := o.GetResult(ctx, leader)
	require.NoError(t, err)
	followerResult, err := o.GetResult(ctx, follower)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, leaderResult.State)
	assert.False(t, leaderResult.Cached)
	assert.Equal(t, StateCompleted, followerResult.State)
	assert.True(t, followerResult.Cached, "the follower replays the leader's answer")
	assert.Equal(t, leaderResult.Answer, followerResult.Answer)
}

func TestOrchestrator_EmptyQueryRejected(t *testing.T) {
	reg, _, _ := analysisTeam(t)
	o, err := New(reg)
	require.NoError(t, err)

	_, err = o.StartConversation(context.Background(), "", "", "")
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err, "a registry is required")

	reg, _, _ := analysisTeam(t)
	_, err = New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.MaxRounds = 0 })
	})
	assert.Error(t, err, "invalid configuration is rejected")

	_, err = New(reg, func(opt *Options) {
		opt.Config = testConfig(func(c *config.Config) { c.SelectionPolicy = config.PolicyModelDriven })
	})
	assert.Error(t, err, "model-driven policy needs an explicit selector")
}
