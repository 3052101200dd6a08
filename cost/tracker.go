// Package cost accumulates per-session and per-day resource usage. The
// termination evaluator consults it to enforce spending thresholds and
// callers read it for reporting.
package cost

import (
	"sort"
	"sync"
	"time"

	"github.com/umair-ds92/datawise-ai/core"
)

// DayTotal is an archived daily aggregate.
type DayTotal struct {
	Day   string  `json:"day"` // YYYY-MM-DD (UTC)
	Total float64 `json:"total"`
}

// accumulator is a single running total with its own lock so unrelated
// sessions never contend on one global mutex.
type accumulator struct {
	mu    sync.Mutex
	usage core.Usage
}

func (a *accumulator) add(delta core.Usage) {
	a.mu.Lock()
	a.usage = a.usage.Add(delta)
	a.mu.Unlock()
}

func (a *accumulator) total() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage.Cost
}

// Tracker is the cost ledger shared across all sessions. Recording is
// additive and monotonic within a session. Daily totals are keyed by UTC
// calendar day; crossing the boundary starts a fresh accumulator while past
// days remain readable via History.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*accumulator
	days     map[string]*accumulator

	// now is a clock hook for tests.
	now func() time.Time
}

// TrackerOptions configure a Tracker.
type TrackerOptions struct {
	// Now overrides the clock, mainly for day-boundary tests.
	Now func() time.Time
}

// NewTracker constructs an empty Tracker.
func NewTracker(optFns ...func(o *TrackerOptions)) *Tracker {
	opts := TrackerOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tracker{
		sessions: make(map[string]*accumulator),
		days:     make(map[string]*accumulator),
		now:      opts.Now,
	}
}

func (t *Tracker) day() string { return t.now().UTC().Format("2006-01-02") }

func (t *Tracker) acc(m map[string]*accumulator, key string) *accumulator {
	t.mu.RLock()
	a, ok := m[key]
	t.mu.RUnlock()
	if ok {
		return a
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok = m[key]; ok {
		return a
	}
	a = &accumulator{}
	m[key] = a
	return a
}

// Record adds a usage delta to the session's ledger and to today's ledger.
func (t *Tracker) Record(sessionID string, delta core.Usage) {
	t.acc(t.sessions, sessionID).add(delta)
	t.acc(t.days, t.day()).add(delta)
}

// SessionTotal returns the cumulative cost recorded for a session.
func (t *Tracker) SessionTotal(sessionID string) float64 {
	t.mu.RLock()
	a, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return a.total()
}

// SessionUsage returns the cumulative usage recorded for a session.
func (t *Tracker) SessionUsage(sessionID string) core.Usage {
	t.mu.RLock()
	a, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		return core.Usage{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// DailyTotal returns the cost recorded across all sessions today (UTC).
func (t *Tracker) DailyTotal() float64 {
	t.mu.RLock()
	a, ok := t.days[t.day()]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return a.total()
}

// History returns archived totals for past days, oldest first. Today is
// excluded; it is still accumulating.
func (t *Tracker) History() []DayTotal {
	today := t.day()
	t.mu.RLock()
	out := make([]DayTotal, 0, len(t.days))
	for day, a := range t.days {
		if day == today {
			continue
		}
		out = append(out, DayTotal{Day: day, Total: a.total()})
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
