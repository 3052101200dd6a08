package cache

import (
	"context"
	"testing"
	"time"

	"github.com/umair-ds92/datawise-ai/core"
)

func TestFingerprint_NormalizesQuery(t *testing.T) {
	a := Fingerprint("What are the top sellers?", "sales.csv")
	b := Fingerprint("  what   are the TOP sellers?  ", "sales.csv")
	if a != b {
		t.Error("case and whitespace variants should share a fingerprint")
	}

	if Fingerprint("q", "sales.csv") == Fingerprint("q", "other.csv") {
		t.Error("different data references must not collide")
	}
	if Fingerprint("q1", "d") == Fingerprint("q2", "d") {
		t.Error("different queries must not collide")
	}
}

func TestInMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	entry := Entry{
		Fingerprint: Fingerprint("q", "d"),
		Result:      "42",
		Outcome:     core.OutcomeGoalSatisfied,
		Cost:        0.5,
		Rounds:      3,
		CachedAt:    time.Now().UTC(),
	}
	if err := s.Store(ctx, entry); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, ok, err := s.Lookup(ctx, entry.Fingerprint)
	if err != nil || !ok {
		t.Fatalf("lookup = ok %v err %v", ok, err)
	}
	if got.Result != "42" || got.Rounds != 3 {
		t.Errorf("entry mismatch: %+v", got)
	}

	if err := s.Invalidate(ctx, entry.Fingerprint); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, ok, _ := s.Lookup(ctx, entry.Fingerprint); ok {
		t.Error("entry should be gone after invalidation")
	}
	// Invalidating a missing fingerprint is not an error.
	if err := s.Invalidate(ctx, "missing"); err != nil {
		t.Errorf("invalidate of missing entry errored: %v", err)
	}
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore(func(o *InMemoryStoreOptions) {
		o.TTL = time.Hour
		o.Now = func() time.Time { return now }
	})

	entry := Entry{Fingerprint: "fp", Result: "r", CachedAt: now}
	if err := s.Store(ctx, entry); err != nil {
		t.Fatal(err)
	}

	now = now.Add(59 * time.Minute)
	if _, ok, _ := s.Lookup(ctx, "fp"); !ok {
		t.Error("entry expired before its TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Lookup(ctx, "fp"); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(t.TempDir() + "/cache.db")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer s.Close()

	entry := Entry{
		Fingerprint: Fingerprint("q", "d"),
		Result:      "answer",
		Outcome:     core.OutcomeGoalSatisfied,
		Cost:        1.25,
		Rounds:      5,
		CachedAt:    time.Now().UTC(),
	}
	if err := s.Store(ctx, entry); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, ok, err := s.Lookup(ctx, entry.Fingerprint)
	if err != nil || !ok {
		t.Fatalf("lookup = ok %v err %v", ok, err)
	}
	if got.Result != "answer" || got.Cost != 1.25 || got.Rounds != 5 {
		t.Errorf("entry mismatch: %+v", got)
	}
	if got.Outcome != core.OutcomeGoalSatisfied {
		t.Errorf("outcome mismatch: %q", got.Outcome)
	}

	// Replacing an entry is a wholesale overwrite.
	entry.Result = "revised"
	if err := s.Store(ctx, entry); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Lookup(ctx, entry.Fingerprint)
	if got.Result != "revised" {
		t.Errorf("overwrite not applied: %q", got.Result)
	}
}

func TestFlight_LeaderAndFollowers(t *testing.T) {
	f := NewFlight()

	leader, _ := f.Begin("fp")
	if !leader {
		t.Fatal("first caller should lead")
	}

	follower, done := f.Begin("fp")
	if follower {
		t.Fatal("second caller must not lead while the first is in flight")
	}
	select {
	case <-done:
		t.Fatal("follower channel closed before leader finished")
	default:
	}

	f.End("fp")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follower not released after End")
	}

	// The fingerprint is free again.
	if leader, _ := f.Begin("fp"); !leader {
		t.Error("fingerprint should be leadable after End")
	}
}
