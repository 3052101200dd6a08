package cache

import "sync"

// Flight tracks in-flight conversations per fingerprint so that at most one
// full orchestration runs for a given fingerprint at a time. The first
// caller becomes the leader; later callers receive a channel that closes
// when the leader finishes and can then re-check the cache, or proceed
// independently if so configured. Duplicate work is never started silently.
type Flight struct {
	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewFlight constructs an empty Flight.
func NewFlight() *Flight {
	return &Flight{inflight: make(map[string]chan struct{})}
}

// Begin registers interest in a fingerprint. leader is true for the caller
// that should perform the work; followers get done, closed when the leader
// calls End.
func (f *Flight) Begin(fingerprint string) (leader bool, done <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.inflight[fingerprint]; ok {
		return false, ch
	}
	ch := make(chan struct{})
	f.inflight[fingerprint] = ch
	return true, ch
}

// End marks the leader's work complete, releasing any waiting followers.
// Calling End for a fingerprint with no in-flight work is a no-op.
func (f *Flight) End(fingerprint string) {
	f.mu.Lock()
	ch, ok := f.inflight[fingerprint]
	delete(f.inflight, fingerprint)
	f.mu.Unlock()
	if ok {
		close(ch)
	}
}
