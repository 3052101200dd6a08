// Package cache maps a query fingerprint to a previously completed
// conversation result so repeated questions over the same data skip the
// model and execution backends entirely. Entries are immutable: they are
// created on successful completion, returned as-is on lookup, and only ever
// replaced wholesale after an explicit invalidation.
//
// Flight coordinates concurrent requests for the same fingerprint so a miss
// never fans out into redundant full orchestrations.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/umair-ds92/datawise-ai/core"
)

// Fingerprint derives the deterministic cache key for a query over a data
// reference. The query is case-folded and whitespace-normalized so trivial
// rephrasings hit; the data identity is part of the key so the same question
// over different datasets never collides.
func Fingerprint(query, dataRef string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(dataRef)))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a stored conversation result.
type Entry struct {
	Fingerprint string           `json:"fingerprint"`
	Result      string           `json:"result"`
	Outcome     core.OutcomeKind `json:"outcome"`
	Cost        float64          `json:"cost"`
	Rounds      int              `json:"rounds"`
	CachedAt    time.Time        `json:"cached_at"`
}

// Store is the cache persistence contract.
type Store interface {
	// Lookup returns the entry for a fingerprint and whether one exists.
	Lookup(ctx context.Context, fingerprint string) (Entry, bool, error)

	// Store records an entry under its fingerprint, replacing any
	// previous entry wholesale.
	Store(ctx context.Context, entry Entry) error

	// Invalidate removes the entry for a fingerprint. Invalidating a
	// missing fingerprint is not an error.
	Invalidate(ctx context.Context, fingerprint string) error
}
