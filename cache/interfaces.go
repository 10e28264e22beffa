// Package cache persists Blue Alliance responses keyed by request path,
// together with the validators needed for conditional refreshes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no entry exists for a request path
	ErrNotFound = errors.New("cache entry not found")
)

// TimeFormat is the layout used for the requested_at text column.
const TimeFormat = time.RFC3339Nano

// Entry represents the last accepted response for one request path
type Entry struct {
	Path         string          `json:"request_path"`
	Body         json.RawMessage `json:"response_body"`
	RequestedAt  time.Time       `json:"requested_at"`
	LastModified string          `json:"last_modified"`
	MaxAge       string          `json:"max_age"`
}

// MaxAgeSeconds returns the freshness duration in seconds. An empty or
// malformed max-age counts as zero.
func (e *Entry) MaxAgeSeconds() float64 {
	secs, err := strconv.ParseFloat(strings.TrimSpace(e.MaxAge), 64)
	if err != nil || secs < 0 || math.IsNaN(secs) {
		return 0
	}
	return secs
}

// ExpiresAt returns the end of the window in which the entry may stand in
// for an unreachable origin: requested_at + max_age * multiplier. Windows
// too long for a time.Duration saturate at the largest one.
func (e *Entry) ExpiresAt(multiplier float64) time.Time {
	window := e.MaxAgeSeconds() * multiplier * float64(time.Second)
	if window >= math.MaxInt64 {
		return e.RequestedAt.Add(time.Duration(math.MaxInt64))
	}
	if !(window > 0) {
		return e.RequestedAt
	}
	return e.RequestedAt.Add(time.Duration(window))
}

// Reader defines the interface for reading cache entries
type Reader interface {
	// Get returns the entry for path, or ErrNotFound
	Get(ctx context.Context, path string) (*Entry, error)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Put inserts or replaces the entry keyed by entry.Path
	Put(ctx context.Context, entry *Entry) error
}

// Store is the main interface that combines all cache operations.
// Implementations provide atomic insert-or-replace per path and nothing
// more: two writers racing on the same path resolve as last writer wins.
type Store interface {
	Reader
	Writer
	Close() error
}
