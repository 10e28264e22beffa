// Package tba is a client for The Blue Alliance API v3 with a persisted
// response cache and offline fallback.
package tba

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/tba/cache"
)

const (
	DefaultBaseURL = "https://www.thebluealliance.com/api/v3"
	AuthHeader     = "X-TBA-Auth-Key"
	UserAgent      = "tba-go/1.0"
)

// Fetch outcomes reported to a Recorder.
const (
	OutcomeForcedCache   = "forced_cache"
	OutcomeNotModified   = "not_modified"
	OutcomeRefreshed     = "refreshed"
	OutcomeStaleFallback = "stale_fallback"
	OutcomeOffline       = "offline"
	OutcomeNetwork       = "network"
)

// Recorder receives one outcome per fetch that reached a decision.
type Recorder interface {
	Observe(outcome string)
}

type Client struct {
	http    *http.Client
	baseURL *url.URL
	authKey string

	store      cache.Store // optional; nil means no caching
	forceCache bool
	multiplier float64

	log      zerolog.Logger
	recorder Recorder
	now      func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(strings.TrimRight(raw, "/")); err == nil {
			c.baseURL = u
		}
	}
}

// WithStore enables caching. Without it every fetch goes to the network.
func WithStore(s cache.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithForceCache makes every fetch with a cache entry skip the network.
func WithForceCache(force bool) Option {
	return func(c *Client) { c.forceCache = force }
}

// WithCacheMultiplier widens (or narrows) how long past max-age a cached
// body may stand in for an unreachable origin. Non-positive values are
// ignored.
func WithCacheMultiplier(m float64) Option {
	return func(c *Client) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(authKey string, opts ...Option) (*Client, error) {
	if authKey == "" {
		return nil, errors.New("auth key required")
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:       http.DefaultClient,
		baseURL:    u,
		authKey:    authKey,
		multiplier: 1,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Caching reports whether a store is configured.
func (c *Client) Caching() bool {
	return c.store != nil
}

func (c *Client) observe(outcome string) {
	if c.recorder != nil {
		c.recorder.Observe(outcome)
	}
}
