package tba

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/briangreenhill/tba/cache"
)

type fetchOptions struct {
	forceNew   bool
	forceCache bool
}

// FetchOption adjusts a single fetch.
type FetchOption func(*fetchOptions)

// ForceNew bypasses the cache lookup. The response is still cached.
func ForceNew() FetchOption {
	return func(o *fetchOptions) { o.forceNew = true }
}

// ForceCache answers from an existing cache entry without touching the
// network.
func ForceCache() FetchOption {
	return func(o *fetchOptions) { o.forceCache = true }
}

// response is a fully read origin reply
type response struct {
	status int
	header http.Header
	body   []byte
}

// Fetch returns the decoded JSON value for path. See FetchRaw for the
// cache policy.
func (c *Client) Fetch(ctx context.Context, path string, opts ...FetchOption) (any, error) {
	raw, err := c.FetchRaw(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", NormalizePath(path), ErrParse)
	}
	return v, nil
}

// FetchRaw returns the JSON body for path, consulting the store first when
// one is configured:
//
//   - no entry, or ForceNew: unconditional GET, cache the result
//   - forced cache: cached body, no network
//   - otherwise a conditional GET; 304 returns the cached body, a new body
//     replaces the entry, and a transport failure falls back to the cached
//     body while now <= requested_at + max_age*multiplier
//
// An empty body ([] or null) is reported as ErrEmptyResult, after caching.
func (c *Client) FetchRaw(ctx context.Context, path string, opts ...FetchOption) (json.RawMessage, error) {
	path = NormalizePath(path)
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if c.store != nil && !o.forceNew {
		entry, err := c.store.Get(ctx, path)
		switch {
		case errors.Is(err, cache.ErrNotFound):
			// fall through to the network-only path
		case err != nil:
			return nil, fmt.Errorf("read cache for %s: %w", path, err)
		default:
			return c.revalidate(ctx, path, entry, o.forceCache || c.forceCache)
		}
	}

	resp, err := c.get(ctx, path, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Debug().Str("path", path).Err(err).Msg("offline, nothing cached")
		c.observe(OutcomeOffline)
		return nil, fmt.Errorf("GET %s: %w: %v", path, ErrOffline, err)
	}
	c.log.Debug().Str("path", path).Msg("no cache available, pulled new data")
	return c.accept(ctx, path, resp, OutcomeNetwork)
}

// revalidate always requests path itself, never the path recorded in entry
func (c *Client) revalidate(ctx context.Context, path string, entry *cache.Entry, forceCache bool) (json.RawMessage, error) {
	if forceCache {
		c.log.Debug().Str("path", path).Msg("forcing read from cache")
		c.observe(OutcomeForcedCache)
		return cached(entry)
	}

	resp, err := c.get(ctx, path, entry.LastModified)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		expiry := entry.ExpiresAt(c.multiplier)
		if !c.now().After(expiry) {
			c.log.Debug().Str("path", path).Time("expires", expiry).Err(err).Msg("offline, reading from cache")
			c.observe(OutcomeStaleFallback)
			return cached(entry)
		}
		c.log.Debug().Str("path", path).Time("expired", expiry).Err(err).Msg("offline, cache expired")
		c.observe(OutcomeOffline)
		return nil, fmt.Errorf("GET %s: %w: %v", path, ErrOffline, err)
	}

	if resp.status == http.StatusNotModified {
		// requested_at is left alone; only a full refresh moves it
		c.log.Debug().Str("path", path).Msg("304 not modified, reading from cache")
		c.observe(OutcomeNotModified)
		return cached(entry)
	}

	c.log.Debug().Str("path", path).Int("status", resp.status).Msg("data modified, ignoring cache")
	return c.accept(ctx, path, resp, OutcomeRefreshed)
}

// accept validates a non-304 reply and stores it when caching is enabled
func (c *Client) accept(ctx context.Context, path string, resp *response, outcome string) (json.RawMessage, error) {
	if resp.status < 200 || resp.status > 299 {
		return nil, &StatusError{Path: path, StatusCode: resp.status, Body: strings.TrimSpace(string(resp.body))}
	}

	body := bytes.TrimSpace(resp.body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: %w", path, ErrParse)
	}

	if c.store != nil {
		entry := &cache.Entry{
			Path:         path,
			Body:         json.RawMessage(body),
			RequestedAt:  c.now().UTC(),
			LastModified: resp.header.Get("Last-Modified"),
			MaxAge:       MaxAge(resp.header.Get("Cache-Control")),
		}
		if err := c.store.Put(ctx, entry); err != nil {
			return nil, fmt.Errorf("write cache for %s: %w", path, err)
		}
	}
	c.observe(outcome)

	if isEmpty(body) {
		return nil, fmt.Errorf("GET %s: %w", path, ErrEmptyResult)
	}
	return json.RawMessage(body), nil
}

func cached(entry *cache.Entry) (json.RawMessage, error) {
	if isEmpty(entry.Body) {
		return nil, fmt.Errorf("cached %s: %w", entry.Path, ErrEmptyResult)
	}
	return entry.Body, nil
}

// get performs one GET and reads the whole body. Any failure to do so,
// including a broken body stream, is reported as a transport error.
func (c *Client) get(ctx context.Context, path, ifModifiedSince string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String()+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(AuthHeader, c.authKey)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if ifModifiedSince != "" {
		req.Header.Set("If-Modified-Since", ifModifiedSince)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// NormalizePath ensures path starts with a single leading slash.
func NormalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// MaxAge extracts the max-age directive from a Cache-Control value. It
// returns "" when the directive is absent.
func MaxAge(cacheControl string) string {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if len(directive) > len("max-age=") && strings.EqualFold(directive[:len("max-age=")], "max-age=") {
			return strings.Trim(directive[len("max-age="):], `"`)
		}
	}
	return ""
}

func isEmpty(body []byte) bool {
	body = bytes.TrimSpace(body)
	if bytes.Equal(body, []byte("null")) {
		return true
	}
	n := len(body)
	return n >= 2 && body[0] == '[' && body[n-1] == ']' && len(bytes.TrimSpace(body[1:n-1])) == 0
}
