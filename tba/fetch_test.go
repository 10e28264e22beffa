package tba

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/tba/cache"
)

const testKey = "test-auth-key"

// origin is a mock TBA server honouring If-Modified-Since
type origin struct {
	mu           sync.Mutex
	status       int
	body         string
	lastModified string
	cacheControl string
	requests     []*http.Request
}

func newOrigin(body string) *origin {
	return &origin{
		status:       http.StatusOK,
		body:         body,
		lastModified: "Fri, 01 Mar 2024 12:00:00 GMT",
		cacheControl: "public, max-age=61",
	}
}

func (o *origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, r.Clone(context.Background()))

	if ims := r.Header.Get("If-Modified-Since"); ims != "" && ims == o.lastModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Last-Modified", o.lastModified)
	w.Header().Set("Cache-Control", o.cacheControl)
	w.WriteHeader(o.status)
	io.WriteString(w, o.body)
}

func (o *origin) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}

func (o *origin) last() *http.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests[len(o.requests)-1]
}

func (o *origin) set(body, lastModified string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.body, o.lastModified = body, lastModified
}

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// offlineTransport fails every request and counts attempts
func offlineTransport(attempts *int) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		*attempts++
		return nil, errors.New("dial tcp: network is unreachable")
	})}
}

type outcomes struct{ seen []string }

func (o *outcomes) Observe(outcome string) { o.seen = append(o.seen, outcome) }

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(testKey, append([]Option{WithBaseURL(baseURL)}, opts...)...)
	require.NoError(t, err)
	return c
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewRequiresAuthKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestFirstFetchCreatesOneEntry(t *testing.T) {
	o := newOrigin(`{"key":"frc254","team_number":254}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	clk := &clock{t: t0}
	c := newTestClient(t, srv.URL+"/api/v3", WithStore(store), WithClock(clk.now))

	v, err := c.Fetch(context.Background(), "/team/frc254")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "frc254", "team_number": float64(254)}, v)

	assert.Equal(t, 1, o.calls())
	assert.Equal(t, 1, store.Len())
	assert.Empty(t, o.last().Header.Get("If-Modified-Since"))

	entry, err := store.Get(context.Background(), "/team/frc254")
	require.NoError(t, err)
	assert.Equal(t, t0, entry.RequestedAt)
	assert.Equal(t, "Fri, 01 Mar 2024 12:00:00 GMT", entry.LastModified)
	assert.Equal(t, "61", entry.MaxAge)
}

func TestNotModifiedKeepsRequestedAt(t *testing.T) {
	o := newOrigin(`[{"key":"2024casj"}]`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	clk := &clock{t: t0}
	rec := &outcomes{}
	c := newTestClient(t, srv.URL, WithStore(store), WithClock(clk.now), WithRecorder(rec))
	ctx := context.Background()

	first, err := c.FetchRaw(ctx, "/events/2024")
	require.NoError(t, err)

	clk.advance(10 * time.Minute)
	second, err := c.FetchRaw(ctx, "/events/2024")
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, 2, o.calls())
	assert.Equal(t, "Fri, 01 Mar 2024 12:00:00 GMT", o.last().Header.Get("If-Modified-Since"))

	entry, err := store.Get(ctx, "/events/2024")
	require.NoError(t, err)
	assert.Equal(t, t0, entry.RequestedAt, "a 304 must not move requested_at")
	assert.Equal(t, []string{OutcomeNetwork, OutcomeNotModified}, rec.seen)
}

func TestModifiedResponseReplacesEntry(t *testing.T) {
	o := newOrigin(`{"current_season":2023}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	clk := &clock{t: t0}
	c := newTestClient(t, srv.URL, WithStore(store), WithClock(clk.now))
	ctx := context.Background()

	_, err := c.Fetch(ctx, "/status")
	require.NoError(t, err)

	o.set(`{"current_season":2024}`, "Sat, 02 Mar 2024 08:00:00 GMT")
	clk.advance(time.Hour)

	v, err := c.Fetch(ctx, "/status")
	require.NoError(t, err)
	assert.Equal(t, float64(2024), v.(map[string]any)["current_season"])

	entry, err := store.Get(ctx, "/status")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), entry.RequestedAt)
	assert.Equal(t, "Sat, 02 Mar 2024 08:00:00 GMT", entry.LastModified)
	assert.Equal(t, 1, store.Len())
}

func TestOfflineFallbackWindow(t *testing.T) {
	const (
		maxAge     = 60
		multiplier = 3.0
	)
	window := time.Duration(maxAge*multiplier) * time.Second

	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"fresh", 0, nil},
		{"past max-age but inside widened window", window - time.Second, nil},
		{"exactly at expiry", window, nil},
		{"just past expiry", window + time.Second, ErrOffline},
		{"long gone", 24 * time.Hour, ErrOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := cache.NewMemoryStore()
			require.NoError(t, store.Put(ctx, &cache.Entry{
				Path:         "/team/frc254",
				Body:         json.RawMessage(`{"key":"frc254"}`),
				RequestedAt:  t0,
				LastModified: "Fri, 01 Mar 2024 12:00:00 GMT",
				MaxAge:       "60",
			}))

			attempts := 0
			clk := &clock{t: t0.Add(tt.elapsed)}
			rec := &outcomes{}
			c := newTestClient(t, "http://tba.invalid/api/v3",
				WithStore(store),
				WithHTTPClient(offlineTransport(&attempts)),
				WithCacheMultiplier(multiplier),
				WithClock(clk.now),
				WithRecorder(rec),
			)

			raw, err := c.FetchRaw(ctx, "/team/frc254")
			assert.Equal(t, 1, attempts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, raw)
				assert.Equal(t, []string{OutcomeOffline}, rec.seen)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"key":"frc254"}`, string(raw))
			assert.Equal(t, []string{OutcomeStaleFallback}, rec.seen)
		})
	}
}

func TestOfflineWithEmptyMaxAge(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(ctx, &cache.Entry{
		Path:        "/status",
		Body:        json.RawMessage(`{}`),
		RequestedAt: t0,
	}))

	attempts := 0
	clk := &clock{t: t0.Add(time.Second)}
	c := newTestClient(t, "http://tba.invalid", WithStore(store),
		WithHTTPClient(offlineTransport(&attempts)), WithCacheMultiplier(100), WithClock(clk.now))

	_, err := c.FetchRaw(ctx, "/status")
	assert.ErrorIs(t, err, ErrOffline)
}

func TestOfflineWithoutEntry(t *testing.T) {
	attempts := 0
	c := newTestClient(t, "http://tba.invalid", WithStore(cache.NewMemoryStore()),
		WithHTTPClient(offlineTransport(&attempts)))

	_, err := c.Fetch(context.Background(), "/team/frc254")
	require.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, 1, attempts)
}

func TestForceCacheNeverHitsNetwork(t *testing.T) {
	ctx := context.Background()
	seed := func() cache.Store {
		store := cache.NewMemoryStore()
		require.NoError(t, store.Put(ctx, &cache.Entry{
			Path:        "/team/frc254",
			Body:        json.RawMessage(`{"key":"frc254"}`),
			RequestedAt: t0,
			MaxAge:      "1",
		}))
		return store
	}
	// far past any freshness window
	clk := &clock{t: t0.Add(365 * 24 * time.Hour)}

	t.Run("per call", func(t *testing.T) {
		attempts := 0
		c := newTestClient(t, "http://tba.invalid", WithStore(seed()),
			WithHTTPClient(offlineTransport(&attempts)), WithClock(clk.now))

		raw, err := c.FetchRaw(ctx, "team/frc254", ForceCache())
		require.NoError(t, err)
		assert.JSONEq(t, `{"key":"frc254"}`, string(raw))
		assert.Zero(t, attempts)
	})

	t.Run("client default", func(t *testing.T) {
		attempts := 0
		c := newTestClient(t, "http://tba.invalid", WithStore(seed()), WithForceCache(true),
			WithHTTPClient(offlineTransport(&attempts)), WithClock(clk.now))

		_, err := c.FetchRaw(ctx, "/team/frc254")
		require.NoError(t, err)
		assert.Zero(t, attempts)
	})

	t.Run("no entry still goes to the network", func(t *testing.T) {
		attempts := 0
		c := newTestClient(t, "http://tba.invalid", WithStore(cache.NewMemoryStore()), WithForceCache(true),
			WithHTTPClient(offlineTransport(&attempts)))

		_, err := c.FetchRaw(ctx, "/team/frc254")
		require.ErrorIs(t, err, ErrOffline)
		assert.Equal(t, 1, attempts)
	})
}

func TestEmptyResultIsCached(t *testing.T) {
	o := newOrigin(`[]`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	c := newTestClient(t, srv.URL, WithStore(store))

	_, err := c.Fetch(ctx, "/teams/99")
	require.ErrorIs(t, err, ErrEmptyResult)

	entry, err := store.Get(ctx, "/teams/99")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(entry.Body))

	// forced cache reports the cached emptiness without the network
	_, err = c.Fetch(ctx, "/teams/99", ForceCache())
	require.ErrorIs(t, err, ErrEmptyResult)
	assert.Equal(t, 1, o.calls())

	// and so does a 304
	_, err = c.Fetch(ctx, "/teams/99")
	require.ErrorIs(t, err, ErrEmptyResult)
	assert.Equal(t, 2, o.calls())
}

func TestParseError(t *testing.T) {
	o := newOrigin(`<html>maintenance</html>`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	c := newTestClient(t, srv.URL, WithStore(store))

	_, err := c.Fetch(context.Background(), "/status")
	require.ErrorIs(t, err, ErrParse)
	assert.Zero(t, store.Len())
}

func TestUnexpectedStatusIsNotCached(t *testing.T) {
	o := newOrigin(`{"Errors":[{"team_id":"frc0 does not exist"}]}`)
	o.status = http.StatusNotFound
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	c := newTestClient(t, srv.URL, WithStore(store))

	_, err := c.Fetch(context.Background(), "/team/frc0")
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "/team/frc0", statusErr.Path)
	assert.Contains(t, statusErr.Error(), "does not exist")
	assert.Zero(t, store.Len())
}

func TestWithoutStore(t *testing.T) {
	o := newOrigin(`{"key":"frc254"}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	assert.False(t, c.Caching())
	ctx := context.Background()

	_, err := c.Fetch(ctx, "/team/frc254")
	require.NoError(t, err)
	_, err = c.Fetch(ctx, "/team/frc254", ForceCache())
	require.NoError(t, err)

	assert.Equal(t, 2, o.calls())
	assert.Empty(t, o.last().Header.Get("If-Modified-Since"))
}

func TestForceNewSkipsLookupButCaches(t *testing.T) {
	o := newOrigin(`{"v":2}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(ctx, &cache.Entry{
		Path:         "/status",
		Body:         json.RawMessage(`{"v":1}`),
		RequestedAt:  t0,
		LastModified: "Fri, 01 Mar 2024 12:00:00 GMT",
	}))

	clk := &clock{t: t0.Add(time.Minute)}
	c := newTestClient(t, srv.URL, WithStore(store), WithClock(clk.now))

	raw, err := c.FetchRaw(ctx, "/status", ForceNew())
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(raw))
	assert.Empty(t, o.last().Header.Get("If-Modified-Since"))

	entry, err := store.Get(ctx, "/status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(entry.Body))
	assert.Equal(t, clk.t, entry.RequestedAt)
}

func TestRequestHeadersAndPath(t *testing.T) {
	o := newOrigin(`{}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	c := newTestClient(t, srv.URL+"/api/v3/", WithStore(store))

	_, err := c.Fetch(context.Background(), "team/frc254")
	require.NoError(t, err)

	req := o.last()
	assert.Equal(t, "/api/v3/team/frc254", req.URL.Path)
	assert.Equal(t, testKey, req.Header.Get(AuthHeader))
	assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))

	_, err = store.Get(context.Background(), "/team/frc254")
	assert.NoError(t, err)
}

func TestCancelledContextIsNotOffline(t *testing.T) {
	o := newOrigin(`{}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), &cache.Entry{
		Path:        "/status",
		Body:        json.RawMessage(`{}`),
		RequestedAt: time.Now(),
		MaxAge:      "3600",
	}))
	c := newTestClient(t, srv.URL, WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Fetch(ctx, "/status")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrOffline)
}

func TestSQLiteBackedFetch(t *testing.T) {
	o := newOrigin(`[{"key":"frc254","team_number":254}]`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	store, err := cache.NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	clk := &clock{t: t0}
	c := newTestClient(t, srv.URL, WithStore(store), WithClock(clk.now))
	ctx := context.Background()

	_, err = c.Fetch(ctx, "/event/2024casj/teams")
	require.NoError(t, err)
	clk.advance(time.Minute)
	_, err = c.Fetch(ctx, "/event/2024casj/teams")
	require.NoError(t, err)

	assert.Equal(t, 2, o.calls())
	entry, err := store.Get(ctx, "/event/2024casj/teams")
	require.NoError(t, err)
	assert.True(t, t0.Equal(entry.RequestedAt))
}

func TestOfflineWithHugeMaxAge(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(ctx, &cache.Entry{
		Path:        "/status",
		Body:        json.RawMessage(`{"current_season":2024}`),
		RequestedAt: t0,
		MaxAge:      "99999999999",
	}))

	attempts := 0
	clk := &clock{t: t0.AddDate(10, 0, 0)}
	c := newTestClient(t, "http://tba.invalid", WithStore(store),
		WithHTTPClient(offlineTransport(&attempts)), WithCacheMultiplier(3), WithClock(clk.now))

	raw, err := c.FetchRaw(ctx, "/status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_season":2024}`, string(raw))
}

func TestFileBackedFetchKeepsLookalikePathsApart(t *testing.T) {
	hits := map[string]int{}
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		w.Header().Set("Last-Modified", "Fri, 01 Mar 2024 12:00:00 GMT")
		w.Header().Set("Cache-Control", "max-age=61")
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}))
	defer srv.Close()

	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := newTestClient(t, srv.URL, WithStore(store), WithClock((&clock{t: t0}).now))
	ctx := context.Background()

	for _, path := range []string{"/team/frc254", "/team_frc254", "/team/frc254", "/team_frc254"} {
		raw, err := c.FetchRaw(ctx, path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"path":"`+path+`"}`, string(raw))
	}
	assert.Equal(t, map[string]int{"/team/frc254": 2, "/team_frc254": 2}, hits)
}

// An entry recorded under a different path must never redirect the request.
func TestRevalidateRequestsTheCallersPath(t *testing.T) {
	o := newOrigin(`{"key":"frc971"}`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithClock((&clock{t: t0}).now))
	entry := &cache.Entry{
		Path:         "/team/frc254",
		Body:         json.RawMessage(`{"key":"frc254"}`),
		RequestedAt:  t0,
		LastModified: "Thu, 29 Feb 2024 12:00:00 GMT",
		MaxAge:       "61",
	}

	_, err := c.revalidate(context.Background(), "/team/frc971", entry, false)
	require.NoError(t, err)
	assert.Equal(t, "/team/frc971", o.last().URL.Path)
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"public, max-age=61", "61"},
		{"max-age=300", "300"},
		{"public,max-age=0", "0"},
		{"Max-Age=15, public", "15"},
		{`max-age="30"`, "30"},
		{"public, s-maxage=10", ""},
		{"no-cache", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxAge(tt.header))
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, isEmpty([]byte(`[]`)))
	assert.True(t, isEmpty([]byte(" [ \n ] ")))
	assert.True(t, isEmpty([]byte(`null`)))
	assert.False(t, isEmpty([]byte(`{}`)))
	assert.False(t, isEmpty([]byte(`[0]`)))
	assert.False(t, isEmpty([]byte(`""`)))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/status", NormalizePath("status"))
	assert.Equal(t, "/status", NormalizePath("/status"))
	assert.Equal(t, "/", NormalizePath(""))
}
