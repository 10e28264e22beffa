package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/tba/cache"
	"github.com/briangreenhill/tba/internal/config"
	"github.com/briangreenhill/tba/tba"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.AuthKey = "secret"
	cfg.BaseURL = baseURL
	cfg.Cache.Backend = cache.BackendMemory
	return cfg
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	_, err := Setup(context.Background(), cfg, io.Discard)
	require.Error(t, err)
}

func TestSetupWiresStoreAndMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(tba.AuthHeader))
		w.Header().Set("Cache-Control", "max-age=60")
		io.WriteString(w, `{"current_season":2024}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MetricsEnabled = true
	cfg.LogLevel = "debug"

	var logs bytes.Buffer
	a, err := Setup(context.Background(), cfg, &logs)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	require.NotNil(t, a.Metrics)
	assert.True(t, a.Client.Caching())

	_, err = a.Client.Status(context.Background())
	require.NoError(t, err)

	_, err = a.Store.Get(context.Background(), "/status")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Fetches().WithLabelValues(tba.OutcomeNetwork)))
	assert.Contains(t, logs.String(), "no cache available")
}

func TestSetupWithoutCache(t *testing.T) {
	cfg := testConfig("http://tba.invalid")
	cfg.Cache.Enabled = false

	a, err := Setup(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	assert.Nil(t, a.Store)
	assert.Nil(t, a.Metrics)
	assert.False(t, a.Client.Caching())
	assert.NoError(t, a.Close())
}

func TestSetupSQLiteInDir(t *testing.T) {
	cfg := testConfig("http://tba.invalid")
	cfg.Cache.Backend = cache.BackendSQLite
	cfg.Cache.Dir = t.TempDir()

	a, err := Setup(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	assert.IsType(t, &cache.SQLiteStore{}, a.Store)
	assert.NoError(t, a.Close())
}
