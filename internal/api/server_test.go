package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/progress"
)

type fixedStatus struct {
	snap progress.Snapshot
}

func (f fixedStatus) Snapshot() progress.Snapshot { return f.snap }

func newTestServer(status StatusSource) *httptest.Server {
	srv := NewServer(status, prometheus.NewRegistry(), zap.NewNop())
	return httptest.NewServer(srv.Handler())
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	t.Parallel()

	status := fixedStatus{snap: progress.Snapshot{
		RunID:           "run-9",
		NodesDiscovered: 100,
		NodesProcessed:  42,
		NodesWithData:   10,
		RulesCollected:  1234,
	}}
	ts := newTestServer(status)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test teardown

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got progress.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, status.snap, got)
}

func TestStatusIdleWithoutSource(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test teardown

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "idle", got["state"])
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "blockwatch_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := NewServer(nil, reg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test teardown
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
