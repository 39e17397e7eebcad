package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/clock/system"
	"github.com/fedistat/blockwatch/internal/config"
	"github.com/fedistat/blockwatch/internal/prober"
	"github.com/fedistat/blockwatch/internal/storage/memory"
)

type stubDirectory struct {
	nodes []string
	err   error
}

func (d stubDirectory) ListNodes(context.Context) ([]string, error) {
	return d.nodes, d.err
}

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Crawler.Parallelism = 4
	cfg.Crawler.ChunkSize = 2
	return cfg
}

// jsonNode serves a well-formed blocklist.
func jsonNode(body string) *httptest.Server {
	return httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func TestRunCollectsAndStores(t *testing.T) {
	t.Parallel()

	good := jsonNode(`[
		{"domain":"spam.example","severity":"suspend","comment":"spam waves"},
		{"domain":"abuse.example","severity":"silence","comment":""}
	]`)
	defer good.Close()

	// Stalls past the probe timeout.
	slow := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()

	// Declares HTML, so the content-type gate rejects it.
	html := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}))
	defer html.Close()

	nodes := []string{
		good.Listener.Addr().String(),
		slow.Listener.Addr().String(),
		html.Listener.Addr().String(),
	}
	probe := prober.New(prober.Config{
		UserAgent: "blockwatch-test",
		Timeout:   100 * time.Millisecond,
		Transport: good.Client().Transport,
	}, system.New(), zap.NewNop())
	store := memory.NewRuleStore()

	a, err := NewWithCollaborators(testConfig(), zap.NewNop(), stubDirectory{nodes: nodes}, probe, store)
	require.NoError(t, err)

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, int64(3), summary.NodesDiscovered)
	require.Equal(t, int64(3), summary.NodesProcessed)
	require.Equal(t, int64(1), summary.NodesWithData)
	require.Equal(t, int64(2), summary.RulesCollected)
	require.Equal(t, 2, summary.RulesStored)

	require.Equal(t, 1, store.Calls())
	stored := store.Rules(summary.RunID)
	require.Len(t, stored, 2)
	domains := map[string]bool{}
	for _, rule := range stored {
		require.Equal(t, nodes[0], rule.SourceNode)
		domains[rule.BlockedDomain] = true
	}
	require.True(t, domains["spam.example"])
	require.True(t, domains["abuse.example"])
}

func TestRunDirectoryFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := memory.NewRuleStore()
	a, err := NewWithCollaborators(testConfig(), zap.NewNop(),
		stubDirectory{err: errors.New("listing unavailable")}, nil, store)
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.ErrorContains(t, err, "listing unavailable")
	require.Zero(t, store.Calls(), "no run should reach the store")
}

func TestRunEmptyPopulation(t *testing.T) {
	t.Parallel()

	store := memory.NewRuleStore()
	a, err := NewWithCollaborators(testConfig(), zap.NewNop(), stubDirectory{}, nil, store)
	require.NoError(t, err)

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.NodesProcessed)
	require.Zero(t, summary.RulesCollected)
	require.Equal(t, 1, store.Calls())
}

func TestSnapshotBeforeAnyRun(t *testing.T) {
	t.Parallel()

	a, err := NewWithCollaborators(testConfig(), zap.NewNop(), stubDirectory{}, nil, memory.NewRuleStore())
	require.NoError(t, err)
	require.Zero(t, a.Snapshot().NodesProcessed)
	require.Empty(t, a.Snapshot().RunID)
}
