package sinks

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/fedistat/blockwatch/internal/blocklist"
	"github.com/fedistat/blockwatch/internal/progress"
)

func TestPrometheusSinkCountsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink.Consume(progress.Event{Node: "a.example", Rules: 3, Dur: 50 * time.Millisecond})
	sink.Consume(progress.Event{Node: "b.example", Skip: blocklist.SkipTimeout, Dur: 5 * time.Second})
	sink.Consume(progress.Event{Node: "c.example", Skip: blocklist.SkipTimeout, Dur: 5 * time.Second})

	require.Equal(t, 1.0, testutil.ToFloat64(sink.nodesProbed.WithLabelValues("success")))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.nodesProbed.WithLabelValues("timeout")))
	require.Equal(t, 3.0, testutil.ToFloat64(sink.rulesTotal))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "register progress collector")
}
