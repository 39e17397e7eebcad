package progress

import (
	"sync/atomic"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

// Tracker owns the monotonic counters for one crawl run and forwards each
// event to the registered sinks. Counters are created fresh per run and
// never persisted. All methods are safe for concurrent use.
type Tracker struct {
	runID      string
	discovered int64

	processed atomic.Int64
	withData  atomic.Int64
	rules     atomic.Int64

	sinks []Sink
}

// NewTracker builds a Tracker for a run over a discovered node population.
func NewTracker(runID string, discovered int, sinks ...Sink) *Tracker {
	return &Tracker{
		runID:      runID,
		discovered: int64(discovered),
		sinks:      sinks,
	}
}

// Observe records one node completion, success or skip, and notifies sinks.
func (t *Tracker) Observe(evt Event) {
	if t == nil {
		return
	}
	evt.RunID = t.runID
	t.processed.Add(1)
	if evt.Skip == blocklist.SkipNone {
		t.withData.Add(1)
		t.rules.Add(int64(evt.Rules))
	}
	for _, s := range t.sinks {
		if s != nil {
			s.Consume(evt)
		}
	}
}

// Snapshot returns the current counter values.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	return Snapshot{
		RunID:           t.runID,
		NodesDiscovered: t.discovered,
		NodesProcessed:  t.processed.Load(),
		NodesWithData:   t.withData.Load(),
		RulesCollected:  t.rules.Load(),
	}
}
