// Package progress tracks run-scoped crawl counters and fans per-node
// milestones out to registered sinks.
package progress

import (
	"time"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

// Event captures the completion of a single node probe.
type Event struct {
	// RunID identifies the crawl run the probe belongs to.
	RunID string
	// Node is the probed node identifier.
	Node string
	// Skip is empty for successful probes.
	Skip blocklist.SkipReason
	// Rules is the number of records the node contributed.
	Rules int
	// Dur is the wall time of the whole probe (gate plus fetch).
	Dur time.Duration
}

// Outcome returns the label used to partition metrics: "success" or the
// skip reason.
func (e Event) Outcome() string {
	if e.Skip == blocklist.SkipNone {
		return "success"
	}
	return string(e.Skip)
}

// Snapshot is a point-in-time view of a run's counters. NodesProcessed and
// RulesCollected are the two monotonic counters required of every run; the
// rest feed the run summary and the status endpoint.
type Snapshot struct {
	RunID           string `json:"run_id"`
	NodesDiscovered int64  `json:"nodes_discovered"`
	NodesProcessed  int64  `json:"nodes_processed"`
	NodesWithData   int64  `json:"nodes_with_data"`
	RulesCollected  int64  `json:"rules_collected"`
}
