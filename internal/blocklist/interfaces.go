package blocklist

import (
	"context"
	"time"
)

// Directory lists candidate nodes from an external index service. A failure
// here is the only condition that aborts a whole crawl run.
type Directory interface {
	ListNodes(ctx context.Context) ([]string, error)
}

// Prober fetches and normalizes one node's blocklist. Implementations must
// absorb every per-node failure into the Outcome's SkipReason.
type Prober interface {
	Probe(ctx context.Context, node string) Outcome
}

// RuleStore persists a batch of rules and reports how many were durably
// stored. Individual rejects must not abort the rest of the batch.
type RuleStore interface {
	StoreRules(ctx context.Context, runID string, rules []Rule) (int, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
