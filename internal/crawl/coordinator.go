package crawl

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/blocklist"
	"github.com/fedistat/blockwatch/internal/progress"
)

// Config controls coordinator behavior.
type Config struct {
	// Parallelism is the fixed worker pool size shared across the run.
	Parallelism int
	// ChunkSize bounds how many nodes are in flight between progress
	// checkpoints; batches are drained one at a time.
	ChunkSize int
}

// Coordinator fans node probes out over a fixed worker pool, batch by batch,
// and accumulates every successful outcome's rules into one result set.
type Coordinator struct {
	prober blocklist.Prober
	cfg    Config
	logger *zap.Logger
}

// Result is the full output of one crawl run.
type Result struct {
	RunID string
	Rules []blocklist.Rule
	Stats progress.Snapshot
}

// New builds a Coordinator.
func New(prober blocklist.Prober, cfg Config, logger *zap.Logger) *Coordinator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		prober: prober,
		cfg:    cfg,
		logger: logger,
	}
}

// Run probes every node exactly once and returns the aggregated rules. An
// empty population returns an empty Result without spinning up workers. A
// canceled context stops dispatching at the next batch boundary; in-flight
// probes are never interrupted mid-request.
//
// Outcomes are absorbed in completion order, so result order carries no
// meaning. The tracker may be nil; one is created internally so the counters
// still resolve the run summary.
func (c *Coordinator) Run(ctx context.Context, runID string, nodes []string, tracker *progress.Tracker) Result {
	result := Result{RunID: runID}
	if tracker == nil {
		tracker = progress.NewTracker(runID, len(nodes))
	}
	if len(nodes) == 0 {
		c.logger.Warn("no nodes to crawl", zap.String("run_id", runID))
		result.Stats = tracker.Snapshot()
		return result
	}

	batches := Partition(nodes, c.cfg.ChunkSize)
	c.logger.Info("crawl started",
		zap.String("run_id", runID),
		zap.Int("nodes", len(nodes)),
		zap.Int("batches", len(batches)),
		zap.Int("parallelism", c.cfg.Parallelism),
	)

	jobs := make(chan string)
	outcomes := make(chan timedOutcome)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				start := time.Now()
				out := c.prober.Probe(ctx, node)
				outcomes <- timedOutcome{outcome: out, dur: time.Since(start)}
			}
		}()
	}

	for i, batch := range batches {
		if ctx.Err() != nil {
			c.logger.Warn("crawl canceled between batches",
				zap.String("run_id", runID),
				zap.Int("batches_remaining", len(batches)-i),
			)
			break
		}
		c.dispatchBatch(batch, jobs)
		for range batch {
			timed := <-outcomes
			tracker.Observe(progress.Event{
				Node:  timed.outcome.Node,
				Skip:  timed.outcome.Skip,
				Rules: len(timed.outcome.Rules),
				Dur:   timed.dur,
			})
			if timed.outcome.Success() {
				result.Rules = append(result.Rules, timed.outcome.Rules...)
			}
		}
		snap := tracker.Snapshot()
		c.logger.Info("batch drained",
			zap.String("run_id", runID),
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int64("nodes_processed", snap.NodesProcessed),
			zap.Int64("rules_collected", snap.RulesCollected),
		)
	}

	close(jobs)
	wg.Wait()

	result.Stats = tracker.Snapshot()
	c.logger.Info("crawl finished",
		zap.String("run_id", runID),
		zap.Int64("nodes_processed", result.Stats.NodesProcessed),
		zap.Int64("nodes_with_data", result.Stats.NodesWithData),
		zap.Int64("rules_collected", result.Stats.RulesCollected),
	)
	return result
}

// dispatchBatch feeds a batch into the jobs channel from a helper goroutine
// so workers and the collection loop can overlap. Every send completes
// before the caller finishes collecting the batch's outcomes, so closing
// jobs afterwards is safe.
func (c *Coordinator) dispatchBatch(batch []string, jobs chan<- string) {
	go func() {
		for _, node := range batch {
			jobs <- node
		}
	}()
}

type timedOutcome struct {
	outcome blocklist.Outcome
	dur     time.Duration
}
