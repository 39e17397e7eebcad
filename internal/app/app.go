// Package app wires the crawl pipeline collaborators together and runs one
// crawl run end to end.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/blocklist"
	"github.com/fedistat/blockwatch/internal/clock/system"
	"github.com/fedistat/blockwatch/internal/config"
	"github.com/fedistat/blockwatch/internal/crawl"
	"github.com/fedistat/blockwatch/internal/directory"
	"github.com/fedistat/blockwatch/internal/id/uuid"
	"github.com/fedistat/blockwatch/internal/prober"
	"github.com/fedistat/blockwatch/internal/progress"
	"github.com/fedistat/blockwatch/internal/progress/sinks"
	"github.com/fedistat/blockwatch/internal/storage/memory"
	"github.com/fedistat/blockwatch/internal/storage/postgres"
)

// App owns the pipeline collaborators for the lifetime of the process.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	directory blocklist.Directory
	prober    blocklist.Prober
	store     blocklist.RuleStore
	ids       blocklist.IDGenerator
	registry  *prometheus.Registry
	promSink  *sinks.PrometheusSink

	mu      sync.RWMutex
	tracker *progress.Tracker
	closers []func()
}

// Summary is the user-visible outcome of one crawl run.
type Summary struct {
	RunID           string
	NodesDiscovered int64
	NodesProcessed  int64
	NodesWithData   int64
	RulesCollected  int64
	RulesStored     int
}

// New builds an App with real collaborators from configuration. An empty
// database DSN selects the in-memory store, which only makes sense for
// local experiments.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := directory.New(directory.Config{
		APIURL:         cfg.Directory.APIURL,
		APIKey:         cfg.Directory.APIKey,
		Count:          cfg.Directory.Count,
		MinActiveUsers: cfg.Directory.MinActiveUsers,
		MinVersion:     cfg.Directory.MinVersion,
		Timeout:        cfg.DirectoryTimeout(),
	}, logger.Named("directory"))

	probe := prober.New(prober.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.ProbeTimeout(),
	}, system.New(), logger.Named("prober"))

	app, err := NewWithCollaborators(cfg, logger, dir, probe, nil)
	if err != nil {
		return nil, err
	}

	if cfg.DB.DSN != "" {
		store, err := postgres.NewRuleStore(ctx, postgres.RuleStoreConfig{
			DSN:             cfg.DB.DSN,
			Table:           cfg.DB.Table,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.ConnLifetime(),
		}, logger.Named("storage"))
		if err != nil {
			return nil, fmt.Errorf("init rule store: %w", err)
		}
		app.store = store
		app.closers = append(app.closers, store.Close)
	} else {
		logger.Warn("db.dsn is empty; using in-memory store")
		app.store = memory.NewRuleStore()
	}

	return app, nil
}

// NewWithCollaborators builds an App around injected collaborators. Tests
// use it to substitute fakes; New uses it as its assembly step.
func NewWithCollaborators(
	cfg config.Config,
	logger *zap.Logger,
	dir blocklist.Directory,
	probe blocklist.Prober,
	store blocklist.RuleStore,
) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	return &App{
		cfg:       cfg,
		logger:    logger,
		directory: dir,
		prober:    probe,
		store:     store,
		ids:       uuid.NewGenerator(),
		registry:  registry,
		promSink:  promSink,
	}, nil
}

// Registry exposes the metrics registry for the observation server.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Snapshot implements api.StatusSource over the current run's tracker.
func (a *App) Snapshot() progress.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tracker.Snapshot()
}

// Close releases collaborator resources.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		closeFn()
	}
}

// Run executes one crawl run: list the population, crawl it, store the
// aggregate. Only a directory failure aborts; everything else resolves to
// counts in the Summary.
func (a *App) Run(ctx context.Context) (Summary, error) {
	runID, err := a.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("new run id: %w", err)
	}
	logger := a.logger.With(zap.String("run_id", runID))

	nodes, err := a.directory.ListNodes(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list nodes: %w", err)
	}

	tracker := progress.NewTracker(runID, len(nodes),
		sinks.NewLogSink(logger.Named("progress")),
		a.promSink,
	)
	a.setTracker(tracker)

	coordinator := crawl.New(a.prober, crawl.Config{
		Parallelism: a.cfg.Crawler.Parallelism,
		ChunkSize:   a.cfg.Crawler.ChunkSize,
	}, logger.Named("crawl"))
	result := coordinator.Run(ctx, runID, nodes, tracker)

	stored, err := a.store.StoreRules(ctx, runID, result.Rules)
	if err != nil {
		return Summary{}, fmt.Errorf("store rules: %w", err)
	}
	if shortfall := len(result.Rules) - stored; shortfall > 0 {
		logger.Warn("some rules were not stored",
			zap.Int("rejected", shortfall),
			zap.Int("stored", stored),
		)
	}

	summary := Summary{
		RunID:           runID,
		NodesDiscovered: result.Stats.NodesDiscovered,
		NodesProcessed:  result.Stats.NodesProcessed,
		NodesWithData:   result.Stats.NodesWithData,
		RulesCollected:  result.Stats.RulesCollected,
		RulesStored:     stored,
	}
	logger.Info("run complete",
		zap.Int64("nodes_discovered", summary.NodesDiscovered),
		zap.Int64("nodes_processed", summary.NodesProcessed),
		zap.Int64("nodes_with_data", summary.NodesWithData),
		zap.Int64("rules_collected", summary.RulesCollected),
		zap.Int("rules_stored", summary.RulesStored),
	)
	return summary, nil
}

func (a *App) setTracker(t *progress.Tracker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tracker = t
}
