// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RuleStoreConfig controls the Postgres connection pool used for rule rows.
type RuleStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RuleStore writes block rules into Postgres. Rows are inserted one at a
// time so a constraint violation on one rule cannot abort the rest of the
// batch; the store reports how many rows went in durably.
type RuleStore struct {
	pool   execCloser
	table  string
	logger *zap.Logger
}

// NewRuleStore creates a Postgres-backed RuleStore using the provided config.
func NewRuleStore(ctx context.Context, cfg RuleStoreConfig, logger *zap.Logger) (*RuleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "block_rules"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleStore{
		pool:   pool,
		table:  table,
		logger: logger,
	}, nil
}

// NewRuleStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewRuleStoreWithPool(pool execCloser, table string, logger *zap.Logger) (*RuleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "block_rules"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleStore{pool: pool, table: table, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *RuleStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreRules inserts the batch and returns the number of durably stored
// rows. Individual rejects (constraint violations, oversized values) are
// logged and skipped; they never fail the batch.
//
// Expected schema:
//
//	CREATE TABLE block_rules (
//	  id BIGSERIAL PRIMARY KEY,
//	  run_id UUID NOT NULL,
//	  source_node TEXT NOT NULL,
//	  blocked_domain TEXT,
//	  severity TEXT,
//	  comment TEXT,
//	  observed_at DATE NOT NULL,
//	  created_at TIMESTAMPTZ DEFAULT NOW()
//	);
func (s *RuleStore) StoreRules(ctx context.Context, runID string, rules []blocklist.Rule) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("rule store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	source_node,
	blocked_domain,
	severity,
	comment,
	observed_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)

	stored := 0
	for _, rule := range rules {
		args := []any{
			runID,
			rule.SourceNode,
			rule.BlockedDomain,
			rule.Severity,
			rule.Comment,
			rule.ObservedAt,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			s.logger.Debug("rule row rejected",
				zap.String("source_node", rule.SourceNode),
				zap.String("blocked_domain", rule.BlockedDomain),
				zap.Error(err),
			)
			continue
		}
		stored++
	}
	return stored, nil
}
