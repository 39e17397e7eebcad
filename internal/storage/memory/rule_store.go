// Package memory provides storage implementations for local development.
package memory

import (
	"context"
	"sync"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

// RuleStore keeps stored rules in memory. It is used for local runs without
// a database and as a test double for the pipeline.
type RuleStore struct {
	mu    sync.RWMutex
	runs  map[string][]blocklist.Rule
	calls int
}

// NewRuleStore constructs a RuleStore.
func NewRuleStore() *RuleStore {
	return &RuleStore{runs: make(map[string][]blocklist.Rule)}
}

// StoreRules appends the batch under its run ID and reports every row as
// durably stored.
func (s *RuleStore) StoreRules(_ context.Context, runID string, rules []blocklist.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.runs[runID] = append(s.runs[runID], rules...)
	return len(rules), nil
}

// Rules returns a copy of the rules stored for a run.
func (s *RuleStore) Rules(runID string) []blocklist.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := s.runs[runID]
	out := make([]blocklist.Rule, len(rules))
	copy(out, rules)
	return out
}

// Calls returns how many times StoreRules was invoked.
func (s *RuleStore) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}
