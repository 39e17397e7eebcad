package memory

import (
	"context"
	"testing"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

func TestStoreRulesAccumulatesPerRun(t *testing.T) {
	t.Parallel()

	store := NewRuleStore()
	first := []blocklist.Rule{
		{SourceNode: "a.example", BlockedDomain: "x.example"},
		{SourceNode: "a.example", BlockedDomain: "y.example"},
	}
	second := []blocklist.Rule{
		{SourceNode: "b.example", BlockedDomain: "z.example"},
	}

	n, err := store.StoreRules(context.Background(), "run-1", first)
	if err != nil || n != 2 {
		t.Fatalf("StoreRules() = (%d, %v), want (2, nil)", n, err)
	}
	n, err = store.StoreRules(context.Background(), "run-1", second)
	if err != nil || n != 1 {
		t.Fatalf("StoreRules() = (%d, %v), want (1, nil)", n, err)
	}

	if got := store.Rules("run-1"); len(got) != 3 {
		t.Fatalf("expected 3 stored rules, got %d", len(got))
	}
	if got := store.Rules("run-2"); len(got) != 0 {
		t.Fatalf("expected no rules for unknown run, got %d", len(got))
	}
	if store.Calls() != 2 {
		t.Fatalf("expected 2 store calls, got %d", store.Calls())
	}
}
