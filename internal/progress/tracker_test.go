package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/fedistat/blockwatch/internal/blocklist"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Consume(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func TestTrackerCountsSuccessAndSkips(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	tracker := NewTracker("run-1", 3, sink)

	tracker.Observe(Event{Node: "a.example", Rules: 2, Dur: time.Millisecond})
	tracker.Observe(Event{Node: "b.example", Skip: blocklist.SkipTimeout})
	tracker.Observe(Event{Node: "c.example", Skip: blocklist.SkipContentType})

	snap := tracker.Snapshot()
	if snap.RunID != "run-1" || snap.NodesDiscovered != 3 {
		t.Fatalf("unexpected run identity: %+v", snap)
	}
	if snap.NodesProcessed != 3 {
		t.Fatalf("expected 3 processed, got %d", snap.NodesProcessed)
	}
	if snap.NodesWithData != 1 {
		t.Fatalf("expected 1 node with data, got %d", snap.NodesWithData)
	}
	if snap.RulesCollected != 2 {
		t.Fatalf("expected 2 rules, got %d", snap.RulesCollected)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 3 {
		t.Fatalf("expected 3 sink events, got %d", len(sink.events))
	}
	if sink.events[0].RunID != "run-1" {
		t.Fatalf("expected run id stamped on events, got %q", sink.events[0].RunID)
	}
}

func TestTrackerConcurrentObserve(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("run-2", 100)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Observe(Event{Node: "n.example", Rules: 1})
		}()
	}
	wg.Wait()

	snap := tracker.Snapshot()
	if snap.NodesProcessed != 100 || snap.RulesCollected != 100 {
		t.Fatalf("lost updates under concurrency: %+v", snap)
	}
}

func TestEventOutcomeLabel(t *testing.T) {
	t.Parallel()

	if got := (Event{}).Outcome(); got != "success" {
		t.Fatalf("expected success label, got %q", got)
	}
	if got := (Event{Skip: blocklist.SkipParse}).Outcome(); got != "parse" {
		t.Fatalf("expected parse label, got %q", got)
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	t.Parallel()

	var tracker *Tracker
	tracker.Observe(Event{Node: "a.example"})
	if snap := tracker.Snapshot(); snap != (Snapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
