package scheduler

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/syncengine"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testConfig() *Config {
	return &Config{Logger: testLogger()}
}

// blockingOrchestrator builds a domain whose fetch blocks until release is
// closed, counting executions.
func blockingOrchestrator(name string, state *connectivity.State, count *atomic.Int32, release chan struct{}) *syncengine.Orchestrator {
	return syncengine.NewOrchestrator(name, "", state, nil, func(ctx context.Context) (int, error) {
		count.Add(1)
		if release != nil {
			<-release
		}
		return 1, nil
	}, testLogger())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTriggerCoalescesToOnePendingRerun(t *testing.T) {
	state := connectivity.NewState(true)
	var count atomic.Int32
	release := make(chan struct{})
	s := New([]*syncengine.Orchestrator{
		blockingOrchestrator("trend_week", state, &count, release),
	}, state, testConfig())

	if err := s.Trigger("trend_week"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	waitFor(t, func() bool { return count.Load() == 1 })

	// Two more triggers while run A is in flight: both coalesce into a
	// single pending rerun.
	if err := s.Trigger("trend_week"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if err := s.Trigger("trend_week"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	close(release)
	// The coalesced rerun races Stop's cancel; wait for it before stopping.
	waitFor(t, func() bool { return count.Load() == 2 })
	s.Stop()

	if got := count.Load(); got != 2 {
		t.Errorf("expected exactly 2 executions, got %d", got)
	}
}

func TestTriggerAfterCompletionRunsAgain(t *testing.T) {
	state := connectivity.NewState(true)
	var count atomic.Int32
	s := New([]*syncengine.Orchestrator{
		blockingOrchestrator("trend_week", state, &count, nil),
	}, state, testConfig())

	if err := s.Trigger("trend_week"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	waitFor(t, func() bool { return count.Load() == 1 })

	if err := s.Trigger("trend_week"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	waitFor(t, func() bool { return count.Load() == 2 })
	s.Stop()
}

func TestTriggerUnknownDomain(t *testing.T) {
	s := New(nil, nil, testConfig())
	if err := s.Trigger("nope"); err == nil {
		t.Error("expected error for unknown domain")
	}
	s.Stop()
}

func TestAutoSyncRunsAllDomains(t *testing.T) {
	state := connectivity.NewState(true)
	var a, b atomic.Int32
	cfg := testConfig()
	cfg.AutoSync = true
	s := New([]*syncengine.Orchestrator{
		blockingOrchestrator("trend_week", state, &a, nil),
		blockingOrchestrator("home_latest", state, &b, nil),
	}, state, cfg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return a.Load() == 1 && b.Load() == 1 })
	s.Stop()
}

func TestResyncOnReconnect(t *testing.T) {
	state := connectivity.NewState(false)
	var count atomic.Int32
	cfg := testConfig()
	cfg.ResyncOnReconnect = true
	s := New([]*syncengine.Orchestrator{
		blockingOrchestrator("trend_week", state, &count, nil),
	}, state, cfg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	state.SetOnline(true)
	waitFor(t, func() bool { return count.Load() == 1 })
	s.Stop()
}

func TestOfflineRunsAreSkips(t *testing.T) {
	state := connectivity.NewState(false)
	var count atomic.Int32
	results := make(chan syncengine.Result, 1)
	cfg := testConfig()
	cfg.OnResult = func(domain string, result syncengine.Result) {
		results <- result
	}
	s := New([]*syncengine.Orchestrator{
		blockingOrchestrator("trend_week", state, &count, nil),
	}, state, cfg)

	if err := s.Trigger("trend_week"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	select {
	case result := <-results:
		if result.Success || result.Reason != syncengine.ReasonConditionsNotMet {
			t.Errorf("expected skip, got %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result observed")
	}
	if count.Load() != 0 {
		t.Error("fetch must not run offline")
	}
	s.Stop()
}

func TestSyncNow(t *testing.T) {
	state := connectivity.NewState(true)
	var count atomic.Int32
	s := New([]*syncengine.Orchestrator{
		blockingOrchestrator("trend_week", state, &count, nil),
	}, state, testConfig())

	result, err := s.SyncNow(context.Background(), "trend_week")
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if !result.Success || result.Count != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	s.Stop()
}
