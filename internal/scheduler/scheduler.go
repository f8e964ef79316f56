// Package scheduler runs domain sync orchestrators on triggers: explicit
// requests, reconnect events and an optional periodic interval.
//
// Each domain is single-flight with one pending retry. Triggering a domain
// that is already syncing does not start a second concurrent run; it marks
// the domain dirty, and exactly one follow-up run starts when the current
// one finishes, no matter how many triggers arrived in between. This keeps
// the newest remote state flowing without ever stacking duplicate work.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/syncengine"
)

// Config holds configuration for the scheduler.
type Config struct {
	// AutoSync runs every domain once on Start.
	AutoSync bool

	// ResyncOnReconnect triggers a full resync when connectivity comes
	// back after being lost.
	ResyncOnReconnect bool

	// Interval is the periodic full-resync cadence. Zero disables the
	// timer; syncs then run only on triggers and reconnects.
	Interval time.Duration

	// OnResult, if set, observes every completed run.
	OnResult func(domain string, result syncengine.Result)

	// Logger for scheduler activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AutoSync:          true,
		ResyncOnReconnect: true,
		Interval:          0,
		Logger:            log.New(os.Stderr, "[scheduler] ", log.LstdFlags),
	}
}

// runner is the per-domain single-flight state machine.
type runner struct {
	orch *syncengine.Orchestrator

	mu      sync.Mutex
	running bool
	pending bool
}

// Scheduler owns the sync runners and their lifecycle.
type Scheduler struct {
	runners map[string]*runner
	order   []string
	state   *connectivity.State
	config  *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler over the given orchestrators. state may be nil
// when no connectivity tracking exists (one-shot CLI runs).
func New(orchestrators []*syncengine.Orchestrator, state *connectivity.State, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[scheduler] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		runners: make(map[string]*runner, len(orchestrators)),
		state:   state,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range orchestrators {
		s.runners[o.Name] = &runner{orch: o}
		s.order = append(s.order, o.Name)
	}
	return s
}

// Domains returns the registered domain names in registration order.
func (s *Scheduler) Domains() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Start begins background operation: the initial autosync, the reconnect
// listener and the periodic timer. It does not block; use Stop to shut
// down. Calling Start after Stop is an error.
func (s *Scheduler) Start() error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("scheduler already stopped")
	}

	s.config.Logger.Println("Starting scheduler")

	if s.config.AutoSync {
		s.TriggerAll()
	}

	if s.state != nil && s.config.ResyncOnReconnect {
		events := s.state.Subscribe()
		s.wg.Add(1)
		go s.watchConnectivity(events)
	}

	if s.config.Interval > 0 {
		s.wg.Add(1)
		go s.runTimer()
	}

	return nil
}

// Stop shuts the scheduler down and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.config.Logger.Println("Stopping scheduler")
	s.cancel()
	s.wg.Wait()
	s.config.Logger.Println("Scheduler stopped")
}

// Trigger requests a sync of one domain. If the domain is idle the run
// starts immediately in the background. If a run is already in flight the
// request coalesces into a single pending rerun.
func (s *Scheduler) Trigger(domain string) error {
	r, ok := s.runners[domain]
	if !ok {
		return fmt.Errorf("unknown sync domain: %s", domain)
	}
	s.trigger(r)
	return nil
}

// TriggerAll requests a sync of every registered domain.
func (s *Scheduler) TriggerAll() {
	for _, name := range s.order {
		s.trigger(s.runners[name])
	}
}

// SyncNow runs one domain synchronously, bypassing the single-flight
// queue. Used by the CLI's one-shot sync command.
func (s *Scheduler) SyncNow(ctx context.Context, domain string) (syncengine.Result, error) {
	r, ok := s.runners[domain]
	if !ok {
		return syncengine.Result{}, fmt.Errorf("unknown sync domain: %s", domain)
	}
	result := r.orch.Sync(ctx)
	s.observe(domain, result)
	return result, nil
}

func (s *Scheduler) trigger(r *runner) {
	r.mu.Lock()
	if r.running {
		r.pending = true
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	s.wg.Add(1)
	go s.run(r)
}

// run executes the domain until no pending trigger remains.
func (s *Scheduler) run(r *runner) {
	defer s.wg.Done()

	for {
		result := r.orch.Sync(s.ctx)
		s.observe(r.orch.Name, result)

		r.mu.Lock()
		if r.pending && s.ctx.Err() == nil {
			r.pending = false
			r.mu.Unlock()
			continue
		}
		r.running = false
		r.mu.Unlock()
		return
	}
}

func (s *Scheduler) observe(domain string, result syncengine.Result) {
	if s.config.OnResult != nil {
		s.config.OnResult(domain, result)
	}
}

// watchConnectivity triggers a full resync whenever the device comes back
// online.
func (s *Scheduler) watchConnectivity(events <-chan connectivity.Event) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Reconnected() {
				s.config.Logger.Println("Back online, resyncing all domains")
				s.TriggerAll()
			}
		}
	}
}

func (s *Scheduler) runTimer() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.TriggerAll()
		}
	}
}
