package syncengine

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
)

// Result is the outcome of one orchestrated sync. Engine operations are
// total from the caller's perspective: failures come back as values, never
// as panics across the boundary.
type Result struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Reason  string `json:"reason,omitempty"`
	Err     error  `json:"-"`
}

const (
	// ReasonConditionsNotMet marks a skipped run (offline or engine
	// unavailable). Not an error.
	ReasonConditionsNotMet = "conditions_not_met"
	// ReasonError marks a run that failed after starting.
	ReasonError = "error"
)

// Skipped builds a conditions-not-met result.
func Skipped() Result {
	return Result{Success: false, Reason: ReasonConditionsNotMet}
}

// Failed builds an error result.
func Failed(err error) Result {
	return Result{Success: false, Reason: ReasonError, Err: err}
}

// Succeeded builds a success result with an item count.
func Succeeded(count int) Result {
	return Result{Success: true, Count: count}
}

// FetchFunc queries the remote store for a domain's current state and
// reconciles it through the engine, returning the item count.
type FetchFunc func(ctx context.Context) (int, error)

// Orchestrator runs one content domain's sync: fetch remote state, feed it
// through the merge engine and section cache, then invalidate the UI's
// read cache for the domain.
type Orchestrator struct {
	// Name identifies the domain ("trend_week", "liked_songs", …).
	Name string
	// Tag is the UI read-cache invalidation tag fired after success.
	Tag string

	run         FetchFunc
	state       *connectivity.State
	invalidator Invalidator
	logger      *log.Logger
}

// NewOrchestrator builds a domain orchestrator. state gates the
// precondition check; invalidator may be nil when no UI cache exists
// (one-shot CLI runs).
func NewOrchestrator(name, tag string, state *connectivity.State, inv Invalidator, run FetchFunc, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync:"+name+"] ", log.LstdFlags)
	}
	return &Orchestrator{
		Name:        name,
		Tag:         tag,
		run:         run,
		state:       state,
		invalidator: inv,
		logger:      logger,
	}
}

// Sync executes the domain sync once.
//
// Preconditions are checked before any I/O: the device must be online and
// the engine wired. A failed precondition is a structured skip, not an
// error. Anything that goes wrong mid-run, including a panic, is caught
// and returned; sync failures are never fatal to the host process.
func (o *Orchestrator) Sync(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("ERROR: sync panicked: %v", r)
			result = Failed(fmt.Errorf("sync %s panicked: %v", o.Name, r))
		}
	}()

	if o.run == nil || (o.state != nil && !o.state.Online()) {
		return Skipped()
	}

	count, err := o.run(ctx)
	if err != nil {
		o.logger.Printf("ERROR: sync failed: %v", err)
		return Failed(err)
	}

	if o.invalidator != nil && o.Tag != "" {
		o.invalidator.Invalidate(o.Tag)
	}

	o.logger.Printf("Synced %d items", count)
	return Succeeded(count)
}
