package syncengine

import (
	"context"
	"errors"
	"testing"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
)

type recordingInvalidator struct {
	tags []string
}

func (r *recordingInvalidator) Invalidate(tag string) {
	r.tags = append(r.tags, tag)
}

func TestOrchestratorSkipsWhenOffline(t *testing.T) {
	state := connectivity.NewState(false)
	fetched := false
	o := NewOrchestrator("trend_week", TagTrends, state, nil, func(ctx context.Context) (int, error) {
		fetched = true
		return 0, nil
	}, testLogger())

	result := o.Sync(context.Background())
	if result.Success {
		t.Error("expected skip while offline")
	}
	if result.Reason != ReasonConditionsNotMet {
		t.Errorf("expected conditions_not_met, got %q", result.Reason)
	}
	if fetched {
		t.Error("fetch must not run while offline")
	}
}

func TestOrchestratorSkipsWithoutFetch(t *testing.T) {
	state := connectivity.NewState(true)
	o := NewOrchestrator("trend_week", TagTrends, state, nil, nil, testLogger())

	if result := o.Sync(context.Background()); result.Reason != ReasonConditionsNotMet {
		t.Errorf("expected conditions_not_met, got %q", result.Reason)
	}
}

func TestOrchestratorSuccessInvalidates(t *testing.T) {
	state := connectivity.NewState(true)
	inv := &recordingInvalidator{}
	o := NewOrchestrator("trend_week", TagTrends, state, inv, func(ctx context.Context) (int, error) {
		return 7, nil
	}, testLogger())

	result := o.Sync(context.Background())
	if !result.Success || result.Count != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(inv.tags) != 1 || inv.tags[0] != TagTrends {
		t.Errorf("expected one %q invalidation, got %v", TagTrends, inv.tags)
	}
}

func TestOrchestratorFetchError(t *testing.T) {
	state := connectivity.NewState(true)
	inv := &recordingInvalidator{}
	wantErr := errors.New("remote unavailable")
	o := NewOrchestrator("liked_songs", TagLiked, state, inv, func(ctx context.Context) (int, error) {
		return 0, wantErr
	}, testLogger())

	result := o.Sync(context.Background())
	if result.Success {
		t.Error("expected failure")
	}
	if result.Reason != ReasonError || !errors.Is(result.Err, wantErr) {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(inv.tags) != 0 {
		t.Error("failed sync must not invalidate")
	}
}

func TestOrchestratorRecoversPanic(t *testing.T) {
	state := connectivity.NewState(true)
	o := NewOrchestrator("trend_all", TagTrends, state, nil, func(ctx context.Context) (int, error) {
		panic("remote client exploded")
	}, testLogger())

	result := o.Sync(context.Background())
	if result.Success {
		t.Error("expected failure")
	}
	if result.Err == nil {
		t.Error("expected captured panic error")
	}
}
