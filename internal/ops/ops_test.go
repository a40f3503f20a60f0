package ops

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/notepad/internal/config"
	"github.com/hpungsan/notepad/internal/db"
	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/metrics"
	"github.com/hpungsan/notepad/internal/store"
	"github.com/hpungsan/notepad/internal/update"
)

// newTestService wires a Service over a fresh database in a temp dir.
func newTestService(t *testing.T, planner llm.Planner) (*Service, *metrics.Metrics) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	if planner == nil {
		planner = llm.NewMockPlanner(llm.Bounds{Min: 3, Max: 7})
	}
	_, m := metrics.NewRegistry()
	svc := NewService(store.New(database), planner, config.DefaultConfig(), Options{
		Metrics: m,
		BaseDir: tmpDir,
	})
	return svc, m
}

// blockingPlanner holds Plan and Refine until release is closed.
type blockingPlanner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingPlanner() *blockingPlanner {
	return &blockingPlanner{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingPlanner) Name() string { return "blocking" }

func (b *blockingPlanner) wait(ctx context.Context) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return errors.NewCancelled("plan")
	}
}

func (b *blockingPlanner) Plan(ctx context.Context, req *llm.PlanRequest) (*llm.PlanResponse, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return &llm.PlanResponse{
		Plan: "Plan for " + req.Idea,
		Checklist: []update.PlanStep{
			{Step: "One", Why: "a", Expected: "x"},
			{Step: "Two", Why: "b", Expected: "y"},
			{Step: "Three", Why: "c", Expected: "z"},
		},
	}, nil
}

func (b *blockingPlanner) Refine(ctx context.Context, req *llm.RefineRequest) (*llm.RefineResponse, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return &llm.RefineResponse{UpdatedPrompt: "refined"}, nil
}

// recordingPlanner captures requests and returns canned responses.
type recordingPlanner struct {
	llm.Planner
	plans   []*llm.PlanRequest
	refines []*llm.RefineRequest
}

func (r *recordingPlanner) Plan(ctx context.Context, req *llm.PlanRequest) (*llm.PlanResponse, error) {
	r.plans = append(r.plans, req)
	return r.Planner.Plan(ctx, req)
}

func (r *recordingPlanner) Refine(ctx context.Context, req *llm.RefineRequest) (*llm.RefineResponse, error) {
	r.refines = append(r.refines, req)
	return r.Planner.Refine(ctx, req)
}

func TestSubmitIdea_Busy(t *testing.T) {
	planner := newBlockingPlanner()
	svc, m := newTestService(t, planner)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "first"})
		done <- err
	}()

	select {
	case <-planner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("planner was never called")
	}

	_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "second"})
	require.True(t, errors.Is(err, errors.ErrBusy), "got %v", err)

	_, err = svc.NextPrompt(ctx, NextInput{})
	require.True(t, errors.Is(err, errors.ErrBusy), "got %v", err)

	close(planner.release)
	require.NoError(t, <-done)
	require.Equal(t, float64(2), testutil.ToFloat64(m.BusyRejections))

	// Slot is free again.
	_, err = svc.SubmitIdea(ctx, SubmitInput{Idea: "third"})
	require.NoError(t, err)
}

func TestSubmitIdea_CancelledReleasesSlot(t *testing.T) {
	planner := newBlockingPlanner()
	svc, _ := newTestService(t, planner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "x"})
	require.True(t, errors.Is(err, errors.ErrCancelled), "got %v", err)

	updates, err := svc.Store().Updates(context.Background())
	require.NoError(t, err)
	require.Empty(t, updates)

	require.True(t, svc.gen.TryAcquire(1), "generation slot still held")
	svc.gen.Release(1)
}

func TestResolve_NoCurrent(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.MarkPass(context.Background(), VerdictInput{Step: "1"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
}
