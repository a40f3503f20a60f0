package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/notepad/internal/db"
	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/update"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database)
}

func sampleUpdate(idea string) *update.Update {
	u := update.New(idea, "plan for "+idea, []update.PlanStep{
		{Step: "a", Why: "wa", Expected: "ea"},
		{Step: "b", Why: "wb", Expected: "eb"},
		{Step: "c", Why: "wc", Expected: "ec"},
	}, time.Now())
	u.PromptUsed = "Surgical change: a"
	return u
}

func TestUpdates_EmptyWhenMissing(t *testing.T) {
	s := newTestStore(t)
	updates, err := s.Updates(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, updates)
	assert.Empty(t, updates)
}

func TestSaveUpdate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := sampleUpdate("Add dark mode toggle")
	u.FileList = []string{"src/App.tsx"}
	_, err := update.MarkFail(u, u.Checklist[1].ID, "button not visible")
	require.NoError(t, err)
	require.NoError(t, s.SaveUpdate(ctx, u))

	got, err := s.Update(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)
}

func TestSaveUpdate_QuickEditRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := sampleUpdate("quick")
	u.Type = update.KindQuickEdit
	u.QuickEditData = &update.QuickEditData{
		File: "a.tsx", Before: "x", After: "y", OccurrenceCount: 2,
		DiffPreview: "--- a.tsx", Scope: update.ScopeSelected,
	}
	require.NoError(t, s.SaveUpdate(ctx, u))

	got, err := s.Update(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)
}

func TestSaveUpdate_PrependsAndReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := sampleUpdate("first")
	second := sampleUpdate("second")
	require.NoError(t, s.SaveUpdate(ctx, first))
	require.NoError(t, s.SaveUpdate(ctx, second))

	updates, err := s.Updates(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, second.ID, updates[0].ID, "newest first")

	first.PromptUsed = "changed"
	require.NoError(t, s.SaveUpdate(ctx, first))

	updates, err = s.Updates(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, first.ID, updates[1].ID, "replaced in place")
	assert.Equal(t, "changed", updates[1].PromptUsed)
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := sampleUpdate("x")
	require.NoError(t, s.SaveUpdate(ctx, u))

	ok, err := s.DeleteUpdate(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteUpdate(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	updates, err := s.Updates(ctx)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestCorruptBlobsReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, db.Set(ctx, s.DB(), KeyUpdates, "{not json"))
	require.NoError(t, db.Set(ctx, s.DB(), KeyHeuristics, `[{"id": 1, "pattern": 2}]`))
	require.NoError(t, db.Set(ctx, s.DB(), KeyCurrent, `{"id":"legacy-object"}`))

	updates, err := s.Updates(ctx)
	require.NoError(t, err)
	assert.Empty(t, updates)

	hs, err := s.Heuristics(ctx)
	require.NoError(t, err)
	assert.Empty(t, hs)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	// Writes still work after a corrupt read.
	require.NoError(t, s.SaveUpdate(ctx, sampleUpdate("fresh")))
	updates, err = s.Updates(ctx)
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestSaveHeuristic_Dedupe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	orig := &update.Heuristic{ID: "h1", Pattern: "Add toggle - User control", Score: 1, CreatedAt: now}
	require.NoError(t, s.SaveHeuristic(ctx, orig))
	require.NoError(t, s.SaveHeuristic(ctx, &update.Heuristic{ID: "h2", Pattern: "Other - x", Score: 1, CreatedAt: now}))

	dup := &update.Heuristic{ID: "h3", Pattern: "Add toggle - User control", Score: 5, CreatedAt: now.Add(time.Hour)}
	require.NoError(t, s.SaveHeuristic(ctx, dup))

	hs, err := s.Heuristics(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "h1", hs[0].ID)
	assert.Equal(t, 5, hs[0].Score, "score overwritten")
	assert.True(t, hs[0].CreatedAt.Equal(now), "creation time kept")

	// Saving the same score again overwrites, never increments.
	dup.Score = 1
	require.NoError(t, s.SaveHeuristic(ctx, dup))
	hs, err = s.Heuristics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hs[0].Score)
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	u := sampleUpdate("x")
	require.NoError(t, s.SaveUpdate(ctx, u))
	require.NoError(t, s.SetCurrent(ctx, u.ID))

	cur, err = s.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, u.ID, cur.ID)

	// Dangling pointer reads as none.
	_, err = s.DeleteUpdate(ctx, u.ID)
	require.NoError(t, err)
	cur, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	require.NoError(t, s.SetCurrent(ctx, ""))
	id, err := s.CurrentID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestSaveUpdates_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveUpdate(ctx, sampleUpdate("old")))
	require.NoError(t, s.SaveUpdates(ctx, nil))

	updates, err := s.Updates(ctx)
	require.NoError(t, err)
	assert.Empty(t, updates)

	require.NoError(t, s.SaveHeuristics(ctx, []update.Heuristic{{ID: "h", Pattern: "p", Score: 2}}))
	hs, err := s.Heuristics(ctx)
	require.NoError(t, err)
	assert.Len(t, hs, 1)
}
