package ops

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/update"
)

// TestFullWorkflow exercises the loop end to end with the offline planner:
// submit -> pass -> fail -> refine -> list -> delete.
func TestFullWorkflow(t *testing.T) {
	rec := &recordingPlanner{Planner: llm.NewMockPlanner(llm.Bounds{Min: 3, Max: 7})}
	svc, m := newTestService(t, rec)
	ctx := context.Background()

	// 1. Submit
	out, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "Add dark mode toggle"})
	require.NoError(t, err)
	u := out.Update
	require.Len(t, u.Checklist, 4)
	require.Equal(t, update.StatusPending, u.Status)
	require.Contains(t, u.PromptUsed, "Add dark mode toggle")
	require.Contains(t, u.PromptUsed, u.Checklist[0].Expected)
	require.Equal(t, "Implement: Add dark mode toggle", u.Summary)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, u.ID, cur.ID)

	// 2. Pass step 1
	pass, err := svc.MarkPass(ctx, VerdictInput{Step: u.Checklist[0].ID})
	require.NoError(t, err)
	require.True(t, pass.Changed)
	require.NotNil(t, pass.Heuristic)
	require.Equal(t, "Set up component structure - Foundation", pass.Heuristic.Pattern)

	hs, err := svc.Heuristics(ctx, HeuristicsInput{})
	require.NoError(t, err)
	require.Len(t, hs.Items, 1)

	// 3. Fail step 2
	fail, err := svc.MarkFail(ctx, VerdictInput{Step: "2", Reason: "button not visible"})
	require.NoError(t, err)
	require.True(t, fail.Changed)
	require.Equal(t, update.StatusFail, fail.Update.Status)
	require.Equal(t, "button not visible", fail.Update.FailureReason)

	// 4. Next prompt refines around the failure
	next, err := svc.NextPrompt(ctx, NextInput{})
	require.NoError(t, err)
	require.Equal(t, NextRefine, next.Mode)
	require.Contains(t, next.Prompt, "button not visible")
	require.Contains(t, next.Prompt, "1/4 passed")
	require.Equal(t, next.Prompt, next.Update.PromptUsed)
	require.NotEmpty(t, next.Update.UpdatedPrompt)

	require.Len(t, rec.refines, 1)
	require.Equal(t, []string{"button not visible"}, rec.refines[0].FailureNotes)
	require.Equal(t, []string{"Set up component structure - Foundation"}, rec.refines[0].Heuristics)

	stored, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, next.Prompt, stored.PromptUsed)
	require.Equal(t, update.StatusPass, stored.Checklist[0].Status)
	require.Equal(t, update.StatusFail, stored.Checklist[1].Status)

	// 5. Second idea sees the failure as context
	_, err = svc.SubmitIdea(ctx, SubmitInput{Idea: "Fix toggle contrast"})
	require.NoError(t, err)
	require.Len(t, rec.plans, 2)
	require.Equal(t, []string{"button not visible"}, rec.plans[1].FailureTags)
	require.Equal(t, []string{"Set up component structure - Foundation"}, rec.plans[1].Heuristics)

	// 6. List, most recent first
	list, err := svc.List(ctx, ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, "Implement: Fix toggle contrast", list.Items[0].Summary)
	require.True(t, list.Items[0].Current)
	require.Equal(t, "1/4 passed", list.Items[1].Progress)

	// 7. Delete the first update
	del, err := svc.Delete(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, del.CurrentCleared)

	_, err = svc.Get(ctx, u.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	require.Equal(t, float64(2), testutil.ToFloat64(m.UpdatesCreated.WithLabelValues("normal")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Verdicts.WithLabelValues("pass")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Verdicts.WithLabelValues("fail")))
}

func TestSubmitIdea_EmptyIdea(t *testing.T) {
	rec := &recordingPlanner{Planner: llm.NewMockPlanner(llm.Bounds{Min: 3, Max: 7})}
	svc, _ := newTestService(t, rec)

	_, err := svc.SubmitIdea(context.Background(), SubmitInput{Idea: "   "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	require.Empty(t, rec.plans)
}

func TestSubmitIdea_PlannerErrorLeavesStoreUntouched(t *testing.T) {
	// Bounds the mock's four steps cannot satisfy.
	svc, _ := newTestService(t, llm.NewMockPlanner(llm.Bounds{Min: 5, Max: 7}))
	ctx := context.Background()

	_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "x"})
	require.True(t, errors.Is(err, errors.ErrInvalidLLMOutput), "got %v", err)

	updates, err := svc.Store().Updates(ctx)
	require.NoError(t, err)
	require.Empty(t, updates)
}

func TestNextPrompt_Modes(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "Add search"})
	require.NoError(t, err)
	id := out.Update.ID

	// Pending step 1 -> step prompt for step 1.
	next, err := svc.NextPrompt(ctx, NextInput{UpdateID: id})
	require.NoError(t, err)
	require.Equal(t, NextStep, next.Mode)
	require.Contains(t, next.Prompt, `"Set up component structure"`)

	for i := 1; i <= 3; i++ {
		_, err := svc.MarkPass(ctx, VerdictInput{UpdateID: id, Step: string(rune('0' + i))})
		require.NoError(t, err)
	}
	next, err = svc.NextPrompt(ctx, NextInput{UpdateID: id})
	require.NoError(t, err)
	require.Equal(t, NextStep, next.Mode)
	require.Contains(t, next.Prompt, `"Write basic test"`)

	_, err = svc.MarkPass(ctx, VerdictInput{UpdateID: id, Step: "4"})
	require.NoError(t, err)

	before, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, update.StatusPass, before.Status)

	next, err = svc.NextPrompt(ctx, NextInput{UpdateID: id})
	require.NoError(t, err)
	require.Equal(t, NextComplete, next.Mode)
	require.Equal(t, before.PromptUsed, next.Prompt)
}

func TestMarkVerdict_AlreadyDecidedIsNoop(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "x"})
	require.NoError(t, err)

	_, err = svc.MarkPass(ctx, VerdictInput{Step: "1"})
	require.NoError(t, err)

	again, err := svc.MarkFail(ctx, VerdictInput{Step: "1", Reason: "late"})
	require.NoError(t, err)
	require.False(t, again.Changed)
	require.Equal(t, update.StatusPass, again.Update.Checklist[0].Status)

	unknown, err := svc.MarkPass(ctx, VerdictInput{Step: "nope"})
	require.NoError(t, err)
	require.False(t, unknown.Changed)

	require.Equal(t, float64(1), testutil.ToFloat64(m.Verdicts.WithLabelValues("pass")))
}

func TestMarkFail_RequiresReason(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "x"})
	require.NoError(t, err)

	_, err = svc.MarkFail(ctx, VerdictInput{Step: "1", Reason: " "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, update.StatusPending, cur.Checklist[0].Status)
}

func TestSelectAndDeleteCurrent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.SubmitIdea(ctx, SubmitInput{Idea: "first"})
	require.NoError(t, err)
	_, err = svc.SubmitIdea(ctx, SubmitInput{Idea: "second"})
	require.NoError(t, err)

	sel, err := svc.Select(ctx, first.Update.ID)
	require.NoError(t, err)
	require.Equal(t, first.Update.ID, sel.ID)

	del, err := svc.Delete(ctx, first.Update.ID)
	require.NoError(t, err)
	require.True(t, del.CurrentCleared)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Nil(t, cur)

	_, err = svc.Delete(ctx, first.Update.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	_, err = svc.Select(ctx, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
}

func TestList_FiltersAndPagination(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, idea := range []string{"a", "b", "c"} {
		_, err := svc.SubmitIdea(ctx, SubmitInput{Idea: idea})
		require.NoError(t, err)
	}
	_, err := svc.MarkFail(ctx, VerdictInput{Step: "1", Reason: "broken"})
	require.NoError(t, err)
	_, err = svc.QuickEdit(ctx, QuickEditInput{File: "a.tsx", Before: "Save", After: "Submit"})
	require.NoError(t, err)

	page, err := svc.List(ctx, ListInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.True(t, page.Pagination.HasMore)
	require.Equal(t, 4, page.Pagination.Total)

	failed, err := svc.List(ctx, ListInput{Status: "fail"})
	require.NoError(t, err)
	require.Len(t, failed.Items, 1)
	require.Equal(t, "Implement: c", failed.Items[0].Summary)

	quick, err := svc.List(ctx, ListInput{Type: "quickEdit"})
	require.NoError(t, err)
	require.Len(t, quick.Items, 1)

	_, err = svc.List(ctx, ListInput{Status: "done"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
}

func TestQuickEdit(t *testing.T) {
	svc, m := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.QuickEdit(ctx, QuickEditInput{
		File:   "src/Header.tsx",
		Anchor: "Header",
		Before: `className="text-gray-500"`,
		After:  `className="text-gray-900"`,
		Source: `<h1 className="text-gray-500">A</h1><h2 className="text-gray-500">B</h2>`,
	})
	require.NoError(t, err)

	u := out.Update
	require.True(t, u.IsQuickEdit())
	require.Len(t, u.Checklist, 1)
	require.Equal(t, "Quick edit: src/Header.tsx", u.Summary)
	require.NotNil(t, u.QuickEditData)
	require.Equal(t, 2, u.QuickEditData.OccurrenceCount)
	require.Equal(t, update.ScopeSingle, u.QuickEditData.Scope)
	require.Contains(t, u.QuickEditData.DiffPreview, `-className="text-gray-500"`)
	require.Contains(t, out.Prompt, "style change")
	require.Contains(t, out.Prompt, "within Header")
	require.Equal(t, out.Prompt, u.PromptUsed)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, u.ID, cur.ID)
	require.Equal(t, float64(1), testutil.ToFloat64(m.UpdatesCreated.WithLabelValues("quickEdit")))
}

func TestNextPrompt_QuickEditKeepsMicroPrompt(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.QuickEdit(ctx, QuickEditInput{
		File:   "a.tsx",
		Before: "Save",
		After:  "Submit",
		Scope:  update.ScopeAll,
	})
	require.NoError(t, err)

	out, err := svc.NextPrompt(ctx, NextInput{})
	require.NoError(t, err)
	require.Equal(t, NextStep, out.Mode)
	require.Equal(t, created.Prompt, out.Prompt)
	require.Contains(t, out.Prompt, "In a.tsx")
	require.Contains(t, out.Prompt, "All occurrences in this file.")
	require.Contains(t, out.Prompt, "Don't alter props, keys, routes")
	require.Equal(t, created.Prompt, out.Update.PromptUsed)
}

func TestQuickEdit_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input QuickEditInput
	}{
		{"missing file", QuickEditInput{Before: "a", After: "b"}},
		{"missing before", QuickEditInput{File: "f", After: "b"}},
		{"missing after", QuickEditInput{File: "f", Before: "a"}},
		{"identical", QuickEditInput{File: "f", Before: "a", After: "a"}},
		{"bad scope", QuickEditInput{File: "f", Before: "a", After: "b", Scope: "some"}},
		{"not in source", QuickEditInput{File: "f", Before: "a", After: "b", Source: "xyz"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.QuickEdit(ctx, tc.input)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestHeuristics_OrderAndLimit(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	st := svc.Store()
	for _, h := range []update.Heuristic{
		{ID: "1", Pattern: "low", Score: 1},
		{ID: "2", Pattern: "high", Score: 5},
		{ID: "3", Pattern: "mid", Score: 3},
	} {
		require.NoError(t, st.SaveHeuristic(ctx, &h))
	}

	out, err := svc.Heuristics(ctx, HeuristicsInput{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, out.Total)
	require.Len(t, out.Items, 2)
	require.Equal(t, "high", out.Items[0].Pattern)
	require.Equal(t, "mid", out.Items[1].Pattern)
}
