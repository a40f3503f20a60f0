package ops

import (
	"context"
	"encoding/json"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/prompt"
	"github.com/hpungsan/notepad/internal/update"
)

// NextMode tells which branch NextPrompt took.
type NextMode string

const (
	NextRefine   NextMode = "refine"
	NextStep     NextMode = "step"
	NextComplete NextMode = "complete"
)

// NextInput contains parameters for the NextPrompt operation.
type NextInput struct {
	UpdateID string `json:"update_id,omitempty"`
}

// NextOutput contains the result of the NextPrompt operation.
type NextOutput struct {
	Mode   NextMode       `json:"mode"`
	Prompt string         `json:"prompt"`
	Update *update.Update `json:"update"`
	// Refinement details, set in refine mode.
	ReasonsForChanges []string `json:"reasons_for_changes,omitempty"`
	AdditionalChecks  []string `json:"additional_checks,omitempty"`
	FocusStepIDs      []string `json:"focus_step_ids,omitempty"`
}

// NextPrompt produces the next prompt to paste into the coding assistant.
//
// A failed item takes priority: the planner refines the prompt around the
// recorded failure reasons. Otherwise the next pending step gets a patch
// prompt, or for a quick edit its micro prompt. When every item passed the
// update is complete and its prompt is left as is.
func (s *Service) NextPrompt(ctx context.Context, input NextInput) (*NextOutput, error) {
	done, err := s.beginGeneration()
	if err != nil {
		return nil, err
	}
	defer done()

	s.mu.Lock()
	u, err := s.resolve(ctx, input.UpdateID)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(err)
	}

	if update.HasFailure(u) {
		return s.refine(ctx, u)
	}

	step := update.NextPending(u)
	if step == nil {
		return &NextOutput{Mode: NextComplete, Prompt: u.PromptUsed, Update: u}, nil
	}

	var p string
	if u.IsQuickEdit() && u.QuickEditData != nil {
		p = prompt.QuickEdit(*u.QuickEditData)
	} else {
		p = prompt.Patch(*step, prompt.DefaultNextConstraints)
	}
	saved, err := s.applyPrompt(ctx, u.ID, func(cur *update.Update) {
		cur.PromptUsed = p
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return &NextOutput{Mode: NextStep, Prompt: p, Update: saved}, nil
}

func (s *Service) refine(ctx context.Context, u *update.Update) (*NextOutput, error) {
	heuristics, err := s.store.Heuristics(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	reasons := update.FailureReasons(u)
	progress := update.Progress(u)
	checks, err := json.Marshal(progress)
	if err != nil {
		return nil, s.fail(errors.NewInternal(err))
	}

	plan := u.Plan
	if plan == "" {
		plan = u.Summary
	}

	resp, err := s.planner.Refine(ctx, &llm.RefineRequest{
		Plan:         plan,
		CheckResults: checks,
		FailureNotes: reasons,
		Heuristics:   update.TopPatterns(heuristics, 0),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("id", u.ID).Msg("refine failed")
		return nil, s.fail(err)
	}

	p := prompt.Refinement(prompt.RefineInput{
		Summary:          u.Summary,
		Progress:         progress,
		FailureReasons:   reasons,
		UpdatedPrompt:    resp.UpdatedPrompt,
		AdditionalChecks: resp.AdditionalChecks,
	})
	saved, err := s.applyPrompt(ctx, u.ID, func(cur *update.Update) {
		cur.PromptUsed = p
		cur.UpdatedPrompt = resp.UpdatedPrompt
	})
	if err != nil {
		return nil, s.fail(err)
	}

	return &NextOutput{
		Mode:              NextRefine,
		Prompt:            p,
		Update:            saved,
		ReasonsForChanges: resp.ReasonsForChanges,
		AdditionalChecks:  resp.AdditionalChecks,
		FocusStepIDs:      resp.FocusStepIDs,
	}, nil
}

// applyPrompt reloads the update and applies fn, so verdicts recorded while a
// refinement was in flight are not overwritten.
func (s *Service) applyPrompt(ctx context.Context, id string, fn func(*update.Update)) (*update.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.Update(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(cur)
	if err := s.store.SaveUpdate(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}
