package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/prompt"
	"github.com/hpungsan/notepad/internal/update"
)

// QuickEditInput contains parameters for the QuickEdit operation.
type QuickEditInput struct {
	File   string       `json:"file"`
	Anchor string       `json:"anchor,omitempty"`
	Before string       `json:"before"`
	After  string       `json:"after"`
	Scope  update.Scope `json:"scope,omitempty"` // default: single
	// Source is the file content, used to count occurrences of Before.
	Source string `json:"source,omitempty"`
}

// QuickEditOutput contains the result of the QuickEdit operation.
type QuickEditOutput struct {
	Update *update.Update `json:"update"`
	Prompt string         `json:"prompt"`
}

// QuickEdit records a single narrow text or style change as a quick-edit
// update with one checklist item, and makes it current. No planner call is made.
func (s *Service) QuickEdit(ctx context.Context, input QuickEditInput) (*QuickEditOutput, error) {
	file := strings.TrimSpace(input.File)
	if file == "" {
		return nil, s.fail(errors.NewInvalidRequest("file is required"))
	}
	if strings.TrimSpace(input.Before) == "" {
		return nil, s.fail(errors.NewInvalidRequest("before is required"))
	}
	if strings.TrimSpace(input.After) == "" {
		return nil, s.fail(errors.NewInvalidRequest("after is required"))
	}
	if input.Before == input.After {
		return nil, s.fail(errors.NewInvalidRequest("before and after are identical"))
	}

	scope := input.Scope
	if scope == "" {
		scope = update.ScopeSingle
	}
	if !update.ValidScope(scope) {
		return nil, s.fail(errors.NewInvalidRequest("scope must be one of: single, selected, all"))
	}

	occurrences := 1
	if input.Source != "" {
		occurrences = prompt.CountOccurrences(input.Source, input.Before)
		if occurrences == 0 {
			return nil, s.fail(errors.NewInvalidRequest(fmt.Sprintf("%q not found in %s", input.Before, file)))
		}
	}

	data := update.QuickEditData{
		File:            file,
		Anchor:          strings.TrimSpace(input.Anchor),
		Before:          input.Before,
		After:           input.After,
		OccurrenceCount: occurrences,
		DiffPreview:     prompt.DiffPreview(file, input.Before, input.After),
		Scope:           scope,
	}
	micro := prompt.QuickEdit(data)

	idea := fmt.Sprintf("Change %q to %q in %s", input.Before, input.After, file)
	u := update.New(idea, "Quick edit: "+prompt.ChangeType(input.Before)+" in "+file, []update.PlanStep{{
		Step:     fmt.Sprintf("Replace %q with %q", input.Before, input.After),
		Why:      "Quick edit",
		Expected: "Only the targeted " + prompt.ChangeType(input.Before) + " differs",
	}}, s.now())
	u.Type = update.KindQuickEdit
	u.Summary = "Quick edit: " + file
	u.PromptUsed = micro
	u.FileList = []string{file}
	u.QuickEditData = &data

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveUpdate(ctx, u); err != nil {
		return nil, s.fail(err)
	}
	if err := s.store.SetCurrent(ctx, u.ID); err != nil {
		return nil, s.fail(err)
	}

	s.metrics.RecordUpdateCreated(string(update.KindQuickEdit))
	return &QuickEditOutput{Update: u, Prompt: micro}, nil
}
