package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/prompt"
	"github.com/hpungsan/notepad/internal/update"
)

// defaultConstraints is used when the planner returns no surgical constraints.
var defaultConstraints = []string{"Minimal diff"}

// SubmitInput contains parameters for the SubmitIdea operation.
type SubmitInput struct {
	Idea               string   `json:"idea"`
	X                  string   `json:"X,omitempty"`
	Y                  string   `json:"Y,omitempty"`
	FileTree           string   `json:"file_tree,omitempty"`
	Snippets           string   `json:"snippets,omitempty"`
	AcceptanceCriteria string   `json:"acceptance_criteria,omitempty"`
	TinyTest           string   `json:"tiny_test,omitempty"`
	FileList           []string `json:"file_list,omitempty"`
}

// SubmitOutput contains the result of the SubmitIdea operation.
type SubmitOutput struct {
	Update      *update.Update `json:"update"`
	Constraints []string       `json:"surgical_constraints"`
}

// SubmitIdea asks the planner for a plan, stores it as a new pending update,
// and makes that update current.
func (s *Service) SubmitIdea(ctx context.Context, input SubmitInput) (*SubmitOutput, error) {
	idea := strings.TrimSpace(input.Idea)
	if idea == "" {
		return nil, s.fail(errors.NewInvalidRequest("idea is required"))
	}

	done, err := s.beginGeneration()
	if err != nil {
		return nil, err
	}
	defer done()

	updates, err := s.store.Updates(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	heuristics, err := s.store.Heuristics(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	plan, err := s.planner.Plan(ctx, &llm.PlanRequest{
		Idea:               idea,
		X:                  input.X,
		Y:                  input.Y,
		FileTree:           input.FileTree,
		Snippets:           input.Snippets,
		FailureTags:        update.FailureTags(updates),
		Heuristics:         update.TopPatterns(heuristics, planHeuristics),
		AcceptanceCriteria: input.AcceptanceCriteria,
		TinyTest:           input.TinyTest,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("plan failed")
		return nil, s.fail(err)
	}
	if len(plan.Checklist) == 0 {
		return nil, s.fail(errors.NewInvalidLLMOutput("checklist is empty"))
	}

	constraints := plan.SurgicalConstraints
	if len(constraints) == 0 {
		constraints = defaultConstraints
	}

	u := update.New(idea, plan.Plan, plan.Checklist, s.now())
	u.PromptUsed = strings.TrimSpace(plan.PatchPrompt)
	if u.PromptUsed == "" {
		u.PromptUsed = prompt.PlanPatch(idea, plan.Checklist[0], constraints)
	}
	if len(input.FileList) > 0 {
		u.FileList = append([]string(nil), input.FileList...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveUpdate(ctx, u); err != nil {
		return nil, s.fail(err)
	}
	if err := s.store.SetCurrent(ctx, u.ID); err != nil {
		return nil, s.fail(err)
	}

	s.metrics.RecordUpdateCreated(string(update.KindNormal))
	s.log.Info().Str("id", u.ID).Int("steps", len(u.Checklist)).Str("backend", s.planner.Name()).Msg("update created")

	return &SubmitOutput{Update: u, Constraints: constraints}, nil
}
