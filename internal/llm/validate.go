package llm

import (
	"fmt"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/prompt"
	"github.com/hpungsan/notepad/internal/update"
)

// defaultConstraints is used when the model omits surgical_constraints.
var defaultConstraints = []string{"Minimal diff"}

// rawPlan is the model's plan output before validation.
type rawPlan struct {
	Plan                string            `json:"plan"`
	Checklist           []update.PlanStep `json:"checklist"`
	PatchPrompt         string            `json:"patch_prompt"`
	SurgicalConstraints []string          `json:"surgical_constraints"`
}

// rawRefine is the model's refine output before validation.
type rawRefine struct {
	UpdatedPrompt     string   `json:"updated_prompt"`
	ReasonsForChanges []string `json:"reasons_for_changes"`
	AdditionalChecks  []string `json:"additional_checks"`
	FocusStepIDs      []string `json:"focus_step_ids"`
}

// validatePlan enforces the plan shape and clamps the checklist into bounds.
// Steps with an empty step text are dropped; fewer than b.Min usable steps is
// an error, more than b.Max are truncated.
func validatePlan(raw *rawPlan, idea string, b Bounds) (*PlanResponse, error) {
	if raw == nil || strings.TrimSpace(raw.Plan) == "" {
		return nil, errors.NewInvalidLLMOutput("plan is missing")
	}
	if len(raw.Checklist) == 0 {
		return nil, errors.NewInvalidLLMOutput("checklist is empty")
	}

	steps := make([]update.PlanStep, 0, len(raw.Checklist))
	for _, s := range raw.Checklist {
		s.Step = strings.TrimSpace(s.Step)
		if s.Step == "" {
			continue
		}
		s.Why = strings.TrimSpace(s.Why)
		s.Expected = strings.TrimSpace(s.Expected)
		steps = append(steps, s)
	}
	if len(steps) < b.Min {
		return nil, errors.NewInvalidLLMOutput(fmt.Sprintf("checklist has %d usable steps, need at least %d", len(steps), b.Min))
	}
	if len(steps) > b.Max {
		steps = steps[:b.Max]
	}

	constraints := nonEmpty(raw.SurgicalConstraints)
	if len(constraints) == 0 {
		constraints = append([]string(nil), defaultConstraints...)
	}

	patch := strings.TrimSpace(raw.PatchPrompt)
	if patch == "" {
		patch = prompt.PlanPatch(idea, steps[0], constraints)
	}

	return &PlanResponse{
		Plan:                strings.TrimSpace(raw.Plan),
		Checklist:           steps,
		PatchPrompt:         patch,
		SurgicalConstraints: constraints,
	}, nil
}

// validateRefine requires an updated prompt and defaults the list fields.
func validateRefine(raw *rawRefine) (*RefineResponse, error) {
	if raw == nil || strings.TrimSpace(raw.UpdatedPrompt) == "" {
		return nil, errors.NewInvalidLLMOutput("updated_prompt missing")
	}
	out := &RefineResponse{
		UpdatedPrompt:     strings.TrimSpace(raw.UpdatedPrompt),
		ReasonsForChanges: nonEmpty(raw.ReasonsForChanges),
		AdditionalChecks:  nonEmpty(raw.AdditionalChecks),
	}
	if out.ReasonsForChanges == nil {
		out.ReasonsForChanges = []string{}
	}
	if out.AdditionalChecks == nil {
		out.AdditionalChecks = []string{}
	}
	if ids := nonEmpty(raw.FocusStepIDs); len(ids) > 0 {
		out.FocusStepIDs = ids
	}
	return out, nil
}

// ValidatePlanRequest rejects a plan request before any network call.
func ValidatePlanRequest(req *PlanRequest) error {
	if req == nil || strings.TrimSpace(req.Idea) == "" {
		return errors.NewInvalidRequest("idea is required")
	}
	return nil
}

// ValidateRefineRequest rejects a refine request before any network call.
func ValidateRefineRequest(req *RefineRequest) error {
	if req == nil || strings.TrimSpace(req.Plan) == "" {
		return errors.NewInvalidRequest("plan is required")
	}
	return nil
}

func nonEmpty(xs []string) []string {
	var out []string
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}
