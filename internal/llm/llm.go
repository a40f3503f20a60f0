// Package llm obtains plans and prompt refinements from a chat-completion
// backend, and validates the model's JSON before anything else sees it.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hpungsan/notepad/internal/config"
	"github.com/hpungsan/notepad/internal/update"
)

// Planner produces plans and refinements.
type Planner interface {
	Plan(ctx context.Context, req *PlanRequest) (*PlanResponse, error)
	Refine(ctx context.Context, req *RefineRequest) (*RefineResponse, error)
	// Name identifies the backend ("model" or "mock").
	Name() string
}

// PlanRequest is the input of a plan call. Only Idea is required.
type PlanRequest struct {
	Idea               string   `json:"idea"`
	X                  string   `json:"X,omitempty"`
	Y                  string   `json:"Y,omitempty"`
	FileTree           string   `json:"file_tree,omitempty"`
	Snippets           string   `json:"snippets,omitempty"`
	FailureTags        []string `json:"failure_tags,omitempty"`
	Heuristics         []string `json:"heuristics,omitempty"`
	AcceptanceCriteria string   `json:"acceptance_criteria,omitempty"`
	TinyTest           string   `json:"tiny_test,omitempty"`
}

// PlanResponse is a validated plan.
type PlanResponse struct {
	Plan                string            `json:"plan"`
	Checklist           []update.PlanStep `json:"checklist"`
	PatchPrompt         string            `json:"patch_prompt"`
	SurgicalConstraints []string          `json:"surgical_constraints"`
}

// RefineRequest is the input of a refine call. Only Plan is required.
// CheckResults may be a JSON string or any JSON value.
type RefineRequest struct {
	Plan               string          `json:"plan"`
	CheckResults       json.RawMessage `json:"check_results,omitempty"`
	FailureNotes       []string        `json:"failure_notes,omitempty"`
	Logs               string          `json:"logs,omitempty"`
	X                  string          `json:"X,omitempty"`
	Y                  string          `json:"Y,omitempty"`
	Snippets           string          `json:"snippets,omitempty"`
	AcceptanceCriteria string          `json:"acceptance_criteria,omitempty"`
	Heuristics         []string        `json:"heuristics,omitempty"`
}

// RefineResponse is a validated refinement. FocusStepIDs is nil (JSON null)
// when the model did not name any steps.
type RefineResponse struct {
	UpdatedPrompt     string   `json:"updated_prompt"`
	ReasonsForChanges []string `json:"reasons_for_changes"`
	AdditionalChecks  []string `json:"additional_checks"`
	FocusStepIDs      []string `json:"focus_step_ids"`
}

// Bounds limits the checklist length accepted from a planner.
type Bounds struct {
	Min int
	Max int
}

// BoundsFrom reads checklist bounds from config, falling back to [3,7].
// Max is never below Min.
func BoundsFrom(cfg *config.Config) Bounds {
	b := Bounds{Min: 3, Max: 7}
	if cfg == nil {
		return b
	}
	if cfg.ChecklistMin > 0 {
		b.Min = cfg.ChecklistMin
	}
	if cfg.ChecklistMax > 0 {
		b.Max = cfg.ChecklistMax
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	return b
}

// New returns the planner configured by cfg: the offline mock when no API key
// is set or llm_mock is on, otherwise the chat-completion client.
func New(cfg *config.Config) Planner {
	if cfg.UseMock() {
		return NewMockPlanner(BoundsFrom(cfg))
	}
	return NewModelPlanner(cfg)
}

// checkResultsText renders check_results the way the model expects:
// strings verbatim, other JSON values as compact JSON, absent as "[]".
func checkResultsText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "[]"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}
