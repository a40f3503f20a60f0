package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/notepad/internal/update"
)

var mockSteps = []update.PlanStep{
	{Step: "Set up component structure", Why: "Foundation", Expected: "Component renders"},
	{Step: "Implement core logic", Why: "Main value", Expected: "Feature works"},
	{Step: "Add error handling", Why: "Resilience", Expected: "Graceful errors"},
	{Step: "Write basic test", Why: "Verify", Expected: "Test passes"},
}

var mockConstraints = []string{
	"Only add necessary files",
	"Keep styles/conventions",
	"Preserve TS types",
	"Minimal diff",
}

// MockPlanner is a deterministic offline planner. Its output passes through
// the same validation as the model's.
type MockPlanner struct {
	bounds Bounds
}

// NewMockPlanner creates a mock planner.
func NewMockPlanner(b Bounds) *MockPlanner {
	return &MockPlanner{bounds: b}
}

// Name implements Planner.
func (m *MockPlanner) Name() string { return "mock" }

// Plan implements Planner.
func (m *MockPlanner) Plan(ctx context.Context, req *PlanRequest) (*PlanResponse, error) {
	if err := ValidatePlanRequest(req); err != nil {
		return nil, err
	}
	idea := strings.TrimSpace(req.Idea)
	steps := append([]update.PlanStep(nil), mockSteps...)
	for i := len(steps); i < m.bounds.Min; i++ {
		steps = append(steps, update.PlanStep{
			Step:     fmt.Sprintf("Verify edge case %d", i-len(mockSteps)+1),
			Why:      "Coverage",
			Expected: "Behaves as expected",
		})
	}
	raw := &rawPlan{
		Plan:                "Implement " + idea + " with minimal, safe edits.",
		Checklist:           steps,
		SurgicalConstraints: append([]string(nil), mockConstraints...),
	}
	return validatePlan(raw, idea, m.bounds)
}

// Refine implements Planner.
func (m *MockPlanner) Refine(ctx context.Context, req *RefineRequest) (*RefineResponse, error) {
	if err := ValidateRefineRequest(req); err != nil {
		return nil, err
	}
	return validateRefine(&rawRefine{
		UpdatedPrompt:     "Surgical change: Address failures precisely. Keep diff small.",
		ReasonsForChanges: []string{"Focus on failure context"},
		AdditionalChecks:  []string{"Reproduce failing scenario"},
	})
}
