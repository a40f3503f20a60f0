package llm

import (
	"fmt"
	"strings"
)

const planSystemPrompt = "You are a senior engineer. Return strict JSON only: a concise plan, a 3-7 step checklist, and a ready-to-paste patch_prompt. Keep changes surgical."

const refineSystemPrompt = "You improve prompts using explicit failure reasons. Return strict JSON only: updated_prompt, reasons_for_changes[], additional_checks[], optional focus_step_ids[]. Keep scope surgical."

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func joinOr(xs []string, sep, def string) string {
	if len(xs) == 0 {
		return def
	}
	return strings.Join(xs, sep)
}

func planUserPrompt(r *PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Idea: %s\n", r.Idea)
	fmt.Fprintf(&b, "X: %s\n", r.X)
	fmt.Fprintf(&b, "Y: %s\n", r.Y)
	fmt.Fprintf(&b, "File tree:\n%s\n", orDefault(r.FileTree, "n/a"))
	fmt.Fprintf(&b, "Snippets:\n%s\n", orDefault(r.Snippets, "n/a"))
	fmt.Fprintf(&b, "Failure tags: %s\n", joinOr(r.FailureTags, ", ", "none"))
	fmt.Fprintf(&b, "Heuristics: %s\n", joinOr(r.Heuristics, " | ", "none"))
	fmt.Fprintf(&b, "Acceptance criteria:\n%s\n", orDefault(r.AcceptanceCriteria, "n/a"))
	fmt.Fprintf(&b, "Tiny test:\n%s\n\n", orDefault(r.TinyTest, "n/a"))
	b.WriteString(`JSON schema: { "plan": string, "checklist": Array<{"step": string, "why": string, "expected": string}>, "patch_prompt": string, "surgical_constraints": string[] }`)
	return b.String()
}

func refineUserPrompt(r *RefineRequest) string {
	failures := make([]string, 0, len(r.FailureNotes))
	for _, f := range r.FailureNotes {
		failures = append(failures, "- "+f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %s\n", r.Plan)
	fmt.Fprintf(&b, "Results: %s\n", checkResultsText(r.CheckResults))
	fmt.Fprintf(&b, "Failures:\n%s\n", joinOr(failures, "\n", "none"))
	fmt.Fprintf(&b, "Logs:\n%s\n", orDefault(r.Logs, "n/a"))
	fmt.Fprintf(&b, "Heuristics: %s\n", joinOr(r.Heuristics, " | ", "none"))
	fmt.Fprintf(&b, "Snippets:\n%s\n", orDefault(r.Snippets, "n/a"))
	fmt.Fprintf(&b, "Acceptance criteria:\n%s\n", orDefault(r.AcceptanceCriteria, "n/a"))
	fmt.Fprintf(&b, "X: %s\n", r.X)
	fmt.Fprintf(&b, "Y: %s\n\n", r.Y)
	b.WriteString(`JSON schema: { "updated_prompt": string, "reasons_for_changes": string[], "additional_checks": string[], "focus_step_ids"?: string[] }`)
	return b.String()
}
