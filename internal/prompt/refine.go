package prompt

import "strings"

// guardrails are appended to every refined prompt.
var guardrails = []string{
	"Verify types match interfaces",
	"Test the exact failure scenario",
	"Keep changes under 50 lines",
}

// RefineInput carries what a refined prompt is built from.
type RefineInput struct {
	Summary          string
	Progress         string
	FailureReasons   []string
	UpdatedPrompt    string
	AdditionalChecks []string
}

// Refinement renders the prompt used after a step failed. It always embeds the
// recorded failure reasons, so the user sees what is being addressed even when
// the model's own prompt does not mention them.
func Refinement(in RefineInput) string {
	var b strings.Builder
	b.WriteString("Surgical change: " + in.Summary + " (refined)\n\n")
	b.WriteString("Address failure: " + strings.Join(in.FailureReasons, ", ") + "\n")
	if in.Progress != "" {
		b.WriteString("Progress: " + in.Progress + "\n")
	}
	b.WriteString("Only add/change: The minimal fix for the specific failure.\n")
	b.WriteString("Don't touch: Working components or unrelated code.\n\n")

	if p := strings.TrimSpace(in.UpdatedPrompt); p != "" {
		b.WriteString(p + "\n\n")
	}

	b.WriteString("Additional guardrails:\n")
	b.WriteString(bulletList(append(append([]string{}, guardrails...), in.AdditionalChecks...)))
	b.WriteString("\n\n")
	b.WriteString(closingLine)
	return b.String()
}
