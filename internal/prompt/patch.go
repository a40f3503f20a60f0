// Package prompt renders the copy-paste "surgical" prompts handed to an
// external coding assistant. All functions are pure and byte-stable.
package prompt

import (
	"strings"

	"github.com/hpungsan/notepad/internal/update"
)

// closingLine ends every full patch prompt.
const closingLine = "If a test is easy, add/adjust one minimal test. Keep diff small."

// DefaultNextConstraints are used for follow-up steps after the first prompt.
var DefaultNextConstraints = []string{
	"Keep existing patterns",
	"Minimal changes only",
	"Preserve working code",
}

// Patch renders the prompt for a single checklist step.
func Patch(step update.ChecklistItem, constraints []string) string {
	var b strings.Builder
	b.WriteString("Surgical change: " + step.Step + "\n\n")
	b.WriteString("Only add/change: The specific components and functions needed for \"" + step.Step + "\". \n")
	b.WriteString("Don't touch: Existing styles, unrelated components, or configuration files.\n")
	b.WriteString("Keep styles/conventions: Use existing design patterns and component structure.\n\n")
	b.WriteString("Target: " + step.Expected + "\n")
	b.WriteString("Reason: " + step.Why + "\n\n")
	b.WriteString("Constraints:\n")
	b.WriteString(bulletList(constraints))
	b.WriteString("\n\n")
	b.WriteString(closingLine)
	return b.String()
}

// PlanPatch renders the compact first prompt for a freshly planned idea.
// Used when the planner does not supply its own patch prompt.
func PlanPatch(idea string, first update.PlanStep, constraints []string) string {
	var b strings.Builder
	b.WriteString("Surgical change: Implement \"" + idea + "\"\n")
	b.WriteString("Target: " + first.Expected + "\n")
	b.WriteString("Reason: " + first.Why + "\n")
	b.WriteString("Constraints:\n")
	b.WriteString(bulletList(constraints))
	return b.String()
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}
