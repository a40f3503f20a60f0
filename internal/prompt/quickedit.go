package prompt

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/hpungsan/notepad/internal/update"
)

// ChangeType classifies a quick edit as a style or a text change.
func ChangeType(before string) string {
	if strings.Contains(before, "className") || strings.Contains(before, "class=") {
		return "style change"
	}
	return "text change"
}

func scopeSentence(s update.Scope) string {
	switch s {
	case update.ScopeSelected:
		return "Selected occurrences"
	case update.ScopeAll:
		return "All occurrences in this file"
	default:
		return "This occurrence only"
	}
}

// QuickEdit renders the micro prompt for a single narrow change.
func QuickEdit(d update.QuickEditData) string {
	where := "at the specified location"
	if d.Anchor != "" {
		where = "within " + d.Anchor
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Surgical change: In %s, %s, change \"%s\" to \"%s\".\n\n", d.File, where, d.Before, d.After)
	fmt.Fprintf(&b, "Only update this specific %s. Don't alter props, keys, routes, logic, or other styling.\n", ChangeType(d.Before))
	fmt.Fprintf(&b, "Scope: %s.\n\n", scopeSentence(d.Scope))
	b.WriteString("If a test is easy, adjust one minimal test. Keep diff small.")
	return b.String()
}

// DiffPreview renders a unified-style line diff of before -> after for file.
// Returns "" when either side is blank.
func DiffPreview(file, before, after string) string {
	if strings.TrimSpace(before) == "" || strings.TrimSpace(after) == "" {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var body strings.Builder
	oldCount, newCount := 0, 0
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			if d.Type != diffmatchpatch.DiffInsert {
				oldCount++
			}
			if d.Type != diffmatchpatch.DiffDelete {
				newCount++
			}
			body.WriteString("\n" + prefix + line)
		}
	}

	return fmt.Sprintf("--- %s\n+++ %s\n@@ -1,%d +1,%d @@%s", file, file, oldCount, newCount, body.String())
}

// CountOccurrences counts non-overlapping occurrences of needle in source.
func CountOccurrences(source, needle string) int {
	if needle == "" {
		return 0
	}
	return strings.Count(source, needle)
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
