package update

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/notepad/internal/errors"
)

// summaryMaxRunes is how much of the idea is kept in an update summary.
const summaryMaxRunes = 60

// NewID generates a new ULID string.
func NewID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// New creates a pending update for idea with one checklist item per step.
func New(idea, plan string, steps []PlanStep, now time.Time) *Update {
	now = now.UTC()
	return &Update{
		ID:        NewID(now),
		Idea:      idea,
		Plan:      plan,
		Checklist: FromPlan(steps, now),
		Status:    StatusPending,
		Summary:   Summary(idea),
		CreatedAt: now,
		Type:      KindNormal,
	}
}

// FromPlan materializes planner steps into pending checklist items with fresh ids.
func FromPlan(steps []PlanStep, now time.Time) []ChecklistItem {
	items := make([]ChecklistItem, 0, len(steps))
	for _, s := range steps {
		items = append(items, ChecklistItem{
			ID:       NewID(now),
			Step:     s.Step,
			Why:      s.Why,
			Expected: s.Expected,
			Status:   StatusPending,
		})
	}
	return items
}

// Summary builds the short label shown in history lists.
func Summary(idea string) string {
	if utf8.RuneCountInString(idea) <= summaryMaxRunes {
		return "Implement: " + idea
	}
	return "Implement: " + string([]rune(idea)[:summaryMaxRunes]) + "..."
}

// DeriveStatus computes an update's status from its items:
// fail if any item failed, pass if all items passed, pending otherwise.
// An empty checklist is pending.
func DeriveStatus(items []ChecklistItem) Status {
	if len(items) == 0 {
		return StatusPending
	}
	allPass := true
	for _, it := range items {
		switch it.Status {
		case StatusFail:
			return StatusFail
		case StatusPass:
		default:
			allPass = false
		}
	}
	if allPass {
		return StatusPass
	}
	return StatusPending
}

// ResolveStep finds a checklist item by id, or by 1-based position when ref is
// a small integer. Returns nil when nothing matches.
func (u *Update) ResolveStep(ref string) *ChecklistItem {
	ref = strings.TrimSpace(ref)
	if it := u.FindItem(ref); it != nil {
		return it
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(u.Checklist) {
		return &u.Checklist[n-1]
	}
	return nil
}

// MarkPass sets a pending item to pass and recomputes the update status.
// It returns the heuristic learned from the passed item, or nil when nothing
// changed (unknown step, or the item already has a verdict).
func MarkPass(u *Update, stepRef string, now time.Time) *Heuristic {
	it := u.ResolveStep(stepRef)
	if it == nil || it.Status != StatusPending {
		return nil
	}
	it.Status = StatusPass
	u.Status = DeriveStatus(u.Checklist)

	now = now.UTC()
	return &Heuristic{
		ID:        NewID(now),
		Pattern:   PatternFor(*it),
		Score:     1,
		CreatedAt: now,
	}
}

// MarkFail sets a pending item to fail with reason and forces the update to fail.
// An empty reason is rejected before any state change. The returned bool is
// false when nothing changed (unknown step, or the item already has a verdict).
func MarkFail(u *Update, stepRef, reason string) (bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, errors.NewInvalidRequest("failure reason is required")
	}
	it := u.ResolveStep(stepRef)
	if it == nil || it.Status != StatusPending {
		return false, nil
	}
	it.Status = StatusFail
	it.FailureReason = reason
	u.FailureReason = reason
	u.Status = StatusFail
	return true, nil
}

// PatternFor builds the heuristic pattern text for a passed item.
func PatternFor(it ChecklistItem) string {
	return it.Step + " - " + it.Why
}

// NextPending returns the first pending item, or nil.
func NextPending(u *Update) *ChecklistItem {
	for i := range u.Checklist {
		if u.Checklist[i].Status == StatusPending {
			return &u.Checklist[i]
		}
	}
	return nil
}

// HasFailure reports whether any item failed.
func HasFailure(u *Update) bool {
	for _, it := range u.Checklist {
		if it.Status == StatusFail {
			return true
		}
	}
	return false
}

// FailureReasons returns the non-empty reasons of failed items, in checklist order.
func FailureReasons(u *Update) []string {
	var reasons []string
	for _, it := range u.Checklist {
		if it.Status == StatusFail && it.FailureReason != "" {
			reasons = append(reasons, it.FailureReason)
		}
	}
	return reasons
}

// Progress renders "N/M passed".
func Progress(u *Update) string {
	passed := 0
	for _, it := range u.Checklist {
		if it.Status == StatusPass {
			passed++
		}
	}
	return fmt.Sprintf("%d/%d passed", passed, len(u.Checklist))
}

// FailureTags collects the failure reasons of failed updates, used as planner context.
func FailureTags(updates []Update) []string {
	var tags []string
	for _, u := range updates {
		if u.Status == StatusFail && u.FailureReason != "" {
			tags = append(tags, u.FailureReason)
		}
	}
	return tags
}

// TopPatterns returns up to n patterns ordered by score, highest first.
// Ties keep their stored order. n <= 0 returns all patterns.
func TopPatterns(hs []Heuristic, n int) []string {
	sorted := make([]Heuristic, len(hs))
	copy(sorted, hs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	patterns := make([]string, 0, len(sorted))
	for _, h := range sorted {
		patterns = append(patterns, h.Pattern)
	}
	return patterns
}
