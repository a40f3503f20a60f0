package update

import "time"

// Status is the verdict state of a checklist item or an update.
type Status string

const (
	StatusPending Status = "pending"
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
)

// Kind distinguishes full plan updates from single-change quick edits.
type Kind string

const (
	KindNormal    Kind = "normal"
	KindQuickEdit Kind = "quickEdit"
)

// Scope selects which occurrences a quick edit applies to.
type Scope string

const (
	ScopeSingle   Scope = "single"
	ScopeSelected Scope = "selected"
	ScopeAll      Scope = "all"
)

// ValidScope reports whether s is a known quick-edit scope.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeSingle, ScopeSelected, ScopeAll:
		return true
	}
	return false
}

// Update is one idea-to-completion cycle with its plan, checklist, and status.
// JSON field names match the stored blob format.
type Update struct {
	// ID is a ULID that uniquely identifies this update
	ID string `json:"id"`

	// Idea is the feature idea as submitted by the user
	Idea string `json:"idea"`

	// Plan is the model's one-paragraph plan
	Plan string `json:"plan"`

	// Checklist is the ordered list of verifiable steps
	Checklist []ChecklistItem `json:"checklist"`

	// Status is derived from the checklist (see DeriveStatus)
	Status Status `json:"status"`

	// FailureReason is the most recent failure reason recorded on this update
	FailureReason string `json:"failureReason,omitempty"`

	// PromptUsed is the current copy-paste prompt
	PromptUsed string `json:"promptUsed"`

	// UpdatedPrompt is the last refined prompt returned by the model
	UpdatedPrompt string `json:"updatedPrompt,omitempty"`

	// Summary is a short label ("Implement: ...")
	Summary string `json:"summary"`

	// CreatedAt is when the update was created (UTC)
	CreatedAt time.Time `json:"createdAt"`

	// FileList is an optional list of files the change touches
	FileList []string `json:"fileList,omitempty"`

	// Type is normal or quickEdit; empty is treated as normal
	Type Kind `json:"type,omitempty"`

	// QuickEditData is set for quick-edit updates only
	QuickEditData *QuickEditData `json:"quickEditData,omitempty"`
}

// ChecklistItem is one verifiable execution step within an update.
type ChecklistItem struct {
	ID            string `json:"id"`
	Step          string `json:"step"`
	Why           string `json:"why"`
	Expected      string `json:"expected"`
	Status        Status `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Heuristic is a remembered successful pattern, scored for ranking.
type Heuristic struct {
	ID        string    `json:"id"`
	Pattern   string    `json:"pattern"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuickEditData describes a single narrow text or style change.
type QuickEditData struct {
	File            string `json:"file"`
	Anchor          string `json:"anchor"`
	Before          string `json:"before"`
	After           string `json:"after"`
	OccurrenceCount int    `json:"occurrenceCount"`
	DiffPreview     string `json:"diffPreview"`
	Scope           Scope  `json:"scope"`
}

// PlanStep is one checklist entry as returned by the planner.
type PlanStep struct {
	Step     string `json:"step"`
	Why      string `json:"why"`
	Expected string `json:"expected"`
}

// IsQuickEdit reports whether u is a quick-edit update.
func (u *Update) IsQuickEdit() bool {
	return u.Type == KindQuickEdit
}

// FindItem returns the checklist item with the given id, or nil.
func (u *Update) FindItem(stepID string) *ChecklistItem {
	for i := range u.Checklist {
		if u.Checklist[i].ID == stepID {
			return &u.Checklist[i]
		}
	}
	return nil
}
