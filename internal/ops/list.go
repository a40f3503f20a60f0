package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/update"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Status string `json:"status,omitempty"` // optional filter: pending, pass, fail
	Type   string `json:"type,omitempty"`   // optional filter: normal, quickEdit
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// UpdateSummary is the history row for an update.
type UpdateSummary struct {
	ID        string        `json:"id"`
	Summary   string        `json:"summary"`
	Status    update.Status `json:"status"`
	Type      update.Kind   `json:"type"`
	Progress  string        `json:"progress"`
	CreatedAt time.Time     `json:"createdAt"`
	Current   bool          `json:"current,omitempty"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []UpdateSummary `json:"items"`
	Pagination Pagination      `json:"pagination"`
}

// List returns update summaries, most recent first.
func (s *Service) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	status := update.Status(strings.TrimSpace(input.Status))
	switch status {
	case "", update.StatusPending, update.StatusPass, update.StatusFail:
	default:
		return nil, s.fail(errors.NewInvalidRequest("status must be one of: pending, pass, fail"))
	}
	kind := update.Kind(strings.TrimSpace(input.Type))
	switch kind {
	case "", update.KindNormal, update.KindQuickEdit:
	default:
		return nil, s.fail(errors.NewInvalidRequest("type must be one of: normal, quickEdit"))
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	updates, err := s.store.Updates(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	currentID, err := s.store.CurrentID(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	filtered := make([]update.Update, 0, len(updates))
	for _, u := range updates {
		if status != "" && u.Status != status {
			continue
		}
		if kind != "" && kindOf(&u) != kind {
			continue
		}
		filtered = append(filtered, u)
	}

	total := len(filtered)
	start := min(offset, total)
	end := min(start+limit, total)

	items := make([]UpdateSummary, 0, end-start)
	for i := start; i < end; i++ {
		u := &filtered[i]
		items = append(items, UpdateSummary{
			ID:        u.ID,
			Summary:   u.Summary,
			Status:    u.Status,
			Type:      kindOf(u),
			Progress:  update.Progress(u),
			CreatedAt: u.CreatedAt,
			Current:   u.ID == currentID,
		})
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
	}, nil
}

// kindOf treats a missing type as a normal update.
func kindOf(u *update.Update) update.Kind {
	if u.IsQuickEdit() {
		return update.KindQuickEdit
	}
	return update.KindNormal
}
