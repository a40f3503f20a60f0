package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
)

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	ID             string `json:"id"`
	Deleted        bool   `json:"deleted"`
	CurrentCleared bool   `json:"current_cleared"`
}

// Delete removes an update from history. If it was the current update, the
// current pointer is cleared.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.fail(errors.NewInvalidRequest("id is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.store.DeleteUpdate(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	if !deleted {
		return nil, s.fail(errors.NewNotFound("update", id))
	}

	out := &DeleteOutput{ID: id, Deleted: true}

	currentID, err := s.store.CurrentID(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	if currentID == id {
		if err := s.store.SetCurrent(ctx, ""); err != nil {
			return nil, s.fail(err)
		}
		out.CurrentCleared = true
	}

	s.log.Info().Str("id", id).Bool("current_cleared", out.CurrentCleared).Msg("update deleted")
	return out, nil
}
