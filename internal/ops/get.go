package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/update"
)

// Get returns the update with id.
func (s *Service) Get(ctx context.Context, id string) (*update.Update, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.fail(errors.NewInvalidRequest("id is required"))
	}
	u, err := s.store.Update(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	return u, nil
}

// Current returns the current update, or nil when none is selected.
func (s *Service) Current(ctx context.Context) (*update.Update, error) {
	u, err := s.store.Current(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	return u, nil
}

// Select makes the update with id current.
func (s *Service) Select(ctx context.Context, id string) (*update.Update, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.fail(errors.NewInvalidRequest("id is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.Update(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.store.SetCurrent(ctx, u.ID); err != nil {
		return nil, s.fail(err)
	}
	return u, nil
}
