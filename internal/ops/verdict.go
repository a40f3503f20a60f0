package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/update"
)

// VerdictInput addresses one checklist item. An empty UpdateID means the
// current update. Step is an item id or a 1-based position.
type VerdictInput struct {
	UpdateID string `json:"update_id,omitempty"`
	Step     string `json:"step"`
	Reason   string `json:"reason,omitempty"`
}

// VerdictOutput contains the result of MarkPass and MarkFail.
type VerdictOutput struct {
	Update    *update.Update    `json:"update"`
	Changed   bool              `json:"changed"`
	Heuristic *update.Heuristic `json:"heuristic,omitempty"`
}

// MarkPass records a pass for a pending item and stores the learned heuristic.
// Items that already have a verdict are left unchanged.
func (s *Service) MarkPass(ctx context.Context, input VerdictInput) (*VerdictOutput, error) {
	if strings.TrimSpace(input.Step) == "" {
		return nil, s.fail(errors.NewInvalidRequest("step is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.resolve(ctx, input.UpdateID)
	if err != nil {
		return nil, s.fail(err)
	}

	h := update.MarkPass(u, strings.TrimSpace(input.Step), s.now())
	if h == nil {
		return &VerdictOutput{Update: u}, nil
	}
	if err := s.store.SaveUpdate(ctx, u); err != nil {
		return nil, s.fail(err)
	}
	if err := s.store.SaveHeuristic(ctx, h); err != nil {
		return nil, s.fail(err)
	}

	s.metrics.RecordVerdict(string(update.StatusPass))
	s.log.Debug().Str("id", u.ID).Str("status", string(u.Status)).Msg("step passed")
	return &VerdictOutput{Update: u, Changed: true, Heuristic: h}, nil
}

// MarkFail records a failure with a reason for a pending item.
func (s *Service) MarkFail(ctx context.Context, input VerdictInput) (*VerdictOutput, error) {
	if strings.TrimSpace(input.Step) == "" {
		return nil, s.fail(errors.NewInvalidRequest("step is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.resolve(ctx, input.UpdateID)
	if err != nil {
		return nil, s.fail(err)
	}

	changed, err := update.MarkFail(u, strings.TrimSpace(input.Step), input.Reason)
	if err != nil {
		return nil, s.fail(err)
	}
	if !changed {
		return &VerdictOutput{Update: u}, nil
	}
	if err := s.store.SaveUpdate(ctx, u); err != nil {
		return nil, s.fail(err)
	}

	s.metrics.RecordVerdict(string(update.StatusFail))
	s.log.Debug().Str("id", u.ID).Str("reason", u.FailureReason).Msg("step failed")
	return &VerdictOutput{Update: u, Changed: true}, nil
}
