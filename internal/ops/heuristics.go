package ops

import (
	"context"
	"sort"

	"github.com/hpungsan/notepad/internal/update"
)

// HeuristicsInput contains parameters for the Heuristics operation.
type HeuristicsInput struct {
	Limit int `json:"limit,omitempty"`
}

// HeuristicsOutput contains the result of the Heuristics operation.
type HeuristicsOutput struct {
	Items []update.Heuristic `json:"items"`
	Total int                `json:"total"`
}

// Heuristics returns learned patterns ordered by score, highest first.
func (s *Service) Heuristics(ctx context.Context, input HeuristicsInput) (*HeuristicsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHeuristicsLimit
	}
	if limit > MaxHeuristicsLimit {
		limit = MaxHeuristicsLimit
	}

	hs, err := s.store.Heuristics(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	sorted := make([]update.Heuristic, len(hs))
	copy(sorted, hs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return &HeuristicsOutput{Items: sorted, Total: len(hs)}, nil
}
