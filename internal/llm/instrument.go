package llm

import (
	"context"
	"time"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/metrics"
)

// instrumented records call counts and latency for a Planner.
type instrumented struct {
	next Planner
	m    *metrics.Metrics
}

// WithMetrics wraps p so every call is recorded in m. A nil m returns p.
func WithMetrics(p Planner, m *metrics.Metrics) Planner {
	if m == nil {
		return p
	}
	return &instrumented{next: p, m: m}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Plan(ctx context.Context, req *PlanRequest) (*PlanResponse, error) {
	start := time.Now()
	out, err := i.next.Plan(ctx, req)
	i.m.RecordLLMCall("plan", i.next.Name(), time.Since(start), errCode(err))
	return out, err
}

func (i *instrumented) Refine(ctx context.Context, req *RefineRequest) (*RefineResponse, error) {
	start := time.Now()
	out, err := i.next.Refine(ctx, req)
	i.m.RecordLLMCall("refine", i.next.Name(), time.Since(start), errCode(err))
	return out, err
}

func errCode(err error) string {
	if err == nil {
		return ""
	}
	return string(errors.As(err).Code)
}
