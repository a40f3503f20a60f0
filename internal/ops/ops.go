package ops

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/hpungsan/notepad/internal/config"
	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/llm"
	"github.com/hpungsan/notepad/internal/logging"
	"github.com/hpungsan/notepad/internal/metrics"
	"github.com/hpungsan/notepad/internal/store"
	"github.com/hpungsan/notepad/internal/update"
)

// Pagination limits
const (
	DefaultListLimit       = 20
	MaxListLimit           = 100
	DefaultHeuristicsLimit = 50
	MaxHeuristicsLimit     = 500

	// planHeuristics is how many top-scored patterns are sent with a plan request.
	planHeuristics = 5
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Options configures a Service.
type Options struct {
	// Metrics records workflow counters. Nil disables recording.
	Metrics *metrics.Metrics

	// Now overrides the clock (tests).
	Now func() time.Time

	// BaseDir is the notepad home (~/.notepad); exports default to BaseDir/exports.
	BaseDir string
}

// Service runs the idea -> plan -> execute -> verify -> refine loop over a
// Store and a Planner.
//
// At most one plan/refine generation runs at a time; a second caller gets BUSY
// instead of waiting. Read-modify-write cycles on the stored blobs are
// serialized by mu, which is never held across a planner call.
type Service struct {
	store   *store.Store
	planner llm.Planner
	cfg     *config.Config
	baseDir string
	metrics *metrics.Metrics
	now     func() time.Time
	log     zerolog.Logger

	gen *semaphore.Weighted
	mu  sync.Mutex
}

// NewService creates a Service.
func NewService(st *store.Store, planner llm.Planner, cfg *config.Config, opts Options) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   st,
		planner: planner,
		cfg:     cfg,
		baseDir: opts.BaseDir,
		metrics: opts.Metrics,
		now:     func() time.Time { return now().UTC() },
		log:     logging.Component("ops"),
		gen:     semaphore.NewWeighted(1),
	}
}

// Store returns the underlying store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Planner returns the plan/refine backend.
func (s *Service) Planner() llm.Planner {
	return s.planner
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// beginGeneration claims the generation slot or fails with BUSY.
// The returned func releases the slot.
func (s *Service) beginGeneration() (func(), error) {
	if !s.gen.TryAcquire(1) {
		s.metrics.RecordBusy()
		return nil, errors.NewBusy()
	}
	return func() { s.gen.Release(1) }, nil
}

// resolve returns the update addressed by id, or the current update when id is empty.
func (s *Service) resolve(ctx context.Context, id string) (*update.Update, error) {
	id = strings.TrimSpace(id)
	if id != "" {
		return s.store.Update(ctx, id)
	}
	u, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NewInvalidRequest("no current update; pass an update id or submit an idea first")
	}
	return u, nil
}

// fail records the error code before handing the error back.
func (s *Service) fail(err error) error {
	if err != nil {
		s.metrics.RecordError(string(errors.As(err).Code))
	}
	return err
}
