// Package store keeps updates, heuristics, and the current-update pointer as
// JSON blobs under three fixed keys. Reads tolerate missing or corrupt blobs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notepad/internal/db"
	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/logging"
	"github.com/hpungsan/notepad/internal/update"
)

// Storage keys.
const (
	KeyUpdates    = "execution-notepad-updates"
	KeyHeuristics = "execution-notepad-heuristics"
	KeyCurrent    = "execution-notepad-current"
)

// Store is a blob store over the kv table.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a Store over an initialized database.
func New(database *sql.DB) *Store {
	return &Store{db: database, log: logging.Component("store")}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Updates returns all updates, most recent first.
// A missing or corrupt blob reads as an empty list.
func (s *Store) Updates(ctx context.Context) ([]update.Update, error) {
	updates, err := load[[]update.Update](ctx, s, KeyUpdates)
	if err != nil {
		return nil, err
	}
	if updates == nil {
		updates = []update.Update{}
	}
	return updates, nil
}

// Update returns the update with id, or NOT_FOUND.
func (s *Store) Update(ctx context.Context, id string) (*update.Update, error) {
	updates, err := s.Updates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range updates {
		if updates[i].ID == id {
			return &updates[i], nil
		}
	}
	return nil, errors.NewNotFound("update", id)
}

// SaveUpdate replaces the update with the same id in place, or prepends it.
func (s *Store) SaveUpdate(ctx context.Context, u *update.Update) error {
	updates, err := s.Updates(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range updates {
		if updates[i].ID == u.ID {
			updates[i] = *u
			replaced = true
			break
		}
	}
	if !replaced {
		updates = append([]update.Update{*u}, updates...)
	}
	return s.save(ctx, KeyUpdates, updates)
}

// SaveUpdates overwrites the whole update list.
func (s *Store) SaveUpdates(ctx context.Context, updates []update.Update) error {
	if updates == nil {
		updates = []update.Update{}
	}
	return s.save(ctx, KeyUpdates, updates)
}

// DeleteUpdate removes the update with id. Returns false if it did not exist.
func (s *Store) DeleteUpdate(ctx context.Context, id string) (bool, error) {
	updates, err := s.Updates(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]update.Update, 0, len(updates))
	for _, u := range updates {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(updates) {
		return false, nil
	}
	return true, s.save(ctx, KeyUpdates, kept)
}

// Heuristics returns all heuristics in insertion order.
// A missing or corrupt blob reads as an empty list.
func (s *Store) Heuristics(ctx context.Context) ([]update.Heuristic, error) {
	hs, err := load[[]update.Heuristic](ctx, s, KeyHeuristics)
	if err != nil {
		return nil, err
	}
	if hs == nil {
		hs = []update.Heuristic{}
	}
	return hs, nil
}

// SaveHeuristic appends h, or, if a heuristic with the same pattern exists,
// overwrites its score and keeps its id and creation time.
func (s *Store) SaveHeuristic(ctx context.Context, h *update.Heuristic) error {
	hs, err := s.Heuristics(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range hs {
		if hs[i].Pattern == h.Pattern {
			hs[i].Score = h.Score
			found = true
			break
		}
	}
	if !found {
		hs = append(hs, *h)
	}
	return s.save(ctx, KeyHeuristics, hs)
}

// SaveHeuristics overwrites the whole heuristic list.
func (s *Store) SaveHeuristics(ctx context.Context, hs []update.Heuristic) error {
	if hs == nil {
		hs = []update.Heuristic{}
	}
	return s.save(ctx, KeyHeuristics, hs)
}

// CurrentID returns the id of the current update, or "" when none is set.
func (s *Store) CurrentID(ctx context.Context) (string, error) {
	return load[string](ctx, s, KeyCurrent)
}

// Current returns the current update, or nil when none is set or the pointer
// refers to an update that no longer exists.
func (s *Store) Current(ctx context.Context) (*update.Update, error) {
	id, err := s.CurrentID(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	u, err := s.Update(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		s.log.Warn().Str("id", id).Msg("current update pointer is dangling")
		return nil, nil
	}
	return u, err
}

// SetCurrent points the current update at id. An empty id clears it.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	if id == "" {
		return db.Delete(ctx, s.db, KeyCurrent)
	}
	return s.save(ctx, KeyCurrent, id)
}

// load decodes the blob at key. Missing keys and corrupt blobs yield the zero
// value; corrupt blobs are logged.
func load[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T
	raw, ok, err := db.Get(ctx, s.db, key)
	if err != nil || !ok || raw == "" {
		return zero, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("ignoring corrupt blob")
		return zero, nil
	}
	return v, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("encode %s: %w", key, err))
	}
	return db.Set(ctx, s.db, key, string(data))
}
