package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/update"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any id collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // fresh id on collision
)

// maxImportLine bounds a single JSONL line (one update with its checklist).
const maxImportLine = 4 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     `json:"path"`           // required
	Mode ImportMode `json:"mode,omitempty"` // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported   int           `json:"imported"`
	Heuristics int           `json:"heuristics"`
	Skipped    int           `json:"skipped"`
	Errors     []ImportError `json:"errors"`

	// Renamed maps original ids to the fresh ids minted in rename mode.
	Renamed map[string]string `json:"renamed,omitempty"`
}

// ImportError describes a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type parsedUpdate struct {
	line int
	u    update.Update
}

// Import merges updates and heuristics from an export file.
//
// In error mode nothing is written if any line fails to parse or any update
// id already exists, in the store or earlier in the same file. In replace mode
// bad lines are skipped and reported, and the last record for an id wins. In
// rename mode a colliding update is stored under a fresh id. Heuristics always
// merge by pattern.
func (s *Service) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, s.fail(errors.NewInvalidRequest("path is required"))
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeRename:
	default:
		return nil, s.fail(errors.NewInvalidRequest("mode must be one of: error, replace, rename"))
	}

	exportsDir, err := ExportsDir(s.baseDir)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := ValidatePath(input.Path, PathCheckRead, exportsDir, s.cfg); err != nil {
		return nil, s.fail(err)
	}

	file, err := openNoFollow(input.Path, 0, 0)
	if err != nil {
		return nil, s.fail(err)
	}
	defer file.Close()

	updates, heuristics, parseErrors := parseExport(file)
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Skipped: len(parseErrors), Errors: parseErrors}, nil
	}
	if ctx.Err() != nil {
		return nil, s.fail(errors.NewCancelled("import"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Updates(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	index := make(map[string]int, len(existing))
	for i := range existing {
		index[existing[i].ID] = i
	}

	if input.Mode == ImportModeError {
		if collision := findCollision(updates, index); collision != nil {
			return &ImportOutput{Errors: []ImportError{*collision}}, nil
		}
	}

	var renamed map[string]string
	merged := existing
	written := make(map[string]bool, len(updates))
	for _, p := range updates {
		i, ok := index[p.u.ID]
		if ok && input.Mode == ImportModeRename {
			newID := update.NewID(s.now())
			if renamed == nil {
				renamed = make(map[string]string)
			}
			renamed[p.u.ID] = newID
			p.u.ID = newID
			ok = false
		}
		// A repeated id within the file overwrites its earlier record.
		written[p.u.ID] = true
		if ok {
			merged[i] = p.u
			continue
		}
		index[p.u.ID] = len(merged)
		merged = append(merged, p.u)
	}
	imported := len(written)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if err := s.store.SaveUpdates(ctx, merged); err != nil {
		return nil, s.fail(err)
	}

	for i := range heuristics {
		if err := s.store.SaveHeuristic(ctx, &heuristics[i]); err != nil {
			return nil, s.fail(err)
		}
	}

	s.log.Info().Str("path", input.Path).Str("mode", string(input.Mode)).Int("updates", imported).
		Int("renamed", len(renamed)).Int("heuristics", len(heuristics)).Int("skipped", len(parseErrors)).Msg("imported")

	errs := parseErrors
	if errs == nil {
		errs = []ImportError{}
	}
	return &ImportOutput{
		Imported:   imported,
		Heuristics: len(heuristics),
		Skipped:    len(parseErrors),
		Errors:     errs,
		Renamed:    renamed,
	}, nil
}

// findCollision reports the first update whose id exists in the store or
// appears on an earlier line of the same file.
func findCollision(updates []parsedUpdate, existing map[string]int) *ImportError {
	seen := make(map[string]int, len(updates))
	for _, p := range updates {
		if _, ok := existing[p.u.ID]; ok {
			return &ImportError{
				Line:    p.line,
				ID:      p.u.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("update with id %q already exists", p.u.ID),
			}
		}
		if first, ok := seen[p.u.ID]; ok {
			return &ImportError{
				Line:    p.line,
				ID:      p.u.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("update id %q repeats line %d", p.u.ID, first),
			}
		}
		seen[p.u.ID] = p.line
	}
	return nil
}

// parseExport reads an export stream. The header line is skipped; every other
// line must be an update or heuristic record.
func parseExport(r io.Reader) ([]parsedUpdate, []update.Heuristic, []ImportError) {
	var (
		updates    []parsedUpdate
		heuristics []update.Heuristic
		errs       []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec ExportRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			errs = append(errs, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if rec.NotepadExport {
			continue
		}

		switch rec.Kind {
		case RecordUpdate:
			if rec.Update == nil || strings.TrimSpace(rec.Update.ID) == "" {
				errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "missing update id"})
				continue
			}
			u := *rec.Update
			u.Status = update.DeriveStatus(u.Checklist)
			updates = append(updates, parsedUpdate{line: lineNum, u: u})
		case RecordHeuristic:
			if rec.Heuristic == nil || strings.TrimSpace(rec.Heuristic.Pattern) == "" {
				errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "missing heuristic pattern"})
				continue
			}
			heuristics = append(heuristics, *rec.Heuristic)
		default:
			errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: fmt.Sprintf("unknown record kind %q", rec.Kind)})
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: lineNum, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return updates, heuristics, errs
}
