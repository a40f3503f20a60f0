package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/update"
)

// ExportSchemaVersion is written in the header line of every export.
const ExportSchemaVersion = "1.0"

// Record kinds in an export file.
const (
	RecordUpdate    = "update"
	RecordHeuristic = "heuristic"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path  string `json:"path,omitempty"`  // optional, default: <exports>/<label>-<timestamp>.jsonl
	Label string `json:"label,omitempty"` // optional file name prefix, default "notepad"
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Updates    int    `json:"updates"`
	Heuristics int    `json:"heuristics"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	NotepadExport bool   `json:"_notepad_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord is one line after the header: an update or a heuristic.
type ExportRecord struct {
	NotepadExport bool              `json:"_notepad_export,omitempty"`
	Kind          string            `json:"kind,omitempty"`
	Update        *update.Update    `json:"update,omitempty"`
	Heuristic     *update.Heuristic `json:"heuristic,omitempty"`
}

// Export writes a snapshot of all updates and heuristics to a JSONL file.
// The file is written to a temp file and renamed into place, so an existing
// export at the same path survives a failed run.
func (s *Service) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := s.now()

	exportsDir, err := ExportsDir(s.baseDir)
	if err != nil {
		return nil, s.fail(err)
	}

	exportPath := input.Path
	if exportPath == "" {
		label := "notepad"
		if input.Label != "" {
			label = SanitizeForFilename(input.Label)
		}
		exportPath = filepath.Join(exportsDir, fmt.Sprintf("%s-%s.jsonl", label, now.Format("2006-01-02T150405")))
		if err := os.MkdirAll(exportsDir, 0700); err != nil {
			return nil, s.fail(errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err)))
		}
	}

	if err := ValidatePath(exportPath, PathCheckWrite, exportsDir, s.cfg); err != nil {
		return nil, s.fail(err)
	}

	updates, err := s.store.Updates(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	heuristics, err := s.store.Heuristics(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, s.fail(errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err)))
	}
	tempPath := exportPath + "." + hex.EncodeToString(suffix) + ".tmp"

	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, s.fail(err)
	}
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(ExportHeader{NotepadExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: now.Unix()}); err != nil {
		return nil, s.fail(errors.NewInternal(err))
	}
	for i := range updates {
		if ctx.Err() != nil {
			return nil, s.fail(errors.NewCancelled("export"))
		}
		if err := enc.Encode(ExportRecord{Kind: RecordUpdate, Update: &updates[i]}); err != nil {
			return nil, s.fail(errors.NewInternal(err))
		}
	}
	for i := range heuristics {
		if err := enc.Encode(ExportRecord{Kind: RecordHeuristic, Heuristic: &heuristics[i]}); err != nil {
			return nil, s.fail(errors.NewInternal(err))
		}
	}

	if err := w.Flush(); err != nil {
		return nil, s.fail(errors.NewInternal(err))
	}
	if err := file.Sync(); err != nil {
		return nil, s.fail(errors.NewInternal(err))
	}
	// Windows cannot rename an open file.
	if err := file.Close(); err != nil {
		return nil, s.fail(errors.NewInternal(fmt.Errorf("failed to close export file: %w", err)))
	}
	file = nil

	// os.Rename would follow a symlink swapped in after validation.
	if isSymlink(exportPath) {
		return nil, s.fail(errors.NewInvalidRequest("path must not be a symlink"))
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, s.fail(errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file"))
			}
		}
		return nil, s.fail(errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err)))
	}
	success = true

	s.log.Info().Str("path", exportPath).Int("updates", len(updates)).Int("heuristics", len(heuristics)).Msg("exported")
	return &ExportOutput{
		Path:       exportPath,
		Updates:    len(updates),
		Heuristics: len(heuristics),
		ExportedAt: now.Unix(),
	}, nil
}
