package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w at the given level.
// The level can be one of: debug, info, warn, error. Empty means info.
// When console is true, output is human-readable instead of JSON.
func New(level string, w io.Writer, console bool) (zerolog.Logger, error) {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(lvl), nil
}

// Setup installs a logger as the global zerolog logger.
// stdout is reserved for CLI output and MCP frames, so callers pass stderr.
func Setup(level string, w io.Writer, console bool) error {
	l, err := New(level, w, console)
	if err != nil {
		return err
	}
	log.Logger = l
	return nil
}

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
