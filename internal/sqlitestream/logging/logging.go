// Package logging provides structured logging for a decode run using slog.
package logging

import (
	"log/slog"
	"os"
	"time"
)

// Level represents a log level independent of slog's own type, matching the
// shape the rest of this codebase's config layer exposes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the slog handler used for run diagnostics.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// New builds a logger for a single decode run. Run-scoped (not a global
// singleton) since multiple Decoders may be live in the same process.
func New(level Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slogLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RunLogger returns a logger pre-tagged with the run's identifier, attached
// to every subsequent record so concurrent runs in one process log stream
// stay distinguishable.
func RunLogger(base *slog.Logger, runID string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("run_id", runID)
}
