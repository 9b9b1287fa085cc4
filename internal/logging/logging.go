package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New creates the application logger. It writes to Stderr so that pipeline
// results on Stdout stay machine-readable. Interactive terminals get the
// text handler; everything else (batch jobs, schedulers, pipes) gets JSON.
func New(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
