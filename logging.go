package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns an slog.Logger backed by a charmbracelet/log handler
// writing to w. level is one of debug, info, warn, error.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "claude-history",
		ReportTimestamp: lvl <= log.DebugLevel,
	})
	return slog.New(handler), nil
}
