package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/kylesnowschwartz/claude-history/enrich"
	"github.com/kylesnowschwartz/claude-history/history"
	"github.com/kylesnowschwartz/claude-history/sessioninfo"
)

// errNoStore is returned by commands that write annotations when the
// annotations database could not be opened.
var errNoStore = errors.New("session annotations database unavailable")

// app holds what every subcommand shares. Built once per invocation by the
// root command's PersistentPreRunE.
type app struct {
	cfg    config
	logger *slog.Logger
	reader *history.Reader
	store  *sessioninfo.Store // nil when the database cannot be opened
}

// newApp opens the annotations store and wires the reader. A store that
// fails to open is logged and skipped: listings fall back to defaults.
func newApp(cfg config, logger *slog.Logger) *app {
	a := &app{cfg: cfg, logger: logger}

	store, err := sessioninfo.Open(cfg.dbPath)
	if err != nil {
		logger.Warn("session annotations unavailable", "path", cfg.dbPath, "error", err)
	} else {
		a.store = store
	}

	rc := history.Config{
		HomePath: cfg.claudeDir,
		Filter:   enrich.NoiseFilter{},
		Metrics:  enrich.ToolMetrics{},
		Logger:   logger,
	}
	if a.store != nil {
		rc.SessionInfo = a.store
	}
	a.reader = history.NewReader(rc)
	return a
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing annotations database", "error", err)
	}
}

// requireStore returns the store or errNoStore.
func (a *app) requireStore() (*sessioninfo.Store, error) {
	if a.store == nil {
		return nil, errNoStore
	}
	return a.store, nil
}

// requireConversation fails with a not-found error unless sessionID is a
// known conversation.
func (a *app) requireConversation(ctx context.Context, sessionID string) error {
	if _, ok := a.reader.ConversationMetadata(ctx, sessionID); !ok {
		return fmt.Errorf("conversation %s: %w", sessionID, history.ErrNotFound)
	}
	return nil
}

// terminalWidth returns the width of stdout, or maxContentWidth when stdout
// is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return maxContentWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return maxContentWidth
	}
	return w
}
