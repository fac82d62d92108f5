package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kylesnowschwartz/claude-history/parser"
)

// sessionLookupLimit bounds concurrent SessionInfo calls during a listing.
const sessionLookupLimit = 8

// Config wires a Reader to its collaborators. Only HomePath is required.
type Config struct {
	// HomePath is the Claude configuration directory, usually ~/.claude.
	// Logs are read from HomePath/projects.
	HomePath string

	SessionInfo SessionInfoProvider
	Filter      MessageFilter
	Metrics     MetricsCalculator
	Logger      *slog.Logger

	// Parse overrides the file parser.
	Parse ParseFunc
	// Now overrides the clock used for fallback timestamps.
	Now func() time.Time
}

// Reader answers conversation queries over a Claude home directory.
// It is safe for concurrent use.
type Reader struct {
	home        string
	projectsDir string
	coord       *Coordinator
	sessions    SessionInfoProvider
	metrics     MetricsCalculator
	logger      *slog.Logger
	now         func() time.Time
}

// NewReader returns a Reader for cfg.
func NewReader(cfg Config) *Reader {
	logger := orDiscard(cfg.Logger)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	projectsDir := filepath.Join(cfg.HomePath, "projects")

	opts := []CoordinatorOption{
		WithLogger(logger),
		WithBuildOptions(BuildOptions{Filter: cfg.Filter, Logger: logger, Now: now}),
	}
	if cfg.Parse != nil {
		opts = append(opts, WithParseFunc(cfg.Parse))
	}

	return &Reader{
		home:        cfg.HomePath,
		projectsDir: projectsDir,
		coord:       NewCoordinator(projectsDir, opts...),
		sessions:    cfg.SessionInfo,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         now,
	}
}

// HomePath returns the Claude home directory the Reader was built with.
func (r *Reader) HomePath() string { return r.home }

// ProjectsDir returns the directory holding the per-project log folders.
func (r *Reader) ProjectsDir() string { return r.projectsDir }

// chains returns the current chains, refreshing from disk as needed.
func (r *Reader) chains(ctx context.Context) ([]Chain, error) {
	staleness := parser.ScanModTimes(r.projectsDir, r.logger)
	return r.coord.Refresh(ctx, staleness)
}

// find returns the chain for sessionID. chains is sorted by SessionID.
func find(chains []Chain, sessionID string) (Chain, bool) {
	i, ok := slices.BinarySearchFunc(chains, sessionID, func(c Chain, id string) int {
		return strings.Compare(c.SessionID, id)
	})
	if !ok {
		return Chain{}, false
	}
	return chains[i], true
}

// ListConversations returns the conversations selected by q together with
// the number that matched before pagination. A nil q lists everything.
func (r *Reader) ListConversations(ctx context.Context, q *ListQuery) (ListResult, error) {
	chains, err := r.chains(ctx)
	if err != nil {
		return ListResult{}, readFailed(CodeHistoryReadFailed, "failed to read conversation history", err)
	}

	summaries := make([]ConversationSummary, len(chains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sessionLookupLimit)
	for i, c := range chains {
		g.Go(func() error {
			summaries[i] = r.summarize(gctx, c)
			return nil
		})
	}
	_ = g.Wait() // lookups never fail; errors fall back to defaults

	if err := ctx.Err(); err != nil {
		return ListResult{}, readFailed(CodeHistoryReadFailed, "failed to read conversation history", err)
	}

	page, total := ApplyQuery(summaries, q)
	r.logger.Debug("listed conversations", "total", total, "returned", len(page))
	return ListResult{Conversations: page, Total: total}, nil
}

func (r *Reader) summarize(ctx context.Context, c Chain) ConversationSummary {
	s := ConversationSummary{
		SessionID:     c.SessionID,
		ProjectPath:   c.ProjectPath,
		Summary:       c.Summary,
		SessionInfo:   r.sessionInfo(ctx, c.SessionID),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		MessageCount:  len(c.Messages),
		TotalDuration: c.TotalDuration,
		Model:         c.Model,
		Status:        StatusCompleted,
	}
	if r.metrics != nil {
		s.ToolMetrics = r.metrics.CalculateMetrics(c.Messages)
	}
	return s
}

// sessionInfo looks up stored metadata, substituting defaults when there
// is no provider or the lookup fails.
func (r *Reader) sessionInfo(ctx context.Context, sessionID string) SessionInfo {
	if r.sessions == nil {
		return DefaultSessionInfo(r.now())
	}
	info, err := r.sessions.SessionInfo(ctx, sessionID)
	if err != nil {
		r.logger.Warn("session info lookup failed; using defaults", "session", sessionID, "error", err)
		return DefaultSessionInfo(r.now())
	}
	return info
}

// DefaultSessionInfo is the metadata assumed for a session nobody has
// annotated.
func DefaultSessionInfo(now time.Time) SessionInfo {
	ts := now.UTC().Format(timestampLayout)
	return SessionInfo{
		CreatedAt:      ts,
		UpdatedAt:      ts,
		Version:        4,
		PermissionMode: "default",
	}
}

// FetchConversation returns the messages of one conversation in causal
// order. An unknown session yields an *Error matching ErrNotFound.
func (r *Reader) FetchConversation(ctx context.Context, sessionID string) ([]Message, error) {
	chains, err := r.chains(ctx)
	if err != nil {
		return nil, readFailed(CodeConversationReadFailed, "failed to read conversation", err)
	}
	c, ok := find(chains, sessionID)
	if !ok {
		return nil, notFound(sessionID)
	}
	return c.Messages, nil
}

// ConversationMetadata returns summary fields for one conversation. It
// reports false when the session is unknown or history cannot be read.
func (r *Reader) ConversationMetadata(ctx context.Context, sessionID string) (Metadata, bool) {
	c, ok := r.lookup(ctx, sessionID)
	if !ok {
		return Metadata{}, false
	}
	return Metadata{
		Summary:       c.Summary,
		ProjectPath:   c.ProjectPath,
		Model:         c.Model,
		TotalDuration: c.TotalDuration,
	}, true
}

// WorkingDirectory returns the project path a conversation ran in.
func (r *Reader) WorkingDirectory(ctx context.Context, sessionID string) (string, bool) {
	c, ok := r.lookup(ctx, sessionID)
	if !ok {
		return "", false
	}
	return c.ProjectPath, true
}

func (r *Reader) lookup(ctx context.Context, sessionID string) (Chain, bool) {
	chains, err := r.chains(ctx)
	if err != nil {
		r.logger.Error("failed to read conversation history", "session", sessionID, "error", err)
		return Chain{}, false
	}
	return find(chains, sessionID)
}

// ClearCache forgets everything parsed so far.
func (r *Reader) ClearCache() {
	r.coord.Clear()
	r.logger.Debug("conversation cache cleared")
}
