// Package history reconstructs Claude Code conversations from the JSONL logs
// under ~/.claude/projects and serves them with filtering and pagination.
//
// The expensive part is incremental: a Coordinator remembers parsed entries
// per file, re-reads only files whose modification time moved, and rebuilds
// chains only when the set of files or their times changed. Concurrent
// readers share one in-flight refresh.
package history

import (
	"context"
	"encoding/json"

	"github.com/kylesnowschwartz/claude-history/parser"
)

// Message is the canonical form of one user or assistant turn.
type Message struct {
	UUID        string           `json:"uuid"`
	Type        parser.EntryType `json:"type"`
	Message     json.RawMessage  `json:"message"`
	Timestamp   string           `json:"timestamp"`
	SessionID   string           `json:"sessionId"`
	ParentUUID  string           `json:"parentUuid,omitempty"`
	IsSidechain bool             `json:"isSidechain,omitempty"`
	UserType    string           `json:"userType,omitempty"`
	CWD         string           `json:"cwd,omitempty"`
	Version     string           `json:"version,omitempty"`
	DurationMs  float64          `json:"durationMs,omitempty"`
}

// Chain is one session's messages in causal order plus derived metadata.
// Chains are rebuilt wholesale and never modified after construction.
type Chain struct {
	SessionID     string
	Messages      []Message
	ProjectPath   string
	Summary       string
	CreatedAt     string
	UpdatedAt     string
	TotalDuration float64
	Model         string
}

// SessionInfo is the externally stored metadata for a session.
type SessionInfo struct {
	CustomName            string `json:"custom_name"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
	Version               int    `json:"version"`
	Pinned                bool   `json:"pinned"`
	Archived              bool   `json:"archived"`
	ContinuationSessionID string `json:"continuation_session_id"`
	InitialCommitHead     string `json:"initial_commit_head"`
	PermissionMode        string `json:"permission_mode"`
}

// ToolMetrics aggregates tool usage across a conversation.
type ToolMetrics struct {
	LinesAdded   int                         `json:"linesAdded"`
	LinesRemoved int                         `json:"linesRemoved"`
	EditCount    int                         `json:"editCount"`
	WriteCount   int                         `json:"writeCount"`
	ByCategory   map[parser.ToolCategory]int `json:"byCategory,omitempty"`
}

// ConversationSummary is one row of a conversation listing.
type ConversationSummary struct {
	SessionID     string       `json:"sessionId"`
	ProjectPath   string       `json:"projectPath"`
	Summary       string       `json:"summary"`
	SessionInfo   SessionInfo  `json:"sessionInfo"`
	CreatedAt     string       `json:"createdAt"`
	UpdatedAt     string       `json:"updatedAt"`
	MessageCount  int          `json:"messageCount"`
	TotalDuration float64      `json:"totalDuration"`
	Model         string       `json:"model"`
	Status        string       `json:"status"`
	ToolMetrics   *ToolMetrics `json:"toolMetrics,omitempty"`
}

// StatusCompleted is the status every listed conversation starts with;
// callers that track live processes overwrite it.
const StatusCompleted = "completed"

// Metadata is the subset of a chain returned by ConversationMetadata.
type Metadata struct {
	Summary       string  `json:"summary"`
	ProjectPath   string  `json:"projectPath"`
	Model         string  `json:"model"`
	TotalDuration float64 `json:"totalDuration"`
}

// ListResult is a page of conversations and the filtered total.
type ListResult struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}

// SessionInfoProvider looks up stored metadata for a session.
type SessionInfoProvider interface {
	SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error)
}

// MessageFilter decides which messages a reader gets to see.
type MessageFilter interface {
	FilterMessages(msgs []Message) []Message
}

// MetricsCalculator computes tool statistics for a filtered message list.
type MetricsCalculator interface {
	CalculateMetrics(msgs []Message) *ToolMetrics
}

// MessageFilterFunc adapts a function to MessageFilter.
type MessageFilterFunc func([]Message) []Message

func (f MessageFilterFunc) FilterMessages(msgs []Message) []Message { return f(msgs) }

// MetricsFunc adapts a function to MetricsCalculator.
type MetricsFunc func([]Message) *ToolMetrics

func (f MetricsFunc) CalculateMetrics(msgs []Message) *ToolMetrics { return f(msgs) }

// SessionInfoFunc adapts a function to SessionInfoProvider.
type SessionInfoFunc func(ctx context.Context, sessionID string) (SessionInfo, error)

func (f SessionInfoFunc) SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error) {
	return f(ctx, sessionID)
}
