package history

import (
	"log/slog"
	"sort"
	"time"

	"github.com/kylesnowschwartz/claude-history/parser"
)

const (
	// NoSummary is used when a conversation has neither a summary entry nor
	// a user message to fall back on.
	NoSummary = "No summary available"

	// UnknownModel is reported when no message names a model.
	UnknownModel = "Unknown"

	summaryMaxLen = 100
)

// timestampLayout matches the millisecond ISO-8601 form Claude Code writes.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// BuildOptions configures BuildChains.
type BuildOptions struct {
	// Filter removes messages before derived fields are computed.
	// Nil keeps every message.
	Filter MessageFilter
	Logger *slog.Logger
	// Now supplies the fallback timestamp for sessions without any.
	Now func() time.Time
}

// BuildChains groups conversational entries by session, orders each session
// causally along parentUuid links, and derives the per-chain metadata.
//
// Entries of every file and project take part; two files carrying the same
// sessionId contribute to one chain. Sessions left empty after filtering are
// omitted. The result is sorted by SessionID.
func BuildChains(entries []parser.Entry, opts BuildOptions) []Chain {
	logger := orDiscard(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sessions := make(map[string][]parser.Entry)
	summaries := make(map[string]string)
	for _, e := range entries {
		switch {
		case e.Type == parser.TypeSummary:
			if e.LeafUUID != "" && e.Summary != "" {
				summaries[e.LeafUUID] = e.Summary
			}
		case e.IsConversational() && e.SessionID != "":
			sessions[e.SessionID] = append(sessions[e.SessionID], e)
		}
	}

	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	chains := make([]Chain, 0, len(ids))
	for _, id := range ids {
		if c, ok := buildChain(id, sessions[id], summaries, opts.Filter, now, logger); ok {
			chains = append(chains, c)
		}
	}
	return chains
}

// buildChain assembles one session. A panic here costs only this session.
func buildChain(id string, group []parser.Entry, summaries map[string]string, filter MessageFilter, now func() time.Time, logger *slog.Logger) (c Chain, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("failed to build conversation chain", "session", id, "panic", r)
			c, ok = Chain{}, false
		}
	}()

	msgs := make([]Message, len(group))
	for i, e := range group {
		msgs[i] = toMessage(e)
	}
	ordered := orderMessages(msgs)

	filtered := ordered
	if filter != nil {
		filtered = filter.FilterMessages(ordered)
	}
	if len(filtered) == 0 {
		return Chain{}, false
	}

	c = Chain{
		SessionID:   id,
		Messages:    filtered,
		ProjectPath: projectPath(ordered, group[0].SourceProject),
		Summary:     resolveSummary(filtered, summaries),
		Model:       UnknownModel,
	}
	for _, m := range filtered {
		c.TotalDuration += m.DurationMs
		if c.Model == UnknownModel {
			if model := parser.PayloadModel(m.Message); model != "" {
				c.Model = model
			}
		}
		if m.Timestamp == "" {
			continue
		}
		if c.CreatedAt == "" || m.Timestamp < c.CreatedAt {
			c.CreatedAt = m.Timestamp
		}
		if m.Timestamp > c.UpdatedAt {
			c.UpdatedAt = m.Timestamp
		}
	}
	if c.CreatedAt == "" {
		c.CreatedAt = now().UTC().Format(timestampLayout)
		c.UpdatedAt = c.CreatedAt
	}
	return c, true
}

func toMessage(e parser.Entry) Message {
	return Message{
		UUID:        e.UUID,
		Type:        e.Type,
		Message:     e.Message,
		Timestamp:   e.Timestamp,
		SessionID:   e.SessionID,
		ParentUUID:  e.ParentUUID,
		IsSidechain: e.IsSidechain,
		UserType:    e.UserType,
		CWD:         e.CWD,
		Version:     e.Version,
		DurationMs:  e.DurationMs,
	}
}

// orderMessages walks parentUuid links depth-first from the first root,
// visiting siblings oldest first. Messages the walk cannot reach (orphans,
// extra roots, members of a cycle) follow in timestamp order. Without any
// root the whole session is ordered by timestamp.
func orderMessages(msgs []Message) []Message {
	head := -1
	for i, m := range msgs {
		if m.ParentUUID == "" {
			head = i
			break
		}
	}
	if head < 0 {
		out := append([]Message(nil), msgs...)
		sortByTimestamp(out)
		return out
	}

	children := make(map[string][]int)
	for i, m := range msgs {
		if m.ParentUUID != "" {
			children[m.ParentUUID] = append(children[m.ParentUUID], i)
		}
	}
	for _, kids := range children {
		sort.SliceStable(kids, func(a, b int) bool {
			return msgs[kids[a]].Timestamp < msgs[kids[b]].Timestamp
		})
	}

	// A uuid is emitted once even when several entries share it.
	out := make([]Message, 0, len(msgs))
	visited := make(map[string]bool, len(msgs))
	stack := []int{head}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[msgs[i].UUID] {
			continue
		}
		visited[msgs[i].UUID] = true
		out = append(out, msgs[i])

		// Push in reverse so the oldest child is popped first.
		kids := children[msgs[i].UUID]
		for k := len(kids) - 1; k >= 0; k-- {
			if !visited[msgs[kids[k]].UUID] {
				stack = append(stack, kids[k])
			}
		}
	}

	var rest []Message
	for _, m := range msgs {
		if !visited[m.UUID] {
			visited[m.UUID] = true
			rest = append(rest, m)
		}
	}
	sortByTimestamp(rest)
	return append(out, rest...)
}

func sortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}

// projectPath prefers the working directory recorded on the first message
// and falls back to decoding the project directory the log lived in.
func projectPath(ordered []Message, sourceProject string) string {
	if len(ordered) > 0 && ordered[0].CWD != "" {
		return ordered[0].CWD
	}
	if sourceProject == "" {
		return ""
	}
	return parser.DecodeProjectDir(sourceProject)
}

// resolveSummary takes the summary attached to the latest message that has
// one, else the opening user prompt.
func resolveSummary(msgs []Message, summaries map[string]string) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if s, ok := summaries[msgs[i].UUID]; ok {
			return s
		}
	}
	for _, m := range msgs {
		if m.Type != parser.TypeUser {
			continue
		}
		if parser.HasPayload(m.Message) {
			if text := parser.ExtractText(m.Message); text != "" {
				return parser.Truncate(text, summaryMaxLen)
			}
		}
		break
	}
	return NoSummary
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
