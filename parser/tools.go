package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// ToolUse is a tool invocation found in an assistant message payload.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolUses returns the tool_use blocks of a payload in order.
func ToolUses(payload json.RawMessage) []ToolUse {
	if len(payload) == 0 {
		return nil
	}
	content := gjson.GetBytes(payload, "content")
	if !content.IsArray() {
		return nil
	}
	var uses []ToolUse
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str != "tool_use" {
			return true
		}
		input := block.Get("input")
		uses = append(uses, ToolUse{
			ID:    block.Get("id").Str,
			Name:  block.Get("name").Str,
			Input: json.RawMessage(input.Raw),
		})
		return true
	})
	return uses
}

// LineDelta estimates lines added and removed by a file-modifying tool call.
// Counts are whole-string line counts, not a diff.
func LineDelta(tu ToolUse) (added, removed int) {
	in := gjson.ParseBytes(tu.Input)
	switch tu.Name {
	case "Edit":
		return countLines(in.Get("new_string").Str), countLines(in.Get("old_string").Str)
	case "MultiEdit":
		in.Get("edits").ForEach(func(_, e gjson.Result) bool {
			added += countLines(e.Get("new_string").Str)
			removed += countLines(e.Get("old_string").Str)
			return true
		})
		return added, removed
	case "Write":
		return countLines(in.Get("content").Str), 0
	}
	return 0, 0
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// ToolSummary generates a one-line summary for a tool call. Returns the tool
// name when the input is missing or has nothing worth showing.
func ToolSummary(name string, input json.RawMessage) string {
	if len(input) == 0 || !gjson.ValidBytes(input) {
		return name
	}
	in := gjson.ParseBytes(input)
	str := func(key string) string { return in.Get(key).Str }

	switch name {
	case "Read", "Write", "Edit", "MultiEdit":
		fp := str("file_path")
		if fp == "" {
			return name
		}
		short := ShortPath(fp, 2)
		if name == "Write" {
			if n := countLines(str("content")); n > 0 {
				return fmt.Sprintf("%s - %d lines", short, n)
			}
		}
		return short
	case "Bash":
		desc, cmd := str("description"), str("command")
		switch {
		case desc != "" && cmd != "":
			return shorten(desc+": "+cmd, 60)
		case desc != "":
			return shorten(desc, 60)
		case cmd != "":
			return shorten(cmd, 60)
		}
	case "Grep", "Glob":
		pattern := str("pattern")
		if pattern == "" {
			return name
		}
		s := `"` + shorten(pattern, 30) + `"`
		if glob := str("glob"); glob != "" {
			return s + " in " + glob
		}
		if p := str("path"); p != "" {
			return s + " in " + filepath.Base(p)
		}
		return s
	case "Task", "Agent":
		desc := str("description")
		if desc == "" {
			desc = str("prompt")
		}
		if desc != "" {
			return shorten(desc, 40)
		}
	case "WebFetch":
		raw := str("url")
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return shorten(u.Hostname()+u.Path, 50)
		}
		if raw != "" {
			return shorten(raw, 50)
		}
	case "WebSearch":
		if q := str("query"); q != "" {
			return `"` + shorten(q, 40) + `"`
		}
	case "TodoWrite":
		if todos := in.Get("todos"); todos.IsArray() {
			n := len(todos.Array())
			if n == 1 {
				return "1 item"
			}
			return fmt.Sprintf("%d items", n)
		}
	default:
		for _, key := range []string{"name", "path", "file", "query", "command"} {
			if v := str(key); v != "" {
				return shorten(v, 50)
			}
		}
	}
	return name
}

// ShortPath returns the last n segments of a file path.
func ShortPath(fullPath string, n int) string {
	var segments []string
	for _, p := range strings.Split(filepath.ToSlash(fullPath), "/") {
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) > n {
		segments = segments[len(segments)-n:]
	}
	return strings.Join(segments, "/")
}

// shorten is the single-line form of Truncate used for tool summaries:
// newlines collapse to spaces and the result never exceeds maxLen runes.
func shorten(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
