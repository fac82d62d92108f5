package main

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/kylesnowschwartz/claude-history/history"
	"github.com/kylesnowschwartz/claude-history/parser"
)

// shortModel turns "claude-opus-4-6" into "opus4.6".
func shortModel(m string) string {
	if m == history.UnknownModel {
		return "?"
	}
	m = strings.TrimPrefix(m, "claude-")
	parts := strings.SplitN(m, "-", 2)
	if len(parts) == 2 {
		modelFamily := parts[0]
		// Keep major-minor only, drop patch/build metadata (e.g. "4-6-20250101" -> "4-6").
		vParts := strings.SplitN(parts[1], "-", 3)
		modelVersion := vParts[0]
		if len(vParts) >= 2 {
			modelVersion = vParts[0] + "-" + vParts[1]
		}
		return modelFamily + strings.ReplaceAll(modelVersion, "-", ".")
	}
	return m
}

// modelColor returns a color based on the Claude model family.
func modelColor(model string) color.Color {
	switch {
	case strings.Contains(model, "opus"):
		return ColorModelOpus
	case strings.Contains(model, "sonnet"):
		return ColorModelSonnet
	case strings.Contains(model, "haiku"):
		return ColorModelHaiku
	default:
		return ColorTextSecondary
	}
}

// formatDuration formats milliseconds into human-readable duration: 71000 -> "1m 11s", 3500 -> "3.5s"
func formatDuration(ms float64) string {
	secs := ms / 1000
	switch {
	case secs >= 3600:
		h := int(secs) / 3600
		m := (int(secs) % 3600) / 60
		return fmt.Sprintf("%dh %dm", h, m)
	case secs >= 60:
		mins := int(secs) / 60
		rem := int(secs) % 60
		return fmt.Sprintf("%dm %ds", mins, rem)
	case secs >= 10:
		return fmt.Sprintf("%.0fs", secs)
	default:
		return fmt.Sprintf("%.1fs", secs)
	}
}

// formatSessionName picks the label for a conversation row. A custom name
// wins; otherwise standard UUIDs show only their first group, which is
// enough to tell sessions apart.
func formatSessionName(id, customName string) string {
	if customName != "" {
		return parser.Truncate(customName, 30)
	}
	if len(id) == 36 && id[8] == '-' && id[13] == '-' && id[18] == '-' && id[23] == '-' {
		return id[:8]
	}
	return parser.Truncate(id, 20)
}

// projectLabel shortens a project path to its repository or directory name.
func projectLabel(projectPath string) string {
	if projectPath == "" {
		return ""
	}
	return parser.ProjectName(projectPath)
}

// formatTimestamp renders a log timestamp in local time.
func formatTimestamp(ts string) string {
	t := history.ParseTimestamp(ts)
	if t.IsZero() {
		return ts
	}
	return t.Local().Format("Jan 2 15:04")
}

// relativeTime formats t relative to now: "just now", "5m ago", "3d ago".
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// wrapText breaks text into lines of at most maxWidth runes.
func wrapText(s string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{s}
	}
	var lines []string
	runes := []rune(s)
	for len(runes) > 0 {
		if len(runes) <= maxWidth {
			lines = append(lines, string(runes))
			break
		}
		// Find last space within maxWidth.
		cut := maxWidth
		for i := maxWidth; i > maxWidth-20 && i > 0; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		lines = append(lines, string(runes[:cut]))
		runes = runes[cut:]
		// Skip leading space on next line.
		if len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	return lines
}
