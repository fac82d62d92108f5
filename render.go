package main

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/tidwall/gjson"

	"github.com/kylesnowschwartz/claude-history/history"
	"github.com/kylesnowschwartz/claude-history/parser"
)

// -- Layout constants ---------------------------------------------------------

// maxContentWidth is the maximum width for content rendering.
const maxContentWidth = 120

// maxToolResultLines caps how much of a tool result `show` prints.
const maxToolResultLines = 8

// -- Helpers ------------------------------------------------------------------

// spaceBetween lays out left and right strings with gap-fill spacing to span width.
func spaceBetween(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

// indentBlock adds a prefix to every line of a block of text.
func indentBlock(text string, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// truncateLines caps content to maxLines and returns the truncated text plus
// the number of hidden lines. Returns (content, 0) when within the limit.
func truncateLines(content string, maxLines int) (string, int) {
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content, 0
	}
	return strings.Join(lines[:maxLines], "\n"), len(lines) - maxLines
}

// clampWidth keeps rendering inside [40, maxContentWidth].
func clampWidth(w int) int {
	return min(max(w, 40), maxContentWidth)
}

// -- Conversation listing -----------------------------------------------------

// renderDateHeader renders a date group header with underline rule.
func renderDateHeader(category history.DateCategory, width int) string {
	label := StyleSecondaryBold.Render(string(category))
	ruleLen := max(width-lipgloss.Width(label)-3, 0) // 2 indent + 1 space
	return "  " + label + " " + StyleMuted.Render(strings.Repeat("─", ruleLen))
}

// renderListing renders conversations grouped by date, the way `list`
// prints them. total is the match count before pagination.
func renderListing(convs []history.ConversationSummary, total int, now time.Time, width int) string {
	width = clampWidth(width)
	header := StyleAccentBold.Render("Conversations") + " " +
		StyleDim.Render(fmt.Sprintf("(%d of %d)", len(convs), total))
	if len(convs) == 0 {
		return header + "\n\n" + StyleDim.Render("  No conversations found.")
	}

	var b strings.Builder
	b.WriteString(header)
	for _, g := range history.GroupByDateAt(convs, now) {
		b.WriteString("\n\n")
		b.WriteString(renderDateHeader(g.Category, width))
		for i := range g.Conversations {
			for _, line := range renderConversationRow(&g.Conversations[i], false, now, width) {
				b.WriteString("\n")
				b.WriteString(line)
			}
		}
	}
	return b.String()
}

// renderConversationRow renders the two lines of one conversation: markers,
// name and summary; then project, model, counts and age.
func renderConversationRow(c *history.ConversationSummary, selected bool, now time.Time, width int) []string {
	indent := "  "
	if selected {
		indent = lipgloss.NewStyle().Foreground(ColorAccent).Render(IconCursor) + " "
	}
	innerWidth := max(width-4, 20)

	// --- Line 1: markers + name + summary ---
	var markers string
	if c.SessionInfo.Pinned {
		markers += lipgloss.NewStyle().Foreground(ColorPinned).Render(IconPinned) + " "
	}
	if c.SessionInfo.Archived {
		markers += lipgloss.NewStyle().Foreground(ColorArchived).Render(IconArchived) + " "
	}
	name := formatSessionName(c.SessionID, c.SessionInfo.CustomName)
	summaryWidth := max(innerWidth-lipgloss.Width(markers)-len([]rune(name))-1, 10)
	summary := c.Summary
	if len([]rune(summary)) > summaryWidth {
		summary = parser.Truncate(summary, summaryWidth-3)
	}
	summaryStyle := lipgloss.NewStyle().Foreground(ColorTextPrimary)
	if c.SessionInfo.Archived {
		summaryStyle = StyleDim
	}
	line1 := indent + markers + StyleSecondaryBold.Render(name) + " " + summaryStyle.Render(summary)

	// --- Line 2: metadata ---
	dot := " " + StyleMuted.Render(IconDot) + " "
	var meta []string
	if p := projectLabel(c.ProjectPath); p != "" {
		meta = append(meta, StyleMuted.Render(p))
	}
	meta = append(meta, lipgloss.NewStyle().Foreground(modelColor(c.Model)).Render(shortModel(c.Model)))
	meta = append(meta, StyleMuted.Render(fmt.Sprintf("%d msgs", c.MessageCount)))
	if c.TotalDuration > 0 {
		meta = append(meta, StyleMuted.Render(formatDuration(c.TotalDuration)))
	}
	if tm := c.ToolMetrics; tm != nil && (tm.LinesAdded > 0 || tm.LinesRemoved > 0) {
		meta = append(meta,
			lipgloss.NewStyle().Foreground(ColorLinesAdded).Render(fmt.Sprintf("+%d", tm.LinesAdded))+" "+
				lipgloss.NewStyle().Foreground(ColorLinesRemoved).Render(fmt.Sprintf("-%d", tm.LinesRemoved)))
	}
	if c.SessionInfo.ContinuationSessionID != "" {
		meta = append(meta, StyleMuted.Render(IconContinue+" "+formatSessionName(c.SessionInfo.ContinuationSessionID, "")))
	}

	age := ""
	if t := history.ParseTimestamp(c.UpdatedAt); !t.IsZero() {
		age = StyleMuted.Render(fmt.Sprintf("%8s", relativeTime(t, now)))
	}
	line2 := spaceBetween("  "+strings.Join(meta, dot), age, width)

	lines := []string{line1, line2}
	if selected {
		bg := lipgloss.NewStyle().Background(ColorSelectedBg).Width(width)
		for i, l := range lines {
			lines[i] = bg.Render(l)
		}
	}
	return lines
}

// -- Conversation detail ------------------------------------------------------

// block is one renderable piece of a message payload.
type block struct {
	kind   string // text, thinking, tool_use, tool_result
	text   string
	tool   string
	isErr  bool
	detail string
}

// messageBlocks splits a payload into renderable blocks. String content is
// one text block.
func messageBlocks(payload []byte) []block {
	content := gjson.GetBytes(payload, "content")
	if content.Type == gjson.String {
		return []block{{kind: "text", text: content.Str}}
	}
	if !content.IsArray() {
		if gjson.ParseBytes(payload).Type == gjson.String {
			return []block{{kind: "text", text: gjson.ParseBytes(payload).Str}}
		}
		return nil
	}
	var blocks []block
	content.ForEach(func(_, b gjson.Result) bool {
		switch typ := b.Get("type").Str; typ {
		case "text":
			blocks = append(blocks, block{kind: typ, text: b.Get("text").Str})
		case "thinking":
			blocks = append(blocks, block{kind: typ, text: b.Get("thinking").Str})
		case "tool_use":
			name := b.Get("name").Str
			blocks = append(blocks, block{
				kind:   typ,
				tool:   name,
				detail: parser.ToolSummary(name, []byte(b.Get("input").Raw)),
			})
		case "tool_result":
			blocks = append(blocks, block{kind: typ, text: toolResultText(b.Get("content")), isErr: b.Get("is_error").Bool()})
		}
		return true
	})
	return blocks
}

// toolResultText flattens a tool_result content field to plain text.
func toolResultText(c gjson.Result) string {
	if c.Type == gjson.String {
		return c.Str
	}
	var parts []string
	c.ForEach(func(_, b gjson.Result) bool {
		if t := b.Get("text"); t.Exists() {
			parts = append(parts, t.Str)
		}
		return true
	})
	return strings.Join(parts, "\n")
}

// renderMessage renders one message for `show`.
func renderMessage(m history.Message, md *mdRenderer, width int) string {
	width = clampWidth(width)

	var head string
	switch m.Type {
	case parser.TypeUser:
		head = lipgloss.NewStyle().Foreground(ColorUser).Render(IconUser) + " " + StylePrimaryBold.Render("User")
	default:
		head = lipgloss.NewStyle().Foreground(ColorAssistant).Render(IconClaude) + " " + StylePrimaryBold.Render("Claude")
		if model := parser.PayloadModel(m.Message); model != "" {
			head += " " + lipgloss.NewStyle().Foreground(modelColor(model)).Render(shortModel(model))
		}
	}
	right := StyleMuted.Render(formatTimestamp(m.Timestamp))
	if m.DurationMs > 0 {
		right = StyleMuted.Render(formatDuration(m.DurationMs)+" "+IconDot+" ") + right
	}

	lines := []string{spaceBetween(head, right, width)}
	for _, b := range messageBlocks(m.Message) {
		if s := renderBlock(b, md, width-2); s != "" {
			lines = append(lines, indentBlock(s, "  "))
		}
	}
	return strings.Join(lines, "\n")
}

func renderBlock(b block, md *mdRenderer, width int) string {
	switch b.kind {
	case "text":
		if strings.TrimSpace(b.text) == "" {
			return ""
		}
		if md == nil {
			return b.text
		}
		return md.render(b.text, width)
	case "thinking":
		if b.text == "" {
			return ""
		}
		n := strings.Count(b.text, "\n") + 1
		return StyleDim.Render(fmt.Sprintf("%s thinking (%d lines)", IconThinking, n))
	case "tool_use":
		out := lipgloss.NewStyle().Foreground(ColorAccent).Render(IconTool) + " " + StyleSecondaryBold.Render(b.tool)
		if b.detail != "" && b.detail != b.tool {
			out += " " + StyleSecondary.Render(b.detail)
		}
		return out
	case "tool_result":
		text, hidden := truncateLines(strings.TrimRight(b.text, "\n"), maxToolResultLines)
		if text == "" {
			return ""
		}
		style := StyleDim
		if b.isErr {
			style = lipgloss.NewStyle().Foreground(ColorError)
		}
		out := StyleMuted.Render(IconResult) + " " + style.Render(text)
		if hidden > 0 {
			out += "\n" + StyleMuted.Render(fmt.Sprintf("  … %d more lines", hidden))
		}
		return out
	}
	return ""
}

// renderConversation renders every message, separated by blank lines.
func renderConversation(msgs []history.Message, md *mdRenderer, width int) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, renderMessage(m, md, width))
	}
	return strings.Join(parts, "\n\n")
}

// renderMetadata renders the output of `meta`.
func renderMetadata(sessionID string, meta history.Metadata, workDir string) string {
	label := func(s string) string { return StyleMuted.Render(fmt.Sprintf("%-10s", s)) }
	summary := strings.Join(wrapText(meta.Summary, 68), "\n"+strings.Repeat(" ", 11))
	rows := []string{
		label("session") + " " + StylePrimaryBold.Render(sessionID),
		label("summary") + " " + summary,
		label("project") + " " + meta.ProjectPath,
		label("workdir") + " " + workDir,
		label("model") + " " + lipgloss.NewStyle().Foreground(modelColor(meta.Model)).Render(meta.Model),
		label("duration") + " " + formatDuration(meta.TotalDuration),
	}
	return strings.Join(rows, "\n")
}
