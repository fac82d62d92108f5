// Package enrich provides the default message filter and tool-metrics
// calculator a history.Reader is usually wired with.
package enrich

import (
	"github.com/kylesnowschwartz/claude-history/history"
	"github.com/kylesnowschwartz/claude-history/parser"
)

// NoiseFilter drops messages that carry no conversation content: synthetic
// assistant turns and user turns that are only system wrappers.
type NoiseFilter struct{}

var _ history.MessageFilter = NoiseFilter{}

// FilterMessages returns the messages worth showing. msgs is not modified.
func (NoiseFilter) FilterMessages(msgs []history.Message) []history.Message {
	out := make([]history.Message, 0, len(msgs))
	for _, m := range msgs {
		if !parser.IsNoise(m.Type, m.Message) {
			out = append(out, m)
		}
	}
	return out
}

// ToolMetrics counts tool usage across assistant messages.
type ToolMetrics struct{}

var _ history.MetricsCalculator = ToolMetrics{}

// CalculateMetrics tallies tool calls by category, edit and write calls,
// and the lines they added and removed.
func (ToolMetrics) CalculateMetrics(msgs []history.Message) *history.ToolMetrics {
	m := &history.ToolMetrics{ByCategory: make(map[parser.ToolCategory]int)}
	for _, msg := range msgs {
		if msg.Type != parser.TypeAssistant {
			continue
		}
		for _, tu := range parser.ToolUses(msg.Message) {
			cat := parser.CategorizeToolName(tu.Name)
			m.ByCategory[cat]++
			switch cat {
			case parser.CategoryEdit:
				m.EditCount++
			case parser.CategoryWrite:
				m.WriteCount++
			}
			added, removed := parser.LineDelta(tu)
			m.LinesAdded += added
			m.LinesRemoved += removed
		}
	}
	return m
}
