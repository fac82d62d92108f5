package parser

import "strings"

// ToolCategory classifies tool calls into broad functional groups.
// Used for per-category tool metrics and for icons in the terminal views.
type ToolCategory string

const (
	CategoryRead  ToolCategory = "Read"
	CategoryEdit  ToolCategory = "Edit"
	CategoryWrite ToolCategory = "Write"
	CategoryBash  ToolCategory = "Bash"
	CategoryGrep  ToolCategory = "Grep"
	CategoryGlob  ToolCategory = "Glob"
	CategoryTask  ToolCategory = "Task"
	CategoryTool  ToolCategory = "Tool" // Skill, MCP tools
	CategoryWeb   ToolCategory = "Web"  // WebFetch, WebSearch
	CategoryOther ToolCategory = "Other"
)

// CategorizeToolName maps a Claude Code tool name to a ToolCategory.
// MCP tools (mcp__server__tool) count as CategoryTool.
func CategorizeToolName(name string) ToolCategory {
	switch name {
	case "Read", "LS":
		return CategoryRead
	case "Edit", "MultiEdit":
		return CategoryEdit
	case "Write", "NotebookEdit":
		return CategoryWrite
	case "Bash", "BashOutput", "KillShell":
		return CategoryBash
	case "Grep":
		return CategoryGrep
	case "Glob":
		return CategoryGlob
	case "Task", "Agent":
		return CategoryTask
	case "Skill", "SlashCommand":
		return CategoryTool
	case "WebFetch", "WebSearch":
		return CategoryWeb
	}
	if strings.HasPrefix(name, "mcp__") {
		return CategoryTool
	}
	return CategoryOther
}
