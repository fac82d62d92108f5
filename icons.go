package main

// Icons used in listings and conversation output.
// Standard Unicode symbols for maximum terminal compatibility.
const (
	IconClaude   = "◆" // assistant message
	IconUser     = "●" // user message
	IconThinking = "◇" // thinking block
	IconTool     = "▸" // tool call
	IconResult   = "↳" // tool result
	IconPinned   = "★" // pinned conversation
	IconArchived = "▪" // archived conversation
	IconContinue = "→" // continued in another session
	IconDot      = "·" // separator
	IconCursor   = "│" // selected row sidebar
)
