package parser

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// NoContent is returned by ExtractText for a payload with no content field.
const NoContent = "No content available"

// ExtractText returns the display text of a message payload.
//
// The payload may be a bare JSON string, an object whose content is a
// string, or an object whose content is an array of blocks; for arrays the
// first "text" block wins. An array without a text block yields "".
func ExtractText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	root := gjson.ParseBytes(payload)
	if root.Type == gjson.String {
		return root.Str
	}

	content := root.Get("content")
	switch {
	case content.Type == gjson.String:
		return content.Str
	case content.IsArray():
		for _, block := range content.Array() {
			if block.Get("type").Str == "text" {
				return block.Get("text").Str
			}
		}
		return ""
	}
	return NoContent
}

// Hard noise: system-generated wrappers whose presence at the start of a
// user message means there is nothing the human typed.
var noiseTagPrefixes = []string{
	"<local-command-caveat>",
	"<system-reminder>",
}

// syntheticModel marks assistant entries Claude Code fabricates locally
// (interruptions, API errors) rather than receiving from the API.
const syntheticModel = "<synthetic>"

// IsNoise reports whether a user/assistant payload carries nothing a reader
// of the conversation would want to see.
func IsNoise(typ EntryType, payload json.RawMessage) bool {
	switch typ {
	case TypeAssistant:
		return PayloadModel(payload) == syntheticModel
	case TypeUser:
		text := strings.TrimSpace(ExtractText(payload))
		for _, tag := range noiseTagPrefixes {
			if strings.HasPrefix(text, tag) {
				return true
			}
		}
	}
	return false
}

// Truncate shortens s to at most maxLen runes, appending "..." when it cut
// anything. The marker is not counted against maxLen.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
