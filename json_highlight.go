package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/colorprofile"
)

// jsonHL syntax-highlights raw log lines for `show --raw`.
// Constructed once per command; chroma objects are safe for reuse.
type jsonHL struct {
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
	plain     bool
}

// newJSONHL picks a chroma style for the background and a formatter for
// the color profile of out. A profile without colors disables highlighting.
func newJSONHL(hasDarkBg bool, out io.Writer) *jsonHL {
	styleName := "github"
	if hasDarkBg {
		styleName = "dracula"
	}
	profile := colorprofile.Detect(out, os.Environ())
	return &jsonHL{
		lexer:     chroma.Coalesce(lexers.Get("json")),
		formatter: formatters.Get(chromaFormatter(profile)),
		style:     styles.Get(styleName),
		plain:     !hasColor(profile),
	}
}

// highlight pretty-prints raw and, when the terminal supports it, colors
// it. Invalid JSON is returned unchanged.
func (h *jsonHL) highlight(raw []byte) string {
	if !json.Valid(raw) {
		return string(raw)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	indented := buf.String()
	if h.plain {
		return indented
	}

	iterator, err := h.lexer.Tokenise(nil, indented)
	if err != nil {
		return indented
	}
	var out bytes.Buffer
	if err := h.formatter.Format(&out, h.style, iterator); err != nil {
		return indented
	}
	return out.String()
}

// hasColor reports whether profile can show any color at all.
func hasColor(profile colorprofile.Profile) bool {
	switch profile {
	case colorprofile.TrueColor, colorprofile.ANSI256, colorprofile.ANSI:
		return true
	}
	return false
}

// chromaFormatter maps colorprofile profiles to chroma terminal formatter names.
func chromaFormatter(profile colorprofile.Profile) string {
	switch profile {
	case colorprofile.TrueColor:
		return "terminal16m"
	case colorprofile.ANSI256:
		return "terminal256"
	case colorprofile.ANSI:
		return "terminal16"
	default:
		return "terminal"
	}
}
