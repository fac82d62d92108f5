package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"golang.org/x/term"
)

// mdRenderer caches a glamour terminal renderer at a specific width.
// Recreates the renderer when the width changes.
type mdRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	plain    bool // force the no-color style (output is not a terminal)
}

func newMDRenderer() *mdRenderer {
	return &mdRenderer{plain: !term.IsTerminal(int(os.Stdout.Fd()))}
}

// style returns the glamour style config with Document.Margin zeroed so the
// caller controls indentation.
func (r *mdRenderer) style() ansi.StyleConfig {
	var style ansi.StyleConfig
	switch {
	case r.plain:
		style = styles.NoTTYStyleConfig
	case hasDarkBg:
		style = styles.DarkStyleConfig
	default:
		style = styles.LightStyleConfig
	}
	style.Document.Margin = uintPtr(0)
	return style
}

func uintPtr(v uint) *uint { return &v }

// render renders markdown content for terminal display.
// Returns the original content on error. Recreates the renderer if width changed.
func (r *mdRenderer) render(content string, width int) string {
	if width <= 0 {
		return content
	}
	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStyles(r.style()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		r.renderer = renderer
		r.width = width
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
