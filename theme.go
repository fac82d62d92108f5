package main

import (
	"image/color"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// -- Colors ---------------------------------------------------------------
// Every color has a light and a dark variant picked once at startup.
// Light values: ANSI 0-15 for accents (palette-adaptive), 256-color for grays
// (predictable). ANSI 7/15 (white) are invisible on light backgrounds, so
// never use them for Light values.
// Dark values: ANSI 256-color codes tuned for dark backgrounds.
//
// | Name                | Light | Dark  | Light desc    | Dark desc      |
// |---------------------|-------|-------|---------------|----------------|
// | TextPrimary         |   "0" | "252" | black         | light gray     |
// | TextSecondary       |   "8" | "245" | ANSI dk gray  | gray           |
// | TextDim             | "242" | "243" | medium gray   | gray           |
// | TextMuted           | "245" | "240" | med-lt gray   | dark gray      |
// | Accent              |   "4" |  "75" | blue          | blue           |
// | Error               |   "1" | "196" | red           | red            |
// | ModelOpus           |   "1" | "204" | red           | coral          |
// | ModelSonnet         |   "4" |  "75" | blue          | blue           |
// | ModelHaiku          |   "2" | "114" | green         | green          |
// | Pinned              |   "3" | "220" | gold          | yellow         |
// | Archived            | "245" | "240" | med-lt gray   | dark gray      |
// | SelectedBg          | "254" | "237" | subtle elev.  | subtle elev.   |

// hasDarkBg is detected once. Output that is not a terminal gets the dark
// palette; the colors are stripped on the way out anyway.
var hasDarkBg = detectDarkBackground()

func detectDarkBackground() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return true
	}
	return termenv.HasDarkBackground()
}

var (
	// Text hierarchy
	ColorTextPrimary   = ac("0", "252")
	ColorTextSecondary = ac("8", "245")
	ColorTextDim       = ac("242", "243")
	ColorTextMuted     = ac("245", "240")

	// Accents
	ColorAccent = ac("4", "75")
	ColorError  = ac("1", "196")

	// Model family
	ColorModelOpus   = ac("1", "204")
	ColorModelSonnet = ac("4", "75")
	ColorModelHaiku  = ac("2", "114")

	// Annotations
	ColorPinned   = ac("3", "220")
	ColorArchived = ac("245", "240")

	// Browser
	ColorSelectedBg = ac("254", "237")

	// Message roles
	ColorUser      = ac("2", "114")
	ColorAssistant = ac("4", "75")

	// Tool metrics
	ColorLinesAdded   = ac("2", "114")
	ColorLinesRemoved = ac("1", "204")
)

// -- Semantic text styles -----------------------------------------------------
// lipgloss styles are immutable value types, so these are safe to chain.

var (
	StylePrimaryBold   = lipgloss.NewStyle().Bold(true).Foreground(ColorTextPrimary)
	StyleSecondary     = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	StyleSecondaryBold = lipgloss.NewStyle().Bold(true).Foreground(ColorTextSecondary)
	StyleDim           = lipgloss.NewStyle().Foreground(ColorTextDim)
	StyleMuted         = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleAccentBold    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StyleErrorBold     = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
)

// ac picks the light or dark variant for the detected background.
func ac(light, dark string) color.Color {
	return lipgloss.LightDark(hasDarkBg)(lipgloss.Color(light), lipgloss.Color(dark))
}
