package theme

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Token represents a semantic color slot within the CLI.
type Token string

const (
	ColorTextPrimary Token = "text.primary"
	ColorTextMuted   Token = "text.muted"
	ColorPrimary     Token = "primary"
	ColorSuccess     Token = "success"
	ColorWarning     Token = "warning"
	ColorDanger      Token = "danger"
)

// Color stores light and dark variants for adaptive rendering.
type Color struct {
	Light string
	Dark  string
}

// Adaptive converts the color into a lipgloss adaptive color.
func (c Color) Adaptive() lipgloss.AdaptiveColor {
	light, dark := strings.TrimSpace(c.Light), strings.TrimSpace(c.Dark)
	switch {
	case light == "" && dark == "":
		return lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	case light == "":
		light = dark
	case dark == "":
		dark = light
	}
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Palette represents a concrete theme.
type Palette struct {
	Name   string
	Colors map[Token]Color
}

// Color returns a color for the provided token, falling back to the default palette.
func (p Palette) Color(token Token) Color {
	if c, ok := p.Colors[token]; ok {
		return c
	}
	if c, ok := Default().Colors[token]; ok {
		return c
	}
	return Color{}
}

// Default is the palette used for text output.
func Default() Palette {
	return Palette{
		Name: "default",
		Colors: map[Token]Color{
			ColorTextPrimary: {Light: "#1F2026", Dark: "#F2F3F7"},
			ColorTextMuted:   {Light: "#646A7A", Dark: "#9096A8"},
			ColorPrimary:     {Light: "#3A3AD6", Dark: "#8F8FFF"},
			ColorSuccess:     {Light: "#137333", Dark: "#5BD48A"},
			ColorWarning:     {Light: "#9A6700", Dark: "#F2C94C"},
			ColorDanger:      {Light: "#B3261E", Dark: "#F2867E"},
		},
	}
}

// Styles holds the lipgloss styles used when printing progress.
type Styles struct {
	Heading lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
}

// NewStyles binds p to a renderer writing to w. With color disabled every
// style renders plain text; with color enabled a writer that is not a
// terminal still gets 256 color sequences.
func NewStyles(w io.Writer, p Palette, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	switch {
	case !color:
		r.SetColorProfile(termenv.Ascii)
	case r.ColorProfile() == termenv.Ascii:
		r.SetColorProfile(termenv.ANSI256)
	}
	fg := func(token Token) lipgloss.Style {
		return r.NewStyle().Foreground(p.Color(token).Adaptive())
	}
	heading := fg(ColorPrimary)
	if color {
		heading = heading.Bold(true)
	}
	return Styles{
		Heading: heading,
		Muted:   fg(ColorTextMuted),
		Success: fg(ColorSuccess),
		Warning: fg(ColorWarning),
		Danger:  fg(ColorDanger).Bold(true),
	}
}
