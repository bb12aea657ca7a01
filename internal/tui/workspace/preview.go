package workspace

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// renderPreview renders body markdown for the split-mode preview column.
func renderPreview(body string, width int, theme string) string {
	if width <= 0 {
		width = 80
	}
	if theme == "" {
		theme = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	if err != nil {
		return body
	}

	out, err := r.Render(body)
	if err != nil {
		return "Error rendering markdown"
	}
	return out
}
