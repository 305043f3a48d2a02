package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// It auto-detects the terminal background, so reports stay readable on
// light and dark themes alike.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTTY reports whether stdout is an interactive terminal. Piped output
// falls back to plain rendering.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
