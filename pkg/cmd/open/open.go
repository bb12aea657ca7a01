package open

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/glamour"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/granitemd/granite/internal/docindex"
	"github.com/granitemd/granite/internal/pane"
	"github.com/granitemd/granite/internal/state"
	"github.com/granitemd/granite/internal/tui/workspace"
)

func NewCmdOpen(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "open [path...]",
		Aliases: []string{"o"},
		Short:   "Open notes in panes and start the workspace.",
		Long: heredoc.Doc(`
			Open one or more notes in panes, restoring the previous session first.
			With no arguments the server's note index is shown in a fuzzy finder
			with a rendered preview; the selected note opens in a new pane.
		`),
		Example: "granite open journal/today.md or granite open",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			fresh, _ := cmd.Flags().GetBool("fresh")
			if !fresh {
				if err := s.Manager.RestoreSession(ctx); err != nil {
					return err
				}
			}

			paths := args
			if len(paths) == 0 {
				selected, err := pickNote(ctx, s)
				if err != nil {
					return err
				}
				paths = []string{selected}
			}

			for _, p := range paths {
				if _, err := s.Manager.Open(ctx, p, pane.OpenOptions{FocusExisting: true}); err != nil {
					return fmt.Errorf("failed to open %s: %w", p, err)
				}
			}

			return workspace.Run(s.Manager, s.Config, s.Viewport)
		},
	}

	cmd.Flags().BoolP("fresh", "f", false, "Skip restoring the previous session")
	return cmd
}

// pickNote runs the fuzzy finder over the server's note index with a styled
// markdown preview of the highlighted note.
func pickNote(ctx context.Context, s *state.State) (string, error) {
	if err := s.RefreshIndex(ctx); err != nil {
		return "", err
	}

	notes := s.Index.Notes()
	if len(notes) == 0 {
		return "", fmt.Errorf("no notes on the server")
	}

	idx, err := fuzzyfinder.Find(
		notes,
		func(i int) string { return notes[i].Path },
		fuzzyfinder.WithHeader("Select note to open."),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 {
				return ""
			}
			return renderNotePreview(ctx, s, notes[i], w)
		}),
	)
	if err != nil {
		return "", err
	}
	return notes[idx].Path, nil
}

func renderNotePreview(ctx context.Context, s *state.State, entry docindex.Entry, width int) string {
	doc, err := s.Store.Get(ctx, entry.Path)
	if err != nil {
		return "Error reading note"
	}

	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle(s.Config.PreviewTheme),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	out, err := r.Render(doc.Content)
	if err != nil {
		return "Error rendering markdown"
	}
	return out
}
