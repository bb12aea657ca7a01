package export

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/granitemd/granite/internal/frontmatter"
	"github.com/granitemd/granite/internal/render"
	"github.com/granitemd/granite/internal/state"
)

func NewCmdExport(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export <path>",
		Aliases: []string{"x"},
		Short:   "Render a note to sanitized HTML on stdout.",
		Long: heredoc.Doc(`
			Fetch a note from the server, run it through the full render
			pipeline (wikilinks, embeds, highlights, math protection, fenced
			spreadsheet and mermaid containers, banner) and print the sanitized
			HTML to stdout.
		`),
		Example: "granite export journal/today.md > today.html",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			doc, err := s.Store.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", args[0], err)
			}

			if err := s.RefreshIndex(ctx); err != nil {
				// Links render as missing without an index; the export itself
				// still works.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			front, body := frontmatter.Split(doc.Content)
			meta, err := frontmatter.Parse(front)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			pipeline := render.NewPipeline(s.Index, nil, render.Capabilities{})
			html, err := pipeline.Render(body, meta)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", args[0], err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		},
	}

	return cmd
}
