package root

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/granitemd/granite/internal/constants"
	"github.com/granitemd/granite/internal/state"
	"github.com/granitemd/granite/internal/tui/workspace"
	"github.com/granitemd/granite/pkg/cmd/export"
	"github.com/granitemd/granite/pkg/cmd/open"
	"github.com/granitemd/granite/pkg/cmd/sessioncmd"
)

func NewCmdRoot(s *state.State) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "granite",
		Aliases: []string{"gr"},
		Short:   "Work on your notes in stacked panes with live synchronization.",
		Long: `A terminal workspace for a granite notes server. Open several notes side
  by side in panes, edit with debounced autosave, and preview rendered
  markdown in split mode.

  granite              restore the previous session and start editing
  granite open budget  open a note by fuzzy match and start editing
  `,
		Version: constants.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if url, _ := cmd.Flags().GetString("server"); url != "" {
				s.OverrideServer(url)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := s.Manager.RestoreSession(ctx); err != nil {
				return err
			}
			if s.Manager.Active() == nil {
				return cmd.Help()
			}
			return workspace.Run(s.Manager, s.Config, s.Viewport)
		},
	}

	cmd.PersistentFlags().
		String("server", "", "Backend server URL override for this run.")
	cmd.SetUsageTemplate(constants.Help)

	cmd.AddCommand(
		open.NewCmdOpen(s),
		export.NewCmdExport(s),
		sessioncmd.NewCmdSession(s),
	)

	return cmd, nil
}
