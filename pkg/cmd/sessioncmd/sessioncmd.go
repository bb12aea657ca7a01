package sessioncmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/spf13/cobra"

	"github.com/granitemd/granite/internal/session"
	"github.com/granitemd/granite/internal/state"
	"github.com/granitemd/granite/internal/store"
)

// Hardcoded until per-server secrets land.
var SECRET = "h2xVq0mPnB7d4kzS9tYwCJ3eRu8fLaG1oNXK6ZsDi5TbjHcAEgvQrUyF0WlIMOp"

func NewCmdSession(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the persisted pane session.",
		Long: heredoc.Doc(`
			Print the pane session that will be restored on the next launch:
			each open pane's path, view mode and width, and which pane was
			active. Also reports the identity carried by the configured
			token.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.Config.Token != "" {
				if claims, err := store.GetClaims(s.Config.Token, SECRET); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", claims.Username)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "token invalid; update the configured token")
				}
			}

			snap, ok, err := loadSnapshot(s)
			if err != nil {
				return err
			}
			if !ok || len(snap.Entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved session")
				return nil
			}

			for _, entry := range snap.Entries {
				marker := " "
				if entry.Path == snap.ActiveID {
					marker = "*"
				}
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s %s (%s, %dpx)\n",
					marker,
					entry.Path,
					entry.ViewMode,
					entry.Width,
				)
			}
			return nil
		},
	}

	cmd.AddCommand(newCmdClear(s))
	return cmd
}

func newCmdClear(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the persisted pane session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			skipConfirm, _ := cmd.Flags().GetBool("yes")
			if !skipConfirm {
				input := confirmation.New(
					"Forget the saved session?",
					confirmation.No,
				)
				confirmed, err := input.RunPrompt()
				if err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			if err := s.KV.Set(session.SnapshotKey, ""); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Clear without confirmation")
	return cmd
}

func loadSnapshot(s *state.State) (session.Snapshot, bool, error) {
	raw, ok := s.KV.Get(session.SnapshotKey)
	if !ok || raw == "" {
		return session.Snapshot{}, false, nil
	}
	snap, err := session.Decode(raw)
	if err != nil {
		return session.Snapshot{}, false, fmt.Errorf("corrupt session snapshot: %w", err)
	}
	return snap, true, nil
}
