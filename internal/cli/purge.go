package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewPurgeCmd(app *App) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete done jobs finished before the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				olderThan = app.Cfg.Retention
			}
			n, err := app.Store.PurgeFinished(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("failed to purge jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d done jobs older than %s.\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age cutoff, e.g. 168h (default DONE_RETENTION)")
	return cmd
}
