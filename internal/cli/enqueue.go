package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"readersync/internal/store"
)

func NewEnqueueCmd(app *App) *cobra.Command {
	var p store.EnqueueParams

	cmd := &cobra.Command{
		Use:   "enqueue --event ID --person ID --file ID [--priority N]",
		Short: "Queue an image sync job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.Store.EnqueueImageSync(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Job enqueued:", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&p.EventID, "event", 0, "event ID")
	cmd.Flags().Int64Var(&p.PersonID, "person", 0, "person ID")
	cmd.Flags().Int64Var(&p.FileID, "file", 0, "avatar file ID")
	cmd.Flags().IntVar(&p.Priority, "priority", 0, "1 (highest) to 10 (lowest); default from config")
	for _, f := range []string{"event", "person", "file"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
