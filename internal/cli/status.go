package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"readersync/internal/model"
)

func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := app.Store.StatusCounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Queue Status:")
			for _, st := range model.Statuses {
				fmt.Fprintf(out, "  %-10s %d\n", st, counts[st])
			}
			return nil
		},
	}
}
