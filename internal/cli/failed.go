package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewFailedRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "Inspect and retry failed jobs",
	}
}

func NewFailedListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List failed jobs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := app.Store.ListFailed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed jobs.")
				return nil
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of jobs to show")
	return cmd
}

func NewFailedRetryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <jobID>",
		Short: "Move a failed job back to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Store.RetryFailed(cmd.Context(), id); err != nil {
				return fmt.Errorf("retry failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Job returned to queue:", id)
			return nil
		},
	}
}
