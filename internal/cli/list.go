package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"readersync/internal/model"
)

func NewListCmd(app *App) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st model.JobStatus
			if status != "" {
				var err error
				if st, err = model.ParseJobStatus(status); err != nil {
					return err
				}
			}
			jobs, err := app.Store.ListJobs(cmd.Context(), st, limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found.")
				return nil
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending,processing,done,failed); default pending")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of jobs to show")
	return cmd
}

func printJobs(w io.Writer, jobs []model.Job) {
	for _, j := range jobs {
		line := fmt.Sprintf("%d | %-10s | prio=%d | attempts=%d/%d | person=%d %s | file=%d",
			j.ID, j.Status, j.Priority, j.Attempts, j.MaxAttempts, j.PersonID, j.PersonName, j.FileID)
		if j.LastError != "" {
			line += " | " + j.LastError
		}
		fmt.Fprintln(w, line)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
