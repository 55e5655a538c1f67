package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"readersync/internal/model"
	"readersync/internal/runner"
)

// ErrRunFailed makes the process exit non-zero after the result has been
// printed.
var ErrRunFailed = errors.New("processor reported failure")

func NewProcessCmd(app *App) *cobra.Command {
	var (
		limit int
		jobID int64
	)

	cmd := &cobra.Command{
		Use:   "process [--limit N | --job-id ID]",
		Short: "Run the job processor once and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := app.Runner(nil)

			var (
				res *model.ProcessResult
				err error
			)
			if jobID > 0 {
				res, err = r.ProcessJob(cmd.Context(), jobID)
			} else {
				res, err = r.ProcessPending(cmd.Context(), limit)
			}
			if res == nil {
				return err
			}
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			if !res.Success {
				return ErrRunFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", runner.DefaultLimit, "maximum number of jobs to process")
	cmd.Flags().Int64Var(&jobID, "job-id", 0, "process only this job")
	cmd.MarkFlagsMutuallyExclusive("limit", "job-id")
	return cmd
}

func NewResyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resync <reader-id>",
		Short: "Force a full image resync of one reader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := app.Store.GetReader(cmd.Context(), id); err != nil {
				return err
			}

			res, err := app.Runner(nil).ResyncReader(cmd.Context(), id)
			if res == nil {
				return err
			}
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			if !res.Success {
				return ErrRunFailed
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
