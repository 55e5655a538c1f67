package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"readersync/internal/engine"
)

func NewWorkerStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop a running worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := engine.PIDFile(app.Cfg.PIDFile).Read()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No running worker found.")
				return nil
			}
			if err := engine.StopFile(app.Cfg.StopFile).Request(); err != nil {
				return fmt.Errorf("failed to request stop: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stop requested for PID %d. The worker exits after the current processor run.\n", pid)
			return nil
		},
	}
}
