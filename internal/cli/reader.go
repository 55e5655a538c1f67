package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"readersync/internal/model"
)

func NewReaderRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reader",
		Short: "Manage registered readers",
	}
}

func NewReaderAddCmd(app *App) *cobra.Command {
	r := model.Reader{Active: true}

	cmd := &cobra.Command{
		Use:   "add --event ID --name NAME --ip ADDR",
		Short: "Register a reader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.Store.CreateReader(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reader registered:", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&r.EventID, "event", 0, "event ID")
	cmd.Flags().StringVar(&r.Name, "name", "", "display name")
	cmd.Flags().StringVar(&r.IP, "ip", "", "reader IP address")
	cmd.Flags().BoolVar(&r.Active, "active", true, "whether the reader receives images")
	for _, f := range []string{"event", "name", "ip"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func NewReaderListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List readers",
		RunE: func(cmd *cobra.Command, args []string) error {
			readers, err := app.Store.ListReaders(cmd.Context())
			if err != nil {
				return err
			}
			if len(readers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No readers registered.")
				return nil
			}
			for _, r := range readers {
				fmt.Fprintf(cmd.OutOrStdout(), "%d | %-20s | %-15s | event=%d | active=%t\n",
					r.ID, r.Name, r.IP, r.EventID, r.Active)
			}
			return nil
		},
	}
}
