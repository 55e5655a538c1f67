package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"readersync/internal/model"
)

// intKeys are validated before being stored.
var intKeys = map[string]func(int) error{
	"max_attempts": func(n int) error {
		if n < 1 {
			return errors.New("max_attempts must be at least 1")
		}
		return nil
	},
	"default_priority": func(n int) error {
		if n < model.PriorityHighest || n > model.PriorityLowest {
			return model.ErrInvalidPriority
		}
		return nil
	},
}

func NewConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Args:  cobra.ExactArgs(2),
		Short: "Set a config value",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if check, ok := intKeys[key]; ok {
				n, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("%s must be an integer", key)
				}
				if err := check(n); err != nil {
					return err
				}
			}
			if err := app.Store.SetConfig(cmd.Context(), key, value); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated:", key, "=", value)
			return nil
		},
	}
}
