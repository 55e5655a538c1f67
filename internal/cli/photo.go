package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"readersync/internal/model"
	"readersync/internal/store"
)

func NewPhotoRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "photo",
		Short: "Register face photos",
	}
}

func NewPhotoAddCmd(app *App) *cobra.Command {
	var (
		eventID, personID int64
		path              string
		inline            bool
	)

	cmd := &cobra.Command{
		Use:   "add --event ID --person ID --path FILE [--inline]",
		Short: "Register an avatar and queue it at top priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pathLocal, pathCloud := path, ""
			if inline {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				pathLocal, pathCloud = "", base64.StdEncoding.EncodeToString(b)
			}

			ctx := cmd.Context()
			fileID, jobID, err := app.Store.CreateAvatarJob(ctx, store.AvatarJobParams{
				EventID:   eventID,
				PersonID:  personID,
				PathLocal: pathLocal,
				PathCloud: pathCloud,
				Priority:  model.PriorityHighest,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Photo registered: file=%d job=%d\n", fileID, jobID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&eventID, "event", 0, "event ID")
	cmd.Flags().Int64Var(&personID, "person", 0, "person ID")
	cmd.Flags().StringVar(&path, "path", "", "image file path")
	cmd.Flags().BoolVar(&inline, "inline", false, "store the image inline as base64 instead of by path")
	for _, f := range []string{"event", "person", "path"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
