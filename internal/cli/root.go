package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"readersync/internal/config"
	"readersync/internal/logging"
	"readersync/internal/runner"
	"readersync/internal/store"
)

// App holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE, before any RunE executes. Callers own it and
// must Close it once Execute returns, whatever the outcome.
type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	Store *store.Store
}

// Close flushes the logger and closes the store if they were opened.
func (a *App) Close() error {
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

func NewRootCmd(app *App) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "readersync",
		Short:         "Image sync queue for access-control readers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			log, err := logging.New(logging.Options{
				Development: cfg.IsDevelopment(),
				Level:       cfg.LogLevel,
				File:        cfg.LogFile,
			})
			if err != nil {
				return err
			}
			app.Cfg, app.Log = cfg, log
			st, err := store.NewStore(cfg.DBPath)
			if err != nil {
				return err
			}
			app.Store = st
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")

	cmd.AddCommand(
		NewEnqueueCmd(app),
		NewProcessCmd(app),
		NewResyncCmd(app),
		NewStatusCmd(app),
		NewListCmd(app),
		NewPurgeCmd(app),
		NewServeCmd(app),
	)

	failed := NewFailedRootCmd()
	failed.AddCommand(NewFailedListCmd(app), NewFailedRetryCmd(app))

	photo := NewPhotoRootCmd()
	photo.AddCommand(NewPhotoAddCmd(app))

	reader := NewReaderRootCmd()
	reader.AddCommand(NewReaderAddCmd(app), NewReaderListCmd(app))

	cfgCmd := NewConfigRootCmd()
	cfgCmd.AddCommand(NewConfigGetCmd(app), NewConfigSetCmd(app), NewConfigListCmd(app))

	worker := NewWorkerRootCmd()
	worker.AddCommand(NewWorkerStartCmd(app), NewWorkerStopCmd(app))

	cmd.AddCommand(failed, photo, reader, cfgCmd, worker)
	return cmd
}

// Runner builds a processor runner from the loaded configuration.
func (a *App) Runner(obs runner.Observer) *runner.Runner {
	return runner.New(runner.Options{
		Bin:            a.Cfg.PythonBin,
		ProcessScript:  a.Cfg.ProcessScript,
		ResyncScript:   a.Cfg.ResyncScript,
		Timeout:        a.Cfg.ProcessTimeout,
		BusyMarker:     a.Cfg.BusyMarker,
		BusyRetries:    a.Cfg.BusyRetries,
		BusyBackoff:    a.Cfg.BusyBackoff,
		BreakerTrips:   a.Cfg.BreakerTrips,
		BreakerCooloff: a.Cfg.BreakerCooloff,
	}, a.Log, obs)
}
