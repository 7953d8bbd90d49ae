package sync

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/cmd/cmdutil"
	"github.com/mpapenbr/karting-sync/pkg/config"
	"github.com/mpapenbr/karting-sync/pkg/pipeline"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres"
)

func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "processes the lap time exports and syncs the results to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.TracksFile,
		"tracks",
		"",
		"yaml file with the track configuration (default: built-in tracks)")
	cmd.Flags().StringVar(&config.DataDir,
		"data-dir",
		".",
		"base directory for relative source file paths")
	cmdutil.AddLogFlags(cmd.Flags())
	return cmd
}

func runSync(ctx context.Context) error {
	sqlLogger, err := cmdutil.SetupLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cmdutil.ValidateDB(); err != nil {
		log.Error("Invalid database configuration", log.ErrorField(err))
		return err
	}
	tracksCfg, err := config.LoadTracksConfig(config.TracksFile)
	if err != nil {
		log.Error("Could not load tracks", log.ErrorField(err))
		return err
	}
	policy, err := tracksCfg.Policy()
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := cmdutil.OpenPool(ctx, sqlLogger)
	if err != nil {
		log.Error("Could not connect to database", log.ErrorField(err))
		return err
	}
	defer pool.Close()

	p := pipeline.New(pipeline.Config{
		Tracks:  tracksCfg.Tracks,
		DataDir: config.DataDir,
		Policy:  policy,
	}, postgres.NewRepositoriesFromPool(pool))

	summary, err := p.Run(ctx)
	if err != nil {
		log.Error("Sync aborted", log.ErrorField(err))
		return err
	}
	for _, f := range summary.Failures {
		log.Warn("Track not synced", log.String("track", f.Track), log.ErrorField(f.Err))
	}
	log.Info("Sync finished",
		log.Int("tracks", len(summary.Tracks)),
		log.Int("drivers", summary.Drivers),
		log.Int("records", summary.Records))
	return nil
}
