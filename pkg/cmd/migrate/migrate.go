package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/cmd/cmdutil"
	"github.com/mpapenbr/karting-sync/pkg/config"
	dbmigrate "github.com/mpapenbr/karting-sync/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		Long: `Creates the tables and indexes used by sync.
Without a migration source url the migrations built into the binary are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd)
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migrationSourceUrl",
		"m",
		"",
		"url to migration files (default: built-in migrations)")
	cmdutil.AddLogFlags(cmd.Flags())

	return cmd
}

func startMigration(cmd *cobra.Command) error {
	if _, err := cmdutil.SetupLogger(); err != nil {
		return err
	}
	if err := cmdutil.ValidateDB(); err != nil {
		log.Error("Invalid database configuration", log.ErrorField(err))
		return err
	}
	if err := cmdutil.WaitForDB(cmd.Context()); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}

	if config.MigrationSourceURL == "" {
		log.Info("Using built-in migrations")
		if err := dbmigrate.MigrateDb(config.DB); err != nil {
			return err
		}
		version, dirty, err := dbmigrate.Version(config.DB)
		if err != nil {
			return err
		}
		log.Info("Database migrated", log.Uint("version", version), log.Bool("dirty", dirty))
		return nil
	}

	log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
	dbURL := prepareURLForDB(config.DB)

	m, err := migrate.New(config.MigrationSourceURL, dbURL)
	if err != nil {
		log.Error("Could not create migration", log.ErrorField(err))
		return err
	}
	defer m.Close()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No Migration required")
		return nil
	}
	return err
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
