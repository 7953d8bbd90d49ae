// Package cmdutil contains the setup steps shared by the commands.
package cmdutil

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/config"
	"github.com/mpapenbr/karting-sync/pkg/db/postgres"
	"github.com/mpapenbr/karting-sync/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger configures the default logger according to the log flags.
// The returned logger is used for sql statements.
func SetupLogger() (*log.Logger, error) {
	opts := []log.Option{log.WithCaller(true)}
	if config.LogConfig != "" {
		filter, err := log.WithFilter(config.LogConfig)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log config %q", config.LogConfig)
		}
		opts = append(opts, filter)
	}
	var logger, sqlLogger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, ParseLogLevel(config.LogLevel, log.InfoLevel), opts...)
		sqlLogger = log.New(os.Stderr, ParseLogLevel(config.SQLLogLevel, log.InfoLevel),
			opts...)
	default:
		logger = log.DevLogger(os.Stderr, ParseLogLevel(config.LogLevel, log.DebugLevel),
			opts...)
		sqlLogger = log.DevLogger(os.Stderr,
			ParseLogLevel(config.SQLLogLevel, log.InfoLevel), opts...)
	}
	log.ResetDefault(logger)
	return sqlLogger.Named("sql"), nil
}

// ValidateDB checks the db flag. Must be called before any store access.
func ValidateDB() error {
	config.DB = strings.TrimSpace(config.DB)
	return config.ValidateDBURL(config.DB)
}

// WaitForDB waits until the database accepts tcp connections.
func WaitForDB(ctx context.Context) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err := utils.WaitForTCP(ctx, postgresAddr, timeout); err != nil {
		return errors.Wrap(err, "database not ready")
	}
	return nil
}

// OpenPool validates the db flag, waits for the database and connects.
func OpenPool(ctx context.Context, sqlLogger *log.Logger) (*pgxpool.Pool, error) {
	if err := ValidateDB(); err != nil {
		return nil, err
	}
	if err := WaitForDB(ctx); err != nil {
		return nil, err
	}
	return postgres.InitWithURL(ctx, config.DB,
		postgres.WithTracer(sqlLogger, log.DebugLevel))
}

// AddLogFlags registers the logging flags on a command.
func AddLogFlags(flags *pflag.FlagSet) {
	flags.StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	flags.StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	flags.StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	flags.StringVar(&config.LogConfig,
		"log-config",
		"",
		"zapfilter rules for named loggers, e.g. \"debug:pipeline.* info:*\"")
}
