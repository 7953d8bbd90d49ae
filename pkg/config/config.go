package config

import (
	"strings"

	"github.com/pkg/errors"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogConfig          string // zapfilter rules for named loggers
	MigrationSourceURL string // location of migration files, empty uses the embedded ones
	TracksFile         string // path to the tracks yaml file, empty uses the built-in tracks
	DataDir            string // base directory for relative source file paths
)

var ErrInvalidDBURL = errors.New("invalid database url")

var dbSchemes = []string{"postgresql://", "postgres://"}

// ValidateDBURL checks that url is present and uses a supported scheme.
func ValidateDBURL(url string) error {
	work := strings.TrimSpace(url)
	if work == "" {
		return errors.Wrap(ErrInvalidDBURL, "database url is empty")
	}
	for _, s := range dbSchemes {
		if strings.HasPrefix(work, s) && len(work) > len(s) {
			return nil
		}
	}
	scheme, _, found := strings.Cut(work, "://")
	if !found {
		scheme = "<none>"
	}
	return errors.Wrapf(ErrInvalidDBURL,
		"url must start with %s, got scheme %s", strings.Join(dbSchemes, " or "), scheme)
}
