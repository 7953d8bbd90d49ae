package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/processing/track"
	"github.com/mpapenbr/karting-sync/pkg/stats"
)

// TracksConfig is the content of the tracks file.
type TracksConfig struct {
	MaxLapTime float64             `yaml:"maxLapTime"`
	Tiers      []TierConfig        `yaml:"tiers"`
	Tracks     []model.TrackConfig `yaml:"tracks"`
}

type TierConfig struct {
	MaxZ  *float64 `yaml:"maxZ"` // nil for the last tier
	Label string   `yaml:"label"`
}

// DefaultTracks are used if no tracks file is given.
var DefaultTracks = []model.TrackConfig{
	{
		Name:        "Sportzilla Formula Karting",
		Location:    "Lahore, Pakistan",
		Description: "Premier karting track in Lahore with technical layout",
		Files: []string{
			"Sportzilla/data_sportzilla_sprint_karts.csv",
			"Sportzilla/data_sportzilla_championship_karts.csv",
			"Sportzilla/data_sportzilla_pro_karts.csv",
		},
	},
	{
		Name:        "2F2F Formula Karting",
		Location:    "Lahore, Pakistan",
		Description: "High-performance karting track in Lahore",
		Files: []string{
			"2F2F-Lahore/data_2f2f_rx8.csv",
			"2F2F-Lahore/data_2f2f_sr5.csv",
		},
	},
	{
		Name:        "Apex Autodrome",
		Location:    "Lahore, Pakistan",
		Description: "Fast-paced karting circuit in Lahore",
		Files:       []string{"Apex Autodrome/data_apex.csv"},
	},
}

// LoadTracksConfig reads the tracks file at path.
// An empty path yields the built-in tracks with the default policy.
func LoadTracksConfig(path string) (*TracksConfig, error) {
	if path == "" {
		return &TracksConfig{
			MaxLapTime: track.DefaultMaxLapTime,
			Tracks:     DefaultTracks,
		}, nil
	}
	//nolint:gosec // path is given by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read tracks file %s", path)
	}
	return ParseTracksConfig(data)
}

func ParseTracksConfig(data []byte) (*TracksConfig, error) {
	var cfg TracksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "could not parse tracks file")
	}
	if cfg.MaxLapTime <= 0 {
		cfg.MaxLapTime = track.DefaultMaxLapTime
	}
	if len(cfg.Tracks) == 0 {
		return nil, errors.New("tracks file contains no tracks")
	}
	for i := range cfg.Tracks {
		if cfg.Tracks[i].Name == "" {
			return nil, errors.Errorf("track #%d has no name", i+1)
		}
		if len(cfg.Tracks[i].Files) == 0 {
			return nil, errors.Errorf("track %s has no files", cfg.Tracks[i].Name)
		}
	}
	if _, err := cfg.TierTable(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TierTable converts the configured tiers. Without tiers the default table
// is returned.
func (c *TracksConfig) TierTable() (stats.TierTable, error) {
	if len(c.Tiers) == 0 {
		return stats.DefaultTierTable, nil
	}
	rules := make([]stats.TierRule, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		bound := math.Inf(1)
		if t.MaxZ != nil {
			bound = *t.MaxZ
		}
		rules = append(rules, stats.TierRule{UpperBound: bound, Label: t.Label})
	}
	return stats.NewTierTable(rules)
}

// Policy returns the aggregation policy described by the config.
func (c *TracksConfig) Policy() (track.Policy, error) {
	tiers, err := c.TierTable()
	if err != nil {
		return track.Policy{}, err
	}
	ret := track.DefaultPolicy()
	ret.MaxLapTime = c.MaxLapTime
	ret.Tiers = tiers
	return ret, nil
}
