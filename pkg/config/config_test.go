package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/karting-sync/pkg/processing/track"
	"github.com/mpapenbr/karting-sync/pkg/stats"
)

func TestValidateDBURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"postgresql", "postgresql://user:pw@localhost:5432/karting", false},
		{"postgres", "postgres://user:pw@db/karting", false},
		{"surrounding space", "  postgres://db/karting ", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"scheme only", "postgres://", true},
		{"mongodb", "mongodb+srv://cluster0.example.net", true},
		{"no scheme", "localhost:5432", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDBURL(tt.url)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidDBURL), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

const sampleTracks = `
maxLapTime: 90
tiers:
  - {maxZ: -1, label: Fast}
  - {maxZ: 1, label: Mid}
  - {label: Slow}
tracks:
  - name: Apex Autodrome
    location: Lahore, Pakistan
    description: Fast-paced karting circuit in Lahore
    files: [Apex Autodrome/data_apex.csv]
`

func TestLoadTracksConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTracks), 0o600))

	cfg, err := LoadTracksConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tracks, 1)
	assert.Equal(t, "Apex Autodrome", cfg.Tracks[0].Name)
	assert.Equal(t, []string{"Apex Autodrome/data_apex.csv"}, cfg.Tracks[0].Files)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 90.0, p.MaxLapTime)
	assert.Equal(t, stats.TierTable{
		{UpperBound: -1, Label: "Fast"},
		{UpperBound: 1, Label: "Mid"},
		{UpperBound: math.Inf(1), Label: "Slow"},
	}, p.Tiers)
}

func TestLoadTracksConfigDefaults(t *testing.T) {
	cfg, err := LoadTracksConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Tracks, 3)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, track.DefaultPolicy(), p)
}

func TestParseTracksConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "tracks: ["},
		{"no tracks", "maxLapTime: 100\n"},
		{"track without name", "tracks:\n  - files: [a.csv]\n"},
		{"track without files", "tracks:\n  - name: A\n"},
		{"unordered tiers", `
tiers:
  - {maxZ: 1, label: A}
  - {maxZ: 0, label: B}
  - {label: C}
tracks:
  - {name: A, files: [a.csv]}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTracksConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadTracksConfigMissingFile(t *testing.T) {
	_, err := LoadTracksConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
