package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// TrackConfig describes a configured venue and where its source files live.
type TrackConfig struct {
	Name        string   `yaml:"name"`
	Location    string   `yaml:"location"`
	Description string   `yaml:"description"`
	Files       []string `yaml:"files"`
}

type Track struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	KartTypes   []string   `json:"kartTypes"`
	Stats       TrackStats `json:"stats"`
	LastRunID   uuid.UUID  `json:"lastRunId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TrackStats is the aggregate snapshot over all laps of a track,
// regardless of kart type.
type TrackStats struct {
	TotalDrivers     int       `json:"totalDrivers"`
	WorldRecord      float64   `json:"worldRecord"`
	WorldRecordStr   string    `json:"worldRecordStr"`
	RecordHolder     string    `json:"recordHolder"`
	RecordHolderSlug string    `json:"recordHolderSlug"`
	Top1Percent      float64   `json:"top1Percent"`
	Top5Percent      float64   `json:"top5Percent"`
	Top10Percent     float64   `json:"top10Percent"`
	Mean             float64   `json:"mean"`
	StdDev           float64   `json:"stdDev"`
	Median           float64   `json:"median"`
	Slowest          float64   `json:"slowest"`
	MetaTime         float64   `json:"metaTime"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

type Driver struct {
	ID         int            `json:"id"`
	Slug       string         `json:"slug"`
	Name       string         `json:"name"`
	ProfileURL string         `json:"profileUrl"`
	Records    []DriverResult `json:"records"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// DriverResult is the summary embedded in a driver document for one
// track and kart type.
type DriverResult struct {
	TrackID     int        `json:"trackId"`
	TrackName   string     `json:"trackName"`
	TrackSlug   string     `json:"trackSlug"`
	Position    int        `json:"position"`
	BestTime    float64    `json:"bestTime"`
	BestTimeStr string     `json:"bestTimeStr"`
	Date        *time.Time `json:"date,omitempty"`
	MaxKmh      *int       `json:"maxKmh,omitempty"`
	MaxG        *float64   `json:"maxG,omitempty"`
	KartType    string     `json:"kartType,omitempty"`
	Tier        string     `json:"tier"`
	Percentile  float64    `json:"percentile"`
	GapToP1     float64    `json:"gapToP1"`
	Interval    float64    `json:"interval"`
}

// WarZone is the densest 0.1s band of a track (per kart type).
type WarZone struct {
	TrackSlug   string    `json:"trackSlug"`
	KartType    string    `json:"kartType,omitempty"`
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	DriverCount int       `json:"driverCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RecordHistoryEntry is one record breaking event.
type RecordHistoryEntry struct {
	TrackSlug     string    `json:"trackSlug"`
	KartType      string    `json:"kartType,omitempty"`
	DriverName    string    `json:"driverName"`
	DriverSlug    string    `json:"driverSlug"`
	RecordTime    float64   `json:"recordTime"`
	RecordTimeStr string    `json:"recordTimeStr"`
	BrokenAt      time.Time `json:"brokenAt"`
	DaysReigned   int       `json:"daysReigned"`
	Current       bool      `json:"current"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
