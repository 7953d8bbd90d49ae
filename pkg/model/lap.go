package model

import "time"

// NoPartition is stored as kart type when a track has no kart type partition.
// The uniqueness keys stay well-defined that way.
const NoPartition = "_none"

// StoreKartType maps a partition key to its stored form.
func StoreKartType(kartType string) string {
	if kartType == "" {
		return NoPartition
	}
	return kartType
}

// LoadKartType is the inverse of StoreKartType.
func LoadKartType(stored string) string {
	if stored == NoPartition {
		return ""
	}
	return stored
}

// LapEntry is a raw row as read from a source file.
type LapEntry struct {
	Name       string
	BestTime   string
	Date       string
	ProfileURL string
	Position   string
	KartType   string
	MaxKmh     string
	MaxG       string
	SourceFile string
	Row        int
}

// LapRecord is the persisted best lap of a driver on a track (per kart type).
type LapRecord struct {
	TrackID     int        `json:"trackId"`
	TrackName   string     `json:"trackName"`
	TrackSlug   string     `json:"trackSlug"`
	DriverName  string     `json:"driverName"`
	DriverSlug  string     `json:"driverSlug"`
	ProfileURL  string     `json:"profileUrl"`
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
	ZScore      float64    `json:"zScore"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
