package basedata

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/karting-sync/pkg/model"
	trackrepos "github.com/mpapenbr/karting-sync/pkg/repository/postgres/track"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleTrack() *model.Track {
	return &model.Track{
		Name:        "Apex Autodrome",
		Slug:        "apex-autodrome",
		Location:    "Lahore, Pakistan",
		Description: "Fast-paced karting circuit in Lahore",
		KartTypes:   []string{},
		Stats: model.TrackStats{
			TotalDrivers:     2,
			WorldRecord:      57.9,
			WorldRecordStr:   "00:57.900",
			RecordHolder:     "Sara Malik",
			RecordHolderSlug: "sara-malik",
			Median:           58.0115,
			LastUpdated:      TestTime(),
		},
		UpdatedAt: TestTime(),
	}
}

func SampleLapRecord(driverSlug, kartType string, bestTime float64) *model.LapRecord {
	date := TestTime().Truncate(24 * time.Hour)
	return &model.LapRecord{
		TrackName:   "Apex Autodrome",
		TrackSlug:   "apex-autodrome",
		DriverName:  driverSlug,
		DriverSlug:  driverSlug,
		Position:    1,
		BestTime:    bestTime,
		BestTimeStr: "00:57.900",
		Date:        &date,
		KartType:    kartType,
		Tier:        "B",
		Percentile:  100,
		UpdatedAt:   TestTime(),
	}
}

func SampleDriverResult(trackSlug, kartType string, bestTime float64) model.DriverResult {
	return model.DriverResult{
		TrackName: trackSlug,
		TrackSlug: trackSlug,
		Position:  1,
		BestTime:  bestTime,
		KartType:  kartType,
		Tier:      "B",
	}
}

func CreateSampleTrack(db *pgxpool.Pool) *model.Track {
	ctx := context.Background()
	sample := SampleTrack()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		_, err := trackrepos.Upsert(ctx, tx, sample)
		return err
	})
	if err != nil {
		log.Fatalf("createSampleTrack: %v\n", err)
	}
	return sample
}
