//nolint:funlen // ok for tests
package track

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/karting-sync/pkg/model"
)

var (
	testNow   = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	testTrack = model.TrackConfig{
		Name:        "Apex Autodrome",
		Location:    "Lahore, Pakistan",
		Description: "Fast-paced karting circuit in Lahore",
	}
)

func entry(name, best, date, kartType string) model.LapEntry {
	return model.LapEntry{
		Name:       name,
		BestTime:   best,
		Date:       date,
		ProfileURL: "https://example.com/" + name,
		KartType:   kartType,
	}
}

func recordBySlug(res *Result, slug, kartType string) *model.LapRecord {
	rec, _ := lo.Find(res.Records, func(r *model.LapRecord) bool {
		return r.DriverSlug == slug && r.KartType == kartType
	})
	return rec
}

func TestProcessTrackStatistics(t *testing.T) {
	res, err := NewAggregator().Process(testTrack, []model.LapEntry{
		entry("Driver Mid", "01:00.000", "2024-01-01", ""),
		entry("Driver Slow", "01:01.000", "2024-01-02", ""),
		entry("Driver Fast", "00:59.000", "2024-01-03", ""),
	}, testNow)
	require.NoError(t, err)

	st := res.Track.Stats
	assert.Equal(t, "apex-autodrome", res.Track.Slug)
	assert.Equal(t, 59.0, st.WorldRecord)
	assert.Equal(t, "00:59.000", st.WorldRecordStr)
	assert.Equal(t, "Driver Fast", st.RecordHolder)
	assert.Equal(t, "driver-fast", st.RecordHolderSlug)
	assert.Equal(t, 60.0, st.Median)
	assert.Equal(t, 61.0, st.Slowest)
	assert.Equal(t, 3, st.TotalDrivers)
	assert.Empty(t, res.Track.KartTypes)
	assert.Equal(t, testNow, st.LastUpdated)

	fast := recordBySlug(res, "driver-fast", "")
	slow := recordBySlug(res, "driver-slow", "")
	require.NotNil(t, fast)
	require.NotNil(t, slow)
	assert.Equal(t, 100.0, fast.Percentile)
	assert.InDelta(t, 33.333, slow.Percentile, 0.001)
	assert.Equal(t, 0.0, fast.GapToP1)
	assert.Equal(t, 2.0, slow.GapToP1)
	assert.Equal(t, 1.0, slow.Interval)
	assert.InDelta(t, -1.0, fast.ZScore, 1e-9)
	assert.Equal(t, "A", fast.Tier)
	assert.Equal(t, "C", slow.Tier)
	assert.Equal(t, 1, fast.Position)
	assert.Equal(t, 3, slow.Position)

	require.Len(t, res.WarZones, 1)
	assert.Equal(t, "", res.WarZones[0].KartType)
	assert.Equal(t, 1, res.WarZones[0].DriverCount)
	assert.Equal(t, 59.0, res.WarZones[0].Start)
	require.Len(t, res.Drivers, 3)
}

func TestProcessRecordHistory(t *testing.T) {
	res, err := NewAggregator().Process(testTrack, []model.LapEntry{
		entry("A", "00:58.123", "2024-01-10", ""),
		entry("B", "00:57.900", "2024-02-09", ""),
		entry("C", "00:59.000", "2024-03-01", ""),
	}, testNow)
	require.NoError(t, err)
	require.Len(t, res.Histories, 1)
	h := res.Histories[0].Entries
	require.Len(t, h, 2)

	assert.Equal(t, "a", h[0].DriverSlug)
	assert.Equal(t, 30, h[0].DaysReigned)
	assert.False(t, h[0].Current)
	assert.Equal(t, "b", h[1].DriverSlug)
	assert.Equal(t, 52, h[1].DaysReigned)
	assert.True(t, h[1].Current)
	assert.Equal(t, "00:57.900", h[1].RecordTimeStr)
	assert.Equal(t, "apex-autodrome", h[1].TrackSlug)
}

func TestProcessCeiling(t *testing.T) {
	res, err := NewAggregator().Process(testTrack, []model.LapEntry{
		entry("Exact", "01:45.000", "2024-01-01", ""),
		entry("Over", "01:45.001", "2024-01-01", ""),
		entry("Zero", "00:00.000", "2024-01-01", ""),
	}, testNow)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "exact", res.Records[0].DriverSlug)
	assert.Equal(t, 2, res.Dropped.OutOfRange)
}

func TestProcessCleaning(t *testing.T) {
	entries := []model.LapEntry{
		entry("  Ali Khan ", " 00:58.500 ", "2024-01-01", ""),
		entry("", "00:58.000", "2024-01-01", ""),
		entry("No Time", "", "2024-01-01", ""),
		entry("Bad Time", "DNF", "2024-01-01", ""),
		entry("!!!", "00:59.000", "2024-01-01", ""),
		entry("No Date", "00:57.000", "someday", ""),
		entry("Ali Khan", "00:58.100", "2024-02-01", ""),
	}
	entries[0].MaxKmh = "71.6"
	entries[0].MaxG = "1.85"
	entries[0].Position = "4"

	res, err := NewAggregator().Process(testTrack, entries, testNow)
	require.NoError(t, err)

	assert.Equal(t, DropStats{
		Incomplete:  2,
		InvalidTime: 1,
		InvalidName: 1,
		InvalidDate: 1,
		Duplicates:  1,
	}, res.Dropped)

	require.Len(t, res.Records, 2)
	ali := recordBySlug(res, "ali-khan", "")
	require.NotNil(t, ali)
	assert.Equal(t, 58.1, ali.BestTime, "fastest duplicate is kept")
	assert.Nil(t, ali.MaxKmh)

	// the undated lap counts for the rankings but not for the record history
	nodate := recordBySlug(res, "no-date", "")
	require.NotNil(t, nodate)
	assert.Nil(t, nodate.Date)
	assert.Equal(t, 100.0, nodate.Percentile)
	hist := res.Histories[0].Entries
	require.Len(t, hist, 2)
	assert.Equal(t, "ali-khan", hist[0].DriverSlug)
	assert.Equal(t, 58.5, hist[0].RecordTime)
	assert.Equal(t, 58.1, hist[1].RecordTime)
	assert.Equal(t, "00:57.000", res.Track.Stats.WorldRecordStr)
}

func TestProcessTelemetry(t *testing.T) {
	e := entry("Ali Khan", "00:58.500", "2024-01-01", "")
	e.MaxKmh = "71.6"
	e.MaxG = "1.85"
	e.Position = "4"
	res, err := NewAggregator().Process(testTrack, []model.LapEntry{e}, testNow)
	require.NoError(t, err)
	rec := res.Records[0]
	require.NotNil(t, rec.MaxKmh)
	require.NotNil(t, rec.MaxG)
	assert.Equal(t, 72, *rec.MaxKmh)
	assert.Equal(t, 1.85, *rec.MaxG)
	assert.Equal(t, 4, rec.Position)
	assert.Equal(t, 0.0, rec.ZScore)
	assert.Equal(t, "B", rec.Tier)
	assert.Equal(t, 100.0, rec.Percentile)
}

func TestProcessPartitions(t *testing.T) {
	res, err := NewAggregator().Process(testTrack, []model.LapEntry{
		entry("S1", "00:50.000", "2024-01-01", "Sprint"),
		entry("S2", "00:52.000", "2024-01-02", "Sprint"),
		entry("P1", "01:00.000", "2024-01-01", "Pro"),
		entry("P2", "01:04.000", "2024-01-05", "Pro"),
		entry("P3", "01:02.000", "2024-01-03", "Pro"),
		entry("S1", "00:58.000", "2024-01-01", "Pro"),
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{"Pro", "Sprint"}, res.Track.KartTypes)
	// track wide numbers use the whole sample
	assert.Equal(t, 50.0, res.Track.Stats.WorldRecord)
	assert.Equal(t, 6, res.Track.Stats.TotalDrivers)
	assert.Equal(t, 59.0, res.Track.Stats.Median)

	// rankings are relative to the kart type
	s2 := recordBySlug(res, "s2", "Sprint")
	assert.Equal(t, 2.0, s2.GapToP1)
	assert.Equal(t, 50.0, s2.Percentile)
	s1pro := recordBySlug(res, "s1", "Pro")
	assert.Equal(t, 100.0, s1pro.Percentile)
	assert.Equal(t, 0.0, s1pro.GapToP1)
	p2 := recordBySlug(res, "p2", "Pro")
	assert.Equal(t, 6.0, p2.GapToP1)
	assert.Equal(t, 25.0, p2.Percentile)

	require.Len(t, res.WarZones, 2)
	assert.Equal(t, []string{"Pro", "Sprint"},
		lo.Map(res.WarZones, func(w *model.WarZone, _ int) string { return w.KartType }))
	require.Len(t, res.Histories, 2)
	for _, h := range res.Histories {
		current := lo.CountBy(h.Entries, func(e *model.RecordHistoryEntry) bool { return e.Current })
		assert.Equal(t, 1, current, h.KartType)
	}
	pro := res.Histories[0]
	assert.Equal(t, "Pro", pro.KartType)
	assert.Equal(t, 58.0, pro.Entries[len(pro.Entries)-1].RecordTime)

	s1, ok := lo.Find(res.Drivers, func(d *DriverData) bool { return d.Slug == "s1" })
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"Pro", "Sprint"}, s1.KartTypes())
}

func TestProcessNoValidRows(t *testing.T) {
	_, err := NewAggregator().Process(testTrack, []model.LapEntry{
		entry("Slow", "02:10.000", "2024-01-01", ""),
	}, testNow)
	assert.True(t, errors.Is(err, ErrNoValidRows))

	_, err = NewAggregator().Process(testTrack, nil, testNow)
	assert.True(t, errors.Is(err, ErrNoValidRows))
}

func TestProcessCustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.MaxLapTime = 60
	res, err := NewAggregator(WithPolicy(p)).Process(testTrack, []model.LapEntry{
		entry("A", "00:59.000", "2024-01-01", ""),
		entry("B", "01:01.000", "2024-01-01", ""),
	}, testNow)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}
