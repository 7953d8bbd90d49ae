//nolint:funlen // ok for tests
package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/processing/track"
	"github.com/mpapenbr/karting-sync/pkg/repository/api"
	"github.com/mpapenbr/karting-sync/pkg/repository/memory"
)

var (
	firstRun  = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	secondRun = time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)
	sampleCfg = model.TrackConfig{Name: "Sportzilla Formula Karting", Location: "Lahore"}
)

func sampleEntries() []model.LapEntry {
	return []model.LapEntry{
		{Name: "Ali Khan", BestTime: "00:58.123", Date: "2024-01-10", KartType: "Sprint"},
		{Name: "Sara Malik", BestTime: "00:57.900", Date: "2024-02-09", KartType: "Sprint"},
		{Name: "Omar Butt", BestTime: "00:59.000", Date: "2024-03-01", KartType: "Sprint"},
		{Name: "Ali Khan", BestTime: "01:02.000", Date: "2024-01-12", KartType: "Pro"},
		{Name: "Hina Shah", BestTime: "01:01.500", Date: "2024-02-01", KartType: "Pro"},
	}
}

func process(t *testing.T, entries []model.LapEntry, now time.Time) *track.Result {
	t.Helper()
	res, err := track.NewAggregator().Process(sampleCfg, entries, now)
	require.NoError(t, err)
	return res
}

type snapshot struct {
	Records  []*model.LapRecord
	Drivers  map[string][]model.DriverResult
	WarZones []*model.WarZone
	History  map[string][]*model.RecordHistoryEntry
}

func takeSnapshot(t *testing.T, store *memory.Store, slug string, drivers []string) snapshot {
	t.Helper()
	ctx := context.Background()
	ret := snapshot{
		Drivers: map[string][]model.DriverResult{},
		History: map[string][]*model.RecordHistoryEntry{},
	}
	var err error
	ret.Records, err = store.LapRecord().LoadByTrack(ctx, slug)
	require.NoError(t, err)
	ret.WarZones, err = store.WarZone().LoadByTrack(ctx, slug)
	require.NoError(t, err)
	for _, d := range drivers {
		drv, err := store.Driver().LoadBySlug(ctx, d)
		require.NoError(t, err)
		ret.Drivers[d] = drv.Records
	}
	for _, kt := range []string{"Sprint", "Pro"} {
		ret.History[kt], err = store.RecordHistory().LoadByScope(ctx, slug, kt)
		require.NoError(t, err)
	}
	return ret
}

func TestSyncTrack(t *testing.T) {
	store := memory.New()
	svc := NewSyncService(store)
	res := process(t, sampleEntries(), firstRun)

	summary, err := svc.SyncTrack(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, &TrackSummary{
		Track:   "Sportzilla Formula Karting",
		Slug:    "sportzilla-formula-karting",
		Drivers: 4,
		Records: 5,
		Created: true,
	}, summary)

	stored, err := store.Track().LoadBySlug(context.Background(), "sportzilla-formula-karting")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pro", "Sprint"}, stored.KartTypes)
	assert.Equal(t, firstRun, stored.CreatedAt)
	assert.Equal(t, 57.9, stored.Stats.WorldRecord)

	records, err := store.LapRecord().LoadByTrack(context.Background(), stored.Slug)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, stored.ID, r.TrackID, r.DriverSlug)
	}

	ali, err := store.Driver().LoadBySlug(context.Background(), "ali-khan")
	require.NoError(t, err)
	assert.Len(t, ali.Records, 2)
	for _, r := range ali.Records {
		assert.Equal(t, stored.ID, r.TrackID)
	}

	sprint, err := store.RecordHistory().LoadByScope(context.Background(), stored.Slug, "Sprint")
	require.NoError(t, err)
	require.Len(t, sprint, 2)
	assert.False(t, sprint[0].Current)
	assert.True(t, sprint[1].Current)
	assert.Equal(t, "sara-malik", sprint[1].DriverSlug)
}

func TestSyncTrackIdempotent(t *testing.T) {
	store := memory.New()
	svc := NewSyncService(store)
	drivers := []string{"ali-khan", "sara-malik", "omar-butt", "hina-shah"}
	ignoreTS := cmpopts.IgnoreFields(model.LapRecord{}, "UpdatedAt")

	_, err := svc.SyncTrack(context.Background(), process(t, sampleEntries(), firstRun))
	require.NoError(t, err)
	once := takeSnapshot(t, store, "sportzilla-formula-karting", drivers)

	summary, err := svc.SyncTrack(context.Background(), process(t, sampleEntries(), firstRun))
	require.NoError(t, err)
	assert.False(t, summary.Created)
	twice := takeSnapshot(t, store, "sportzilla-formula-karting", drivers)

	if diff := cmp.Diff(once, twice, ignoreTS); diff != "" {
		t.Errorf("second sync changed the store (-once +twice):\n%s", diff)
	}
	for kt, h := range twice.History {
		assert.Equal(t, 1, lo.CountBy(h, func(e *model.RecordHistoryEntry) bool {
			return e.Current
		}), kt)
	}
}

func TestSyncTrackNewRecord(t *testing.T) {
	store := memory.New()
	svc := NewSyncService(store)
	_, err := svc.SyncTrack(context.Background(), process(t, sampleEntries(), firstRun))
	require.NoError(t, err)

	entries := append(sampleEntries(),
		model.LapEntry{Name: "Omar Butt", BestTime: "00:57.500", Date: "2024-04-01", KartType: "Sprint"})
	_, err = svc.SyncTrack(context.Background(), process(t, entries, secondRun))
	require.NoError(t, err)

	h, err := store.RecordHistory().LoadByScope(
		context.Background(), "sportzilla-formula-karting", "Sprint")
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Equal(t, []bool{false, false, true},
		lo.Map(h, func(e *model.RecordHistoryEntry, _ int) bool { return e.Current }))
	assert.Equal(t, "omar-butt", h[2].DriverSlug)
	assert.Equal(t, 52, h[1].DaysReigned)

	omar, err := store.Driver().LoadBySlug(context.Background(), "omar-butt")
	require.NoError(t, err)
	require.Len(t, omar.Records, 1, "results of the scope are replaced, not appended")
	assert.Equal(t, 57.5, omar.Records[0].BestTime)
	assert.Equal(t, 1, omar.Records[0].Position)

	stored, err := store.Track().LoadBySlug(context.Background(), "sportzilla-formula-karting")
	require.NoError(t, err)
	assert.Equal(t, firstRun, stored.CreatedAt)
	assert.Equal(t, secondRun, stored.UpdatedAt)
}

func TestSyncTrackPartialFailure(t *testing.T) {
	errBoom := errors.New("boom")
	store := memory.New()
	store.SetFault(func(collection, key string) error {
		if collection == memory.CollDriver && key == "omar-butt" {
			return errBoom
		}
		if collection == memory.CollLapRecord && key == "sportzilla-formula-karting|hina-shah|Pro" {
			return errBoom
		}
		return nil
	})
	svc := NewSyncService(store)

	summary, err := svc.SyncTrack(context.Background(), process(t, sampleEntries(), firstRun))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 3, summary.Drivers)
	assert.Equal(t, 2, summary.Failed)

	_, err = store.Driver().LoadBySlug(context.Background(), "omar-butt")
	assert.ErrorIs(t, err, api.ErrNoRows)
	sara, err := store.Driver().LoadBySlug(context.Background(), "sara-malik")
	require.NoError(t, err)
	assert.Len(t, sara.Records, 1)
}

func TestSyncTrackFailingTrack(t *testing.T) {
	store := memory.New()
	store.SetFault(func(collection, key string) error {
		if collection == memory.CollTrack {
			return errors.New("store unavailable")
		}
		return nil
	})
	_, err := NewSyncService(store).SyncTrack(
		context.Background(), process(t, sampleEntries(), firstRun))
	assert.Error(t, err)
	records, _ := store.LapRecord().LoadByTrack(context.Background(), "sportzilla-formula-karting")
	assert.Empty(t, records)
}
