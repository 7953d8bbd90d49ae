//nolint:dupl,funlen,errcheck //ok for this test code
package track

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/testsupport/testdb"
)

var testTime = time.Date(2024, 4, 28, 11, 10, 12, 0, time.UTC)

func sampleTrack() *model.Track {
	return &model.Track{
		Name:      "Apex Autodrome",
		Slug:      "apex-autodrome",
		Location:  "Lahore, Pakistan",
		KartTypes: []string{"Pro", "Sprint"},
		Stats: model.TrackStats{
			TotalDrivers:   2,
			WorldRecord:    57.9,
			WorldRecordStr: "00:57.900",
			RecordHolder:   "Sara Malik",
			LastUpdated:    testTime,
		},
		UpdatedAt: testTime,
	}
}

func createSampleEntry(pool *pgxpool.Pool) *model.Track {
	track := sampleTrack()
	err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		_, err := Upsert(context.Background(), tx, track)
		return err
	})
	if err != nil {
		panic(err)
	}
	return track
}

func TestUpsert(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()

	first := sampleTrack()
	created, err := Upsert(ctx, pool, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)
	assert.True(t, testTime.Equal(first.CreatedAt))

	later := testTime.Add(24 * time.Hour)
	second := sampleTrack()
	second.UpdatedAt = later
	second.Stats.WorldRecord = 57.5
	second.LastRunID = uuid.Must(uuid.NewV7())
	created, err = Upsert(ctx, pool, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, testTime.Equal(second.CreatedAt), "created_at is kept")

	got, err := LoadBySlug(ctx, pool, "apex-autodrome")
	require.NoError(t, err)
	assert.Equal(t, 57.5, got.Stats.WorldRecord)
	assert.Equal(t, []string{"Pro", "Sprint"}, got.KartTypes)
	assert.Equal(t, second.LastRunID, got.LastRunID)
	assert.True(t, later.Equal(got.UpdatedAt))
	assert.True(t, testTime.Equal(got.CreatedAt))
}

func TestLoadBySlug(t *testing.T) {
	pool := testdb.InitTestDb()
	sample := createSampleEntry(pool)
	tests := []struct {
		name    string
		slug    string
		wantErr bool
	}{
		{name: "existing entry", slug: sample.Slug},
		{name: "unknown entry", slug: "unknown", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadBySlug(context.Background(), pool, tt.slug)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadBySlug() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.Equal(t, sample.ID, got.ID)
				assert.Equal(t, sample.Stats.RecordHolder, got.Stats.RecordHolder)
				assert.True(t, got.LastRunID.IsNil())
			}
		})
	}
}

func TestLoadAll(t *testing.T) {
	pool := testdb.InitTestDb()
	createSampleEntry(pool)
	other := sampleTrack()
	other.Name = "2F2F Formula Karting"
	other.Slug = "2f2f-formula-karting"
	other.KartTypes = nil
	_, err := Upsert(context.Background(), pool, other)
	require.NoError(t, err)

	got, err := LoadAll(context.Background(), pool)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2F2F Formula Karting", got[0].Name)
	assert.Empty(t, got[0].KartTypes)
}

func TestDeleteBySlug(t *testing.T) {
	pool := testdb.InitTestDb()
	sample := createSampleEntry(pool)
	tests := []struct {
		name string
		slug string
		want int
	}{
		{name: "delete_existing", slug: sample.Slug, want: 1},
		{name: "delete_non_existing", slug: "unknown", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeleteBySlug(context.Background(), pool, tt.slug)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
