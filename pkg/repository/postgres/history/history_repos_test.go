//nolint:funlen //ok for this test code
package history

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/testsupport/basedata"
	"github.com/mpapenbr/karting-sync/testsupport/testdb"
)

func entry(driver string, recordTime float64, brokenAt string, current bool) *model.RecordHistoryEntry {
	d, _ := time.Parse(time.DateOnly, brokenAt)
	return &model.RecordHistoryEntry{
		TrackSlug:     "apex-autodrome",
		DriverName:    driver,
		DriverSlug:    driver,
		RecordTime:    recordTime,
		RecordTimeStr: "00:58.000",
		BrokenAt:      d,
		Current:       current,
		UpdatedAt:     basedata.TestTime(),
	}
}

func currentFlags(t *testing.T, entries []*model.RecordHistoryEntry) []bool {
	t.Helper()
	return lo.Map(entries, func(e *model.RecordHistoryEntry, _ int) bool { return e.Current })
}

func TestDemoteAndUpsert(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	ts := basedata.TestTime()

	for _, e := range []*model.RecordHistoryEntry{
		entry("a", 58.123, "2024-01-10", false),
		entry("b", 57.9, "2024-02-09", true),
	} {
		created, err := Upsert(ctx, pool, e)
		require.NoError(t, err)
		assert.True(t, created)
	}

	// other scope is not touched by demotion
	pro := entry("c", 61.0, "2024-01-01", true)
	pro.KartType = "Pro"
	_, err := Upsert(ctx, pool, pro)
	require.NoError(t, err)

	n, err := DemoteAll(ctx, pool, "apex-autodrome", "", ts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// rerun with an additional record
	for _, e := range []*model.RecordHistoryEntry{
		entry("a", 58.123, "2024-01-10", false),
		entry("b", 57.9, "2024-02-09", false),
		entry("d", 57.5, "2024-03-20", true),
	} {
		_, err := Upsert(ctx, pool, e)
		require.NoError(t, err)
	}

	got, err := LoadByScope(ctx, pool, "apex-autodrome", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []bool{false, false, true}, currentFlags(t, got))

	got, err = LoadByScope(ctx, pool, "apex-autodrome", "Pro")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, currentFlags(t, got))
}

func TestUpsertIdempotent(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	e := entry("a", 58.123, "2024-01-10", true)
	created, err := Upsert(ctx, pool, e)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = Upsert(ctx, pool, e)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := LoadByScope(ctx, pool, "apex-autodrome", "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
