package api

import (
	"context"
	"errors"
	"time"

	"github.com/mpapenbr/karting-sync/pkg/model"
)

var ErrNoRows = errors.New("no rows in result set")

// Repositories is the narrow store interface the sync layer depends on.
type Repositories interface {
	// Setup establishes collections, uniqueness and lookup constraints.
	// It must be safe to call when everything already exists.
	Setup(ctx context.Context) error
	Track() TrackRepository
	LapRecord() LapRecordRepository
	Driver() DriverRepository
	WarZone() WarZoneRepository
	RecordHistory() RecordHistoryRepository
}

// BulkResult reports the outcome of an unordered bulk write.
// A failing operation does not prevent the remaining ones.
type BulkResult struct {
	Upserted int // operations that created a new document
	Modified int // operations that updated an existing document
	Failed   int
	Errors   []error
	// FailedOps holds the indexes of the failed operations
	FailedOps []int
}

func (b BulkResult) Succeeded() int {
	return b.Upserted + b.Modified
}

// Add records the outcome of the operation with index idx.
func (b *BulkResult) Add(idx int, created bool, err error) {
	switch {
	case err != nil:
		b.Failed++
		b.Errors = append(b.Errors, err)
		b.FailedOps = append(b.FailedOps, idx)
	case created:
		b.Upserted++
	default:
		b.Modified++
	}
}

type TrackRepository interface {
	// Upsert stores the track by slug. CreatedAt is only set on insert.
	// The stored id is written back to track.ID.
	Upsert(ctx context.Context, track *model.Track) (created bool, err error)
	LoadBySlug(ctx context.Context, slug string) (*model.Track, error)
	LoadAll(ctx context.Context) ([]*model.Track, error)
}

type LapRecordRepository interface {
	// BulkUpsert stores records keyed by (track slug, driver slug, kart type).
	// Each upsert is atomic on its own, no ordering is guaranteed between them.
	BulkUpsert(ctx context.Context, records []*model.LapRecord) BulkResult
	LoadByTrack(ctx context.Context, trackSlug string) ([]*model.LapRecord, error)
}

// DriverPull is phase one of the driver update: upsert identity fields and
// remove all embedded results for (TrackSlug, KartType).
type DriverPull struct {
	Slug       string
	Name       string
	ProfileURL string
	TrackSlug  string
	KartType   string
	UpdatedAt  time.Time
}

// DriverPush is phase two of the driver update: append results.
type DriverPush struct {
	Slug      string
	Results   []model.DriverResult
	UpdatedAt time.Time
}

// DriverRepository exposes the two phase update of embedded results.
// The phases are not atomic together. A failure between them leaves the
// driver without entries for the scope until the next run.
type DriverRepository interface {
	BulkUpsertAndPull(ctx context.Context, ops []DriverPull) BulkResult
	BulkPush(ctx context.Context, ops []DriverPush) BulkResult
	LoadBySlug(ctx context.Context, slug string) (*model.Driver, error)
}

type WarZoneRepository interface {
	// Upsert stores the war zone keyed by (track slug, kart type).
	Upsert(ctx context.Context, wz *model.WarZone) (created bool, err error)
	LoadByTrack(ctx context.Context, trackSlug string) ([]*model.WarZone, error)
}

type RecordHistoryRepository interface {
	// DemoteAll marks every entry of the scope as not current.
	DemoteAll(ctx context.Context, trackSlug, kartType string, ts time.Time) (int, error)
	// BulkUpsert stores entries keyed by (track slug, kart type, broken at, record time).
	BulkUpsert(ctx context.Context, entries []*model.RecordHistoryEntry) BulkResult
	LoadByScope(
		ctx context.Context,
		trackSlug, kartType string,
	) ([]*model.RecordHistoryEntry, error)
}
