// Package postgres implements the store interfaces on PostgreSQL.
// Every collection is a table, embedded documents are jsonb columns.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/mpapenbr/karting-sync/pkg/db/migrate"
	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository/api"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres/driver"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres/history"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres/laprecord"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres/track"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres/warzone"
)

type pgRepositories struct {
	pool                *pgxpool.Pool
	trackRepository     *trackRepository
	lapRecordRepository *lapRecordRepository
	driverRepository    *driverRepository
	warZoneRepository   *warZoneRepository
	historyRepository   *historyRepository
}

var _ api.Repositories = (*pgRepositories)(nil)

func NewRepositoriesFromPool(pool *pgxpool.Pool) api.Repositories {
	return &pgRepositories{
		pool:                pool,
		trackRepository:     &trackRepository{pool: pool},
		lapRecordRepository: &lapRecordRepository{pool: pool},
		driverRepository:    &driverRepository{pool: pool},
		warZoneRepository:   &warZoneRepository{pool: pool},
		historyRepository:   &historyRepository{pool: pool},
	}
}

// Setup applies the schema migrations. Already applied migrations are skipped.
func (r *pgRepositories) Setup(ctx context.Context) error {
	if err := migrate.MigrateDb(r.pool.Config().ConnString()); err != nil {
		return errors.Wrap(err, "could not migrate database")
	}
	return nil
}

func (r *pgRepositories) Track() api.TrackRepository {
	return r.trackRepository
}

func (r *pgRepositories) LapRecord() api.LapRecordRepository {
	return r.lapRecordRepository
}

func (r *pgRepositories) Driver() api.DriverRepository {
	return r.driverRepository
}

func (r *pgRepositories) WarZone() api.WarZoneRepository {
	return r.warZoneRepository
}

func (r *pgRepositories) RecordHistory() api.RecordHistoryRepository {
	return r.historyRepository
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return api.ErrNoRows
	}
	return err
}

type trackRepository struct {
	pool *pgxpool.Pool
}

func (r *trackRepository) Upsert(ctx context.Context, t *model.Track) (bool, error) {
	return track.Upsert(ctx, r.pool, t)
}

func (r *trackRepository) LoadBySlug(ctx context.Context, slug string) (
	*model.Track, error,
) {
	ret, err := track.LoadBySlug(ctx, r.pool, slug)
	return ret, mapErr(err)
}

func (r *trackRepository) LoadAll(ctx context.Context) ([]*model.Track, error) {
	return track.LoadAll(ctx, r.pool)
}

type lapRecordRepository struct {
	pool *pgxpool.Pool
}

func (r *lapRecordRepository) BulkUpsert(
	ctx context.Context,
	records []*model.LapRecord,
) api.BulkResult {
	var ret api.BulkResult
	for i, rec := range records {
		created, err := laprecord.Upsert(ctx, r.pool, rec)
		ret.Add(i, created, errors.Wrapf(err, "lap record %s/%s/%s",
			rec.TrackSlug, rec.DriverSlug, model.StoreKartType(rec.KartType)))
	}
	return ret
}

func (r *lapRecordRepository) LoadByTrack(ctx context.Context, trackSlug string) (
	[]*model.LapRecord, error,
) {
	return laprecord.LoadByTrack(ctx, r.pool, trackSlug)
}

type driverRepository struct {
	pool *pgxpool.Pool
}

func (r *driverRepository) BulkUpsertAndPull(
	ctx context.Context,
	ops []api.DriverPull,
) api.BulkResult {
	var ret api.BulkResult
	for i := range ops {
		op := &ops[i]
		created, err := driver.UpsertAndPull(ctx, r.pool, &model.Driver{
			Slug:       op.Slug,
			Name:       op.Name,
			ProfileURL: op.ProfileURL,
			UpdatedAt:  op.UpdatedAt,
		}, op.TrackSlug, op.KartType)
		ret.Add(i, created, errors.Wrapf(err, "driver %s", op.Slug))
	}
	return ret
}

func (r *driverRepository) BulkPush(
	ctx context.Context,
	ops []api.DriverPush,
) api.BulkResult {
	var ret api.BulkResult
	for i := range ops {
		op := &ops[i]
		n, err := driver.Push(ctx, r.pool, op.Slug, op.Results, op.UpdatedAt)
		if err == nil && n == 0 {
			err = api.ErrNoRows
		}
		ret.Add(i, false, errors.Wrapf(err, "driver %s", op.Slug))
	}
	return ret
}

func (r *driverRepository) LoadBySlug(ctx context.Context, slug string) (
	*model.Driver, error,
) {
	ret, err := driver.LoadBySlug(ctx, r.pool, slug)
	return ret, mapErr(err)
}

type warZoneRepository struct {
	pool *pgxpool.Pool
}

func (r *warZoneRepository) Upsert(ctx context.Context, wz *model.WarZone) (bool, error) {
	return warzone.Upsert(ctx, r.pool, wz)
}

func (r *warZoneRepository) LoadByTrack(ctx context.Context, trackSlug string) (
	[]*model.WarZone, error,
) {
	return warzone.LoadByTrack(ctx, r.pool, trackSlug)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

func (r *historyRepository) DemoteAll(
	ctx context.Context,
	trackSlug, kartType string,
	ts time.Time,
) (int, error) {
	return history.DemoteAll(ctx, r.pool, trackSlug, kartType, ts)
}

func (r *historyRepository) BulkUpsert(
	ctx context.Context,
	entries []*model.RecordHistoryEntry,
) api.BulkResult {
	var ret api.BulkResult
	for i, e := range entries {
		created, err := history.Upsert(ctx, r.pool, e)
		ret.Add(i, created, errors.Wrapf(err, "record history %s/%s/%s",
			e.TrackSlug, model.StoreKartType(e.KartType), e.BrokenAt.Format(time.DateOnly)))
	}
	return ret
}

func (r *historyRepository) LoadByScope(
	ctx context.Context,
	trackSlug, kartType string,
) ([]*model.RecordHistoryEntry, error) {
	return history.LoadByScope(ctx, r.pool, trackSlug, kartType)
}
