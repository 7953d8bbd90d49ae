//nolint:whitespace //can't make both the linter and editor happy :(
package laprecord

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository"
)

// Upsert stores rec keyed by (track slug, driver slug, kart type).
func Upsert(ctx context.Context, conn repository.Querier, rec *model.LapRecord) (
	created bool, err error,
) {
	row := conn.QueryRow(ctx, `
	insert into lap_record (track_id, track_name, track_slug, driver_name, driver_slug,
		profile_url, position, best_time, best_time_str, lap_date, max_kmh, max_g,
		kart_type, tier, percentile, gap_to_p1, lap_interval, z_score,
		created_at, updated_at)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19)
	on conflict (track_slug, driver_slug, kart_type) do update set
		track_id=excluded.track_id,
		track_name=excluded.track_name,
		driver_name=excluded.driver_name,
		profile_url=excluded.profile_url,
		position=excluded.position,
		best_time=excluded.best_time,
		best_time_str=excluded.best_time_str,
		lap_date=excluded.lap_date,
		max_kmh=excluded.max_kmh,
		max_g=excluded.max_g,
		tier=excluded.tier,
		percentile=excluded.percentile,
		gap_to_p1=excluded.gap_to_p1,
		lap_interval=excluded.lap_interval,
		z_score=excluded.z_score,
		updated_at=excluded.updated_at
	returning (xmax = 0)
	`,
		rec.TrackID, rec.TrackName, rec.TrackSlug, rec.DriverName, rec.DriverSlug,
		rec.ProfileURL, rec.Position, rec.BestTime, rec.BestTimeStr, rec.Date,
		rec.MaxKmh, rec.MaxG, model.StoreKartType(rec.KartType), rec.Tier,
		rec.Percentile, rec.GapToP1, rec.Interval, rec.ZScore, rec.UpdatedAt)
	if err := row.Scan(&created); err != nil {
		return false, err
	}
	return created, nil
}

// LoadByTrack returns the records of a track ordered by kart type and time.
func LoadByTrack(
	ctx context.Context,
	conn repository.Querier,
	trackSlug string,
) ([]*model.LapRecord, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where track_slug=$1 order by kart_type, best_time, driver_slug",
			selector),
		trackSlug)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.LapRecord, error) {
		var item model.LapRecord
		err := scan(&item, row)
		return &item, err
	})
}

// deletes all records of a track, returns number of rows deleted.
func DeleteByTrack(ctx context.Context, conn repository.Querier, trackSlug string) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx, "delete from lap_record where track_slug=$1", trackSlug)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = string(`
select track_id, track_name, track_slug, driver_name, driver_slug, profile_url,
	position, best_time, best_time_str, lap_date, max_kmh, max_g, kart_type, tier,
	percentile, gap_to_p1, lap_interval, z_score, created_at, updated_at
from lap_record
`)

func scan(e *model.LapRecord, row pgx.Row) error {
	if err := row.Scan(&e.TrackID, &e.TrackName, &e.TrackSlug, &e.DriverName,
		&e.DriverSlug, &e.ProfileURL, &e.Position, &e.BestTime, &e.BestTimeStr,
		&e.Date, &e.MaxKmh, &e.MaxG, &e.KartType, &e.Tier, &e.Percentile,
		&e.GapToP1, &e.Interval, &e.ZScore, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return err
	}
	e.KartType = model.LoadKartType(e.KartType)
	return nil
}
