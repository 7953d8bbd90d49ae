//nolint:whitespace //can't make both the linter and editor happy :(
package warzone

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository"
)

// Upsert stores wz keyed by (track slug, kart type).
func Upsert(ctx context.Context, conn repository.Querier, wz *model.WarZone) (
	created bool, err error,
) {
	row := conn.QueryRow(ctx, `
	insert into war_zone (track_slug, kart_type, start_time, end_time,
		driver_count, updated_at)
	values ($1,$2,$3,$4,$5,$6)
	on conflict (track_slug, kart_type) do update set
		start_time=excluded.start_time,
		end_time=excluded.end_time,
		driver_count=excluded.driver_count,
		updated_at=excluded.updated_at
	returning (xmax = 0)
	`,
		wz.TrackSlug, model.StoreKartType(wz.KartType), wz.Start, wz.End,
		wz.DriverCount, wz.UpdatedAt)
	if err := row.Scan(&created); err != nil {
		return false, err
	}
	return created, nil
}

func LoadByTrack(
	ctx context.Context,
	conn repository.Querier,
	trackSlug string,
) ([]*model.WarZone, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where track_slug=$1 order by kart_type", selector), trackSlug)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.WarZone, error) {
		var item model.WarZone
		err := scan(&item, row)
		return &item, err
	})
}

// little helper
const selector = string(`
select track_slug, kart_type, start_time, end_time, driver_count, updated_at
from war_zone
`)

func scan(e *model.WarZone, row pgx.Row) error {
	if err := row.Scan(&e.TrackSlug, &e.KartType, &e.Start, &e.End,
		&e.DriverCount, &e.UpdatedAt); err != nil {
		return err
	}
	e.KartType = model.LoadKartType(e.KartType)
	return nil
}
