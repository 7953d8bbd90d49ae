//nolint:whitespace //can't make both the linter and editor happy :(
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository"
)

// DemoteAll clears the current flag of every entry in the scope.
// Returns the number of rows changed.
func DemoteAll(
	ctx context.Context,
	conn repository.Querier,
	trackSlug, kartType string,
	ts time.Time,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, `
	update record_history set is_current=false, updated_at=$3
	where track_slug=$1 and kart_type=$2 and is_current`,
		trackSlug, model.StoreKartType(kartType), ts)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// Upsert stores e keyed by (track slug, kart type, broken at, record time).
func Upsert(ctx context.Context, conn repository.Querier, e *model.RecordHistoryEntry) (
	created bool, err error,
) {
	row := conn.QueryRow(ctx, `
	insert into record_history (track_slug, kart_type, driver_name, driver_slug,
		record_time, record_time_str, broken_at, days_reigned, is_current,
		created_at, updated_at)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
	on conflict (track_slug, kart_type, broken_at, record_time) do update set
		driver_name=excluded.driver_name,
		driver_slug=excluded.driver_slug,
		record_time_str=excluded.record_time_str,
		days_reigned=excluded.days_reigned,
		is_current=excluded.is_current,
		updated_at=excluded.updated_at
	returning (xmax = 0)
	`,
		e.TrackSlug, model.StoreKartType(e.KartType), e.DriverName, e.DriverSlug,
		e.RecordTime, e.RecordTimeStr, e.BrokenAt, e.DaysReigned, e.Current,
		e.UpdatedAt)
	if err := row.Scan(&created); err != nil {
		return false, err
	}
	return created, nil
}

// LoadByScope returns the history of a track and kart type in chronological order.
func LoadByScope(
	ctx context.Context,
	conn repository.Querier,
	trackSlug, kartType string,
) ([]*model.RecordHistoryEntry, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where track_slug=$1 and kart_type=$2 order by broken_at, record_time desc",
			selector),
		trackSlug, model.StoreKartType(kartType))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows,
		func(row pgx.CollectableRow) (*model.RecordHistoryEntry, error) {
			var item model.RecordHistoryEntry
			err := scan(&item, row)
			return &item, err
		})
}

// little helper
const selector = string(`
select track_slug, kart_type, driver_name, driver_slug, record_time, record_time_str,
	broken_at, days_reigned, is_current, updated_at
from record_history
`)

func scan(e *model.RecordHistoryEntry, row pgx.Row) error {
	if err := row.Scan(&e.TrackSlug, &e.KartType, &e.DriverName, &e.DriverSlug,
		&e.RecordTime, &e.RecordTimeStr, &e.BrokenAt, &e.DaysReigned, &e.Current,
		&e.UpdatedAt); err != nil {
		return err
	}
	e.KartType = model.LoadKartType(e.KartType)
	return nil
}
