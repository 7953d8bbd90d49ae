//nolint:whitespace //can't make both the linter and editor happy :(
package track

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository"
)

// Upsert stores the track keyed by slug. The id is written back to track.
// created_at is only set when the track is inserted.
func Upsert(ctx context.Context, conn repository.Querier, track *model.Track) (
	created bool, err error,
) {
	row := conn.QueryRow(ctx, `
	insert into track (slug, name, location, description, kart_types, stats,
		last_run_id, created_at, updated_at)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$8)
	on conflict (slug) do update set
		name=excluded.name,
		location=excluded.location,
		description=excluded.description,
		kart_types=excluded.kart_types,
		stats=excluded.stats,
		last_run_id=excluded.last_run_id,
		updated_at=excluded.updated_at
	returning id, created_at, (xmax = 0)
	`,
		track.Slug, track.Name, track.Location, track.Description,
		kartTypes(track), track.Stats, runID(track), track.UpdatedAt)
	if err := row.Scan(&track.ID, &track.CreatedAt, &created); err != nil {
		return false, err
	}
	return created, nil
}

func LoadBySlug(
	ctx context.Context,
	conn repository.Querier,
	slug string,
) (*model.Track, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where slug=$1", selector), slug)
	var item model.Track
	if err := scan(&item, row); err != nil {
		return nil, err
	}
	return &item, nil
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]*model.Track, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf("%s order by name", selector))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Track, error) {
		var item model.Track
		err := scan(&item, row)
		return &item, err
	})
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteBySlug(ctx context.Context, conn repository.Querier, slug string) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from track where slug=$1", slug)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func kartTypes(track *model.Track) []string {
	if track.KartTypes == nil {
		return []string{}
	}
	return track.KartTypes
}

func runID(track *model.Track) *uuid.UUID {
	if track.LastRunID.IsNil() {
		return nil
	}
	return &track.LastRunID
}

// little helper
const selector = string(`
select id, slug, name, location, description, kart_types, stats,
	last_run_id, created_at, updated_at from track
`)

func scan(e *model.Track, row pgx.Row) error {
	var runID *uuid.UUID
	if err := row.Scan(&e.ID, &e.Slug, &e.Name, &e.Location, &e.Description,
		&e.KartTypes, &e.Stats, &runID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return err
	}
	if runID != nil {
		e.LastRunID = *runID
	}
	return nil
}
