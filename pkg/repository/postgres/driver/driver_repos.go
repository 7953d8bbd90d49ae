//nolint:whitespace //can't make both the linter and editor happy :(
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository"
)

// UpsertAndPull stores the identity fields of a driver and removes the
// embedded results for the given track and kart type.
// An empty kartType matches results without kart type.
//
//nolint:funlen // sql
func UpsertAndPull(
	ctx context.Context,
	conn repository.Querier,
	driver *model.Driver,
	trackSlug, kartType string,
) (created bool, err error) {
	row := conn.QueryRow(ctx, `
	insert into driver (slug, name, profile_url, records, created_at, updated_at)
	values ($1,$2,$3,'[]'::jsonb,$4,$4)
	on conflict (slug) do update set
		name=excluded.name,
		profile_url=excluded.profile_url,
		updated_at=excluded.updated_at,
		records=coalesce((
			select jsonb_agg(r.elem order by r.idx)
			from jsonb_array_elements(driver.records) with ordinality as r(elem, idx)
			where not (r.elem->>'trackSlug' = $5
				and coalesce(r.elem->>'kartType', '') = $6)
		), '[]'::jsonb)
	returning id, (xmax = 0)
	`,
		driver.Slug, driver.Name, driver.ProfileURL, driver.UpdatedAt,
		trackSlug, kartType)
	if err := row.Scan(&driver.ID, &created); err != nil {
		return false, err
	}
	return created, nil
}

// Push appends results to the embedded results of the driver.
// Returns the number of rows updated.
func Push(
	ctx context.Context,
	conn repository.Querier,
	slug string,
	results []model.DriverResult,
	ts time.Time,
) (int, error) {
	if results == nil {
		results = []model.DriverResult{}
	}
	cmdTag, err := conn.Exec(ctx, `
	update driver set records = records || $2::jsonb, updated_at=$3
	where slug=$1`, slug, results, ts)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func LoadBySlug(
	ctx context.Context,
	conn repository.Querier,
	slug string,
) (*model.Driver, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where slug=$1", selector), slug)
	var item model.Driver
	if err := scan(&item, row); err != nil {
		return nil, err
	}
	return &item, nil
}

func LoadByProfileURL(
	ctx context.Context,
	conn repository.Querier,
	profileURL string,
) ([]*model.Driver, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where profile_url=$1 order by slug", selector), profileURL)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Driver, error) {
		var item model.Driver
		err := scan(&item, row)
		return &item, err
	})
}

// little helper
const selector = string(`
select id, slug, name, profile_url, records, created_at, updated_at from driver
`)

func scan(e *model.Driver, row pgx.Row) error {
	return row.Scan(&e.ID, &e.Slug, &e.Name, &e.ProfileURL, &e.Records,
		&e.CreatedAt, &e.UpdatedAt)
}
