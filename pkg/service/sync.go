//nolint:whitespace //can't make both the linter and editor happy :(
package service

import (
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/processing/track"
	"github.com/mpapenbr/karting-sync/pkg/repository/api"
)

// SyncService writes the documents of a processed track to the store.
// All writes are idempotent: syncing the same result twice leaves the store
// in the same state as syncing it once.
type SyncService struct {
	repos api.Repositories
	l     *log.Logger
}

type SyncOption func(*SyncService)

func WithLogger(l *log.Logger) SyncOption {
	return func(s *SyncService) {
		s.l = l
	}
}

func NewSyncService(repos api.Repositories, opts ...SyncOption) *SyncService {
	ret := &SyncService{
		repos: repos,
		l:     log.Default().Named("sync"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// TrackSummary is the outcome of a track sync.
type TrackSummary struct {
	Track   string
	Slug    string
	Drivers int // drivers whose results were written
	Records int // lap records written
	Failed  int // failed write operations
	Created bool
}

// SyncTrack persists res. Only a failing track upsert aborts the sync,
// failures of single documents are logged and counted.
//
//nolint:funlen // ok
func (s *SyncService) SyncTrack(ctx context.Context, res *track.Result) (
	*TrackSummary, error,
) {
	ts := res.Track.Stats.LastUpdated
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res.Track.UpdatedAt = ts
	l := s.l.With(log.String("track", res.Track.Slug))

	created, err := s.repos.Track().Upsert(ctx, res.Track)
	if err != nil {
		return nil, errors.Wrapf(err, "could not upsert track %s", res.Track.Slug)
	}
	l.Debug("track upserted", log.Int("id", res.Track.ID), log.Bool("created", created))

	ret := &TrackSummary{
		Track:   res.Track.Name,
		Slug:    res.Track.Slug,
		Created: created,
	}

	for _, rec := range res.Records {
		rec.TrackID = res.Track.ID
	}
	lapResult := s.repos.LapRecord().BulkUpsert(ctx, res.Records)
	s.logBulk(l, "lap records", lapResult)
	ret.Records = lapResult.Succeeded()
	ret.Failed += lapResult.Failed

	driverResult := s.syncDrivers(ctx, res, ts)
	s.logBulk(l, "drivers", driverResult)
	ret.Drivers = driverResult.Succeeded()
	ret.Failed += driverResult.Failed

	for _, wz := range res.WarZones {
		if _, err := s.repos.WarZone().Upsert(ctx, wz); err != nil {
			l.Warn("could not upsert war zone",
				log.String("kartType", wz.KartType), log.ErrorField(err))
			ret.Failed++
		}
	}

	for _, h := range res.Histories {
		ret.Failed += s.syncHistory(ctx, l, res.Track.Slug, h, ts)
	}

	l.Info("sync complete",
		log.Int("drivers", ret.Drivers),
		log.Int("records", ret.Records),
		log.Int("failed", ret.Failed))
	return ret, nil
}

// syncDrivers runs the two phase update. A driver only gets phase two if all
// of its phase one operations succeeded. Otherwise the results would be
// appended to entries that were not removed.
func (s *SyncService) syncDrivers(
	ctx context.Context,
	res *track.Result,
	ts time.Time,
) api.BulkResult {
	pulls := make([]api.DriverPull, 0, len(res.Drivers))
	for _, d := range res.Drivers {
		for _, kartType := range d.KartTypes() {
			pulls = append(pulls, api.DriverPull{
				Slug:       d.Slug,
				Name:       d.Name,
				ProfileURL: d.ProfileURL,
				TrackSlug:  res.Track.Slug,
				KartType:   kartType,
				UpdatedAt:  ts,
			})
		}
	}
	pullResult := s.repos.Driver().BulkUpsertAndPull(ctx, pulls)
	failed := make(map[string]bool)
	for _, idx := range pullResult.FailedOps {
		failed[pulls[idx].Slug] = true
	}

	pushes := lo.FilterMap(res.Drivers, func(d *track.DriverData, _ int) (api.DriverPush, bool) {
		if failed[d.Slug] {
			return api.DriverPush{}, false
		}
		results := lo.Map(d.Results, func(r model.DriverResult, _ int) model.DriverResult {
			r.TrackID = res.Track.ID
			return r
		})
		return api.DriverPush{Slug: d.Slug, Results: results, UpdatedAt: ts}, true
	})
	ret := s.repos.Driver().BulkPush(ctx, pushes)
	ret.Failed += len(failed)
	ret.Errors = append(slices.Clone(pullResult.Errors), ret.Errors...)
	return ret
}

// syncHistory demotes all entries of the scope before writing the computed
// events. Returns the number of failed operations.
func (s *SyncService) syncHistory(
	ctx context.Context,
	l *log.Logger,
	trackSlug string,
	h *track.ScopeHistory,
	ts time.Time,
) int {
	demoted, err := s.repos.RecordHistory().DemoteAll(ctx, trackSlug, h.KartType, ts)
	if err != nil {
		// without demotion we could end up with more than one current entry
		l.Warn("could not demote record history, skipping scope",
			log.String("kartType", h.KartType), log.ErrorField(err))
		return len(h.Entries)
	}
	result := s.repos.RecordHistory().BulkUpsert(ctx, h.Entries)
	l.Debug("record history synced",
		log.String("kartType", h.KartType),
		log.Int("demoted", demoted),
		log.Int("upserted", result.Upserted),
		log.Int("modified", result.Modified))
	s.logBulk(l, "record history", result)
	return result.Failed
}

func (s *SyncService) logBulk(l *log.Logger, what string, r api.BulkResult) {
	if r.Failed == 0 {
		l.Debug(what+" written",
			log.Int("upserted", r.Upserted),
			log.Int("modified", r.Modified))
		return
	}
	for _, err := range r.Errors {
		l.Warn("write failed", log.String("collection", what), log.ErrorField(err))
	}
	l.Warn(what+" partially written",
		log.Int("upserted", r.Upserted),
		log.Int("modified", r.Modified),
		log.Int("failed", r.Failed))
}
