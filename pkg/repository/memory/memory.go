// Package memory provides an in-memory store used by tests and dry runs.
// It follows the uniqueness keys of the postgres store.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository/api"
)

// FaultFunc may return an error for a write on collection with the given key.
// Used to simulate partial failures.
type FaultFunc func(collection, key string) error

const (
	CollSetup     = "setup"
	CollTrack     = "track"
	CollLapRecord = "lap_record"
	CollDriver    = "driver"
	CollWarZone   = "war_zone"
	CollHistory   = "record_history"
)

type Store struct {
	mu         sync.RWMutex
	setupCalls int
	nextID     int
	fault      FaultFunc
	tracks     map[string]*model.Track
	laps       map[string]*model.LapRecord
	drivers    map[string]*model.Driver
	warZones   map[string]*model.WarZone
	history    map[string]*model.RecordHistoryEntry
}

var _ api.Repositories = (*Store)(nil)

func New() *Store {
	return &Store{
		tracks:   make(map[string]*model.Track),
		laps:     make(map[string]*model.LapRecord),
		drivers:  make(map[string]*model.Driver),
		warZones: make(map[string]*model.WarZone),
		history:  make(map[string]*model.RecordHistoryEntry),
	}
}

func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Store) SetupCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.setupCalls
}

func (s *Store) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setupCalls++
	return s.check(CollSetup, "")
}

func (s *Store) Track() api.TrackRepository {
	return (*trackRepo)(s)
}

func (s *Store) LapRecord() api.LapRecordRepository {
	return (*lapRepo)(s)
}

func (s *Store) Driver() api.DriverRepository {
	return (*driverRepo)(s)
}

func (s *Store) WarZone() api.WarZoneRepository {
	return (*warZoneRepo)(s)
}

func (s *Store) RecordHistory() api.RecordHistoryRepository {
	return (*historyRepo)(s)
}

// must be called with lock held
func (s *Store) check(collection, key string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(collection, key)
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

type trackRepo Store

func (r *trackRepo) Upsert(ctx context.Context, t *model.Track) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(CollTrack, t.Slug); err != nil {
		return false, err
	}
	existing, ok := s.tracks[t.Slug]
	cp := *t
	cp.KartTypes = slices.Clone(t.KartTypes)
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		cp.ID = s.nextID
		cp.CreatedAt = t.UpdatedAt
	}
	s.tracks[t.Slug] = &cp
	t.ID = cp.ID
	t.CreatedAt = cp.CreatedAt
	return !ok, nil
}

func (r *trackRepo) LoadBySlug(ctx context.Context, slug string) (*model.Track, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tracks[slug]
	if !ok {
		return nil, api.ErrNoRows
	}
	cp := *t
	cp.KartTypes = slices.Clone(t.KartTypes)
	return &cp, nil
}

func (r *trackRepo) LoadAll(ctx context.Context) ([]*model.Track, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := lo.MapToSlice(s.tracks, func(_ string, t *model.Track) *model.Track {
		cp := *t
		return &cp
	})
	slices.SortFunc(ret, func(a, b *model.Track) int { return cmp.Compare(a.Name, b.Name) })
	return ret, nil
}

type lapRepo Store

func (r *lapRepo) BulkUpsert(ctx context.Context, records []*model.LapRecord) api.BulkResult {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret api.BulkResult
	for i, rec := range records {
		k := key(rec.TrackSlug, rec.DriverSlug, model.StoreKartType(rec.KartType))
		if err := s.check(CollLapRecord, k); err != nil {
			ret.Add(i, false, errors.Wrapf(err, "lap record %s", k))
			continue
		}
		cp := *rec
		existing, ok := s.laps[k]
		if ok {
			cp.CreatedAt = existing.CreatedAt
		} else {
			cp.CreatedAt = rec.UpdatedAt
		}
		s.laps[k] = &cp
		ret.Add(i, !ok, nil)
	}
	return ret
}

func (r *lapRepo) LoadByTrack(ctx context.Context, trackSlug string) (
	[]*model.LapRecord, error,
) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*model.LapRecord, 0)
	for _, rec := range s.laps {
		if rec.TrackSlug == trackSlug {
			cp := *rec
			ret = append(ret, &cp)
		}
	}
	slices.SortFunc(ret, func(a, b *model.LapRecord) int {
		return cmpOr(
			cmp.Compare(model.StoreKartType(a.KartType), model.StoreKartType(b.KartType)),
			cmp.Compare(a.BestTime, b.BestTime),
			cmp.Compare(a.DriverSlug, b.DriverSlug))
	})
	return ret, nil
}

type driverRepo Store

func (r *driverRepo) BulkUpsertAndPull(ctx context.Context, ops []api.DriverPull) api.BulkResult {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret api.BulkResult
	for i := range ops {
		op := &ops[i]
		if err := s.check(CollDriver, op.Slug); err != nil {
			ret.Add(i, false, errors.Wrapf(err, "driver %s", op.Slug))
			continue
		}
		d, ok := s.drivers[op.Slug]
		if !ok {
			s.nextID++
			d = &model.Driver{
				ID:        s.nextID,
				Slug:      op.Slug,
				Records:   []model.DriverResult{},
				CreatedAt: op.UpdatedAt,
			}
			s.drivers[op.Slug] = d
		}
		d.Name = op.Name
		d.ProfileURL = op.ProfileURL
		d.UpdatedAt = op.UpdatedAt
		d.Records = lo.Reject(d.Records, func(x model.DriverResult, _ int) bool {
			return x.TrackSlug == op.TrackSlug && x.KartType == op.KartType
		})
		ret.Add(i, !ok, nil)
	}
	return ret
}

func (r *driverRepo) BulkPush(ctx context.Context, ops []api.DriverPush) api.BulkResult {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret api.BulkResult
	for i := range ops {
		op := &ops[i]
		if err := s.check(CollDriver, op.Slug); err != nil {
			ret.Add(i, false, errors.Wrapf(err, "driver %s", op.Slug))
			continue
		}
		d, ok := s.drivers[op.Slug]
		if !ok {
			ret.Add(i, false, errors.Wrapf(api.ErrNoRows, "driver %s", op.Slug))
			continue
		}
		d.Records = append(d.Records, op.Results...)
		d.UpdatedAt = op.UpdatedAt
		ret.Add(i, false, nil)
	}
	return ret
}

func (r *driverRepo) LoadBySlug(ctx context.Context, slug string) (*model.Driver, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[slug]
	if !ok {
		return nil, api.ErrNoRows
	}
	cp := *d
	cp.Records = slices.Clone(d.Records)
	return &cp, nil
}

type warZoneRepo Store

func (r *warZoneRepo) Upsert(ctx context.Context, wz *model.WarZone) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(wz.TrackSlug, model.StoreKartType(wz.KartType))
	if err := s.check(CollWarZone, k); err != nil {
		return false, err
	}
	_, ok := s.warZones[k]
	cp := *wz
	s.warZones[k] = &cp
	return !ok, nil
}

func (r *warZoneRepo) LoadByTrack(ctx context.Context, trackSlug string) (
	[]*model.WarZone, error,
) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*model.WarZone, 0)
	for _, wz := range s.warZones {
		if wz.TrackSlug == trackSlug {
			cp := *wz
			ret = append(ret, &cp)
		}
	}
	slices.SortFunc(ret, func(a, b *model.WarZone) int {
		return cmp.Compare(model.StoreKartType(a.KartType), model.StoreKartType(b.KartType))
	})
	return ret, nil
}

type historyRepo Store

func historyKey(e *model.RecordHistoryEntry) string {
	return key(e.TrackSlug, model.StoreKartType(e.KartType),
		e.BrokenAt.UTC().Format(time.RFC3339Nano),
		strconv.FormatFloat(e.RecordTime, 'f', -1, 64))
}

func (r *historyRepo) DemoteAll(
	ctx context.Context,
	trackSlug, kartType string,
	ts time.Time,
) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(CollHistory, key(trackSlug, model.StoreKartType(kartType))); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range s.history {
		if e.TrackSlug == trackSlug && e.KartType == kartType && e.Current {
			e.Current = false
			e.UpdatedAt = ts
			n++
		}
	}
	return n, nil
}

func (r *historyRepo) BulkUpsert(
	ctx context.Context,
	entries []*model.RecordHistoryEntry,
) api.BulkResult {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret api.BulkResult
	for i, e := range entries {
		k := historyKey(e)
		if err := s.check(CollHistory, k); err != nil {
			ret.Add(i, false, errors.Wrapf(err, "record history %s", k))
			continue
		}
		_, ok := s.history[k]
		cp := *e
		s.history[k] = &cp
		ret.Add(i, !ok, nil)
	}
	return ret
}

func (r *historyRepo) LoadByScope(
	ctx context.Context,
	trackSlug, kartType string,
) ([]*model.RecordHistoryEntry, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*model.RecordHistoryEntry, 0)
	for _, e := range s.history {
		if e.TrackSlug == trackSlug && e.KartType == kartType {
			cp := *e
			ret = append(ret, &cp)
		}
	}
	slices.SortFunc(ret, func(a, b *model.RecordHistoryEntry) int {
		return cmpOr(a.BrokenAt.Compare(b.BrokenAt), cmp.Compare(b.RecordTime, a.RecordTime))
	})
	return ret, nil
}
