// Package track turns the raw lap entries of one track into the documents
// that are synchronized to the store.
package track

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/convert"
	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/processing/timeline"
	"github.com/mpapenbr/karting-sync/pkg/stats"
)

// DefaultMaxLapTime is the plausibility ceiling (01:45.000). Slower laps are
// treated as data entry artifacts.
const DefaultMaxLapTime = 105.0

var ErrNoValidRows = errors.New("no valid rows after filtering")

type Policy struct {
	MaxLapTime    float64 // inclusive
	Tiers         stats.TierTable
	MetaBins      int
	WarZoneBucket float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxLapTime:    DefaultMaxLapTime,
		Tiers:         stats.DefaultTierTable,
		MetaBins:      stats.DefaultMetaBins,
		WarZoneBucket: stats.DefaultWarZoneBucket,
	}
}

type (
	Result struct {
		Track     *model.Track
		Records   []*model.LapRecord
		Drivers   []*DriverData
		WarZones  []*model.WarZone
		Histories []*ScopeHistory
		Scopes    []*ScopeStats
		Dropped   DropStats
	}
	// DriverData collects the results of one driver on this track.
	DriverData struct {
		Slug       string
		Name       string
		ProfileURL string
		Results    []model.DriverResult
	}
	ScopeHistory struct {
		KartType string
		Entries  []*model.RecordHistoryEntry
	}
	ScopeStats struct {
		KartType string
		Summary  stats.Summary
		Tiers    []stats.TierCount
	}
	DropStats struct {
		Incomplete  int // name or best time missing
		InvalidTime int
		OutOfRange  int
		InvalidName int // name without any usable slug character
		Duplicates  int // slower laps of the same driver and kart type
		InvalidDate int // kept for stats, excluded from record history
	}
)

// KartTypes returns the kart types the driver has results for.
func (d *DriverData) KartTypes() []string {
	return lo.Uniq(lo.Map(d.Results, func(r model.DriverResult, _ int) string {
		return r.KartType
	}))
}

type lap struct {
	name       string
	slug       string
	profileURL string
	timeStr    string
	time       float64
	date       *time.Time
	position   int
	kartType   string
	maxKmh     *int
	maxG       *float64
	seq        int
}

type Aggregator struct {
	policy Policy
	l      *log.Logger
}

type AggregatorOption func(*Aggregator)

func WithPolicy(p Policy) AggregatorOption {
	return func(a *Aggregator) {
		a.policy = p
	}
}

func WithLogger(l *log.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.l = l
	}
}

func NewAggregator(opts ...AggregatorOption) *Aggregator {
	ret := &Aggregator{
		policy: DefaultPolicy(),
		l:      log.Default().Named("track"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	// unset policy fields fall back to the defaults
	def := DefaultPolicy()
	if ret.policy.MaxLapTime <= 0 {
		ret.policy.MaxLapTime = def.MaxLapTime
	}
	if len(ret.policy.Tiers) == 0 {
		ret.policy.Tiers = def.Tiers
	}
	if ret.policy.MetaBins <= 0 {
		ret.policy.MetaBins = def.MetaBins
	}
	if ret.policy.WarZoneBucket <= 0 {
		ret.policy.WarZoneBucket = def.WarZoneBucket
	}
	return ret
}

// Process cleans entries and computes all documents for the track.
// now is used as update timestamp and as end of the current record reign.
//
//nolint:funlen // ok
func (a *Aggregator) Process(
	cfg model.TrackConfig,
	entries []model.LapEntry,
	now time.Time,
) (*Result, error) {
	trackSlug := convert.Slug(cfg.Name)
	l := a.l.With(log.String("track", trackSlug))

	laps, dropped := a.clean(entries)
	l.Info("cleaned entries",
		log.Int("raw", len(entries)),
		log.Int("valid", len(laps)),
		log.Int("incomplete", dropped.Incomplete),
		log.Int("invalidTime", dropped.InvalidTime),
		log.Int("outOfRange", dropped.OutOfRange),
		log.Int("invalidDate", dropped.InvalidDate))
	if len(laps) == 0 {
		return nil, errors.Wrapf(ErrNoValidRows, "track %s", cfg.Name)
	}

	best, dups := bestPerDriver(laps)
	dropped.Duplicates = dups

	times := lo.Map(best, func(x *lap, _ int) float64 { return x.time })
	summary := stats.Describe(times, a.policy.MetaBins)
	holder := best[slices.IndexFunc(best, func(x *lap) bool { return x.time == summary.Min })]

	kartTypes := lo.Uniq(lo.FilterMap(best, func(x *lap, _ int) (string, bool) {
		return x.kartType, x.kartType != ""
	}))
	slices.Sort(kartTypes)

	l.Info("track statistics",
		log.String("worldRecord", convert.FormatLapTime(summary.Min)),
		log.String("recordHolder", holder.name),
		log.Int("drivers", summary.Count),
		log.String("mean", convert.FormatLapTime(summary.Mean)),
		log.String("median", convert.FormatLapTime(summary.Median)),
		log.Float64("stdDev", summary.StdDev),
		log.Strings("kartTypes", kartTypes))

	ret := &Result{
		Track: &model.Track{
			Name:        cfg.Name,
			Slug:        trackSlug,
			Location:    cfg.Location,
			Description: cfg.Description,
			KartTypes:   kartTypes,
			Stats: model.TrackStats{
				TotalDrivers:     summary.Count,
				WorldRecord:      summary.Min,
				WorldRecordStr:   convert.FormatLapTime(summary.Min),
				RecordHolder:     holder.name,
				RecordHolderSlug: holder.slug,
				Top1Percent:      summary.Top1,
				Top5Percent:      summary.Top5,
				Top10Percent:     summary.Top10,
				Mean:             summary.Mean,
				StdDev:           summary.StdDev,
				Median:           summary.Median,
				Slowest:          summary.Max,
				MetaTime:         summary.MetaTime,
				LastUpdated:      now,
			},
		},
		Dropped: dropped,
	}

	// statistics are computed per kart type if the track has any,
	// otherwise once for the whole track
	scopeOf := func(x *lap) string { return "" }
	if len(kartTypes) > 0 {
		scopeOf = func(x *lap) string { return x.kartType }
	}
	bestByScope := lo.GroupBy(best, scopeOf)
	allByScope := lo.GroupBy(laps, scopeOf)
	scopes := lo.Keys(bestByScope)
	slices.Sort(scopes)

	drivers := make(map[string]*DriverData)
	driverOrder := make([]string, 0)
	for _, scope := range scopes {
		sc := a.processScope(ret.Track, scope, bestByScope[scope], allByScope[scope], now)
		l.Info("tier distribution",
			log.String("kartType", scope),
			log.Int("drivers", sc.stats.Summary.Count),
			log.Any("tiers", sc.stats.Tiers))

		ret.Scopes = append(ret.Scopes, sc.stats)
		ret.Records = append(ret.Records, sc.records...)
		ret.WarZones = append(ret.WarZones, sc.warZone)
		ret.Histories = append(ret.Histories, sc.history)
		for i, rec := range sc.records {
			d, ok := drivers[rec.DriverSlug]
			if !ok {
				d = &DriverData{Slug: rec.DriverSlug, Name: rec.DriverName, ProfileURL: rec.ProfileURL}
				drivers[rec.DriverSlug] = d
				driverOrder = append(driverOrder, rec.DriverSlug)
			}
			d.Results = append(d.Results, sc.results[i])
		}
	}
	ret.Drivers = lo.Map(driverOrder, func(slug string, _ int) *DriverData {
		return drivers[slug]
	})
	return ret, nil
}

type scopeResult struct {
	stats   *ScopeStats
	records []*model.LapRecord
	results []model.DriverResult
	warZone *model.WarZone
	history *ScopeHistory
}

//nolint:funlen // ok
func (a *Aggregator) processScope(
	track *model.Track,
	kartType string,
	best []*lap,
	all []*lap,
	now time.Time,
) *scopeResult {
	sorted := slices.Clone(best)
	slices.SortStableFunc(sorted, func(x, y *lap) int {
		if c := cmp.Compare(x.time, y.time); c != 0 {
			return c
		}
		return cmp.Compare(x.seq, y.seq)
	})
	times := lo.Map(sorted, func(x *lap, _ int) float64 { return x.time })
	summary := stats.Describe(times, a.policy.MetaBins)

	ret := &scopeResult{
		records: make([]*model.LapRecord, 0, len(sorted)),
		results: make([]model.DriverResult, 0, len(sorted)),
	}
	tiers := make([]string, 0, len(sorted))
	rank := 0
	for i, x := range sorted {
		// equal times share the rank
		if i == 0 || x.time != sorted[i-1].time {
			rank = i + 1
		}
		z := stats.ZScore(x.time, summary.Mean, summary.StdDev)
		tier := a.policy.Tiers.Assign(z)
		tiers = append(tiers, tier)
		interval := 0.0
		if i > 0 {
			interval = roundMillis(x.time - sorted[i-1].time)
		}
		position := x.position
		if position <= 0 {
			position = rank
		}
		rec := &model.LapRecord{
			TrackName:   track.Name,
			TrackSlug:   track.Slug,
			DriverName:  x.name,
			DriverSlug:  x.slug,
			ProfileURL:  x.profileURL,
			Position:    position,
			BestTime:    x.time,
			BestTimeStr: x.timeStr,
			Date:        x.date,
			MaxKmh:      x.maxKmh,
			MaxG:        x.maxG,
			KartType:    kartType,
			Tier:        tier,
			Percentile:  stats.PercentileFromRank(rank, len(sorted)),
			GapToP1:     roundMillis(x.time - summary.Min),
			Interval:    interval,
			ZScore:      z,
			UpdatedAt:   now,
		}
		ret.records = append(ret.records, rec)
		ret.results = append(ret.results, model.DriverResult{
			TrackName:   rec.TrackName,
			TrackSlug:   rec.TrackSlug,
			Position:    rec.Position,
			BestTime:    rec.BestTime,
			BestTimeStr: rec.BestTimeStr,
			Date:        rec.Date,
			MaxKmh:      rec.MaxKmh,
			MaxG:        rec.MaxG,
			KartType:    rec.KartType,
			Tier:        rec.Tier,
			Percentile:  rec.Percentile,
			GapToP1:     rec.GapToP1,
			Interval:    rec.Interval,
		})
	}
	ret.stats = &ScopeStats{
		KartType: kartType,
		Summary:  summary,
		Tiers:    a.policy.Tiers.Distribution(tiers),
	}

	wz := stats.FindWarZone(times, a.policy.WarZoneBucket)
	ret.warZone = &model.WarZone{
		TrackSlug:   track.Slug,
		KartType:    kartType,
		Start:       wz.Start,
		End:         wz.End,
		DriverCount: wz.Count,
		UpdatedAt:   now,
	}

	points := lo.FilterMap(all, func(x *lap, _ int) (timeline.Point, bool) {
		if x.date == nil {
			return timeline.Point{}, false
		}
		return timeline.Point{
			Date:       *x.date,
			DriverName: x.name,
			DriverSlug: x.slug,
			Time:       x.time,
		}, true
	})
	events := timeline.Reconstruct(points, now)
	ret.history = &ScopeHistory{
		KartType: kartType,
		Entries: lo.Map(events, func(e timeline.Event, _ int) *model.RecordHistoryEntry {
			return &model.RecordHistoryEntry{
				TrackSlug:     track.Slug,
				KartType:      kartType,
				DriverName:    e.DriverName,
				DriverSlug:    e.DriverSlug,
				RecordTime:    e.Time,
				RecordTimeStr: convert.FormatLapTime(e.Time),
				BrokenAt:      e.Date,
				DaysReigned:   e.DaysReigned,
				Current:       e.Current,
				UpdatedAt:     now,
			}
		}),
	}
	return ret
}

func (a *Aggregator) clean(entries []model.LapEntry) ([]*lap, DropStats) {
	var dropped DropStats
	ret := make([]*lap, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		name := strings.TrimSpace(e.Name)
		timeStr := strings.TrimSpace(e.BestTime)
		if name == "" || timeStr == "" {
			dropped.Incomplete++
			continue
		}
		t, err := convert.ParseLapTime(timeStr)
		if err != nil {
			dropped.InvalidTime++
			a.l.Debug("dropping row with invalid time",
				log.String("file", e.SourceFile), log.Int("row", e.Row),
				log.ErrorField(err))
			continue
		}
		if t <= 0 || t > a.policy.MaxLapTime {
			dropped.OutOfRange++
			continue
		}
		slug := convert.Slug(name)
		if slug == "" {
			dropped.InvalidName++
			continue
		}
		x := &lap{
			name:       name,
			slug:       slug,
			profileURL: strings.TrimSpace(e.ProfileURL),
			timeStr:    timeStr,
			time:       t,
			position:   parseInt(e.Position),
			kartType:   strings.TrimSpace(e.KartType),
			seq:        i,
		}
		if d, err := convert.ParseDate(e.Date); err == nil {
			x.date = &d
		} else {
			dropped.InvalidDate++
		}
		if v, ok := parseFloat(e.MaxKmh); ok {
			kmh := int(math.Round(v))
			x.maxKmh = &kmh
		}
		if v, ok := parseFloat(e.MaxG); ok {
			x.maxG = &v
		}
		ret = append(ret, x)
	}
	return ret, dropped
}

// bestPerDriver keeps the fastest lap per driver and kart type.
// The result keeps the order of the original entries.
func bestPerDriver(laps []*lap) (ret []*lap, dups int) {
	type key struct{ slug, kartType string }
	idx := make(map[key]int)
	ret = make([]*lap, 0, len(laps))
	for _, x := range laps {
		k := key{x.slug, x.kartType}
		if i, ok := idx[k]; ok {
			dups++
			if x.time < ret[i].time {
				ret[i] = x
			}
			continue
		}
		idx[k] = len(ret)
		ret = append(ret, x)
	}
	return ret, dups
}

func parseInt(s string) int {
	v, ok := parseFloat(s)
	if !ok {
		return 0
	}
	return int(v)
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}
