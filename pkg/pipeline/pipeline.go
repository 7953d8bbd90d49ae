// Package pipeline drives a full run: load, aggregate and sync every
// configured track.
package pipeline

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/processing/track"
	"github.com/mpapenbr/karting-sync/pkg/repository/api"
	"github.com/mpapenbr/karting-sync/pkg/service"
	"github.com/mpapenbr/karting-sync/pkg/source"
)

type Config struct {
	Tracks  []model.TrackConfig
	DataDir string // base directory for relative source file paths
	Policy  track.Policy
}

type (
	Summary struct {
		RunID    uuid.UUID
		Tracks   []*service.TrackSummary
		Failures []*TrackFailure
		Drivers  int // drivers touched over all successful tracks
		Records  int // lap records written over all successful tracks
		Failed   int // failed write operations over all successful tracks
		Duration time.Duration
	}
	TrackFailure struct {
		Track string
		Err   error
	}
)

type Pipeline struct {
	cfg  Config
	sync *service.SyncService
	repo api.Repositories
	now  func() time.Time
	l    *log.Logger
}

type Option func(*Pipeline)

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.l = l
	}
}

// WithClock sets the source of the run timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(cfg Config, repos api.Repositories, opts ...Option) *Pipeline {
	ret := &Pipeline{
		cfg:  cfg,
		repo: repos,
		now:  func() time.Time { return time.Now().UTC() },
		l:    log.Default().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.sync = service.NewSyncService(repos, service.WithLogger(ret.l.Named("sync")))
	return ret
}

// Run sets up the store and processes the tracks one after another.
// A failing track is logged and skipped. Only a failing store setup aborts
// the run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "could not create run id")
	}
	ret := &Summary{RunID: runID}
	l := p.l.With(log.Stringer("runId", runID))

	if err := p.repo.Setup(ctx); err != nil {
		return nil, errors.Wrap(err, "store setup failed")
	}
	l.Info("store setup complete", log.Int("tracks", len(p.cfg.Tracks)))

	for i := range p.cfg.Tracks {
		cfg := p.cfg.Tracks[i]
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		summary, err := p.processTrack(ctx, runID, cfg)
		if err != nil {
			l.Error("track failed, continuing with next track",
				log.String("track", cfg.Name),
				log.ErrorField(err))
			ret.Failures = append(ret.Failures, &TrackFailure{Track: cfg.Name, Err: err})
			continue
		}
		ret.Tracks = append(ret.Tracks, summary)
		ret.Drivers += summary.Drivers
		ret.Records += summary.Records
		ret.Failed += summary.Failed
	}
	ret.Duration = time.Since(start)

	for _, s := range ret.Tracks {
		l.Info("track summary",
			log.String("track", s.Track),
			log.Int("drivers", s.Drivers),
			log.Int("records", s.Records))
	}
	l.Info("run complete",
		log.Int("tracks", len(ret.Tracks)),
		log.Int("failedTracks", len(ret.Failures)),
		log.Int("drivers", ret.Drivers),
		log.Int("records", ret.Records),
		log.Int("failedWrites", ret.Failed),
		log.Duration("duration", ret.Duration))
	return ret, nil
}

func (p *Pipeline) processTrack(
	ctx context.Context,
	runID uuid.UUID,
	cfg model.TrackConfig,
) (*service.TrackSummary, error) {
	l := p.l.With(log.String("track", cfg.Name))
	loader := source.NewLoader(p.cfg.DataDir, source.WithLogger(l.Named("source")))
	entries, err := loader.LoadTrack(cfg.Files)
	if err != nil {
		return nil, err
	}
	l.Info("loaded", log.Int("rows", len(entries)), log.Strings("files", cfg.Files))

	agg := track.NewAggregator(track.WithPolicy(p.cfg.Policy), track.WithLogger(l.Named("track")))
	res, err := agg.Process(cfg, entries, p.now())
	if err != nil {
		return nil, err
	}
	res.Track.LastRunID = runID
	return p.sync.SyncTrack(ctx, res)
}
