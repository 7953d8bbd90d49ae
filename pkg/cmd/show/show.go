package show

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/cmd/cmdutil"
	"github.com/mpapenbr/karting-sync/pkg/convert"
	"github.com/mpapenbr/karting-sync/pkg/model"
	"github.com/mpapenbr/karting-sync/pkg/repository/api"
	"github.com/mpapenbr/karting-sync/pkg/repository/postgres"
)

var (
	outputFormat string
	topN         int
)

func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "shows synced data",
	}
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml",
		"output format (yaml, json)")
	cmdutil.AddLogFlags(cmd.PersistentFlags())
	cmd.AddCommand(newShowTrackCmd())
	return cmd
}

func newShowTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track <slug>",
		Short: "shows stats, war zones and record holders of a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlLogger, err := cmdutil.SetupLogger()
			if err != nil {
				return err
			}
			pool, err := cmdutil.OpenPool(cmd.Context(), sqlLogger)
			if err != nil {
				log.Error("Could not connect to database", log.ErrorField(err))
				return err
			}
			defer pool.Close()
			report, err := BuildTrackReport(cmd.Context(),
				postgres.NewRepositoriesFromPool(pool), args[0], topN)
			if err != nil {
				return err
			}
			return Write(cmd.OutOrStdout(), outputFormat, report)
		},
	}
	cmd.Flags().IntVar(&topN, "top", 10, "number of lap records to show per kart type")
	return cmd
}

//nolint:tagliatelle // camelCase output
type (
	TrackReport struct {
		Name        string         `json:"name" yaml:"name"`
		Slug        string         `json:"slug" yaml:"slug"`
		Location    string         `json:"location" yaml:"location"`
		KartTypes   []string       `json:"kartTypes,omitempty" yaml:"kartTypes,omitempty"`
		Drivers     int            `json:"drivers" yaml:"drivers"`
		WorldRecord string         `json:"worldRecord" yaml:"worldRecord"`
		Holder      string         `json:"recordHolder" yaml:"recordHolder"`
		Median      string         `json:"median" yaml:"median"`
		MetaTime    string         `json:"metaTime" yaml:"metaTime"`
		LastUpdated time.Time      `json:"lastUpdated" yaml:"lastUpdated"`
		LastRunID   string         `json:"lastRunId" yaml:"lastRunId"`
		Scopes      []*ScopeReport `json:"scopes" yaml:"scopes"`
	}
	ScopeReport struct {
		KartType      string        `json:"kartType" yaml:"kartType"`
		WarZone       string        `json:"warZone,omitempty" yaml:"warZone,omitempty"`
		WarZoneCount  int           `json:"warZoneDrivers" yaml:"warZoneDrivers"`
		CurrentRecord *RecordReport `json:"currentRecord,omitempty" yaml:"currentRecord,omitempty"`
		RecordEvents  int           `json:"recordEvents" yaml:"recordEvents"`
		Top           []LapReport   `json:"top" yaml:"top"`
	}
	RecordReport struct {
		Driver      string    `json:"driver" yaml:"driver"`
		Time        string    `json:"time" yaml:"time"`
		Since       time.Time `json:"since" yaml:"since"`
		DaysReigned int       `json:"daysReigned" yaml:"daysReigned"`
	}
	LapReport struct {
		Position   int     `json:"position" yaml:"position"`
		Driver     string  `json:"driver" yaml:"driver"`
		Time       string  `json:"time" yaml:"time"`
		Tier       string  `json:"tier" yaml:"tier"`
		Percentile float64 `json:"percentile" yaml:"percentile"`
		GapToP1    float64 `json:"gapToP1" yaml:"gapToP1"`
	}
)

// BuildTrackReport reads everything that was synced for a track.
func BuildTrackReport(
	ctx context.Context,
	repos api.Repositories,
	slug string,
	top int,
) (*TrackReport, error) {
	t, err := repos.Track().LoadBySlug(ctx, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "track %s", slug)
	}
	records, err := repos.LapRecord().LoadByTrack(ctx, slug)
	if err != nil {
		return nil, err
	}
	warZones, err := repos.WarZone().LoadByTrack(ctx, slug)
	if err != nil {
		return nil, err
	}
	ret := &TrackReport{
		Name:        t.Name,
		Slug:        t.Slug,
		Location:    t.Location,
		KartTypes:   t.KartTypes,
		Drivers:     t.Stats.TotalDrivers,
		WorldRecord: t.Stats.WorldRecordStr,
		Holder:      t.Stats.RecordHolder,
		Median:      convert.FormatLapTime(t.Stats.Median),
		MetaTime:    convert.FormatLapTime(t.Stats.MetaTime),
		LastUpdated: t.Stats.LastUpdated,
		LastRunID:   t.LastRunID.String(),
	}
	scopes := t.KartTypes
	if len(scopes) == 0 {
		scopes = []string{""}
	}
	byScope := lo.GroupBy(records, func(r *model.LapRecord) string { return r.KartType })
	for _, kt := range scopes {
		sc := &ScopeReport{KartType: model.StoreKartType(kt)}
		if wz, ok := lo.Find(warZones, func(w *model.WarZone) bool {
			return w.KartType == kt
		}); ok {
			sc.WarZone = convert.FormatLapTime(wz.Start) + " - " + convert.FormatLapTime(wz.End)
			sc.WarZoneCount = wz.DriverCount
		}
		history, err := repos.RecordHistory().LoadByScope(ctx, slug, kt)
		if err != nil {
			return nil, err
		}
		sc.RecordEvents = len(history)
		if cur, ok := lo.Find(history, func(e *model.RecordHistoryEntry) bool {
			return e.Current
		}); ok {
			sc.CurrentRecord = &RecordReport{
				Driver:      cur.DriverName,
				Time:        cur.RecordTimeStr,
				Since:       cur.BrokenAt,
				DaysReigned: cur.DaysReigned,
			}
		}
		// records are ordered by time
		sc.Top = lo.Map(lo.Subset(byScope[kt], 0, uint(max(top, 0))),
			func(r *model.LapRecord, _ int) LapReport {
				return LapReport{
					Position:   r.Position,
					Driver:     r.DriverName,
					Time:       r.BestTimeStr,
					Tier:       r.Tier,
					Percentile: r.Percentile,
					GapToP1:    r.GapToP1,
				}
			})
		ret.Scopes = append(ret.Scopes, sc)
	}
	return ret, nil
}

func Write(w io.Writer, format string, report *TrackReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
}
