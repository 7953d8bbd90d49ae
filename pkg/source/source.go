// Package source reads the lap time exports of a track.
package source

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mpapenbr/karting-sync/log"
	"github.com/mpapenbr/karting-sync/pkg/model"
)

var (
	ErrNoSourceFiles  = errors.New("no source files found")
	ErrMissingColumns = errors.New("missing required columns")
)

// column names as exported by the timing system (compared case-insensitive)
const (
	colName       = "name"
	colBestTime   = "best time"
	colDate       = "date"
	colProfileURL = "profile url"
	colPosition   = "position"
	colKartType   = "kart type"
	colMaxKmh     = "max km/h"
	colMaxG       = "max g"
)

type Loader struct {
	baseDir string
	l       *log.Logger
}

type LoaderOption func(*Loader)

func WithLogger(l *log.Logger) LoaderOption {
	return func(ld *Loader) {
		ld.l = l
	}
}

func NewLoader(baseDir string, opts ...LoaderOption) *Loader {
	ret := &Loader{baseDir: baseDir, l: log.Default().Named("source")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// LoadTrack reads and concatenates all files of a track.
// Missing files are skipped. If none of the files exists ErrNoSourceFiles
// is returned.
func (ld *Loader) LoadTrack(files []string) ([]model.LapEntry, error) {
	ret := make([]model.LapEntry, 0)
	found := 0
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(ld.baseDir, f)
		}
		entries, err := ld.loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			ld.l.Warn("source file not found, skipping", log.String("file", path))
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		ld.l.Debug("read source file",
			log.String("file", path), log.Int("rows", len(entries)))
		found++
		ret = append(ret, entries...)
	}
	if found == 0 {
		return nil, errors.Wrapf(ErrNoSourceFiles, "tried %s", strings.Join(files, ", "))
	}
	ld.l.Info("loaded source files",
		log.Int("files", found), log.Int("rows", len(ret)))
	return ret, nil
}

func (ld *Loader) loadFile(path string) ([]model.LapEntry, error) {
	//nolint:gosec // path comes from the track configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses csv data with a header line. name is recorded as source file.
func Read(r io.Reader, name string) ([]model.LapEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []model.LapEntry{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	missing := make([]string, 0)
	for _, c := range []string{colName, colBestTime} {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrMissingColumns, "%s", strings.Join(missing, ", "))
	}
	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	ret := make([]model.LapEntry, 0)
	row := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", row)
		}
		ret = append(ret, model.LapEntry{
			Name:       get(rec, colName),
			BestTime:   get(rec, colBestTime),
			Date:       get(rec, colDate),
			ProfileURL: get(rec, colProfileURL),
			Position:   get(rec, colPosition),
			KartType:   get(rec, colKartType),
			MaxKmh:     get(rec, colMaxKmh),
			MaxG:       get(rec, colMaxG),
			SourceFile: name,
			Row:        row,
		})
	}
	return ret, nil
}
