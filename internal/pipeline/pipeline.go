// Package pipeline turns a directory of recordings into the persisted
// feature collection.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/fsutil"
	"github.com/banshee-data/trackmap/internal/geocode"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/simplify"
	"github.com/banshee-data/trackmap/internal/track"
	"github.com/banshee-data/trackmap/internal/trackstats"
	"github.com/banshee-data/trackmap/internal/units"
)

// Options configures a run.
type Options struct {
	InputDir string
	Epsilon  float64
	Palette  []string
	Seed     uint64
	Timezone string
	Site     feature.Site
	Metrics  trackstats.Options

	// Workers bounds concurrent per-track derivation. Values below 1 mean 1.
	Workers int

	// RetryPending re-resolves stored features whose place name is pending.
	RetryPending bool
}

// Skip records a track that was left out of the collection.
type Skip struct {
	Name string
	Err  error
}

// Report summarises a run.
type Report struct {
	Added    []string
	Skipped  []Skip
	Pending  []string
	Retried  int // stored pending place names resolved this run
	Total    int
	Duration time.Duration
}

// Pipeline processes new recordings into a feature store.
type Pipeline struct {
	fs       fsutil.FileSystem
	store    *feature.Store
	resolver *geocode.Resolver
	opts     Options
	now      func() time.Time
}

// New returns a pipeline reading recordings through fsys.
func New(fsys fsutil.FileSystem, store *feature.Store, resolver *geocode.Resolver, opts Options) *Pipeline {
	return &Pipeline{fs: fsys, store: store, resolver: resolver, opts: opts, now: time.Now}
}

// derived is one worker's output slot.
type derived struct {
	name    string
	samples []track.Sample
	metrics trackstats.Metrics
	date    time.Time
	err     error
}

// Run loads the collection, derives features for recordings not yet in
// it, recolours the full set and saves it. The saved collection is
// returned alongside the report. Cancellation stops the run before
// anything is saved.
func (p *Pipeline) Run(ctx context.Context) (*feature.Collection, *Report, error) {
	started := p.now()
	coll, err := p.store.Load()
	if err != nil {
		return nil, nil, err
	}

	names, dups, err := p.pending(coll)
	if err != nil {
		return nil, nil, err
	}
	monitoring.Logf("%d existing tracks, %d new recordings in %s", len(coll.Features), len(names), p.opts.InputDir)

	slots := p.derive(ctx, names)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := &Report{}
	log := monitoring.Logger()
	for _, d := range dups {
		log.Warn("skipping duplicate recording", zap.String("track", d.Name), zap.Error(d.Err))
		report.Skipped = append(report.Skipped, d)
	}
	for i, d := range slots {
		if d.err != nil {
			log.Warn("skipping track", zap.String("track", d.name), zap.Error(d.err))
			report.Skipped = append(report.Skipped, Skip{Name: d.name, Err: d.err})
			continue
		}
		res, err := p.resolver.Resolve(ctx, d.metrics.Start)
		if err != nil {
			return nil, nil, err
		}
		links := p.opts.Site.Links(d.name, d.metrics.Start, d.date)
		coll.Add(feature.New(d.name, d.date.Format(feature.DateLayout), d.samples, d.metrics, res.PlaceName, links))
		report.Added = append(report.Added, d.name)
		log.Info("added track",
			zap.String("track", d.name),
			zap.Float64("distance_mi", d.metrics.DistanceMi),
			zap.Int("ascent_m", d.metrics.AscentM),
			zap.String("place", res.PlaceName),
			zap.String("place_status", string(res.Status)))
		monitoring.Logf("%.1f%% processed", float64(i+1)/float64(len(slots))*100)
	}

	if p.opts.RetryPending {
		n, err := p.retryPending(ctx, coll, report.Added)
		if err != nil {
			return nil, nil, err
		}
		report.Retried = n
	}

	coll.SortByNameDesc()
	if err := coll.Recolour(p.opts.Palette, p.opts.Seed); err != nil {
		return nil, nil, fmt.Errorf("assign colours: %w", err)
	}
	if err := p.store.Save(coll); err != nil {
		return nil, nil, err
	}

	for _, f := range coll.Features {
		if f.Properties.PlaceName == geocode.PendingPlaceName {
			report.Pending = append(report.Pending, f.Properties.Name)
		}
	}
	report.Total = len(coll.Features)
	report.Duration = p.now().Sub(started)
	log.Info("collection saved",
		zap.String("path", p.store.Path()),
		zap.Int("total", report.Total),
		zap.Int("added", len(report.Added)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("pending", len(report.Pending)))
	return coll, report, nil
}

// DuplicateNameError reports a recording whose name is already taken by
// another file in the same run, such as "walk.gpx" next to "walk.GPX".
type DuplicateNameError struct {
	File string
	Kept string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("recording %q has the same track name as %q", e.File, e.Kept)
}

// pending lists recordings whose name is not yet in coll, in
// reverse-alphabetical order. Where several files map to one name only the
// first is kept and the rest are returned as skips.
func (p *Pipeline) pending(coll *feature.Collection) ([]string, []Skip, error) {
	files, err := p.fs.ReadDir(p.opts.InputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("list recordings in %s: %w", p.opts.InputDir, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	have := coll.Names()
	seen := make(map[string]string)
	var (
		names []string
		skips []Skip
	)
	for _, f := range files {
		if !track.IsTrackFile(f) {
			continue
		}
		name := track.NameFromFile(f)
		if _, ok := have[name]; ok {
			continue
		}
		if kept, ok := seen[name]; ok {
			skips = append(skips, Skip{Name: name, Err: &DuplicateNameError{File: f, Kept: kept}})
			continue
		}
		seen[name] = f
		names = append(names, f)
	}
	return names, skips, nil
}

// derive parses, simplifies and measures each file on a bounded pool.
// Every worker writes only its own slot.
func (p *Pipeline) derive(ctx context.Context, files []string) []derived {
	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	slots := make([]derived, len(files))
	throttle := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, file := range files {
		slots[i].name = track.NameFromFile(file)
		if ctx.Err() != nil {
			slots[i].err = ctx.Err()
			continue
		}
		throttle <- struct{}{}
		wg.Add(1)
		go func(i int, file string) {
			defer func() {
				wg.Done()
				<-throttle
			}()
			if err := ctx.Err(); err != nil {
				slots[i].err = err
				return
			}
			p.deriveOne(&slots[i], filepath.Join(p.opts.InputDir, file))
		}(i, file)
	}
	wg.Wait()
	return slots
}

func (p *Pipeline) deriveOne(d *derived, path string) {
	data, err := p.fs.ReadFile(path)
	if err != nil {
		d.err = &track.MalformedInputError{Name: d.name, Reason: "read file", Err: err}
		return
	}
	raw, err := track.Parse(d.name, data)
	if err != nil {
		d.err = err
		return
	}
	kept := simplify.Track(raw, p.opts.Epsilon)
	d.samples, d.metrics, d.err = trackstats.Compute(d.name, kept, p.opts.Metrics)
	if d.err != nil {
		return
	}
	d.date, d.err = p.trackDate(d.name, raw[0].Time)
}

// trackDate is the wall-clock start encoded in the file name, or the first
// fix in the configured zone for files that do not follow the convention.
func (p *Pipeline) trackDate(name string, first time.Time) (time.Time, error) {
	if t, ok := track.ParseNameTime(name); ok {
		return t, nil
	}
	tz := p.opts.Timezone
	if tz == "" {
		tz = units.DefaultTimezone
	}
	t, err := units.ConvertTime(first, tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("track %q date: %w", name, err)
	}
	return t, nil
}

// retryPending re-resolves stored place names that are still pending and
// returns how many were resolved. Features added in this run are not
// retried.
func (p *Pipeline) retryPending(ctx context.Context, coll *feature.Collection, added []string) (int, error) {
	fresh := make(map[string]struct{}, len(added))
	for _, n := range added {
		fresh[n] = struct{}{}
	}
	retried := 0
	for i, f := range coll.Features {
		if f.Properties.PlaceName != geocode.PendingPlaceName {
			continue
		}
		if _, ok := fresh[f.Properties.Name]; ok {
			continue
		}
		res, err := p.resolver.Resolve(ctx, f.Start())
		if err != nil {
			return retried, err
		}
		if res.Status == geocode.StatusPending {
			continue
		}
		retried++
		coll.Features[i] = f.WithPlaceName(res.PlaceName)
		monitoring.Logger().Info("resolved pending place name",
			zap.String("track", f.Properties.Name), zap.String("place", res.PlaceName))
	}
	return retried, nil
}
