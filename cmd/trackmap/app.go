package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/banshee-data/trackmap/internal/api"
	"github.com/banshee-data/trackmap/internal/config"
	"github.com/banshee-data/trackmap/internal/db"
	"github.com/banshee-data/trackmap/internal/export"
	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/fsutil"
	"github.com/banshee-data/trackmap/internal/geocode"
	"github.com/banshee-data/trackmap/internal/httputil"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/pipeline"
	"github.com/banshee-data/trackmap/internal/security"
	"github.com/banshee-data/trackmap/internal/stats"
	"github.com/banshee-data/trackmap/internal/track"
	"github.com/banshee-data/trackmap/internal/units"
	"github.com/banshee-data/trackmap/internal/version"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "JSON configuration file; built-in defaults are used when it does not exist",
		Value:   config.DefaultConfigPath,
	}
}

// newApp builds the CLI. in and out stand in for the terminal.
func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "trackmap",
		Usage:     "Derive map features and artifacts from GPX walk recordings",
		Version:   version.String(),
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:  "process",
				Usage: "Add new recordings to the feature collection and recolour it",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "concurrent track derivations (overrides config)"},
					&cli.BoolFlag{Name: "retry-pending", Usage: "re-resolve place names left pending by earlier runs"},
					&cli.BoolFlag{Name: "prompt", Usage: "ask for a place name when reverse geocoding fails"},
					&cli.BoolFlag{Name: "export", Usage: "write downloads, profiles, split files and the gallery afterwards"},
				},
				Action: func(c *cli.Context) error {
					return runProcess(c, in)
				},
			},
			{
				Name:   "export",
				Usage:  "Regenerate artifacts from the saved collection",
				Flags:  []cli.Flag{configFlag()},
				Action: runExport,
			},
			{
				Name:  "stats",
				Usage: "Summarise the collection for quiz night",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "start", Usage: "first day to include, YYYY-MM-DD"},
					&cli.StringFlag{Name: "end", Usage: "last day to include, YYYY-MM-DD"},
					&cli.StringFlag{Name: "json", Usage: "statistics JSON output path", Value: "walk_stats.json"},
					&cli.StringFlag{Name: "dashboard", Usage: "optional HTML chart page output path"},
				},
				Action: runStats,
			},
			{
				Name:  "export-db",
				Usage: "Mirror the collection into a SQLite database",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "db", Usage: "SQLite database path", Value: "trackmap.db"},
				},
				Action: runExportDB,
			},
			{
				Name:      "convert",
				Usage:     "Convert an OS Maps shared route into a recording",
				ArgsUsage: "<route.gpx>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.TimestampFlag{Name: "date", Usage: "day the route was walked", Layout: "2006-01-02", Required: true},
					&cli.StringFlag{Name: "out", Usage: "output directory (defaults to the configured input directory)"},
				},
				Action: runConvert,
			},
			{
				Name:  "serve",
				Usage: "Preview the generated site, collection and statistics over HTTP",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "listen", Usage: "HTTP listen address", Value: ":8080"},
					&cli.StringFlag{Name: "units", Usage: "distance units for /api/tracks (km or mi)", Value: units.KM},
				},
				Action: runServe,
			},
			{
				Name:  "version",
				Usage: "Show build information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintf(c.App.Writer, "trackmap %s\n", version.String())
					return err
				},
			},
		},
	}
}

// loadConfig reads the --config file, falling back to defaults when the
// default path is absent.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !c.IsSet("config") {
		monitoring.Logf("no config at %s, using defaults", path)
		return config.EmptyConfig(), nil
	}
	return config.LoadConfig(path)
}

// newGeocoder uses LocationIQ when an API key is in the environment or a
// .env file.
func newGeocoder(cfg *config.Config) geocode.Geocoder {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		monitoring.Logf("ignoring .env: %v", err)
	}
	key := os.Getenv(geocode.APIKeyEnv)
	if key == "" {
		monitoring.Logf("%s not set, place names will be left pending", geocode.APIKeyEnv)
		return geocode.Disabled{}
	}
	client := httputil.NewStandardClient(&http.Client{Timeout: cfg.GetGeocoderTimeout()})
	return geocode.NewLocationIQ(client, cfg.GetGeocoderURL(), key)
}

func runProcess(c *cli.Context, in io.Reader) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	var manual geocode.ManualFallback
	if c.Bool("prompt") {
		manual = geocode.PromptFallback(in, c.App.Writer)
	}
	resolver := geocode.NewResolver(newGeocoder(cfg), geocode.RetryPolicy{
		Attempts: cfg.GetGeocoderAttempts(),
		Backoff:  cfg.GetGeocoderBackoff(),
	}, manual)

	workers := cfg.GetWorkers()
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}
	fsys := fsutil.OSFileSystem{}
	p := pipeline.New(fsys, feature.NewStore(fsys, cfg.GetCollectionPath()), resolver, pipeline.Options{
		InputDir:     cfg.GetInputDir(),
		Epsilon:      cfg.GetSimplifyEpsilon(),
		Palette:      cfg.GetPalette(),
		Seed:         cfg.GetClusterSeed(),
		Timezone:     cfg.GetTimezone(),
		Site:         feature.Site{BaseURL: cfg.GetSiteBaseURL()},
		Workers:      workers,
		RetryPending: c.Bool("retry-pending"),
	})
	coll, report, err := p.Run(c.Context)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Added %d, skipped %d, %d tracks in %s\n", len(report.Added), len(report.Skipped), report.Total, cfg.GetCollectionPath())
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "  skipped %s: %v\n", s.Name, s.Err)
	}
	if report.Retried > 0 {
		fmt.Fprintf(w, "Resolved %d pending place names\n", report.Retried)
	}
	for _, name := range report.Pending {
		fmt.Fprintf(w, "  place name pending: %s\n", name)
	}

	if c.Bool("export") {
		return exportCollection(cfg, coll)
	}
	return nil
}

func loadCollection(cfg *config.Config) (*feature.Collection, error) {
	return feature.NewStore(fsutil.OSFileSystem{}, cfg.GetCollectionPath()).Load()
}

func runExport(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	coll, err := loadCollection(cfg)
	if err != nil {
		return err
	}
	return exportCollection(cfg, coll)
}

func exportCollection(cfg *config.Config, coll *feature.Collection) error {
	width, height := cfg.GetProfileSize()
	_, err := export.New(fsutil.OSFileSystem{}, cfg.GetOutputDir()).
		WriteAll(coll, export.ProfileSize{Width: width, Height: height})
	return err
}

func runStats(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	filter, err := stats.ParseFilter(c.String("start"), c.String("end"))
	if err != nil {
		return err
	}
	coll, err := loadCollection(cfg)
	if err != nil {
		return err
	}
	s, err := stats.Compute(coll, filter)
	if err != nil {
		return err
	}

	fsys := fsutil.OSFileSystem{}
	if err := writeWith(fsys, c.String("json"), func(w io.Writer) error { return stats.WriteJSON(w, s) }); err != nil {
		return err
	}
	if path := c.String("dashboard"); path != "" {
		if err := writeWith(fsys, path, func(w io.Writer) error { return stats.RenderDashboard(w, s) }); err != nil {
			return err
		}
	}
	return stats.WriteSummary(c.App.Writer, s, filter)
}

// writeWith renders into a buffer and replaces path atomically.
func writeWith(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", path)
	return nil
}

func runExportDB(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	coll, err := loadCollection(cfg)
	if err != nil {
		return err
	}
	database, err := db.NewDB(c.String("db"))
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.ExportFeatures(c.Context, coll, cfg.GetCollectionPath(), time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "Exported %d tracks to %s (run %s)\n", run.Tracks, c.String("db"), run.ID)
	return err
}

func runConvert(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("convert needs exactly one route file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	outDir := c.String("out")
	if outDir == "" {
		outDir = cfg.GetInputDir()
	}

	fsys := fsutil.OSFileSystem{}
	src, err := fsys.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	converted, err := track.ConvertOSMaps(src, time.Now())
	if err != nil {
		return err
	}
	dst, err := security.JoinWithin(outDir, track.ConvertedFileName(*c.Timestamp("date")))
	if err != nil {
		return err
	}
	if fsys.Exists(dst) {
		return fmt.Errorf("%s already exists", dst)
	}
	if err := fsutil.WriteFileAtomic(fsys, dst, converted, 0o644); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "Wrote %s\n", dst)
	return err
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !units.IsValid(c.String("units")) {
		return fmt.Errorf("unknown units %q", c.String("units"))
	}
	store := feature.NewStore(fsutil.OSFileSystem{}, cfg.GetCollectionPath())
	srv := api.NewServer(store, cfg.GetOutputDir(), c.String("units"))

	server := &http.Server{
		Addr:    c.String("listen"),
		Handler: api.LoggingMiddleware(srv.ServeMux()),
	}
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving %s on %s", cfg.GetOutputDir(), server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-c.Context.Done():
	}
	monitoring.Logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
