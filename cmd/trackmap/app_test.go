package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackmap/internal/db"
	"github.com/banshee-data/trackmap/internal/export"
	"github.com/banshee-data/trackmap/internal/geocode"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/testutil"
	"github.com/banshee-data/trackmap/internal/track"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// workspace writes a config rooted in a temp dir and two recordings.
func workspace(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfg := map[string]interface{}{
		"input_dir":       filepath.Join(dir, "orig_gpx_files"),
		"collection_path": filepath.Join(dir, "moorwalkers.geojson"),
		"output_dir":      filepath.Join(dir, "site"),
		"workers":         2,
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	cfgPath = filepath.Join(dir, "trackmap.json")
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "orig_gpx_files"), 0o755))
	for i, name := range []string{"2023-05-01 @ 10-00-00", "2024-02-03 @ 09-00-00"} {
		fixes := testutil.StraightLine(8, 53.3+float64(i)*0.05, -1.8, 200, 15, testutil.Epoch)
		path := filepath.Join(dir, "orig_gpx_files", name+track.Extension)
		require.NoError(t, os.WriteFile(path, testutil.GPX(name, fixes), 0o644))
	}
	return dir, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(strings.NewReader(""), &out).RunContext(context.Background(), append([]string{"trackmap"}, args...))
	return out.String(), err
}

func TestProcessAndExport(t *testing.T) {
	t.Setenv(geocode.APIKeyEnv, "")
	dir, cfg := workspace(t)

	out, err := run(t, "process", "--config", cfg, "--export")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2, skipped 0, 2 tracks")
	assert.Contains(t, out, "place name pending: 2024-02-03 @ 09-00-00")

	assert.FileExists(t, filepath.Join(dir, "moorwalkers.geojson"))
	assert.FileExists(t, filepath.Join(dir, "site", export.ManifestFile))
	assert.FileExists(t, filepath.Join(dir, "site", export.MarkersFile))
	assert.FileExists(t, filepath.Join(dir, "site", export.GalleryFile))
	assert.FileExists(t, filepath.Join(dir, "site", "track_downloads", "2023-05-01_10-00-00.gpx"))
	assert.FileExists(t, filepath.Join(dir, "site", "elevation_profiles", "2023-05-01_10-00-00.png"))

	out, err = run(t, "process", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 0, skipped 0, 2 tracks")
}

func TestStatsCommand(t *testing.T) {
	t.Setenv(geocode.APIKeyEnv, "")
	dir, cfg := workspace(t)
	_, err := run(t, "process", "--config", cfg)
	require.NoError(t, err)

	jsonPath := filepath.Join(dir, "out", "walk_stats.json")
	dashPath := filepath.Join(dir, "out", "dashboard.html")
	out, err := run(t, "stats", "--config", cfg, "--start", "2024-01-01", "--json", jsonPath, "--dashboard", dashPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 1, decoded["total_walks"])
	assert.FileExists(t, dashPath)

	_, err = run(t, "stats", "--config", cfg, "--start", "2030-01-01", "--json", jsonPath)
	assert.ErrorContains(t, err, "no walks")
	_, err = run(t, "stats", "--config", cfg, "--start", "January")
	assert.Error(t, err)
}

func TestExportDBCommand(t *testing.T) {
	t.Setenv(geocode.APIKeyEnv, "")
	dir, cfg := workspace(t)
	_, err := run(t, "process", "--config", cfg)
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "trackmap.db")
	out, err := run(t, "export-db", "--config", cfg, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 tracks")

	database, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	rows, err := database.Tracks(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-02-03 @ 09-00-00", rows[0].Name)
	assert.True(t, rows[0].Colour.Valid)
}

func TestConvertCommand(t *testing.T) {
	dir, cfg := workspace(t)
	route := filepath.Join(dir, "planned.gpx")
	require.NoError(t, os.WriteFile(route, testutil.OSMapsRoute(nil, testutil.StraightLine(4, 53.3, -1.8, 0, 0, testutil.Epoch)), 0o644))

	out, err := run(t, "convert", "--config", cfg, "--date", "2024-03-09", route)
	require.NoError(t, err)
	want := filepath.Join(dir, "orig_gpx_files", "2024-03-09 @ 18-00-00.gpx")
	assert.Contains(t, out, want)
	assert.FileExists(t, want)

	_, err = run(t, "convert", "--config", cfg, "--date", "2024-03-09", route)
	assert.ErrorContains(t, err, "already exists")
	_, err = run(t, "convert", "--config", cfg, "--date", "2024-03-09")
	assert.ErrorContains(t, err, "exactly one route file")
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"workers": 0}`), 0o644))

	_, err := run(t, "export", "--config", bad)
	assert.ErrorContains(t, err, "invalid configuration")
	_, err = run(t, "export", "--config", filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to stat config file")
}

func TestServeCommand(t *testing.T) {
	_, cfg := workspace(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := newApp(strings.NewReader(""), &out).RunContext(ctx, []string{"trackmap", "serve", "--config", cfg, "--listen", "127.0.0.1:0"})
	assert.NoError(t, err, "shuts down cleanly when the context ends")

	_, err = run(t, "serve", "--config", cfg, "--units", "leagues")
	assert.ErrorContains(t, err, "unknown units")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("trackmap %s\n", "dev (git unknown, built unknown)"), out)
}
