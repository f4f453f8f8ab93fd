package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/units"
)

// ExportRun records one mirror of the collection into the database.
type ExportRun struct {
	ID         string
	ExportedAt time.Time
	Source     string
	Tracks     int
}

// TrackRow is one stored track, without its geometry.
type TrackRow struct {
	Name         string
	RunID        string
	Date         string
	DistanceKm   float64
	Duration     time.Duration
	Ascent       int
	Descent      int
	PlaceName    string
	GridRef      string
	ClusterLabel sql.NullInt64
	Colour       sql.NullString
	Points       int
}

// ExportFeatures upserts every feature of c under a new run in a single
// transaction. Tracks that disappear from the collection keep their last
// exported row.
func (db *DB) ExportFeatures(ctx context.Context, c *feature.Collection, source string, now time.Time) (*ExportRun, error) {
	run := &ExportRun{ID: uuid.NewString(), ExportedAt: now.UTC(), Source: source, Tracks: len(c.Features)}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO export_runs (run_id, exported_at, source, track_count) VALUES (?, ?, ?, ?)`,
		run.ID, run.ExportedAt.Format(time.RFC3339), run.Source, run.Tracks,
	); err != nil {
		return nil, fmt.Errorf("failed to record export run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO tracks (
			name, run_id, date, distance_km, distance_mi, duration_s,
			ascent_m, descent_m, pace_min_per_km, center_lat, center_lon,
			place_name, gridref, cluster_label, colour, point_count, geometry_wkt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, f := range c.Features {
		p := f.Properties
		d, err := units.ParseDuration(p.Duration)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", p.Name, err)
		}
		geometry, err := wkt.Marshal(feature.LineString(f.Geometry))
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", p.Name, err)
		}
		var label sql.NullInt64
		var colour sql.NullString
		if a, ok := c.Assignments[p.Name]; ok {
			label = sql.NullInt64{Int64: int64(a.Label), Valid: true}
			colour = sql.NullString{String: a.Colour, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			p.Name, run.ID, p.Date, p.DistanceKm, p.DistanceMi, int64(d/time.Second),
			p.Ascent, p.Descent, p.PaceMinPerKm, p.CenterLat, p.CenterLon,
			p.PlaceName, p.GridRef, label, colour, len(f.Geometry), geometry,
		); err != nil {
			return nil, fmt.Errorf("failed to store track %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

// Tracks lists stored tracks, most recent date first.
func (db *DB) Tracks(ctx context.Context) ([]TrackRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			name, run_id, date, distance_km, duration_s, ascent_m, descent_m,
			place_name, gridref, cluster_label, colour, point_count
		FROM tracks ORDER BY date DESC, name DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackRow
	for rows.Next() {
		var r TrackRow
		var seconds int64
		if err := rows.Scan(&r.Name, &r.RunID, &r.Date, &r.DistanceKm, &seconds, &r.Ascent, &r.Descent,
			&r.PlaceName, &r.GridRef, &r.ClusterLabel, &r.Colour, &r.Points); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(seconds) * time.Second
		out = append(out, r)
	}
	return out, rows.Err()
}

// Geometry returns the stored WKT line for a track.
func (db *DB) Geometry(ctx context.Context, name string) (string, error) {
	var g string
	err := db.QueryRowContext(ctx, `SELECT geometry_wkt FROM tracks WHERE name = ?`, name).Scan(&g)
	return g, err
}

// ExportRuns lists runs oldest first.
func (db *DB) ExportRuns(ctx context.Context) ([]ExportRun, error) {
	rows, err := db.QueryContext(ctx, `SELECT run_id, exported_at, source, track_count FROM export_runs ORDER BY exported_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRun
	for rows.Next() {
		var r ExportRun
		var at string
		if err := rows.Scan(&r.ID, &at, &r.Source, &r.Tracks); err != nil {
			return nil, err
		}
		if r.ExportedAt, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
