// Package export writes the site artifacts derived from a feature
// collection: GPX downloads, elevation profiles, per-track GeoJSON with
// its manifest and start markers, and the gallery page.
package export

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/fsutil"
	"github.com/banshee-data/trackmap/internal/monitoring"
	"github.com/banshee-data/trackmap/internal/security"
)

// Artifact locations relative to the output directory.
const (
	TracksDir    = "tracks"
	ManifestFile = "tracks_manifest.json"
	MarkersFile  = "track_markers.geojson"
	GalleryFile  = "tracks_content.html"
)

// Exporter writes artifacts beneath one output directory.
type Exporter struct {
	fs  fsutil.FileSystem
	dir string
}

// New returns an exporter rooted at dir.
func New(fsys fsutil.FileSystem, dir string) *Exporter {
	return &Exporter{fs: fsys, dir: dir}
}

// Summary counts what WriteAll produced.
type Summary struct {
	Downloads int
	Profiles  int
	Tracks    int
	Markers   int
}

// WriteAll produces every artifact for c.
func (e *Exporter) WriteAll(c *feature.Collection, size ProfileSize) (Summary, error) {
	var s Summary
	var err error
	if s.Profiles, err = e.WriteProfiles(c, size); err != nil {
		return s, err
	}
	if s.Downloads, err = e.WriteDownloads(c); err != nil {
		return s, err
	}
	split, err := e.SplitFeatures(c)
	if err != nil {
		return s, err
	}
	s.Tracks, s.Markers = len(split.Manifest), split.Markers
	if err := e.WriteGallery(c); err != nil {
		return s, err
	}
	monitoring.Logf("exported %d downloads, %d new profiles, %d track files, %d markers to %s",
		s.Downloads, s.Profiles, s.Tracks, s.Markers, e.dir)
	return s, nil
}

// trackPath is the path of name's artifact with extension ext in sub.
func (e *Exporter) trackPath(sub, name, ext string) (string, error) {
	return e.path(filepath.Join(sub, security.SafeName(name)+ext))
}

func (e *Exporter) path(rel string) (string, error) {
	p, err := security.JoinWithin(e.dir, rel)
	if err != nil {
		return "", fmt.Errorf("output path: %w", err)
	}
	return p, nil
}

func (e *Exporter) write(path string, data []byte) error {
	if err := fsutil.WriteFileAtomic(e.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
