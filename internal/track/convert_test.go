package track

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/banshee-data/trackmap/internal/testutil"
)

func TestConvertOSMaps(t *testing.T) {
	t.Parallel()
	planned := time.Date(2024, 2, 3, 8, 15, 30, 0, time.UTC)
	fixes := testutil.StraightLine(3, 53.1, -1.6, 0, 0, planned)

	out, err := ConvertOSMaps(testutil.OSMapsRoute(&planned, fixes), time.Now())
	if err != nil {
		t.Fatalf("ConvertOSMaps() error = %v", err)
	}

	doc, err := gpx.ParseBytes(out)
	if err != nil {
		t.Fatalf("output is not GPX: %v", err)
	}
	if doc.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", doc.Version)
	}
	if len(doc.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d, want 1", len(doc.Tracks))
	}
	if doc.Tracks[0].Name != "2024-02-03 @ 08-15-30" {
		t.Errorf("track name = %q", doc.Tracks[0].Name)
	}

	points, err := Parse("converted", out)
	if err != nil {
		t.Fatalf("converted output is not readable by Parse: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	for i, p := range points {
		if math.Abs(p.Latitude-fixes[i].Lat) > 1e-7 {
			t.Errorf("point %d latitude = %v, want %v", i, p.Latitude, fixes[i].Lat)
		}
		if p.Elevation != 0 {
			t.Errorf("point %d elevation = %v, want 0", i, p.Elevation)
		}
		if !planned.Equal(p.Time) {
			t.Errorf("point %d time = %v, want %v", i, p.Time, planned)
		}
	}
}

func TestConvertOSMaps_NoMetadataTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	out, err := ConvertOSMaps(testutil.OSMapsRoute(nil, testutil.StraightLine(2, 53, -1, 0, 0, now)), now)
	if err != nil {
		t.Fatalf("ConvertOSMaps() error = %v", err)
	}

	points, err := Parse("converted", out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !now.Equal(points[0].Time) {
		t.Errorf("time = %v, want %v", points[0].Time, now)
	}
}

func TestConvertOSMaps_Errors(t *testing.T) {
	t.Parallel()
	if _, err := ConvertOSMaps([]byte("<nope"), time.Now()); err == nil {
		t.Error("expected an error for invalid XML")
	}
	if _, err := ConvertOSMaps(testutil.OSMapsRoute(nil, nil), time.Now()); err == nil || !strings.Contains(err.Error(), "no track points") {
		t.Errorf("err = %v, want no track points", err)
	}
}

func TestConvertedFileName(t *testing.T) {
	t.Parallel()
	if got := ConvertedFileName(time.Date(2024, 2, 3, 0, 0, 0, 0, time.Local)); got != "2024-02-03 @ 18-00-00.gpx" {
		t.Errorf("ConvertedFileName() = %q", got)
	}
}
