// Package testutil provides shared test fixtures: synthetic recordings and
// the GPX documents that carry them.
package testutil

import (
	"fmt"
	"strings"
	"time"
)

// Fix is one synthetic GPS fix.
type Fix struct {
	Lat  float64
	Lon  float64
	Ele  float64
	Time time.Time
}

// Epoch is the default start of synthetic recordings.
var Epoch = time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

// StraightLine returns n fixes due north from (lat, lon), one every
// 0.001 degrees and one minute, with elevation rising by rise per fix.
func StraightLine(n int, lat, lon, ele, rise float64, start time.Time) []Fix {
	fixes := make([]Fix, n)
	for i := range fixes {
		fixes[i] = Fix{
			Lat:  lat + float64(i)*0.001,
			Lon:  lon,
			Ele:  ele + float64(i)*rise,
			Time: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return fixes
}

// GPXOptions controls which optional elements GPX renders.
type GPXOptions struct {
	OmitElevation bool
	OmitTime      bool
	// ExtraSegment appends a second segment that readers must ignore.
	ExtraSegment []Fix
}

// GPX renders fixes as a single-track GPX 1.1 document.
func GPX(name string, fixes []Fix, opts ...GPXOptions) []byte {
	var o GPXOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="testutil" xmlns="http://www.topografix.com/GPX/1/1">` + "\n")
	fmt.Fprintf(&b, "  <trk>\n    <name>%s</name>\n", name)
	writeSegment(&b, fixes, o)
	if len(o.ExtraSegment) > 0 {
		writeSegment(&b, o.ExtraSegment, o)
	}
	b.WriteString("  </trk>\n</gpx>\n")
	return []byte(b.String())
}

func writeSegment(b *strings.Builder, fixes []Fix, o GPXOptions) {
	b.WriteString("    <trkseg>\n")
	for _, f := range fixes {
		fmt.Fprintf(b, `      <trkpt lat="%.7f" lon="%.7f">`, f.Lat, f.Lon)
		if !o.OmitElevation {
			fmt.Fprintf(b, "<ele>%.2f</ele>", f.Ele)
		}
		if !o.OmitTime {
			fmt.Fprintf(b, "<time>%s</time>", f.Time.UTC().Format(time.RFC3339))
		}
		b.WriteString("</trkpt>\n")
	}
	b.WriteString("    </trkseg>\n")
}

// OSMapsRoute renders fixes the way OS Maps shares a planned route: GPX 1.1
// with a metadata time and bare track points.
func OSMapsRoute(metadataTime *time.Time, fixes []Fix) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="OS Maps" xmlns="http://www.topografix.com/GPX/1/1" xmlns:os="https://ordnancesurvey.co.uk/public/schema/route/0.1">` + "\n")
	if metadataTime != nil {
		fmt.Fprintf(&b, "  <metadata><time>%s</time></metadata>\n", metadataTime.UTC().Format(time.RFC3339))
	}
	b.WriteString("  <trk><name>Planned route</name><trkseg>\n")
	for _, f := range fixes {
		fmt.Fprintf(&b, `    <trkpt lat="%.7f" lon="%.7f"/>`+"\n", f.Lat, f.Lon)
	}
	b.WriteString("  </trkseg></trk>\n</gpx>\n")
	return []byte(b.String())
}
