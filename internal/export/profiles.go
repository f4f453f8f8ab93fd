package export

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trackmap/internal/feature"
)

// ProfileSize is the rendered image size in inches.
type ProfileSize struct {
	Width  float64
	Height float64
}

// DefaultProfileSize is 8 by 4 inches.
var DefaultProfileSize = ProfileSize{Width: 8, Height: 4}

// ProfileCeiling is the shared y-axis maximum for every profile: the
// highest elevation in the collection rounded up to the next 100 m.
func ProfileCeiling(c *feature.Collection) float64 {
	var highest float64
	for _, f := range c.Features {
		for _, s := range f.Geometry {
			highest = math.Max(highest, s.Elevation)
		}
	}
	if highest <= 0 {
		return 100
	}
	return math.Ceil(highest/100) * 100
}

// WriteProfiles renders an elevation against distance PNG for each feature
// that does not already have one, all on a common y scale. It returns the
// number of images written.
func (e *Exporter) WriteProfiles(c *feature.Collection, size ProfileSize) (int, error) {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultProfileSize
	}
	ceiling := ProfileCeiling(c)
	written := 0
	for _, f := range c.Features {
		path, err := e.trackPath(feature.ProfilesDir, f.Properties.Name, ".png")
		if err != nil {
			return written, err
		}
		if e.fs.Exists(path) {
			continue
		}
		data, err := RenderProfile(f, ceiling, size)
		if err != nil {
			return written, fmt.Errorf("profile for %q: %w", f.Properties.Name, err)
		}
		if err := e.write(path, data); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// RenderProfile draws f's elevation (m) against cumulative distance
// (miles) as a PNG with the y axis fixed to [0, ceiling].
func RenderProfile(f feature.Feature, ceiling float64, size ProfileSize) ([]byte, error) {
	pts := make(plotter.XYs, len(f.Geometry))
	for i, s := range f.Geometry {
		pts[i] = plotter.XY{X: s.CumulativeMiles, Y: s.Elevation}
	}

	p := plot.New()
	p.X.Label.Text = "Distance (miles)"
	p.Y.Label.Text = "Elevation (m)"
	p.Y.Min = 0
	p.Y.Max = ceiling
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	wt, err := p.WriterTo(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
