package export

import (
	"bytes"
	"embed"
	"html/template"
	"sort"
	"strconv"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/banshee-data/trackmap/internal/feature"
)

//go:embed templates/*
var templateFS embed.FS

var galleryTemplate = template.Must(template.New("gallery.html.tmpl").
	Funcs(sprig.FuncMap()).
	Funcs(template.FuncMap{"band": DistanceBand}).
	ParseFS(templateFS, "templates/gallery.html.tmpl"))

// EarliestGalleryYear collects every older track under one heading.
const EarliestGalleryYear = 2020

// GalleryYear is one heading of the gallery page.
type GalleryYear struct {
	Year   int
	Title  string
	Tracks []feature.Properties
}

// DistanceBand buckets a walk by length in miles: 0 under 5, 1 under 6,
// 2 under 7 and 3 for anything longer.
func DistanceBand(miles float64) int {
	switch {
	case miles < 5:
		return 0
	case miles < 6:
		return 1
	case miles < 7:
		return 2
	default:
		return 3
	}
}

// GroupByYear sorts features into gallery headings, newest year first,
// keeping collection order within a year.
func GroupByYear(c *feature.Collection) []GalleryYear {
	byYear := map[int]*GalleryYear{}
	for _, f := range c.Features {
		y := trackYear(f.Properties)
		if y <= EarliestGalleryYear {
			y = EarliestGalleryYear
		}
		g, ok := byYear[y]
		if !ok {
			title := strconv.Itoa(y)
			if y == EarliestGalleryYear {
				title = strconv.Itoa(y) + " or Earlier"
			}
			g = &GalleryYear{Year: y, Title: title}
			byYear[y] = g
		}
		g.Tracks = append(g.Tracks, f.Properties)
	}
	years := make([]GalleryYear, 0, len(byYear))
	for _, g := range byYear {
		years = append(years, *g)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })
	return years
}

// trackYear reads the year from the date property, then from a name that
// starts with one. Unknown years sort with the oldest tracks.
func trackYear(p feature.Properties) int {
	if t, err := time.Parse(feature.DateLayout, p.Date); err == nil {
		return t.Year()
	}
	if len(p.Name) >= 4 {
		if y, err := strconv.Atoi(p.Name[:4]); err == nil {
			return y
		}
	}
	return 0
}

// RenderGallery renders the gallery page for c.
func RenderGallery(c *feature.Collection) ([]byte, error) {
	var buf bytes.Buffer
	if err := galleryTemplate.Execute(&buf, struct{ Years []GalleryYear }{GroupByYear(c)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGallery writes the gallery page into the output directory.
func (e *Exporter) WriteGallery(c *feature.Collection) error {
	data, err := RenderGallery(c)
	if err != nil {
		return err
	}
	p, err := e.path(GalleryFile)
	if err != nil {
		return err
	}
	return e.write(p, data)
}
