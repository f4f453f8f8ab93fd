// Package stats summarises a feature collection for quiz night.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/units"
)

// ErrNoWalks is returned when the filter leaves nothing to summarise.
var ErrNoWalks = errors.New("no walks found in the specified date range")

// DateLayout is the layout of filter dates and reported days.
const DateLayout = "2006-01-02"

// Filter limits walks to an inclusive range of calendar days. Nil bounds
// are open.
type Filter struct {
	Start *time.Time
	End   *time.Time
}

// ParseFilter builds a Filter from YYYY-MM-DD strings; empty means open.
func ParseFilter(start, end string) (Filter, error) {
	var f Filter
	for _, b := range []struct {
		s   string
		dst **time.Time
	}{{start, &f.Start}, {end, &f.End}} {
		if b.s == "" {
			continue
		}
		t, err := time.Parse(DateLayout, b.s)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid date %q: %w", b.s, err)
		}
		*b.dst = &t
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return Filter{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return f, nil
}

func (f Filter) includes(t time.Time) bool {
	if f.Start != nil && t.Before(*f.Start) {
		return false
	}
	if f.End != nil && !t.Before(f.End.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func (f Filter) String() string {
	s, e := "beginning", "present"
	if f.Start != nil {
		s = f.Start.Format(DateLayout)
	}
	if f.End != nil {
		e = f.End.Format(DateLayout)
	}
	return s + " to " + e
}

type FilterInfo struct {
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	OriginalWalks int     `json:"original_walk_count"`
	FilteredWalks int     `json:"filtered_walk_count"`
	WalksExcluded int     `json:"walks_excluded"`
}

type DistanceStats struct {
	Total    float64 `json:"total"`
	Average  float64 `json:"average"`
	Median   float64 `json:"median"`
	Longest  float64 `json:"longest"`
	Shortest float64 `json:"shortest"`
	StdDev   float64 `json:"std_dev"`
}

type ElevationStats struct {
	TotalAscent    int     `json:"total_ascent"`
	TotalDescent   int     `json:"total_descent"`
	AverageAscent  float64 `json:"average_ascent"`
	MaxAscent      int     `json:"max_ascent"`
	MinAscent      int     `json:"min_ascent"`
	AverageDescent float64 `json:"average_descent"`
	MaxDescent     int     `json:"max_descent"`
	MinDescent     int     `json:"min_descent"`
}

type DurationStats struct {
	TotalHours      float64 `json:"total_hours"`
	AverageMinutes  float64 `json:"average_minutes"`
	AverageHours    float64 `json:"average_hours"`
	LongestMinutes  float64 `json:"longest_minutes"`
	LongestHours    float64 `json:"longest_hours"`
	ShortestMinutes float64 `json:"shortest_minutes"`
	ShortestHours   float64 `json:"shortest_hours"`
}

type DateStats struct {
	FirstWalk      string `json:"first_walk"`
	MostRecentWalk string `json:"most_recent_walk"`
	DaysBetween    int    `json:"days_between_first_and_last"`
}

// Count is a value with the number of walks that share it.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type ClusterStats struct {
	UniqueClusters    int            `json:"unique_clusters"`
	MostCommonCluster int            `json:"most_common_cluster"`
	WalksPerCluster   map[string]int `json:"walks_per_cluster"`
}

type CoordinateStats struct {
	NorthernmostLat float64 `json:"northernmost_lat"`
	SouthernmostLat float64 `json:"southernmost_lat"`
	EasternmostLon  float64 `json:"easternmost_lon"`
	WesternmostLon  float64 `json:"westernmost_lon"`
	AverageLat      float64 `json:"average_lat"`
	AverageLon      float64 `json:"average_lon"`
}

// Record identifies one walk and the value it holds a record for.
type Record struct {
	Name       string  `json:"name"`
	Date       string  `json:"date"`
	DistanceKm float64 `json:"distance_km,omitempty"`
	Ascent     int     `json:"ascent,omitempty"`
	Duration   string  `json:"duration,omitempty"`
}

type RecordWalks struct {
	Longest         Record `json:"longest"`
	Shortest        Record `json:"shortest"`
	HighestAscent   Record `json:"highest_ascent"`
	LongestDuration Record `json:"longest_duration"`
}

type PaceStats struct {
	AverageMinPerKm float64 `json:"average_min_per_km"`
	FastestMinPerKm float64 `json:"fastest_min_per_km"`
	SlowestMinPerKm float64 `json:"slowest_min_per_km"`
}

type MonthTotal struct {
	Month string  `json:"month"`
	Km    float64 `json:"km"`
}

type PointStats struct {
	Total   int     `json:"total_points"`
	Average float64 `json:"average_points_per_walk"`
	Max     int     `json:"max_points_in_walk"`
	Min     int     `json:"min_points_in_walk"`
}

// Bin is one bar of the distance histogram, [Lower, Upper) miles.
type Bin struct {
	Lower float64 `json:"lower_mi"`
	Upper float64 `json:"upper_mi"`
	Walks int     `json:"walks"`
}

// Stats is the full summary written as JSON.
type Stats struct {
	FilterInfo        FilterInfo         `json:"filter_info"`
	TotalWalks        int                `json:"total_walks"`
	DistanceKm        DistanceStats      `json:"distance_stats_km"`
	DistanceMiles     DistanceStats      `json:"distance_stats_miles"`
	Elevation         ElevationStats     `json:"elevation_stats"`
	Duration          DurationStats      `json:"duration_stats"`
	Dates             DateStats          `json:"date_stats"`
	MostCommonPlaces  []Count            `json:"most_common_places"`
	UniquePlaces      int                `json:"unique_places"`
	UniqueGridRefs    int                `json:"unique_grid_refs"`
	Clusters          *ClusterStats      `json:"cluster_stats,omitempty"`
	Coordinates       CoordinateStats    `json:"coordinate_stats"`
	Records           RecordWalks        `json:"record_walks"`
	Pace              PaceStats          `json:"pace_stats"`
	Colours           []Count            `json:"colour_distribution"`
	MonthlyKm         map[string]float64 `json:"monthly_distance_totals"`
	BusiestMonth      *MonthTotal        `json:"busiest_month,omitempty"`
	Points            PointStats         `json:"coordinate_points"`
	DistanceHistogram []Bin              `json:"distance_histogram_miles"`
}

// walk is one feature prepared for aggregation.
type walk struct {
	f        feature.Feature
	date     time.Time
	duration time.Duration
}

// Compute summarises the walks of c that pass filter.
func Compute(c *feature.Collection, filter Filter) (*Stats, error) {
	var walks []walk
	for _, f := range c.Features {
		date, err := time.Parse(feature.DateLayout, f.Properties.Date)
		if err != nil {
			return nil, fmt.Errorf("walk %q: invalid date: %w", f.Properties.Name, err)
		}
		if !filter.includes(date) {
			continue
		}
		d, err := units.ParseDuration(f.Properties.Duration)
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", f.Properties.Name, err)
		}
		walks = append(walks, walk{f: f, date: date, duration: d})
	}
	if len(walks) == 0 {
		return nil, ErrNoWalks
	}

	s := &Stats{TotalWalks: len(walks)}
	s.FilterInfo = FilterInfo{
		OriginalWalks: len(c.Features),
		FilteredWalks: len(walks),
		WalksExcluded: len(c.Features) - len(walks),
	}
	if filter.Start != nil {
		v := filter.Start.Format(DateLayout)
		s.FilterInfo.StartDate = &v
	}
	if filter.End != nil {
		v := filter.End.Format(DateLayout)
		s.FilterInfo.EndDate = &v
	}

	n := len(walks)
	km, mi := make([]float64, n), make([]float64, n)
	ascents, descents := make([]float64, n), make([]float64, n)
	minutes := make([]float64, n)
	lats, lons := make([]float64, n), make([]float64, n)
	for i, w := range walks {
		p := w.f.Properties
		km[i], mi[i] = p.DistanceKm, p.DistanceMi
		ascents[i] = float64(p.Ascent)
		descents[i] = math.Abs(float64(p.Descent))
		minutes[i] = w.duration.Minutes()
		lats[i], lons[i] = p.CenterLat, p.CenterLon
	}

	s.DistanceKm = distanceStats(km)
	s.DistanceMiles = distanceStats(mi)
	s.Elevation = ElevationStats{
		TotalAscent:    int(floats.Sum(ascents)),
		TotalDescent:   int(floats.Sum(descents)),
		AverageAscent:  units.Round2(stat.Mean(ascents, nil)),
		MaxAscent:      int(floats.Max(ascents)),
		MinAscent:      int(floats.Min(ascents)),
		AverageDescent: units.Round2(stat.Mean(descents, nil)),
		MaxDescent:     int(floats.Max(descents)),
		MinDescent:     int(floats.Min(descents)),
	}
	mean := stat.Mean(minutes, nil)
	s.Duration = DurationStats{
		TotalHours:      units.Round2(floats.Sum(minutes) / 60),
		AverageMinutes:  units.Round2(mean),
		AverageHours:    units.Round2(mean / 60),
		LongestMinutes:  units.Round2(floats.Max(minutes)),
		LongestHours:    units.Round2(floats.Max(minutes) / 60),
		ShortestMinutes: units.Round2(floats.Min(minutes)),
		ShortestHours:   units.Round2(floats.Min(minutes) / 60),
	}

	first, last := walks[0].date, walks[0].date
	for _, w := range walks[1:] {
		if w.date.Before(first) {
			first = w.date
		}
		if w.date.After(last) {
			last = w.date
		}
	}
	s.Dates = DateStats{
		FirstWalk:      first.Format(DateLayout),
		MostRecentWalk: last.Format(DateLayout),
		DaysBetween:    int(last.Truncate(24*time.Hour).Sub(first.Truncate(24*time.Hour)).Hours() / 24),
	}

	places, grids := newCounter(), map[string]struct{}{}
	colours, clusters := newCounter(), newCounter()
	for _, w := range walks {
		places.add(w.f.Properties.PlaceName)
		grids[w.f.Properties.GridRef] = struct{}{}
		a, ok := c.Assignments[w.f.Properties.Name]
		if !ok {
			colours.add("Unknown")
			continue
		}
		colours.add(a.Colour)
		clusters.add(strconv.Itoa(a.Label))
	}
	s.MostCommonPlaces = places.top(10)
	s.UniquePlaces = len(places.counts)
	s.UniqueGridRefs = len(grids)
	s.Colours = colours.top(0)
	if len(clusters.counts) > 0 {
		most, err := strconv.Atoi(clusters.top(1)[0].Value)
		if err != nil {
			return nil, err
		}
		s.Clusters = &ClusterStats{
			UniqueClusters:    len(clusters.counts),
			MostCommonCluster: most,
			WalksPerCluster:   clusters.counts,
		}
	}

	s.Coordinates = CoordinateStats{
		NorthernmostLat: floats.Max(lats),
		SouthernmostLat: floats.Min(lats),
		EasternmostLon:  floats.Max(lons),
		WesternmostLon:  floats.Min(lons),
		AverageLat:      round(stat.Mean(lats, nil), 6),
		AverageLon:      round(stat.Mean(lons, nil), 6),
	}
	s.Records = records(walks)
	s.Pace = paceStats(walks)
	s.MonthlyKm, s.BusiestMonth = monthly(walks)
	s.Points = pointStats(walks)
	s.DistanceHistogram = histogram(mi)
	return s, nil
}

func distanceStats(x []float64) DistanceStats {
	d := DistanceStats{
		Total:    units.Round2(floats.Sum(x)),
		Average:  units.Round2(stat.Mean(x, nil)),
		Median:   units.Round2(median(x)),
		Longest:  units.Round2(floats.Max(x)),
		Shortest: units.Round2(floats.Min(x)),
	}
	if len(x) > 1 {
		d.StdDev = units.Round2(stat.StdDev(x, nil))
	}
	return d
}

// median averages the two middle values of an even-length sample.
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// records picks the first walk holding each record.
func records(walks []walk) RecordWalks {
	longest, shortest, climb, slowest := 0, 0, 0, 0
	for i, w := range walks {
		p := w.f.Properties
		if p.DistanceKm > walks[longest].f.Properties.DistanceKm {
			longest = i
		}
		if p.DistanceKm < walks[shortest].f.Properties.DistanceKm {
			shortest = i
		}
		if p.Ascent > walks[climb].f.Properties.Ascent {
			climb = i
		}
		if w.duration > walks[slowest].duration {
			slowest = i
		}
	}
	rec := func(i int) Record {
		p := walks[i].f.Properties
		return Record{Name: p.Name, Date: p.Date}
	}
	r := RecordWalks{Longest: rec(longest), Shortest: rec(shortest), HighestAscent: rec(climb), LongestDuration: rec(slowest)}
	r.Longest.DistanceKm = walks[longest].f.Properties.DistanceKm
	r.Shortest.DistanceKm = walks[shortest].f.Properties.DistanceKm
	r.HighestAscent.Ascent = walks[climb].f.Properties.Ascent
	r.LongestDuration.Duration = walks[slowest].f.Properties.Duration
	return r
}

func paceStats(walks []walk) PaceStats {
	var paces []float64
	for _, w := range walks {
		if km := w.f.Properties.DistanceKm; km > 0 {
			paces = append(paces, w.duration.Minutes()/km)
		}
	}
	if len(paces) == 0 {
		return PaceStats{}
	}
	return PaceStats{
		AverageMinPerKm: units.Round2(stat.Mean(paces, nil)),
		FastestMinPerKm: units.Round2(floats.Min(paces)),
		SlowestMinPerKm: units.Round2(floats.Max(paces)),
	}
}

// monthly totals km per YYYY-MM. The busiest month is the earliest of
// any tied for the most distance.
func monthly(walks []walk) (map[string]float64, *MonthTotal) {
	totals := map[string]float64{}
	for _, w := range walks {
		totals[w.date.Format("2006-01")] += w.f.Properties.DistanceKm
	}
	months := make([]string, 0, len(totals))
	for m, km := range totals {
		totals[m] = units.Round2(km)
		months = append(months, m)
	}
	sort.Strings(months)
	var busiest *MonthTotal
	for _, m := range months {
		if busiest == nil || totals[m] > busiest.Km {
			busiest = &MonthTotal{Month: m, Km: totals[m]}
		}
	}
	return totals, busiest
}

func pointStats(walks []walk) PointStats {
	ps := PointStats{Min: math.MaxInt}
	for _, w := range walks {
		n := len(w.f.Geometry)
		ps.Total += n
		ps.Max = max(ps.Max, n)
		ps.Min = min(ps.Min, n)
	}
	ps.Average = units.Round2(float64(ps.Total) / float64(len(walks)))
	return ps
}

// histogram counts walks in one-mile bins from zero past the longest.
// Distances are never negative.
func histogram(miles []float64) []Bin {
	sorted := append([]float64(nil), miles...)
	sort.Float64s(sorted)
	top := math.Floor(math.Max(sorted[len(sorted)-1], 0)) + 1
	dividers := make([]float64, int(top)+1)
	for i := range dividers {
		dividers[i] = float64(i)
	}
	counts := stat.Histogram(nil, dividers, sorted, nil)
	bins := make([]Bin, len(counts))
	for i, c := range counts {
		bins[i] = Bin{Lower: float64(i), Upper: float64(i + 1), Walks: int(c)}
	}
	return bins
}

// counter tallies strings and ranks them by count, ties in first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter { return &counter{counts: map[string]int{}} }

func (c *counter) add(v string) {
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// top returns the n most common values, or all of them when n is 0.
func (c *counter) top(n int) []Count {
	out := make([]Count, len(c.order))
	for i, v := range c.order {
		out[i] = Count{Value: v, Count: c.counts[v]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// WriteJSON writes s indented by two spaces.
func WriteJSON(w io.Writer, s *Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
