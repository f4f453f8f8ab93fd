package stats

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackmap/internal/cluster"
	"github.com/banshee-data/trackmap/internal/feature"
	"github.com/banshee-data/trackmap/internal/track"
)

func walkFeature(name, date string, km, mi float64, duration string, ascent, descent int, lat, lon float64, place, grid string, points int) feature.Feature {
	return feature.Feature{
		Geometry: make([]track.Sample, points),
		Properties: feature.Properties{
			Name:       name,
			Date:       date,
			DistanceKm: km,
			DistanceMi: mi,
			Duration:   duration,
			Ascent:     ascent,
			Descent:    descent,
			CenterLat:  lat,
			CenterLon:  lon,
			PlaceName:  place,
			GridRef:    grid,
		},
	}
}

func walks() *feature.Collection {
	c := feature.NewCollection()
	c.Add(
		walkFeature("2024-06-01 @ 09-30-00", "2024-06-01T09:30:00", 10, 6.25, "2:00:00", 300, 280, 53.4, -1.8, "Edale", "SK 1", 3),
		walkFeature("2024-06-20 @ 10-00-00", "2024-06-20T10:00:00", 6, 3.75, "1:30:00", 500, 500, 53.2, -1.6, "Edale", "SK 2", 5),
		walkFeature("2023-12-31 @ 23-00-00", "2023-12-31T23:00:00", 4, 2.5, "0:40:00", 100, 120, 53.0, -2.0, "Hayfield", "SK 1", 2),
	)
	c.Assignments["2024-06-01 @ 09-30-00"] = cluster.Assignment{Label: 0, Colour: "red"}
	c.Assignments["2024-06-20 @ 10-00-00"] = cluster.Assignment{Label: 0, Colour: "red"}
	return c
}

func day(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCompute(t *testing.T) {
	t.Parallel()
	s, err := Compute(walks(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalWalks)
	assert.Equal(t, FilterInfo{OriginalWalks: 3, FilteredWalks: 3}, s.FilterInfo)
	assert.Equal(t, DistanceStats{Total: 20, Average: 6.67, Median: 6, Longest: 10, Shortest: 4, StdDev: 3.06}, s.DistanceKm)
	assert.Equal(t, 12.5, s.DistanceMiles.Total)
	assert.Equal(t, 3.75, s.DistanceMiles.Median)
	assert.Equal(t, ElevationStats{
		TotalAscent: 900, TotalDescent: 900,
		AverageAscent: 300, MaxAscent: 500, MinAscent: 100,
		AverageDescent: 300, MaxDescent: 500, MinDescent: 120,
	}, s.Elevation)
	assert.Equal(t, DurationStats{
		TotalHours: 4.17, AverageMinutes: 83.33, AverageHours: 1.39,
		LongestMinutes: 120, LongestHours: 2,
		ShortestMinutes: 40, ShortestHours: 0.67,
	}, s.Duration)
	assert.Equal(t, DateStats{FirstWalk: "2023-12-31", MostRecentWalk: "2024-06-20", DaysBetween: 172}, s.Dates)

	assert.Equal(t, []Count{{"Edale", 2}, {"Hayfield", 1}}, s.MostCommonPlaces)
	assert.Equal(t, 2, s.UniquePlaces)
	assert.Equal(t, 2, s.UniqueGridRefs)
	assert.Equal(t, []Count{{"red", 2}, {"Unknown", 1}}, s.Colours)
	require.NotNil(t, s.Clusters)
	assert.Equal(t, ClusterStats{UniqueClusters: 1, MostCommonCluster: 0, WalksPerCluster: map[string]int{"0": 2}}, *s.Clusters)

	assert.Equal(t, 53.4, s.Coordinates.NorthernmostLat)
	assert.Equal(t, 53.0, s.Coordinates.SouthernmostLat)
	assert.Equal(t, -1.6, s.Coordinates.EasternmostLon)
	assert.Equal(t, -2.0, s.Coordinates.WesternmostLon)
	assert.InDelta(t, 53.2, s.Coordinates.AverageLat, 1e-9)
	assert.InDelta(t, -1.8, s.Coordinates.AverageLon, 1e-9)

	assert.Equal(t, "2024-06-01 @ 09-30-00", s.Records.Longest.Name)
	assert.Equal(t, 10.0, s.Records.Longest.DistanceKm)
	assert.Equal(t, "2023-12-31 @ 23-00-00", s.Records.Shortest.Name)
	assert.Equal(t, 500, s.Records.HighestAscent.Ascent)
	assert.Equal(t, "2024-06-20 @ 10-00-00", s.Records.HighestAscent.Name)
	assert.Equal(t, "2:00:00", s.Records.LongestDuration.Duration)

	assert.Equal(t, PaceStats{AverageMinPerKm: 12.33, FastestMinPerKm: 10, SlowestMinPerKm: 15}, s.Pace)
	assert.Equal(t, map[string]float64{"2024-06": 16, "2023-12": 4}, s.MonthlyKm)
	assert.Equal(t, &MonthTotal{Month: "2024-06", Km: 16}, s.BusiestMonth)
	assert.Equal(t, PointStats{Total: 10, Average: 3.33, Max: 5, Min: 2}, s.Points)

	counts := make([]int, len(s.DistanceHistogram))
	for i, b := range s.DistanceHistogram {
		counts[i] = b.Walks
		assert.Equal(t, float64(i), b.Lower)
	}
	assert.Equal(t, []int{0, 0, 1, 1, 0, 0, 1}, counts)
}

func TestCompute_SingleWalk(t *testing.T) {
	t.Parallel()
	c := feature.NewCollection()
	c.Add(walkFeature("Kinder", "2022-01-01T10:00:00", 5, 3.11, "1:00:00", 200, 200, 53.4, -1.8, "Edale", "SK 1", 2))

	s, err := Compute(c, Filter{})
	require.NoError(t, err)
	assert.Zero(t, s.DistanceKm.StdDev)
	assert.Nil(t, s.Clusters)
	assert.Equal(t, []Count{{"Unknown", 1}}, s.Colours)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, s))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "distance_stats_km")
	assert.NotContains(t, decoded, "cluster_stats")
}

func TestCompute_Filter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"from start date", Filter{Start: day("2024-01-01")}, 2},
		{"end date includes the whole day", Filter{End: day("2024-06-01")}, 2},
		{"both bounds", Filter{Start: day("2024-06-01"), End: day("2024-06-01")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compute(walks(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.TotalWalks)
			assert.Equal(t, 3-tt.want, s.FilterInfo.WalksExcluded)
		})
	}

	_, err := Compute(walks(), Filter{Start: day("2025-01-01")})
	assert.ErrorIs(t, err, ErrNoWalks)
	_, err = Compute(feature.NewCollection(), Filter{})
	assert.ErrorIs(t, err, ErrNoWalks)
}

func TestCompute_InvalidProperties(t *testing.T) {
	t.Parallel()
	c := feature.NewCollection()
	c.Add(walkFeature("bad date", "01/02/2024", 5, 3, "1:00:00", 0, 0, 0, 0, "", "", 2))
	_, err := Compute(c, Filter{})
	assert.ErrorContains(t, err, "bad date")

	c = feature.NewCollection()
	c.Add(walkFeature("bad duration", "2024-01-02T10:00:00", 5, 3, "an hour", 0, 0, 0, 0, "", "", 2))
	_, err = Compute(c, Filter{})
	assert.ErrorContains(t, err, "invalid duration")
}

func TestParseFilter(t *testing.T) {
	t.Parallel()
	f, err := ParseFilter("", "")
	require.NoError(t, err)
	assert.Equal(t, "beginning to present", f.String())

	f, err = ParseFilter("2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 to 2024-12-31", f.String())

	_, err = ParseFilter("2024-13-01", "")
	assert.Error(t, err)
	_, err = ParseFilter("2024-06-01", "2024-01-01")
	assert.ErrorContains(t, err, "before start date")
}

func TestRenderDashboard(t *testing.T) {
	t.Parallel()
	s, err := Compute(walks(), Filter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, s))
	html := buf.String()
	assert.Contains(t, html, "Distance per month")
	assert.Contains(t, html, "Walks per colour")
	assert.Contains(t, html, "Walk distances")
	assert.Contains(t, html, "2024-06")
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()
	f := Filter{Start: day("2024-01-01")}
	s, err := Compute(walks(), f)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, s, f))
	out := buf.String()
	assert.Contains(t, out, "2024-01-01 to present")
	assert.Contains(t, out, "2 of 3")
	assert.Contains(t, out, "16.00 km")
	assert.Contains(t, out, "Edale (2 walks)")
}
