package stats

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteSummary prints the headline numbers as an aligned table.
func WriteSummary(w io.Writer, s *Stats, f Filter) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Date range", f.String()},
		{"Walks", fmt.Sprintf("%d of %d", s.FilterInfo.FilteredWalks, s.FilterInfo.OriginalWalks)},
		{"Total distance", fmt.Sprintf("%.2f km (%.2f miles)", s.DistanceKm.Total, s.DistanceMiles.Total)},
		{"Average distance", fmt.Sprintf("%.2f km", s.DistanceKm.Average)},
		{"Total ascent", fmt.Sprintf("%d m", s.Elevation.TotalAscent)},
		{"Total time", fmt.Sprintf("%.2f hours", s.Duration.TotalHours)},
		{"First walk", s.Dates.FirstWalk},
		{"Most recent walk", s.Dates.MostRecentWalk},
		{"Longest walk", fmt.Sprintf("%s (%.2f km)", s.Records.Longest.Name, s.Records.Longest.DistanceKm)},
		{"Biggest climb", fmt.Sprintf("%s (%d m)", s.Records.HighestAscent.Name, s.Records.HighestAscent.Ascent)},
		{"Unique places", fmt.Sprint(s.UniquePlaces)},
	}
	if s.BusiestMonth != nil {
		rows = append(rows, [2]string{"Busiest month", fmt.Sprintf("%s (%.2f km)", s.BusiestMonth.Month, s.BusiestMonth.Km)})
	}
	if len(s.MostCommonPlaces) > 0 {
		top := s.MostCommonPlaces[0]
		rows = append(rows, [2]string{"Favourite place", fmt.Sprintf("%s (%d walks)", top.Value, top.Count)})
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
