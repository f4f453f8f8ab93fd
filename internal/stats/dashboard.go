package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderDashboard writes an HTML page charting monthly distance, the
// colour mix and the distance histogram.
func RenderDashboard(w io.Writer, s *Stats) error {
	page := components.NewPage()
	page.PageTitle = "Walk statistics"
	page.AddCharts(monthlyChart(s), colourChart(s), histogramChart(s))
	return page.Render(w)
}

func monthlyChart(s *Stats) *charts.Bar {
	months := make([]string, 0, len(s.MonthlyKm))
	for m := range s.MonthlyKm {
		months = append(months, m)
	}
	sort.Strings(months)
	y := make([]opts.BarData, len(months))
	for i, m := range months {
		y[i] = opts.BarData{Value: s.MonthlyKm[m]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distance per month", Subtitle: fmt.Sprintf("%d walks, %.2f km", s.TotalWalks, s.DistanceKm.Total)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "km"}),
	)
	bar.SetXAxis(months).AddSeries("km", y)
	return bar
}

func colourChart(s *Stats) *charts.Pie {
	data := make([]opts.PieData, len(s.Colours))
	for i, c := range s.Colours {
		data[i] = opts.PieData{Name: c.Value, Value: c.Count}
		if c.Value != "Unknown" {
			data[i].ItemStyle = &opts.ItemStyle{Color: c.Value}
		}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Walks per colour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("colours", data)
	return pie
}

func histogramChart(s *Stats) *charts.Bar {
	x := make([]string, len(s.DistanceHistogram))
	y := make([]opts.BarData, len(s.DistanceHistogram))
	for i, b := range s.DistanceHistogram {
		x[i] = fmt.Sprintf("%g-%g", b.Lower, b.Upper)
		y[i] = opts.BarData{Value: b.Walks}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Walk distances", Subtitle: "miles"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("walks", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}
