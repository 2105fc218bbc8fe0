// Package charts draws the dashboard figures with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"popdash/internal/models"
)

const (
	TrendTitle = "Population Growth Over Time"
	BarsTitle  = "Population by Province (2000, 2010, 2015, 2020)"
)

// ErrUnknownFormat is returned by Render for formats other than png and svg.
var ErrUnknownFormat = errors.New("unknown chart format")

// Formats lists the supported output formats.
var Formats = []string{"png", "svg"}

// ContentType returns the MIME type for a supported format.
func ContentType(format string) (string, error) {
	switch format {
	case "png":
		return "image/png", nil
	case "svg":
		return "image/svg+xml", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Segment is a run of consecutive years with a known population.
type Segment struct {
	Province string
	Points   plotter.XYs
}

// series groups tidy rows by province, keeping first-appearance order.
// Values are indexed like models.Years.
func series(rows []models.TidyRecord) ([]string, map[string]*[models.NumYears]models.Population) {
	var order []string
	byProvince := make(map[string]*[models.NumYears]models.Population)
	for _, r := range rows {
		i := r.Year.Index()
		if i < 0 {
			continue
		}
		vals, ok := byProvince[r.Province]
		if !ok {
			vals = new([models.NumYears]models.Population)
			byProvince[r.Province] = vals
			order = append(order, r.Province)
		}
		vals[i] = r.Population
	}
	return order, byProvince
}

// Segments splits each province's series at missing values so the line shows a gap.
func Segments(rows []models.TidyRecord) []Segment {
	order, byProvince := series(rows)

	var out []Segment
	for _, province := range order {
		var cur plotter.XYs
		for i, p := range byProvince[province] {
			if !p.Valid {
				if len(cur) > 0 {
					out = append(out, Segment{Province: province, Points: cur})
					cur = nil
				}
				continue
			}
			cur = append(cur, plotter.XY{X: float64(i), Y: p.Value})
		}
		if len(cur) > 0 {
			out = append(out, Segment{Province: province, Points: cur})
		}
	}
	return out
}

func yearLabels() []string {
	labels := make([]string, models.NumYears)
	for i, y := range models.Years {
		labels[i] = string(y)
	}
	return labels
}

func newPlot(title, xLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Population"
	p.Y.Min = 0
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// Trend draws population over the census years, one colored line per province.
func Trend(rows []models.TidyRecord, title string) (*plot.Plot, error) {
	p := newPlot(title, "Year")
	p.NominalX(yearLabels()...)
	p.X.Min, p.X.Max = -0.5, float64(models.NumYears)-0.5

	colors := make(map[string]color.Color)
	for _, seg := range Segments(rows) {
		c, seen := colors[seg.Province]
		if !seen {
			c = plotutil.Color(len(colors))
			colors[seg.Province] = c
		}

		line, points, err := plotter.NewLinePoints(seg.Points)
		if err != nil {
			return nil, fmt.Errorf("trend line for %s: %w", seg.Province, err)
		}
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(3)

		p.Add(line, points)
		if !seen {
			p.Legend.Add(seg.Province, line, points)
		}
	}
	return p, nil
}

// GroupedBars draws one group of bars per province with a bar per year.
func GroupedBars(rows []models.TidyRecord, title string) (*plot.Plot, error) {
	p := newPlot(title, "Province")

	order, byProvince := series(rows)
	if len(order) > 0 {
		p.NominalX(order...)
		p.X.Min, p.X.Max = -0.5, float64(len(order))-0.5
	}

	width := barWidth(len(order))
	for yi, year := range models.Years {
		c := plotutil.Color(yi)
		offset := vg.Length(float64(yi)-float64(models.NumYears-1)/2) * width

		var legend plot.Thumbnailer
		for _, run := range barRuns(order, byProvince, yi) {
			bars, err := plotter.NewBarChart(run.Values, width)
			if err != nil {
				return nil, fmt.Errorf("bars for %s: %w", year, err)
			}
			bars.XMin = float64(run.Start)
			bars.Offset = offset
			bars.Color = c
			bars.LineStyle.Width = vg.Length(0)
			p.Add(bars)
			if legend == nil {
				legend = bars
			}
		}
		if legend != nil {
			p.Legend.Add(string(year), legend)
		}
	}
	return p, nil
}

// barRun is a stretch of provinces, starting at group Start, with a known value for one year.
type barRun struct {
	Start  int
	Values plotter.Values
}

// barRuns splits year yi into runs of known values. A bar chart needs contiguous
// finite values, so a missing province leaves an empty slot between runs.
func barRuns(order []string, byProvince map[string]*[models.NumYears]models.Population, yi int) []barRun {
	var runs []barRun
	for start := 0; start < len(order); {
		if !byProvince[order[start]][yi].Valid {
			start++
			continue
		}
		run := barRun{Start: start}
		end := start
		for end < len(order) && byProvince[order[end]][yi].Valid {
			run.Values = append(run.Values, byProvince[order[end]][yi].Value)
			end++
		}
		runs = append(runs, run)
		start = end
	}
	return runs
}

// barWidth shrinks the bars as provinces are added so groups do not overlap.
func barWidth(groups int) vg.Length {
	switch {
	case groups <= 4:
		return vg.Points(18)
	case groups <= 12:
		return vg.Points(10)
	default:
		return vg.Points(4)
	}
}

// Render writes p to w in the given format and size (inches).
func Render(w io.Writer, p *plot.Plot, format string, width, height float64) error {
	if _, err := ContentType(format); err != nil {
		return err
	}
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
