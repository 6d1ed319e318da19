// Package report renders per-mouse charts from recorded sessions.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when no session has a value to plot.
var ErrNoData = errors.New("no data to plot")

const dateFormat = "2006-01-02"

// chronological returns the started sessions oldest first.
func chronological(sessions []db.Session) []db.Session {
	started := make([]db.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.DateTimeStart != nil {
			started = append(started, s)
		}
	}
	sort.SliceStable(started, func(i, j int) bool {
		return started[i].DateTimeStart.Before(*started[j].DateTimeStart)
	})
	return started
}

// perfPoint is a percentage, or "-" which echarts draws as a gap.
func perfPoint(v db.NullFloat) opts.LineData {
	f, err := v.Number()
	if err != nil {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: 100 * f}
}

// PerformanceChart writes an HTML line chart of left and right performance
// per session for one mouse.
func PerformanceChart(w io.Writer, mouse string, sessions []db.Session) error {
	started := chronological(sessions)

	xs := make([]string, 0, len(started))
	left := make([]opts.LineData, 0, len(started))
	right := make([]opts.LineData, 0, len(started))
	plotted := 0
	for _, s := range started {
		xs = append(xs, s.DateTimeStart.Format(dateFormat))
		left = append(left, perfPoint(s.LeftPerf))
		right = append(right, perfPoint(s.RightPerf))
		if s.LeftPerf.Valid || s.RightPerf.Valid {
			plotted++
		}
	}
	if plotted == 0 {
		return ErrNoData
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: mouse + " performance", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: mouse, Subtitle: fmt.Sprintf("performance over %d sessions", len(started))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "% correct", Min: 0, Max: 100}),
	)
	gaps := charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false)})
	line.SetXAxis(xs).
		AddSeries(db.ColumnLabel("display_left_perf"), left, gaps).
		AddSeries(db.ColumnLabel("display_right_perf"), right, gaps)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render performance chart: %w", err)
	}
	return nil
}

// WeightPlot writes a PNG of body weight against session start time.
func WeightPlot(w io.Writer, mouse string, sessions []db.Session) error {
	pts := make(plotter.XYs, 0, len(sessions))
	for _, s := range chronological(sessions) {
		if s.Weight == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(s.DateTimeStart.Unix()), Y: *s.Weight})
	}
	if len(pts) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = mouse + " weight"
	p.X.Label.Text = "Session start"
	p.Y.Label.Text = db.ColumnLabel("user_data_weight") + " (g)"
	p.X.Tick.Marker = plot.TimeTicks{Format: dateFormat}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create weight line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to create weight points: %w", err)
	}
	scatter.Color = line.Color
	p.Add(scatter)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render weight plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write weight plot: %w", err)
	}
	return nil
}
