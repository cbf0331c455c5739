// Package report renders evaluation results as images.
package report

import (
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/demandcast/pkg/errors"
)

// Size is the side length of the square chart.
var Size = 5 * vg.Inch

// ScatterPlot builds an actual-vs-predicted chart with the y = x reference line.
// Points on the line are perfect predictions.
func ScatterPlot(actual, predicted []float64, title string) (*plot.Plot, error) {
	if len(actual) != len(predicted) {
		return nil, errors.NewDimensionError("report.ScatterPlot", len(actual), len(predicted), 0)
	}

	pts := make(plotter.XYs, 0, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		x, y := actual[i], predicted[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
		lo = math.Min(lo, math.Min(x, y))
		hi = math.Max(hi, math.Max(x, y))
	}
	if len(pts) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "report.ScatterPlot: no finite points")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Actual demand"
	p.Y.Label.Text = "Predicted demand"
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "report.ScatterPlot")
	}
	s.Color = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	p.Add(s)

	if hi == lo {
		hi = lo + 1
	}
	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, errors.Wrap(err, "report.ScatterPlot")
	}
	ref.Color = color.RGBA{R: 255, A: 255}
	ref.LineStyle.Width = vg.Points(1.5)
	ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ref)
	p.Legend.Add("y = x", ref)
	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}

// SaveScatter writes the chart to path. The image format follows the file
// extension (.png, .svg, .pdf, ...).
func SaveScatter(path string, actual, predicted []float64, title string) error {
	p, err := ScatterPlot(actual, predicted, title)
	if err != nil {
		return err
	}
	if err := p.Save(Size, Size, path); err != nil {
		return errors.Wrapf(err, "save plot to %s", path)
	}
	return nil
}

// WriteScatterPNG writes the chart as PNG to w.
func WriteScatterPNG(w io.Writer, actual, predicted []float64, title string) error {
	p, err := ScatterPlot(actual, predicted, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Size, Size, "png")
	if err != nil {
		return errors.Wrap(err, "report.WriteScatterPNG")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write png")
	}
	return nil
}
