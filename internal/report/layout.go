// Package report draws the exposure layout of an offset run: where each
// exposure lands on the detector relative to the reference.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/mosaic.offsets/internal/offsets"
)

// ErrNoOffsets is returned when a result has nothing to draw.
var ErrNoOffsets = errors.New("no offsets to draw")

// Size of the PNG layout plot.
const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 6 * vg.Inch
)

var (
	referenceColor = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	exposureColor  = color.RGBA{R: 38, G: 139, B: 210, A: 255}
)

// labels returns one label per offset, falling back to the exposure index.
func labels(res *offsets.Result, names []string) []string {
	out := make([]string, len(res.Offsets))
	for i := range res.Offsets {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = fmt.Sprintf("%d", i)
		}
	}
	return out
}

// NewLayoutPlot builds a scatter plot of the offsets in pixels, reference
// exposure highlighted and every point labelled.
func NewLayoutPlot(title string, res *offsets.Result, names []string) (*plot.Plot, error) {
	if res == nil || len(res.Offsets) == 0 {
		return nil, ErrNoOffsets
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X offset (px)"
	p.Y.Label.Text = "Y offset (px)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(res.Offsets))
	for i, o := range res.Offsets {
		pts[i] = plotter.XY{X: o.X, Y: o.Y}
	}

	exposures, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	exposures.GlyphStyle.Color = exposureColor
	exposures.GlyphStyle.Shape = draw.CircleGlyph{}
	exposures.GlyphStyle.Radius = vg.Points(3)

	reference, err := plotter.NewScatter(pts[:1])
	if err != nil {
		return nil, err
	}
	reference.GlyphStyle.Color = referenceColor
	reference.GlyphStyle.Shape = draw.CrossGlyph{}
	reference.GlyphStyle.Radius = vg.Points(5)

	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels(res, names)})
	if err != nil {
		return nil, err
	}

	p.Add(exposures, reference, lbls)
	p.Legend.Add("exposures", exposures)
	p.Legend.Add("reference", reference)

	// Pad the axes so labels at the extremes stay inside the canvas.
	pad := padding(pts)
	p.X.Min -= pad
	p.X.Max += pad
	p.Y.Min -= pad
	p.Y.Max += pad
	return p, nil
}

// padding is 10% of the widest extent, at least one pixel.
func padding(pts plotter.XYs) float64 {
	xmin, xmax, ymin, ymax := plotter.XYRange(pts)
	return math.Max(1, 0.1*math.Max(xmax-xmin, ymax-ymin))
}

// SaveLayoutPNG writes the layout plot to path.
func SaveLayoutPNG(path, title string, res *offsets.Result, names []string) error {
	p, err := NewLayoutPlot(title, res, names)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save layout plot: %w", err)
	}
	return nil
}

// WriteLayoutPNG encodes the layout plot as PNG to w.
func WriteLayoutPNG(w io.Writer, title string, res *offsets.Result, names []string) error {
	p, err := NewLayoutPlot(title, res, names)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
