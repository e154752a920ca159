package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/mosaic.offsets/internal/offsets"
)

// RenderLayoutHTML writes an interactive scatter chart of the offsets.
func RenderLayoutHTML(w io.Writer, title string, res *offsets.Result, names []string) error {
	if res == nil || len(res.Offsets) == 0 {
		return ErrNoOffsets
	}

	lbls := labels(res, names)
	data := make([]opts.ScatterData, 0, len(res.Offsets))
	for i, o := range res.Offsets {
		data = append(data, opts.ScatterData{Name: lbls[i], Value: []interface{}{o.X, o.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("format=%s mode=%s scale=%.4f pa=%.4f rad exposures=%d", res.Format, res.Mode, res.Scale, res.PositionAngle, len(res.Offsets)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("reference", data[:1], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	scatter.AddSeries("exposures", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	return scatter.Render(w)
}
