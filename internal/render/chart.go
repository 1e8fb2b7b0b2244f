package render

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/campuspulse/report-server/internal/report"
)

const (
	chartWidth  = 640
	chartHeight = 360
)

// renderChartPNG rasterizes one chart series for embedding into the PDF
// format. Returns nil bytes for an empty series so callers can skip the
// section the same way a missing series is skipped.
func renderChartPNG(kind report.ChartType, title string, series report.ChartSeries) ([]byte, error) {
	n := len(series.Labels)
	if len(series.Values) < n {
		n = len(series.Values)
	}
	if n == 0 {
		return nil, nil
	}

	values := make([]chart.Value, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, chart.Value{Label: series.Labels[i], Value: series.Values[i]})
	}

	// go-chart refuses a zero y-range, which an all-equal series (a flat
	// grade histogram, say) would otherwise produce. Pin the axis to
	// [0, max*1.1] so those render instead of erroring.
	yMax := 0.0
	for _, v := range values {
		if v.Value > yMax {
			yMax = v.Value
		}
	}
	if yMax <= 0 {
		yMax = 1
	}
	yRange := &chart.ContinuousRange{Min: 0, Max: yMax * 1.1}

	var buf bytes.Buffer
	switch kind {
	case report.ChartBar:
		bc := chart.BarChart{
			Title:    title,
			Width:    chartWidth,
			Height:   chartHeight,
			BarWidth: 40,
			Bars:     values,
			YAxis: chart.YAxis{
				Range: yRange,
			},
			Background: chart.Style{
				Padding: chart.Box{Top: 40},
			},
		}
		if err := bc.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render bar chart %q: %w", title, err)
		}

	case report.ChartPie:
		pc := chart.PieChart{
			Title:  title,
			Width:  chartHeight,
			Height: chartHeight,
			Values: values,
		}
		if err := pc.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render pie chart %q: %w", title, err)
		}

	case report.ChartLine:
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = float64(i + 1)
		}
		lc := chart.Chart{
			Title:  title,
			Width:  chartWidth,
			Height: chartHeight,
			YAxis: chart.YAxis{
				Range: yRange,
			},
			Series: []chart.Series{
				chart.ContinuousSeries{XValues: xs, YValues: series.Values[:n]},
			},
		}
		if err := lc.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render line chart %q: %w", title, err)
		}

	default:
		return nil, fmt.Errorf("unknown chart type %q", kind)
	}

	return buf.Bytes(), nil
}
