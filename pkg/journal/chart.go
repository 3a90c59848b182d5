package journal

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pashagolub/clubelo/pkg/elo"
)

var (
	chartBackground = drawing.ColorFromHex("ffffff")
	chartLine       = drawing.ColorFromHex("1f6f43")
	chartDots       = drawing.ColorFromHex("c9a227")
	chartText       = drawing.ColorFromHex("333333")
)

const chartPadding = 25.0

// RenderRatingChart draws a PNG line chart of a player's rating over their matches.
// The first point is the rating before the first recorded match.
func RenderRatingChart(playerID string, history []elo.HistoryEntry, w io.Writer) error {
	if len(history) == 0 {
		return renderNoDataPlaceholder(fmt.Sprintf("No rating history for %s", playerID), w)
	}

	xValues := make([]float64, 0, len(history)+1)
	yValues := make([]float64, 0, len(history)+1)

	start := history[0].Rating - history[0].Change
	xValues = append(xValues, 0)
	yValues = append(yValues, float64(start))

	low, high := start, start
	for i, entry := range history {
		xValues = append(xValues, float64(i+1))
		yValues = append(yValues, float64(entry.Rating))
		low = min(low, entry.Rating)
		high = max(high, entry.Rating)
	}

	series := chart.ContinuousSeries{
		Name:    playerID,
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: chartLine,
			StrokeWidth: 2,
			DotWidth:    4,
			DotColor:    chartDots,
		},
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Rating history: %s", playerID),
		Width:  800,
		Height: 400,
		Background: chart.Style{
			FillColor: chartBackground,
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		XAxis: chart.XAxis{
			Name: "Match",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
			Style: chart.Style{FontColor: chartText},
		},
		YAxis: chart.YAxis{
			Name:  "Rating",
			Style: chart.Style{FontColor: chartText},
			// a flat history would otherwise be a zero-height range
			Range: &chart.ContinuousRange{
				Min: float64(low) - chartPadding,
				Max: float64(high) + chartPadding,
			},
		},
		Series: []chart.Series{series},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render rating chart: %w", err)
	}
	return nil
}

func renderNoDataPlaceholder(msg string, w io.Writer) error {
	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Background: chart.Style{
			FillColor: chartBackground,
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		XAxis: chart.HideXAxis(),
		YAxis: chart.HideYAxis(),
		// go-chart refuses to render without a visible series
		Series: []chart.Series{chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
			Style:   chart.Style{StrokeColor: chartBackground},
		}},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(chartText)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render placeholder chart: %w", err)
	}
	return nil
}
