// Package plot renders gaze traces and detected fixation events as
// charts, either as self-contained ECharts HTML pages or as PNG files.
package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Yanis750/pymovements/internal/events"
	"github.com/Yanis750/pymovements/internal/gaze"
)

// viridis palette used for visual maps across all charts.
var viridisColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

const defaultMaxPoints = 8000

// TraceOptions controls the scatter rendering of a gaze trace.
type TraceOptions struct {
	Title     string
	Subtitle  string
	MaxPoints int
}

// RenderTraceHTML writes a scatter chart (HTML) of the gaze positions,
// colored by timestep so the scan path direction is visible. Missing
// samples are skipped. Points are downsampled by stride to stay within
// MaxPoints.
func RenderTraceHTML(w io.Writer, timesteps []int64, points []gaze.Point, topts TraceOptions) error {
	if len(timesteps) != len(points) {
		return fmt.Errorf("timesteps and points length mismatch: %d != %d", len(timesteps), len(points))
	}

	maxPoints := topts.MaxPoints
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	stride := 1
	if len(points) > maxPoints {
		stride = int(math.Ceil(float64(len(points)) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, len(points)/stride+1)
	maxAbs := 0.0
	var maxTS int64
	missing := 0
	for i := 0; i < len(points); i += stride {
		p := points[i]
		if p.IsMissing() {
			missing++
			continue
		}
		if math.Abs(p.X) > maxAbs {
			maxAbs = math.Abs(p.X)
		}
		if math.Abs(p.Y) > maxAbs {
			maxAbs = math.Abs(p.Y)
		}
		if timesteps[i] > maxTS {
			maxTS = timesteps[i]
		}
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, timesteps[i]}})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxTS == 0 {
		maxTS = 1
	}

	title := topts.Title
	if title == "" {
		title = "Gaze Trace"
	}
	subtitle := topts.Subtitle
	if subtitle == "" {
		subtitle = fmt.Sprintf("points=%d stride=%d missing=%d", len(data), stride, missing)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (dva)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (dva)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxTS),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("gaze", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	return scatter.Render(w)
}

// RenderEventsHTML writes a bar chart (HTML) of event durations plus a
// scatter of fixation centroids for the given trace.
func RenderEventsHTML(w io.Writer, timesteps []int64, points []gaze.Point, frame *events.Frame, title string) error {
	if title == "" {
		title = "Detected Events"
	}

	evs := frame.Events()
	x := make([]string, 0, len(evs))
	durations := make([]opts.BarData, 0, len(evs))
	for i, ev := range evs {
		x = append(x, fmt.Sprintf("%s %d", ev.Name, i))
		durations = append(durations, opts.BarData{Value: ev.Duration()})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("events=%d", len(evs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Duration (samples)"}),
	)
	bar.SetXAxis(x).
		AddSeries("duration", durations,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	if len(timesteps) == len(points) && len(points) > 0 {
		if centroids := centroidScatter(timesteps, points, evs); centroids != nil {
			page.AddCharts(centroids)
		}
	}

	return page.Render(w)
}

// centroidScatter builds a scatter of per-event centroids sized by
// duration. Returns nil when no event has any valid sample.
func centroidScatter(timesteps []int64, points []gaze.Point, evs []events.Event) *charts.Scatter {
	index := make(map[int64]int, len(timesteps))
	for i, ts := range timesteps {
		index[ts] = i
	}

	data := make([]opts.ScatterData, 0, len(evs))
	maxAbs := 0.0
	maxDur := int64(1)
	for _, ev := range evs {
		sumX, sumY := 0.0, 0.0
		n := 0
		for ts := ev.Onset; ts <= ev.Offset; ts++ {
			i, ok := index[ts]
			if !ok || points[i].IsMissing() {
				continue
			}
			sumX += points[i].X
			sumY += points[i].Y
			n++
		}
		if n == 0 {
			continue
		}
		cx, cy := sumX/float64(n), sumY/float64(n)
		if math.Abs(cx) > maxAbs {
			maxAbs = math.Abs(cx)
		}
		if math.Abs(cy) > maxAbs {
			maxAbs = math.Abs(cy)
		}
		if ev.Duration() > maxDur {
			maxDur = ev.Duration()
		}
		data = append(data, opts.ScatterData{Value: []interface{}{cx, cy, ev.Duration()}})
	}
	if len(data) == 0 {
		return nil
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Fixation Centroids", Subtitle: fmt.Sprintf("count=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (dva)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (dva)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxDur),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("centroids", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	return scatter
}
