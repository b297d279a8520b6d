package plot

import (
	"fmt"
	"image/color"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Yanis750/pymovements/internal/events"
	"github.com/Yanis750/pymovements/internal/fsutil"
	"github.com/Yanis750/pymovements/internal/gaze"
	"github.com/Yanis750/pymovements/internal/security"
)

// TracePlotter writes PNG time series plots of a gaze trace with the
// detected events overlaid as highlighted segments.
type TracePlotter struct {
	outputDir string
	fs        fsutil.FileSystem
}

// NewTracePlotter creates a plotter writing into outputDir, creating
// the directory if needed.
func NewTracePlotter(outputDir string) (*TracePlotter, error) {
	return NewTracePlotterFS(outputDir, fsutil.OSFileSystem{})
}

// NewTracePlotterFS is NewTracePlotter with an explicit filesystem,
// letting tests render into a fsutil.MemoryFileSystem.
func NewTracePlotterFS(outputDir string, filesystem fsutil.FileSystem) (*TracePlotter, error) {
	if err := filesystem.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &TracePlotter{outputDir: outputDir, fs: filesystem}, nil
}

// OutputDir returns the directory PNG files are written to.
func (tp *TracePlotter) OutputDir() string {
	return tp.outputDir
}

// SaveTrace writes two PNG files, <name>_x.png and <name>_y.png, each
// holding one coordinate over time with event spans drawn on top.
// Missing samples break the trace line. Returns the written file paths.
func (tp *TracePlotter) SaveTrace(name string, timesteps []int64, points []gaze.Point, frame *events.Frame) ([]string, error) {
	if len(timesteps) != len(points) {
		return nil, fmt.Errorf("timesteps and points length mismatch: %d != %d", len(timesteps), len(points))
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("empty trace")
	}

	var files []string
	for _, axis := range []struct {
		suffix string
		value  func(gaze.Point) float64
	}{
		{"x", func(p gaze.Point) float64 { return p.X }},
		{"y", func(p gaze.Point) float64 { return p.Y }},
	} {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s - %s position", name, axis.suffix)
		p.X.Label.Text = "Timestep"
		p.Y.Label.Text = fmt.Sprintf("%s (dva)", axis.suffix)

		// Trace line split at missing samples.
		for _, seg := range validSegments(points) {
			pts := make(plotter.XYs, 0, seg.end-seg.start)
			for i := seg.start; i < seg.end; i++ {
				pts = append(pts, plotter.XY{X: float64(timesteps[i]), Y: axis.value(points[i])})
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return files, err
			}
			line.Color = color.RGBA{R: 128, G: 128, B: 128, A: 255}
			line.Width = vg.Points(1)
			p.Add(line)
		}

		// Event spans as thick colored segments over the trace.
		evs := frame.Events()
		colors := eventColors(len(evs))
		index := make(map[int64]int, len(timesteps))
		for i, ts := range timesteps {
			index[ts] = i
		}
		for ei, ev := range evs {
			pts := make(plotter.XYs, 0, ev.Duration())
			for ts := ev.Onset; ts <= ev.Offset; ts++ {
				i, ok := index[ts]
				if !ok || points[i].IsMissing() {
					continue
				}
				pts = append(pts, plotter.XY{X: float64(ts), Y: axis.value(points[i])})
			}
			if len(pts) == 0 {
				continue
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return files, err
			}
			line.Color = colors[ei]
			line.Width = vg.Points(3)
			p.Add(line)
			p.Legend.Add(fmt.Sprintf("%s %d", ev.Name, ei), line)
		}
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10

		// The name may come from user input, so sanitize it before it
		// becomes part of a path.
		file := filepath.Join(tp.outputDir, fmt.Sprintf("%s_%s.png", security.SanitizeFilename(name), axis.suffix))
		if err := tp.savePNG(p, file); err != nil {
			return files, fmt.Errorf("save %s plot: %w", axis.suffix, err)
		}
		files = append(files, file)
	}
	return files, nil
}

// savePNG renders the plot through the configured filesystem.
func (tp *TracePlotter) savePNG(p *plot.Plot, file string) error {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	f, err := tp.fs.Create(file)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type segment struct {
	start, end int
}

// validSegments returns the half-open index ranges of consecutive
// non-missing samples.
func validSegments(points []gaze.Point) []segment {
	var segs []segment
	start := -1
	for i, p := range points {
		if p.IsMissing() {
			if start >= 0 {
				segs = append(segs, segment{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		segs = append(segs, segment{start, len(points)})
	}
	return segs
}

// eventColors creates a palette of distinct colors for event segments.
func eventColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir creates a timestamped output directory path for a
// recording's plots: <baseDir>/<recordingID>/<timestamp>.
func MakePlotOutputDir(baseDir, recordingID string) string {
	return filepath.Join(baseDir, recordingID, FormatTimestamp(time.Now()))
}
