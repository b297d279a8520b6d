// Command detect runs fixation detection over a CSV file of gaze samples
// without touching the database. Each line is "timestep,x,y" in the same
// format the tracker streams; blink samples may use nan or empty fields.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Yanis750/pymovements/internal/config"
	"github.com/Yanis750/pymovements/internal/detect"
	"github.com/Yanis750/pymovements/internal/gaze"
	"github.com/Yanis750/pymovements/internal/plot"
	"github.com/Yanis750/pymovements/internal/serialmux"
)

func main() {
	var configPath string
	var plotDir string
	var name string

	flag.StringVar(&configPath, "config", "", "path to detection tuning JSON")
	flag.StringVar(&plotDir, "plots", "", "write trace plots with event overlays to this directory")
	flag.StringVar(&name, "name", "fixation", "event name for detected fixations")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: detect [flags] <samples.csv>")
	}

	points, timesteps, err := readSamples(flag.Arg(0))
	if err != nil {
		log.Fatalf("read samples: %v", err)
	}

	tuning := config.EmptyTuningConfig()
	if configPath != "" {
		tuning, err = config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load tuning config: %v", err)
		}
	}
	opts := tuning.DetectOptions()
	opts.Name = name

	frame, err := detect.IDT(points, timesteps, opts)
	if err != nil {
		log.Fatalf("detection failed: %v", err)
	}

	out, err := json.MarshalIndent(map[string]any{
		"name":    name,
		"count":   frame.Len(),
		"onsets":  frame.Onsets(),
		"offsets": frame.Offsets(),
	}, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))

	if plotDir != "" {
		plotter, err := plot.NewTracePlotter(plotDir)
		if err != nil {
			log.Fatalf("create plot dir: %v", err)
		}
		files, err := plotter.SaveTrace(name, timesteps, points, frame)
		if err != nil {
			log.Fatalf("save plots: %v", err)
		}
		for _, f := range files {
			fmt.Printf("wrote %s\n", f)
		}
	}
}

// readSamples parses a CSV of "timestep,x,y" lines. Blank lines and a
// leading header are skipped.
func readSamples(path string) ([]gaze.Point, []int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var points []gaze.Point
	var timesteps []int64

	scan := bufio.NewScanner(f)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		ts, p, err := serialmux.ParseSampleLine(line)
		if err != nil {
			if lineNo == 1 {
				continue // header row
			}
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		timesteps = append(timesteps, ts)
		points = append(points, p)
	}
	if err := scan.Err(); err != nil {
		return nil, nil, err
	}
	if len(points) == 0 {
		return nil, nil, fmt.Errorf("no samples in %s", path)
	}
	return points, timesteps, nil
}
