package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/qpaging/qpbench/report"
)

// Renderer is the external visualization sink. It produces an image artifact
// from named series over a shared time axis and must not influence the run
// outcome.
type Renderer interface {
	Render(req *RenderRequest) error
}

// RenderRequest describes a multi-panel figure over one shared time axis.
type RenderRequest struct {
	Title      string
	OutputPath string
	XLabel     string
	X          []float64
	Panels     []Panel
}

type Panel struct {
	Title  string
	YLabel string
	Curves []Curve
}

type Curve struct {
	Label string
	Y     []float64
}

func buildRenderRequest(dir string, series *report.Series) *RenderRequest {
	samples := series.Samples()
	x := make([]float64, len(samples))
	cpu := make([]float64, len(samples))
	rss := make([]float64, len(samples))
	cache := make([]float64, len(samples))
	read := make([]float64, len(samples))
	write := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.Elapsed
		cpu[i] = s.CPUPercent
		rss[i] = s.ProcessRSSGB
		cache[i] = s.SystemCacheGB
		read[i] = s.DiskReadMBs
		write[i] = s.DiskWriteMBs
	}

	cacheLabel := "OS Page Cache"
	if series.CacheDerived {
		cacheLabel = "OS Page Cache (derived)"
	}

	req := &RenderRequest{
		Title:      "System Resource Profile",
		OutputPath: filepath.Join(dir, "benchmark_profile.png"),
		XLabel:     "Elapsed (s)",
		X:          x,
		Panels: []Panel{
			{
				Title:  "Memory Usage",
				YLabel: "GB",
				Curves: []Curve{
					{Label: "Process RSS", Y: rss},
					{Label: cacheLabel, Y: cache},
				},
			},
			{
				Title:  "Disk Throughput",
				YLabel: "MB/s",
				Curves: []Curve{
					{Label: "Read", Y: read},
					{Label: "Write", Y: write},
				},
			},
			{
				Title:  "CPU Utilization",
				YLabel: "%",
				Curves: []Curve{
					{Label: "CPU", Y: cpu},
				},
			},
		},
	}

	if series.GPUEnabled {
		gpuUtil := make([]float64, len(samples))
		gpuMem := make([]float64, len(samples))
		for i, s := range samples {
			gpuUtil[i] = s.GPUUtilPercent
			gpuMem[i] = s.GPUMemMB
		}
		req.Panels = append(req.Panels, Panel{
			Title:  "GPU",
			YLabel: "% / MB",
			Curves: []Curve{
				{Label: "Utilization", Y: gpuUtil},
				{Label: "Memory Used", Y: gpuMem},
			},
		})
	}

	return req
}

// JSONRenderer hands the request off by serializing it beside the target
// image, for an external charting tool to pick up.
type JSONRenderer struct{}

func (JSONRenderer) Render(req *RenderRequest) error {
	path := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath)) + ".json"
	buf, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal render request: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write render request: %w", err)
	}

	slog.Debug("Recorder: wrote render request", slog.String("path", path))
	return nil
}
