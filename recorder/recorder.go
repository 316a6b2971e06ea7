package recorder

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/qpaging/qpbench/report"
)

var metricsColumns = []string{
	"elapsed-seconds",
	"cpu-percent",
	"process-rss-gb",
	"system-cache-gb",
	"disk-read-mb-s",
	"disk-write-mb-s",
	"gpu-util-percent",
	"gpu-mem-mb",
}

// Recorder persists one frozen Series into a run directory: a row-oriented
// time-series CSV plus a render request handed to the visualization sink.
type Recorder struct {
	dir      string
	renderer Renderer
}

func New(dir string, renderer Renderer) *Recorder {
	if renderer == nil {
		renderer = JSONRenderer{}
	}
	return &Recorder{dir: dir, renderer: renderer}
}

// Record writes the run artifacts. An empty series is not an error; both
// artifacts are skipped with a notice.
func (r *Recorder) Record(series *report.Series) error {
	if series == nil || series.Len() == 0 {
		slog.Info("Recorder: no samples collected, skipping artifacts", slog.String("dir", r.dir))
		return nil
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	if err := r.writeCSV(series); err != nil {
		return err
	}

	if err := r.renderer.Render(buildRenderRequest(r.dir, series)); err != nil {
		// The visualization sink never influences the run outcome.
		slog.Warn("Recorder: render request failed", slog.String("error", err.Error()))
	}
	return nil
}

func (r *Recorder) writeCSV(series *report.Series) error {
	path := filepath.Join(r.dir, "metrics.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(metricsColumns); err != nil {
		return fmt.Errorf("failed to write metrics header: %w", err)
	}
	for _, s := range series.Samples() {
		row := []string{
			formatFloat(s.Elapsed),
			formatFloat(s.CPUPercent),
			formatFloat(s.ProcessRSSGB),
			formatFloat(s.SystemCacheGB),
			formatFloat(s.DiskReadMBs),
			formatFloat(s.DiskWriteMBs),
			formatFloat(s.GPUUtilPercent),
			formatFloat(s.GPUMemMB),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write metrics row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush metrics csv: %w", err)
	}

	slog.Debug("Recorder: wrote time series", slog.String("path", path), slog.Int("samples", series.Len()))
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
