package systemmonitor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/qpaging/qpbench/util"
)

// A wedged query tool must not stall the sampling loop forever.
const gpuQueryTimeout = 5 * time.Second

type gpuSource struct {
	smiPath string
	enabled bool
}

// newGPUSource probes for GPU monitoring support exactly once. The outcome is
// sealed for the lifetime of the source; per-tick reads never re-probe.
func newGPUSource() *gpuSource {
	src := &gpuSource{}

	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		slog.Debug("GPU monitoring disabled: nvidia-smi not found")
		return src
	}
	src.smiPath = path

	ctx, cancel := context.WithTimeout(context.Background(), gpuQueryTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-L").CombinedOutput()
	if err != nil {
		slog.Debug("GPU monitoring disabled: device listing failed", slog.String("output", string(out)), slog.String("error", err.Error()))
		return src
	}

	name := firstGPUName(out)
	if name == "" {
		slog.Debug("GPU monitoring disabled: no devices listed")
		return src
	}

	src.enabled = true
	slog.Info("GPU monitoring active", slog.String("device", name))
	return src
}

// firstGPUName pulls the device name out of an nvidia-smi -L listing, e.g.
// "GPU 0: NVIDIA A100-SXM4-40GB (UUID: GPU-...)".
func firstGPUName(buf []byte) string {
	for _, line := range strings.Split(string(buf), "\n") {
		if !strings.HasPrefix(line, "GPU ") {
			continue
		}
		_, rest, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if i := strings.Index(rest, " (UUID"); i > 0 {
			return rest[:i]
		}
		return strings.TrimSpace(rest)
	}
	return ""
}

func (src *gpuSource) Enabled() bool {
	return src.enabled
}

func (src *gpuSource) Read() (GPUStat, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gpuQueryTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, src.smiPath,
		"--query-gpu=utilization.gpu,memory.used",
		"--format=csv,noheader,nounits",
		"-i", "0",
	).CombinedOutput()
	if err != nil {
		return GPUStat{}, fmt.Errorf("nvidia-smi query failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseGPUQuery(out)
}

// parseGPUQuery reads one "util, mem" CSV line, e.g. "42, 1024".
func parseGPUQuery(buf []byte) (GPUStat, error) {
	line := util.LastNonEmptyLine(buf)
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return GPUStat{}, fmt.Errorf("unexpected nvidia-smi output %q", line)
	}

	utilPct, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return GPUStat{}, fmt.Errorf("bad gpu utilization %q: %w", parts[0], err)
	}
	mem, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return GPUStat{}, fmt.Errorf("bad gpu memory %q: %w", parts[1], err)
	}
	return GPUStat{UtilPercent: utilPct, MemUsedMB: mem}, nil
}
