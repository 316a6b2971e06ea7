package orchestrator

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/qpaging/qpbench/config"
	"github.com/qpaging/qpbench/recorder"
	"github.com/qpaging/qpbench/report"
	systemmonitor "github.com/qpaging/qpbench/system_monitor"
	"github.com/qpaging/qpbench/workload"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
)

type localSweepOrchestrator struct {
	input *LocalSweepOrchestratorInput
}

type LocalSweepOrchestratorInput struct {
	Config       *config.Config
	Workload     workload.Workload
	BuildProgram func(units int) *workload.Program           // HeavyProgram by default
	Renderer     recorder.Renderer                           // JSONRenderer by default
	NewMonitor   func() (systemmonitor.SystemMonitor, error) // real host sources by default
}

func NewLocalSweepOrchestrator(input *LocalSweepOrchestratorInput) (*localSweepOrchestrator, error) {
	if input.Config == nil {
		return nil, fmt.Errorf("a config must be set")
	}
	err := input.Config.Validate()
	if err != nil {
		return nil, err
	}
	if input.Workload == nil {
		return nil, fmt.Errorf("a workload must be set")
	}
	if input.BuildProgram == nil {
		input.BuildProgram = workload.HeavyProgram
	}
	if input.Renderer == nil {
		input.Renderer = recorder.JSONRenderer{}
	}
	if input.NewMonitor == nil {
		interval := input.Config.Monitor.Interval()
		input.NewMonitor = func() (systemmonitor.SystemMonitor, error) {
			return systemmonitor.NewSystemMonitor(interval, nil)
		}
	}
	return &localSweepOrchestrator{input: input}, nil
}

func (o *localSweepOrchestrator) RunSweep() (*Report, error) {
	cfg := o.input.Config

	err := os.MkdirAll(cfg.Output.Root, fs.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create the output root: %w", err)
	}

	o.checkBackingStoreSpace()

	summary, err := report.NewSummaryWriter(filepath.Join(cfg.Output.Root, "benchmark_summary.csv"))
	if err != nil {
		return nil, err
	}
	defer summary.Close()

	rep := &Report{
		Config:        cfg,
		WorkloadName:  o.input.Workload.GetName(),
		WorkloadInput: o.input.Workload.GetInput(),
		Records:       []*report.ExperimentRecord{},
	}

	units := cfg.Sweep.UnitCounts()
	p := progressbar.Default(int64(len(units)), "Running sweep:")
	for _, n := range units {
		record := o.runOne(n)
		rep.Records = append(rep.Records, record)

		err = summary.Append(record)
		if err != nil {
			slog.Error("failed to append to the sweep summary", slog.String("error", err.Error()))
		}
		p.Add(1)

		if cooldown := cfg.Monitor.Cooldown(); cooldown > 0 {
			time.Sleep(cooldown)
		}
	}
	p.Finish()

	return rep, nil
}

func (o *localSweepOrchestrator) runOne(units int) *report.ExperimentRecord {
	cfg := o.input.Config
	record := &report.ExperimentRecord{
		Units:         units,
		TheoreticalGB: workload.TheoreticalSizeGB(units, cfg.Workload.BytesPerUnit),
	}

	slog.Info("starting run",
		slog.Int("units", units),
		slog.Float64("theoreticalGB", record.TheoreticalGB))

	runDir := filepath.Join(cfg.Output.Root, fmt.Sprintf("q%d", units))
	err := os.MkdirAll(runDir, fs.ModePerm)
	if err != nil {
		record.Err = fmt.Sprintf("failed to create the run directory: %s", err.Error())
		return record
	}

	mon, err := o.input.NewMonitor()
	if err != nil {
		record.Err = err.Error()
		return record
	}

	err = mon.Start()
	if err != nil {
		record.Err = err.Error()
		return record
	}
	defer mon.Stop()

	// Let monitor startup noise settle before the workload begins.
	if warmup := cfg.Monitor.Warmup(); warmup > 0 {
		time.Sleep(warmup)
	}

	prog := o.input.BuildProgram(units)
	tstart := time.Now()
	err = o.invokeWorkload(prog)
	elapsed := time.Since(tstart)

	mon.Stop()

	if err != nil {
		slog.Error("workload run failed",
			slog.String("error", err.Error()),
			slog.Int("units", units))
		record.Err = err.Error()
	} else {
		record.DurationSec = elapsed.Seconds()
		slog.Info("run complete",
			slog.Int("units", units),
			slog.Duration("duration", elapsed))
	}

	series, serr := mon.Series()
	if serr != nil {
		slog.Error("failed to read the telemetry series", slog.String("error", serr.Error()))
		return record
	}
	peaks, perr := mon.PeakMetrics()
	if perr == nil {
		record.PeakSummary = peaks
	}

	// Failed runs keep their samples too, the telemetry usually shows the
	// failure mode.
	rerr := recorder.New(runDir, o.input.Renderer).Record(series)
	if rerr != nil {
		slog.Error("failed to record the run profile", slog.String("error", rerr.Error()))
	}

	return record
}

// invokeWorkload turns a workload panic into an error so one bad run cannot
// take down the rest of the sweep.
func (o *localSweepOrchestrator) invokeWorkload(prog *workload.Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workload panicked: %v", r)
		}
	}()
	return o.input.Workload.Run(prog)
}

// checkBackingStoreSpace warns when the largest sweep point cannot fit in
// the backing store. The sweep still proceeds.
func (o *localSweepOrchestrator) checkBackingStoreSpace() {
	cfg := o.input.Config
	store := cfg.Workload.BackingStore
	if store == "" {
		return
	}
	err := os.MkdirAll(store, fs.ModePerm)
	if err != nil {
		slog.Warn("failed to create the backing store directory", slog.String("error", err.Error()))
		return
	}
	var st unix.Statfs_t
	err = unix.Statfs(store, &st)
	if err != nil {
		slog.Warn("statfs on the backing store failed", slog.String("error", err.Error()))
		return
	}
	availGB := float64(st.Bavail) * float64(st.Bsize) / (1 << 30)
	needGB := workload.TheoreticalSizeGB(cfg.Sweep.End, cfg.Workload.BytesPerUnit)
	if availGB < needGB {
		slog.Warn("the backing store may be too small for the largest sweep point",
			slog.String("path", store),
			slog.Float64("availableGB", availGB),
			slog.Float64("requiredGB", needGB))
	}
}
