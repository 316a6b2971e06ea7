package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path"

	"github.com/qpaging/qpbench/config"
	"github.com/qpaging/qpbench/orchestrator"
	"github.com/qpaging/qpbench/workload"
	"github.com/qpaging/qpbench/workload/iostress"
)

// Sweeps the synthetic iostress workload across the host's memory boundary.
// Swap in the engine workload via the cli to profile a real engine build.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	cfg.Sweep = config.Sweep{Start: 22, End: 30, Step: 2}
	cfg.Monitor.IntervalSeconds = 0.5
	cfg.Output.Root = "results"
	cfg.Workload.Type = "iostress"
	cfg.Workload.MemoryBudget = "8GB"
	cfg.Workload.BackingStore = "/var/tmp/qpbench"

	w, err := iostress.NewIOStressWorkload(&iostress.IOStressWorkloadInput{
		Name:        "iostress, 8 writers, 4MiB pages",
		Concurrency: 8,
	}, &workload.Hints{
		MemoryBudget: cfg.Workload.MemoryBudget,
		BackingStore: cfg.Workload.BackingStore,
	})
	if err != nil {
		panic(err)
	}

	orch, err := orchestrator.NewLocalSweepOrchestrator(&orchestrator.LocalSweepOrchestratorInput{
		Config:   cfg,
		Workload: w,
	})
	if err != nil {
		panic(err)
	}

	report, err := orch.RunSweep()
	if err != nil {
		panic(err)
	}

	bytes, err := json.Marshal(report)
	if err != nil {
		panic(err)
	}
	err = os.WriteFile(path.Join(cfg.Output.Root, "report.json"), bytes, os.ModePerm)
	if err != nil {
		panic(err)
	}
}
