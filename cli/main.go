package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/qpaging/qpbench/config"
	"github.com/qpaging/qpbench/orchestrator"
	"github.com/qpaging/qpbench/workload"
	_ "github.com/qpaging/qpbench/workload/enginecmd"
	_ "github.com/qpaging/qpbench/workload/iostress"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file. Other flags override its values.")
	start := flag.Int("start", 0, "The first unit count of the sweep.")
	end := flag.Int("end", 0, "The last unit count of the sweep (inclusive).")
	step := flag.Int("step", 0, "The sweep step.")
	interval := flag.Float64("interval", 0, "The sampling interval in seconds.")
	output := flag.String("output", "", "The output root directory.")
	workloadType := flag.String("workload", "", fmt.Sprintf("The workload type to run at each sweep point. Must be one of: %s.", workload.ExplainWorkloads()))
	workloadFile := flag.String("workload-file", "", "A JSON file containing a full serialized workload. Overrides the config file's workload section.")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			panic(err)
		}
	}
	if *start != 0 {
		cfg.Sweep.Start = *start
	}
	if *end != 0 {
		cfg.Sweep.End = *end
	}
	if *step != 0 {
		cfg.Sweep.Step = *step
	}
	if *interval != 0 {
		cfg.Monitor.IntervalSeconds = *interval
	}
	if *output != "" {
		cfg.Output.Root = *output
	}
	if *workloadType != "" {
		cfg.Workload.Type = *workloadType
	}

	var sw *workload.SerializedWorkload
	if *workloadFile != "" {
		buf, err := os.ReadFile(*workloadFile)
		if err != nil {
			panic(err)
		}
		sw = &workload.SerializedWorkload{}
		err = json.Unmarshal(buf, sw)
		if err != nil {
			panic(err)
		}
	} else {
		sw = workload.NewSerializedWorkload(cfg.Workload.Type, cfg.Workload.Input)
	}

	w, err := workload.Deserialize(sw, &workload.Hints{
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
