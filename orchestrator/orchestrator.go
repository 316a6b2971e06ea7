package orchestrator

import (
	"github.com/qpaging/qpbench/config"
	"github.com/qpaging/qpbench/report"
)

type Report struct {
	Config        *config.Config
	WorkloadName  string
	WorkloadInput map[string]any
	Records       []*report.ExperimentRecord
}

// Runs a sweep of paging experiments on a host (the local machine).
type SweepOrchestrator interface {
	// Run every sweep point in order and return a report. One workload run
	// is active at a time; failed runs are recorded and the sweep continues.
	RunSweep() (*Report, error)
}
