package report

// Sample is one snapshot of host telemetry, taken once per sampling tick.
type Sample struct {
	// Elapsed is the time in seconds since the monitoring session started.
	Elapsed        float64
	CPUPercent     float64
	ProcessRSSGB   float64
	SystemCacheGB  float64
	DiskReadMBs    float64
	DiskWriteMBs   float64
	GPUUtilPercent float64
	GPUMemMB       float64
}

// Series is the append-only sequence of Samples produced by one monitoring
// session. It is written only by the session's sampling goroutine and must be
// read only after the session has stopped.
type Series struct {
	// GPUEnabled records the outcome of the one-time GPU capability probe.
	// GPU fields are identically zero when false.
	GPUEnabled bool

	// CacheDerived is set when the cache figure is the
	// (total - available) - rss approximation rather than the exact
	// cached+buffers figure reported by the OS.
	CacheDerived bool

	samples []Sample
}

func (s *Series) Append(sample Sample) {
	s.samples = append(s.samples, sample)
}

func (s *Series) Len() int {
	return len(s.samples)
}

func (s *Series) At(i int) Sample {
	return s.samples[i]
}

// Samples returns the backing slice. Callers must not modify it.
func (s *Series) Samples() []Sample {
	return s.samples
}

// PeakSummary holds the maxima (and the CPU mean) over one frozen Series.
type PeakSummary struct {
	PeakRSSGB          float64
	PeakCacheGB        float64
	MeanCPUPercent     float64
	PeakDiskReadMBs    float64
	PeakDiskWriteMBs   float64
	PeakGPUUtilPercent float64
	PeakGPUMemMB       float64
}

// Peaks computes the summary for the Series. An empty Series yields the zero
// summary.
func (s *Series) Peaks() PeakSummary {
	var p PeakSummary
	if len(s.samples) == 0 {
		return p
	}

	var cpuSum float64
	for _, m := range s.samples {
		cpuSum += m.CPUPercent
		p.PeakRSSGB = max(p.PeakRSSGB, m.ProcessRSSGB)
		p.PeakCacheGB = max(p.PeakCacheGB, m.SystemCacheGB)
		p.PeakDiskReadMBs = max(p.PeakDiskReadMBs, m.DiskReadMBs)
		p.PeakDiskWriteMBs = max(p.PeakDiskWriteMBs, m.DiskWriteMBs)
		p.PeakGPUUtilPercent = max(p.PeakGPUUtilPercent, m.GPUUtilPercent)
		p.PeakGPUMemMB = max(p.PeakGPUMemMB, m.GPUMemMB)
	}
	p.MeanCPUPercent = cpuSum / float64(len(s.samples))
	return p
}

// ExperimentRecord is the cross-run summary entry for one sweep value.
// A DurationSec of 0 marks a failed run.
type ExperimentRecord struct {
	Units         int
	TheoreticalGB float64
	DurationSec   float64

	// Err holds the workload failure, if any. It is part of the in-memory
	// report only, never the summary CSV.
	Err string

	PeakSummary
}
