package systemmonitor

// One source per metric family. DefaultSources wires the /proc and /sys
// backed implementations; tests substitute fakes.

type CPUSource interface {
	// Percent returns total CPU utilization over the window since the
	// previous call. The first call primes the baseline and returns 0.
	Percent() (float64, error)
}

type ProcessSource interface {
	RSSBytes() (uint64, error)
}

// MemoryStat is one system memory reading.
type MemoryStat struct {
	TotalBytes     uint64
	AvailableBytes uint64

	// CacheBytes is cached+buffers. Only meaningful when CacheExact is
	// true; otherwise the sampler derives an approximation instead.
	CacheBytes uint64
	CacheExact bool
}

type MemorySource interface {
	Memory() (MemoryStat, error)
}

// DiskCounters are cumulative byte totals summed over physical devices.
type DiskCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

type DiskSource interface {
	Counters() (DiskCounters, error)
}

type GPUStat struct {
	UtilPercent float64
	MemUsedMB   float64
}

type GPUSource interface {
	// Enabled reports the sealed outcome of the construction-time probe.
	Enabled() bool
	Read() (GPUStat, error)
}

// Sources groups the per-family metric sources for one monitor. All fields
// except GPU must be non-nil; a nil GPU means the capability is absent.
type Sources struct {
	CPU     CPUSource
	Process ProcessSource
	Memory  MemorySource
	Disk    DiskSource
	GPU     GPUSource
}

// DefaultSources builds the local-host sources. The GPU capability probe
// runs here, exactly once per construction.
func DefaultSources() *Sources {
	return &Sources{
		CPU:     newCPUSource(),
		Process: newProcessSource(0),
		Memory:  newMemorySource(),
		Disk:    newDiskSource(),
		GPU:     newGPUSource(),
	}
}
