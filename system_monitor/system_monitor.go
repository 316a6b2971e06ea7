package systemmonitor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qpaging/qpbench/report"
)

var (
	ErrInvalidConfig = errors.New("invalid monitor config")
	ErrInvalidState  = errors.New("invalid monitor state")
)

// SystemMonitor samples host telemetry on a fixed interval for one
// start/stop session. The Series is written only by the sampling goroutine;
// Stop joins that goroutine, so anything read after Stop is frozen.
type SystemMonitor interface {
	// Start spawns the sampling goroutine and returns without waiting for
	// the first sample.
	Start() error
	// Stop signals the sampling goroutine and blocks until it has exited.
	// Idempotent; a no-op before Start.
	Stop()
	// Series returns the frozen sample series. Only valid once stopped.
	Series() (*report.Series, error)
	// PeakMetrics summarizes the frozen series. Only valid once stopped; a
	// session with zero samples yields the all-zero summary.
	PeakMetrics() (report.PeakSummary, error)
}

const (
	stateIdle = iota
	stateRunning
	stateStopped
)

type systemMonitor struct {
	interval time.Duration
	src      *Sources

	mu    sync.Mutex
	state int

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	sessionStart time.Time
	series       *report.Series

	prevDisk   DiskCounters
	prevDiskAt time.Time

	faulted map[string]bool
}

func NewSystemMonitor(interval time.Duration, src *Sources) (SystemMonitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: non-positive sampling interval %v", ErrInvalidConfig, interval)
	}
	if src == nil {
		src = DefaultSources()
	}
	if src.CPU == nil || src.Process == nil || src.Memory == nil || src.Disk == nil {
		return nil, fmt.Errorf("%w: missing metric source", ErrInvalidConfig)
	}

	return &systemMonitor{
		interval: interval,
		src:      src,
		stop:     make(chan struct{}),
		series:   &report.Series{GPUEnabled: src.GPU != nil && src.GPU.Enabled()},
		faulted:  map[string]bool{},
	}, nil
}

func (mon *systemMonitor) Start() error {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if mon.state != stateIdle {
		return fmt.Errorf("%w: monitor already started", ErrInvalidState)
	}
	mon.state = stateRunning
	mon.sessionStart = time.Now()

	// Prime the delta baselines so the first tick measures a real window.
	if _, err := mon.src.CPU.Percent(); err != nil {
		mon.faultOnce("cpu", err)
	}
	if c, err := mon.src.Disk.Counters(); err != nil {
		mon.faultOnce("disk", err)
	} else {
		mon.prevDisk = c
		mon.prevDiskAt = mon.sessionStart
	}

	mon.wg.Add(1)
	go mon.runMonitor()
	return nil
}

func (mon *systemMonitor) Stop() {
	mon.mu.Lock()
	if mon.state == stateIdle {
		mon.mu.Unlock()
		return
	}
	mon.mu.Unlock()

	mon.stopOnce.Do(func() { close(mon.stop) })
	mon.wg.Wait()

	mon.mu.Lock()
	mon.state = stateStopped
	mon.mu.Unlock()
}

func (mon *systemMonitor) Series() (*report.Series, error) {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if mon.state != stateStopped {
		return nil, fmt.Errorf("%w: series is readable once the monitor has stopped", ErrInvalidState)
	}
	return mon.series, nil
}

func (mon *systemMonitor) PeakMetrics() (report.PeakSummary, error) {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if mon.state != stateStopped {
		return report.PeakSummary{}, fmt.Errorf("%w: peaks are readable once the monitor has stopped", ErrInvalidState)
	}
	return mon.series.Peaks(), nil
}

func (mon *systemMonitor) runMonitor() {
	defer mon.wg.Done()
	defer slog.Debug("SystemMonitor: stopped")

	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()

	for {
		select {
		case <-mon.stop:
			return
		default:
		}

		tickStart := time.Now()
		mon.sampleOnce(tickStart)
		if took := time.Since(tickStart); took > mon.interval {
			slog.Warn("SystemMonitor: tick overran the sampling interval", slog.Duration("took", took), slog.Duration("interval", mon.interval))
		}

		select {
		case <-mon.stop:
			return
		case <-ticker.C:
		}
	}
}

func (mon *systemMonitor) sampleOnce(now time.Time) {
	s := report.Sample{Elapsed: now.Sub(mon.sessionStart).Seconds()}

	if pct, err := mon.src.CPU.Percent(); err != nil {
		mon.faultOnce("cpu", err)
	} else {
		s.CPUPercent = pct
	}

	var rss uint64
	if v, err := mon.src.Process.RSSBytes(); err != nil {
		mon.faultOnce("process", err)
	} else {
		rss = v
		s.ProcessRSSGB = toGB(v)
	}

	if st, err := mon.src.Memory.Memory(); err != nil {
		mon.faultOnce("memory", err)
	} else if st.CacheExact {
		s.SystemCacheGB = toGB(st.CacheBytes)
	} else {
		// No exact cached+buffers figure on this platform; approximate as
		// (total - available) - rss and tag the series accordingly.
		mon.series.CacheDerived = true
		if st.TotalBytes > st.AvailableBytes+rss {
			s.SystemCacheGB = toGB(st.TotalBytes - st.AvailableBytes - rss)
		}
	}

	if c, err := mon.src.Disk.Counters(); err != nil {
		mon.faultOnce("disk", err)
	} else {
		readBps, writeBps := mon.diskRates(c, now)
		s.DiskReadMBs = readBps / (1 << 20)
		s.DiskWriteMBs = writeBps / (1 << 20)
	}

	if mon.src.GPU != nil && mon.src.GPU.Enabled() {
		if g, err := mon.src.GPU.Read(); err != nil {
			mon.faultOnce("gpu", err)
		} else {
			s.GPUUtilPercent = g.UtilPercent
			s.GPUMemMB = g.MemUsedMB
		}
	}

	mon.series.Append(s)
}

// diskRates derives read and write throughput in bytes/s from cumulative
// counters. A non-positive time delta or a counter that moved backwards
// yields 0, and the counter baseline only advances on a usable delta.
func (mon *systemMonitor) diskRates(curr DiskCounters, now time.Time) (readBps, writeBps float64) {
	if mon.prevDiskAt.IsZero() {
		mon.prevDisk = curr
		mon.prevDiskAt = now
		return 0, 0
	}

	dt := now.Sub(mon.prevDiskAt).Seconds()
	mon.prevDiskAt = now
	if dt <= 0 {
		return 0, 0
	}

	readBps = counterRate(curr.ReadBytes, mon.prevDisk.ReadBytes, dt)
	writeBps = counterRate(curr.WriteBytes, mon.prevDisk.WriteBytes, dt)
	mon.prevDisk = curr
	return readBps, writeBps
}

func counterRate(curr, prev uint64, dt float64) float64 {
	if curr < prev {
		return 0
	}
	return float64(curr-prev) / dt
}

// faultOnce logs the first failure of a source for this session and
// suppresses the rest. The affected fields stay zero for the tick.
func (mon *systemMonitor) faultOnce(source string, err error) {
	if mon.faulted[source] {
		return
	}
	mon.faulted[source] = true
	slog.Warn("SystemMonitor: source read failed, zeroing its fields", slog.String("source", source), slog.String("error", err.Error()))
}

func toGB(v uint64) float64 {
	return float64(v) / (1 << 30)
}
