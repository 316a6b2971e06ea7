package systemmonitor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type cpuTimeStat struct {
	user      int
	system    int
	idle      int
	nice      int
	iowait    int
	irq       int
	softIrq   int
	steal     int
	guest     int
	guestNice int
}

func (ts *cpuTimeStat) totalCPUTime() int {
	return ts.user + ts.system + ts.nice + ts.iowait + ts.irq + ts.softIrq + ts.steal + ts.idle
}

func parseCPUTimeStat(buf []byte) *cpuTimeStat {
	for _, line := range strings.Split(string(buf), "\n") {
		// We only want the total CPU usage, ignore per-core metrics and other metrics
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 11 {
			return nil
		}
		user, _ := strconv.Atoi(parts[1])
		nice, _ := strconv.Atoi(parts[2])
		system, _ := strconv.Atoi(parts[3])
		idle, _ := strconv.Atoi(parts[4])
		iowait, _ := strconv.Atoi(parts[5])
		irq, _ := strconv.Atoi(parts[6])
		softIrq, _ := strconv.Atoi(parts[7])
		steal, _ := strconv.Atoi(parts[8])
		guest, _ := strconv.Atoi(parts[9])
		guestNice, _ := strconv.Atoi(parts[10])
		return &cpuTimeStat{
			user:      user,
			nice:      nice,
			system:    system,
			idle:      idle,
			iowait:    iowait,
			irq:       irq,
			softIrq:   softIrq,
			steal:     steal,
			guest:     guest,
			guestNice: guestNice,
		}
	}
	return nil
}

// cpuPercent is the share of non-idle time between two readings. Idle and
// iowait both count as idle time.
func cpuPercent(curr, prev *cpuTimeStat) float64 {
	total := float64(curr.totalCPUTime() - prev.totalCPUTime())
	if total <= 0 {
		return 0
	}
	idle := float64((curr.idle + curr.iowait) - (prev.idle + prev.iowait))
	pct := 100 * (total - idle) / total
	return min(max(pct, 0), 100)
}

type cpuSource struct {
	statPath string
	prev     *cpuTimeStat
}

func newCPUSource() *cpuSource {
	return &cpuSource{statPath: "/proc/stat"}
}

func (src *cpuSource) Percent() (float64, error) {
	buf, err := os.ReadFile(src.statPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src.statPath, err)
	}

	curr := parseCPUTimeStat(buf)
	if curr == nil {
		return 0, fmt.Errorf("no aggregate cpu line in %s", src.statPath)
	}

	prev := src.prev
	src.prev = curr
	if prev == nil {
		return 0, nil
	}
	return cpuPercent(curr, prev), nil
}
