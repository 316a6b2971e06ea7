package systemmonitor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type processSource struct {
	statmPath string
	pageSize  uint64
}

// newProcessSource tracks the resident set of one process. A pid of 0 means
// the current process.
func newProcessSource(pid int) *processSource {
	path := "/proc/self/statm"
	if pid > 0 {
		path = fmt.Sprintf("/proc/%d/statm", pid)
	}
	return &processSource{statmPath: path, pageSize: uint64(os.Getpagesize())}
}

func (src *processSource) RSSBytes() (uint64, error) {
	buf, err := os.ReadFile(src.statmPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src.statmPath, err)
	}

	pages, err := parseStatmResident(buf)
	if err != nil {
		return 0, err
	}
	return pages * src.pageSize, nil
}

func parseStatmResident(buf []byte) (uint64, error) {
	parts := strings.Fields(string(buf))
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed statm contents %q", string(buf))
	}

	pages, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed statm resident field: %w", err)
	}
	return pages, nil
}

type memorySource struct {
	meminfoPath string
}

func newMemorySource() *memorySource {
	return &memorySource{meminfoPath: "/proc/meminfo"}
}

func (src *memorySource) Memory() (MemoryStat, error) {
	buf, err := os.ReadFile(src.meminfoPath)
	if err != nil {
		return MemoryStat{}, fmt.Errorf("failed to read %s: %w", src.meminfoPath, err)
	}
	return parseMemInfo(buf), nil
}

func parseMemInfo(buf []byte) MemoryStat {
	var st MemoryStat
	var buffers, cached uint64

	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 3 {
			continue
		}
		value, _ := strconv.ParseUint(parts[1], 10, 64)
		bytes := value * 1024
		switch key := parts[0][:len(parts[0])-1]; key {
		case "MemTotal":
			st.TotalBytes = bytes
		case "MemAvailable":
			st.AvailableBytes = bytes
		case "Buffers":
			buffers = bytes
		case "Cached":
			cached += bytes
			st.CacheExact = true
		case "SReclaimable":
			cached += bytes
		}
	}

	st.CacheBytes = cached + buffers
	return st
}
