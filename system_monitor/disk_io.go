package systemmonitor

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type diskSource struct {
	diskstatsPath string

	// devices holds the whole-disk names listed under /sys/block, discovered
	// once at construction. nil means the listing failed and Counters falls
	// back to name filtering, which may double-count partitions.
	devices map[string]bool
}

func newDiskSource() *diskSource {
	src := &diskSource{diskstatsPath: "/proc/diskstats"}

	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		slog.Warn("failed to list block devices, falling back to device name filtering", slog.String("error", err.Error()))
		return src
	}

	src.devices = map[string]bool{}
	for _, e := range entries {
		src.devices[e.Name()] = true
	}
	return src
}

func (src *diskSource) Counters() (DiskCounters, error) {
	buf, err := os.ReadFile(src.diskstatsPath)
	if err != nil {
		return DiskCounters{}, fmt.Errorf("failed to read %s: %w", src.diskstatsPath, err)
	}
	return parseDiskstats(buf, src.includeDevice), nil
}

func (src *diskSource) includeDevice(name string) bool {
	if src.devices != nil {
		return src.devices[name]
	}
	return !strings.HasPrefix(name, "loop") &&
		!strings.HasPrefix(name, "ram") &&
		!strings.HasPrefix(name, "zram") &&
		!strings.HasPrefix(name, "dm-")
}

func parseDiskstats(buf []byte, include func(string) bool) DiskCounters {
	var c DiskCounters
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 10 {
			continue
		}
		if !include(parts[2]) {
			continue
		}

		sectorsRead, _ := strconv.ParseUint(parts[5], 10, 64)
		sectorsWritten, _ := strconv.ParseUint(parts[9], 10, 64)
		c.ReadBytes += sectorsRead * 512
		c.WriteBytes += sectorsWritten * 512
	}
	return c
}
