package workload

import (
	"fmt"
	"strconv"
	"strings"
)

var byteSuffixes = []struct {
	suffix string
	mult   uint64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseByteSize reads a size like "4GB", "512MB", or a bare byte count.
// Suffixes are binary multiples.
func ParseByteSize(s string) (uint64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}
	for _, entry := range byteSuffixes {
		if !strings.HasSuffix(trimmed, entry.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(trimmed, entry.suffix))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q: %w", s, err)
		}
		if v < 0 {
			return 0, fmt.Errorf("negative size %q", s)
		}
		return uint64(v * float64(entry.mult)), nil
	}
	v, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return v, nil
}
