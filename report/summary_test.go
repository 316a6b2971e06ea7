package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryWriterHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark_summary.csv")

	w, err := NewSummaryWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&ExperimentRecord{Units: 30, TheoreticalGB: 16, DurationSec: 12.5}))
	require.NoError(t, w.Close())

	buf, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"unit-count,theoretical-size-gb,duration-s,peak-rss-gb,peak-cache-gb,"+
			"peak-disk-read-mb-s,peak-disk-write-mb-s,peak-gpu-util-percent,peak-gpu-mem-mb",
		lines[0])
	assert.Equal(t, "30,16.0000,12.5000,0.0000,0.0000,0.00,0.00,0.0,0.00", lines[1])
}

func TestSummaryWriterReopenDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark_summary.csv")

	w, err := NewSummaryWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&ExperimentRecord{Units: 4}))
	require.NoError(t, w.Close())

	// Reopen as a restarted sweep would and keep appending.
	w, err = NewSummaryWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&ExperimentRecord{Units: 6}))
	require.NoError(t, w.Append(&ExperimentRecord{Units: 8}))
	require.NoError(t, w.Close())

	buf, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "unit-count,"))
	assert.True(t, strings.HasPrefix(lines[1], "4,"))
	assert.True(t, strings.HasPrefix(lines[2], "6,"))
	assert.True(t, strings.HasPrefix(lines[3], "8,"))

	// Every persisted row is complete: same field count as the header.
	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, ","), len(summaryColumns))
	}
}

func TestSummaryWriterFailedRunSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark_summary.csv")

	w, err := NewSummaryWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&ExperimentRecord{
		Units:         26,
		TheoreticalGB: 1,
		DurationSec:   0,
		Err:           "engine exploded",
	}))
	require.NoError(t, w.Close())

	buf, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "26,1.0000,0.0000,0.0000,0.0000,0.00,0.00,0.0,0.00", lines[1])
	// The failure context never leaks into the CSV.
	assert.NotContains(t, string(buf), "exploded")
}
