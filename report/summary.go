package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

var summaryColumns = []string{
	"unit-count",
	"theoretical-size-gb",
	"duration-s",
	"peak-rss-gb",
	"peak-cache-gb",
	"peak-disk-read-mb-s",
	"peak-disk-write-mb-s",
	"peak-gpu-util-percent",
	"peak-gpu-mem-mb",
}

// SummaryWriter appends ExperimentRecords to the cross-run summary CSV. Each
// row goes to storage as a single write followed by a sync, so a crash
// mid-sweep leaves only complete prior rows behind. Reopening an existing
// summary appends without repeating the header.
type SummaryWriter struct {
	f *os.File
}

func NewSummaryWriter(path string) (*SummaryWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary file: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat summary file: %w", err)
	}

	w := &SummaryWriter{f: f}
	if st.Size() == 0 {
		if err := w.writeLine(strings.Join(summaryColumns, ",")); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append flushes one record to the summary file.
func (w *SummaryWriter) Append(r *ExperimentRecord) error {
	fields := []string{
		strconv.Itoa(r.Units),
		strconv.FormatFloat(r.TheoreticalGB, 'f', 4, 64),
		strconv.FormatFloat(r.DurationSec, 'f', 4, 64),
		strconv.FormatFloat(r.PeakRSSGB, 'f', 4, 64),
		strconv.FormatFloat(r.PeakCacheGB, 'f', 4, 64),
		strconv.FormatFloat(r.PeakDiskReadMBs, 'f', 2, 64),
		strconv.FormatFloat(r.PeakDiskWriteMBs, 'f', 2, 64),
		strconv.FormatFloat(r.PeakGPUUtilPercent, 'f', 1, 64),
		strconv.FormatFloat(r.PeakGPUMemMB, 'f', 2, 64),
	}
	return w.writeLine(strings.Join(fields, ","))
}

func (w *SummaryWriter) writeLine(line string) error {
	if _, err := w.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write summary row: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync summary file: %w", err)
	}
	return nil
}

func (w *SummaryWriter) Close() error {
	return w.f.Close()
}
