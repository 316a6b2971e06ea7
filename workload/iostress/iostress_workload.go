package iostress

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alitto/pond"
	"github.com/mitchellh/mapstructure"
	"github.com/qpaging/qpbench/util"
	"github.com/qpaging/qpbench/workload"
)

// wload streams a synthetic full state through a scratch file: it writes
// 2^units * BytesPerUnit bytes page by page, then reads every page back.
// Only the program's unit count matters; the ops are ignored.
type wload struct {
	input *IOStressWorkloadInput
	hints workload.Hints
}

type IOStressWorkloadInput struct {
	Name         string
	BytesPerUnit int
	PageSize     int
	Concurrency  int
}

func init() {
	workload.Register("iostress", func(a map[string]any, hints *workload.Hints) (workload.Workload, error) {
		input := &IOStressWorkloadInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to IOStressWorkloadInput: %w", err)
		}
		return NewIOStressWorkload(input, hints)
	})
}

func NewIOStressWorkload(input *IOStressWorkloadInput, hints *workload.Hints) (workload.Workload, error) {
	if input.BytesPerUnit <= 0 {
		input.BytesPerUnit = 16
	}
	if input.PageSize <= 0 {
		input.PageSize = 4 << 20
	}
	if input.Concurrency <= 0 {
		input.Concurrency = 8
	}

	w := &wload{input: input}
	if hints != nil {
		w.hints = *hints
	}
	if w.hints.BackingStore == "" {
		return nil, fmt.Errorf("a backing store directory must be set")
	}
	if w.hints.MemoryBudget != "" {
		budget, err := workload.ParseByteSize(w.hints.MemoryBudget)
		if err != nil {
			return nil, fmt.Errorf("failed to parse the memory budget: %w", err)
		}
		// In-flight pages are the only state this workload holds, so the
		// budget caps the worker count.
		maxWorkers := int(budget / uint64(input.PageSize))
		if maxWorkers < 1 {
			maxWorkers = 1
		}
		if input.Concurrency > maxWorkers {
			slog.Debug("reducing iostress concurrency to fit the memory budget",
				slog.Int("requested", input.Concurrency),
				slog.Int("allowed", maxWorkers))
			input.Concurrency = maxWorkers
		}
	}

	return w, nil
}

func (w *wload) Run(prog *workload.Program) error {
	if prog.Units < 1 || prog.Units > 48 {
		return fmt.Errorf("unit count %d is outside the materializable range [1, 48]", prog.Units)
	}
	total := uint64(w.input.BytesPerUnit) << prog.Units
	numPages := int((total + uint64(w.input.PageSize) - 1) / uint64(w.input.PageSize))

	err := os.MkdirAll(w.hints.BackingStore, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create the backing store directory: %w", err)
	}

	path := filepath.Join(w.hints.BackingStore, fmt.Sprintf("iostress_%s.dat", util.Randstring(8)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create the scratch file: %w", err)
	}
	defer os.Remove(path)
	defer f.Close()

	slog.Debug("iostress streaming state",
		slog.String("path", path),
		slog.Uint64("bytes", total),
		slog.Int("pages", numPages))

	err = w.writePages(f, total, numPages)
	if err != nil {
		return err
	}
	err = f.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync the scratch file: %w", err)
	}
	return w.readPages(f, total, numPages)
}

func (w *wload) writePages(f *os.File, total uint64, numPages int) error {
	pool := pond.New(w.input.Concurrency, 0, pond.MinWorkers(w.input.Concurrency))
	errChan := make(chan error, 1)
	for p := 0; p < numPages; p++ {
		page := p
		pool.Submit(func() {
			buf := make([]byte, w.pageLen(total, page))
			fillPage(buf, page)
			_, err := f.WriteAt(buf, int64(page)*int64(w.input.PageSize))
			if err != nil {
				select {
				case errChan <- fmt.Errorf("writing page %d failed: %w", page, err):
				default:
				}
			}
		})
	}
	pool.StopAndWait()
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

func (w *wload) readPages(f *os.File, total uint64, numPages int) error {
	pool := pond.New(w.input.Concurrency, 0, pond.MinWorkers(w.input.Concurrency))
	errChan := make(chan error, 1)
	for p := 0; p < numPages; p++ {
		page := p
		pool.Submit(func() {
			// Reading the pages back matters, otherwise the writeback cache
			// absorbs the whole run and no read traffic ever hits the disk.
			buf := make([]byte, w.pageLen(total, page))
			_, err := f.ReadAt(buf, int64(page)*int64(w.input.PageSize))
			if err != nil {
				select {
				case errChan <- fmt.Errorf("reading page %d failed: %w", page, err):
				default:
				}
				return
			}
			if len(buf) > 0 && buf[0] != byte(page) {
				select {
				case errChan <- fmt.Errorf("page %d corrupt after readback", page):
				default:
				}
			}
		})
	}
	pool.StopAndWait()
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

func (w *wload) pageLen(total uint64, page int) int {
	n := uint64(w.input.PageSize)
	off := uint64(page) * n
	if rem := total - off; rem < n {
		n = rem
	}
	return int(n)
}

func fillPage(buf []byte, page int) {
	for i := range buf {
		buf[i] = byte(page + i)
	}
}

func (w *wload) GetName() string {
	return w.input.Name
}

func (w *wload) GetInput() map[string]any {
	return util.StructMap(w.input)
}
