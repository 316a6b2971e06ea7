package enginecmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
	"github.com/mitchellh/mapstructure"
	"github.com/qpaging/qpbench/util"
	"github.com/qpaging/qpbench/workload"
)

type wload struct {
	input *EngineWorkloadInput
	hints workload.Hints
}

type EngineWorkloadInput struct {
	Name          string
	EnginePath    string
	EngineVersion string
	ExtraArgs     []string
}

// request is the argv payload handed to the engine binary.
type request struct {
	Units        int
	Ops          []workload.Op
	MemoryBudget string
	BackingStore string
	StateFile    string
}

// output is the JSON the engine prints on its last line.
type output struct {
	Ok    bool
	Norm  float64
	Error string
}

func init() {
	workload.Register("engine", func(a map[string]any, hints *workload.Hints) (workload.Workload, error) {
		input := &EngineWorkloadInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to EngineWorkloadInput: %w", err)
		}
		return NewEngineWorkload(input, hints)
	})
}

func NewEngineWorkload(input *EngineWorkloadInput, hints *workload.Hints) (workload.Workload, error) {
	if input.EnginePath == "" {
		return nil, fmt.Errorf("engine path must be set")
	}

	if input.EngineVersion != "" {
		if strings.HasPrefix(input.EngineVersion, "v") {
			return nil, fmt.Errorf("engine version must not start with a v")
		}
		v, err := version.NewVersion(input.EngineVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to parse engine version: %w", err)
		}
		segments := v.Segments()
		if segments[0] == 0 && segments[1] < 1 {
			slog.Warn("this workload is not meant to run with engines below 0.1 and may fail in unexpected ways")
		}
	}

	w := &wload{input: input}
	if hints != nil {
		w.hints = *hints
	}
	if w.hints.BackingStore == "" {
		w.hints.BackingStore = os.TempDir()
	}
	return w, nil
}

func (w *wload) Run(prog *workload.Program) error {
	stateFile := filepath.Join(w.hints.BackingStore, fmt.Sprintf("state_%s.bin", uuid.NewString()))
	defer os.Remove(stateFile)

	req := request{
		Units:        prog.Units,
		Ops:          prog.Ops,
		MemoryBudget: w.hints.MemoryBudget,
		BackingStore: w.hints.BackingStore,
		StateFile:    stateFile,
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return err
	}

	args := append([]string{}, w.input.ExtraArgs...)
	args = append(args, string(buf))
	cmd := exec.Command(w.input.EnginePath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("engine run failed: %w: %s", err, string(out))
	}

	line := util.LastNonEmptyLine(out)
	slog.Debug("selected engine output", slog.String("line", line))

	output := output{}
	err = json.Unmarshal([]byte(line), &output)
	if err != nil {
		return fmt.Errorf("unmarshalling engine output failed: %w", err)
	}
	if !output.Ok {
		return fmt.Errorf("engine reported failure: %s", output.Error)
	}

	return nil
}

func (w *wload) GetName() string {
	return w.input.Name
}

func (w *wload) GetInput() map[string]any {
	return util.StructMap(w.input)
}
