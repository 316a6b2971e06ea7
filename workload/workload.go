package workload

import (
	"fmt"
	"strings"
)

// Hints are capacity hints handed through opaquely to workload
// implementations. The harness validates nothing here beyond syntax.
type Hints struct {
	// MemoryBudget bounds in-memory state, e.g. "4GB".
	MemoryBudget string

	// BackingStore is the directory for out-of-core state files.
	BackingStore string
}

type Workload interface {
	// Run executes one program. It blocks until the engine completes and
	// returns an error when the engine reports a fault. No timeout is
	// imposed on the call.
	Run(prog *Program) error

	// A human-friendly name the user can set for this workload. Only used for debugging/printing.
	GetName() string

	// Any input given to this workload by the user. Included in the sweep report. Not used for anything else.
	GetInput() map[string]any
}

type workloadType string

type workloadFactory func(input map[string]any, hints *Hints) (Workload, error)

var workloads map[workloadType]workloadFactory

// All workloads must register themselves at module load time so that deserialization can create a workload of that type.
func Register(wtype string, f workloadFactory) {
	if workloads == nil {
		workloads = map[workloadType]workloadFactory{}
	}
	workloads[workloadType(wtype)] = f
}

type SerializedWorkload struct {
	Type  workloadType
	Input map[string]any
}

func NewSerializedWorkload(wtype string, input map[string]any) *SerializedWorkload {
	return &SerializedWorkload{Type: workloadType(wtype), Input: input}
}

func Deserialize(sw *SerializedWorkload, hints *Hints) (Workload, error) {
	f, ok := workloads[sw.Type]
	if !ok {
		return nil, fmt.Errorf("unknown workload type: %s", sw.Type)
	}
	return f(sw.Input, hints)
}

func ExplainWorkloads() string {
	i := 0
	var sb strings.Builder
	for wtype := range workloads {
		sb.WriteString("\"")
		sb.WriteString(string(wtype))
		sb.WriteString("\"")
		if i < len(workloads)-1 {
			sb.WriteString(", ")
		}
		i++
	}
	return sb.String()
}
