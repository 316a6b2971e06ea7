package workload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type spyWorkload struct {
	input map[string]any
	hints *Hints
}

func (s *spyWorkload) Run(prog *Program) error { return nil }

func (s *spyWorkload) GetName() string { return "spy" }

func (s *spyWorkload) GetInput() map[string]any { return s.input }

func TestDeserializeUnknownType(t *testing.T) {
	_, err := Deserialize(&SerializedWorkload{Type: "no-such-workload"}, nil)
	require.ErrorContains(t, err, "unknown workload type")
}

func TestDeserializeDispatchesToFactory(t *testing.T) {
	Register("spy", func(input map[string]any, hints *Hints) (Workload, error) {
		return &spyWorkload{input: input, hints: hints}, nil
	})

	hints := &Hints{MemoryBudget: "1GB", BackingStore: t.TempDir()}
	w, err := Deserialize(&SerializedWorkload{
		Type:  "spy",
		Input: map[string]any{"Name": "sweep"},
	}, hints)
	require.NoError(t, err)

	spy, ok := w.(*spyWorkload)
	require.True(t, ok)
	require.Equal(t, "sweep", spy.input["Name"])
	require.Same(t, hints, spy.hints)
}
