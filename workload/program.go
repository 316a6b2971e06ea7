package workload

import (
	"math"
)

// Opcodes understood by the engine.
const (
	OpH       = "h"
	OpCX      = "cx"
	OpRX      = "rx"
	OpMeasure = "measure"
)

// Op is one declarative operation: an opcode, the unit indices it acts on,
// and its numeric parameters.
type Op struct {
	Name    string
	Targets []int
	Params  []float64
}

// Program is the declarative operation list the engine executes over an
// n-unit system.
type Program struct {
	Units int
	Ops   []Op
}

// HeavyProgram is the standard stress program: a superposition layer, an
// entangling chain, a rotation layer, and a final measurement. Every
// amplitude of the full state is touched.
func HeavyProgram(units int) *Program {
	ops := make([]Op, 0, 3*units)
	for i := 0; i < units; i++ {
		ops = append(ops, Op{Name: OpH, Targets: []int{i}})
	}
	for i := 0; i < units-1; i++ {
		ops = append(ops, Op{Name: OpCX, Targets: []int{i, i + 1}})
	}
	for i := 0; i < units; i++ {
		ops = append(ops, Op{Name: OpRX, Targets: []int{i}, Params: []float64{0.5}})
	}
	ops = append(ops, Op{Name: OpMeasure})
	return &Program{Units: units, Ops: ops}
}

// TheoreticalSizeGB is the analytic size of the full state for a unit count:
// 2^units amplitudes at bytesPerUnit bytes each.
func TheoreticalSizeGB(units, bytesPerUnit int) float64 {
	return math.Ldexp(float64(bytesPerUnit), units) / (1 << 30)
}
