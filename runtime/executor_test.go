// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package runtime

import (
	"math"
	"testing"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

var sigFloat = typedesc.New(typedesc.Signal, typedesc.Float)

// handProg assembles a CompiledProgramIR directly: a leading time slot,
// then one slot range per signal (advancing by arity), and one NodeEval
// step per signal in table order.
func handProg(tm ir.TimeModelIR, constants []idalloc.Value, signals []ir.SigExprIR) *ir.CompiledProgramIR {
	metas := []idalloc.SlotMeta{{Type: sigFloat, Start: 0, Arity: 1}}
	schedule := ir.Schedule{{Kind: ir.StepTimeDerive, TimeOutSlot: 0}}
	next := idalloc.ValueSlot(1)
	for i := range signals {
		arity := typedesc.GetArity(signals[i].Type)
		metas = append(metas, idalloc.SlotMeta{Type: signals[i].Type, Start: next, Arity: arity})
		schedule = append(schedule, ir.Step{Kind: ir.StepNodeEval, SigID: idalloc.SigExprId(i), OutSlot: next})
		next += idalloc.ValueSlot(arity)
	}
	return &ir.CompiledProgramIR{
		IRVersion: ir.IRVersion,
		TimeModel: tm,
		Signals:   signals,
		Constants: constants,
		SlotMetas: metas,
		Schedule:  schedule,
	}
}

// Evaluating the same SigExprId twice within a frame performs the
// computation at most once.
func TestFrameCacheEvaluatesSharedNodeOnce(t *testing.T) {
	calls := 0
	unaryKernels["countedDouble"] = func(x float64) float64 {
		calls++
		return x * 2
	}
	defer delete(unaryKernels, "countedDouble")

	prog := handProg(
		ir.TimeModelIR{Kind: ir.TimeCyclic, PeriodMs: 1000},
		[]idalloc.Value{{Kind: idalloc.KindFloat, F64: 3}},
		[]ir.SigExprIR{
			{Op: ir.SigConst, Type: sigFloat, Const: 0},
			{Op: ir.SigMap, Type: sigFloat, A: 0, Kernel: "countedDouble"},
			// the shared node feeds both operands of the zip
			{Op: ir.SigZip, Type: sigFloat, A: 1, B: 1, Kernel: "add"},
		},
	)

	exec := NewExecutor(prog, NewStateBuffer(), ExecOptions{})
	exec.Step(0, ModePlayback)
	if got := exec.Values().Get(3); got != 12 {
		t.Errorf("zip slot = %v, want 12 (3*2 + 3*2)", got)
	}
	if calls != 1 {
		t.Errorf("shared kernel ran %d times in one frame, want 1", calls)
	}

	exec.Step(16, ModePlayback)
	if calls != 2 {
		t.Errorf("cache must clear across frames: kernel ran %d times total, want 2", calls)
	}
}

// A recompile (modeled as a fresh Executor) sharing the same
// StateBuffer preserves each surviving StateSlot's value exactly.
func TestIntegrateStatePersistsAcrossExecutors(t *testing.T) {
	slot := idalloc.StateSlotFor("acc", "accum")
	prog := handProg(
		ir.TimeModelIR{Kind: ir.TimeInfinite, WindowMs: 10000},
		[]idalloc.Value{{Kind: idalloc.KindFloat, F64: 1}, {Kind: idalloc.KindFloat, F64: 0}},
		[]ir.SigExprIR{
			{Op: ir.SigConst, Type: sigFloat, Const: 0},                            // rate = 1/s
			{Op: ir.SigIntegrate, Type: sigFloat, A: 0},                            // update
			{Op: ir.SigState, Type: sigFloat, A: 1, InitConst: 1, StateSlot: slot}, // accumulator
		},
	)

	state := NewStateBuffer()
	exec := NewExecutor(prog, state, ExecOptions{})
	exec.Step(0, ModePlayback)
	exec.Step(1000, ModePlayback)
	if got := exec.Values().Get(3); math.Abs(got-1) > 1e-9 {
		t.Fatalf("integrating rate 1 over 1s = %v, want 1", got)
	}

	// hot-swap: new executor, same state buffer. Its first frame has no
	// previous time, so the large implied delta routes to the scrub
	// branch and the accumulator holds its last known value.
	exec2 := NewExecutor(prog, state, ExecOptions{})
	exec2.Step(1200, ModePlayback)
	if got := exec2.Values().Get(3); math.Abs(got-1) > 1e-9 {
		t.Errorf("state after swap-in = %v, want 1 (preserved by StateSlot key)", got)
	}
}

func TestIntegrateHoldsDuringScrub(t *testing.T) {
	slot := idalloc.StateSlotFor("acc2", "accum")
	prog := handProg(
		ir.TimeModelIR{Kind: ir.TimeInfinite, WindowMs: 10000},
		[]idalloc.Value{{Kind: idalloc.KindFloat, F64: 1}, {Kind: idalloc.KindFloat, F64: 0}},
		[]ir.SigExprIR{
			{Op: ir.SigConst, Type: sigFloat, Const: 0},
			{Op: ir.SigIntegrate, Type: sigFloat, A: 0},
			{Op: ir.SigState, Type: sigFloat, A: 1, InitConst: 1, StateSlot: slot},
		},
	)

	exec := NewExecutor(prog, NewStateBuffer(), ExecOptions{})
	exec.Step(0, ModePlayback)
	exec.Step(500, ModePlayback)
	before := exec.Values().Get(3)
	exec.Step(100, ModeScrub) // backward scrub: no phantom catch-up
	after := exec.Values().Get(3)
	if before != after {
		t.Errorf("scrub changed an integrator from %v to %v; it must hold", before, after)
	}
}

func TestDelayMsEmitsPreviousFrameValue(t *testing.T) {
	slot := idalloc.StateSlotFor("dly", "accum")
	prog := handProg(
		ir.TimeModelIR{Kind: ir.TimeCyclic, PeriodMs: 1000},
		[]idalloc.Value{{Kind: idalloc.KindFloat, F64: 0}},
		[]ir.SigExprIR{
			{Op: ir.SigPhase01, Type: sigFloat},
			{Op: ir.SigDelayMs, Type: sigFloat, A: 0},
			{Op: ir.SigState, Type: sigFloat, A: 1, InitConst: 0, StateSlot: slot},
		},
	)

	exec := NewExecutor(prog, NewStateBuffer(), ExecOptions{})
	exec.Step(100, ModePlayback)
	if got := exec.Values().Get(3); got != 0 {
		t.Errorf("first frame delay output = %v, want init 0", got)
	}
	exec.Step(200, ModePlayback)
	if got := exec.Values().Get(3); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("second frame delay output = %v, want previous frame's 0.1", got)
	}
}

func TestStepFailureFillsDefaultAndLogs(t *testing.T) {
	// a SigMap referencing an out-of-range source: the step logs and
	// writes the type's default (0) instead of aborting the frame.
	prog := handProg(
		ir.TimeModelIR{Kind: ir.TimeCyclic, PeriodMs: 1000},
		nil,
		[]ir.SigExprIR{
			{Op: ir.SigMap, Type: sigFloat, A: 99, Kernel: "identity"},
		},
	)

	var logged []string
	exec := NewExecutor(prog, NewStateBuffer(), ExecOptions{Logger: logFunc(func(s string) { logged = append(logged, s) })})
	exec.Step(0, ModePlayback)
	if got := exec.Values().Get(1); got != 0 {
		t.Errorf("failed node slot = %v, want default 0", got)
	}
	if len(logged) == 0 {
		t.Error("a failing step must be logged")
	}
}

type logFunc func(string)

func (f logFunc) Logf(format string, args ...any) { f(format) }
