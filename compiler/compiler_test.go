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

package compiler_test

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-animator-sub000/blocks"
	"github.com/brandon-fryslie/oscilla-animator-sub000/compiler"
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/runtime"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

func newRegistries(t *testing.T) (*registry.BlockRegistry, *registry.TransformRegistry, *registry.CombineRegistry) {
	t.Helper()
	blockReg := registry.NewBlockRegistry()
	if err := blocks.RegisterAll(blockReg); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return blockReg, registry.NewTransformRegistry(), registry.NewCombineRegistry()
}

func cyclicRootBlock(id patch.BlockID, periodMs float64) patch.Block {
	return patch.Block{ID: id, Type: "CycleTimeRoot", Params: map[string]any{"periodMs": periodMs}}
}

func TestCompileMissingTimeRootIsFatal(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{Blocks: []patch.Block{{ID: "osc", Type: "Oscillator"}}}

	res := compiler.Compile(p, blockReg, transformReg, combineReg, compiler.CompileOptions{})
	if res.IR != nil {
		t.Fatal("expected nil IR when no TimeRoot block is present")
	}
	if !hasCode(res.Diagnostics, compiler.CodeMissingTimeRoot, compiler.SeverityFatal) {
		t.Fatalf("expected a fatal MissingTimeRoot diagnostic, got %+v", res.Diagnostics)
	}
}

func TestCompileMultipleTimeRootsIsFatal(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{Blocks: []patch.Block{
		cyclicRootBlock("root1", 1000),
		cyclicRootBlock("root2", 1000),
	}}

	res := compiler.Compile(p, blockReg, transformReg, combineReg, compiler.CompileOptions{})
	if res.IR != nil {
		t.Fatal("expected nil IR with two TimeRoot blocks")
	}
	if !hasCode(res.Diagnostics, compiler.CodeMultipleTimeRoots, compiler.SeverityFatal) {
		t.Fatalf("expected a fatal MultipleTimeRoots diagnostic, got %+v", res.Diagnostics)
	}
}

func TestCompileBasicOscillatorGraph(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{
		Blocks: []patch.Block{
			cyclicRootBlock("root", 1000),
			{ID: "osc", Type: "Oscillator"},
		},
		Edges: []patch.Edge{
			{ID: "e1", From: patch.Port("root", "phase"), To: patch.Port("osc", "phase"), Enabled: true},
		},
	}

	res := compiler.Compile(p, blockReg, transformReg, combineReg, compiler.CompileOptions{})
	if res.IR == nil {
		t.Fatalf("compile failed: %+v", res.Diagnostics)
	}
	slot, ok := res.IR.Outputs["osc.amplitude"]
	if !ok {
		t.Fatalf("expected a named output osc.amplitude, got %v", res.IR.Outputs)
	}

	if res.IR.Schedule[0].Kind != ir.StepTimeDerive {
		t.Fatalf("schedule must start with StepTimeDerive, got %v", res.IR.Schedule[0].Kind)
	}

	state := runtime.NewStateBuffer()
	exec := runtime.NewExecutor(res.IR, state, runtime.ExecOptions{})
	exec.Step(250, runtime.ModePlayback)
	// phase = 0.25 of a 1000ms cycle, frequency defaults to 1, so
	// amplitude = sin2pi(0.25) = 1.
	got := exec.Values().Get(slot)
	if got < 0.999 || got > 1.001 {
		t.Errorf("osc.amplitude at phase 0.25 = %v, want ~1.0", got)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{
		Blocks: []patch.Block{
			cyclicRootBlock("root", 1000),
			{ID: "osc", Type: "Oscillator"},
		},
		Edges: []patch.Edge{
			{ID: "e1", From: patch.Port("root", "phase"), To: patch.Port("osc", "phase"), Enabled: true},
		},
	}

	opts := compiler.CompileOptions{Seed: 7}
	res1 := compiler.Compile(p, blockReg, transformReg, combineReg, opts)
	res2 := compiler.Compile(p, blockReg, transformReg, combineReg, opts)
	if res1.IR == nil || res2.IR == nil {
		t.Fatalf("both compiles must succeed: %+v / %+v", res1.Diagnostics, res2.Diagnostics)
	}
	if res1.IR.Fingerprint() != res2.IR.Fingerprint() {
		t.Error("two compiles of the same patch+seed must produce identical fingerprints")
	}
}

func TestCompileBusSumCombine(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{
		Blocks: []patch.Block{
			cyclicRootBlock("root", 1000),
			{ID: "c1", Type: "DSConstSignalFloat", Params: map[string]any{"value": idalloc.Value{Kind: idalloc.KindFloat, F64: 2}}},
			{ID: "c2", Type: "DSConstSignalFloat", Params: map[string]any{"value": idalloc.Value{Kind: idalloc.KindFloat, F64: 3}}},
			{ID: "adder", Type: "Add"},
		},
		Buses: []patch.Bus{
			{ID: "sumBus", Type: typedesc.New(typedesc.Signal, typedesc.Float), CombineMode: patch.CombineSum},
		},
		Edges: []patch.Edge{
			{ID: "pub1", From: patch.Port("c1", "out"), To: patch.BusEndpoint("sumBus"), Enabled: true, SortKey: 0},
			{ID: "pub2", From: patch.Port("c2", "out"), To: patch.BusEndpoint("sumBus"), Enabled: true, SortKey: 1},
			{ID: "listen", From: patch.BusEndpoint("sumBus"), To: patch.Port("adder", "a"), Enabled: true},
		},
	}

	res := compiler.Compile(p, blockReg, transformReg, combineReg, compiler.CompileOptions{})
	if res.IR == nil {
		t.Fatalf("compile failed: %+v", res.Diagnostics)
	}
	slot := res.IR.Outputs["adder.out"]

	exec := runtime.NewExecutor(res.IR, runtime.NewStateBuffer(), runtime.ExecOptions{})
	exec.Step(0, runtime.ModePlayback)
	got := exec.Values().Get(slot)
	if got != 5 {
		t.Errorf("adder.out = %v, want 5 (2+3 summed over the bus, b defaults to 0)", got)
	}
}

func TestCompileDetectsWireCycle(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{
		Blocks: []patch.Block{
			cyclicRootBlock("root", 1000),
			{ID: "a1", Type: "Add"},
			{ID: "a2", Type: "Add"},
		},
		Edges: []patch.Edge{
			{ID: "e1", From: patch.Port("a1", "out"), To: patch.Port("a2", "a"), Enabled: true},
			{ID: "e2", From: patch.Port("a2", "out"), To: patch.Port("a1", "a"), Enabled: true},
		},
	}

	res := compiler.Compile(p, blockReg, transformReg, combineReg, compiler.CompileOptions{})
	if res.IR != nil {
		t.Fatal("expected nil IR for a genuine same-frame wire cycle")
	}
	if !hasCode(res.Diagnostics, compiler.CodeCycleDetected, compiler.SeverityFatal) {
		t.Fatalf("expected a fatal CycleDetected diagnostic, got %+v", res.Diagnostics)
	}
}

func TestCompileAllowsStatefulSelfFeedback(t *testing.T) {
	blockReg, transformReg, combineReg := newRegistries(t)
	p := patch.Patch{
		Blocks: []patch.Block{
			cyclicRootBlock("root", 1000),
			{ID: "acc", Type: "Integrate"},
		},
		Edges: []patch.Edge{
			// Integrate's "in" reads the root's phase; the feedback this
			// test is after is the SigState node the block emits
			// internally, which adds no block-level edge and must never
			// be reported as CycleDetected.
			{ID: "e1", From: patch.Port("root", "phase"), To: patch.Port("acc", "in"), Enabled: true},
		},
	}

	res := compiler.Compile(p, blockReg, transformReg, combineReg, compiler.CompileOptions{})
	if res.IR == nil {
		t.Fatalf("a stateful operator's own feedback must not trip cycle detection: %+v", res.Diagnostics)
	}
}

func hasCode(diags []compiler.Diagnostic, code compiler.Code, sev compiler.Severity) bool {
	for _, d := range diags {
		if d.Code == code && d.Severity == sev {
			return true
		}
	}
	return false
}
