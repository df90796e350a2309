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

package harness_test

import (
	"math"
	"strings"
	"testing"

	"github.com/brandon-fryslie/oscilla-animator-sub000/compiler"
	"github.com/brandon-fryslie/oscilla-animator-sub000/harness"
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/runtime"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

const oscillatorFixture = `
blocks:
  - id: root
    type: CycleTimeRoot
    params:
      periodMs: 1000
  - id: osc
    type: Oscillator
edges:
  - id: e1
    from: {block: root, slot: phase}
    to: {block: osc, slot: phase}
buses:
  - id: energy
    world: signal
    domain: float
    combine: sum
`

// LoadPatchYAML is the declarative fixture front end; a
// decoded fixture runs through the same pipeline as a hand-built patch.
func TestLoadPatchYAMLFixtureRuns(t *testing.T) {
	p, err := harness.LoadPatchYAML(strings.NewReader(oscillatorFixture))
	if err != nil {
		t.Fatalf("LoadPatchYAML: %v", err)
	}
	if len(p.Blocks) != 2 || len(p.Edges) != 1 || len(p.Buses) != 1 {
		t.Fatalf("decoded patch shape: %d blocks, %d edges, %d buses", len(p.Blocks), len(p.Edges), len(p.Buses))
	}
	if p.Edges[0].Enabled != true {
		t.Error("an edge with no enabled key must default to enabled")
	}
	if p.Buses[0].CombineMode != patch.CombineSum {
		t.Errorf("bus combine = %v, want sum", p.Buses[0].CombineMode)
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{{TAbsMs: 250, Mode: runtime.ModePlayback}})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	approxEqual(t, res.Frames[0].Outputs["osc.amplitude"], 1, 1e-6, "osc.amplitude at phase 0.25")
}

func approxEqual(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want ~%v", msg, got, want)
	}
}

// Cyclic wrap. One CycleTimeRoot{periodMs:1000},
// one Oscillator consuming its phase, one RenderInstances2D rendering a
// circle whose radius is the oscillator's amplitude. Frames at
// t_abs=900,1100,1200 under playback: F1 no wrap, F2 wraps with
// {phase:0.1, count:1, deltaMs:200}, F3 no wrap.
func TestCyclicWrapFiresOncePerBoundary(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "osc", Type: "Oscillator"},
			{ID: "dot", Type: "RenderInstances2D"},
		},
		Edges: []patch.Edge{
			{ID: "e1", From: patch.Port("root", "phase"), To: patch.Port("osc", "phase"), Enabled: true},
			{ID: "e2", From: patch.Port("osc", "amplitude"), To: patch.Port("dot", "radius"), Enabled: true},
		},
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{
		{TAbsMs: 900, Mode: runtime.ModePlayback},
		{TAbsMs: 1100, Mode: runtime.ModePlayback},
		{TAbsMs: 1200, Mode: runtime.ModePlayback},
	})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}

	f1, f2, f3 := res.Frames[0], res.Frames[1], res.Frames[2]
	approxEqual(t, f1.Outputs["root.phase"], 0.9, 1e-9, "F1 phase01")
	approxEqual(t, f2.Outputs["root.phase"], 0.1, 1e-9, "F2 phase01")
	approxEqual(t, f3.Outputs["root.phase"], 0.2, 1e-9, "F3 phase01")
	if f1.Wrapped {
		t.Error("F1 (t=900) must not wrap")
	}
	if f3.Wrapped {
		t.Error("F3 (t=1200) must not wrap")
	}
	if !f2.Wrapped {
		t.Fatal("F2 (t=1100) must wrap exactly once crossing the 1000ms boundary")
	}
	approxEqual(t, f2.WrapPhase, 0.1, 1e-9, "F2 wrap payload phase")
	approxEqual(t, f2.WrapDeltaMs, 200, 1e-9, "F2 wrap payload deltaMs")
	if f2.WrapCount != 1 {
		t.Errorf("F2 wrap payload count = %d, want 1", f2.WrapCount)
	}
	if len(f1.Passes) != 1 || f1.Passes[0].Material != "disc" {
		t.Fatalf("expected one disc render pass from RenderInstances2D, got %+v", f1.Passes)
	}
}

// Default materialization. A single Oscillator
// with its "frequency" and "phase" inputs unconnected materializes a
// hidden default provider for each; compilation succeeds with no
// error diagnostics and the amplitude reads the defaulted value.
func TestUnconnectedInputsMaterializeDefaults(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "osc", Type: "Oscillator"},
		},
		// phase is also left unconnected; both frequency and phase get
		// their own hidden default-source provider via Pass 0.
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{{TAbsMs: 0, Mode: runtime.ModePlayback}})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	for _, d := range res.Compiled.Diagnostics {
		if d.Severity != compiler.SeverityInfo && d.Severity != compiler.SeverityWarning {
			t.Errorf("unexpected non-warning diagnostic: %+v", d)
		}
	}
	slot, ok := res.Compiled.IR.Outputs["osc.amplitude"]
	if !ok {
		t.Fatal("expected osc.amplitude in IR outputs")
	}
	got := res.Executor.Values().Get(slot)
	// frequency defaults to 1, phase defaults to 0: sin2pi(0) = 0.
	approxEqual(t, got, 0, 1e-6, "osc.amplitude with both inputs defaulted")
}

// Empty bus. A listener targets bus "energy" with
// zero publishers; bus type is signal<float> with default 0. No
// UnconnectedInput error; the listener reads 0.
func TestEmptyBusReadsDeclaredDefault(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "adder", Type: "Add"},
		},
		Buses: []patch.Bus{
			{ID: "energy", Type: typedesc.New(typedesc.Signal, typedesc.Float), CombineMode: patch.CombineSum},
		},
		Edges: []patch.Edge{
			{ID: "listen", From: patch.BusEndpoint("energy"), To: patch.Port("adder", "a"), Enabled: true},
		},
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{{TAbsMs: 0, Mode: runtime.ModePlayback}})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	for _, d := range res.Compiled.Diagnostics {
		if d.Code == compiler.CodeUnconnectedInput {
			t.Errorf("empty bus must not surface UnconnectedInput: %+v", d)
		}
	}
	slot := res.Compiled.IR.Outputs["adder.out"]
	got := res.Executor.Values().Get(slot)
	approxEqual(t, got, 0, 1e-9, "adder.out reading an empty bus")
}

// A disabled bus listener must not count as driving its input: the
// input still falls through to its declared default.
func TestDisabledBusListenerStillDefaults(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "adder", Type: "Add"},
		},
		Buses: []patch.Bus{
			{ID: "energy", Type: typedesc.New(typedesc.Signal, typedesc.Float), CombineMode: patch.CombineSum},
		},
		Edges: []patch.Edge{
			{ID: "listen", From: patch.BusEndpoint("energy"), To: patch.Port("adder", "a"), Enabled: false},
		},
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{{TAbsMs: 0, Mode: runtime.ModePlayback}})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	for _, d := range res.Compiled.Diagnostics {
		if d.Code == compiler.CodeUnconnectedInput {
			t.Errorf("a disabled listener must not leave the input truly unconnected: %+v", d)
		}
	}
	slot := res.Compiled.IR.Outputs["adder.out"]
	got := res.Executor.Values().Get(slot)
	approxEqual(t, got, 0, 1e-9, "adder.out with only a disabled listener (default-sourced 0)")
}

// Scrub suppression, same patch as the cyclic-wrap test. Calling the
// executor with mode='scrub' and frames t_abs=1200,100 fires no wrap
// events; phase01 is 0.2 then 0.1.
func TestScrubSuppressesWrapEvents(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "osc", Type: "Oscillator"},
		},
		Edges: []patch.Edge{
			{ID: "e1", From: patch.Port("root", "phase"), To: patch.Port("osc", "phase"), Enabled: true},
		},
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{
		{TAbsMs: 1200, Mode: runtime.ModeScrub},
		{TAbsMs: 100, Mode: runtime.ModeScrub},
	})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	for i, f := range res.Frames {
		if f.Wrapped {
			t.Errorf("frame %d: scrubbing must never fire a wrap event", i)
		}
		if !f.IsScrub {
			t.Errorf("frame %d: mode=scrub must report IsScrub", i)
		}
	}
	approxEqual(t, res.Frames[0].Outputs["root.phase"], 0.2, 1e-9, "scrub frame 1 phase01")
	approxEqual(t, res.Frames[1].Outputs["root.phase"], 0.1, 1e-9, "scrub frame 2 phase01")
}

// Type mismatch with adapter. A wire from
// signal<float> to signal<vec2> compiles when the edge names a
// registered "float->vec2" adapter, and reports a TypeMismatch naming
// the edge (while still producing IR) when it doesn't.
func TestAdapterBridgesFloatToVec2Wire(t *testing.T) {
	vec2Sink := registry.BlockDef{
		Type: "Vec2Sink",
		Inputs: []registry.PortDecl{
			{ID: "in", Type: typedesc.New(typedesc.Signal, typedesc.Vec2)},
		},
		Outputs: []registry.PortDecl{{ID: "out", Type: typedesc.New(typedesc.Signal, typedesc.Vec2)}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			ref, err := ctx.ResolveInput("in")
			if err != nil {
				return nil, err
			}
			return map[patch.SlotID]registry.ValueRef{"out": ref}, nil
		},
	}
	floatSrc := registry.BlockDef{
		Type:    "FloatSrc",
		Outputs: []registry.PortDecl{{ID: "out", Type: typedesc.New(typedesc.Signal, typedesc.Float)}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			id := ctx.Builder().SigConst(idalloc.Value{Kind: idalloc.KindFloat, F64: 3}, typedesc.New(typedesc.Signal, typedesc.Float))
			return map[patch.SlotID]registry.ValueRef{"out": {Sig: id, Type: typedesc.New(typedesc.Signal, typedesc.Float)}}, nil
		},
	}

	buildPatch := func(withAdapter bool) patch.Patch {
		edge := patch.Edge{ID: "e1", From: patch.Port("src", "out"), To: patch.Port("sink", "in"), Enabled: true}
		if withAdapter {
			edge.Transforms = []patch.TransformStep{{ID: "float->vec2"}}
		}
		return patch.Patch{
			Blocks: []patch.Block{
				{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
				{ID: "src", Type: "FloatSrc"},
				{ID: "sink", Type: "Vec2Sink"},
			},
			Edges: []patch.Edge{edge},
		}
	}

	blockReg, transformReg, combineReg, err := harness.NewRegistries()
	if err != nil {
		t.Fatal(err)
	}
	if err := blockReg.Register(vec2Sink); err != nil {
		t.Fatal(err)
	}
	if err := blockReg.Register(floatSrc); err != nil {
		t.Fatal(err)
	}
	transformReg.Register(registry.TransformDef{
		ID:         "float->vec2",
		InputType:  typedesc.New(typedesc.Signal, typedesc.Float),
		OutputType: typedesc.New(typedesc.Signal, typedesc.Vec2),
		CompileToIR: func(ref registry.ValueRef, params map[string]any, ctx registry.LowerCtx) (registry.ValueRef, error) {
			out := ctx.Builder().SigMap(ref.Sig, "broadcastVec2", typedesc.New(typedesc.Signal, typedesc.Vec2))
			return registry.ValueRef{Sig: out, Type: typedesc.New(typedesc.Signal, typedesc.Vec2)}, nil
		},
	})

	withRes, err := harness.CompileAndRunWith(buildPatch(true), []harness.Frame{
		{TAbsMs: 0, Mode: runtime.ModePlayback},
	}, blockReg, transformReg, combineReg, compiler.CompileOptions{}, runtime.ExecOptions{})
	if err != nil {
		t.Fatalf("compile with adapter must succeed: %v / %+v", err, withRes.Compiled.Diagnostics)
	}
	for _, d := range withRes.Compiled.Diagnostics {
		if d.Code == compiler.CodeTypeMismatch {
			t.Errorf("compile with a registered adapter must not report TypeMismatch: %+v", d)
		}
	}
	// the sink sees the broadcast value in both lanes, not just lane 0
	sinkSlot, ok := withRes.Compiled.IR.Outputs["sink.out"]
	if !ok {
		t.Fatalf("expected sink.out in IR outputs, got %v", withRes.Compiled.IR.Outputs)
	}
	vec := withRes.Executor.Values().GetVec(sinkSlot, 2)
	if vec[0] != 3 || vec[1] != 3 {
		t.Errorf("adapted vec2 = %v, want [3 3] (scalar 3 broadcast into both lanes)", vec)
	}

	withoutRes, _ := harness.CompileAndRunWith(buildPatch(false), nil, blockReg, transformReg, combineReg, compiler.CompileOptions{}, runtime.ExecOptions{})
	// TypeMismatch is recoverable: the compile still yields
	// an IR that runs with defaults, but the diagnostic must name the
	// offending edge.
	if withoutRes.Compiled.IR == nil {
		t.Fatalf("a recoverable TypeMismatch must still yield a runnable IR: %+v", withoutRes.Compiled.Diagnostics)
	}
	found := false
	for _, d := range withoutRes.Compiled.Diagnostics {
		if d.Code == compiler.CodeTypeMismatch {
			found = true
			if d.Where.EdgeID != "e1" {
				t.Errorf("TypeMismatch must point at edge e1, got %+v", d.Where)
			}
		}
	}
	if !found {
		t.Fatalf("expected a TypeMismatch diagnostic without the adapter, got %+v", withoutRes.Compiled.Diagnostics)
	}
}

// An unconnected vec2 input gets its configured default vector at
// runtime, every lane intact, via the hidden provider materialized for
// it.
func TestVecDefaultProviderSuppliesConfiguredValue(t *testing.T) {
	tVec2 := typedesc.New(typedesc.Signal, typedesc.Vec2)
	hold := registry.BlockDef{
		Type: "Vec2Hold",
		Inputs: []registry.PortDecl{
			{ID: "in", Type: tVec2, DefaultSource: &registry.DefaultSource{
				Value: idalloc.Value{Kind: idalloc.KindVec, Vec: []float64{7, 9}},
			}},
		},
		Outputs: []registry.PortDecl{{ID: "out", Type: tVec2}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			ref, err := ctx.ResolveInput("in")
			if err != nil {
				return nil, err
			}
			return map[patch.SlotID]registry.ValueRef{"out": ref}, nil
		},
	}

	blockReg, transformReg, combineReg, err := harness.NewRegistries()
	if err != nil {
		t.Fatal(err)
	}
	if err := blockReg.Register(hold); err != nil {
		t.Fatal(err)
	}

	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "hold", Type: "Vec2Hold"},
		},
	}
	res, err := harness.CompileAndRunWith(p, []harness.Frame{
		{TAbsMs: 0, Mode: runtime.ModePlayback},
	}, blockReg, transformReg, combineReg, compiler.CompileOptions{}, runtime.ExecOptions{})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	slot, ok := res.Compiled.IR.Outputs["hold.out"]
	if !ok {
		t.Fatalf("expected hold.out in IR outputs, got %v", res.Compiled.IR.Outputs)
	}
	vec := res.Executor.Values().GetVec(slot, 2)
	if vec[0] != 7 || vec[1] != 9 {
		t.Errorf("defaulted vec2 = %v, want [7 9]", vec)
	}
}

// Multi-input combine. An input declared
// combine:{when:'multi', mode:'sum'} wired from three constant sources
// with values 1, 2, 3 reads 6 every frame.
func TestMultiInputSumCombine(t *testing.T) {
	sumSink := registry.BlockDef{
		Type: "SumSink",
		Inputs: []registry.PortDecl{
			{
				ID:      "in",
				Type:    typedesc.New(typedesc.Signal, typedesc.Float),
				Combine: &ir.CombinePolicy{When: ir.WhenMulti, Mode: ir.CombineSum},
			},
		},
		Outputs: []registry.PortDecl{{ID: "out", Type: typedesc.New(typedesc.Signal, typedesc.Float)}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			ref, err := ctx.ResolveInput("in")
			if err != nil {
				return nil, err
			}
			return map[patch.SlotID]registry.ValueRef{"out": ref}, nil
		},
	}

	blockReg, transformReg, combineReg, err := harness.NewRegistries()
	if err != nil {
		t.Fatal(err)
	}
	if err := blockReg.Register(sumSink); err != nil {
		t.Fatal(err)
	}

	constBlock := func(id patch.BlockID, v float64) patch.Block {
		return patch.Block{ID: id, Type: "DSConstSignalFloat", Params: map[string]any{
			"value": idalloc.Value{Kind: idalloc.KindFloat, F64: v},
		}}
	}
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			constBlock("c1", 1),
			constBlock("c2", 2),
			constBlock("c3", 3),
			{ID: "sink", Type: "SumSink"},
		},
		Edges: []patch.Edge{
			{ID: "w1", From: patch.Port("c1", "out"), To: patch.Port("sink", "in"), Enabled: true, SortKey: 0},
			{ID: "w2", From: patch.Port("c2", "out"), To: patch.Port("sink", "in"), Enabled: true, SortKey: 1},
			{ID: "w3", From: patch.Port("c3", "out"), To: patch.Port("sink", "in"), Enabled: true, SortKey: 2},
		},
	}

	res, err := harness.CompileAndRunWith(p, []harness.Frame{
		{TAbsMs: 0, Mode: runtime.ModePlayback},
		{TAbsMs: 16, Mode: runtime.ModePlayback},
	}, blockReg, transformReg, combineReg, compiler.CompileOptions{}, runtime.ExecOptions{})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	for i, f := range res.Frames {
		approxEqual(t, f.Outputs["sink.out"], 6, 1e-9, "sink.out frame "+string(rune('1'+i)))
	}
}

// EnableTrace reserves a DebugProbe step for every block type tagged
// "debugProbe"; with a capturing TraceController attached, each frame
// appends one record per probe to the ring buffer.
func TestDebugProbeCapturesTaggedBlockOutput(t *testing.T) {
	probed := registry.BlockDef{
		Type:    "ProbeConst",
		Outputs: []registry.PortDecl{{ID: "out", Type: typedesc.New(typedesc.Signal, typedesc.Float)}},
		Tags:    map[string]string{"debugProbe": "scalar"},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			id := ctx.Builder().SigConst(idalloc.Value{Kind: idalloc.KindFloat, F64: 42}, typedesc.New(typedesc.Signal, typedesc.Float))
			return map[patch.SlotID]registry.ValueRef{"out": {Sig: id, Type: typedesc.New(typedesc.Signal, typedesc.Float)}}, nil
		},
	}

	blockReg, transformReg, combineReg, err := harness.NewRegistries()
	if err != nil {
		t.Fatal(err)
	}
	if err := blockReg.Register(probed); err != nil {
		t.Fatal(err)
	}

	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "pc", Type: "ProbeConst"},
		},
	}

	ctl := runtime.NewTraceController()
	ctl.SetMode(runtime.TraceCapturing)
	rb, err := runtime.NewTraceRingBuffer(16)
	if err != nil {
		t.Fatal(err)
	}

	res, err := harness.CompileAndRunWith(p, []harness.Frame{
		{TAbsMs: 0, Mode: runtime.ModePlayback},
		{TAbsMs: 16, Mode: runtime.ModePlayback},
	}, blockReg, transformReg, combineReg,
		compiler.CompileOptions{EnableTrace: true},
		runtime.ExecOptions{Trace: ctl, Traces: rb})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	if len(res.Compiled.IR.DebugProbes) != 1 {
		t.Fatalf("DebugProbes = %d, want 1 (only ProbeConst is tagged)", len(res.Compiled.IR.DebugProbes))
	}
	if rb.Len() != 2 {
		t.Fatalf("captured records = %d, want 2 (one per frame)", rb.Len())
	}
	recs, err := rb.Records()
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range recs {
		if len(r.Lanes) != 1 || r.Lanes[0] != 42 {
			t.Errorf("record %d lanes = %v, want [42]", i, r.Lanes)
		}
	}
}

// A "gain" lens on an edge scales the value before the destination
// block sees it; the stock transforms registry ships it.
func TestGainLensScalesWireValue(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "c1", Type: "DSConstSignalFloat", Params: map[string]any{
				"value": idalloc.Value{Kind: idalloc.KindFloat, F64: 2},
			}},
			{ID: "adder", Type: "Add"},
		},
		Edges: []patch.Edge{
			{
				ID: "e1", From: patch.Port("c1", "out"), To: patch.Port("adder", "a"), Enabled: true,
				Transforms: []patch.TransformStep{{ID: "gain", Params: map[string]any{"factor": 10.0}}},
			},
		},
	}

	res, err := harness.CompileAndRun(p, []harness.Frame{{TAbsMs: 0, Mode: runtime.ModePlayback}})
	if err != nil {
		t.Fatalf("compile/run failed: %v", err)
	}
	approxEqual(t, res.Frames[0].Outputs["adder.out"], 20, 1e-9, "adder.out with gain(10) on a constant 2")
}
