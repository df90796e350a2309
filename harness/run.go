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

package harness

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-animator-sub000/blocks"
	"github.com/brandon-fryslie/oscilla-animator-sub000/compiler"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/runtime"
	"github.com/brandon-fryslie/oscilla-animator-sub000/transforms"
)

// Frame is one requested execution step.
type Frame struct {
	TAbsMs float64
	Mode   runtime.PlaybackMode
}

// FrameOutput is everything one Frame produced.
type FrameOutput struct {
	IsScrub     bool
	Wrapped     bool
	WrapPhase   float64
	WrapCount   int64
	WrapDeltaMs float64
	Passes      []ir.RenderPassDesc
	// Outputs mirrors CompiledProgramIR.Outputs, read back from the
	// value store after the frame ran.
	Outputs map[string]float64
}

// RunResult is CompileAndRun's full result: the compiler's own result
// (IR plus diagnostics) and one FrameOutput per requested frame.
type RunResult struct {
	Compiled compiler.CompileResult
	Executor *runtime.Executor
	State    *runtime.StateBuffer
	Frames   []FrameOutput
}

// NewRegistries builds a fresh block/transform/combine registry set
// with every block type and transform this module ships registered.
// Tests needing a custom block
// type (e.g. to exercise a DebugProbe) should register additional types
// into the returned registries before compiling.
func NewRegistries() (*registry.BlockRegistry, *registry.TransformRegistry, *registry.CombineRegistry, error) {
	blockReg := registry.NewBlockRegistry()
	if err := blocks.RegisterAll(blockReg); err != nil {
		return nil, nil, nil, fmt.Errorf("harness: register blocks: %w", err)
	}
	transformReg := registry.NewTransformRegistry()
	transforms.RegisterAll(transformReg)
	return blockReg, transformReg, registry.NewCombineRegistry(), nil
}

// CompileAndRun compiles p with default options against the stock block
// registry and executes it once per entry in frames, returning every
// frame's result.
func CompileAndRun(p patch.Patch, frames []Frame) (RunResult, error) {
	return CompileAndRunOpts(p, frames, compiler.CompileOptions{}, runtime.ExecOptions{})
}

// CompileAndRunOpts is CompileAndRun with caller-supplied compile and
// execution options, for tests exercising EnableTrace or a shared
// ExecOptions.Logger/Trace pair.
func CompileAndRunOpts(p patch.Patch, frames []Frame, opts compiler.CompileOptions, execOpts runtime.ExecOptions) (RunResult, error) {
	blockReg, transformReg, combineReg, err := NewRegistries()
	if err != nil {
		return RunResult{}, err
	}
	return CompileAndRunWith(p, frames, blockReg, transformReg, combineReg, opts, execOpts)
}

// CompileAndRunWith is CompileAndRunOpts with a caller-supplied registry
// set, for tests that register extra block types (e.g. a
// "debugProbe"-tagged test-only block) before compiling.
func CompileAndRunWith(
	p patch.Patch,
	frames []Frame,
	blockReg *registry.BlockRegistry,
	transformReg *registry.TransformRegistry,
	combineReg *registry.CombineRegistry,
	opts compiler.CompileOptions,
	execOpts runtime.ExecOptions,
) (RunResult, error) {
	res := compiler.Compile(p, blockReg, transformReg, combineReg, opts)
	out := RunResult{Compiled: res}
	if res.IR == nil {
		return out, fmt.Errorf("harness: compile failed: %+v", res.Diagnostics)
	}

	state := runtime.NewStateBuffer()
	exec := runtime.NewExecutor(res.IR, state, execOpts)
	out.Executor = exec
	out.State = state

	for _, f := range frames {
		fr := exec.Step(f.TAbsMs, f.Mode)
		outputs := make(map[string]float64, len(res.IR.Outputs))
		for name, slot := range res.IR.Outputs {
			outputs[name] = exec.Values().Get(slot)
		}
		out.Frames = append(out.Frames, FrameOutput{
			IsScrub:     fr.IsScrub,
			Wrapped:     fr.Wrapped,
			WrapPhase:   fr.WrapPhase,
			WrapCount:   fr.WrapCount,
			WrapDeltaMs: fr.WrapDeltaMs,
			Passes:      fr.Passes,
			Outputs:     outputs,
		})
	}
	return out, nil
}
