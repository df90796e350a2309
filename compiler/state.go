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

// Package compiler implements the ordered pass sequence (Passes 0-8)
// that lowers a patch.Patch into an
// ir.CompiledProgramIR. Each pass is a method on *compileState taking
// the previous pass's output and adding structure; no pass mutates
// earlier results (it reads the previous state and writes new fields).
package compiler

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/irbuilder"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// writerKind orders writer candidates: wire=0,
// bus=1, default=2.
type writerKind int

const (
	writerWire writerKind = iota
	writerBus
	writerDefault
)

// writer is one resolved candidate driving a block input.
type writer struct {
	kind    writerKind
	edge    patch.Edge // wire: port->port edge; bus: listener (bus->port) edge
	sortKey float64
	id      string
}

// resolvedInputSpec is Pass 5's output for one block input.
type resolvedInputSpec struct {
	writers []writer
	policy  ir.CombinePolicy
}

// inputKey addresses one block input across the whole patch.
type inputKey struct {
	block patch.BlockID
	slot  patch.SlotID
}

// compileState threads data through Passes 0-8. Fields are only ever
// appended to by later passes; no pass rewrites an earlier pass's
// field.
type compileState struct {
	blockReg     *registry.BlockRegistry
	transformReg *registry.TransformRegistry
	combineReg   *registry.CombineRegistry

	// enableTrace mirrors CompileOptions.EnableTrace: when set,
	// Pass 8 reserves one DebugProbe (and StepDebugProbe) per block
	// whose registered BlockDef carries a Tags["debugProbe"] entry
	// (value names the capture mode: "scalar", "vec2", "color", or
	// "fieldStats"); the probed slot is the block's first output.
	enableTrace bool

	diags *diagList

	// Pass 0 output
	p0 patch.Patch

	// Pass 1 output
	wires     []patch.Edge
	pubs      []patch.Edge // port->bus
	listeners []patch.Edge // bus->port

	// Pass 2 output: per-edge resolved from/to types (keyed by edge id)
	edgeFromType map[patch.EdgeID]typedesc.TypeDesc
	edgeToType   map[patch.EdgeID]typedesc.TypeDesc

	// Pass 3 output
	timeModel   ir.TimeModelIR
	timeRootID  patch.BlockID
	autoPubs    []patch.Edge // synthesized TimeRoot auto-publications

	// Pass 4 output
	topoOrder []patch.BlockID

	// Pass 5 output
	resolved map[inputKey]resolvedInputSpec

	// Pass 6 output (built incrementally while lowering in topo order)
	outputs map[patch.BlockID]map[patch.SlotID]registry.ValueRef

	// Pass 7 cache: bus id -> combined ValueRef (computed lazily the
	// first time any listener needs it, finalized for every bus at the
	// start of Pass 7 proper so empty buses still materialize).
	busCombine map[patch.BusID]registry.ValueRef

	// renderPasses accumulates RenderPassDesc entries contributed by
	// blocks tagged with a render role during Pass 6 lowering, in topo
	// order, for Pass 8 to fold into a single StepRenderAssemble.
	renderPasses []ir.RenderPassDesc

	bld *irbuilder.Builder
}

func newCompileState(blockReg *registry.BlockRegistry, transformReg *registry.TransformRegistry, combineReg *registry.CombineRegistry, seed uint64, enableTrace bool) *compileState {
	return &compileState{
		blockReg:     blockReg,
		transformReg: transformReg,
		combineReg:   combineReg,
		enableTrace:  enableTrace,
		diags:        &diagList{},
		edgeFromType: make(map[patch.EdgeID]typedesc.TypeDesc),
		edgeToType:   make(map[patch.EdgeID]typedesc.TypeDesc),
		resolved:     make(map[inputKey]resolvedInputSpec),
		outputs:      make(map[patch.BlockID]map[patch.SlotID]registry.ValueRef),
		busCombine:   make(map[patch.BusID]registry.ValueRef),
		bld:          irbuilder.New(seed),
	}
}

func (s *compileState) setOutput(block patch.BlockID, slot patch.SlotID, ref registry.ValueRef) {
	m, ok := s.outputs[block]
	if !ok {
		m = make(map[patch.SlotID]registry.ValueRef)
		s.outputs[block] = m
	}
	m[slot] = ref
}

func (s *compileState) getOutput(block patch.BlockID, slot patch.SlotID) (registry.ValueRef, bool) {
	m, ok := s.outputs[block]
	if !ok {
		return registry.ValueRef{}, false
	}
	v, ok := m[slot]
	return v, ok
}
