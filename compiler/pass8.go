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

package compiler

import (
	"sort"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// defaultFieldElementCount is used when a block doesn't declare its own
// element count via Params["elementCount"]; real element counts are a
// block-registration concern the render package resolves at runtime.
const defaultFieldElementCount = 64

// pass8 builds the frame schedule -- one TimeDerive step, then one
// NodeEval step per signal node in builder emission order (which is
// already a valid topological order: a node can only reference an id
// allocated before it, barring SigState's legal self-reference) --
// binds the named output table, and freezes everything via
// irbuilder.Builder.Finish.
func (s *compileState) pass8() (*ir.CompiledProgramIR, error) {
	alloc := s.bld.Alloc()

	timeSlot, err := alloc.AllocValueSlot(typedesc.New(typedesc.Signal, typedesc.Float))
	if err != nil {
		return nil, err
	}
	var wrapSlot idalloc.EventSlot
	if s.timeModel.Kind == ir.TimeCyclic {
		wrapSlot = alloc.AllocEventSlot()
	}

	schedule := ir.Schedule{{Kind: ir.StepTimeDerive, TimeOutSlot: timeSlot, WrapEventSlot: wrapSlot}}

	numSig := s.bld.NumSignals()
	sigSlot := make([]idalloc.ValueSlot, numSig)
	for id := 0; id < numSig; id++ {
		sigID := idalloc.SigExprId(id)
		slot, err := alloc.AllocValueSlot(s.bld.SignalType(sigID))
		if err != nil {
			return nil, err
		}
		alloc.RegisterSigSlot(sigID, slot)
		sigSlot[id] = slot
		schedule = append(schedule, ir.Step{Kind: ir.StepNodeEval, SigID: sigID, OutSlot: slot})
	}

	outputs := make(map[string]idalloc.ValueSlot)
	materializedField := make(map[idalloc.FieldExprId]bool)
	var fieldSteps []ir.Step

	for _, blockID := range s.sortedOutputBlockIDs() {
		slots := s.outputs[blockID]
		slotIDs := make([]patch.SlotID, 0, len(slots))
		for slotID := range slots {
			slotIDs = append(slotIDs, slotID)
		}
		sort.Slice(slotIDs, func(i, j int) bool { return slotIDs[i] < slotIDs[j] })

		for _, slotID := range slotIDs {
			ref := slots[slotID]
			name := string(blockID) + "." + string(slotID)
			if ref.IsField {
				if !materializedField[ref.Field] {
					materializedField[ref.Field] = true
					count := defaultFieldElementCount
					fieldSteps = append(fieldSteps, ir.Step{
						Kind: ir.StepMaterialize, FieldID: ref.Field, ElementCount: count,
					})
				}
				continue
			}
			outputs[name] = sigSlot[ref.Sig]
		}
	}
	schedule = append(schedule, fieldSteps...)

	var debugProbes []ir.DebugProbe
	if s.enableTrace {
		debugProbes, schedule = s.buildDebugProbes(sigSlot, schedule)
	}

	if len(s.renderPasses) > 0 {
		for i := range s.renderPasses {
			bindRenderPassZ(&s.renderPasses[i], sigSlot)
		}
		schedule = append(schedule, ir.Step{Kind: ir.StepRenderAssemble, Passes: s.renderPasses})
	}

	return s.bld.Finish(schedule, debugProbes, outputs)
}

// buildDebugProbes reserves one DebugProbe per block whose registered
// type is tagged "debugProbe", probing
// the block's first declared output slot. Probes are appended to the
// schedule as StepDebugProbe entries after every NodeEval step so the
// slot they read is always already written that frame.
func (s *compileState) buildDebugProbes(sigSlot []idalloc.ValueSlot, schedule ir.Schedule) ([]ir.DebugProbe, ir.Schedule) {
	var probes []ir.DebugProbe
	var steps []ir.Step
	id := 0
	for _, blockID := range s.sortedOutputBlockIDs() {
		block, ok := s.p0.BlockByID(blockID)
		if !ok {
			continue
		}
		def, ok := s.blockReg.Lookup(block.Type)
		if !ok || len(def.Outputs) == 0 {
			continue
		}
		modeStr, ok := def.Tags["debugProbe"]
		if !ok {
			continue
		}
		ref, ok := s.outputs[blockID][def.Outputs[0].ID]
		if !ok || ref.IsField {
			continue // field-world probing is out of scope for v1 (see Executor.captureProbe)
		}
		probe := ir.DebugProbe{ID: id, Slot: sigSlot[ref.Sig], Mode: debugProbeMode(modeStr)}
		probes = append(probes, probe)
		steps = append(steps, ir.Step{Kind: ir.StepDebugProbe, Probe: probe})
		id++
	}
	return probes, append(schedule, steps...)
}

func debugProbeMode(s string) ir.DebugProbeMode {
	switch s {
	case "vec2":
		return ir.ProbeVec2
	case "color":
		return ir.ProbeColor
	case "fieldStats":
		return ir.ProbeFieldStats
	default:
		return ir.ProbeScalar
	}
}

// bindRenderPassZ resolves a pass's z-order ValueSlot from the
// SigExprId its block recorded at lowering time, so StepRenderAssemble
// can sort purely off already-evaluated slots rather than re-running
// signal expressions during assembly.
func bindRenderPassZ(p *ir.RenderPassDesc, sigSlot []idalloc.ValueSlot) {
	if int(p.ZSig) < len(sigSlot) {
		p.Z = sigSlot[p.ZSig]
	}
	for i := range p.Children {
		bindRenderPassZ(&p.Children[i], sigSlot)
	}
}

func (s *compileState) sortedOutputBlockIDs() []patch.BlockID {
	ids := make([]patch.BlockID, 0, len(s.outputs))
	for id := range s.outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
