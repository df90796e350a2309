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
	"fmt"

	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
	"golang.org/x/exp/slices"
)

// pass6 lowers every block in Pass 4's dependency order by invoking its
// registered lower function. Bus-driven inputs are
// resolved through resolveBusCombine, which memoizes each bus's combine
// node the first time it is needed -- functionally Pass 7, just
// performed lazily so a listener can be lowered as soon as its bus's
// publishers have all been lowered (guaranteed by Pass 4's
// publisher->listener ordering).
func (s *compileState) pass6() {
	for _, id := range s.topoOrder {
		b, ok := s.p0.BlockByID(id)
		if !ok {
			continue
		}
		def, ok := s.blockReg.Lookup(b.Type)
		if !ok {
			continue
		}

		inputs := make(map[patch.SlotID]registry.ValueRef, len(def.Inputs))
		for _, in := range def.Inputs {
			ref, err := s.resolveInput(b.ID, in.ID, in.Type)
			if err != nil {
				s.diags.add(Diagnostic{
					Code: CodeLoweringFailed, Severity: SeverityRecoverable,
					Message: fmt.Sprintf("block %s input %s: %s", b.ID, in.ID, err),
					Where:   Where{BlockID: b.ID, SlotID: in.ID},
				})
				continue
			}
			inputs[in.ID] = ref
		}

		ctx := &lowerCtx{s: s, block: b}
		result, err := def.Lower(ctx, inputs)
		if err != nil {
			s.diags.add(Diagnostic{
				Code: CodeLoweringFailed, Severity: SeverityRecoverable,
				Message: fmt.Sprintf("block %s: lower failed: %s", b.ID, err),
				Where:   Where{BlockID: b.ID},
			})
			continue
		}
		for _, out := range def.Outputs {
			ref, ok := result[out.ID]
			if !ok {
				s.diags.add(Diagnostic{
					Code: CodePortMissing, Severity: SeverityRecoverable,
					Message: fmt.Sprintf("block %s: lower did not produce output %s", b.ID, out.ID),
					Where:   Where{BlockID: b.ID, SlotID: out.ID},
				})
				continue
			}
			s.setOutput(b.ID, out.ID, ref)
		}
	}
}

// resolveInput collapses a ResolvedInputSpec into a single ValueRef,
// applying each writer's edge-local transform chain before combining.
func (s *compileState) resolveInput(block patch.BlockID, slot patch.SlotID, t typedesc.TypeDesc) (registry.ValueRef, error) {
	spec, ok := s.resolved[inputKey{block, slot}]
	if !ok {
		return registry.ValueRef{}, fmt.Errorf("no resolved input spec for %s.%s", block, slot)
	}

	terms := make([]registry.ValueRef, 0, len(spec.writers))
	for _, w := range spec.writers {
		var ref registry.ValueRef
		var err error
		switch w.kind {
		case writerBus:
			ref, err = s.resolveBusCombine(w.edge.From.Bus)
		default:
			ref, ok = s.getOutput(w.edge.From.Block, w.edge.From.Slot)
			if !ok {
				err = fmt.Errorf("writer %s: origin output %s.%s not yet lowered", w.id, w.edge.From.Block, w.edge.From.Slot)
			}
		}
		if err != nil {
			return registry.ValueRef{}, err
		}
		ref, err = s.applyTransformChain(ref, w.edge.Transforms, w.edge.ID)
		if err != nil {
			return registry.ValueRef{}, err
		}
		terms = append(terms, ref)
	}

	return s.combine(terms, spec.policy, t, defaultZeroValue(t))
}

func (s *compileState) applyTransformChain(ref registry.ValueRef, steps []patch.TransformStep, edgeID patch.EdgeID) (registry.ValueRef, error) {
	cur := ref
	for _, step := range steps {
		def, ok := s.transformReg.Lookup(step.ID)
		if !ok {
			s.diags.add(Diagnostic{
				Code: CodeAdapterNotFound, Severity: SeverityRecoverable,
				Message: fmt.Sprintf("edge %s: transform %q not registered", edgeID, step.ID),
				Where:   Where{EdgeID: edgeID},
			})
			continue
		}
		if def.CompileToIR == nil {
			s.diags.add(Diagnostic{
				Code: CodeWarningTransformMissingIR, Severity: SeverityWarning,
				Message: fmt.Sprintf("edge %s: transform %q has no compileToIR; passing through unadapted", edgeID, step.ID),
				Where:   Where{EdgeID: edgeID},
			})
			continue
		}
		ctx := &lowerCtx{s: s}
		next, err := def.CompileToIR(cur, step.Params, ctx)
		if err != nil {
			s.diags.add(Diagnostic{
				Code: CodeTransformIncompatible, Severity: SeverityRecoverable,
				Message: fmt.Sprintf("edge %s: transform %q: %s", edgeID, step.ID, err),
				Where:   Where{EdgeID: edgeID},
			})
			continue
		}
		cur = next
	}
	return cur, nil
}

// resolveBusCombine returns (computing and caching on first use) the
// combine node for a bus's currently-lowered publishers.
func (s *compileState) resolveBusCombine(busID patch.BusID) (registry.ValueRef, error) {
	if ref, ok := s.busCombine[busID]; ok {
		return ref, nil
	}
	bus, ok := s.p0.BusByID(busID)
	if !ok {
		return registry.ValueRef{}, fmt.Errorf("unknown bus %s", busID)
	}

	var pubEdges []patch.Edge
	for _, e := range s.pubs {
		if e.To.Bus == busID && e.Enabled {
			pubEdges = append(pubEdges, e)
		}
	}
	// deterministic (sortKey, id) tie-break.
	slices.SortFunc(pubEdges, func(a, b patch.Edge) bool {
		if a.SortKey != b.SortKey {
			return a.SortKey < b.SortKey
		}
		return a.ID < b.ID
	})

	terms := make([]registry.ValueRef, 0, len(pubEdges))
	for _, e := range pubEdges {
		ref, ok := s.getOutput(e.From.Block, e.From.Slot)
		if !ok {
			return registry.ValueRef{}, fmt.Errorf("bus %s: publisher %s.%s not yet lowered", busID, e.From.Block, e.From.Slot)
		}
		ref, err := s.applyTransformChain(ref, e.Transforms, e.ID)
		if err != nil {
			return registry.ValueRef{}, err
		}
		terms = append(terms, ref)
	}

	if len(pubEdges) == 0 {
		s.diags.add(Diagnostic{
			Code: CodeWarningEmptyBus, Severity: SeverityWarning,
			Message: fmt.Sprintf("bus %s has no publishers; using declared default", busID),
			Where:   Where{BusID: busID},
		})
	}

	policy := ir.CombinePolicy{When: ir.WhenAlways, Mode: ir.CombineMode(bus.CombineMode)}
	ref, err := s.combine(terms, policy, bus.Type, defaultZeroValue(bus.Type))
	if err != nil {
		return registry.ValueRef{}, err
	}
	s.busCombine[busID] = ref
	return ref, nil
}
