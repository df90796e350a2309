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

	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// pass2 builds edge.fromType/edge.toType and checks compatibility
// across each edge's transform chain. Mismatches are
// recoverable: later passes still run so multiple TypeMismatch
// diagnostics can be reported in one compile.
func (s *compileState) pass2() {
	s.checkEdgeSet(s.wires)
	s.checkEdgeSet(s.pubs)
	s.checkEdgeSet(s.listeners)
}

func (s *compileState) checkEdgeSet(edges []patch.Edge) {
	for _, e := range edges {
		fromType, ok := s.endpointType(e.From, true)
		if !ok {
			continue
		}
		toType, ok := s.endpointType(e.To, false)
		if !ok {
			continue
		}
		s.edgeFromType[e.ID] = fromType
		s.edgeToType[e.ID] = toType

		afterTransforms, err := s.applyTransformTypes(e, fromType)
		if err != nil {
			s.diags.add(Diagnostic{
				Code: CodeAdapterChainIncompat, Severity: SeverityRecoverable,
				Message: err.Error(),
				Where:   Where{EdgeID: e.ID},
			})
			continue
		}
		// Per-step compatibility (fromType against the chain's first
		// declared input type, and so on down the chain) is already
		// enforced inside applyTransformTypes; the only check left here
		// is the chain's final output against what the destination port
		// declares. An empty chain degenerates to afterTransforms ==
		// fromType, so an untransformed edge is still checked directly.
		if !typedesc.IsCompatible(afterTransforms, toType) {
			s.diags.add(Diagnostic{
				Code: CodeTypeMismatch, Severity: SeverityRecoverable,
				Message: fmt.Sprintf("edge %s: expected %v/%v, got %v/%v", e.ID, toType.World, toType.Domain, afterTransforms.World, afterTransforms.Domain),
				Where:   Where{EdgeID: e.ID},
			})
		}
	}
}

// applyTransformTypes composes the edge's adapter/lens chain type-wise:
// each step declares an input and output type; we require the chain's
// declared input type be compatible with what's flowing in, and thread
// the output type forward.
func (s *compileState) applyTransformTypes(e patch.Edge, fromType typedesc.TypeDesc) (typedesc.TypeDesc, error) {
	cur := fromType
	for _, step := range e.Transforms {
		def, ok := s.transformReg.Lookup(step.ID)
		if !ok {
			return cur, fmt.Errorf("edge %s: unknown transform %q", e.ID, step.ID)
		}
		if !typedesc.IsCompatible(cur, def.InputType) {
			return cur, fmt.Errorf("edge %s: transform %q expects %v/%v, have %v/%v", e.ID, step.ID, def.InputType.World, def.InputType.Domain, cur.World, cur.Domain)
		}
		cur = def.OutputType
	}
	return cur, nil
}

func (s *compileState) endpointType(ep patch.Endpoint, isSource bool) (typedesc.TypeDesc, bool) {
	if ep.Kind == patch.EndpointBus {
		bus, ok := s.p0.BusByID(ep.Bus)
		if !ok {
			return typedesc.TypeDesc{}, false
		}
		return bus.Type, true
	}
	b, ok := s.p0.BlockByID(ep.Block)
	if !ok {
		return typedesc.TypeDesc{}, false
	}
	def, ok := s.blockReg.Lookup(b.Type)
	if !ok {
		return typedesc.TypeDesc{}, false
	}
	ports := def.Outputs
	if !isSource {
		ports = def.Inputs
	}
	for _, p := range ports {
		if p.ID == ep.Slot {
			return p.Type, true
		}
	}
	return typedesc.TypeDesc{}, false
}
