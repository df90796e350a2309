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
	"golang.org/x/exp/slices"
)

// pass1 normalizes iteration order and partitions edges by endpoint
// kind. Bus->bus edges are fatal; invalid endpoint
// references are fatal.
func (s *compileState) pass1() {
	blocks := append([]patch.Block(nil), s.p0.Blocks...)
	slices.SortFunc(blocks, func(a, b patch.Block) bool { return a.ID < b.ID })

	edges := append([]patch.Edge(nil), s.p0.Edges...)
	slices.SortFunc(edges, func(a, b patch.Edge) bool { return a.ID < b.ID })

	byBlock := make(map[patch.BlockID]patch.Block, len(blocks))
	for _, b := range blocks {
		byBlock[b.ID] = b
	}
	byBus := make(map[patch.BusID]patch.Bus, len(s.p0.Buses))
	for _, bus := range s.p0.Buses {
		byBus[bus.ID] = bus
	}

	for _, e := range edges {
		if e.From.Kind == patch.EndpointBus && e.To.Kind == patch.EndpointBus {
			s.diags.add(Diagnostic{
				Code: CodeBusToBusEdge, Severity: SeverityFatal,
				Message: fmt.Sprintf("edge %s connects bus to bus", e.ID),
				Where:   Where{EdgeID: e.ID},
			})
			continue
		}
		if !s.validEndpoint(e.From, byBlock, byBus, true) || !s.validEndpoint(e.To, byBlock, byBus, false) {
			continue
		}
		switch {
		case e.From.Kind == patch.EndpointPort && e.To.Kind == patch.EndpointPort:
			s.wires = append(s.wires, e)
		case e.From.Kind == patch.EndpointPort && e.To.Kind == patch.EndpointBus:
			s.pubs = append(s.pubs, e)
		case e.From.Kind == patch.EndpointBus && e.To.Kind == patch.EndpointPort:
			s.listeners = append(s.listeners, e)
		}
	}

	s.p0.Blocks = blocks
	s.p0.Edges = edges
}

// validEndpoint checks that a referenced block/slot or bus exists, and
// for port endpoints, that the slot is declared in the right direction
// (isSource selects output vs input).
func (s *compileState) validEndpoint(ep patch.Endpoint, byBlock map[patch.BlockID]patch.Block, byBus map[patch.BusID]patch.Bus, isSource bool) bool {
	if ep.Kind == patch.EndpointBus {
		if _, ok := byBus[ep.Bus]; !ok {
			s.diags.add(Diagnostic{
				Code: CodeInvalidEndpoint, Severity: SeverityFatal,
				Message: fmt.Sprintf("unknown bus %s", ep.Bus),
				Where:   Where{BusID: ep.Bus},
			})
			return false
		}
		return true
	}
	b, ok := byBlock[ep.Block]
	if !ok {
		s.diags.add(Diagnostic{
			Code: CodeInvalidEndpoint, Severity: SeverityFatal,
			Message: fmt.Sprintf("unknown block %s", ep.Block),
			Where:   Where{BlockID: ep.Block},
		})
		return false
	}
	def, ok := s.blockReg.Lookup(b.Type)
	if !ok {
		s.diags.add(Diagnostic{
			Code: CodeInvalidPatch, Severity: SeverityFatal,
			Message: fmt.Sprintf("block %s has unknown type %s", b.ID, b.Type),
			Where:   Where{BlockID: b.ID},
		})
		return false
	}
	ports := def.Outputs
	if !isSource {
		ports = def.Inputs
	}
	for _, p := range ports {
		if p.ID == ep.Slot {
			return true
		}
	}
	s.diags.add(Diagnostic{
		Code: CodeInvalidEndpoint, Severity: SeverityFatal,
		Message: fmt.Sprintf("block %s has no matching slot %s", b.ID, ep.Slot),
		Where:   Where{BlockID: b.ID, SlotID: ep.Slot},
	})
	return false
}
