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

// pass4 builds a block-level dependency graph (wires, and
// publisher->listener ordering through buses) and runs Kahn's
// topological sort. Edges feeding an input tagged
// ReadsPreviousFrame are excluded from the graph up front, which is how
// state-only cycles are permitted: such an input reads last
// frame's value, so it induces no same-frame ordering constraint.
func (s *compileState) pass4() {
	indeg := make(map[patch.BlockID]int)
	adj := make(map[patch.BlockID][]patch.BlockID)

	addEdge := func(from, to patch.BlockID) {
		if from == to {
			return // a block never depends on itself for topo purposes
		}
		adj[from] = append(adj[from], to)
		indeg[to]++
	}

	for _, b := range s.p0.Blocks {
		if _, ok := indeg[b.ID]; !ok {
			indeg[b.ID] = 0
		}
	}

	readsPrev := func(blockID patch.BlockID, slot patch.SlotID) bool {
		b, ok := s.p0.BlockByID(blockID)
		if !ok {
			return false
		}
		def, ok := s.blockReg.Lookup(b.Type)
		if !ok {
			return false
		}
		for _, in := range def.Inputs {
			if in.ID == slot {
				return in.ReadsPreviousFrame
			}
		}
		return false
	}

	for _, e := range s.wires {
		if readsPrev(e.To.Block, e.To.Slot) {
			continue
		}
		addEdge(e.From.Block, e.To.Block)
	}

	// publisher -> listener ordering, grouped per bus.
	busPubs := make(map[patch.BusID][]patch.BlockID)
	for _, e := range s.pubs {
		if !e.Enabled {
			continue
		}
		busPubs[e.To.Bus] = append(busPubs[e.To.Bus], e.From.Block)
	}
	for _, e := range s.listeners {
		if !e.Enabled || readsPrev(e.To.Block, e.To.Slot) {
			continue
		}
		for _, pub := range busPubs[e.From.Bus] {
			addEdge(pub, e.To.Block)
		}
	}

	// Kahn's algorithm with deterministic tie-break by block id.
	var ready []patch.BlockID
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	slices.SortFunc(ready, func(a, b patch.BlockID) bool { return a < b })

	order := make([]patch.BlockID, 0, len(indeg))
	remaining := make(map[patch.BlockID]int, len(indeg))
	for k, v := range indeg {
		remaining[k] = v
	}

	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		next := append([]patch.BlockID(nil), adj[n]...)
		slices.SortFunc(next, func(a, b patch.BlockID) bool { return a < b })
		for _, m := range next {
			remaining[m]--
			if remaining[m] == 0 {
				idx, _ := slices.BinarySearchFunc(ready, m, func(a, b patch.BlockID) int {
					if a < b {
						return -1
					}
					if a > b {
						return 1
					}
					return 0
				})
				ready = slices.Insert(ready, idx, m)
			}
		}
	}

	if len(order) != len(indeg) {
		var stuck []patch.BlockID
		for id, d := range remaining {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		slices.SortFunc(stuck, func(a, b patch.BlockID) bool { return a < b })
		s.diags.add(Diagnostic{
			Code: CodeCycleDetected, Severity: SeverityFatal,
			Message: fmt.Sprintf("dependency cycle among blocks: %v", stuck),
		})
		return
	}

	s.topoOrder = order
}
