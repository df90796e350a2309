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
	"golang.org/x/exp/slices"
)

// pass5 enumerates, sorts, and records the writer set driving every
// declared block input. Ordering is
// (kind: wire=0, bus=1, default=2; sortKey asc; id asc) and depends on
// nothing else.
func (s *compileState) pass5() {
	wiresByInput := make(map[inputKey][]patch.Edge)
	for _, e := range s.wires {
		wiresByInput[inputKey{e.To.Block, e.To.Slot}] = append(wiresByInput[inputKey{e.To.Block, e.To.Slot}], e)
	}
	listenersByInput := make(map[inputKey][]patch.Edge)
	for _, e := range s.listeners {
		if !e.Enabled {
			continue
		}
		listenersByInput[inputKey{e.To.Block, e.To.Slot}] = append(listenersByInput[inputKey{e.To.Block, e.To.Slot}], e)
	}

	for _, b := range s.p0.Blocks {
		def, ok := s.blockReg.Lookup(b.Type)
		if !ok {
			continue
		}
		for _, in := range def.Inputs {
			key := inputKey{b.ID, in.ID}
			var writers []writer

			for _, e := range wiresByInput[key] {
				kind := writerWire
				if fromBlock, ok := s.p0.BlockByID(e.From.Block); ok && fromBlock.Role == patch.RoleDefaultSourceProvider {
					kind = writerDefault
				}
				writers = append(writers, writer{kind: kind, edge: e, sortKey: e.SortKey, id: string(e.ID)})
			}
			for _, e := range listenersByInput[key] {
				writers = append(writers, writer{kind: writerBus, edge: e, sortKey: e.SortKey, id: string(e.ID)})
			}

			slices.SortFunc(writers, func(a, b writer) bool {
				if a.kind != b.kind {
					return a.kind < b.kind
				}
				if a.sortKey != b.sortKey {
					return a.sortKey < b.sortKey
				}
				return a.id < b.id
			})

			policy := ir.DefaultCombinePolicy
			if in.Combine != nil {
				policy = *in.Combine
			}

			if policy.Mode == ir.CombineError && len(writers) >= 2 {
				s.diags.add(Diagnostic{
					Code: CodeMultiInputForbidden, Severity: SeverityRecoverable,
					Message: fmt.Sprintf("block %s input %s has %d writers but policy forbids multi", b.ID, in.ID, len(writers)),
					Where:   Where{BlockID: b.ID, SlotID: in.ID},
				})
			}
			if len(writers) == 0 {
				s.diags.add(Diagnostic{
					Code: CodeUnconnectedInput, Severity: SeverityRecoverable,
					Message: fmt.Sprintf("block %s input %s has no writer", b.ID, in.ID),
					Where:   Where{BlockID: b.ID, SlotID: in.ID},
				})
			}

			s.resolved[key] = resolvedInputSpec{writers: writers, policy: policy}
		}
	}
}
