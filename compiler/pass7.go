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

import "fmt"

// pass7 finalizes every declared bus's combine node.
// Most buses are already memoized in s.busCombine by the time pass6
// finishes, since their first listener triggered resolveBusCombine;
// this pass only has real work to do for buses nobody listens to, so
// their declared default still materializes (and still emits the
// Warning.EmptyBus diagnostic a listened-to empty bus would get).
func (s *compileState) pass7() {
	for _, bus := range s.p0.Buses {
		if _, ok := s.busCombine[bus.ID]; ok {
			continue
		}
		if _, err := s.resolveBusCombine(bus.ID); err != nil {
			s.diags.add(Diagnostic{
				Code: CodeMaterializationFailed, Severity: SeverityRecoverable,
				Message: fmt.Sprintf("bus %s: %s", bus.ID, err),
				Where:   Where{BusID: bus.ID},
			})
		}
	}
}
