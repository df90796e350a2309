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

package runtime

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// StateBuffer persists stateful operators' feedback values across
// frames and across recompiles. StateSlot is derived
// from block+label identity (idalloc.StateSlotFor), not from a
// compile-local cursor, which is exactly what makes this survive a
// recompile: the same block keeps the same key.
type StateBuffer struct {
	cells map[idalloc.StateSlot]float64
}

// NewStateBuffer returns an empty state buffer, used for a patch's
// first compile.
func NewStateBuffer() *StateBuffer {
	return &StateBuffer{cells: make(map[idalloc.StateSlot]float64)}
}

// Get returns slot's stored value, or def if the slot has never been
// written (first frame, or a newly introduced operator).
func (s *StateBuffer) Get(slot idalloc.StateSlot, def float64) float64 {
	if v, ok := s.cells[slot]; ok {
		return v
	}
	return def
}

// Set writes slot's new value, overwriting whatever the previous frame
// left there.
func (s *StateBuffer) Set(slot idalloc.StateSlot, v float64) {
	s.cells[slot] = v
}

// Slots returns every currently-populated StateSlot in deterministic
// (sorted) order, used by tests asserting persistence across a
// recompile and by debug dumps.
func (s *StateBuffer) Slots() []idalloc.StateSlot {
	keys := maps.Keys(s.cells)
	slices.Sort(keys)
	return keys
}

// Prune drops every cell whose slot is not in keep, so a recompile that
// removes a stateful block does not leak its state cell forever.
func (s *StateBuffer) Prune(keep map[idalloc.StateSlot]bool) {
	for slot := range s.cells {
		if !keep[slot] {
			delete(s.cells, slot)
		}
	}
}
