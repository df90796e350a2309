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

// Package runtime executes a frozen ir.CompiledProgramIR one frame at a
// time: it derives model time, walks the schedule evaluating signal and
// field expressions into a dense value store, fires one-shot events,
// and assembles render output.
package runtime

import "github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"

// ValueStore is the dense per-frame value store Steps read and write,
// addressed by idalloc.ValueSlot. Values are stored as float64 lanes;
// a scalar occupies lane 0 of its slot, a vec2/color/etc. occupies its
// declared contiguous arity.
type ValueStore struct {
	lanes []float64
}

// NewValueStore allocates a store sized for the slot range a compiled
// program uses (the sum of every SlotMeta's arity).
func NewValueStore(size int) *ValueStore {
	return &ValueStore{lanes: make([]float64, size)}
}

// Reset zeroes every lane. Called at the start of every frame so no
// value survives from the previous frame's store.
func (v *ValueStore) Reset() {
	for i := range v.lanes {
		v.lanes[i] = 0
	}
}

// Get reads the scalar lane of slot.
func (v *ValueStore) Get(slot idalloc.ValueSlot) float64 {
	if int(slot) < 0 || int(slot) >= len(v.lanes) {
		return 0
	}
	return v.lanes[slot]
}

// Set writes the scalar lane of slot.
func (v *ValueStore) Set(slot idalloc.ValueSlot, val float64) {
	if int(slot) < 0 || int(slot) >= len(v.lanes) {
		return
	}
	v.lanes[slot] = val
}

// GetVec reads arity contiguous lanes starting at slot.
func (v *ValueStore) GetVec(slot idalloc.ValueSlot, arity int) []float64 {
	out := make([]float64, arity)
	for i := 0; i < arity; i++ {
		out[i] = v.Get(slot + idalloc.ValueSlot(i))
	}
	return out
}

// SetVec writes vals into arity contiguous lanes starting at slot.
func (v *ValueStore) SetVec(slot idalloc.ValueSlot, vals []float64) {
	for i, val := range vals {
		v.Set(slot+idalloc.ValueSlot(i), val)
	}
}
