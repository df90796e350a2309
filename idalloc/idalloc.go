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

// Package idalloc hands out the dense integer identifiers the rest of
// the compiler and runtime index into: ValueSlot, SigExprId, FieldExprId,
// ConstId, StateSlot, and EventSlot. It also owns the constant pool.
//
// Every id is a plain integer so the runtime can store per-id state in
// flat slices rather than maps.
package idalloc

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
	"github.com/dchest/siphash"
)

// ValueSlot is an integer index into the per-frame value store. A
// bundle of arity k occupies the contiguous range [slot, slot+k).
type ValueSlot int

// SigExprId indexes SignalExprTable.
type SigExprId int

// FieldExprId indexes FieldExprTable.
type FieldExprId int

// ConstId indexes ConstPool.
type ConstId int

// StateSlot indexes the runtime's per-operator state buffer. Stable
// across recompiles; allocated from block+slot identity, not from the
// allocator's monotonic cursor, so StateSlot keys are reproducible.
type StateSlot int

// EventSlot indexes the runtime's per-frame event store.
type EventSlot int

// Value is an opaque constant payload stored in the constant pool:
// a number, a color, a vec2, an enum tag, or an arbitrary small payload.
type Value struct {
	Kind ValueKind
	F64  float64
	I64  int64
	Vec  []float64
	Tag  string
	Blob []byte
}

// ValueKind tags the active field of a Value.
type ValueKind int

const (
	KindFloat ValueKind = iota
	KindInt
	KindVec
	KindTag
	KindBlob
)

// SlotMeta records, for each allocated ValueSlot, the type it was
// allocated for and the contiguous lane range it owns.
type SlotMeta struct {
	Type  typedesc.TypeDesc
	Start ValueSlot
	Arity int
	// OwnerSig/OwnerField is set to the expression id this slot was
	// registered for; at most
	// one of the two is meaningful, selected by OwnerIsField.
	OwnerSig     SigExprId
	OwnerField   FieldExprId
	OwnerIsField bool
}

// Allocator is the single authority on slot/expr/const id allocation
// for one compilation. It is not safe for concurrent use -- compilation
// is single-threaded.
type Allocator struct {
	cursor      ValueSlot
	eventCursor EventSlot
	slots       []SlotMeta
	constPool   []Value
	constHash   map[uint64][]ConstId
}

// New returns a zeroed Allocator ready for a fresh compilation.
func New() *Allocator {
	return &Allocator{constHash: make(map[uint64][]ConstId)}
}

// AllocValueSlot advances the slot cursor by the type's arity and
// records its metadata, returning the first slot of the contiguous
// range. Returns *typedesc.ErrUnknownDomain if the domain is outside the
// closed enumeration.
func (a *Allocator) AllocValueSlot(t typedesc.TypeDesc) (ValueSlot, error) {
	if !t.Domain.Valid() {
		return 0, &typedesc.ErrUnknownDomain{Domain: t.Domain}
	}
	arity := typedesc.GetArity(t)
	if arity <= 0 {
		arity = 1
	}
	start := a.cursor
	a.cursor += ValueSlot(arity)
	a.slots = append(a.slots, SlotMeta{Type: t, Start: start, Arity: arity})
	return start, nil
}

// SlotMetas returns the metadata recorded for every allocated slot, in
// allocation order.
func (a *Allocator) SlotMetas() []SlotMeta {
	return a.slots
}

// AllocEventSlot hands out the next dense EventSlot, used for wrap and
// trigger events written into the runtime's per-frame event store.
func (a *Allocator) AllocEventSlot() EventSlot {
	id := a.eventCursor
	a.eventCursor++
	return id
}

// RegisterSigSlot records that slot was allocated to carry the result
// of signal expression id.
func (a *Allocator) RegisterSigSlot(id SigExprId, slot ValueSlot) {
	a.annotate(slot, func(m *SlotMeta) {
		m.OwnerSig = id
		m.OwnerIsField = false
	})
}

// RegisterFieldSlot records that slot was allocated to carry the result
// of field expression id.
func (a *Allocator) RegisterFieldSlot(id FieldExprId, slot ValueSlot) {
	a.annotate(slot, func(m *SlotMeta) {
		m.OwnerField = id
		m.OwnerIsField = true
	})
}

func (a *Allocator) annotate(slot ValueSlot, fn func(*SlotMeta)) {
	for i := range a.slots {
		if a.slots[i].Start == slot {
			fn(&a.slots[i])
			return
		}
	}
}

// AllocConstId interns value into the constant pool. Structural dedup is
// permitted -- this implementation performs it via
// a siphash digest of the value's canonical byte form.
func (a *Allocator) AllocConstId(v Value) ConstId {
	h := hashValue(v)
	for _, candidate := range a.constHash[h] {
		if valuesEqual(a.constPool[candidate], v) {
			return candidate
		}
	}
	id := ConstId(len(a.constPool))
	a.constPool = append(a.constPool, v)
	a.constHash[h] = append(a.constHash[h], id)
	return id
}

// ConstPool returns the interned constant values in allocation order.
func (a *Allocator) ConstPool() []Value {
	return a.constPool
}

func hashValue(v Value) uint64 {
	buf := make([]byte, 0, 32)
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindFloat:
		buf = appendFloat(buf, v.F64)
	case KindInt:
		buf = appendInt(buf, v.I64)
	case KindVec:
		for _, f := range v.Vec {
			buf = appendFloat(buf, f)
		}
	case KindTag:
		buf = append(buf, v.Tag...)
	case KindBlob:
		buf = append(buf, v.Blob...)
	}
	return siphash.Hash(0, 1, buf)
}

func appendFloat(buf []byte, f float64) []byte {
	bits := int64FromFloat(f)
	return appendInt(buf, bits)
}

func int64FromFloat(f float64) int64 {
	return int64(f * (1 << 20)) // coarse but stable for hashing purposes
}

func appendInt(buf []byte, i int64) []byte {
	var tmp [8]byte
	for k := 0; k < 8; k++ {
		tmp[k] = byte(i >> (8 * k))
	}
	return append(buf, tmp[:]...)
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindFloat:
		return a.F64 == b.F64
	case KindInt:
		return a.I64 == b.I64
	case KindVec:
		if len(a.Vec) != len(b.Vec) {
			return false
		}
		for i := range a.Vec {
			if a.Vec[i] != b.Vec[i] {
				return false
			}
		}
		return true
	case KindTag:
		return a.Tag == b.Tag
	case KindBlob:
		if len(a.Blob) != len(b.Blob) {
			return false
		}
		for i := range a.Blob {
			if a.Blob[i] != b.Blob[i] {
				return false
			}
		}
		return true
	}
	return false
}

// StateSlotFor derives a StateSlot from a block+label identity rather
// than a monotonic cursor, so a stateful operator (Integrate, DelayMs,
// Slew, PulseDivider, ...) keeps the same StateSlot across recompiles
// of a patch that did not remove or rename it.
func StateSlotFor(blockID, label string) StateSlot {
	h := siphash.Hash(0, 1, []byte(blockID+"\x00"+label))
	return StateSlot(h & 0x7fffffff)
}
