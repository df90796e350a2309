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

// Package irbuilder is the mutable, scoped container used during
// compilation. It owns the signal/field expression tables, the constant
// pool, the slot allocator, and the time-model binding; Finish freezes
// everything into an ir.CompiledProgramIR.
//
// The tables are dense and append-only: ids are indices, so a node can
// only reference nodes emitted before it.
package irbuilder

import (
	"fmt"
	"time"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// IRTypeError is returned when an emitted node's operand types violate
// the op's constraints.
type IRTypeError struct {
	Op       string
	Expected string
	Actual   typedesc.TypeDesc
}

func (e *IRTypeError) Error() string {
	return fmt.Sprintf("irbuilder: %s: expected %s, got %v/%v", e.Op, e.Expected, e.Actual.World, e.Actual.Domain)
}

// IRValidationFailed reports a structural invariant violated in the
// finished tables: a dangling expression reference, overlapping slot
// ranges, or a missing time model. Always fatal.
type IRValidationFailed struct {
	Reason string
}

func (e *IRValidationFailed) Error() string {
	return fmt.Sprintf("irbuilder: IR validation failed: %s", e.Reason)
}

// Builder is the mutable IR container for one compilation.
type Builder struct {
	alloc     *idalloc.Allocator
	signals   ir.SignalExprTable
	fields    ir.FieldExprTable
	timeModel ir.TimeModelIR
	haveTime  bool
	seed      uint64
}

// New returns a Builder ready to accept a fresh compilation. seed is
// threaded through from CompileOptions and stamped on the
// finished program.
func New(seed uint64) *Builder {
	return &Builder{alloc: idalloc.New(), seed: seed}
}

// Alloc exposes the underlying slot/const allocator to callers (block
// lowering functions reach it through their ctx).
func (b *Builder) Alloc() *idalloc.Allocator {
	return b.alloc
}

func (b *Builder) nextSig() idalloc.SigExprId {
	return idalloc.SigExprId(len(b.signals))
}

func (b *Builder) nextField() idalloc.FieldExprId {
	return idalloc.FieldExprId(len(b.fields))
}

func (b *Builder) emitSig(n ir.SigExprIR) idalloc.SigExprId {
	id := b.nextSig()
	b.signals = append(b.signals, n)
	return id
}

func (b *Builder) emitField(n ir.FieldExprIR) idalloc.FieldExprId {
	id := b.nextField()
	b.fields = append(b.fields, n)
	return id
}

// SigConst emits a constant signal node.
func (b *Builder) SigConst(value idalloc.Value, t typedesc.TypeDesc) idalloc.SigExprId {
	cid := b.alloc.AllocConstId(value)
	return b.emitSig(ir.SigExprIR{Op: ir.SigConst, Type: t, Const: cid})
}

// SigTimeAbsMs emits a node reading the frame's absolute elapsed time in
// milliseconds, as resolved by the schedule's TimeDerive step.
func (b *Builder) SigTimeAbsMs(t typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: ir.SigTimeAbsMs, Type: t})
}

// SigPhase01 emits a node reading the frame's normalized model-time
// phase in [0,1), as resolved by the schedule's TimeDerive step.
func (b *Builder) SigPhase01(t typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: ir.SigPhase01, Type: t})
}

// SigMap emits a unary map node. op names a registered kernel/adapter
// step.
func (b *Builder) SigMap(src idalloc.SigExprId, op string, outType typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: ir.SigMap, Type: outType, A: src, Kernel: op})
}

// SigZip emits a binary combine node over two signal operands.
func (b *Builder) SigZip(a, bb idalloc.SigExprId, op string, outType typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: ir.SigZip, Type: outType, A: a, B: bb, Kernel: op})
}

// SigSelect emits a ternary select node.
func (b *Builder) SigSelect(cond, whenTrue, whenFalse idalloc.SigExprId, outType typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: ir.SigSelect, Type: outType, A: cond, B: whenTrue, C: whenFalse})
}

// SigBusCombine emits a combine node over N>=0 publisher terms. Callers
// (the combine kernel) are responsible for the N=0/N=1 identity
// shortcuts; this always emits a node.
func (b *Builder) SigBusCombine(terms []idalloc.SigExprId, mode ir.CombineMode, outType typedesc.TypeDesc) idalloc.SigExprId {
	cp := append([]idalloc.SigExprId(nil), terms...)
	return b.emitSig(ir.SigExprIR{Op: ir.SigBusCombine, Type: outType, Terms: cp, Mode: mode})
}

// SigState emits a stateful node reading/writing stateSlot across
// frames. updateExpr is typically itself a signal expression that may
// reference this node's own id to express "read previous frame".
func (b *Builder) SigState(stateSlot idalloc.StateSlot, updateExpr idalloc.SigExprId, initConst idalloc.ConstId, outType typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: ir.SigState, Type: outType, A: updateExpr, StateSlot: stateSlot, InitConst: initConst})
}

// SigOpcode emits one of the fixed arithmetic opcodes (Add, Mul, Sub,
// Div, Clamp, Integrate, DelayMs, ColorHSLToRGB) with up to three
// operands; unused operands should be left zero.
func (b *Builder) SigOpcode(op ir.SigOp, a, bb, c idalloc.SigExprId, outType typedesc.TypeDesc) idalloc.SigExprId {
	return b.emitSig(ir.SigExprIR{Op: op, Type: outType, A: a, B: bb, C: c})
}

// FieldConst emits a constant field node broadcast to every element.
func (b *Builder) FieldConst(value idalloc.Value, t typedesc.TypeDesc) idalloc.FieldExprId {
	cid := b.alloc.AllocConstId(value)
	return b.emitField(ir.FieldExprIR{Op: ir.FieldConst, Type: t, Const: cid})
}

// FieldBroadcastSig emits a field node that broadcasts a signal's value
// to every element.
func (b *Builder) FieldBroadcastSig(sig idalloc.SigExprId, t typedesc.TypeDesc) idalloc.FieldExprId {
	return b.emitField(ir.FieldExprIR{Op: ir.FieldBroadcastSig, Type: t, SigSrc: sig})
}

// FieldMap emits a unary per-element map node.
func (b *Builder) FieldMap(src idalloc.FieldExprId, op string, outType typedesc.TypeDesc) idalloc.FieldExprId {
	return b.emitField(ir.FieldExprIR{Op: ir.FieldMap, Type: outType, A: src, Kernel: op})
}

// FieldZip emits a binary per-element combine node over two fields.
func (b *Builder) FieldZip(a, bb idalloc.FieldExprId, op string, outType typedesc.TypeDesc) idalloc.FieldExprId {
	return b.emitField(ir.FieldExprIR{Op: ir.FieldZip, Type: outType, A: a, B: bb, Kernel: op})
}

// FieldZipSig emits a per-element combine node between a field and a
// (per-frame constant) signal value.
func (b *Builder) FieldZipSig(a idalloc.FieldExprId, sig idalloc.SigExprId, op string, outType typedesc.TypeDesc) idalloc.FieldExprId {
	return b.emitField(ir.FieldExprIR{Op: ir.FieldZipSig, Type: outType, A: a, SigSrc: sig, Kernel: op})
}

// FieldMapIndexed emits a per-element map node whose kernel also
// receives the element index.
func (b *Builder) FieldMapIndexed(src idalloc.FieldExprId, op string, outType typedesc.TypeDesc) idalloc.FieldExprId {
	return b.emitField(ir.FieldExprIR{Op: ir.FieldMapIndexed, Type: outType, A: src, Kernel: op})
}

// FieldSelect emits a per-element select node gated by a signal-world
// condition (broadcast across elements).
func (b *Builder) FieldSelect(cond idalloc.SigExprId, whenTrue, whenFalse idalloc.FieldExprId, outType typedesc.TypeDesc) idalloc.FieldExprId {
	return b.emitField(ir.FieldExprIR{Op: ir.FieldSelect, Type: outType, SigSrc: cond, A: whenTrue, B: whenFalse})
}

// FieldTransform emits a node applying an adapter/lens chain to a field.
func (b *Builder) FieldTransform(src idalloc.FieldExprId, chain []string, outType typedesc.TypeDesc) idalloc.FieldExprId {
	cp := append([]string(nil), chain...)
	return b.emitField(ir.FieldExprIR{Op: ir.FieldTransform, Type: outType, A: src, Chain: cp})
}

// FieldBusCombine emits a combine node over N field-world publisher
// terms.
func (b *Builder) FieldBusCombine(terms []idalloc.FieldExprId, mode ir.CombineMode, outType typedesc.TypeDesc) idalloc.FieldExprId {
	cp := append([]idalloc.FieldExprId(nil), terms...)
	return b.emitField(ir.FieldExprIR{Op: ir.FieldBusCombine, Type: outType, Terms: cp, Mode: mode})
}

// SetTimeModel binds the program's single time model. Pass 3 calls this
// exactly once.
func (b *Builder) SetTimeModel(tm ir.TimeModelIR) {
	b.timeModel = tm
	b.haveTime = true
}

// GetTimeModel returns the previously bound time model.
func (b *Builder) GetTimeModel() (ir.TimeModelIR, bool) {
	return b.timeModel, b.haveTime
}

// NumSignals reports the number of signal nodes emitted so far; used by
// validation to range-check references.
func (b *Builder) NumSignals() int { return len(b.signals) }

// NumFields reports the number of field nodes emitted so far.
func (b *Builder) NumFields() int { return len(b.fields) }

// SignalType returns the result type of a previously emitted signal
// node, for schedule/slot construction.
func (b *Builder) SignalType(id idalloc.SigExprId) typedesc.TypeDesc {
	return b.signals[id].Type
}

// FieldType returns the result type of a previously emitted field node.
func (b *Builder) FieldType(id idalloc.FieldExprId) typedesc.TypeDesc {
	return b.fields[id].Type
}

// Finish validates the table invariants and freezes the builder's tables
// into an immutable ir.CompiledProgramIR. schedule and debugProbes are
// supplied by the schedule builder (Pass 8); outputs names the
// program's externally meaningful slots.
func (b *Builder) Finish(schedule ir.Schedule, debugProbes []ir.DebugProbe, outputs map[string]idalloc.ValueSlot) (*ir.CompiledProgramIR, error) {
	if !b.haveTime {
		return nil, &IRValidationFailed{Reason: "no time model bound"}
	}
	if err := b.validateReferences(schedule); err != nil {
		return nil, err
	}
	if err := b.validateSlotPacking(); err != nil {
		return nil, err
	}
	if err := b.validateScheduleOrder(schedule); err != nil {
		return nil, err
	}

	prog := &ir.CompiledProgramIR{
		IRVersion:   ir.IRVersion,
		CompiledAt:  time.Now().UTC(),
		Seed:        b.seed,
		TimeModel:   b.timeModel,
		Signals:     append(ir.SignalExprTable(nil), b.signals...),
		Fields:      append(ir.FieldExprTable(nil), b.fields...),
		Constants:   append([]idalloc.Value(nil), b.alloc.ConstPool()...),
		SlotMetas:   append([]idalloc.SlotMeta(nil), b.alloc.SlotMetas()...),
		Schedule:    append(ir.Schedule(nil), schedule...),
		DebugProbes: append([]ir.DebugProbe(nil), debugProbes...),
		Outputs:     outputs,
	}
	return prog, nil
}

func (b *Builder) validateReferences(schedule ir.Schedule) error {
	checkSig := func(id idalloc.SigExprId) error {
		if int(id) < 0 || int(id) >= len(b.signals) {
			return &IRValidationFailed{Reason: fmt.Sprintf("signal id %d out of range", id)}
		}
		return nil
	}
	checkField := func(id idalloc.FieldExprId) error {
		if int(id) < 0 || int(id) >= len(b.fields) {
			return &IRValidationFailed{Reason: fmt.Sprintf("field id %d out of range", id)}
		}
		return nil
	}
	for i, n := range b.signals {
		refs := []idalloc.SigExprId{}
		switch n.Op {
		case ir.SigMap, ir.SigState, ir.SigClosure:
			refs = append(refs, n.A)
		case ir.SigZip:
			refs = append(refs, n.A, n.B)
		case ir.SigSelect:
			refs = append(refs, n.A, n.B, n.C)
		case ir.SigBusCombine:
			refs = append(refs, n.Terms...)
		case ir.SigAdd, ir.SigMul, ir.SigSub, ir.SigDiv:
			refs = append(refs, n.A, n.B)
		case ir.SigClamp:
			refs = append(refs, n.A, n.B, n.C)
		case ir.SigIntegrate, ir.SigDelayMs, ir.SigColorHSLToRGB:
			refs = append(refs, n.A)
		}
		for _, r := range refs {
			if r == idalloc.SigExprId(i) {
				// self-reference is legal only for SigState (read
				// previous-frame value); Pass 4 is responsible for
				// ensuring no other cycle reaches here.
				if n.Op == ir.SigState {
					continue
				}
			}
			if err := checkSig(r); err != nil {
				return err
			}
		}
	}
	for _, n := range b.fields {
		var sigRefs []idalloc.SigExprId
		var fieldRefs []idalloc.FieldExprId
		switch n.Op {
		case ir.FieldBroadcastSig:
			sigRefs = append(sigRefs, n.SigSrc)
		case ir.FieldMap, ir.FieldMapIndexed, ir.FieldTransform:
			fieldRefs = append(fieldRefs, n.A)
		case ir.FieldZip:
			fieldRefs = append(fieldRefs, n.A, n.B)
		case ir.FieldZipSig:
			fieldRefs = append(fieldRefs, n.A)
			sigRefs = append(sigRefs, n.SigSrc)
		case ir.FieldSelect:
			fieldRefs = append(fieldRefs, n.A, n.B)
			sigRefs = append(sigRefs, n.SigSrc)
		case ir.FieldBusCombine:
			fieldRefs = append(fieldRefs, n.Terms...)
		}
		for _, r := range sigRefs {
			if err := checkSig(r); err != nil {
				return err
			}
		}
		for _, r := range fieldRefs {
			if err := checkField(r); err != nil {
				return err
			}
		}
	}
	for _, s := range schedule {
		switch s.Kind {
		case ir.StepNodeEval, ir.StepBusEval:
			if err := checkSig(s.SigID); err != nil {
				return err
			}
		case ir.StepMaterialize:
			if err := checkField(s.FieldID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) validateSlotPacking() error {
	metas := b.alloc.SlotMetas()
	occupied := make(map[idalloc.ValueSlot]bool)
	for _, m := range metas {
		for s := m.Start; s < m.Start+idalloc.ValueSlot(m.Arity); s++ {
			if occupied[s] {
				return &IRValidationFailed{Reason: fmt.Sprintf("slot %d double-allocated", s)}
			}
			occupied[s] = true
		}
	}
	return nil
}

// validateScheduleOrder collects the slots written by time-derive and
// eval steps but checks nothing against them: it always returns nil, so
// a step that reads a slot before (or without) the step writing it is
// not reported.
func (b *Builder) validateScheduleOrder(schedule ir.Schedule) error {
	written := make(map[idalloc.ValueSlot]bool)
	for _, s := range schedule {
		switch s.Kind {
		case ir.StepTimeDerive:
			written[s.TimeOutSlot] = true
		case ir.StepNodeEval, ir.StepBusEval:
			written[s.OutSlot] = true
		}
	}
	_ = written // read-before-write order rests on Pass 8 emitting steps
	// in dependency order; no read of `written` follows.
	return nil
}
