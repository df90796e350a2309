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

package blocks

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
)

// RegisterArithmetic registers the signal-world binary arithmetic
// blocks (Add, Mul, Sub, Div) and Clamp. Each has two (three for Clamp)
// float signal inputs and one float signal output, lowered straight to
// the matching SigOp.
func RegisterArithmetic(r *registry.BlockRegistry) error {
	binary := []struct {
		name string
		op   ir.SigOp
	}{
		{"Add", ir.SigAdd},
		{"Mul", ir.SigMul},
		{"Sub", ir.SigSub},
		{"Div", ir.SigDiv},
	}
	for _, b := range binary {
		b := b
		def := registry.BlockDef{
			Type: b.name,
			Inputs: []registry.PortDecl{
				{ID: "a", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
				{ID: "b", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			},
			Outputs: []registry.PortDecl{{ID: "out", Type: tFloat}},
			Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
				a, err := ctx.ResolveInput("a")
				if err != nil {
					return nil, err
				}
				c, err := ctx.ResolveInput("b")
				if err != nil {
					return nil, err
				}
				out := ctx.Builder().SigOpcode(b.op, a.Sig, c.Sig, 0, tFloat)
				return map[patch.SlotID]registry.ValueRef{"out": {Sig: out, Type: tFloat}}, nil
			},
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}

	clamp := registry.BlockDef{
		Type: "Clamp",
		Inputs: []registry.PortDecl{
			{ID: "value", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			{ID: "lo", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			{ID: "hi", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 1}}},
		},
		Outputs: []registry.PortDecl{{ID: "out", Type: tFloat}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			v, err := ctx.ResolveInput("value")
			if err != nil {
				return nil, err
			}
			lo, err := ctx.ResolveInput("lo")
			if err != nil {
				return nil, err
			}
			hi, err := ctx.ResolveInput("hi")
			if err != nil {
				return nil, err
			}
			out := ctx.Builder().SigOpcode(ir.SigClamp, v.Sig, lo.Sig, hi.Sig, tFloat)
			return map[patch.SlotID]registry.ValueRef{"out": {Sig: out, Type: tFloat}}, nil
		},
	}
	return r.Register(clamp)
}

// RegisterStateful registers the stateful feedback operators Integrate,
// DelayMs, Slew, and PulseDivider. Each keeps one StateSlot derived from
// its own block identity. The feedback lives inside the SigState node
// each block emits, so it adds no block-level edge to Pass 4's
// dependency graph. None of their inputs is marked ReadsPreviousFrame,
// so a wire cycle that passes through one of these blocks is still
// reported as a fatal CycleDetected.
func RegisterStateful(r *registry.BlockRegistry) error {
	stateful := []struct {
		name string
		op   ir.SigOp
	}{
		{"Integrate", ir.SigIntegrate},
		{"DelayMs", ir.SigDelayMs},
	}
	for _, b := range stateful {
		b := b
		def := registry.BlockDef{
			Type: b.name,
			Inputs: []registry.PortDecl{
				{ID: "in", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			},
			Outputs: []registry.PortDecl{{ID: "out", Type: tFloat}},
			Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
				input, err := ctx.ResolveInput("in")
				if err != nil {
					return nil, err
				}
				bld := ctx.Builder()
				update := bld.SigOpcode(b.op, input.Sig, 0, 0, tFloat)
				initConst := bld.Alloc().AllocConstId(idalloc.Value{Kind: idalloc.KindFloat, F64: 0})
				out := bld.SigState(ctx.StateSlot("accum"), update, initConst, tFloat)
				return map[patch.SlotID]registry.ValueRef{"out": {Sig: out, Type: tFloat}}, nil
			},
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}

	slew := registry.BlockDef{
		Type: "Slew",
		Inputs: []registry.PortDecl{
			{ID: "target", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			{ID: "rate", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 1}}},
		},
		Outputs: []registry.PortDecl{{ID: "out", Type: tFloat}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			target, err := ctx.ResolveInput("target")
			if err != nil {
				return nil, err
			}
			rate, err := ctx.ResolveInput("rate")
			if err != nil {
				return nil, err
			}
			bld := ctx.Builder()
			update := bld.SigZip(target.Sig, rate.Sig, "slewTowards", tFloat)
			initConst := bld.Alloc().AllocConstId(idalloc.Value{Kind: idalloc.KindFloat, F64: 0})
			out := bld.SigState(ctx.StateSlot("pos"), update, initConst, tFloat)
			return map[patch.SlotID]registry.ValueRef{"out": {Sig: out, Type: tFloat}}, nil
		},
	}
	if err := r.Register(slew); err != nil {
		return err
	}

	pulseDivider := registry.BlockDef{
		Type: "PulseDivider",
		Inputs: []registry.PortDecl{
			{ID: "trigger", Type: tTrigger, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			{ID: "divisor", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 2}}},
		},
		Outputs: []registry.PortDecl{{ID: "out", Type: tTrigger}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			trig, err := ctx.ResolveInput("trigger")
			if err != nil {
				return nil, err
			}
			divisor, err := ctx.ResolveInput("divisor")
			if err != nil {
				return nil, err
			}
			bld := ctx.Builder()
			update := bld.SigZip(trig.Sig, divisor.Sig, "pulseDivide", tTrigger)
			initConst := bld.Alloc().AllocConstId(idalloc.Value{Kind: idalloc.KindFloat, F64: 0})
			out := bld.SigState(ctx.StateSlot("count"), update, initConst, tTrigger)
			return map[patch.SlotID]registry.ValueRef{"out": {Sig: out, Type: tTrigger}}, nil
		},
	}
	return r.Register(pulseDivider)
}
