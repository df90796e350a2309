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

// Package blocks is the registered catalog of block types consulted by
// the compiler. Definitions are
// registered into a BlockRegistry once at startup, never constructed
// per-compile.
package blocks

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

var (
	tFloat    = typedesc.New(typedesc.Signal, typedesc.Float)
	tPhase    = typedesc.New(typedesc.Signal, typedesc.Phase01)
	tTrigger  = typedesc.New(typedesc.Signal, typedesc.Trigger)
	tFieldF   = typedesc.New(typedesc.Field, typedesc.Float)
	tFieldCol = typedesc.New(typedesc.Field, typedesc.Color)
)

// RegisterAll registers every block type this package defines (timeRoot
// blocks, default-source providers, arithmetic/field operators, state
// operators, and render blocks) into r.
func RegisterAll(r *registry.BlockRegistry) error {
	for _, def := range []registry.BlockDef{
		cycleTimeRootDef(),
		finiteTimeRootDef(),
		infiniteTimeRootDef(),
	} {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	if err := registerDefaultProviders(r); err != nil {
		return err
	}
	if err := RegisterArithmetic(r); err != nil {
		return err
	}
	if err := RegisterStateful(r); err != nil {
		return err
	}
	if err := RegisterOscillator(r); err != nil {
		return err
	}
	return RegisterRender(r)
}

// cycleTimeRootDef declares a cyclic time root. Its "phase" output reads
// the frame's resolved phase01 directly; its "wrap" output is a
// placeholder signal; the event-world wrap notification is carried by
// the schedule's dedicated WrapEventSlot, not by a signal expression
// (see DESIGN.md "wrap event representation").
func cycleTimeRootDef() registry.BlockDef {
	return registry.BlockDef{
		Type: "CycleTimeRoot",
		Inputs: []registry.PortDecl{
			{ID: "periodMs", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 1000}}},
		},
		Outputs: []registry.PortDecl{
			{ID: "phase", Type: tPhase},
			{ID: "wrap", Type: tTrigger},
		},
		Tags: map[string]string{"timeRoot": "cyclic"},
		Lower: func(ctx registry.LowerCtx, inputs map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			bld := ctx.Builder()
			phase := bld.SigPhase01(tPhase)
			wrap := bld.SigConst(idalloc.Value{Kind: idalloc.KindFloat, F64: 0}, tTrigger)
			return map[patch.SlotID]registry.ValueRef{
				"phase": {Sig: phase, Type: tPhase},
				"wrap":  {Sig: wrap, Type: tTrigger},
			}, nil
		},
	}
}

func finiteTimeRootDef() registry.BlockDef {
	return registry.BlockDef{
		Type: "FiniteTimeRoot",
		Inputs: []registry.PortDecl{
			{ID: "durationMs", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 1000}}},
		},
		Outputs: []registry.PortDecl{
			{ID: "progress", Type: tPhase},
		},
		Tags: map[string]string{"timeRoot": "finite"},
		Lower: func(ctx registry.LowerCtx, inputs map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			progress := ctx.Builder().SigPhase01(tPhase)
			return map[patch.SlotID]registry.ValueRef{"progress": {Sig: progress, Type: tPhase}}, nil
		},
	}
}

func infiniteTimeRootDef() registry.BlockDef {
	return registry.BlockDef{
		Type: "InfiniteTimeRoot",
		Inputs: []registry.PortDecl{
			{ID: "windowMs", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 10000}}},
		},
		Outputs: []registry.PortDecl{
			{ID: "tAbsMs", Type: tFloat},
		},
		Tags: map[string]string{"timeRoot": "infinite"},
		Lower: func(ctx registry.LowerCtx, inputs map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			t := ctx.Builder().SigTimeAbsMs(tFloat)
			return map[patch.SlotID]registry.ValueRef{"tAbsMs": {Sig: t, Type: tFloat}}, nil
		},
	}
}
