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

// Package transforms is the registered catalog of adapters and lenses a
// patch edge may name in its Transforms chain. An adapter changes a
// value's domain (float -> vec2); a lens reshapes it without changing
// domain (gain, invert). Both compile to the same TransformDef shape.
package transforms

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

var (
	tFloat = typedesc.New(typedesc.Signal, typedesc.Float)
	tVec2  = typedesc.New(typedesc.Signal, typedesc.Vec2)
)

// RegisterAll registers every adapter/lens this package defines into r.
func RegisterAll(r *registry.TransformRegistry) {
	r.Register(floatToVec2())
	r.Register(gain())
	r.Register(invert())
}

// floatToVec2 broadcasts a scalar float signal into both lanes of a
// vec2 signal, the canonical adapter for wiring a float producer into
// a vec2 consumer.
func floatToVec2() registry.TransformDef {
	return registry.TransformDef{
		ID:         "float->vec2",
		InputType:  tFloat,
		OutputType: tVec2,
		CompileToIR: func(ref registry.ValueRef, params map[string]any, ctx registry.LowerCtx) (registry.ValueRef, error) {
			if ref.IsField {
				return registry.ValueRef{}, fmt.Errorf("transforms: float->vec2 does not support field-world input")
			}
			out := ctx.Builder().SigMap(ref.Sig, "broadcastVec2", tVec2)
			return registry.ValueRef{Sig: out, Type: tVec2}, nil
		},
	}
}

// gain scales a float signal by params["factor"] (default 1).
func gain() registry.TransformDef {
	return registry.TransformDef{
		ID:         "gain",
		InputType:  tFloat,
		OutputType: tFloat,
		CompileToIR: func(ref registry.ValueRef, params map[string]any, ctx registry.LowerCtx) (registry.ValueRef, error) {
			factor := 1.0
			if f, ok := params["factor"].(float64); ok {
				factor = f
			}
			bld := ctx.Builder()
			factorID := bld.SigConst(idalloc.Value{Kind: idalloc.KindFloat, F64: factor}, tFloat)
			out := bld.SigOpcode(ir.SigMul, ref.Sig, factorID, 0, tFloat)
			return registry.ValueRef{Sig: out, Type: tFloat}, nil
		},
	}
}

// invert flips a float signal around 0.5: out = 1 - in.
func invert() registry.TransformDef {
	return registry.TransformDef{
		ID:         "invert",
		InputType:  tFloat,
		OutputType: tFloat,
		CompileToIR: func(ref registry.ValueRef, params map[string]any, ctx registry.LowerCtx) (registry.ValueRef, error) {
			out := ctx.Builder().SigMap(ref.Sig, "oneMinus", tFloat)
			return registry.ValueRef{Sig: out, Type: tFloat}, nil
		},
	}
}
