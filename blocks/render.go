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
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

var tFieldVec2 = typedesc.New(typedesc.Field, typedesc.Vec2)
var tRenderTree = typedesc.New(typedesc.Field, typedesc.RenderTree)

// RegisterRender registers the render-tree leaf block RenderInstances2D.
// Unlike the arithmetic/state blocks, its Lower function does not
// return a signal/field-backed "out" port for further signal math to
// consume; it contributes a RenderPassDesc straight to the frame's
// StepRenderAssemble. Its single output
// port exists only so the block satisfies the usual wire-or-bus
// publication rules for its nominal renderTree value, which downstream
// blocks are not expected to read.
func RegisterRender(r *registry.BlockRegistry) error {
	def := registry.BlockDef{
		Type: "RenderInstances2D",
		Inputs: []registry.PortDecl{
			{ID: "position", Type: tFieldVec2, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindVec, Vec: []float64{0, 0}}}},
			{ID: "radius", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 1}}},
			{ID: "color", Type: tFieldCol, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindVec, Vec: []float64{1, 1, 1, 1}}}},
			{ID: "z", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
		},
		Outputs: []registry.PortDecl{{ID: "tree", Type: tRenderTree}},
		Tags:    map[string]string{"role": "renderLeaf"},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			pos, err := ctx.ResolveInput("position")
			if err != nil {
				return nil, err
			}
			radius, err := ctx.ResolveInput("radius")
			if err != nil {
				return nil, err
			}
			color, err := ctx.ResolveInput("color")
			if err != nil {
				return nil, err
			}
			z, err := ctx.ResolveInput("z")
			if err != nil {
				return nil, err
			}
			bld := ctx.Builder()
			posField := pos.Field
			if !pos.IsField {
				posField = bld.FieldBroadcastSig(pos.Sig, tFieldVec2)
			}
			radiusField := radius.Field
			if !radius.IsField {
				radiusField = bld.FieldBroadcastSig(radius.Sig, tFieldF)
			}
			colorField := color.Field
			if !color.IsField {
				colorField = bld.FieldBroadcastSig(color.Sig, tFieldCol)
			}
			ctx.AddRenderPass(ir.RenderPassDesc{
				Kind:         ir.PassInstances2D,
				Material:     "disc",
				ZSig:         z.Sig,
				PosField:     posField,
				RadiusField:  radiusField,
				ColorField:   colorField,
				RotField:     ir.NoField,
				ScaleXYField: ir.NoField,
			})
			treeID := bld.FieldConst(idalloc.Value{Kind: idalloc.KindFloat, F64: 0}, tRenderTree)
			return map[patch.SlotID]registry.ValueRef{"tree": {IsField: true, Field: treeID, Type: tRenderTree}}, nil
		},
	}
	return r.Register(def)
}
