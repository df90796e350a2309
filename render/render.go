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

// Package render turns one frame's resolved render passes (already
// z-sorted and field-materialized by runtime.Executor) into a
// RenderFrameIR an external Renderer can draw. This module owns no
// drawing surface of its own; it only assembles the data contract a real
// renderer consumes.
package render

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/runtime"
)

// Instance2D is one resolved instance of an Instances2D pass: a
// position, radius, color, rotation, and non-uniform scale, flattened
// out of the pass's materialized field buffers at a given element
// index.
type Instance2D struct {
	Pos    [2]float64
	Radius float64
	Color  [4]float64
	Rot    float64
	Scale  [2]float64
}

// Pass2D is one resolved Instances2D render pass.
type Pass2D struct {
	Material  string
	Instances []Instance2D
}

// RenderFrameIR is the fully resolved output of one frame's render
// assembly: every pass in back-to-front order with its field data
// already read out into plain Go values.
type RenderFrameIR struct {
	Passes2D []Pass2D
}

// Assemble reads passes (as ordered by runtime.Executor.Step) and the
// executor's materialized field buffers into a RenderFrameIR. Only
// Instances2D passes are resolved to concrete instances; Paths2D,
// ClipGroup, and PostFX passes are structurally supported by the IR
// (ir.RenderPassDesc) but have no external consumer in this module's
// scope yet, so Assemble skips them rather than guessing a shape no
// Renderer has asked for.
func Assemble(passes []ir.RenderPassDesc, fields func(idalloc.FieldExprId) (runtime.FieldBuffer, bool)) RenderFrameIR {
	var out RenderFrameIR
	for _, p := range passes {
		if p.Kind != ir.PassInstances2D {
			continue
		}
		out.Passes2D = append(out.Passes2D, resolveInstances2D(p, fields))
	}
	return out
}

func resolveInstances2D(p ir.RenderPassDesc, fields func(idalloc.FieldExprId) (runtime.FieldBuffer, bool)) Pass2D {
	pos, _ := fields(p.PosField)
	radius, hasRadius := fields(p.RadiusField)
	color, hasColor := fields(p.ColorField)
	rot, hasRot := fields(p.RotField)
	scale, hasScale := fields(p.ScaleXYField)

	n := pos.ElementCount()
	instances := make([]Instance2D, n)
	for i := 0; i < n; i++ {
		var inst Instance2D
		copy(inst.Pos[:], padTo(pos.At(i), 2))
		if hasRadius {
			inst.Radius = radius.At(i)[0]
		}
		if hasColor {
			copy(inst.Color[:], padTo(color.At(i), 4))
		}
		if hasRot {
			inst.Rot = rot.At(i)[0]
		}
		if hasScale {
			copy(inst.Scale[:], padTo(scale.At(i), 2))
		} else {
			inst.Scale = [2]float64{1, 1}
		}
		instances[i] = inst
	}
	return Pass2D{Material: p.Material, Instances: instances}
}

// Renderer is the external collaborator this module hands a resolved
// frame to; nothing in this module implements it.
type Renderer interface {
	DrawFrame(RenderFrameIR) error
}

func padTo(v []float64, n int) []float64 {
	if len(v) >= n {
		return v[:n]
	}
	out := make([]float64, n)
	copy(out, v)
	return out
}
