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
	"sort"

	"golang.org/x/exp/slices"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
)

// assembleRender resolves a frame's render passes, back-to-front by z.
// The resolved RenderFrameIR shape itself lives in the render package,
// which takes this slice and turns it into draw calls; the executor's
// job stops at producing passes in the right order with every field
// buffer it references already materialized.
func (e *Executor) assembleRender(passes []ir.RenderPassDesc) []ir.RenderPassDesc {
	out := slices.Clone(passes)
	sort.SliceStable(out, func(i, j int) bool {
		return e.values.Get(out[i].Z) < e.values.Get(out[j].Z)
	})
	for i := range out {
		e.ensureRenderFields(&out[i])
	}
	return out
}

func (e *Executor) ensureRenderFields(p *ir.RenderPassDesc) {
	switch p.Kind {
	case ir.PassInstances2D:
		e.ensureMaterialized(p.PosField)
		e.ensureMaterialized(p.RadiusField)
		e.ensureMaterialized(p.ColorField)
		e.ensureMaterialized(p.RotField)
		e.ensureMaterialized(p.ScaleXYField)
	case ir.PassPaths2D:
		e.ensureMaterialized(p.CommandBufferField)
		e.ensureMaterialized(p.ParamBufferField)
	case ir.PassClipGroup:
		for i := range p.Children {
			e.ensureRenderFields(&p.Children[i])
		}
	}
}

func (e *Executor) ensureMaterialized(id idalloc.FieldExprId) {
	if int(id) < 0 || int(id) >= len(e.prog.Fields) {
		return // ir.NoField or a dangling reference
	}
	if _, ok := e.fieldBuffers[id]; ok {
		return
	}
	if e.fieldBuffers == nil {
		e.fieldBuffers = make(map[idalloc.FieldExprId]FieldBuffer)
	}
	e.fieldBuffers[id] = e.evalField(id, defaultRenderElementCount, derivedTime{})
}

const defaultRenderElementCount = 64
