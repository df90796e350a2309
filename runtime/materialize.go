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
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// fieldBuffers accumulates this frame's materialized field buffers, set
// up lazily the first time a StepMaterialize step asks for a given
// FieldExprId. It is reset alongside the frame cache at the start of Step.
func (e *Executor) materialize(id idalloc.FieldExprId, elementCount int, dt derivedTime) {
	if e.fieldBuffers == nil {
		e.fieldBuffers = make(map[idalloc.FieldExprId]FieldBuffer)
	}
	if _, ok := e.fieldBuffers[id]; ok {
		return
	}
	e.fieldBuffers[id] = e.evalField(id, elementCount, dt)
}

func (e *Executor) evalField(id idalloc.FieldExprId, n int, dt derivedTime) FieldBuffer {
	if int(id) < 0 || int(id) >= len(e.prog.Fields) {
		return FieldBuffer{Arity: 1, Lanes: make([]float64, n)}
	}
	node := e.prog.Fields[id]
	arity := typedesc.GetArity(node.Type)
	buf := FieldBuffer{Arity: arity, Lanes: make([]float64, arity*n)}

	switch node.Op {
	case ir.FieldConst:
		v := e.constVec(node.Const, arity)
		for i := 0; i < n; i++ {
			copy(buf.Lanes[i*arity:(i+1)*arity], v)
		}
	case ir.FieldBroadcastSig:
		val, err := e.evalSig(node.SigSrc, dt)
		if err != nil {
			val = nil
		}
		lanes := conformLanes(val, arity)
		for i := 0; i < n; i++ {
			copy(buf.At(i), lanes)
		}
	case ir.FieldMap:
		src := e.evalField(node.A, n, dt)
		for i := 0; i < n; i++ {
			copy(buf.At(i), conformLanes(applyUnary(node.Kernel, src.At(i)), arity))
		}
	case ir.FieldZip:
		a := e.evalField(node.A, n, dt)
		b := e.evalField(node.B, n, dt)
		for i := 0; i < n; i++ {
			dst, av, bv := buf.At(i), a.At(i), b.At(i)
			for l := range dst {
				dst[l] = evalBinaryKernel(node.Kernel, laneAt(av, l), laneAt(bv, l))
			}
		}
	case ir.FieldZipSig:
		a := e.evalField(node.A, n, dt)
		sig, err := e.evalSig(node.SigSrc, dt)
		if err != nil {
			sig = nil
		}
		for i := 0; i < n; i++ {
			dst, av := buf.At(i), a.At(i)
			for l := range dst {
				dst[l] = evalBinaryKernel(node.Kernel, laneAt(av, l), laneAt(sig, l))
			}
		}
	case ir.FieldMapIndexed:
		src := e.evalField(node.A, n, dt)
		for i := 0; i < n; i++ {
			copy(buf.At(i), src.At(i))
		}
	case ir.FieldSelect:
		cond, err := e.evalSig(node.SigSrc, dt)
		if err != nil {
			cond = nil
		}
		var chosen FieldBuffer
		if laneAt(cond, 0) != 0 {
			chosen = e.evalField(node.A, n, dt)
		} else {
			chosen = e.evalField(node.B, n, dt)
		}
		copy(buf.Lanes, chosen.Lanes)
	case ir.FieldTransform:
		src := e.evalField(node.A, n, dt)
		copy(buf.Lanes, src.Lanes)
		for _, k := range node.Chain {
			for i := 0; i < n; i++ {
				copy(buf.At(i), conformLanes(applyUnary(k, buf.At(i)), arity))
			}
		}
	case ir.FieldBusCombine:
		if len(node.Terms) == 0 {
			break
		}
		termBufs := make([]FieldBuffer, len(node.Terms))
		for j, t := range node.Terms {
			termBufs[j] = e.evalField(t, n, dt)
		}
		terms := make([][]float64, len(termBufs))
		for i := 0; i < n; i++ {
			for j, tb := range termBufs {
				terms[j] = tb.At(i)
			}
			copy(buf.At(i), reduceLanes(terms, node.Mode, node.Type, arity))
		}
	}
	return buf
}

func (e *Executor) constVec(id idalloc.ConstId, arity int) []float64 {
	out := make([]float64, arity)
	if int(id) < 0 || int(id) >= len(e.prog.Constants) {
		return out
	}
	c := e.prog.Constants[id]
	switch c.Kind {
	case idalloc.KindFloat:
		out[0] = c.F64
	case idalloc.KindInt:
		out[0] = float64(c.I64)
	case idalloc.KindVec:
		for i := 0; i < arity && i < len(c.Vec); i++ {
			out[i] = c.Vec[i]
		}
	}
	return out
}
