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

package compiler

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// lowerCtx is the concrete registry.LowerCtx handed to a block's Lower
// function and to a transform's CompileToIR function. block is the zero value when used from a transform, since a
// transform is edge-scoped rather than block-scoped; its ResolveInput
// is never expected to be called in that case.
type lowerCtx struct {
	s     *compileState
	block patch.Block
}

func (c *lowerCtx) Builder() interface {
	SigConst(idalloc.Value, typedesc.TypeDesc) idalloc.SigExprId
	SigTimeAbsMs(typedesc.TypeDesc) idalloc.SigExprId
	SigPhase01(typedesc.TypeDesc) idalloc.SigExprId
	SigMap(idalloc.SigExprId, string, typedesc.TypeDesc) idalloc.SigExprId
	SigZip(idalloc.SigExprId, idalloc.SigExprId, string, typedesc.TypeDesc) idalloc.SigExprId
	SigSelect(idalloc.SigExprId, idalloc.SigExprId, idalloc.SigExprId, typedesc.TypeDesc) idalloc.SigExprId
	SigOpcode(ir.SigOp, idalloc.SigExprId, idalloc.SigExprId, idalloc.SigExprId, typedesc.TypeDesc) idalloc.SigExprId
	SigState(idalloc.StateSlot, idalloc.SigExprId, idalloc.ConstId, typedesc.TypeDesc) idalloc.SigExprId
	FieldConst(idalloc.Value, typedesc.TypeDesc) idalloc.FieldExprId
	FieldBroadcastSig(idalloc.SigExprId, typedesc.TypeDesc) idalloc.FieldExprId
	FieldMap(idalloc.FieldExprId, string, typedesc.TypeDesc) idalloc.FieldExprId
	FieldZip(idalloc.FieldExprId, idalloc.FieldExprId, string, typedesc.TypeDesc) idalloc.FieldExprId
	Alloc() *idalloc.Allocator
} {
	return c.s.bld
}

func (c *lowerCtx) TimeModel() ir.TimeModelIR {
	return c.s.timeModel
}

func (c *lowerCtx) Params() map[string]any {
	return c.block.Params
}

func (c *lowerCtx) StateSlot(label string) idalloc.StateSlot {
	return idalloc.StateSlotFor(string(c.block.ID), label)
}

func (c *lowerCtx) AddRenderPass(desc ir.RenderPassDesc) {
	c.s.renderPasses = append(c.s.renderPasses, desc)
}

func (c *lowerCtx) ResolveInput(slot patch.SlotID) (registry.ValueRef, error) {
	def, ok := c.s.blockReg.Lookup(c.block.Type)
	if !ok {
		return registry.ValueRef{}, fmt.Errorf("lowerCtx: unknown block type %s", c.block.Type)
	}
	for _, in := range def.Inputs {
		if in.ID == slot {
			return c.s.resolveInput(c.block.ID, slot, in.Type)
		}
	}
	return registry.ValueRef{}, fmt.Errorf("lowerCtx: block %s has no input %s", c.block.ID, slot)
}
