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

// Package registry holds the process-wide, immutable block-type and
// transform/adapter tables the compiler consults while lowering a
// patch. Registration happens before the first compile; passes receive
// references and never mutate.
//
// Each registry is a fixed map populated once at startup and looked up
// by name during compilation, never constructed per-compile.
package registry

import (
	"fmt"
	"sort"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
	"golang.org/x/exp/maps"
)

// DefaultSource describes a compile-time constant an unconnected input
// falls back to (Pass 0).
type DefaultSource struct {
	Value idalloc.Value
}

// PortDecl declares one input or output slot on a block type.
type PortDecl struct {
	ID            patch.SlotID
	Type          typedesc.TypeDesc
	DefaultSource *DefaultSource // inputs only
	Combine       *ir.CombinePolicy
	// ReadsPreviousFrame marks an input (typically a stateful operator's
	// feedback input) as reading its own previous frame's value rather
	// than the current frame's. Edges feeding such an input are excluded
	// from Pass 4's dependency graph, which is how state-only cycles
	// are permitted without a fatal CycleDetected.
	ReadsPreviousFrame bool
}

// LowerCtx is the interface the compiler's Pass 6 hands to a block's
// lower function. It exposes what a lowering needs:
// the builder, the time model, input resolution, and parameter access.
type LowerCtx interface {
	Builder() interface {
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
	}
	TimeModel() ir.TimeModelIR
	Params() map[string]any
	// ResolveInput collapses a resolved multi-writer input (already
	// combined per its policy) into a single signal-world ValueRef-equivalent
	// id, or a field-world one, depending on the slot's declared World.
	ResolveInput(slot patch.SlotID) (ValueRef, error)
	// StateSlot derives a stable StateSlot for a stateful operator's
	// feedback storage, keyed by the lowering block's identity and an
	// arbitrary per-block label (for blocks that own more than one
	// state cell).
	StateSlot(label string) idalloc.StateSlot
	// AddRenderPass contributes one render pass descriptor to the
	// frame's single StepRenderAssemble step. Passes
	// are assembled in the order blocks are lowered (Pass 4's topo
	// order), which is also z-order unless a pass's Z slot overrides it
	// at runtime.
	AddRenderPass(desc ir.RenderPassDesc)
}

// ValueRef names the single signal or field expression backing a
// resolved input, tagged by world.
type ValueRef struct {
	IsField bool
	Sig     idalloc.SigExprId
	Field   idalloc.FieldExprId
	Type    typedesc.TypeDesc
}

// LowerFunc is a block type's compilation function.
type LowerFunc func(ctx LowerCtx, inputsById map[patch.SlotID]ValueRef) (map[patch.SlotID]ValueRef, error)

// BlockDef is one registered block type.
type BlockDef struct {
	Type    string
	Inputs  []PortDecl
	Outputs []PortDecl
	Tags    map[string]string // e.g. "hidden", "role", "irPortContract"
	Lower   LowerFunc
}

// BlockRegistry is the process-wide, immutable block-type table.
type BlockRegistry struct {
	defs map[string]BlockDef
}

// NewBlockRegistry returns an empty registry; callers Register block
// types into it before the first compile.
func NewBlockRegistry() *BlockRegistry {
	return &BlockRegistry{defs: make(map[string]BlockDef)}
}

// ErrDuplicateBlockType is returned by Register when a type name is
// already registered.
var ErrDuplicateBlockType = fmt.Errorf("registry: duplicate block type")

// Register adds a block type definition. Input/output port order in
// def.Inputs/def.Outputs MUST match the order lower() is expected to
// see. Nothing checks this order: lower functions resolve inputs by
// slot ID, and an error a lower function returns surfaces as a
// LoweringFailed diagnostic, never as IRValidationFailed.
func (r *BlockRegistry) Register(def BlockDef) error {
	if _, ok := r.defs[def.Type]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBlockType, def.Type)
	}
	r.defs[def.Type] = def
	return nil
}

// Lookup returns the registered definition for a block type.
func (r *BlockRegistry) Lookup(blockType string) (BlockDef, bool) {
	d, ok := r.defs[blockType]
	return d, ok
}

// TypeNames returns every registered block type name in deterministic
// (sorted) order, used by the editor's block palette listing.
func (r *BlockRegistry) TypeNames() []string {
	names := maps.Keys(r.defs)
	sort.Strings(names)
	return names
}

// TransformDef is one registered adapter/lens.
type TransformDef struct {
	ID          string
	InputType   typedesc.TypeDesc
	OutputType  typedesc.TypeDesc
	CompileToIR func(ref ValueRef, params map[string]any, ctx LowerCtx) (ValueRef, error) // optional
}

// TransformRegistry is the process-wide adapter/lens table.
type TransformRegistry struct {
	defs map[string]TransformDef
}

// NewTransformRegistry returns an empty transform registry.
func NewTransformRegistry() *TransformRegistry {
	return &TransformRegistry{defs: make(map[string]TransformDef)}
}

// Register adds a transform definition.
func (r *TransformRegistry) Register(def TransformDef) {
	r.defs[def.ID] = def
}

// Lookup returns the registered transform by id.
func (r *TransformRegistry) Lookup(id string) (TransformDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// IDs returns every registered transform id in deterministic order.
func (r *TransformRegistry) IDs() []string {
	names := maps.Keys(r.defs)
	sort.Strings(names)
	return names
}

// CombineReducer is a registered custom combine-mode implementation,
// looked up by custom(id). Implementations emit the IR node(s) needed to
// reduce terms down to a single ValueRef.
type CombineReducer func(bld interface {
	SigBusCombine([]idalloc.SigExprId, ir.CombineMode, typedesc.TypeDesc) idalloc.SigExprId
	FieldBusCombine([]idalloc.FieldExprId, ir.CombineMode, typedesc.TypeDesc) idalloc.FieldExprId
}, terms []ValueRef, outType typedesc.TypeDesc) (ValueRef, error)

// CombineRegistry is the process-wide table of custom reducers.
type CombineRegistry struct {
	defs map[string]CombineReducer
}

// NewCombineRegistry returns an empty combine registry.
func NewCombineRegistry() *CombineRegistry {
	return &CombineRegistry{defs: make(map[string]CombineReducer)}
}

// Register adds a custom reducer under id.
func (r *CombineRegistry) Register(id string, fn CombineReducer) {
	r.defs[id] = fn
}

// Lookup returns the registered reducer by id.
func (r *CombineRegistry) Lookup(id string) (CombineReducer, bool) {
	fn, ok := r.defs[id]
	return fn, ok
}
