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

package ir

import "github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"

// StepKind tags the variant of a Step.
type StepKind int

const (
	StepInvalid StepKind = iota
	StepTimeDerive
	StepNodeEval
	StepBusEval
	StepMaterialize
	StepRenderAssemble
	StepDebugProbe
)

func (k StepKind) String() string {
	switch k {
	case StepTimeDerive:
		return "timeDerive"
	case StepNodeEval:
		return "nodeEval"
	case StepBusEval:
		return "busEval"
	case StepMaterialize:
		return "materialize"
	case StepRenderAssemble:
		return "renderAssemble"
	case StepDebugProbe:
		return "debugProbe"
	default:
		return "invalid"
	}
}

// Step is one entry of a frame's linear execution schedule.
type Step struct {
	Kind StepKind

	// TimeDerive
	WrapEventSlot idalloc.EventSlot
	TimeOutSlot   idalloc.ValueSlot

	// NodeEval / BusEval
	SigID    idalloc.SigExprId
	OutSlot  idalloc.ValueSlot

	// Materialize
	FieldID      idalloc.FieldExprId
	ElementCount int

	// RenderAssemble
	Passes []RenderPassDesc

	// DebugProbe
	Probe DebugProbe
}

// DebugProbeMode selects how a probed slot is encoded into the trace
// ring buffer.
type DebugProbeMode int

const (
	ProbeScalar DebugProbeMode = iota
	ProbeVec2
	ProbeColor
	ProbeFieldStats
)

// DebugProbe names a slot/id/mode triple captured by executeDebugProbe.
type DebugProbe struct {
	ID   int
	Slot idalloc.ValueSlot
	Mode DebugProbeMode
}

// NoField marks an optional RenderPassDesc field binding as absent.
// FieldExprId zero is a real table index, so absence needs a sentinel.
const NoField idalloc.FieldExprId = -1

// RenderPassKind tags the variant of a RenderPassDesc.
type RenderPassKind int

const (
	PassInstances2D RenderPassKind = iota
	PassPaths2D
	PassClipGroup
	PassPostFX
)

// RenderPassDesc describes one render pass to be assembled from
// previously written slots and materialized field buffers.
type RenderPassDesc struct {
	Kind RenderPassKind
	Z    idalloc.ValueSlot    // slot holding the pass's z-order scalar, bound by Pass 8
	ZSig idalloc.SigExprId    // signal expression Z is bound from; zero value is the default-zero const

	// Instances2D
	Material        string
	InstanceCountSig idalloc.SigExprId
	PosField         idalloc.FieldExprId
	RadiusField      idalloc.FieldExprId
	ColorField       idalloc.FieldExprId
	RotField         idalloc.FieldExprId
	ScaleXYField     idalloc.FieldExprId

	// Paths2D
	CommandBufferField idalloc.FieldExprId
	ParamBufferField   idalloc.FieldExprId
	Style              string

	// ClipGroup
	ClipSpecSig idalloc.SigExprId
	Children    []RenderPassDesc

	// PostFX
	FXKind   string
	FXParams map[string]any
}

// Schedule is the ordered list of Steps executed once per frame.
type Schedule []Step
