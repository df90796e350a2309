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

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// SigOp tags the variant of a SigExprIR node. The set is closed and
// dense so the evaluator can dispatch with a plain switch.
type SigOp int

const (
	SigInvalid SigOp = iota
	SigConst             // Const: pool index
	SigTimeAbsMs         // no operands; reads the frame's tAbsMs
	SigPhase01           // no operands; reads the frame's phase01
	SigMap               // A: src, Kernel: unary op name
	SigZip               // A, B: operands, Kernel: binary op name
	SigSelect            // A: cond, B: whenTrue, C: whenFalse
	SigBusCombine        // Terms: publisher exprs, Mode: reduction
	SigState             // StateSlot, A: updateExpr, InitConst: initConst
	SigClosure           // transitional: Kernel names a closure; A is its single input

	// arithmetic/utility opcodes, evaluated as binary or unary maps
	// depending on arity (A only = unary, A+B = binary).
	SigAdd
	SigMul
	SigSub
	SigDiv
	SigClamp // A: value, B: lo, C: hi
	SigIntegrate
	SigDelayMs
	SigColorHSLToRGB
)

// SigExprIR is one node of the signal expression DAG.
type SigExprIR struct {
	Op   SigOp
	Type typedesc.TypeDesc

	// Operands, meaning depends on Op (see SigOp comments above).
	A, B, C idalloc.SigExprId
	Terms   []idalloc.SigExprId

	Const     idalloc.ConstId
	InitConst idalloc.ConstId
	Kernel    string // op/adapter kernel reference name, for Map/Zip/Closure
	Mode      CombineMode
	StateSlot idalloc.StateSlot
}

// SignalExprTable is the dense, append-only table of signal expressions
// built during compilation and frozen into the CompiledProgramIR.
type SignalExprTable []SigExprIR
