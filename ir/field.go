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

// FieldOp tags the variant of a FieldExprIR node.
type FieldOp int

const (
	FieldInvalid FieldOp = iota
	FieldConst               // Const: pool index, broadcast to every element
	FieldBroadcastSig        // SigSrc: signal id broadcast to every element
	FieldMap                 // A: src field, Kernel: unary op name
	FieldZip                 // A, B: src fields, Kernel: binary op name
	FieldZipSig              // A: src field, SigSrc: signal, Kernel: binary op name
	FieldMapIndexed          // A: src field, Kernel: op name receiving (index, value)
	FieldSelect              // SigSrc: signal cond, A: whenTrue, B: whenFalse
	FieldTransform           // A: src field, Chain: adapter/lens kernel names
	FieldBusCombine          // Terms: publisher fields, Mode: reduction
)

// FieldExprIR is one node of the field expression DAG. Unlike signals,
// field nodes are evaluated lazily at a requested element count (see
// runtime Materialize step); the table only records structure.
type FieldExprIR struct {
	Op   FieldOp
	Type typedesc.TypeDesc

	A, B  idalloc.FieldExprId
	Terms []idalloc.FieldExprId

	SigSrc idalloc.SigExprId
	Const  idalloc.ConstId
	Kernel string
	Chain  []string
	Mode   CombineMode
}

// FieldExprTable is the dense, append-only table of field expressions.
type FieldExprTable []FieldExprIR
