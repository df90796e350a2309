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
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// combine implements the reduction kernel shared by buses and input
// slots: N=0
// materializes a default constant, N=1 under an identity-eligible mode
// is returned unchanged, otherwise a busCombine/fieldBusCombine IR node
// is emitted. Buses and slots call through this one function so their
// runtime semantics never diverge.
func (s *compileState) combine(terms []registry.ValueRef, policy ir.CombinePolicy, outType typedesc.TypeDesc, defaultValue idalloc.Value) (registry.ValueRef, error) {
	n := len(terms)
	if n == 0 {
		if outType.World == typedesc.Field {
			return registry.ValueRef{IsField: true, Field: s.bld.FieldConst(defaultValue, outType), Type: outType}, nil
		}
		return registry.ValueRef{Sig: s.bld.SigConst(defaultValue, outType), Type: outType}, nil
	}
	identity := n == 1 && (policy.Mode == ir.CombineFirst || policy.Mode == ir.CombineLast || policy.Mode == ir.CombineLayer || policy.When == ir.WhenMulti)
	if identity {
		return terms[0], nil
	}
	if customID, ok := policy.Mode.CustomID(); ok {
		reducer, ok := s.combineReg.Lookup(customID)
		if !ok {
			return registry.ValueRef{}, fmt.Errorf("combine: unknown custom reducer %q", customID)
		}
		return reducer(s.bld, terms, outType)
	}

	isField := outType.World == typedesc.Field
	if isField {
		fieldTerms := make([]idalloc.FieldExprId, n)
		for i, t := range terms {
			fieldTerms[i] = t.Field
		}
		id := s.bld.FieldBusCombine(fieldTerms, ir.CombineMode(policy.Mode), outType)
		return registry.ValueRef{IsField: true, Field: id, Type: outType}, nil
	}
	sigTerms := make([]idalloc.SigExprId, n)
	for i, t := range terms {
		sigTerms[i] = t.Sig
	}
	id := s.bld.SigBusCombine(sigTerms, ir.CombineMode(policy.Mode), outType)
	return registry.ValueRef{Sig: id, Type: outType}, nil
}

// defaultZeroValue returns the type's declared zero/default constant
// (0, transparent black, zero vector, ...) used when N=0.
func defaultZeroValue(t typedesc.TypeDesc) idalloc.Value {
	arity := typedesc.GetArity(t)
	if arity <= 1 {
		return idalloc.Value{Kind: idalloc.KindFloat, F64: 0}
	}
	return idalloc.Value{Kind: idalloc.KindVec, Vec: make([]float64, arity)}
}
