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
)

// RegisterOscillator registers the Oscillator block: a phase-driven
// signal source. frequency scales the incoming phase before it is
// folded through a sin kernel, so one revolution of "phase" at
// frequency=1 is one full sine cycle.
func RegisterOscillator(r *registry.BlockRegistry) error {
	def := registry.BlockDef{
		Type: "Oscillator",
		Inputs: []registry.PortDecl{
			{ID: "phase", Type: tPhase, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 0}}},
			{ID: "frequency", Type: tFloat, DefaultSource: &registry.DefaultSource{Value: idalloc.Value{Kind: idalloc.KindFloat, F64: 1}}},
		},
		Outputs: []registry.PortDecl{{ID: "amplitude", Type: tFloat}},
		Lower: func(ctx registry.LowerCtx, in map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
			phase, err := ctx.ResolveInput("phase")
			if err != nil {
				return nil, err
			}
			freq, err := ctx.ResolveInput("frequency")
			if err != nil {
				return nil, err
			}
			bld := ctx.Builder()
			scaled := bld.SigOpcode(ir.SigMul, phase.Sig, freq.Sig, 0, tPhase)
			amp := bld.SigMap(scaled, "sin2pi", tFloat)
			return map[patch.SlotID]registry.ValueRef{"amplitude": {Sig: amp, Type: tFloat}}, nil
		},
	}
	return r.Register(def)
}
