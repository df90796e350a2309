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
	"strings"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// providerDomains lists every {world, domain} pair Pass 0 might need a
// constant provider for. New
// block input domains that want defaulting must add an entry here.
var providerDomains = []typedesc.TypeDesc{
	typedesc.New(typedesc.Signal, typedesc.Float),
	typedesc.New(typedesc.Signal, typedesc.Int),
	typedesc.New(typedesc.Signal, typedesc.Boolean),
	typedesc.New(typedesc.Signal, typedesc.Phase01),
	typedesc.New(typedesc.Signal, typedesc.Trigger),
	typedesc.New(typedesc.Signal, typedesc.Vec2),
	typedesc.New(typedesc.Signal, typedesc.Color),
	typedesc.New(typedesc.Field, typedesc.Float),
	typedesc.New(typedesc.Field, typedesc.Color),
	typedesc.New(typedesc.Field, typedesc.Vec2),
	typedesc.New(typedesc.Scalar, typedesc.Float),
	typedesc.New(typedesc.Scalar, typedesc.Int),
}

// registerDefaultProviders registers one DSConst<World><Domain> block
// type per entry in providerDomains. Each takes a single "value" param
// (an idalloc.Value, set by Pass 0) and republishes it verbatim as its
// "out" port -- a signal/field constant for Signal/Field worlds, and a
// bare constant-carrying signal for Scalar (scalar values are read
// directly out of the block's Params by anything that consumes them,
// but a provider is still registered so Pass 0's uniform lookup never
// fails).
func registerDefaultProviders(r *registry.BlockRegistry) error {
	for _, t := range providerDomains {
		t := t
		name := "DSConst" + capitalize(t.World.String()) + capitalize(t.Domain.String())
		def := registry.BlockDef{
			Type:    name,
			Inputs:  nil,
			Outputs: []registry.PortDecl{{ID: "out", Type: t}},
			Tags:    map[string]string{"role": "defaultSourceProvider"},
			Lower: func(ctx registry.LowerCtx, _ map[patch.SlotID]registry.ValueRef) (map[patch.SlotID]registry.ValueRef, error) {
				v, _ := ctx.Params()["value"].(idalloc.Value)
				bld := ctx.Builder()
				if t.World == typedesc.Field {
					id := bld.FieldConst(v, t)
					return map[patch.SlotID]registry.ValueRef{"out": {IsField: true, Field: id, Type: t}}, nil
				}
				id := bld.SigConst(v, t)
				return map[patch.SlotID]registry.ValueRef{"out": {Sig: id, Type: t}}, nil
			},
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
