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
	"strings"

	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// pass0 materializes a hidden constant-provider block for every block
// input left unconnected in the source patch but declaring a
// defaultSource. It is idempotent: running it twice
// on its own output is a no-op, because a provider's synthesized id is
// a pure function of (blockId, slotId) and `driven` already accounts for
// provider-fed inputs.
func (s *compileState) pass0(p patch.Patch) {
	out := p.Clone()

	driven := make(map[inputKey]bool)
	for _, e := range out.Edges {
		if e.To.Kind != patch.EndpointPort {
			continue
		}
		// a bus listener only counts as driving its target when enabled;
		// undriven-but-disabled listeners fall through to defaulting. A
		// wire counts regardless of Enabled.
		if e.From.Kind == patch.EndpointBus && !e.Enabled {
			continue
		}
		driven[inputKey{e.To.Block, e.To.Slot}] = true
	}

	for _, b := range out.Blocks {
		def, ok := s.blockReg.Lookup(b.Type)
		if !ok {
			continue // Pass 1 reports unknown block types
		}
		for _, in := range def.Inputs {
			key := inputKey{b.ID, in.ID}
			if driven[key] {
				continue
			}
			if in.DefaultSource == nil {
				continue // deferred to Pass 6 as UnconnectedInput
			}
			providerID := patch.BlockID(fmt.Sprintf("%s_default_%s", b.ID, in.ID))
			providerType := defaultProviderType(in.Type)
			provider := patch.Block{
				ID:     providerID,
				Type:   providerType,
				Params: map[string]any{"value": in.DefaultSource.Value},
				Hidden: true,
				Role:   patch.RoleDefaultSourceProvider,
			}
			edge := patch.Edge{
				ID:      patch.EdgeID(fmt.Sprintf("%s_default_edge_%s", b.ID, in.ID)),
				From:    patch.Port(providerID, "out"),
				To:      patch.Port(b.ID, in.ID),
				Enabled: true,
			}
			out.Blocks = append(out.Blocks, provider)
			out.Edges = append(out.Edges, edge)
			driven[key] = true
		}
	}

	s.p0 = out
}

// defaultProviderType names the registered constant-provider block type
// for a given {world, domain}, e.g. DSConstSignalFloat, DSConstFieldColor.
func defaultProviderType(t typedesc.TypeDesc) string {
	return "DSConst" + capitalize(t.World.String()) + capitalize(t.Domain.String())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
