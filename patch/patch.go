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

// Package patch defines the input to the compiler: the user-authored
// directed graph of blocks, edges, and buses. This
// package holds data only -- no pass, no validation beyond what a
// zero-cost accessor can provide. Validation is Pass 1's job.
package patch

import "github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"

// BlockID identifies a block within a patch. Stable across recompiles.
type BlockID string

// EdgeID identifies an edge within a patch.
type EdgeID string

// BusID identifies a bus within a patch.
type BusID string

// SlotID identifies an input or output slot on a block, scoped to that
// block's type.
type SlotID string

// Role tags a block with a special meaning the compiler interprets.
type Role string

const (
	RoleNone                 Role = ""
	RoleDefaultSourceProvider Role = "defaultSourceProvider"
	RoleBus                  Role = "bus"
)

// Block is a node in the patch graph.
type Block struct {
	ID     BlockID
	Type   string // selects a registered block definition
	Params map[string]any
	Hidden bool
	Role   Role
}

// EndpointKind distinguishes a port endpoint from a bus endpoint.
type EndpointKind int

const (
	EndpointPort EndpointKind = iota
	EndpointBus
)

// Endpoint is one side of an edge: either Port(blockId, slotId) or
// Bus(busId). Exactly one of (BlockID,SlotID) or BusID is meaningful,
// selected by Kind.
type Endpoint struct {
	Kind EndpointKind
	// Port form:
	Block BlockID
	Slot  SlotID
	// Bus form:
	Bus BusID
}

// Port constructs a port endpoint.
func Port(block BlockID, slot SlotID) Endpoint {
	return Endpoint{Kind: EndpointPort, Block: block, Slot: slot}
}

// BusEndpoint constructs a bus endpoint.
func BusEndpoint(bus BusID) Endpoint {
	return Endpoint{Kind: EndpointBus, Bus: bus}
}

// TransformStep is one step of an edge's adapter/lens chain.
type TransformStep struct {
	ID     string
	Params map[string]any
}

// Edge is a directed connection between two endpoints. At least one of
// From/To must be a port; bus->bus is illegal (enforced in Pass 1).
type Edge struct {
	ID         EdgeID
	From       Endpoint
	To         Endpoint
	Transforms []TransformStep
	Enabled    bool
	Weight     float64
	SortKey    float64
}

// BusCombineMode is the reduction rule for a bus's publishers.
type BusCombineMode string

const (
	CombineSum     BusCombineMode = "sum"
	CombineAverage BusCombineMode = "average"
	CombineMax     BusCombineMode = "max"
	CombineMin     BusCombineMode = "min"
	CombineLast    BusCombineMode = "last"
	CombineLayer   BusCombineMode = "layer"
)

// Bus is a named multi-writer rendezvous point.
type Bus struct {
	ID          BusID
	Type        typedesc.TypeDesc
	CombineMode BusCombineMode
}

// Patch is the full input to the compiler: an unordered set of blocks
// and edges plus bus declarations. Exactly one block must carry the
// TimeRoot block type (validated by Pass 3).
type Patch struct {
	Blocks []Block
	Edges  []Edge
	Buses  []Bus
}

// BlockByID returns the block with the given id, or ok=false.
func (p *Patch) BlockByID(id BlockID) (Block, bool) {
	for _, b := range p.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// BusByID returns the bus with the given id, or ok=false.
func (p *Patch) BusByID(id BusID) (Bus, bool) {
	for _, b := range p.Buses {
		if b.ID == id {
			return b, true
		}
	}
	return Bus{}, false
}

// Clone returns a deep-enough copy of p suitable for a pass to mutate
// without affecting the caller's patch. Params maps are shallow-copied
// (compile-time configuration is treated as immutable by convention).
func (p *Patch) Clone() Patch {
	out := Patch{
		Blocks: make([]Block, len(p.Blocks)),
		Edges:  make([]Edge, len(p.Edges)),
		Buses:  make([]Bus, len(p.Buses)),
	}
	copy(out.Blocks, p.Blocks)
	copy(out.Edges, p.Edges)
	copy(out.Buses, p.Buses)
	for i := range out.Edges {
		if out.Edges[i].Transforms != nil {
			cp := make([]TransformStep, len(out.Edges[i].Transforms))
			copy(cp, out.Edges[i].Transforms)
			out.Edges[i].Transforms = cp
		}
	}
	return out
}
