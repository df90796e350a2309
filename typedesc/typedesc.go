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

// Package typedesc describes every value that can flow through a patch
// graph: its world (signal/event/field/scalar/config), its domain
// (float, vec2, color, ...), its lane count, and whether it is eligible
// to be carried by a bus.
//
// TypeDesc is the single canonical shape used throughout the compiler
// and runtime for describing values; there is no parallel "UI type" or
// "storage type" -- one shape, one source of truth.
package typedesc

import "fmt"

// World identifies the evaluation regime a value belongs to.
type World int

const (
	WorldInvalid World = iota
	Signal
	Event
	Field
	Scalar
	Config
)

func (w World) String() string {
	switch w {
	case Signal:
		return "signal"
	case Event:
		return "event"
	case Field:
		return "field"
	case Scalar:
		return "scalar"
	case Config:
		return "config"
	default:
		return "invalid"
	}
}

// Domain is a closed enumeration of value shapes. Internal-only tags
// (those not meant to appear on a bus or in the editor's palette) are
// still part of this enumeration; Category + BusEligible gate their use.
type Domain int

const (
	DomainInvalid Domain = iota
	Float
	Int
	Vec2
	Vec3
	Color
	Boolean
	Phase01
	Trigger
	RenderTree
	Point
	Phase
	RenderNode
	Render
	Quat
	Vec4
	RGBA
	Mat4
	// internalPayload is a catch-all domain for transitional closure
	// values (see SigExprIR variant `closure`); never bus-eligible.
	internalPayload
)

func (d Domain) String() string {
	switch d {
	case Float:
		return "float"
	case Int:
		return "int"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Color:
		return "color"
	case Boolean:
		return "boolean"
	case Phase01:
		return "phase01"
	case Trigger:
		return "trigger"
	case RenderTree:
		return "renderTree"
	case Point:
		return "point"
	case Phase:
		return "phase"
	case RenderNode:
		return "renderNode"
	case Render:
		return "render"
	case Quat:
		return "quat"
	case Vec4:
		return "vec4"
	case RGBA:
		return "rgba"
	case Mat4:
		return "mat4"
	case internalPayload:
		return "internalPayload"
	default:
		return "invalid"
	}
}

// Category separates core (editor-facing, potentially bus-eligible)
// domains from internal-only ones.
type Category int

const (
	Core Category = iota
	Internal
)

// TypeDesc is the canonical value descriptor. Two TypeDescs describe
// the same value shape iff World and Domain match; Lanes is derived
// from Domain by InferLanes but is carried explicitly so bundle arity
// never needs a second lookup.
type TypeDesc struct {
	World       World
	Domain      Domain
	Lanes       []int // nil means scalar (arity 1)
	Category    Category
	BusEligible bool
	Semantics   string // optional, e.g. "energy", "primary"
	Unit        string // optional, e.g. "ms"
}

// domainAliases collapses the named domain aliases so
// compatibility checks below treat them as the same domain.
var domainAliases = map[Domain]Domain{
	Point:      Vec2,
	Phase:      Phase01,
	RenderNode: RenderTree,
	Render:     RenderTree,
}

func canonicalDomain(d Domain) Domain {
	if c, ok := domainAliases[d]; ok {
		return c
	}
	return d
}

// New builds a TypeDesc, filling in Lanes and Category/BusEligible from
// the domain's defaults. Callers may override BusEligible/Semantics/Unit
// afterward.
func New(world World, domain Domain) TypeDesc {
	return TypeDesc{
		World:       world,
		Domain:      domain,
		Lanes:       InferLanes(domain),
		Category:    categoryOf(domain),
		BusEligible: categoryOf(domain) == Core,
	}
}

func categoryOf(d Domain) Category {
	if canonicalDomain(d) == internalPayload {
		return Internal
	}
	return Core
}

// InferLanes returns the per-component lane layout for a domain, or nil
// for scalar domains. vec2 -> [2], vec3 -> [3], rgba/quat/vec4 -> [4],
// mat4 -> [16].
func InferLanes(d Domain) []int {
	switch canonicalDomain(d) {
	case Vec2:
		return []int{2}
	case Vec3:
		return []int{3}
	case RGBA, Quat, Vec4:
		return []int{4}
	case Color:
		return []int{4}
	case Mat4:
		return []int{16}
	default:
		return nil
	}
}

// GetArity returns the number of contiguous value-store slots a value
// of this type occupies: the sum of Lanes, or 1 for a scalar.
func GetArity(t TypeDesc) int {
	lanes := t.Lanes
	if lanes == nil {
		lanes = InferLanes(t.Domain)
	}
	if lanes == nil {
		return 1
	}
	sum := 0
	for _, l := range lanes {
		sum += l
	}
	if sum <= 0 {
		return 1
	}
	return sum
}

// ErrUnknownDomain is returned by slot allocation when a TypeDesc names
// a domain outside the closed enumeration.
type ErrUnknownDomain struct {
	Domain Domain
}

func (e *ErrUnknownDomain) Error() string {
	return fmt.Sprintf("typedesc: unknown domain %v", int(e.Domain))
}

// Valid reports whether d is a member of the closed domain enumeration.
func (d Domain) Valid() bool {
	return d > DomainInvalid && d <= internalPayload
}

// worldPromotable reports the permitted single-step world promotions,
// keyed by (fromWorld, toWorld). A promotion is legal only when the
// domains already match (after alias canonicalization); world
// broadcasting never changes the underlying domain.
func worldPromotable(from, to World) bool {
	switch {
	case from == to:
		return true
	case from == Scalar && to == Signal:
		return true
	case from == Signal && to == Field:
		return true
	case from == Scalar && to == Field:
		// scalar -> field via the scalar -> signal -> field chain
		return true
	default:
		return false
	}
}

// IsCompatible reports whether a value of type `from` may flow into a
// slot declared as type `to`: exact match, scalar->signal
// promotion, signal->field broadcast, scalar->field via the promotion
// chain, or domain aliasing (phase<->phase01, vec2<->point,
// renderTree<->renderNode<->render).
func IsCompatible(from, to TypeDesc) bool {
	if canonicalDomain(from.Domain) != canonicalDomain(to.Domain) {
		return false
	}
	return worldPromotable(from.World, to.World)
}

// Equal reports whether two TypeDescs name the same value shape,
// ignoring Semantics/Unit (informational metadata, not part of
// compatibility).
func Equal(a, b TypeDesc) bool {
	if a.World != b.World || canonicalDomain(a.Domain) != canonicalDomain(b.Domain) {
		return false
	}
	if len(a.Lanes) != len(b.Lanes) {
		return false
	}
	for i := range a.Lanes {
		if a.Lanes[i] != b.Lanes[i] {
			return false
		}
	}
	return true
}
