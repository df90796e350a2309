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

// Package harness loads declarative YAML patch fixtures and runs them
// through the full compile+execute pipeline, for use by tests only: a
// thin driver whose only job is pushing fixtures through the real
// pipeline end to end rather than re-implementing any of it.
package harness

import (
	"fmt"
	"io"

	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
	"gopkg.in/yaml.v2"
)

type yamlEndpoint struct {
	Block string `yaml:"block"`
	Slot  string `yaml:"slot"`
	Bus   string `yaml:"bus"`
}

func (e yamlEndpoint) resolve(where string) (patch.Endpoint, error) {
	switch {
	case e.Bus != "" && e.Block == "":
		return patch.BusEndpoint(patch.BusID(e.Bus)), nil
	case e.Bus == "" && e.Block != "":
		return patch.Port(patch.BlockID(e.Block), patch.SlotID(e.Slot)), nil
	default:
		return patch.Endpoint{}, fmt.Errorf("harness: %s endpoint must set exactly one of bus/block", where)
	}
}

type yamlTransform struct {
	ID     string         `yaml:"id"`
	Params map[string]any `yaml:"params"`
}

type yamlEdge struct {
	ID         string          `yaml:"id"`
	From       yamlEndpoint    `yaml:"from"`
	To         yamlEndpoint    `yaml:"to"`
	Enabled    *bool           `yaml:"enabled"`
	Weight     float64         `yaml:"weight"`
	SortKey    float64         `yaml:"sortKey"`
	Transforms []yamlTransform `yaml:"transforms"`
}

type yamlBlock struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
	Hidden bool           `yaml:"hidden"`
}

type yamlBus struct {
	ID      string `yaml:"id"`
	World   string `yaml:"world"`
	Domain  string `yaml:"domain"`
	Combine string `yaml:"combine"`
}

type yamlPatch struct {
	Blocks []yamlBlock `yaml:"blocks"`
	Edges  []yamlEdge  `yaml:"edges"`
	Buses  []yamlBus   `yaml:"buses"`
}

var worldByName = map[string]typedesc.World{
	"signal": typedesc.Signal,
	"event":  typedesc.Event,
	"field":  typedesc.Field,
	"scalar": typedesc.Scalar,
	"config": typedesc.Config,
}

var domainByName = map[string]typedesc.Domain{
	"float":      typedesc.Float,
	"int":        typedesc.Int,
	"vec2":       typedesc.Vec2,
	"vec3":       typedesc.Vec3,
	"color":      typedesc.Color,
	"boolean":    typedesc.Boolean,
	"phase01":    typedesc.Phase01,
	"trigger":    typedesc.Trigger,
	"renderTree": typedesc.RenderTree,
	"point":      typedesc.Point,
	"phase":      typedesc.Phase,
	"renderNode": typedesc.RenderNode,
	"render":     typedesc.Render,
	"quat":       typedesc.Quat,
	"vec4":       typedesc.Vec4,
	"rgba":       typedesc.RGBA,
	"mat4":       typedesc.Mat4,
}

var combineModeByName = map[string]patch.BusCombineMode{
	"sum":     patch.CombineSum,
	"average": patch.CombineAverage,
	"max":     patch.CombineMax,
	"min":     patch.CombineMin,
	"last":    patch.CombineLast,
	"layer":   patch.CombineLayer,
}

// LoadPatchYAML decodes a declarative patch fixture from r.
// The YAML schema is a direct rendering of patch.Patch: a list of
// blocks (id/type/params), edges (from/to, each either {block,slot} or
// {bus}), and bus declarations (id/world/domain/combine).
func LoadPatchYAML(r io.Reader) (patch.Patch, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("harness: read patch yaml: %w", err)
	}
	var doc yamlPatch
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return patch.Patch{}, fmt.Errorf("harness: decode patch yaml: %w", err)
	}
	return doc.toPatch()
}

func (doc yamlPatch) toPatch() (patch.Patch, error) {
	var p patch.Patch

	for _, b := range doc.Blocks {
		p.Blocks = append(p.Blocks, patch.Block{
			ID:     patch.BlockID(b.ID),
			Type:   b.Type,
			Params: b.Params,
			Hidden: b.Hidden,
		})
	}

	for _, e := range doc.Edges {
		from, err := e.From.resolve(fmt.Sprintf("edge %s from", e.ID))
		if err != nil {
			return patch.Patch{}, err
		}
		to, err := e.To.resolve(fmt.Sprintf("edge %s to", e.ID))
		if err != nil {
			return patch.Patch{}, err
		}
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		var transforms []patch.TransformStep
		for _, t := range e.Transforms {
			transforms = append(transforms, patch.TransformStep{ID: t.ID, Params: t.Params})
		}
		p.Edges = append(p.Edges, patch.Edge{
			ID:         patch.EdgeID(e.ID),
			From:       from,
			To:         to,
			Transforms: transforms,
			Enabled:    enabled,
			Weight:     e.Weight,
			SortKey:    e.SortKey,
		})
	}

	for _, b := range doc.Buses {
		world, ok := worldByName[b.World]
		if !ok {
			return patch.Patch{}, fmt.Errorf("harness: bus %s: unknown world %q", b.ID, b.World)
		}
		domain, ok := domainByName[b.Domain]
		if !ok {
			return patch.Patch{}, fmt.Errorf("harness: bus %s: unknown domain %q", b.ID, b.Domain)
		}
		mode, ok := combineModeByName[b.Combine]
		if !ok {
			return patch.Patch{}, fmt.Errorf("harness: bus %s: unknown combine mode %q", b.ID, b.Combine)
		}
		p.Buses = append(p.Buses, patch.Bus{
			ID:          patch.BusID(b.ID),
			Type:        typedesc.New(world, domain),
			CombineMode: mode,
		})
	}

	return p, nil
}
