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
	"testing"

	"github.com/brandon-fryslie/oscilla-animator-sub000/blocks"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
)

func whiteboxState(t *testing.T) *compileState {
	t.Helper()
	blockReg := registry.NewBlockRegistry()
	if err := blocks.RegisterAll(blockReg); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return newCompileState(blockReg, registry.NewTransformRegistry(), registry.NewCombineRegistry(), 0, false)
}

// Pass0(Pass0(P)) = Pass0(P).
func TestPass0IsIdempotent(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "root", Type: "CycleTimeRoot", Params: map[string]any{"periodMs": 1000.0}},
			{ID: "osc", Type: "Oscillator"},
		},
	}

	s1 := whiteboxState(t)
	s1.pass0(p)
	once := s1.p0

	s2 := whiteboxState(t)
	s2.pass0(once)
	twice := s2.p0

	if len(once.Blocks) != len(twice.Blocks) || len(once.Edges) != len(twice.Edges) {
		t.Fatalf("pass0 not idempotent: %d/%d blocks, %d/%d edges",
			len(once.Blocks), len(twice.Blocks), len(once.Edges), len(twice.Edges))
	}
	for i := range once.Blocks {
		if once.Blocks[i].ID != twice.Blocks[i].ID {
			t.Errorf("block %d: %s vs %s", i, once.Blocks[i].ID, twice.Blocks[i].ID)
		}
	}
	for i := range once.Edges {
		if once.Edges[i].ID != twice.Edges[i].ID {
			t.Errorf("edge %d: %s vs %s", i, once.Edges[i].ID, twice.Edges[i].ID)
		}
	}
}

func TestPass0MaterializesProviderPerUndrivenInput(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{{ID: "osc", Type: "Oscillator"}},
	}
	s := whiteboxState(t)
	s.pass0(p)

	// Oscillator declares phase and frequency, both defaulted.
	if len(s.p0.Blocks) != 3 {
		t.Fatalf("blocks after pass0 = %d, want 3 (osc + 2 providers)", len(s.p0.Blocks))
	}
	if len(s.p0.Edges) != 2 {
		t.Fatalf("edges after pass0 = %d, want 2", len(s.p0.Edges))
	}
	provider, ok := s.p0.BlockByID("osc_default_frequency")
	if !ok {
		t.Fatal("provider id must be deterministic: osc_default_frequency")
	}
	if !provider.Hidden || provider.Role != patch.RoleDefaultSourceProvider {
		t.Errorf("provider = %+v, want hidden defaultSourceProvider", provider)
	}
	if provider.Type != "DSConstSignalFloat" {
		t.Errorf("provider type = %s, want DSConstSignalFloat", provider.Type)
	}
}

// Writer order depends only on (kind, sortKey, id).
func TestPass5WriterOrderIsDeterministic(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{
			{ID: "c1", Type: "DSConstSignalFloat"},
			{ID: "c2", Type: "DSConstSignalFloat"},
			{ID: "c3", Type: "DSConstSignalFloat"},
			{ID: "sink", Type: "Add"},
		},
		Buses: []patch.Bus{},
		Edges: []patch.Edge{
			// insertion order deliberately scrambled relative to the
			// required (sortKey, id) order
			{ID: "zz", From: patch.Port("c1", "out"), To: patch.Port("sink", "a"), Enabled: true, SortKey: 1},
			{ID: "aa", From: patch.Port("c2", "out"), To: patch.Port("sink", "a"), Enabled: true, SortKey: 1},
			{ID: "mm", From: patch.Port("c3", "out"), To: patch.Port("sink", "a"), Enabled: true, SortKey: 0},
		},
	}

	s := whiteboxState(t)
	s.pass0(p)
	s.pass1()
	s.pass5()

	spec, ok := s.resolved[inputKey{"sink", "a"}]
	if !ok {
		t.Fatal("no resolved spec for sink.a")
	}
	var got []string
	for _, w := range spec.writers {
		got = append(got, w.id)
	}
	want := []string{"mm", "aa", "zz"}
	if len(got) != len(want) {
		t.Fatalf("writers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("writers = %v, want %v (sortKey asc, then id asc)", got, want)
		}
	}
}

func TestPass1RejectsBusToBusEdge(t *testing.T) {
	p := patch.Patch{
		Blocks: []patch.Block{{ID: "root", Type: "CycleTimeRoot"}},
		Buses: []patch.Bus{
			{ID: "a", CombineMode: patch.CombineSum},
			{ID: "b", CombineMode: patch.CombineSum},
		},
		Edges: []patch.Edge{
			{ID: "bad", From: patch.BusEndpoint("a"), To: patch.BusEndpoint("b"), Enabled: true},
		},
	}
	s := whiteboxState(t)
	s.pass0(p)
	s.pass1()
	if !s.diags.hasFatal() {
		t.Fatal("bus->bus must be fatal")
	}
	found := false
	for _, d := range s.diags.items {
		if d.Code == CodeBusToBusEdge && d.Where.EdgeID == "bad" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected BusToBusEdge naming edge bad, got %+v", s.diags.items)
	}
}
