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

package transforms

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

func TestRegisterAllDeclaresTypedEntries(t *testing.T) {
	r := registry.NewTransformRegistry()
	RegisterAll(r)

	ids := r.IDs()
	want := []string{"float->vec2", "gain", "invert"}
	if len(ids) != len(want) {
		t.Fatalf("IDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs = %v, want %v (deterministic order)", ids, want)
		}
	}

	adapter, ok := r.Lookup("float->vec2")
	if !ok {
		t.Fatal("float->vec2 must be registered")
	}
	if adapter.InputType.Domain != typedesc.Float || adapter.OutputType.Domain != typedesc.Vec2 {
		t.Errorf("float->vec2 types = %v -> %v", adapter.InputType.Domain, adapter.OutputType.Domain)
	}
	if adapter.CompileToIR == nil {
		t.Error("float->vec2 must declare compileToIR")
	}

	for _, lens := range []string{"gain", "invert"} {
		def, ok := r.Lookup(lens)
		if !ok {
			t.Fatalf("%s must be registered", lens)
		}
		if def.InputType.Domain != typedesc.Float || def.OutputType.Domain != typedesc.Float {
			t.Errorf("%s must be float -> float, got %v -> %v", lens, def.InputType.Domain, def.OutputType.Domain)
		}
	}
}
