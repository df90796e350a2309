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

package typedesc

import "testing"

func TestNewFillsLanesAndBusEligibility(t *testing.T) {
	cases := []struct {
		domain      Domain
		wantLanes   []int
		wantEligble bool
	}{
		{Float, nil, true},
		{Vec2, []int{2}, true},
		{Vec3, []int{3}, true},
		{Color, []int{4}, true},
		{RGBA, []int{4}, true},
		{Mat4, []int{16}, true},
		{internalPayload, nil, false},
	}
	for _, c := range cases {
		td := New(Signal, c.domain)
		if len(td.Lanes) != len(c.wantLanes) {
			t.Fatalf("domain %v: lanes = %v, want %v", c.domain, td.Lanes, c.wantLanes)
		}
		for i := range c.wantLanes {
			if td.Lanes[i] != c.wantLanes[i] {
				t.Fatalf("domain %v: lanes = %v, want %v", c.domain, td.Lanes, c.wantLanes)
			}
		}
		if td.BusEligible != c.wantEligble {
			t.Fatalf("domain %v: BusEligible = %v, want %v", c.domain, td.BusEligible, c.wantEligble)
		}
	}
}

func TestGetArity(t *testing.T) {
	cases := []struct {
		domain Domain
		want   int
	}{
		{Float, 1},
		{Int, 1},
		{Vec2, 2},
		{Vec3, 3},
		{Color, 4},
		{Mat4, 16},
	}
	for _, c := range cases {
		got := GetArity(New(Signal, c.domain))
		if got != c.want {
			t.Errorf("GetArity(%v) = %d, want %d", c.domain, got, c.want)
		}
	}
}

func TestIsCompatibleWorldPromotion(t *testing.T) {
	scalarFloat := New(Scalar, Float)
	signalFloat := New(Signal, Float)
	fieldFloat := New(Field, Float)

	if !IsCompatible(scalarFloat, signalFloat) {
		t.Error("scalar -> signal promotion should be compatible")
	}
	if !IsCompatible(signalFloat, fieldFloat) {
		t.Error("signal -> field broadcast should be compatible")
	}
	if !IsCompatible(scalarFloat, fieldFloat) {
		t.Error("scalar -> field (via signal) should be compatible")
	}
	if IsCompatible(fieldFloat, signalFloat) {
		t.Error("field -> signal should NOT be compatible (promotion is one-directional)")
	}
	if IsCompatible(New(Signal, Vec2), signalFloat) {
		t.Error("mismatched domains should never be compatible")
	}
}

func TestIsCompatibleDomainAliases(t *testing.T) {
	cases := []struct{ a, b Domain }{
		{Point, Vec2},
		{Phase, Phase01},
		{RenderNode, RenderTree},
		{Render, RenderTree},
	}
	for _, c := range cases {
		a := New(Signal, c.a)
		b := New(Signal, c.b)
		if !IsCompatible(a, b) {
			t.Errorf("%v and %v should be aliased-compatible", c.a, c.b)
		}
		if !Equal(a, b) {
			t.Errorf("%v and %v should be Equal (alias canonicalization)", c.a, c.b)
		}
	}
}

func TestDomainValid(t *testing.T) {
	if DomainInvalid.Valid() {
		t.Error("DomainInvalid must not be Valid")
	}
	if !Float.Valid() {
		t.Error("Float must be Valid")
	}
	if !internalPayload.Valid() {
		t.Error("internalPayload is still a member of the closed enumeration")
	}
	if Domain(9999).Valid() {
		t.Error("an out-of-range domain must not be Valid")
	}
}
