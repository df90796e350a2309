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

package runtime

import (
	"testing"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
)

func TestEventStoreOneShot(t *testing.T) {
	e := NewEventStore()
	slot := idalloc.EventSlot(3)

	if e.Check(slot) {
		t.Error("a never-triggered slot must not report fired")
	}
	e.Trigger(slot, map[string]any{"count": int64(1)})
	if !e.Check(slot) {
		t.Error("a triggered slot must report fired within the frame")
	}
	payload, ok := e.GetPayload(slot)
	if !ok || payload["count"] != int64(1) {
		t.Errorf("payload = %v, %v", payload, ok)
	}

	// frame boundary
	e.Reset()
	if e.Check(slot) {
		t.Error("Reset must clear the fired flag (events are one-shot per frame)")
	}
	if _, ok := e.GetPayload(slot); ok {
		t.Error("Reset must clear the payload")
	}
}

func TestEventStoreLastTriggerWins(t *testing.T) {
	e := NewEventStore()
	slot := idalloc.EventSlot(0)
	e.Trigger(slot, map[string]any{"phase": 0.1})
	e.Trigger(slot, map[string]any{"phase": 0.7})
	payload, _ := e.GetPayload(slot)
	if payload["phase"] != 0.7 {
		t.Errorf("last trigger must win within a frame: payload = %v", payload)
	}
}

func TestFrameCacheStoresAndResets(t *testing.T) {
	c := NewFrameCache()
	id := idalloc.SigExprId(5)
	if _, ok := c.Lookup(id); ok {
		t.Error("empty cache must miss")
	}
	c.Store(id, []float64{2.5})
	v, ok := c.Lookup(id)
	if !ok || len(v) != 1 || v[0] != 2.5 {
		t.Errorf("Lookup = %v, %v", v, ok)
	}
	// a cached zero is still a hit, distinct from a miss
	c.Store(idalloc.SigExprId(6), []float64{0})
	if _, ok := c.Lookup(6); !ok {
		t.Error("a stored zero must still hit")
	}
	c.Reset()
	if _, ok := c.Lookup(id); ok {
		t.Error("Reset must clear every entry")
	}
}
