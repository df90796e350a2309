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

import "github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"

// eventRecord is one EventSlot's per-frame state.
type eventRecord struct {
	triggered bool
	payload   map[string]any
}

// EventStore holds one-shot discrete events for the current frame.
// Unlike ValueStore, it is not a continuous value: check(slot) answers
// "did this fire this frame", which a numeric 0/1 value store cannot
// distinguish from "fired with value zero".
type EventStore struct {
	records map[idalloc.EventSlot]*eventRecord
}

// NewEventStore returns an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{records: make(map[idalloc.EventSlot]*eventRecord)}
}

// Trigger sets slot's triggered flag and overwrites its payload
// (last-trigger-wins within a frame).
func (e *EventStore) Trigger(slot idalloc.EventSlot, payload map[string]any) {
	e.records[slot] = &eventRecord{triggered: true, payload: payload}
}

// Check reports whether slot fired this frame.
func (e *EventStore) Check(slot idalloc.EventSlot) bool {
	r, ok := e.records[slot]
	return ok && r.triggered
}

// GetPayload returns the payload slot fired with this frame, if any.
func (e *EventStore) GetPayload(slot idalloc.EventSlot) (map[string]any, bool) {
	r, ok := e.records[slot]
	if !ok || !r.triggered {
		return nil, false
	}
	return r.payload, true
}

// Reset clears every slot. Called at the start of every frame before
// any step runs.
func (e *EventStore) Reset() {
	for k := range e.records {
		delete(e.records, k)
	}
}
