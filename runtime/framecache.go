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

// FrameCache memoizes signal-node evaluation within one frame: a DAG
// of signals shared by multiple readers is evaluated
// at most once per frame. Cleared at the start of every frame.
type FrameCache struct {
	values map[idalloc.SigExprId][]float64
}

// NewFrameCache returns an empty cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{values: make(map[idalloc.SigExprId][]float64)}
}

// Lookup reports whether id was already computed this frame, returning
// its lane bundle on a hit. Callers must not mutate the returned slice.
func (c *FrameCache) Lookup(id idalloc.SigExprId) ([]float64, bool) {
	v, ok := c.values[id]
	return v, ok
}

// Store records id's computed lane bundle for the remainder of the
// frame.
func (c *FrameCache) Store(id idalloc.SigExprId, v []float64) {
	c.values[id] = v
}

// Reset clears every cached entry. Called at the start of every frame.
func (c *FrameCache) Reset() {
	for k := range c.values {
		delete(c.values, k)
	}
}
