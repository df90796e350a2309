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

package ir

import "strings"

// CombineMode is the reduction rule applied when N>=2 writers target the
// same bus or input slot. It is a superset of patch.BusCombineMode:
// buses and slots share this one kernel.
type CombineMode string

const (
	CombineSum     CombineMode = "sum"
	CombineAverage CombineMode = "average"
	CombineMax     CombineMode = "max"
	CombineMin     CombineMode = "min"
	CombineLast    CombineMode = "last"
	CombineFirst   CombineMode = "first"
	CombineLayer   CombineMode = "layer"
	CombineError   CombineMode = "error"
)

const customPrefix = "custom:"

// CustomMode builds a CombineMode referring to a registered custom
// reducer by id.
func CustomMode(id string) CombineMode {
	return CombineMode(customPrefix + id)
}

// CustomID reports the registered reducer id if m names a custom mode.
func (m CombineMode) CustomID() (string, bool) {
	s := string(m)
	if strings.HasPrefix(s, customPrefix) {
		return s[len(customPrefix):], true
	}
	return "", false
}

// CombineWhen selects when a slot's CombinePolicy kicks in.
type CombineWhen string

const (
	WhenMulti  CombineWhen = "multi"  // identity for N=1, reduce for N>=2
	WhenAlways CombineWhen = "always" // reduce for any N
)

// CombinePolicy is the per-slot configuration consulted during writer
// resolution. The default is {When: multi, Mode: last}.
type CombinePolicy struct {
	When CombineWhen
	Mode CombineMode
}

// DefaultCombinePolicy is the policy used when a block registration
// leaves a slot's Combine field unset.
var DefaultCombinePolicy = CombinePolicy{When: WhenMulti, Mode: CombineLast}
