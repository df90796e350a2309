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

// TimeModelKind tags the variant of a TimeModelIR.
type TimeModelKind int

const (
	TimeInvalid TimeModelKind = iota
	TimeFinite
	TimeCyclic
	TimeInfinite
)

// CyclicMode selects wraparound behavior for a cyclic time model.
type CyclicMode int

const (
	CyclicLoop CyclicMode = iota
	CyclicPingPong
)

// TimeModelIR is the tagged union describing how model time advances
// and wraps. Exactly one exists per program.
type TimeModelIR struct {
	Kind TimeModelKind

	DurationMs float64 // finite
	PeriodMs   float64 // cyclic
	Mode       CyclicMode
	WindowMs   float64 // infinite
}
