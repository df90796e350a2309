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

import "math"

// unaryKernels maps a SigMap/FieldMap Kernel name to its scalar
// implementation. New block registrations that need a new kernel add
// an entry here.
var unaryKernels = map[string]func(float64) float64{
	"sin2pi":   func(x float64) float64 { return math.Sin(x * 2 * math.Pi) },
	"oneMinus": func(x float64) float64 { return 1 - x },
	"identity": func(x float64) float64 { return x },
}

func evalUnaryKernel(name string, x float64) float64 {
	if fn, ok := unaryKernels[name]; ok {
		return fn(x)
	}
	return x
}

// unaryLaneKernels maps Kernel names that operate on a whole lane
// bundle rather than lane-by-lane. broadcastVec2 fans a scalar out to
// both lanes of a vec2 (the float->vec2 adapter's kernel).
var unaryLaneKernels = map[string]func([]float64) []float64{
	"broadcastVec2": func(v []float64) []float64 {
		x := laneAt(v, 0)
		return []float64{x, x}
	},
}

// applyUnary applies a unary kernel to one lane bundle: lane-aware
// kernels see the whole bundle, everything else maps lane-by-lane.
func applyUnary(kernel string, src []float64) []float64 {
	if fn, ok := unaryLaneKernels[kernel]; ok {
		return fn(src)
	}
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = evalUnaryKernel(kernel, v)
	}
	return out
}

// laneAt reads lane i of a bundle. A single-lane bundle broadcasts its
// only value to every lane; reading past the end of a shorter bundle
// yields 0.
func laneAt(v []float64, i int) float64 {
	if len(v) == 1 {
		return v[0]
	}
	if i < len(v) {
		return v[i]
	}
	return 0
}

// conformLanes reshapes a bundle to the given arity, broadcasting
// single-lane values and zero-filling missing lanes. The input slice is
// returned unchanged when it already matches.
func conformLanes(v []float64, arity int) []float64 {
	if len(v) == arity {
		return v
	}
	out := make([]float64, arity)
	for i := range out {
		out[i] = laneAt(v, i)
	}
	return out
}

// binaryKernels maps a SigZip/FieldZip Kernel name to its scalar
// implementation.
var binaryKernels = map[string]func(a, b float64) float64{
	"add": func(a, b float64) float64 { return a + b },
	"mul": func(a, b float64) float64 { return a * b },
	"sub": func(a, b float64) float64 { return a - b },
	"div": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	// slewTowards/pulseDivide tag the SigZip node a SigState wraps; the
	// state slot's own evalSigState reads their A/B operands directly
	// and never this node's cached value, so its dispatch here is inert.
	"slewTowards": func(a, b float64) float64 { return a },
	"pulseDivide": func(a, b float64) float64 { return a },
}

func evalBinaryKernel(name string, a, b float64) float64 {
	if fn, ok := binaryKernels[name]; ok {
		return fn(a, b)
	}
	return a
}
