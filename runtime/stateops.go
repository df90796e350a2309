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
	"math"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
)

// evalSigState evaluates a SigState node: read the operator's previous
// value out of the StateBuffer, fold in this frame's update, write the
// new value back, and return it. Which fold to apply is read off the
// wrapped update node (n.A) rather than the SigState node itself, since
// state-slot identity, not opcode, is what SigState carries.
//
// During a scrub frame, Integrate and Slew short-circuit to "hold the
// last known value" and PulseDivider's counter doesn't advance its
// divide count; DelayMs still emits its stored value and stores this
// frame's input.
//
// State cells are scalar; a stateful operator's operands read lane 0 of
// whatever bundle feeds them.
func (e *Executor) evalSigState(n ir.SigExprIR, dt derivedTime) (float64, error) {
	prev := e.state.Get(n.StateSlot, e.constScalar(n.InitConst))
	if int(n.A) < 0 || int(n.A) >= len(e.prog.Signals) {
		return prev, nil
	}
	update := e.prog.Signals[n.A]

	scalar := func(id idalloc.SigExprId) (float64, error) {
		v, err := e.evalSig(id, dt)
		return laneAt(v, 0), err
	}

	var next float64
	switch {
	case update.Op == ir.SigIntegrate:
		rate, err := scalar(update.A)
		if err != nil {
			return prev, err
		}
		if dt.isScrub {
			next = prev
		} else {
			next = prev + rate*dt.deltaMs/1000
		}
	case update.Op == ir.SigDelayMs:
		// a single-stage delay: this frame writes the *previous* input
		// value that will be read back exactly one frame later.
		input, err := scalar(update.A)
		if err != nil {
			return prev, err
		}
		next = prev
		e.state.Set(n.StateSlot, input)
		return next, nil
	case update.Op == ir.SigZip && update.Kernel == "slewTowards":
		target, err := scalar(update.A)
		if err != nil {
			return prev, err
		}
		rate, err := scalar(update.B)
		if err != nil {
			return prev, err
		}
		if dt.isScrub {
			next = prev
		} else {
			maxStep := math.Abs(rate) * dt.deltaMs / 1000
			step := clampF(target-prev, -maxStep, maxStep)
			next = prev + step
		}
	case update.Op == ir.SigZip && update.Kernel == "pulseDivide":
		// prev holds a fractional pulse accumulator, not the emitted
		// trigger itself, so the exposed output stays a one-shot 0/1
		// trigger regardless of divisor.
		trig, err := scalar(update.A)
		if err != nil {
			return prev, err
		}
		divisor, err := scalar(update.B)
		if err != nil {
			return prev, err
		}
		if divisor <= 0 {
			divisor = 1
		}
		acc := prev
		if !dt.isScrub && trig != 0 {
			acc += 1 / divisor
		}
		if acc >= 1 {
			acc -= 1
			e.state.Set(n.StateSlot, acc)
			return 1, nil
		}
		e.state.Set(n.StateSlot, acc)
		return 0, nil
	default:
		v, err := scalar(n.A)
		if err != nil {
			return prev, err
		}
		next = v
	}
	e.state.Set(n.StateSlot, next)
	return next, nil
}
