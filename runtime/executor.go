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
	"errors"
	"math"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

// StepLogger receives a line of text whenever a step fails
// non-fatally. The executor takes one as an injected dependency so the
// caller chooses the sink; the executor never writes to stdout/stderr
// itself.
type StepLogger interface {
	Logf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Logf(string, ...any) {}

// ExecOptions configures one Executor.
type ExecOptions struct {
	Logger StepLogger
	// Trace gates DebugProbe capture; a nil Trace (the zero value)
	// leaves every StepDebugProbe step an inert no-op regardless of
	// Traces.
	Trace *TraceController
	// Traces receives captured records when Trace is in TraceCapturing.
	// Required only if Trace is non-nil.
	Traces *TraceRingBuffer
}

// FieldBuffer is one materialized field: ElementCount entries, each
// Arity contiguous float64 lanes.
type FieldBuffer struct {
	Arity int
	Lanes []float64 // len == Arity * elementCount
}

// ElementCount returns how many elements this buffer holds.
func (f FieldBuffer) ElementCount() int {
	if f.Arity == 0 {
		return 0
	}
	return len(f.Lanes) / f.Arity
}

// At returns the lane values for element i.
func (f FieldBuffer) At(i int) []float64 {
	return f.Lanes[i*f.Arity : (i+1)*f.Arity]
}

// FrameResult is everything one frame of Executor.Step produces. The
// Wrap* fields mirror the wrap event's payload and are meaningful only
// when Wrapped is true.
type FrameResult struct {
	IsScrub     bool
	Wrapped     bool
	WrapPhase   float64
	WrapCount   int64
	WrapDeltaMs float64
	Passes      []ir.RenderPassDesc
}

// Executor runs a frozen CompiledProgramIR's schedule one frame at a
// time. It owns the value store, event store, frame cache, and a
// reference to the state buffer the caller supplies (so state can
// outlive a hot-swap recompile).
type Executor struct {
	prog   *ir.CompiledProgramIR
	opts   ExecOptions
	values *ValueStore
	events *EventStore
	cache  *FrameCache
	state  *StateBuffer
	tstate timeState

	fieldBuffers map[idalloc.FieldExprId]FieldBuffer
}

// NewExecutor builds an Executor for prog. state is the caller-owned
// StateBuffer to read/write stateful operator feedback from; pass a
// fresh runtime.NewStateBuffer() for a program's first run, or a prior
// run's buffer across a recompile to preserve operator state.
func NewExecutor(prog *ir.CompiledProgramIR, state *StateBuffer, opts ExecOptions) *Executor {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	size := 0
	for _, m := range prog.SlotMetas {
		end := int(m.Start) + m.Arity
		if end > size {
			size = end
		}
	}
	return &Executor{
		prog:   prog,
		opts:   opts,
		values: NewValueStore(size),
		events: NewEventStore(),
		cache:  NewFrameCache(),
		state:  state,
	}
}

// Values exposes the executor's value store for tests and render code
// reading named Outputs.
func (e *Executor) Values() *ValueStore { return e.values }

// Events exposes the executor's event store for tests.
func (e *Executor) Events() *EventStore { return e.events }

// FieldBuffer returns a field materialized during the most recent
// Step call, for the render package to resolve into concrete draw
// data.
func (e *Executor) FieldBuffer(id idalloc.FieldExprId) (FieldBuffer, bool) {
	b, ok := e.fieldBuffers[id]
	return b, ok
}

// Step runs one frame at absolute time tAbsMs under mode, returning the
// frame's derived scrub/wrap status and any render passes the schedule
// assembled.
func (e *Executor) Step(tAbsMs float64, mode PlaybackMode) FrameResult {
	e.events.Reset()
	e.cache.Reset()
	e.values.Reset()
	e.fieldBuffers = nil

	var result FrameResult
	var dt derivedTime

	for _, step := range e.prog.Schedule {
		switch step.Kind {
		case ir.StepTimeDerive:
			dt = deriveTime(e.prog.TimeModel, &e.tstate, tAbsMs, mode)
			e.values.Set(step.TimeOutSlot, dt.tModelMs)
			result.IsScrub = dt.isScrub
			if dt.wrap {
				result.Wrapped = true
				result.WrapPhase = dt.wrapPhase
				result.WrapCount = dt.wrapCount
				result.WrapDeltaMs = dt.deltaMs
				e.events.Trigger(step.WrapEventSlot, map[string]any{
					"phase": dt.wrapPhase, "count": dt.wrapCount, "deltaMs": dt.deltaMs,
				})
			}
		case ir.StepNodeEval, ir.StepBusEval:
			arity := 1
			if int(step.SigID) >= 0 && int(step.SigID) < len(e.prog.Signals) {
				arity = typedesc.GetArity(e.prog.Signals[step.SigID].Type)
			}
			lanes, err := e.evalSig(step.SigID, dt)
			if err != nil {
				e.opts.Logger.Logf("runtime: node %d eval failed: %v", step.SigID, err)
				lanes = nil
			}
			e.values.SetVec(step.OutSlot, conformLanes(lanes, arity))
		case ir.StepMaterialize:
			e.materialize(step.FieldID, step.ElementCount, dt)
		case ir.StepRenderAssemble:
			result.Passes = e.assembleRender(step.Passes)
		case ir.StepDebugProbe:
			e.captureProbe(step.Probe)
		}
	}
	return result
}

// evalSig evaluates one signal node to its lane bundle: one entry for a
// scalar, arity entries for a vec/color/mat. Results are memoized in
// the frame cache; callers must not mutate the returned slice.
func (e *Executor) evalSig(id idalloc.SigExprId, dt derivedTime) ([]float64, error) {
	if v, ok := e.cache.Lookup(id); ok {
		return v, nil
	}
	if int(id) < 0 || int(id) >= len(e.prog.Signals) {
		return nil, ErrSlotOutOfRange
	}
	n := e.prog.Signals[id]
	arity := typedesc.GetArity(n.Type)
	var v []float64
	var err error
	switch n.Op {
	case ir.SigConst:
		v = e.constVec(n.Const, arity)
	case ir.SigTimeAbsMs:
		v = []float64{dt.tAbsMs}
	case ir.SigPhase01:
		v = []float64{dt.phase01}
	case ir.SigMap:
		var src []float64
		src, err = e.evalSig(n.A, dt)
		if err == nil {
			v = conformLanes(applyUnary(n.Kernel, src), arity)
		}
	case ir.SigZip:
		v, err = e.evalZipLanes(n.A, n.B, arity, dt, func(a, b float64) float64 {
			return evalBinaryKernel(n.Kernel, a, b)
		})
	case ir.SigSelect:
		cond, e1 := e.evalSig(n.A, dt)
		if e1 != nil {
			err = e1
			break
		}
		if laneAt(cond, 0) != 0 {
			v, err = e.evalSig(n.B, dt)
		} else {
			v, err = e.evalSig(n.C, dt)
		}
		if err == nil {
			v = conformLanes(v, arity)
		}
	case ir.SigAdd, ir.SigMul, ir.SigSub, ir.SigDiv:
		v, err = e.evalZipLanes(n.A, n.B, arity, dt, func(a, b float64) float64 {
			return evalArith(n.Op, a, b)
		})
	case ir.SigClamp:
		val, e1 := e.evalSig(n.A, dt)
		lo, e2 := e.evalSig(n.B, dt)
		hi, e3 := e.evalSig(n.C, dt)
		if err = firstErr(e1, e2, e3); err == nil {
			out := make([]float64, arity)
			for i := range out {
				out[i] = math.Min(math.Max(laneAt(val, i), laneAt(lo, i)), laneAt(hi, i))
			}
			v = out
		}
	case ir.SigState:
		var s float64
		s, err = e.evalSigState(n, dt)
		if err == nil {
			v = []float64{s}
		}
	case ir.SigBusCombine:
		v, err = e.evalCombineSig(n, arity, dt)
	case ir.SigIntegrate, ir.SigDelayMs, ir.SigColorHSLToRGB, ir.SigClosure:
		v, err = e.evalSig(n.A, dt)
		if err == nil {
			v = conformLanes(v, arity)
		}
	default:
		v = make([]float64, arity)
	}
	if err == nil {
		e.cache.Store(id, v)
	}
	return v, err
}

// evalZipLanes evaluates two operands and combines them lane-by-lane,
// broadcasting single-lane operands across the output arity.
func (e *Executor) evalZipLanes(a, b idalloc.SigExprId, arity int, dt derivedTime, fn func(a, b float64) float64) ([]float64, error) {
	av, err := e.evalSig(a, dt)
	if err != nil {
		return nil, err
	}
	bv, err := e.evalSig(b, dt)
	if err != nil {
		return nil, err
	}
	out := make([]float64, arity)
	for i := range out {
		out[i] = fn(laneAt(av, i), laneAt(bv, i))
	}
	return out, nil
}

// captureProbe reads one DebugProbe's slot lanes and appends a record
// to the trace ring buffer, but only while the attached TraceController
// is capturing. Field-stats probes are not yet supported -- probing a
// field would need the executor to resolve a FieldBuffer instead of a
// ValueSlot.
func (e *Executor) captureProbe(p ir.DebugProbe) {
	if e.opts.Trace == nil || e.opts.Traces == nil {
		return
	}
	if e.opts.Trace.Mode() != TraceCapturing {
		return
	}
	n := probeLaneCount(p.Mode)
	lanes := e.values.GetVec(p.Slot, n)
	e.opts.Traces.Append(TraceRecord{ProbeID: p.ID, Mode: p.Mode, Lanes: lanes})
}

func evalArith(op ir.SigOp, a, b float64) float64 {
	switch op {
	case ir.SigAdd:
		return a + b
	case ir.SigMul:
		return a * b
	case ir.SigSub:
		return a - b
	case ir.SigDiv:
		if b == 0 {
			return 0
		}
		return a / b
	}
	return 0
}

func (e *Executor) evalCombineSig(n ir.SigExprIR, arity int, dt derivedTime) ([]float64, error) {
	if len(n.Terms) == 0 {
		return make([]float64, arity), nil
	}
	terms := make([][]float64, len(n.Terms))
	for i, t := range n.Terms {
		v, err := e.evalSig(t, dt)
		if err != nil {
			return nil, err
		}
		terms[i] = v
	}
	return reduceLanes(terms, n.Mode, n.Type, arity), nil
}

// reduceLanes folds N writers' lane bundles into one bundle of the
// given arity. sum/average/max/min reduce lane-by-lane; layer is
// domain-specific (see layerLanes); first/last pick one writer whole.
func reduceLanes(terms [][]float64, mode ir.CombineMode, t typedesc.TypeDesc, arity int) []float64 {
	if len(terms) == 0 {
		return make([]float64, arity)
	}
	perLane := func(fn func(acc, v float64) float64) []float64 {
		out := make([]float64, arity)
		for i := range out {
			acc := laneAt(terms[0], i)
			for _, term := range terms[1:] {
				acc = fn(acc, laneAt(term, i))
			}
			out[i] = acc
		}
		return out
	}
	switch mode {
	case ir.CombineSum:
		return perLane(func(acc, v float64) float64 { return acc + v })
	case ir.CombineAverage:
		out := perLane(func(acc, v float64) float64 { return acc + v })
		for i := range out {
			out[i] /= float64(len(terms))
		}
		return out
	case ir.CombineMax:
		return perLane(math.Max)
	case ir.CombineMin:
		return perLane(math.Min)
	case ir.CombineFirst:
		return conformLanes(terms[0], arity)
	case ir.CombineLayer:
		return layerLanes(terms, t.Domain, arity)
	default: // CombineLast and unrecognized custom modes
		return conformLanes(terms[len(terms)-1], arity)
	}
}

// layerLanes is the domain-specific layer reduction: colors
// alpha-composite back-to-front, renderable payloads stack
// (contributions accumulate), everything else keeps the last writer.
// Writers arrive in (sortKey, id) order, so later terms paint over
// earlier ones.
func layerLanes(terms [][]float64, d typedesc.Domain, arity int) []float64 {
	switch d {
	case typedesc.Color, typedesc.RGBA:
		acc := conformLanes(terms[0], 4)
		for _, term := range terms[1:] {
			acc = compositeOver(acc, conformLanes(term, 4))
		}
		return conformLanes(acc, arity)
	case typedesc.RenderTree, typedesc.RenderNode, typedesc.Render:
		out := make([]float64, arity)
		for i := range out {
			for _, term := range terms {
				out[i] += laneAt(term, i)
			}
		}
		return out
	default:
		return conformLanes(terms[len(terms)-1], arity)
	}
}

// compositeOver draws src over dst, straight-alpha RGBA lane order.
func compositeOver(dst, src []float64) []float64 {
	as, ad := src[3], dst[3]
	ao := as + ad*(1-as)
	out := make([]float64, 4)
	out[3] = ao
	if ao != 0 {
		for i := 0; i < 3; i++ {
			out[i] = (src[i]*as + dst[i]*ad*(1-as)) / ao
		}
	}
	return out
}

func (e *Executor) constScalar(id idalloc.ConstId) float64 {
	if int(id) < 0 || int(id) >= len(e.prog.Constants) {
		return 0
	}
	c := e.prog.Constants[id]
	switch c.Kind {
	case idalloc.KindFloat:
		return c.F64
	case idalloc.KindInt:
		return float64(c.I64)
	case idalloc.KindVec:
		if len(c.Vec) > 0 {
			return c.Vec[0]
		}
		return 0
	default:
		return 0
	}
}

// ErrSlotOutOfRange reports a step or expression referencing an id
// outside the program's frozen tables.
var ErrSlotOutOfRange = errors.New("runtime: signal id out of range")

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
