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

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"golang.org/x/crypto/blake2b"
)

// IRVersion is the semver stamped on every CompiledProgramIR produced by
// this build. Persistence loaders compare it against a loaded program's
// stored version before hot-swapping.
const IRVersion = "1.0.0"

// CompiledProgramIR is the frozen output of the compiler pipeline. It is
// immutable once returned from irbuilder.Builder.Finish; the runtime
// only ever reads it.
type CompiledProgramIR struct {
	IRVersion  string
	CompiledAt time.Time
	Seed       uint64

	TimeModel TimeModelIR

	Signals   SignalExprTable
	Fields    FieldExprTable
	Constants []idalloc.Value
	SlotMetas []idalloc.SlotMeta

	Schedule    Schedule
	DebugProbes []DebugProbe

	// Outputs names the program's externally meaningful slots (e.g. the
	// render root), keyed by a stable name the editor/runtime agree on.
	Outputs map[string]idalloc.ValueSlot
}

// Fingerprint returns a content hash over the program's version, seed,
// time model, expression tables (without their TypeDescs), constants,
// slot ranges, and each schedule step's kind, signal, output slot,
// field and element count, so two compiles of the same patch with the
// same seed produce identical fingerprints. CompiledAt, Outputs,
// DebugProbes, and the steps' render passes and time/event slots are
// not hashed. It also
// backs the irVersion-gated hot-swap check.
func (p *CompiledProgramIR) Fingerprint() [32]byte {
	h, _ := blake2b.New256(nil)
	write := func(b []byte) { h.Write(b) }
	writeStr := func(s string) { write([]byte(s)) }
	writeU64 := func(v uint64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		write(buf[:])
	}
	writeInt := func(v int) { writeU64(uint64(int64(v))) }

	writeStr(p.IRVersion)
	writeU64(p.Seed)

	writeInt(int(p.TimeModel.Kind))
	writeU64(mathBits(p.TimeModel.DurationMs))
	writeU64(mathBits(p.TimeModel.PeriodMs))
	writeInt(int(p.TimeModel.Mode))
	writeU64(mathBits(p.TimeModel.WindowMs))

	for _, s := range p.Signals {
		writeInt(int(s.Op))
		writeInt(int(s.A))
		writeInt(int(s.B))
		writeInt(int(s.C))
		writeInt(int(s.Const))
		writeInt(int(s.InitConst))
		writeStr(s.Kernel)
		writeStr(string(s.Mode))
		writeInt(int(s.StateSlot))
		for _, t := range s.Terms {
			writeInt(int(t))
		}
	}
	for _, f := range p.Fields {
		writeInt(int(f.Op))
		writeInt(int(f.A))
		writeInt(int(f.B))
		writeInt(int(f.SigSrc))
		writeInt(int(f.Const))
		writeStr(f.Kernel)
		writeStr(string(f.Mode))
		for _, t := range f.Terms {
			writeInt(int(t))
		}
		for _, c := range f.Chain {
			writeStr(c)
		}
	}
	for _, c := range p.Constants {
		writeInt(int(c.Kind))
		writeU64(mathBits(c.F64))
		writeU64(uint64(c.I64))
		writeStr(c.Tag)
		write(c.Blob)
		for _, v := range c.Vec {
			writeU64(mathBits(v))
		}
	}
	for _, s := range p.SlotMetas {
		writeInt(int(s.Start))
		writeInt(s.Arity)
	}
	for _, s := range p.Schedule {
		writeInt(int(s.Kind))
		writeInt(int(s.SigID))
		writeInt(int(s.OutSlot))
		writeInt(int(s.FieldID))
		writeInt(s.ElementCount)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func mathBits(f float64) uint64 {
	return uint64(int64(f * 1e6))
}

// String renders a short human-readable identity for logging/debugging.
func (p *CompiledProgramIR) String() string {
	fp := p.Fingerprint()
	return fmt.Sprintf("CompiledProgramIR{version=%s seed=%d fingerprint=%x}", p.IRVersion, p.Seed, fp[:8])
}
