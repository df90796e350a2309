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
	"errors"
	"testing"
	"time"

	"github.com/brandon-fryslie/oscilla-animator-sub000/idalloc"
	"github.com/brandon-fryslie/oscilla-animator-sub000/typedesc"
)

func sampleProgram() *CompiledProgramIR {
	sigFloat := typedesc.New(typedesc.Signal, typedesc.Float)
	return &CompiledProgramIR{
		IRVersion:  IRVersion,
		CompiledAt: time.Unix(1700000000, 0).UTC(),
		Seed:       7,
		TimeModel:  TimeModelIR{Kind: TimeCyclic, PeriodMs: 1000},
		Signals: SignalExprTable{
			{Op: SigConst, Type: sigFloat, Const: 0},
			{Op: SigMap, Type: sigFloat, A: 0, Kernel: "sin2pi"},
		},
		Constants: []idalloc.Value{{Kind: idalloc.KindFloat, F64: 2}},
		SlotMetas: []idalloc.SlotMeta{
			{Type: sigFloat, Start: 0, Arity: 1},
			{Type: sigFloat, Start: 1, Arity: 1},
		},
		Schedule: Schedule{
			{Kind: StepTimeDerive},
			{Kind: StepNodeEval, SigID: 1, OutSlot: 1},
		},
		Outputs: map[string]idalloc.ValueSlot{"out": 1},
	}
}

func TestMarshalLoadRoundTrip(t *testing.T) {
	prog := sampleProgram()
	data, err := prog.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	loaded, err := LoadProgram(data)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if loaded.Fingerprint() != prog.Fingerprint() {
		t.Error("round-tripped program must have an identical fingerprint")
	}
	if loaded.Outputs["out"] != 1 {
		t.Errorf("Outputs[out] = %d, want 1", loaded.Outputs["out"])
	}
}

func TestLoadProgramRejectsIncompatibleMajor(t *testing.T) {
	prog := sampleProgram()
	prog.IRVersion = "999.0.0"
	data, err := prog.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	_, err = LoadProgram(data)
	if !errors.Is(err, ErrIncompatibleIR) {
		t.Fatalf("got %v, want ErrIncompatibleIR", err)
	}
}

func TestFingerprintIgnoresCompiledAt(t *testing.T) {
	a := sampleProgram()
	b := sampleProgram()
	b.CompiledAt = b.CompiledAt.Add(time.Hour)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint must not depend on CompiledAt")
	}
	b.Seed = 8
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Fingerprint must change when the seed changes")
	}
}
