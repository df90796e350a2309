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

package compiler

import (
	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
	"github.com/brandon-fryslie/oscilla-animator-sub000/registry"
)

// CompileOptions configures one compilation.
type CompileOptions struct {
	// Seed is stamped on the produced IR and threaded to any
	// seed-dependent kernel; two compiles with the same patch and seed
	// must produce byte-identical IR modulo CompiledAt.
	Seed uint64
	// EnableTrace reserves the DebugProbe step for every block tagged
	// "debugProbe" in the registry; left false, probes compile to no-ops.
	EnableTrace bool
	// IRVersionTag, when non-empty, overrides the ir.IRVersion stamp on
	// the produced program. Loaders still check major-version
	// compatibility on hot-swap.
	IRVersionTag string
}

// CompileResult is returned from Compile: the frozen IR (nil if a fatal
// diagnostic stopped compilation) plus every diagnostic collected along
// the way.
type CompileResult struct {
	IR          *ir.CompiledProgramIR
	Diagnostics []Diagnostic
}

// Compile runs Passes 0-8 against p, threading a fresh compileState and
// stopping as soon as a fatal diagnostic is recorded.
func Compile(p patch.Patch, blockReg *registry.BlockRegistry, transformReg *registry.TransformRegistry, combineReg *registry.CombineRegistry, opts CompileOptions) CompileResult {
	s := newCompileState(blockReg, transformReg, combineReg, opts.Seed, opts.EnableTrace)

	s.pass0(p)
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.pass1()
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.pass2()
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.pass3()
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.bld.SetTimeModel(s.timeModel)

	s.pass4()
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.pass5()
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.pass6()
	if s.diags.hasFatal() {
		return s.result(nil)
	}
	s.pass7()
	if s.diags.hasFatal() {
		return s.result(nil)
	}

	prog, err := s.pass8()
	if err != nil {
		s.diags.add(Diagnostic{Code: CodeIRValidationFailed, Severity: SeverityFatal, Message: err.Error()})
		return s.result(nil)
	}
	if opts.IRVersionTag != "" {
		prog.IRVersion = opts.IRVersionTag
	}
	return s.result(prog)
}

func (s *compileState) result(prog *ir.CompiledProgramIR) CompileResult {
	return CompileResult{IR: prog, Diagnostics: append([]Diagnostic(nil), s.diags.items...)}
}
