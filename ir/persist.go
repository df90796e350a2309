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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrIncompatibleIR is returned by LoadProgram when a stored program's
// IRVersion has a different major version than this build. Callers fall
// back to recompiling from source.
var ErrIncompatibleIR = errors.New("ir: incompatible program version")

// Marshal serializes the frozen program: irVersion, compiledAt, seed,
// timeModel, expression tables,
// constants, slot metadata, schedule, debug probes, and outputs.
func (p *CompiledProgramIR) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ir: marshal program: %w", err)
	}
	return data, nil
}

// LoadProgram deserializes a previously marshaled program, rejecting it
// with ErrIncompatibleIR when its major version differs from this
// build's IRVersion. There is no migration: an incompatible load means
// recompile from the patch.
func LoadProgram(data []byte) (*CompiledProgramIR, error) {
	var p CompiledProgramIR
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ir: load program: %w", err)
	}
	if majorOf(p.IRVersion) != majorOf(IRVersion) {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrIncompatibleIR, p.IRVersion, IRVersion)
	}
	return &p, nil
}

func majorOf(semver string) string {
	if i := strings.IndexByte(semver, '.'); i >= 0 {
		return semver[:i]
	}
	return semver
}
