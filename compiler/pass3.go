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
	"fmt"

	"github.com/brandon-fryslie/oscilla-animator-sub000/ir"
	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
)

// timeRootKind is read from a registered block's Tags["timeRoot"].
const (
	timeRootFinite   = "finite"
	timeRootCyclic   = "cyclic"
	timeRootInfinite = "infinite"
)

// Fixed auto-publication bus names. Infinite roots never auto-publish.
const (
	busPhaseA   patch.BusID = "phaseA"
	busPulse    patch.BusID = "pulse"
	busProgress patch.BusID = "progress"
)

// pass3 requires exactly one TimeRoot block, derives the TimeModelIR
// from its parameters, and registers fixed auto-publication edges for
// cyclic/finite roots.
func (s *compileState) pass3() {
	var roots []patch.Block
	var kinds []string
	for _, b := range s.p0.Blocks {
		def, ok := s.blockReg.Lookup(b.Type)
		if !ok {
			continue
		}
		if kind, ok := def.Tags["timeRoot"]; ok {
			roots = append(roots, b)
			kinds = append(kinds, kind)
		}
	}

	switch len(roots) {
	case 0:
		s.diags.add(Diagnostic{Code: CodeMissingTimeRoot, Severity: SeverityFatal, Message: "patch has no TimeRoot block"})
		return
	case 1:
		// fall through
	default:
		ids := make([]string, len(roots))
		for i, r := range roots {
			ids[i] = string(r.ID)
		}
		s.diags.add(Diagnostic{
			Code: CodeMultipleTimeRoots, Severity: SeverityFatal,
			Message: fmt.Sprintf("patch has %d TimeRoot blocks: %v", len(roots), ids),
		})
		return
	}

	root := roots[0]
	kind := kinds[0]
	s.timeRootID = root.ID

	switch kind {
	case timeRootFinite:
		duration := floatParam(root.Params, "durationMs", 1000)
		s.timeModel = ir.TimeModelIR{Kind: ir.TimeFinite, DurationMs: duration}
		s.registerAutoPub(root.ID, "progress", busProgress)
	case timeRootCyclic:
		period := floatParam(root.Params, "periodMs", 1000)
		mode := ir.CyclicLoop
		if m, _ := root.Params["mode"].(string); m == "pingpong" {
			mode = ir.CyclicPingPong
		}
		s.timeModel = ir.TimeModelIR{Kind: ir.TimeCyclic, PeriodMs: period, Mode: mode}
		s.registerAutoPub(root.ID, "phase", busPhaseA)
		s.registerAutoPub(root.ID, "wrap", busPulse)
	case timeRootInfinite:
		window := floatParam(root.Params, "windowMs", 10000)
		s.timeModel = ir.TimeModelIR{Kind: ir.TimeInfinite, WindowMs: window}
		// Open Question: infinite roots never auto-publish.
	default:
		s.diags.add(Diagnostic{
			Code: CodeInvalidPatch, Severity: SeverityFatal,
			Message: fmt.Sprintf("TimeRoot block %s has unknown timeRoot kind %q", root.ID, kind),
			Where:   Where{BlockID: root.ID},
		})
	}
}

// registerAutoPub adds a synthetic port->bus publication edge from the
// TimeRoot's named output to a fixed bus, with sortKey=0.
// Skipped silently if the target bus isn't declared in this patch.
func (s *compileState) registerAutoPub(root patch.BlockID, outSlot patch.SlotID, bus patch.BusID) {
	if _, ok := s.p0.BusByID(bus); !ok {
		return
	}
	e := patch.Edge{
		ID:      patch.EdgeID(fmt.Sprintf("%s_autopub_%s", root, outSlot)),
		From:    patch.Port(root, outSlot),
		To:      patch.BusEndpoint(bus),
		Enabled: true,
		SortKey: 0,
	}
	s.pubs = append(s.pubs, e)
	s.autoPubs = append(s.autoPubs, e)
	s.diags.add(Diagnostic{
		Code: CodeWarningAutoPublication, Severity: SeverityInfo,
		Message: fmt.Sprintf("auto-published %s.%s to bus %s", root, outSlot, bus),
		Where:   Where{BlockID: root, BusID: bus},
	})
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}
