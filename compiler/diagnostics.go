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

	"github.com/brandon-fryslie/oscilla-animator-sub000/patch"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityRecoverable
	SeverityFatal
)

// Code is the stable diagnostic identifier set the editor keys its
// presentation off, plus the warning/informational codes.
type Code string

const (
	CodeInvalidPatch          Code = "InvalidPatch"
	CodeInvalidEndpoint       Code = "InvalidEndpoint"
	CodeBusToBusEdge          Code = "BusToBusEdge"
	CodeTypeMismatch          Code = "TypeMismatch"
	CodeAdapterChainIncompat  Code = "AdapterChainIncompatible"
	CodeMissingTimeRoot       Code = "MissingTimeRoot"
	CodeMultipleTimeRoots     Code = "MultipleTimeRoots"
	CodeCycleDetected         Code = "CycleDetected"
	CodeUnconnectedInput      Code = "UnconnectedInput"
	CodeMultiInputForbidden   Code = "MultiInputForbidden"
	CodePortMissing           Code = "PortMissing"
	CodeLoweringFailed        Code = "LoweringFailed"
	CodeMaterializationFailed Code = "MaterializationFailed"
	CodeIRValidationFailed    Code = "IRValidationFailed"
	CodeAdapterNotFound       Code = "AdapterNotFound"
	CodeLensNotFound          Code = "LensNotFound"
	CodeTransformIncompatible Code = "TransformIncompatible"

	CodeWarningAutoPublication    Code = "AutoPublication"
	CodeWarningTransformMissingIR Code = "Warning.TransformMissingIR"
	CodeWarningEmptyBus           Code = "Warning.EmptyBus"
)

// Where pinpoints the patch entity a diagnostic concerns.
type Where struct {
	BlockID patch.BlockID
	SlotID  patch.SlotID
	EdgeID  patch.EdgeID
	BusID   patch.BusID
}

// Diagnostic is a structured compiler message. The core never formats
// messages for display: Message is a plain developer-facing
// string, and presentation is the editor collaborator's job.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Where    Where
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// diagList accumulates diagnostics for one compilation and tracks
// whether a fatal diagnostic has been seen.
type diagList struct {
	items []Diagnostic
	fatal bool
}

func (d *diagList) add(diag Diagnostic) {
	d.items = append(d.items, diag)
	if diag.Severity == SeverityFatal {
		d.fatal = true
	}
}

func (d *diagList) hasFatal() bool {
	return d.fatal
}
