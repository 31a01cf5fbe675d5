// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kakarot

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
)

const (
	ErrInvalidConfig = kakarot.ConstError("invalid configuration")
	ErrMalformedCall = kakarot.ConstError("malformed precompile request")
)

// ErrorKind classifies failures of precompiles.
type ErrorKind int

const (
	UnknownPrecompile ErrorKind = iota
	NotImplementedPrecompile
	OutOfBoundsRead
	UnauthorizedPrecompile
	NativeCallFailure
	LowLevelCallFailure
	OutOfGas
	ChildContextFailure
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownPrecompile:
		return "UnknownPrecompile"
	case NotImplementedPrecompile:
		return "NotImplementedPrecompile"
	case OutOfBoundsRead:
		return "OutOfBoundsRead"
	case UnauthorizedPrecompile:
		return "unauthorizedPrecompile"
	case NativeCallFailure:
		return "NativeCallFailure"
	case LowLevelCallFailure:
		return "LowLevelCallFailure"
	case OutOfGas:
		return "outOfGas"
	case ChildContextFailure:
		return "ChildContextFailure"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Status is the outcome of a frame.
type Status int

const (
	Success Status = iota
	// Revert returns the remaining gas of the frame to its caller.
	Revert
	// ExceptionalHalt consumes all gas forwarded to the frame.
	ExceptionalHalt
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Revert:
		return "revert"
	case ExceptionalHalt:
		return "halt"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// PrecompileError is a failure of a precompile. Its payload is the return data
// observed by the guest caller.
type PrecompileError struct {
	Kind     ErrorKind
	Address  kakarot.Address
	Left     kakarot.Gas // only set for OutOfGas
	Required kakarot.Gas // only set for OutOfGas
	Cause    error
}

func (e *PrecompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Payload(), e.Cause)
	}
	return string(e.Payload())
}

func (e *PrecompileError) Unwrap() error {
	return e.Cause
}

// Payload returns the return data reported for this error.
func (e *PrecompileError) Payload() kakarot.Data {
	switch e.Kind {
	case UnknownPrecompile, NotImplementedPrecompile:
		number := e.Address.ToUint256().Dec()
		return kakarot.Data(fmt.Sprintf("Kakarot: %v %s", e.Kind, number))
	case OutOfGas:
		return kakarot.Data(fmt.Sprintf("Kakarot: %v left=%d, required=%d", e.Kind, e.Left, e.Required))
	}
	return kakarot.Data("Kakarot: " + e.Kind.String())
}

// Status returns the frame outcome caused by this error.
func (e *PrecompileError) Status() Status {
	switch e.Kind {
	case UnknownPrecompile, NotImplementedPrecompile, OutOfGas:
		return ExceptionalHalt
	}
	return Revert
}

// failureOf converts an error raised by a precompile into the status and
// return data of the frame. Errors other than PrecompileErrors halt the frame
// without output.
func failureOf(err error) (Status, kakarot.Data) {
	var precompileErr *PrecompileError
	if errors.As(err, &precompileErr) {
		return precompileErr.Status(), precompileErr.Payload()
	}
	return ExceptionalHalt, nil
}
