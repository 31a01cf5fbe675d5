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

// ConstError is an error type that can be used to define immutable
// error constants comparable with errors.Is.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	// ErrNativeStateReverted is reported by a Processor when the guest
	// transaction failed after native side effects were produced. The host
	// must revert its own transaction in this case.
	ErrNativeStateReverted = ConstError("EVM tx reverted, reverting SN tx because of previous calls to cairo precompiles")

	// ErrUnknownNativeContract is reported by a NativeLedger when a call
	// targets an address without a deployed contract.
	ErrUnknownNativeContract = ConstError("unknown native contract")

	// ErrUnknownSelector is reported by a NativeLedger when the called
	// contract has no entry point for a selector.
	ErrUnknownSelector = ConstError("unknown entry point selector")

	// ErrNativeLowLevelCall wraps failures of native calls issued by native
	// contracts themselves.
	ErrNativeLowLevelCall = ConstError("native low level call failed")

	// ErrGuestCallFailed is reported by native contracts when a guest call
	// they issued did not succeed.
	ErrGuestCallFailed = ConstError("guest call failed")

	// ErrInvalidFelt is returned when a 32 byte word exceeds the native
	// field modulus.
	ErrInvalidFelt = ConstError("value out of native field range")
)
