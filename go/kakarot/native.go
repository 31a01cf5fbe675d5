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
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/holiman/uint256"
)

//go:generate mockgen -source native.go -destination native_mock.go -package kakarot

// Felt is an element of the native ledger's prime field, stored as a 32 byte
// big-endian integer. Values are always smaller than the field modulus.
type Felt [32]byte

// NativeAddress identifies an account or contract on the native ledger.
type NativeAddress Felt

// FeltFromUint64 creates the felt representing n.
func FeltFromUint64(n uint64) Felt {
	var e fp.Element
	e.SetUint64(n)
	return Felt(e.Bytes())
}

// FeltFromWord interprets a 32 byte word as a felt. Words not smaller than the
// field modulus are rejected.
func FeltFromWord(w Word) (Felt, error) {
	var e fp.Element
	if err := e.SetBytesCanonical(w[:]); err != nil {
		return Felt{}, fmt.Errorf("%w: %v", ErrInvalidFelt, w)
	}
	return Felt(w), nil
}

// FeltFromUint256 reduces v modulo the field modulus.
func FeltFromUint256(v *uint256.Int) Felt {
	var e fp.Element
	e.SetBigInt(v.ToBig())
	return Felt(e.Bytes())
}

func (f Felt) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(f[:])
}

func (f Felt) ToWord() Word {
	return Word(f)
}

func (f Felt) IsZero() bool {
	return f == Felt{}
}

func (f Felt) String() string {
	return f.ToUint256().Hex()
}

func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Felt) UnmarshalText(data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	value, ok := new(big.Int).SetString(s[2:], 16)
	if !ok || value.BitLen() > 256 {
		return fmt.Errorf("invalid felt: %v", s)
	}
	var word Word
	value.FillBytes(word[:])
	res, err := FeltFromWord(word)
	if err != nil {
		return err
	}
	*f = res
	return nil
}

func (a NativeAddress) String() string {
	return Felt(a).String()
}

func (a NativeAddress) MarshalText() ([]byte, error) {
	return Felt(a).MarshalText()
}

func (a *NativeAddress) UnmarshalText(data []byte) error {
	return (*Felt)(a).UnmarshalText(data)
}

// NativeSnapshot identifies a point in the native ledger's history that can
// be rolled back to.
type NativeSnapshot int

// NativeLedger is the host ledger's contract execution environment as seen
// from the guest runtime. All calls are synchronous. Effects are provisional
// until Commit is called for the snapshot taken at the start of the enclosing
// guest transaction.
type NativeLedger interface {
	// IsDeployed reports whether an account is deployed at the given address.
	IsDeployed(NativeAddress) bool
	// DeployAccount deploys the native account controlled by the given guest
	// address. Deploying an already deployed account is a no-op.
	DeployAccount(guest Address, native NativeAddress) error
	// Call executes an entry point of a native contract and returns its
	// return values. Any failure of the native side, including failures of
	// nested calls, is reported as an error.
	Call(NativeCall) ([]Felt, error)
	// SendMessageToL1 queues a message from the given guest address to the
	// settlement layer.
	SendMessageToL1(from Address, to Felt, payload []Felt) error

	Snapshot() NativeSnapshot
	Rollback(NativeSnapshot)
	Commit(NativeSnapshot)
}

// NativeCall describes a single call into a native contract.
type NativeCall struct {
	Caller   NativeAddress
	Target   NativeAddress
	Selector Felt
	Calldata []Felt
	// Guest allows the called contract to call back into guest contracts. It
	// may be nil if callbacks are not supported in the current context.
	Guest GuestCaller
}

// GuestCaller is offered to native contracts to run nested guest calls within
// the guest transaction that triggered them.
type GuestCaller interface {
	CallGuest(kind CallKind, parameter CallParameters) (CallResult, error)
}

// AddressMapper computes the native account controlled by a guest address.
// The mapping is pure and deterministic.
type AddressMapper interface {
	NativeAddressOf(Address) NativeAddress
}

// AuthorizedCallers is the administratively managed set of guest contracts
// allowed to call into the native bridge.
type AuthorizedCallers interface {
	IsAuthorized(Address) bool
}
