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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Fixed size guest values. All of them are big-endian.
type (
	// Address of a guest account or precompile.
	Address [20]byte
	// Key of a storage slot.
	Key [32]byte
	// Word is a 256 bit EVM stack or storage value.
	Word [32]byte
	// Value is an amount of the guest chain's currency.
	Value [32]byte
	// Hash of code, blocks, topics and blobs.
	Hash [32]byte
)

// Code is the bytecode of a guest contract.
type Code []byte

// Data is the input or return data of a call.
type Data []byte

// Gas is signed so that intermediate shortfalls can be represented.
type Gas int64

// AddressFromUint64 creates the address whose integer interpretation is n.
// Precompiles are identified this way, e.g. AddressFromUint64(0x100).
func AddressFromUint64(n uint64) (a Address) {
	binary.BigEndian.PutUint64(a[12:], n)
	return a
}

// ToUint256 interprets the address as a big-endian unsigned integer.
func (a Address) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes20(a[:])
}

// Uint64 returns the integer value of the address and whether it fits into
// 64 bits.
func (a Address) Uint64() (uint64, bool) {
	if slices.ContainsFunc(a[:12], func(b byte) bool { return b != 0 }) {
		return 0, false
	}
	return binary.BigEndian.Uint64(a[12:]), true
}

func (a Address) String() string { return hexutil.Encode(a[:]) }
func (a Address) MarshalText() ([]byte, error) { return marshalFixed(a[:]) }
func (a *Address) UnmarshalText(text []byte) error { return unmarshalFixed(a[:], text) }

func (k Key) String() string { return hexutil.Encode(k[:]) }
func (k Key) MarshalText() ([]byte, error) { return marshalFixed(k[:]) }
func (k *Key) UnmarshalText(text []byte) error { return unmarshalFixed(k[:], text) }

func (w Word) String() string { return hexutil.Encode(w[:]) }
func (w Word) MarshalText() ([]byte, error) { return marshalFixed(w[:]) }
func (w *Word) UnmarshalText(text []byte) error { return unmarshalFixed(w[:], text) }

func (h Hash) String() string { return hexutil.Encode(h[:]) }

func marshalFixed(data []byte) ([]byte, error) {
	return []byte(hexutil.Encode(data)), nil
}

// unmarshalFixed decodes 0x prefixed hex text filling trg exactly.
func unmarshalFixed(trg []byte, text []byte) error {
	data, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid format %q: %w", text, err)
	}
	if len(data) != len(trg) {
		return fmt.Errorf("invalid format %q, wanted %d bytes, got %d", text, len(trg), len(data))
	}
	copy(trg, data)
	return nil
}

// NewValue creates a value from up to four 64 bit limbs, most significant
// limb first. Missing leading limbs are zero.
func NewValue(limbs ...uint64) (result Value) {
	if len(limbs) > 4 {
		panic("too many limbs for a 256 bit value")
	}
	offset := 32 - 8*len(limbs)
	for i, limb := range limbs {
		binary.BigEndian.PutUint64(result[offset+8*i:], limb)
	}
	return result
}

// ValueFromUint256 converts the given integer, nil is treated as zero.
func ValueFromUint256(value *uint256.Int) Value {
	if value == nil {
		return Value{}
	}
	return value.Bytes32()
}

func (v Value) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(v[:])
}

func (v Value) ToBig() *big.Int {
	return v.ToUint256().ToBig()
}

// String prints the value in decimal.
func (v Value) String() string {
	return v.ToUint256().Dec()
}

func (v Value) Cmp(o Value) int {
	return v.ToUint256().Cmp(o.ToUint256())
}

// Scale multiplies the value by s, wrapping around on overflow.
func (v Value) Scale(s uint64) Value {
	return ValueFromUint256(new(uint256.Int).Mul(v.ToUint256(), uint256.NewInt(s)))
}

func (v Value) MarshalText() ([]byte, error) { return marshalFixed(v[:]) }
func (v *Value) UnmarshalText(text []byte) error { return unmarshalFixed(v[:], text) }

// Add returns a+b modulo 2^256.
func Add(a, b Value) Value {
	return ValueFromUint256(new(uint256.Int).Add(a.ToUint256(), b.ToUint256()))
}

// Sub returns a-b modulo 2^256. Callers check balances before subtracting.
func Sub(a, b Value) Value {
	return ValueFromUint256(new(uint256.Int).Sub(a.ToUint256(), b.ToUint256()))
}

var callKindNames = map[CallKind]string{
	Call:         "call",
	StaticCall:   "static_call",
	DelegateCall: "delegate_call",
	CallCode:     "call_code",
	Create:       "create",
	Create2:      "create2",
}

func (k CallKind) String() string {
	if name, found := callKindNames[k]; found {
		return name
	}
	return "unknown"
}

// IsCreate reports whether the call deploys a new contract.
func (k CallKind) IsCreate() bool {
	return k == Create || k == Create2
}

func (k CallKind) MarshalJSON() ([]byte, error) {
	name, found := callKindNames[k]
	if !found {
		return nil, fmt.Errorf("invalid call kind: %d", int(k))
	}
	return json.Marshal(name)
}

func (k *CallKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, candidate := range callKindNames {
		if candidate == strings.ToLower(name) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown call kind: %s", name)
}
