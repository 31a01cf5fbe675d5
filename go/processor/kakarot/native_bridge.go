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
	"math"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

const wordSize = 32

var errNoLedger = errors.New("native ledger not available")

// nativeBridge forwards guest requests to the native ledger. All bridge
// precompiles charge a fixed amount of gas per native call before the input
// is even parsed.
type nativeBridge struct {
	env NativeEnvironment
	gas kakarot.Gas
}

// call executes a native call from the native account of the guest caller,
// deploying that account first if needed.
func (b nativeBridge) call(call *PrecompileCall, target kakarot.NativeAddress, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error) {
	if b.env.Ledger == nil || b.env.Mapper == nil {
		return nil, &PrecompileError{Kind: NativeCallFailure, Address: call.Address, Cause: errNoLedger}
	}
	caller, err := b.nativeAccountOf(call)
	if err != nil {
		return nil, err
	}
	call.NativeCalls++
	res, err := b.env.Ledger.Call(kakarot.NativeCall{
		Caller:   caller,
		Target:   target,
		Selector: selector,
		Calldata: calldata,
		Guest:    call.Guest,
	})
	if err != nil {
		return nil, nativeFailure(call.Address, err)
	}
	return res, nil
}

// nativeAccountOf returns the native account controlled by the guest caller.
func (b nativeBridge) nativeAccountOf(call *PrecompileCall) (kakarot.NativeAddress, error) {
	account := b.env.Mapper.NativeAddressOf(call.Caller)
	if b.env.Ledger.IsDeployed(account) {
		return account, nil
	}
	call.NativeCalls++
	if err := b.env.Ledger.DeployAccount(call.Caller, account); err != nil {
		return kakarot.NativeAddress{}, nativeFailure(call.Address, err)
	}
	log.Debug("Deployed native account", "guest", call.Caller, "native", account)
	return account, nil
}

// nativeFailure classifies an error reported by the native ledger.
func nativeFailure(address kakarot.Address, err error) error {
	kind := NativeCallFailure
	switch {
	case errors.Is(err, kakarot.ErrNativeLowLevelCall):
		kind = LowLevelCallFailure
	case errors.Is(err, kakarot.ErrGuestCallFailed):
		kind = ChildContextFailure
	}
	log.Warn("Native call failed", "precompile", address, "kind", kind, "err", err)
	return &PrecompileError{Kind: kind, Address: address, Cause: err}
}

// whitelistedCall executes a single native call. The input consists of the
// 32 byte words [target, selector, offset] followed, at byte position
// offset, by the number of calldata words and the calldata words themselves.
type whitelistedCall struct {
	nativeBridge
}

func (p whitelistedCall) Run(call *PrecompileCall) (kakarot.Data, error) {
	if err := call.Gas.Charge(p.gas); err != nil {
		return nil, err
	}
	reader := inputReader{address: call.Address, input: call.Input}
	target, err := reader.felt(0)
	if err != nil {
		return nil, err
	}
	selector, err := reader.felt(1)
	if err != nil {
		return nil, err
	}
	offset, err := reader.uint64At(2 * wordSize)
	if err != nil {
		return nil, err
	}
	calldata, err := reader.feltArray(offset)
	if err != nil {
		return nil, err
	}
	res, err := p.call(call, kakarot.NativeAddress(target), selector, calldata)
	if err != nil {
		return nil, err
	}
	return packFelts(res), nil
}

// messageToL1 sends a message to the settlement layer. The input is the ABI
// encoding of (address target, bytes data); each byte of data becomes one
// payload element.
type messageToL1 struct {
	nativeBridge
}

func (p messageToL1) Run(call *PrecompileCall) (kakarot.Data, error) {
	if err := call.Gas.Charge(p.gas); err != nil {
		return nil, err
	}
	reader := inputReader{address: call.Address, input: call.Input}
	target, err := reader.felt(0)
	if err != nil {
		return nil, err
	}
	offset, err := reader.uint64At(wordSize)
	if err != nil {
		return nil, err
	}
	data, err := reader.bytes(offset)
	if err != nil {
		return nil, err
	}
	if p.env.Ledger == nil {
		return nil, &PrecompileError{Kind: NativeCallFailure, Address: call.Address, Cause: errNoLedger}
	}
	payload := make([]kakarot.Felt, len(data))
	for i, b := range data {
		payload[i] = kakarot.FeltFromUint64(uint64(b))
	}
	call.NativeCalls++
	if err := p.env.Ledger.SendMessageToL1(call.Caller, target, payload); err != nil {
		return nil, nativeFailure(call.Address, err)
	}
	return nil, nil
}

// multicall executes a batch of native calls in order. The input is the
// number of calls followed by, for each call, the words
// [target, selector, length, data...]. The fixed gas is charged once per
// call, at least once. Results are returned as [length, felts...] per call.
type multicall struct {
	nativeBridge
}

type nativeRequest struct {
	target   kakarot.NativeAddress
	selector kakarot.Felt
	calldata []kakarot.Felt
}

func (p multicall) Run(call *PrecompileCall) (kakarot.Data, error) {
	reader := inputReader{address: call.Address, input: call.Input}
	count, countErr := reader.uint64At(0)
	if err := call.Gas.Charge(p.cost(count)); err != nil {
		return nil, err
	}
	if countErr != nil {
		return nil, countErr
	}

	requests := make([]nativeRequest, 0, min(count, uint64(len(call.Input)/wordSize)))
	position := uint64(wordSize)
	for range count {
		target, err := reader.feltAt(position)
		if err != nil {
			return nil, err
		}
		selector, err := reader.feltAt(position + wordSize)
		if err != nil {
			return nil, err
		}
		calldata, err := reader.feltArray(position + 2*wordSize)
		if err != nil {
			return nil, err
		}
		requests = append(requests, nativeRequest{kakarot.NativeAddress(target), selector, calldata})
		position += uint64(3+len(calldata)) * wordSize
	}

	var output kakarot.Data
	for _, request := range requests {
		res, err := p.call(call, request.target, request.selector, request.calldata)
		if err != nil {
			return nil, err
		}
		output = append(output, packFelts(append([]kakarot.Felt{kakarot.FeltFromUint64(uint64(len(res)))}, res...))...)
	}
	return output, nil
}

func (p multicall) cost(count uint64) kakarot.Gas {
	units := max(count, 1)
	if units > uint64(math.MaxInt64/p.gas) {
		return math.MaxInt64
	}
	return kakarot.Gas(units) * p.gas
}

// inputReader reads 32 byte words from precompile input. Reads outside of the
// input fail with OutOfBoundsRead; words not representable as felts fail with
// NativeCallFailure.
type inputReader struct {
	address kakarot.Address
	input   kakarot.Data
}

func (r inputReader) outOfBounds() error {
	return &PrecompileError{Kind: OutOfBoundsRead, Address: r.address}
}

func (r inputReader) wordAt(position uint64) (kakarot.Word, error) {
	if position > uint64(len(r.input)) || uint64(len(r.input))-position < wordSize {
		return kakarot.Word{}, r.outOfBounds()
	}
	return kakarot.Word(r.input[position : position+wordSize]), nil
}

func (r inputReader) uint64At(position uint64) (uint64, error) {
	word, err := r.wordAt(position)
	if err != nil {
		return 0, err
	}
	value := new(uint256.Int).SetBytes32(word[:])
	if !value.IsUint64() {
		return 0, r.outOfBounds()
	}
	return value.Uint64(), nil
}

func (r inputReader) feltAt(position uint64) (kakarot.Felt, error) {
	word, err := r.wordAt(position)
	if err != nil {
		return kakarot.Felt{}, err
	}
	felt, err := kakarot.FeltFromWord(word)
	if err != nil {
		return kakarot.Felt{}, &PrecompileError{Kind: NativeCallFailure, Address: r.address, Cause: err}
	}
	return felt, nil
}

func (r inputReader) felt(index uint64) (kakarot.Felt, error) {
	return r.feltAt(index * wordSize)
}

// feltArray reads a length word at the given position followed by that many
// felt words.
func (r inputReader) feltArray(position uint64) ([]kakarot.Felt, error) {
	length, err := r.uint64At(position)
	if err != nil {
		return nil, err
	}
	start := position + wordSize
	available := (uint64(len(r.input)) - start) / wordSize
	if length > available {
		return nil, r.outOfBounds()
	}
	res := make([]kakarot.Felt, length)
	for i := range res {
		if res[i], err = r.feltAt(start + uint64(i)*wordSize); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// bytes reads an ABI encoded byte string whose length word is at the given
// position.
func (r inputReader) bytes(position uint64) ([]byte, error) {
	length, err := r.uint64At(position)
	if err != nil {
		return nil, err
	}
	start := position + wordSize
	if length > uint64(len(r.input))-start {
		return nil, r.outOfBounds()
	}
	return r.input[start : start+length], nil
}

// packFelts encodes felts as consecutive 32 byte words.
func packFelts(felts []kakarot.Felt) kakarot.Data {
	res := make(kakarot.Data, 0, len(felts)*wordSize)
	for _, felt := range felts {
		res = append(res, felt[:]...)
	}
	return res
}
