// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package native

import (
	"fmt"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/holiman/uint256"
)

const (
	ErrInvalidCalldata     = kakarot.ConstError("invalid calldata")
	ErrInsufficientBalance = kakarot.ConstError("insufficient balance")
	ErrInsufficientAllow   = kakarot.ConstError("insufficient allowance")
	ErrNotMinter           = kakarot.ConstError("caller is not the minter")
)

var (
	selectorGetEvmAddress = Selector("get_evm_address")

	selectorInc        = Selector("inc")
	selectorGet        = Selector("get")
	selectorSetCounter = Selector("set_counter")

	selectorName         = Selector("name")
	selectorSymbol       = Selector("symbol")
	selectorDecimals     = Selector("decimals")
	selectorTotalSupply  = Selector("total_supply")
	selectorBalanceOf    = Selector("balance_of")
	selectorAllowance    = Selector("allowance")
	selectorTransfer     = Selector("transfer")
	selectorTransferFrom = Selector("transfer_from")
	selectorApprove      = Selector("approve")
	selectorMint         = Selector("mint")

	selectorForward   = Selector("forward")
	selectorCallGuest = Selector("call_guest")
)

// account is the contract deployed for the native account of a guest
// address.
type account struct{}

func (account) Execute(ctx *Context, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error) {
	switch selector {
	case selectorGetEvmAddress:
		guest, _ := ctx.GuestAddressOf(ctx.Self())
		return []kakarot.Felt{addressToFelt(guest)}, nil
	}
	return nil, unknownSelector(selector)
}

// Counter is a minimal stateful contract with the entry points inc, get and
// set_counter.
type Counter struct{}

func (Counter) Execute(ctx *Context, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error) {
	key := StorageKey("counter")
	switch selector {
	case selectorInc:
		value := ctx.Load(key).ToUint256()
		ctx.Store(key, kakarot.FeltFromUint256(value.AddUint64(value, 1)))
		return nil, nil
	case selectorGet:
		return []kakarot.Felt{ctx.Load(key)}, nil
	case selectorSetCounter:
		if len(calldata) != 1 {
			return nil, fmt.Errorf("%w: set_counter expects 1 argument, got %d", ErrInvalidCalldata, len(calldata))
		}
		ctx.Store(key, calldata[0])
		return nil, nil
	}
	return nil, unknownSelector(selector)
}

// Token is a fungible token with an ERC20-style interface. Amounts are passed
// as (low, high) pairs of 128 bit felts.
type Token struct {
	Name     string
	Symbol   string
	Decimals uint8
	Minter   kakarot.NativeAddress
}

func (t Token) Execute(ctx *Context, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error) {
	switch selector {
	case selectorName:
		return []kakarot.Felt{ShortString(t.Name)}, nil
	case selectorSymbol:
		return []kakarot.Felt{ShortString(t.Symbol)}, nil
	case selectorDecimals:
		return []kakarot.Felt{kakarot.FeltFromUint64(uint64(t.Decimals))}, nil
	case selectorTotalSupply:
		return SplitUint256(t.load(ctx, "total_supply")), nil
	case selectorBalanceOf:
		if err := expectArgs("balance_of", calldata, 1); err != nil {
			return nil, err
		}
		return SplitUint256(t.load(ctx, "balances", calldata[0])), nil
	case selectorAllowance:
		if err := expectArgs("allowance", calldata, 2); err != nil {
			return nil, err
		}
		return SplitUint256(t.load(ctx, "allowances", calldata[0], calldata[1])), nil
	case selectorTransfer:
		if err := expectArgs("transfer", calldata, 3); err != nil {
			return nil, err
		}
		amount := JoinUint256(calldata[1], calldata[2])
		if err := t.move(ctx, kakarot.Felt(ctx.Caller()), calldata[0], amount); err != nil {
			return nil, err
		}
		return []kakarot.Felt{kakarot.FeltFromUint64(1)}, nil
	case selectorTransferFrom:
		if err := expectArgs("transfer_from", calldata, 4); err != nil {
			return nil, err
		}
		owner, spender := calldata[0], kakarot.Felt(ctx.Caller())
		amount := JoinUint256(calldata[2], calldata[3])
		allowance := t.load(ctx, "allowances", owner, spender)
		if allowance.Lt(amount) {
			return nil, fmt.Errorf("%w: %v < %v", ErrInsufficientAllow, allowance, amount)
		}
		t.store(ctx, new(uint256.Int).Sub(allowance, amount), "allowances", owner, spender)
		if err := t.move(ctx, owner, calldata[1], amount); err != nil {
			return nil, err
		}
		return []kakarot.Felt{kakarot.FeltFromUint64(1)}, nil
	case selectorApprove:
		if err := expectArgs("approve", calldata, 3); err != nil {
			return nil, err
		}
		t.store(ctx, JoinUint256(calldata[1], calldata[2]), "allowances", kakarot.Felt(ctx.Caller()), calldata[0])
		return []kakarot.Felt{kakarot.FeltFromUint64(1)}, nil
	case selectorMint:
		if err := expectArgs("mint", calldata, 3); err != nil {
			return nil, err
		}
		if ctx.Caller() != t.Minter {
			return nil, fmt.Errorf("%w: %v", ErrNotMinter, ctx.Caller())
		}
		amount := JoinUint256(calldata[1], calldata[2])
		balance := t.load(ctx, "balances", calldata[0])
		t.store(ctx, new(uint256.Int).Add(balance, amount), "balances", calldata[0])
		supply := t.load(ctx, "total_supply")
		t.store(ctx, new(uint256.Int).Add(supply, amount), "total_supply")
		return nil, nil
	}
	return nil, unknownSelector(selector)
}

func (t Token) move(ctx *Context, from, to kakarot.Felt, amount *uint256.Int) error {
	balance := t.load(ctx, "balances", from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %v < %v", ErrInsufficientBalance, balance, amount)
	}
	t.store(ctx, new(uint256.Int).Sub(balance, amount), "balances", from)
	target := t.load(ctx, "balances", to)
	t.store(ctx, new(uint256.Int).Add(target, amount), "balances", to)
	return nil
}

func (t Token) load(ctx *Context, name string, keys ...kakarot.Felt) *uint256.Int {
	low := ctx.Load(StorageKey(name+".low", keys...))
	high := ctx.Load(StorageKey(name+".high", keys...))
	return JoinUint256(low, high)
}

func (t Token) store(ctx *Context, value *uint256.Int, name string, keys ...kakarot.Felt) {
	parts := SplitUint256(value)
	ctx.Store(StorageKey(name+".low", keys...), parts[0])
	ctx.Store(StorageKey(name+".high", keys...), parts[1])
}

// Forwarder issues nested calls on behalf of its callers: forward calls
// another native contract, call_guest calls a guest contract.
type Forwarder struct{}

func (Forwarder) Execute(ctx *Context, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error) {
	switch selector {
	case selectorForward:
		if len(calldata) < 2 {
			return nil, fmt.Errorf("%w: forward expects a target and a selector", ErrInvalidCalldata)
		}
		return ctx.Call(kakarot.NativeAddress(calldata[0]), calldata[1], calldata[2:])
	case selectorCallGuest:
		if len(calldata) < 1 {
			return nil, fmt.Errorf("%w: call_guest expects a target", ErrInvalidCalldata)
		}
		var target kakarot.Address
		targetBytes := calldata[0].ToUint256().Bytes20()
		copy(target[:], targetBytes[:])
		sender, _ := ctx.GuestAddressOf(ctx.Caller())
		input := make([]byte, 0, 32*(len(calldata)-1))
		for _, word := range calldata[1:] {
			input = append(input, word[:]...)
		}
		res, err := ctx.CallGuest(kakarot.Call, kakarot.CallParameters{
			Sender:      sender,
			Recipient:   target,
			CodeAddress: target,
			Input:       input,
		})
		if err != nil {
			return nil, err
		}
		return bytesToFelts(res.Output), nil
	}
	return nil, unknownSelector(selector)
}

func expectArgs(name string, calldata []kakarot.Felt, n int) error {
	if len(calldata) != n {
		return fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidCalldata, name, n, len(calldata))
	}
	return nil
}

// SplitUint256 splits a 256 bit value into its (low, high) 128 bit halves.
func SplitUint256(value *uint256.Int) []kakarot.Felt {
	word := value.Bytes32()
	var low, high kakarot.Felt
	copy(low[16:], word[16:])
	copy(high[16:], word[:16])
	return []kakarot.Felt{low, high}
}

// JoinUint256 combines (low, high) 128 bit halves. Bits beyond 128 in either
// half are ignored.
func JoinUint256(low, high kakarot.Felt) *uint256.Int {
	var word [32]byte
	copy(word[:16], high[16:])
	copy(word[16:], low[16:])
	return new(uint256.Int).SetBytes32(word[:])
}

func addressToFelt(address kakarot.Address) kakarot.Felt {
	var res kakarot.Felt
	copy(res[12:], address[:])
	return res
}

// bytesToFelts packs bytes into 16 byte chunks, each fitting into a felt.
func bytesToFelts(data []byte) []kakarot.Felt {
	res := make([]kakarot.Felt, 0, (len(data)+15)/16)
	for len(data) > 0 {
		n := min(16, len(data))
		var felt kakarot.Felt
		copy(felt[16:], data[:n])
		res = append(res, felt)
		data = data[n:]
	}
	return res
}
