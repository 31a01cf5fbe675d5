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

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const ErrWriteProtection = kakarot.ConstError("write protection")

var erc20ABI = `[
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

var (
	erc20         abi.ABI
	transferEvent kakarot.Hash
	approvalEvent kakarot.Hash
)

func init() {
	var err error
	erc20, err = abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Errorf("failed to parse erc20ABI: %w", err))
	}
	transferEvent = kakarot.Hash(erc20.Events["Transfer"].ID)
	approvalEvent = kakarot.Hash(erc20.Events["Approval"].ID)
}

// dualVMToken exposes a native token contract through the ERC20 interface.
// Amounts are converted between 256 bit integers and (low, high) felt pairs;
// guest addresses are replaced by the native accounts they control.
type dualVMToken struct {
	bridge nativeBridge
	token  kakarot.NativeAddress
}

func (p dualVMToken) Run(call *PrecompileCall) (kakarot.Data, error) {
	if err := call.Gas.Charge(p.bridge.gas); err != nil {
		return nil, err
	}
	if len(call.Input) < 4 {
		return nil, p.malformed(call, "input too short")
	}
	method, err := erc20.MethodById(call.Input[:4])
	if err != nil {
		return nil, p.malformed(call, err.Error())
	}
	args, err := method.Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, p.malformed(call, err.Error())
	}
	if call.Static && !method.IsConstant() {
		return nil, &PrecompileError{Kind: NativeCallFailure, Address: call.Address, Cause: ErrWriteProtection}
	}

	var result []any
	switch method.Name {
	case "name", "symbol":
		res, err := p.invoke(call, method.Name)
		if err != nil {
			return nil, err
		}
		result = []any{shortStringOf(res)}
	case "decimals":
		res, err := p.invoke(call, "decimals")
		if err != nil {
			return nil, err
		}
		result = []any{uint8(first(res).ToUint256().Uint64())}
	case "totalSupply":
		res, err := p.invoke(call, "total_supply")
		if err != nil {
			return nil, err
		}
		result = []any{joinAmount(res)}
	case "balanceOf":
		res, err := p.invoke(call, "balance_of", p.account(args[0]))
		if err != nil {
			return nil, err
		}
		result = []any{joinAmount(res)}
	case "allowance":
		res, err := p.invoke(call, "allowance", p.account(args[0]), p.account(args[1]))
		if err != nil {
			return nil, err
		}
		result = []any{joinAmount(res)}
	case "transfer":
		to, amount := toAddress(args[0]), toAmount(args[1])
		calldata := append([]kakarot.Felt{p.account(args[0])}, native.SplitUint256(amount)...)
		if _, err := p.invoke(call, "transfer", calldata...); err != nil {
			return nil, err
		}
		call.emitLog(amountLog(call.Address, transferEvent, call.Caller, to, amount))
		result = []any{true}
	case "approve":
		spender, amount := toAddress(args[0]), toAmount(args[1])
		calldata := append([]kakarot.Felt{p.account(args[0])}, native.SplitUint256(amount)...)
		if _, err := p.invoke(call, "approve", calldata...); err != nil {
			return nil, err
		}
		call.emitLog(amountLog(call.Address, approvalEvent, call.Caller, spender, amount))
		result = []any{true}
	case "transferFrom":
		from, to, amount := toAddress(args[0]), toAddress(args[1]), toAmount(args[2])
		calldata := append([]kakarot.Felt{p.account(args[0]), p.account(args[1])}, native.SplitUint256(amount)...)
		if _, err := p.invoke(call, "transfer_from", calldata...); err != nil {
			return nil, err
		}
		call.emitLog(amountLog(call.Address, transferEvent, from, to, amount))
		result = []any{true}
	}
	output, err := method.Outputs.Pack(result...)
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (p dualVMToken) invoke(call *PrecompileCall, entryPoint string, calldata ...kakarot.Felt) ([]kakarot.Felt, error) {
	return p.bridge.call(call, p.token, native.Selector(entryPoint), calldata)
}

func (p dualVMToken) account(arg any) kakarot.Felt {
	if p.bridge.env.Mapper == nil {
		return kakarot.Felt{}
	}
	return kakarot.Felt(p.bridge.env.Mapper.NativeAddressOf(toAddress(arg)))
}

func (p dualVMToken) malformed(call *PrecompileCall, reason string) error {
	return &PrecompileError{
		Kind:    NativeCallFailure,
		Address: call.Address,
		Cause:   fmt.Errorf("%w: %s", ErrMalformedCall, reason),
	}
}

func toAddress(arg any) kakarot.Address {
	return kakarot.Address(arg.(common.Address))
}

func toAmount(arg any) *uint256.Int {
	amount, _ := uint256.FromBig(arg.(*big.Int))
	return amount
}

func first(felts []kakarot.Felt) kakarot.Felt {
	if len(felts) == 0 {
		return kakarot.Felt{}
	}
	return felts[0]
}

func joinAmount(felts []kakarot.Felt) *big.Int {
	if len(felts) < 2 {
		return first(felts).ToUint256().ToBig()
	}
	return native.JoinUint256(felts[0], felts[1]).ToBig()
}

// shortStringOf decodes a string packed into a felt.
func shortStringOf(felts []kakarot.Felt) string {
	felt := first(felts)
	return strings.TrimLeft(string(felt[:]), "\x00")
}

func amountLog(address kakarot.Address, event kakarot.Hash, from, to kakarot.Address, amount *uint256.Int) kakarot.Log {
	data := amount.Bytes32()
	return kakarot.Log{
		Address: address,
		Topics:  []kakarot.Hash{event, addressTopic(from), addressTopic(to)},
		Data:    data[:],
	}
}

func addressTopic(address kakarot.Address) kakarot.Hash {
	var topic kakarot.Hash
	copy(topic[12:], address[:])
	return topic
}
