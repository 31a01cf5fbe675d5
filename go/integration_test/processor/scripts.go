// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"fmt"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Contracts of the scenarios are scripts written in Go. The code of a
// contract is the name of its script.
var (
	codeStore            = kakarot.Code("store")
	codeRevert           = kakarot.Code("revert")
	codeBridgeInc        = kakarot.Code("bridge-inc")
	codeBridgeIncRevert  = kakarot.Code("bridge-inc-revert")
	codeBridgeIncSibling = kakarot.Code("bridge-inc-sibling")
	codeTokenTransfer    = kakarot.Code("token-transfer")
	codeSendMessage      = kakarot.Code("send-message")
	codeDeploy           = kakarot.Code("deploy")
)

const (
	storeGas   = 5000
	deployGas  = 1000
	revertCost = 500
)

var (
	sender             = kakarot.Address{1}
	coinbase           = kakarot.Address{0xcb}
	bob                = kakarot.Address{0xb0}
	authorizedContract = kakarot.Address{0xa1}
	revertContract     = kakarot.Address{0xee}
	storeContract      = kakarot.Address{0x57}
	tokenHolder        = kakarot.Address{0x70}
	messageTarget      = uint64(0x11)
)

type script func(kakarot.Parameters) (kakarot.Result, error)

var scripts = map[string]script{
	string(codeStore): func(params kakarot.Parameters) (kakarot.Result, error) {
		var value kakarot.Word
		copy(value[:], params.Input)
		params.Context.SetStorage(params.Recipient, kakarot.Key{}, value)
		params.Context.EmitLog(kakarot.Log{Address: params.Recipient, Data: kakarot.Data(value[:])})
		return kakarot.Result{Success: true, GasLeft: params.Gas - storeGas}, nil
	},
	string(codeRevert): func(params kakarot.Parameters) (kakarot.Result, error) {
		params.Context.SetStorage(params.Recipient, kakarot.Key{}, kakarot.Word{1})
		return kakarot.Result{Output: kakarot.Data("no"), GasLeft: params.Gas - revertCost}, nil
	},
	string(codeBridgeInc): func(params kakarot.Parameters) (kakarot.Result, error) {
		res, err := callPrecompile(params, kprocessor.WhitelistedCallAddress, incInput())
		return kakarot.Result{Success: res.Success, Output: res.Output, GasLeft: res.GasLeft}, err
	},
	string(codeBridgeIncRevert): func(params kakarot.Parameters) (kakarot.Result, error) {
		res, err := callPrecompile(params, kprocessor.WhitelistedCallAddress, incInput())
		return kakarot.Result{Output: kakarot.Data("no"), GasLeft: res.GasLeft}, err
	},
	string(codeBridgeIncSibling): func(params kakarot.Parameters) (kakarot.Result, error) {
		res, err := callPrecompile(params, kprocessor.WhitelistedCallAddress, incInput())
		if err != nil || !res.Success {
			return kakarot.Result{}, err
		}
		sibling, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    params.Recipient,
			Recipient: revertContract,
			Gas:       res.GasLeft,
		})
		return kakarot.Result{Success: true, GasLeft: sibling.GasLeft}, err
	},
	string(codeTokenTransfer): func(params kakarot.Parameters) (kakarot.Result, error) {
		input := append([]byte{}, crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]...)
		input = append(input, words(new(uint256.Int).SetBytes(bob[:]), uint256.NewInt(10))...)
		res, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    params.Recipient,
			Recipient: tokenAddress,
			Input:     input,
			Gas:       params.Gas,
		})
		return kakarot.Result{Success: res.Success, Output: res.Output, GasLeft: res.GasLeft}, err
	},
	string(codeSendMessage): func(params kakarot.Parameters) (kakarot.Result, error) {
		input := words(uint256.NewInt(messageTarget), uint256.NewInt(0x40), uint256.NewInt(2))
		input = append(input, rightPad([]byte{0xca, 0xfe})...)
		res, err := callPrecompile(params, kprocessor.MessageToL1Address, input)
		return kakarot.Result{Success: res.Success, GasLeft: res.GasLeft}, err
	},
	string(codeDeploy): func(params kakarot.Parameters) (kakarot.Result, error) {
		return kakarot.Result{Success: true, Output: kakarot.Data(codeStore), GasLeft: params.Gas - deployGas}, nil
	},
}

// scriptedInterpreter runs the script named by the code of a contract.
type scriptedInterpreter struct{}

func (scriptedInterpreter) Run(params kakarot.Parameters) (kakarot.Result, error) {
	run, found := scripts[string(params.Code)]
	if !found {
		return kakarot.Result{}, fmt.Errorf("no script for code %x", params.Code)
	}
	return run(params)
}

func callPrecompile(params kakarot.Parameters, address uint64, input kakarot.Data) (kakarot.CallResult, error) {
	return params.Context.Call(kakarot.Call, kakarot.CallParameters{
		Sender:    params.Recipient,
		Recipient: kakarot.AddressFromUint64(address),
		Input:     input,
		Gas:       params.Gas,
	})
}

// incInput encodes a whitelisted call of the inc entry point of the counter.
func incInput() kakarot.Data {
	return words(
		kakarot.Felt(counterContract).ToUint256(),
		native.Selector("inc").ToUint256(),
		uint256.NewInt(0x60),
		uint256.NewInt(0),
	)
}

func words(values ...*uint256.Int) kakarot.Data {
	res := make(kakarot.Data, 0, 32*len(values))
	for _, value := range values {
		word := value.Bytes32()
		res = append(res, word[:]...)
	}
	return res
}

func rightPad(data []byte) []byte {
	res := make([]byte, (len(data)+31)/32*32)
	copy(res, data)
	return res
}
