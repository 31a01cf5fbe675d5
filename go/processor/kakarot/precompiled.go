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
	"math"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
)

// Precompile is a contract implemented natively by the runtime. Failures are
// reported as errors; PrecompileErrors carry the return data of the failure.
type Precompile interface {
	Run(call *PrecompileCall) (kakarot.Data, error)
}

// LogEmitter receives the logs emitted by precompiles.
type LogEmitter interface {
	EmitLog(kakarot.Log)
}

// PrecompileCall describes a single precompile invocation.
type PrecompileCall struct {
	Address        kakarot.Address // address of the precompile
	Input          kakarot.Data
	Caller         kakarot.Address
	MessageAddress kakarot.Address // context address, differs from Address under delegate calls
	Value          kakarot.Value
	Static         bool
	Gas            *GasMeter
	Guest          kakarot.GuestCaller // may be nil
	Logs           LogEmitter          // may be nil
	// NativeCalls counts the native ledger invocations attempted.
	NativeCalls int
}

func (c *PrecompileCall) emitLog(entry kakarot.Log) {
	if c.Logs != nil {
		c.Logs.EmitLog(entry)
	}
}

// PrecompileResult is the outcome of a precompile invocation.
type PrecompileResult struct {
	Output      kakarot.Data
	GasUsed     kakarot.Gas
	Status      Status
	NativeCalls int
}

// NativeEnvironment bundles the collaborators of the native bridge.
type NativeEnvironment struct {
	Ledger     kakarot.NativeLedger
	Mapper     kakarot.AddressMapper
	Authorized kakarot.AuthorizedCallers
}

// Registry resolves classified addresses to precompile implementations.
type Registry struct {
	classifier *Classifier
	handlers   map[kakarot.Address]Precompile
	authorized kakarot.AuthorizedCallers
}

// NewRegistry creates the precompile table for the given configuration.
func NewRegistry(config Config, env NativeEnvironment) *Registry {
	classifier := NewClassifier(config)
	handlers := map[kakarot.Address]Precompile{}
	for _, n := range config.EthereumPrecompiles {
		address := kakarot.AddressFromUint64(n)
		if !classifier.IsImplemented(address) {
			continue
		}
		if contract, found := geth.PrecompiledContractsCancun[common.Address(address)]; found {
			handlers[address] = ethereumPrecompile{contract}
		}
	}
	for _, n := range config.RollupPrecompiles {
		if n == 0x100 {
			handlers[kakarot.AddressFromUint64(n)] = p256Verify{gas: config.P256VerifyGas}
		}
	}
	bridge := nativeBridge{env: env, gas: config.NativePrecompileGas}
	for n, handler := range map[uint64]Precompile{
		WhitelistedCallAddress: whitelistedCall{bridge},
		MessageToL1Address:     messageToL1{bridge},
		MulticallAddress:       multicall{bridge},
	} {
		if inRange(n, config.NativeBridgeFirst, config.NativeBridgeLast) {
			handlers[kakarot.AddressFromUint64(n)] = handler
		}
	}
	for address, token := range config.DualVMTokens {
		handlers[address] = dualVMToken{bridge: bridge, token: token}
	}
	return &Registry{
		classifier: classifier,
		handlers:   handlers,
		authorized: env.Authorized,
	}
}

// Classify returns the family of the given address.
func (r *Registry) Classify(address kakarot.Address) Family {
	return r.classifier.Classify(address)
}

// Precompiles lists all addresses classified as precompiles.
func (r *Registry) Precompiles() []kakarot.Address {
	return r.classifier.Precompiles()
}

// Run executes the precompile at the called address. The family must be the
// classification of that address.
func (r *Registry) Run(family Family, call *PrecompileCall) PrecompileResult {
	handler, err := r.resolve(family, call)
	if err != nil {
		return r.failed(call, err)
	}
	output, err := handler.Run(call)
	if err != nil {
		return r.failed(call, err)
	}
	return PrecompileResult{
		Output:      output,
		GasUsed:     call.Gas.Used(),
		Status:      Success,
		NativeCalls: call.NativeCalls,
	}
}

func (r *Registry) resolve(family Family, call *PrecompileCall) (Precompile, error) {
	address := call.Address
	switch family {
	case EthereumStandard:
		if !r.classifier.IsImplemented(address) {
			return nil, &PrecompileError{Kind: NotImplementedPrecompile, Address: address}
		}
	case Rollup:
	case NativeBridge:
		if _, isToken := r.classifier.DualVMToken(address); !isToken && !r.isAuthorized(call) {
			return nil, &PrecompileError{Kind: UnauthorizedPrecompile, Address: address}
		}
	default:
		return nil, &PrecompileError{Kind: UnknownPrecompile, Address: address}
	}
	handler, found := r.handlers[address]
	if !found {
		return nil, &PrecompileError{Kind: NotImplementedPrecompile, Address: address}
	}
	return handler, nil
}

// isAuthorized checks the caller against the authorized caller set. Under
// delegate calls the contract whose context the precompile runs in is
// checked instead of its caller.
func (r *Registry) isAuthorized(call *PrecompileCall) bool {
	if r.authorized == nil {
		return false
	}
	subject := call.Caller
	if call.MessageAddress != call.Address {
		subject = call.MessageAddress
	}
	return r.authorized.IsAuthorized(subject)
}

func (r *Registry) failed(call *PrecompileCall, err error) PrecompileResult {
	status, payload := failureOf(err)
	return PrecompileResult{
		Output:      payload,
		GasUsed:     call.Gas.Used(),
		Status:      status,
		NativeCalls: call.NativeCalls,
	}
}

// RunPrecompile executes a precompile outside of a metered frame and reports
// the return data, whether the call failed, and the gas it consumed.
func (r *Registry) RunPrecompile(
	address kakarot.Address,
	input kakarot.Data,
	caller kakarot.Address,
	messageAddress kakarot.Address,
) (returnData kakarot.Data, reverted bool, gasUsed kakarot.Gas) {
	result := r.Run(r.Classify(address), &PrecompileCall{
		Address:        address,
		Input:          input,
		Caller:         caller,
		MessageAddress: messageAddress,
		Gas:            newUnlimitedGasMeter(),
	})
	return result.Output, result.Status != Success, result.GasUsed
}

// ethereumPrecompile adapts the standard precompiles of go-ethereum.
type ethereumPrecompile struct {
	contract geth.PrecompiledContract
}

func (p ethereumPrecompile) Run(call *PrecompileCall) (kakarot.Data, error) {
	cost := p.contract.RequiredGas(call.Input)
	if err := call.Gas.Charge(kakarot.Gas(min(cost, math.MaxInt64))); err != nil {
		return nil, err
	}
	return p.contract.Run(call.Input)
}
