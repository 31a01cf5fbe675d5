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
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/state"
)

var (
	bridgeOwner = kakarot.Address{0x0e}
	tokenMinter = kakarot.NativeAddress(kakarot.FeltFromUint64(0x6d696e74))

	counterContract = kakarot.NativeAddress(kakarot.FeltFromUint64(0xc0de))
	tokenContract   = kakarot.NativeAddress(kakarot.FeltFromUint64(0x7e7e))
	tokenAddress    = kakarot.AddressFromUint64(0xe7e00)
)

// Scenario represents a test scenario for the transaction executor. A
// scenario consists of a world state before and after the operation, a
// transaction to be executed, block chain parameters, the expected receipt,
// and the expected effects on the native ledger.
type Scenario struct {
	Before      state.InMemory
	After       state.InMemory
	Parameters  kakarot.BlockParameters
	Transaction kakarot.Transaction
	Receipt     kakarot.Receipt
	// Error is the error the executor is expected to report.
	Error error
	// Setup prepares the native ledger before the transaction is run.
	Setup func(*testing.T, *Environment)
	// Counter is the expected value of the native counter contract.
	Counter uint64
	// Messages is the expected number of messages sent to the settlement layer.
	Messages int
	// Check runs additional checks on the native ledger after the transaction.
	Check func(*testing.T, *Environment)
}

// Environment bundles an executor with the native ledger it is connected to.
type Environment struct {
	Executor *kprocessor.Executor
	Ledger   *native.Ledger
	Mapper   *native.AddressMapper
}

// NewEnvironment creates an executor running scripted contracts, connected to
// a native ledger hosting a counter and a token contract.
func NewEnvironment(t *testing.T, authorized ...kakarot.Address) *Environment {
	t.Helper()
	config := kprocessor.DefaultConfig()
	config.Coinbase = coinbase
	config.DualVMTokens = map[kakarot.Address]kakarot.NativeAddress{tokenAddress: tokenContract}

	ledger := native.NewLedger()
	ledger.Deploy(counterContract, native.Counter{})
	ledger.Deploy(tokenContract, native.Token{Name: "Starknet Token", Symbol: "STRK", Decimals: 18, Minter: tokenMinter})

	callers := native.NewAuthorizedCallers(bridgeOwner)
	for _, caller := range authorized {
		if err := callers.SetAuthorized(bridgeOwner, caller, true); err != nil {
			t.Fatalf("failed to authorize %v: %v", caller, err)
		}
	}
	mapper := native.NewAddressMapper(config.NativeAccountDeployer)

	executor, err := kprocessor.NewExecutor(config, scriptedInterpreter{}, kprocessor.NativeEnvironment{
		Ledger:     ledger,
		Mapper:     mapper,
		Authorized: callers,
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return &Environment{Executor: executor, Ledger: ledger, Mapper: mapper}
}

// Mint credits tokens to the native account of the given guest address.
func (e *Environment) Mint(t *testing.T, to kakarot.Address, amount uint64) {
	t.Helper()
	calldata := []kakarot.Felt{kakarot.Felt(e.Mapper.NativeAddressOf(to)), kakarot.FeltFromUint64(amount), {}}
	if _, err := e.Ledger.Call(kakarot.NativeCall{
		Caller:   tokenMinter,
		Target:   tokenContract,
		Selector: native.Selector("mint"),
		Calldata: calldata,
	}); err != nil {
		t.Fatalf("failed to mint tokens: %v", err)
	}
}

// Counter returns the current value of the native counter contract.
func (e *Environment) Counter() uint64 {
	return e.Ledger.GetStorage(counterContract, native.StorageKey("counter")).ToUint256().Uint64()
}

func (s *Scenario) Run(t *testing.T) {
	env := NewEnvironment(t, authorizedContract)
	if s.Setup != nil {
		s.Setup(t, env)
	}

	world := s.Before.Clone()
	receipt, err := env.Executor.Run(s.Parameters, s.Transaction, world)
	if !errors.Is(err, s.Error) {
		t.Fatalf("unexpected error, want %v, got %v", s.Error, err)
	}

	// check the world state after the operation
	if want, got := s.After, world; !want.Equal(got) {
		diff := strings.Join(got.Diff(want), "\n\t")
		t.Fatalf("unexpected world state after the operation: \n\t%v", diff)
	}

	// check the native ledger
	if want, got := s.Counter, env.Counter(); want != got {
		t.Errorf("unexpected native counter, want %d, got %d", want, got)
	}
	if want, got := s.Messages, len(env.Ledger.Messages()); want != got {
		t.Errorf("unexpected number of messages, want %d, got %d", want, got)
	}

	// check the receipt
	if want, got := s.Receipt.Success, receipt.Success; want != got {
		t.Errorf("unexpected success, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.GasUsed, receipt.GasUsed; want != got {
		t.Errorf("unexpected gas used, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.Output, receipt.Output; !bytes.Equal(want, got) {
		t.Errorf("unexpected output, want %x, got %x", want, got)
	}

	wantedCreatedContract := s.Receipt.ContractAddress
	gotCreatedContract := receipt.ContractAddress
	if wantedCreatedContract == nil && gotCreatedContract != nil {
		t.Errorf("unexpected created contract address, want nil, got %v", gotCreatedContract)
	}
	if wantedCreatedContract != nil && gotCreatedContract == nil {
		t.Errorf("unexpected created contract address, want %v, got nil", wantedCreatedContract)
	}
	if wantedCreatedContract != nil && gotCreatedContract != nil {
		if want, got := *wantedCreatedContract, *gotCreatedContract; want != got {
			t.Errorf("unexpected created contract address, want %v, got %v", want, got)
		}
	}

	if s.Check != nil {
		s.Check(t, env)
	}

	if len(receipt.Logs) != len(s.Receipt.Logs) {
		t.Fatalf("unexpected receipt logs: %v", receipt.Logs)
	}
	for i, want := range s.Receipt.Logs {
		got := receipt.Logs[i]
		if want, got := want.Address, got.Address; want != got {
			t.Errorf("unexpected receipt log address, want %v, got %v", want, got)
		}
		if want, got := want.Topics, got.Topics; !slices.Equal(want, got) {
			t.Errorf("unexpected receipt log topics, want %v, got %v", want, got)
		}
		if want, got := want.Data, got.Data; !bytes.Equal(want, got) {
			t.Errorf("unexpected receipt data, want %x, got %x", want, got)
		}
	}
}

func (s *Scenario) Clone() Scenario {
	return Scenario{
		Before:      s.Before.Clone(),
		After:       s.After.Clone(),
		Parameters:  s.Parameters,
		Transaction: s.Transaction,
		Receipt:     s.Receipt,
		Error:       s.Error,
		Setup:       s.Setup,
		Counter:     s.Counter,
		Messages:    s.Messages,
		Check:       s.Check,
	}
}
