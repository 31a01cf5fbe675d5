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
	"testing"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	"github.com/Fantom-foundation/Kakarot/go/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/mock/gomock"
)

var (
	sender    = kakarot.Address{0x5e, 0xd}
	contractA = kakarot.Address{0xc0, 0x0a}
	contractB = kakarot.Address{0xc0, 0x0b}

	bridgeAddress = kakarot.AddressFromUint64(WhitelistedCallAddress)
	forwarder     = kakarot.NativeAddress(kakarot.FeltFromUint64(0xf0))
)

func newTestRuntime(interpreter kakarot.Interpreter, world state.InMemory, registry *Registry, config Config) *runtime {
	return &runtime{
		AccountStore: state.NewAccountStore(world),
		interpreter:  interpreter,
		registry:     registry,
		config:       config,
		access:       state.NewAccessListCache(),
	}
}

func withCode(addresses ...kakarot.Address) state.InMemory {
	world := state.InMemory{
		sender: {Balance: kakarot.NewValue(1_000_000)},
	}
	for _, address := range addresses {
		world[address] = state.StoredAccount{Code: kakarot.Code{0x01}}
	}
	return world
}

func TestRuntime_CallToAccountWithoutCodeSucceedsWithoutRunningInterpreter(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{
		Sender:    sender,
		Recipient: contractA,
		Gas:       1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.GasLeft != 1000 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(r.frames) != 0 {
		t.Errorf("call stack not empty after call: %d", len(r.frames))
	}
}

func TestRuntime_CallRunsInterpreterWithFrameParameters(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(contractA), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		if params.Depth != 0 || params.Static || params.Recipient != contractA || params.Sender != sender {
			t.Errorf("unexpected parameters: %+v", params)
		}
		if want, got := hashCode(kakarot.Code{0x01}), *params.CodeHash; want != got {
			t.Errorf("unexpected code hash, wanted %v, got %v", want, got)
		}
		if want, got := kakarot.Gas(1000), params.Gas; want != got {
			t.Errorf("unexpected gas, wanted %d, got %d", want, got)
		}
		return kakarot.Result{Success: true, Output: kakarot.Data{1, 2}, GasLeft: 400, GasRefund: 10}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{
		Sender:    sender,
		Recipient: contractA,
		Gas:       1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := kakarot.CallResult{Success: true, Output: kakarot.Data{1, 2}, GasLeft: 400, GasRefund: 10}
	if res.Success != want.Success || string(res.Output) != string(want.Output) ||
		res.GasLeft != want.GasLeft || res.GasRefund != want.GasRefund {
		t.Errorf("unexpected result, wanted %+v, got %+v", want, res)
	}
}

func TestRuntime_FailedFramesAreRolledBack(t *testing.T) {
	tests := map[string]struct {
		result  kakarot.Result
		gasLeft kakarot.Gas
	}{
		"revert with gas left": {
			result:  kakarot.Result{GasLeft: 300, GasRefund: 7},
			gasLeft: 300,
		},
		"revert with output": {
			result:  kakarot.Result{Output: kakarot.Data("reason"), GasRefund: 7},
			gasLeft: 0,
		},
		"exceptional halt": {
			result:  kakarot.Result{},
			gasLeft: 0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := kakarot.NewMockInterpreter(ctrl)
			r := newTestRuntime(interpreter, withCode(contractA), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

			interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
				params.Context.SetStorage(contractA, kakarot.Key{1}, kakarot.Word{2})
				params.Context.SetBalance(contractB, kakarot.NewValue(5))
				params.Context.EmitLog(kakarot.Log{Address: contractA})
				if want, got := kakarot.ColdAccess, params.Context.AccessAccount(contractB); want != got {
					t.Errorf("unexpected access status, wanted %v, got %v", want, got)
				}
				return test.result, nil
			})

			res, err := r.Call(kakarot.Call, kakarot.CallParameters{
				Sender:    sender,
				Recipient: contractA,
				Gas:       1000,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Success {
				t.Errorf("call should have failed")
			}
			if want, got := test.gasLeft, res.GasLeft; want != got {
				t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
			}
			if res.GasRefund != 0 {
				t.Errorf("failed calls must not refund gas, got %d", res.GasRefund)
			}
			if got := r.GetStorage(contractA, kakarot.Key{1}); got != (kakarot.Word{}) {
				t.Errorf("storage update was not reverted: %v", got)
			}
			if r.AccountExists(contractB) {
				t.Errorf("balance update was not reverted")
			}
			if got := r.GetLogs(); len(got) != 0 {
				t.Errorf("logs were not reverted: %v", got)
			}
			if r.IsAddressInAccessList(contractB) {
				t.Errorf("access list update was not reverted")
			}
		})
	}
}

func TestRuntime_InterpreterErrorsArePropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(contractA), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	injected := errors.New("injected")
	interpreter.EXPECT().Run(gomock.Any()).Return(kakarot.Result{}, injected)

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: contractA, Gas: 1000})
	if !errors.Is(err, injected) {
		t.Errorf("unexpected error, wanted %v, got %v", injected, err)
	}
	if res.Success || res.GasLeft != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(r.frames) != 0 {
		t.Errorf("call stack not empty after call: %d", len(r.frames))
	}
}

func TestRuntime_CallDepthIsLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	config := DefaultConfig()
	config.MaxCallDepth = 1
	r := newTestRuntime(interpreter, withCode(contractA), NewRegistry(config, NativeEnvironment{}), config)

	interpreter.EXPECT().Run(gomock.Any()).Times(2).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		res, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    contractA,
			Recipient: contractA,
			Gas:       50,
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if params.Depth == 1 && (res.Success || res.GasLeft != 50) {
			t.Errorf("call exceeding the depth limit should fail without consuming gas, got %+v", res)
		}
		return kakarot.Result{Success: true, GasLeft: params.Gas}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: contractA, Gas: 1000})
	if err != nil || !res.Success {
		t.Errorf("unexpected result: %+v, %v", res, err)
	}
}

func TestRuntime_StaticModeIsInherited(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(contractA, contractB), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	gomock.InOrder(
		interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
			if !params.Static {
				t.Errorf("static call must run in static mode")
			}
			if _, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
				Sender:    contractA,
				Recipient: contractB,
				Gas:       100,
			}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			return kakarot.Result{Success: true}, nil
		}),
		interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
			if !params.Static || params.Depth != 1 {
				t.Errorf("nested call must inherit static mode, got %+v", params)
			}
			return kakarot.Result{Success: true}, nil
		}),
	)

	if _, err := r.Call(kakarot.StaticCall, kakarot.CallParameters{Sender: sender, Recipient: contractA, Gas: 1000}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRuntime_NestedRevertKeepsParentEffects(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(contractA, contractB), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).Times(2).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		ctx := params.Context
		ctx.EmitLog(kakarot.Log{Address: params.Recipient})
		ctx.SetStorage(params.Recipient, kakarot.Key{1}, kakarot.Word{1})
		if params.Recipient == contractB {
			return kakarot.Result{GasLeft: 10}, nil
		}
		res, err := ctx.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    contractA,
			Recipient: contractB,
			Gas:       100,
		})
		if err != nil || res.Success {
			t.Errorf("nested call should have been reverted, got %+v, %v", res, err)
		}
		return kakarot.Result{Success: true}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: contractA, Gas: 1000})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	logs := r.GetLogs()
	if len(logs) != 1 || logs[0].Address != contractA {
		t.Errorf("unexpected logs: %v", logs)
	}
	if got := r.GetStorage(contractA, kakarot.Key{1}); got != (kakarot.Word{1}) {
		t.Errorf("storage of parent was lost: %v", got)
	}
	if got := r.GetStorage(contractB, kakarot.Key{1}); got != (kakarot.Word{}) {
		t.Errorf("storage of reverted frame was kept: %v", got)
	}
}

func TestRuntime_PrecompileCallsAreRouted(t *testing.T) {
	tests := map[string]struct {
		address kakarot.Address
		input   kakarot.Data
		gas     kakarot.Gas
		success  bool
		output   string
		gasLeft  kakarot.Gas
		poisoned bool
	}{
		"identity": {
			address: kakarot.AddressFromUint64(4),
			input:   kakarot.Data("hello"),
			gas:     50_000,
			success: true,
			output:  "hello",
			gasLeft: 50_000 - 18,
		},
		"not implemented": {
			address: kakarot.AddressFromUint64(5),
			gas:     50_000,
			output:  "Kakarot: NotImplementedPrecompile 5",
		},
		"unauthorized bridge call": {
			address:  bridgeAddress,
			input:    nativeCallInput(counterAddress, "inc"),
			gas:      50_000,
			output:   "Kakarot: unauthorizedPrecompile",
			gasLeft:  50_000,
			poisoned: true,
		},
		"out of gas": {
			address: kakarot.AddressFromUint64(0x100),
			gas:     1000,
			output:  "Kakarot: outOfGas left=1000, required=3450",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := kakarot.NewMockInterpreter(ctrl)
			registry, _ := newTestRegistry(t, DefaultConfig())
			r := newTestRuntime(interpreter, withCode(), registry, DefaultConfig())

			res, err := r.Call(kakarot.Call, kakarot.CallParameters{
				Sender:    sender,
				Recipient: test.address,
				Input:     test.input,
				Gas:       test.gas,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := test.success, res.Success; want != got {
				t.Errorf("unexpected success, wanted %t, got %t", want, got)
			}
			if want, got := test.output, string(res.Output); want != got {
				t.Errorf("unexpected output, wanted %q, got %q", want, got)
			}
			if want, got := test.gasLeft, res.GasLeft; want != got {
				t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
			}
			if want, got := test.poisoned, r.poisoned; want != got {
				t.Errorf("unexpected poisoned state, wanted %t, got %t", want, got)
			}
		})
	}
}

func TestRuntime_BridgeRevertReturnsRemainingGas(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	registry, _ := newTestRegistry(t, DefaultConfig())
	r := newTestRuntime(interpreter, withCode(), registry, DefaultConfig())

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{
		Sender:    authorized,
		Recipient: bridgeAddress,
		Input:     mustDecodeHex(t, "0abcdef0"),
		Gas:       50_000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || string(res.Output) != "Kakarot: OutOfBoundsRead" {
		t.Errorf("unexpected result: %+v", res)
	}
	if want, got := kakarot.Gas(40_000), res.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
	if !r.poisoned || r.nativeCalls != 1 {
		t.Errorf("failed bridge dispatch must count as native call, poisoned %t, native calls %d", r.poisoned, r.nativeCalls)
	}
}

func TestRuntime_UnauthorizedBridgeCallReturnsForwardedGas(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	registry, ledger := newTestRegistry(t, DefaultConfig())
	r := newTestRuntime(interpreter, withCode(contractB), registry, DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		res, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    contractB,
			Recipient: bridgeAddress,
			Input:     nativeCallInput(counterAddress, "inc"),
			Gas:       50_000,
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if res.Success || string(res.Output) != "Kakarot: unauthorizedPrecompile" {
			t.Errorf("unexpected result: %+v", res)
		}
		if want, got := kakarot.Gas(50_000), res.GasLeft; want != got {
			t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
		}
		return kakarot.Result{Success: true, GasLeft: res.GasLeft}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: contractB, Gas: 100_000})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	if !r.poisoned {
		t.Errorf("rejected bridge call must poison the transaction")
	}
	if got := counterValue(ledger); got != 0 {
		t.Errorf("unauthorized call reached the ledger, counter is %d", got)
	}
}

func TestRuntime_RevertAfterNativeCallPoisonsTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	registry, ledger := newTestRegistry(t, DefaultConfig())
	r := newTestRuntime(interpreter, withCode(authorized), registry, DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		res, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    authorized,
			Recipient: bridgeAddress,
			Input:     nativeCallInput(counterAddress, "inc"),
			Gas:       50_000,
		})
		if err != nil || !res.Success {
			t.Errorf("native call failed: %+v, %v", res, err)
		}
		return kakarot.Result{GasLeft: 10}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: authorized, Gas: 100_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Errorf("call should have been reverted")
	}
	if !r.poisoned {
		t.Errorf("revert after native calls must poison the transaction")
	}
	if want, got := 2, r.nativeCalls; want != got {
		t.Errorf("unexpected number of native calls, wanted %d, got %d", want, got)
	}
	// the runtime leaves native effects to the executor
	if got := counterValue(ledger); got != 1 {
		t.Errorf("unexpected counter value: %d", got)
	}
}

func TestRuntime_SiblingRevertWithoutNativeCallsDoesNotPoison(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	registry, _ := newTestRegistry(t, DefaultConfig())
	r := newTestRuntime(interpreter, withCode(authorized, contractB), registry, DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).Times(2).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		if params.Recipient == contractB {
			return kakarot.Result{GasLeft: 1}, nil
		}
		res, err := params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    authorized,
			Recipient: bridgeAddress,
			Input:     nativeCallInput(counterAddress, "inc"),
			Gas:       50_000,
		})
		if err != nil || !res.Success {
			t.Errorf("native call failed: %+v, %v", res, err)
		}
		res, err = params.Context.Call(kakarot.Call, kakarot.CallParameters{
			Sender:    authorized,
			Recipient: contractB,
			Gas:       1000,
		})
		if err != nil || res.Success {
			t.Errorf("sibling call should have been reverted: %+v, %v", res, err)
		}
		return kakarot.Result{Success: true}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: authorized, Gas: 100_000})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	if r.poisoned {
		t.Errorf("reverted sibling without native calls must not poison the transaction")
	}
}

func TestRuntime_RestoreSnapshotPoisonsOnlyAfterNativeCalls(t *testing.T) {
	for _, withNativeCall := range []bool{false, true} {
		ctrl := gomock.NewController(t)
		interpreter := kakarot.NewMockInterpreter(ctrl)
		registry, _ := newTestRegistry(t, DefaultConfig())
		r := newTestRuntime(interpreter, withCode(authorized), registry, DefaultConfig())

		interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
			ctx := params.Context
			snapshot := ctx.CreateSnapshot()
			ctx.SetStorage(authorized, kakarot.Key{1}, kakarot.Word{1})
			ctx.EmitLog(kakarot.Log{Address: authorized})
			if withNativeCall {
				if _, err := ctx.Call(kakarot.Call, kakarot.CallParameters{
					Sender:    authorized,
					Recipient: bridgeAddress,
					Input:     nativeCallInput(counterAddress, "inc"),
					Gas:       50_000,
				}); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
			ctx.RestoreSnapshot(snapshot)
			if got := ctx.GetStorage(authorized, kakarot.Key{1}); got != (kakarot.Word{}) {
				t.Errorf("storage was not restored: %v", got)
			}
			if got := ctx.GetLogs(); len(got) != 0 {
				t.Errorf("logs were not restored: %v", got)
			}
			return kakarot.Result{Success: true}, nil
		})

		if _, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: authorized, Gas: 100_000}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want, got := withNativeCall, r.poisoned; want != got {
			t.Errorf("unexpected poisoned state with native call %t, wanted %t, got %t", withNativeCall, want, got)
		}
	}
}

func TestRuntime_FrameExitDropsSnapshotsTakenInside(t *testing.T) {
	for _, innerSuccess := range []bool{true, false} {
		ctrl := gomock.NewController(t)
		interpreter := kakarot.NewMockInterpreter(ctrl)
		registry, _ := newTestRegistry(t, DefaultConfig())
		r := newTestRuntime(interpreter, withCode(contractA, contractB), registry, DefaultConfig())

		var inner kakarot.Snapshot
		interpreter.EXPECT().Run(gomock.Any()).Times(2).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
			ctx := params.Context
			if params.Recipient == contractB {
				inner = ctx.CreateSnapshot()
				ctx.SetStorage(contractB, kakarot.Key{1}, kakarot.Word{1})
				return kakarot.Result{Success: innerSuccess}, nil
			}
			ctx.SetStorage(contractA, kakarot.Key{1}, kakarot.Word{1})
			if _, err := ctx.Call(kakarot.Call, kakarot.CallParameters{
				Sender:    contractA,
				Recipient: contractB,
				Gas:       1000,
			}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if got := len(r.snapshots); got != 0 {
				t.Errorf("snapshots of finished frame were kept: %d", got)
			}
			ctx.RestoreSnapshot(inner)
			if got := ctx.GetStorage(contractA, kakarot.Key{1}); got != (kakarot.Word{1}) {
				t.Errorf("stale snapshot modified storage of the caller: %v", got)
			}
			want := kakarot.Word{}
			if innerSuccess {
				want = kakarot.Word{1}
			}
			if got := ctx.GetStorage(contractB, kakarot.Key{1}); got != want {
				t.Errorf("unexpected storage of callee with success %t, wanted %v, got %v", innerSuccess, want, got)
			}
			return kakarot.Result{Success: true}, nil
		})

		res, err := r.Call(kakarot.Call, kakarot.CallParameters{Sender: sender, Recipient: contractA, Gas: 100_000})
		if err != nil || !res.Success {
			t.Fatalf("unexpected result: %+v, %v", res, err)
		}
	}
}

func TestRuntime_NativeContractsCanCallBackIntoGuest(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	registry, ledger := newTestRegistry(t, DefaultConfig())
	ledger.Deploy(forwarder, native.Forwarder{})
	r := newTestRuntime(interpreter, withCode(contractB), registry, DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		if params.Depth != 1 || params.Sender != authorized || params.Recipient != contractB {
			t.Errorf("unexpected parameters of guest call: %+v", params)
		}
		if want, got := kakarot.Gas(90_000), params.Gas; want != got {
			t.Errorf("unexpected gas of guest call, wanted %d, got %d", want, got)
		}
		return kakarot.Result{Success: true, Output: kakarot.Data{0x2a}, GasLeft: 89_000}, nil
	})

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{
		Sender:    authorized,
		Recipient: bridgeAddress,
		Input:     nativeCallInput(forwarder, "call_guest", addressFelt(contractB)),
		Gas:       100_000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("call failed: %q", res.Output)
	}
	want := make([]byte, 32)
	want[16] = 0x2a
	if string(want) != string(res.Output) {
		t.Errorf("unexpected output, wanted %x, got %x", want, res.Output)
	}
	if want, got := kakarot.Gas(89_000), res.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
}

func TestRuntime_FailingGuestCallbackRevertsBridgeCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	registry, ledger := newTestRegistry(t, DefaultConfig())
	ledger.Deploy(forwarder, native.Forwarder{})
	r := newTestRuntime(interpreter, withCode(contractB), registry, DefaultConfig())

	interpreter.EXPECT().Run(gomock.Any()).Return(kakarot.Result{Output: kakarot.Data("no")}, nil)

	res, err := r.Call(kakarot.Call, kakarot.CallParameters{
		Sender:    authorized,
		Recipient: bridgeAddress,
		Input:     nativeCallInput(forwarder, "call_guest", addressFelt(contractB)),
		Gas:       100_000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || string(res.Output) != "Kakarot: ChildContextFailure" {
		t.Errorf("unexpected result: %+v", res)
	}
	if !r.poisoned {
		t.Errorf("failed bridge call after native calls must poison the transaction")
	}
}

func TestRuntime_CreateDeploysCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	initCode := kakarot.Code{0x60, 0x02}
	code := kakarot.Code{0x60, 0x00}
	created := kakarot.Address(crypto.CreateAddress(common.Address(sender), 0))

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params kakarot.Parameters) (kakarot.Result, error) {
		if params.Recipient != created || string(params.Code) != string(initCode) || params.Input != nil {
			t.Errorf("unexpected parameters: %+v", params)
		}
		return kakarot.Result{Success: true, Output: kakarot.Data(code), GasLeft: 50_000}, nil
	})

	res, err := r.Call(kakarot.Create, kakarot.CallParameters{
		Sender: sender,
		Input:  kakarot.Data(initCode),
		Gas:    100_000,
	})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	if want, got := created, res.CreatedAddress; want != got {
		t.Errorf("unexpected created address, wanted %v, got %v", want, got)
	}
	if want, got := kakarot.Gas(50_000-2*200), res.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
	if want, got := code, r.GetCode(created); string(want) != string(got) {
		t.Errorf("unexpected code, wanted %x, got %x", want, got)
	}
	if want, got := uint64(1), r.GetNonce(created); want != got {
		t.Errorf("unexpected nonce of created account, wanted %d, got %d", want, got)
	}
	if want, got := uint64(1), r.GetNonce(sender); want != got {
		t.Errorf("unexpected nonce of sender, wanted %d, got %d", want, got)
	}
}

func TestRuntime_Create2UsesSalt(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	r := newTestRuntime(interpreter, withCode(), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	initCode := kakarot.Code{0x60, 0x02}
	salt := kakarot.Hash{0x5a}
	initHash := hashCode(initCode)
	created := kakarot.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initHash[:]))

	interpreter.EXPECT().Run(gomock.Any()).Return(kakarot.Result{Success: true, GasLeft: 10}, nil)

	res, err := r.Call(kakarot.Create2, kakarot.CallParameters{
		Sender: sender,
		Input:  kakarot.Data(initCode),
		Salt:   salt,
		Gas:    100,
	})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	if want, got := created, res.CreatedAddress; want != got {
		t.Errorf("unexpected created address, wanted %v, got %v", want, got)
	}
}

func TestRuntime_CreateRejectsInvalidCode(t *testing.T) {
	config := DefaultConfig()
	tests := map[string]kakarot.Data{
		"EF prefix":      {0xef, 0x00},
		"code too large": make(kakarot.Data, config.MaxCodeSize+1),
		"too expensive":  make(kakarot.Data, 251),
	}

	for name, output := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := kakarot.NewMockInterpreter(ctrl)
			r := newTestRuntime(interpreter, withCode(), NewRegistry(config, NativeEnvironment{}), config)

			interpreter.EXPECT().Run(gomock.Any()).Return(kakarot.Result{Success: true, Output: output, GasLeft: 50_000}, nil)

			res, err := r.Call(kakarot.Create, kakarot.CallParameters{Sender: sender, Gas: 100_000})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Success || res.GasLeft != 0 || len(res.Output) != 0 {
				t.Errorf("unexpected result: %+v", res)
			}
			if got := r.GetCode(res.CreatedAddress); len(got) != 0 {
				t.Errorf("code was deployed: %x", got)
			}
			if r.AccountExists(res.CreatedAddress) {
				t.Errorf("created account was not removed")
			}
		})
	}
}

func TestRuntime_CreateCollisionFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := kakarot.NewMockInterpreter(ctrl)
	created := kakarot.Address(crypto.CreateAddress(common.Address(sender), 0))
	world := withCode()
	world[created] = state.StoredAccount{Nonce: 1}
	r := newTestRuntime(interpreter, world, NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

	res, err := r.Call(kakarot.Create, kakarot.CallParameters{Sender: sender, Gas: 100_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.GasLeft != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRuntime_ValueTransfers(t *testing.T) {
	tests := map[string]struct {
		value   uint64
		success bool
	}{
		"affordable":   {1000, true},
		"unaffordable": {2_000_000, false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := kakarot.NewMockInterpreter(ctrl)
			r := newTestRuntime(interpreter, withCode(), NewRegistry(DefaultConfig(), NativeEnvironment{}), DefaultConfig())

			res, err := r.Call(kakarot.Call, kakarot.CallParameters{
				Sender:    sender,
				Recipient: contractB,
				Value:     kakarot.NewValue(test.value),
				Gas:       1000,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := test.success, res.Success; want != got {
				t.Errorf("unexpected success, wanted %t, got %t", want, got)
			}
			wantBalance := kakarot.Value{}
			if test.success {
				wantBalance = kakarot.NewValue(test.value)
			}
			if want, got := wantBalance, r.GetBalance(contractB); want != got {
				t.Errorf("unexpected balance, wanted %v, got %v", want, got)
			}
		})
	}
}

func addressFelt(address kakarot.Address) kakarot.Felt {
	var res kakarot.Felt
	copy(res[12:], address[:])
	return res
}
