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

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

var emptyCodeHash = kakarot.Hash(crypto.Keccak256(nil))

// frame is a single entry of the call stack. It records the marks the shared
// transaction state is restored to if the frame fails.
type frame struct {
	kind         kakarot.CallKind
	handle       state.Handle
	accessMark   int
	logMark      int
	snapshotMark int
	nativeCalls  int
	static       bool
	depth        int
}

// snapshot is a restore point requested by an interpreter.
type snapshot struct {
	handle      state.Handle
	accessMark  int
	logMark     int
	nativeCalls int
}

// runtime executes the call tree of a single transaction. Frames are kept on
// an explicit stack; every frame owns a nested scope of the account store and
// the access list and is resolved exactly once, by commit or by revert.
type runtime struct {
	*state.AccountStore
	interpreter kakarot.Interpreter
	registry    *Registry
	config      Config
	block       kakarot.BlockParameters
	transaction kakarot.TransactionParameters

	access    *state.AccessListCache
	logs      []kakarot.Log
	frames    []*frame
	snapshots []snapshot

	// nativeCalls counts native bridge dispatches and ledger invocations in
	// this transaction.
	nativeCalls int
	// poisoned is set once a frame fails after native calls were made in
	// its subtree. Native effects of such a transaction cannot be kept.
	poisoned bool
}

func (r *runtime) Call(kind kakarot.CallKind, parameters kakarot.CallParameters) (kakarot.CallResult, error) {
	if kind.IsCreate() {
		return r.executeCreate(kind, parameters)
	}
	return r.executeCall(kind, parameters)
}

func (r *runtime) executeCall(kind kakarot.CallKind, parameters kakarot.CallParameters) (kakarot.CallResult, error) {
	errResult := kakarot.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if len(r.frames) > r.config.MaxCallDepth {
		return errResult, nil
	}
	if kind == kakarot.Call || kind == kakarot.CallCode {
		if !canTransferValue(r, parameters.Value, parameters.Sender, &parameters.Recipient) {
			return errResult, nil
		}
	}

	recipient := parameters.Recipient
	codeAddress := parameters.CodeAddress
	if kind == kakarot.Call || kind == kakarot.StaticCall {
		codeAddress = recipient
	}
	family := r.registry.Classify(codeAddress)

	current := r.enter(kind)
	if family == NotPrecompile &&
		!r.AccountExists(recipient) &&
		parameters.Value == (kakarot.Value{}) {
		return kakarot.CallResult{Success: true, GasLeft: parameters.Gas}, r.exit(current, true)
	}

	if kind == kakarot.Call || kind == kakarot.CallCode {
		transferValue(r, parameters.Value, parameters.Sender, recipient)
	}

	if family != NotPrecompile {
		return r.runPrecompile(current, family, codeAddress, parameters)
	}

	code := r.GetCode(codeAddress)
	if len(code) == 0 {
		return kakarot.CallResult{Success: true, GasLeft: parameters.Gas}, r.exit(current, true)
	}
	codeHash := r.GetCodeHash(codeAddress)

	result, err := r.interpreter.Run(kakarot.Parameters{
		BlockParameters:       r.block,
		TransactionParameters: r.transaction,
		Context:               r,
		Kind:                  kind,
		Static:                current.static,
		Depth:                 current.depth,
		Gas:                   parameters.Gas,
		Recipient:             recipient,
		Sender:                parameters.Sender,
		Input:                 parameters.Input,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	})
	success := err == nil && result.Success
	if !success {
		if !isRevert(result, err) {
			// if the unsuccessful call was due to a revert, the gas is not consumed
			result.GasLeft = 0
		}
		result.GasRefund = 0
	}
	if exitErr := r.exit(current, success); exitErr != nil && err == nil {
		err = exitErr
	}

	return kakarot.CallResult{
		Output:    result.Output,
		GasLeft:   result.GasLeft,
		GasRefund: result.GasRefund,
		Success:   success,
	}, err
}

// runPrecompile routes a call to the precompile registry. Halting failures
// consume all gas forwarded to the frame, reverts return the remainder. Every
// dispatch to the native bridge counts towards poisoning.
func (r *runtime) runPrecompile(
	current *frame,
	family Family,
	address kakarot.Address,
	parameters kakarot.CallParameters,
) (kakarot.CallResult, error) {
	meter := NewGasMeter(parameters.Gas)
	result := r.registry.Run(family, &PrecompileCall{
		Address:        address,
		Input:          parameters.Input,
		Caller:         parameters.Sender,
		MessageAddress: parameters.Recipient,
		Value:          parameters.Value,
		Static:         current.static,
		Gas:            meter,
		Guest:          &guestCaller{runtime: r, gas: meter},
		Logs:           r,
	})
	r.nativeCalls += result.NativeCalls
	if family == NativeBridge && result.NativeCalls == 0 {
		// rejected or malformed bridge calls still count as attempts
		r.nativeCalls++
	}

	success := result.Status == Success
	res := kakarot.CallResult{
		Output:  result.Output,
		GasLeft: meter.Remaining(),
		Success: success,
	}
	if result.Status == ExceptionalHalt {
		res.GasLeft = 0
	}
	return res, r.exit(current, success)
}

func (r *runtime) executeCreate(kind kakarot.CallKind, parameters kakarot.CallParameters) (kakarot.CallResult, error) {
	errResult := kakarot.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if len(r.frames) > r.config.MaxCallDepth {
		return errResult, nil
	}
	if len(parameters.Input) > 2*r.config.MaxCodeSize {
		return kakarot.CallResult{}, nil
	}
	if !canTransferValue(r, parameters.Value, parameters.Sender, nil) {
		return errResult, nil
	}
	if err := incrementNonce(r, parameters.Sender); err != nil {
		return errResult, nil
	}

	code := kakarot.Code(parameters.Input)
	codeHash := hashCode(code)

	createdAddress := createAddress(kind, parameters.Sender, r.GetNonce(parameters.Sender)-1,
		parameters.Salt, codeHash)

	r.AccessAccount(createdAddress)

	if r.GetNonce(createdAddress) != 0 ||
		(r.GetCodeHash(createdAddress) != (kakarot.Hash{}) &&
			r.GetCodeHash(createdAddress) != emptyCodeHash) {
		return kakarot.CallResult{}, nil
	}

	current := r.enter(kind)
	r.SetNonce(createdAddress, 1)
	r.MarkCreated(createdAddress)

	transferValue(r, parameters.Value, parameters.Sender, createdAddress)

	result, err := r.interpreter.Run(kakarot.Parameters{
		BlockParameters:       r.block,
		TransactionParameters: r.transaction,
		Context:               r,
		Kind:                  kind,
		Static:                current.static,
		Depth:                 current.depth,
		Gas:                   parameters.Gas,
		Recipient:             createdAddress,
		Sender:                parameters.Sender,
		Input:                 nil,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	})
	if err != nil || !result.Success {
		if exitErr := r.exit(current, false); exitErr != nil && err == nil {
			err = exitErr
		}
		if !isRevert(result, err) {
			return kakarot.CallResult{}, err
		}
		// if the unsuccessful create was due to a revert, the result is still returned
		return kakarot.CallResult{Output: result.Output, GasLeft: result.GasLeft, CreatedAddress: createdAddress}, nil
	}

	outCode := result.Output
	if len(outCode) > r.config.MaxCodeSize {
		result.Success = false
	}
	if len(outCode) > 0 && outCode[0] == 0xEF {
		result.Success = false
	}
	createGas := kakarot.Gas(len(outCode)) * createGasCostPerByte
	if result.GasLeft < createGas {
		result.Success = false
	}
	result.GasLeft -= createGas

	if result.Success {
		r.SetCode(createdAddress, kakarot.Code(outCode))
	} else {
		result.GasLeft = 0
		result.GasRefund = 0
		result.Output = nil
	}
	if err := r.exit(current, result.Success); err != nil {
		return kakarot.CallResult{}, err
	}

	return kakarot.CallResult{
		Output:         result.Output,
		GasLeft:        result.GasLeft,
		GasRefund:      result.GasRefund,
		Success:        result.Success,
		CreatedAddress: createdAddress,
	}, nil
}

// enter pushes a new frame and opens its nested state scopes.
func (r *runtime) enter(kind kakarot.CallKind) *frame {
	static := kind == kakarot.StaticCall
	if len(r.frames) > 0 {
		static = static || r.frames[len(r.frames)-1].static
	}
	f := &frame{
		kind:         kind,
		handle:       r.Snapshot(),
		accessMark:   r.access.Snapshot(),
		logMark:      len(r.logs),
		snapshotMark: len(r.snapshots),
		nativeCalls:  r.nativeCalls,
		static:       static,
		depth:        len(r.frames),
	}
	r.frames = append(r.frames, f)
	return f
}

// exit pops the top frame, merging its effects into the parent on success
// and restoring the state at frame entry otherwise.
func (r *runtime) exit(f *frame, success bool) error {
	if len(r.frames) == 0 || r.frames[len(r.frames)-1] != f {
		return fmt.Errorf("frame at depth %d is not on top of the call stack", f.depth)
	}
	r.frames = r.frames[:len(r.frames)-1]
	// snapshots taken inside the frame cannot be restored once it is gone
	r.snapshots = r.snapshots[:f.snapshotMark]
	if success {
		return r.Commit(f.handle)
	}
	r.access.Revert(f.accessMark)
	r.logs = r.logs[:f.logMark]
	if r.nativeCalls > f.nativeCalls {
		r.poison(f.depth)
	}
	return r.Revert(f.handle)
}

func (r *runtime) poison(depth int) {
	if !r.poisoned {
		log.Warn("Guest frame failed after native calls", "depth", depth, "nativeCalls", r.nativeCalls)
	}
	r.poisoned = true
}

// --- kakarot.TransactionContext ---

func (r *runtime) CreateSnapshot() kakarot.Snapshot {
	r.snapshots = append(r.snapshots, snapshot{
		handle:      r.Snapshot(),
		accessMark:  r.access.Snapshot(),
		logMark:     len(r.logs),
		nativeCalls: r.nativeCalls,
	})
	return kakarot.Snapshot(len(r.snapshots) - 1)
}

func (r *runtime) RestoreSnapshot(id kakarot.Snapshot) {
	if int(id) < 0 || int(id) >= len(r.snapshots) {
		return
	}
	s := r.snapshots[id]
	r.snapshots = r.snapshots[:id]
	if err := r.Revert(s.handle); err != nil {
		log.Error("Failed to restore snapshot", "snapshot", id, "err", err)
		return
	}
	r.access.Revert(s.accessMark)
	r.logs = r.logs[:s.logMark]
	if r.nativeCalls > s.nativeCalls {
		r.poison(len(r.frames))
	}
}

func (r *runtime) AccessAccount(address kakarot.Address) kakarot.AccessStatus {
	return r.access.TouchAddress(address)
}

func (r *runtime) AccessStorage(address kakarot.Address, key kakarot.Key) kakarot.AccessStatus {
	return r.access.TouchSlot(address, key)
}

func (r *runtime) IsAddressInAccessList(address kakarot.Address) bool {
	return r.access.IsAddressWarm(address)
}

func (r *runtime) IsSlotInAccessList(address kakarot.Address, key kakarot.Key) (addressPresent, slotPresent bool) {
	return r.access.IsAddressWarm(address), r.access.IsSlotWarm(address, key)
}

func (r *runtime) EmitLog(entry kakarot.Log) {
	r.logs = append(r.logs, entry)
}

func (r *runtime) GetLogs() []kakarot.Log {
	return append([]kakarot.Log(nil), r.logs...)
}

// guestCaller runs guest calls requested by native contracts as nested
// frames of the precompile frame that triggered them. Gas is drawn from the
// precompile's meter.
type guestCaller struct {
	runtime *runtime
	gas     *GasMeter
}

func (g *guestCaller) CallGuest(kind kakarot.CallKind, parameters kakarot.CallParameters) (kakarot.CallResult, error) {
	budget := g.gas.Remaining()
	if parameters.Gas > 0 {
		budget = min(parameters.Gas, budget)
	}
	if err := g.gas.Charge(budget); err != nil {
		return kakarot.CallResult{}, err
	}
	parameters.Gas = budget
	result, err := g.runtime.Call(kind, parameters)
	g.gas.Return(result.GasLeft)
	return result, err
}

func isRevert(result kakarot.Result, err error) bool {
	if err == nil && !result.Success && (result.GasLeft > 0 || len(result.Output) > 0) {
		return true
	}
	return false
}

func hashCode(code kakarot.Code) kakarot.Hash {
	return kakarot.Hash(crypto.Keccak256(code))
}

func createAddress(
	kind kakarot.CallKind,
	sender kakarot.Address,
	nonce uint64,
	salt kakarot.Hash,
	initHash kakarot.Hash,
) kakarot.Address {
	if kind == kakarot.Create {
		return kakarot.Address(crypto.CreateAddress(common.Address(sender), nonce))
	}
	return kakarot.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initHash[:]))
}

func canTransferValue(
	context kakarot.WorldState,
	value kakarot.Value,
	sender kakarot.Address,
	recipient *kakarot.Address,
) bool {
	if value == (kakarot.Value{}) {
		return true
	}

	senderBalance := context.GetBalance(sender)
	if senderBalance.Cmp(value) < 0 {
		return false
	}

	if recipient == nil || sender == *recipient {
		return true
	}

	receiverBalance := context.GetBalance(*recipient)
	updatedBalance := kakarot.Add(receiverBalance, value)
	if updatedBalance.Cmp(receiverBalance) < 0 || updatedBalance.Cmp(value) < 0 {
		return false
	}

	return true
}

func incrementNonce(context kakarot.WorldState, address kakarot.Address) error {
	nonce := context.GetNonce(address)
	if nonce+1 < nonce {
		return fmt.Errorf("nonce overflow")
	}
	context.SetNonce(address, nonce+1)
	return nil
}

func transferValue(
	context kakarot.WorldState,
	value kakarot.Value,
	sender kakarot.Address,
	recipient kakarot.Address,
) {
	if value == (kakarot.Value{}) {
		return
	}
	if sender == recipient {
		return
	}

	senderBalance := context.GetBalance(sender)
	receiverBalance := context.GetBalance(recipient)
	updatedBalance := kakarot.Add(receiverBalance, value)

	senderBalance = kakarot.Sub(senderBalance, value)
	context.SetBalance(sender, senderBalance)
	context.SetBalance(recipient, updatedBalance)
}
