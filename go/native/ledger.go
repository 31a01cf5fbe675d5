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
	"slices"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/log"
)

// Contract is a native contract hosted by the Ledger.
type Contract interface {
	Execute(ctx *Context, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error)
}

// Message is a message queued for the settlement layer.
type Message struct {
	From    kakarot.Address
	To      kakarot.Felt
	Payload []kakarot.Felt
}

// Ledger is an in-memory native ledger. Modifications made through calls,
// deployments and messages while a snapshot is open are journaled and can be
// rolled back until the outermost snapshot is committed. It is not safe for
// concurrent use.
type Ledger struct {
	contracts map[kakarot.NativeAddress]Contract
	owners    map[kakarot.NativeAddress]kakarot.Address
	storage   map[kakarot.NativeAddress]map[kakarot.Felt]kakarot.Felt
	messages  []Message
	undo      []func()
	open      int
}

func NewLedger() *Ledger {
	return &Ledger{
		contracts: map[kakarot.NativeAddress]Contract{},
		owners:    map[kakarot.NativeAddress]kakarot.Address{},
		storage:   map[kakarot.NativeAddress]map[kakarot.Felt]kakarot.Felt{},
	}
}

// Deploy installs a contract at the given address. Deployments made this way
// are part of the ledger's genesis and not subject to rollbacks.
func (l *Ledger) Deploy(address kakarot.NativeAddress, contract Contract) {
	l.contracts[address] = contract
}

func (l *Ledger) IsDeployed(address kakarot.NativeAddress) bool {
	_, found := l.contracts[address]
	return found
}

func (l *Ledger) DeployAccount(guest kakarot.Address, address kakarot.NativeAddress) error {
	if l.IsDeployed(address) {
		return nil
	}
	l.contracts[address] = account{}
	l.owners[address] = guest
	l.journal(func() {
		delete(l.contracts, address)
		delete(l.owners, address)
	})
	return nil
}

// GuestAddressOf returns the guest address controlling a deployed native
// account.
func (l *Ledger) GuestAddressOf(address kakarot.NativeAddress) (kakarot.Address, bool) {
	guest, found := l.owners[address]
	return guest, found
}

func (l *Ledger) Call(call kakarot.NativeCall) ([]kakarot.Felt, error) {
	contract, found := l.contracts[call.Target]
	if !found {
		return nil, fmt.Errorf("%w: %v", kakarot.ErrUnknownNativeContract, call.Target)
	}
	mark := l.Snapshot()
	ctx := &Context{
		ledger: l,
		caller: call.Caller,
		self:   call.Target,
		guest:  call.Guest,
	}
	res, err := contract.Execute(ctx, call.Selector, slices.Clone(call.Calldata))
	if err != nil {
		l.revertTo(int(mark))
		l.release()
		return nil, err
	}
	l.release()
	return res, nil
}

func (l *Ledger) SendMessageToL1(from kakarot.Address, to kakarot.Felt, payload []kakarot.Felt) error {
	l.messages = append(l.messages, Message{From: from, To: to, Payload: slices.Clone(payload)})
	l.journal(func() { l.messages = l.messages[:len(l.messages)-1] })
	return nil
}

// Messages returns the queued messages to L1.
func (l *Ledger) Messages() []Message {
	return slices.Clone(l.messages)
}

// GetStorage reads a storage slot of a contract.
func (l *Ledger) GetStorage(contract kakarot.NativeAddress, key kakarot.Felt) kakarot.Felt {
	return l.storage[contract][key]
}

func (l *Ledger) setStorage(contract kakarot.NativeAddress, key, value kakarot.Felt) {
	slots, found := l.storage[contract]
	if !found {
		slots = map[kakarot.Felt]kakarot.Felt{}
		l.storage[contract] = slots
	}
	previous, existed := slots[key]
	slots[key] = value
	l.journal(func() {
		if existed {
			slots[key] = previous
		} else {
			delete(slots, key)
		}
	})
}

func (l *Ledger) Snapshot() kakarot.NativeSnapshot {
	l.open++
	return kakarot.NativeSnapshot(len(l.undo))
}

func (l *Ledger) Rollback(snapshot kakarot.NativeSnapshot) {
	if reverted := len(l.undo) - int(snapshot); reverted > 0 {
		log.Info("Rolling back native state", "changes", reverted)
	}
	l.revertTo(int(snapshot))
	l.release()
}

func (l *Ledger) Commit(snapshot kakarot.NativeSnapshot) {
	l.release()
}

// journal records an undo action. Without an open snapshot modifications are
// final and nothing is recorded.
func (l *Ledger) journal(undo func()) {
	if l.open > 0 {
		l.undo = append(l.undo, undo)
	}
}

func (l *Ledger) release() {
	if l.open > 0 {
		l.open--
	}
	if l.open == 0 {
		l.undo = nil
	}
}

func (l *Ledger) revertTo(mark int) {
	for len(l.undo) > mark {
		l.undo[len(l.undo)-1]()
		l.undo = l.undo[:len(l.undo)-1]
	}
}

// Context is handed to native contracts during execution.
type Context struct {
	ledger *Ledger
	caller kakarot.NativeAddress
	self   kakarot.NativeAddress
	guest  kakarot.GuestCaller
}

func (c *Context) Caller() kakarot.NativeAddress {
	return c.caller
}

func (c *Context) Self() kakarot.NativeAddress {
	return c.self
}

// GuestAddressOf resolves the guest address controlling a native account.
func (c *Context) GuestAddressOf(address kakarot.NativeAddress) (kakarot.Address, bool) {
	return c.ledger.GuestAddressOf(address)
}

func (c *Context) Load(key kakarot.Felt) kakarot.Felt {
	return c.ledger.GetStorage(c.self, key)
}

func (c *Context) Store(key, value kakarot.Felt) {
	c.ledger.setStorage(c.self, key, value)
}

// Call performs a nested native call with the current contract as caller.
func (c *Context) Call(target kakarot.NativeAddress, selector kakarot.Felt, calldata []kakarot.Felt) ([]kakarot.Felt, error) {
	res, err := c.ledger.Call(kakarot.NativeCall{
		Caller:   c.self,
		Target:   target,
		Selector: selector,
		Calldata: calldata,
		Guest:    c.guest,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kakarot.ErrNativeLowLevelCall, err)
	}
	return res, nil
}

// CallGuest runs a guest call within the guest transaction that triggered the
// current native call.
func (c *Context) CallGuest(kind kakarot.CallKind, parameters kakarot.CallParameters) (kakarot.CallResult, error) {
	if c.guest == nil {
		return kakarot.CallResult{}, fmt.Errorf("%w: no guest context", kakarot.ErrGuestCallFailed)
	}
	res, err := c.guest.CallGuest(kind, parameters)
	if err != nil {
		return kakarot.CallResult{}, err
	}
	if !res.Success {
		return res, fmt.Errorf("%w: %x", kakarot.ErrGuestCallFailed, res.Output)
	}
	return res, nil
}

func unknownSelector(selector kakarot.Felt) error {
	return fmt.Errorf("%w: %v", kakarot.ErrUnknownSelector, selector)
}
