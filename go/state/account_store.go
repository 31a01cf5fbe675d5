// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/crypto"
)

const ErrUnknownSnapshot = kakarot.ConstError("unknown or already resolved snapshot")

// Account is the per-transaction view of a guest account record.
type Account struct {
	Nonce   uint64
	Balance kakarot.Value
	Code    kakarot.Code
}

// IsAlive reports whether the account has been written in a way that makes
// it exist: non-zero nonce, non-empty code or a non-zero balance.
func (a Account) IsAlive() bool {
	return a.Nonce != 0 || len(a.Code) != 0 || a.Balance != (kakarot.Value{})
}

func (a Account) Equal(other Account) bool {
	return a.Nonce == other.Nonce && a.Balance == other.Balance && bytes.Equal(a.Code, other.Code)
}

func (a Account) clone() Account {
	if a.Code != nil {
		a.Code = bytes.Clone(a.Code)
	}
	return a
}

// Handle identifies an open snapshot of an AccountStore.
type Handle int

type slotState uint8

const (
	absent slotState = iota
	present
)

type accountSlot struct {
	state          slotState
	account        Account
	created        bool
	selfDestructed bool
}

type storageSlot struct {
	state    slotState
	original kakarot.Word
	current  kakarot.Word
}

type slotKey struct {
	address kakarot.Address
	key     kakarot.Key
}

type entryKind uint8

const (
	accountEntry entryKind = iota
	storageEntry
	transientEntry
)

type undoEntry struct {
	kind    entryKind
	index   int
	account accountSlot
	storage storageSlot
	slot    slotKey
	word    kakarot.Word
}

// AccountStore is the mutable projection of the guest accounts touched by a
// single transaction. Accounts and storage slots live in arenas indexed by
// address and (address, key); an index always refers to a valid slot, which
// may hold the absent sentinel. Reads of absent or unindexed entries fall
// through to the backing state, which is never modified before Flush.
//
// Modifications are recorded in an undo journal. Snapshot opens a nested
// scope that is later either reverted or committed into its parent scope.
type AccountStore struct {
	backing kakarot.WorldState

	accountIndex map[kakarot.Address]int
	accounts     []accountSlot

	storageIndex map[slotKey]int
	storage      []storageSlot

	transient map[slotKey]kakarot.Word

	journal []undoEntry
	open    []int // journal length at each open snapshot
}

// NewAccountStore creates an empty store on top of the given state. The
// backing state may be nil, in which case unseen accounts are empty.
func NewAccountStore(backing kakarot.WorldState) *AccountStore {
	return &AccountStore{
		backing:      backing,
		accountIndex: map[kakarot.Address]int{},
		storageIndex: map[slotKey]int{},
		transient:    map[slotKey]kakarot.Word{},
	}
}

// Get returns the current view of the account. Unseen accounts are loaded
// from the backing state or are empty and not alive.
func (s *AccountStore) Get(address kakarot.Address) Account {
	if i, found := s.accountIndex[address]; found && s.accounts[i].state == present {
		return s.accounts[i].account
	}
	return s.load(address)
}

// Set replaces the account record.
func (s *AccountStore) Set(address kakarot.Address, account Account) {
	s.update(address, func(slot *accountSlot) {
		slot.account = account
	})
}

func (s *AccountStore) load(address kakarot.Address) Account {
	if s.backing == nil {
		return Account{}
	}
	return Account{
		Nonce:   s.backing.GetNonce(address),
		Balance: s.backing.GetBalance(address),
		Code:    s.backing.GetCode(address),
	}
}

func (s *AccountStore) update(address kakarot.Address, change func(*accountSlot)) {
	i, found := s.accountIndex[address]
	if !found {
		i = len(s.accounts)
		s.accounts = append(s.accounts, accountSlot{})
		s.accountIndex[address] = i
	}
	previous := s.accounts[i]
	s.journal = append(s.journal, undoEntry{kind: accountEntry, index: i, account: previous})
	slot := &s.accounts[i]
	if slot.state == absent {
		slot.state = present
		slot.account = s.load(address)
	}
	change(slot)
}

// Snapshot opens a new nested scope and returns its handle.
func (s *AccountStore) Snapshot() Handle {
	s.open = append(s.open, len(s.journal))
	return Handle(len(s.open) - 1)
}

// Revert rolls back every modification made since the snapshot was taken.
// Snapshots opened after the given one are resolved as well.
func (s *AccountStore) Revert(handle Handle) error {
	if int(handle) < 0 || int(handle) >= len(s.open) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, handle)
	}
	mark := s.open[handle]
	for i := len(s.journal) - 1; i >= mark; i-- {
		s.undo(s.journal[i])
	}
	s.journal = s.journal[:mark]
	s.open = s.open[:handle]
	return nil
}

// Commit closes the snapshot, merging its modifications into the enclosing
// scope. Snapshots opened after the given one are committed as well.
func (s *AccountStore) Commit(handle Handle) error {
	if int(handle) < 0 || int(handle) >= len(s.open) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, handle)
	}
	s.open = s.open[:handle]
	if len(s.open) == 0 {
		s.journal = s.journal[:0]
	}
	return nil
}

func (s *AccountStore) undo(entry undoEntry) {
	switch entry.kind {
	case accountEntry:
		s.accounts[entry.index] = entry.account
	case storageEntry:
		s.storage[entry.index] = entry.storage
	case transientEntry:
		s.transient[entry.slot] = entry.word
	}
}

// Copy creates an independent deep copy of the store, including absent
// slots, the journal and open snapshots. No mutable state is shared.
func (s *AccountStore) Copy() *AccountStore {
	res := &AccountStore{
		backing:      s.backing,
		accountIndex: make(map[kakarot.Address]int, len(s.accountIndex)),
		accounts:     make([]accountSlot, len(s.accounts)),
		storageIndex: make(map[slotKey]int, len(s.storageIndex)),
		storage:      make([]storageSlot, len(s.storage)),
		transient:    make(map[slotKey]kakarot.Word, len(s.transient)),
		journal:      make([]undoEntry, len(s.journal)),
		open:         make([]int, len(s.open)),
	}
	for k, v := range s.accountIndex {
		res.accountIndex[k] = v
	}
	for i, slot := range s.accounts {
		slot.account = slot.account.clone()
		res.accounts[i] = slot
	}
	for k, v := range s.storageIndex {
		res.storageIndex[k] = v
	}
	copy(res.storage, s.storage)
	for k, v := range s.transient {
		res.transient[k] = v
	}
	for i, entry := range s.journal {
		entry.account.account = entry.account.account.clone()
		res.journal[i] = entry
	}
	copy(res.open, s.open)
	return res
}

// Touched lists the accounts currently holding a record in the store, in
// the order they were first modified.
func (s *AccountStore) Touched() []kakarot.Address {
	addresses := make([]kakarot.Address, len(s.accounts))
	for address, i := range s.accountIndex {
		addresses[i] = address
	}
	res := make([]kakarot.Address, 0, len(addresses))
	for i, address := range addresses {
		if s.accounts[i].state == present {
			res = append(res, address)
		}
	}
	return res
}

// AccountDeleter is implemented by states that can remove accounts entirely,
// including their storage.
type AccountDeleter interface {
	DeleteAccount(kakarot.Address)
}

// Flush writes all present records into the target state. Accounts created
// and self-destructed within the transaction are deleted.
func (s *AccountStore) Flush(target kakarot.WorldState) {
	addresses := make([]kakarot.Address, len(s.accounts))
	for address, i := range s.accountIndex {
		addresses[i] = address
	}
	deleted := map[kakarot.Address]bool{}
	for i, slot := range s.accounts {
		if slot.state != present {
			continue
		}
		address := addresses[i]
		if slot.created && slot.selfDestructed {
			deleted[address] = true
			if deleter, ok := target.(AccountDeleter); ok {
				deleter.DeleteAccount(address)
			} else {
				target.SetNonce(address, 0)
				target.SetBalance(address, kakarot.Value{})
				target.SetCode(address, nil)
			}
			continue
		}
		target.SetNonce(address, slot.account.Nonce)
		target.SetBalance(address, slot.account.Balance)
		target.SetCode(address, slot.account.Code)
	}
	keys := make([]slotKey, len(s.storage))
	for key, i := range s.storageIndex {
		keys[i] = key
	}
	for i, slot := range s.storage {
		key := keys[i]
		if slot.state != present || deleted[key.address] {
			continue
		}
		if slot.current != slot.original {
			target.SetStorage(key.address, key.key, slot.current)
		}
	}
}

// --- kakarot.WorldState ---

func (s *AccountStore) AccountExists(address kakarot.Address) bool {
	return s.Get(address).IsAlive()
}

func (s *AccountStore) GetBalance(address kakarot.Address) kakarot.Value {
	return s.Get(address).Balance
}

func (s *AccountStore) SetBalance(address kakarot.Address, value kakarot.Value) {
	s.update(address, func(slot *accountSlot) {
		slot.account.Balance = value
	})
}

func (s *AccountStore) GetNonce(address kakarot.Address) uint64 {
	return s.Get(address).Nonce
}

func (s *AccountStore) SetNonce(address kakarot.Address, nonce uint64) {
	s.update(address, func(slot *accountSlot) {
		slot.account.Nonce = nonce
	})
}

func (s *AccountStore) GetCode(address kakarot.Address) kakarot.Code {
	return s.Get(address).Code
}

func (s *AccountStore) GetCodeHash(address kakarot.Address) kakarot.Hash {
	account := s.Get(address)
	if !account.IsAlive() {
		return kakarot.Hash{}
	}
	return kakarot.Hash(crypto.Keccak256Hash(account.Code))
}

func (s *AccountStore) GetCodeSize(address kakarot.Address) int {
	return len(s.Get(address).Code)
}

func (s *AccountStore) SetCode(address kakarot.Address, code kakarot.Code) {
	code = bytes.Clone(code)
	s.update(address, func(slot *accountSlot) {
		slot.account.Code = code
	})
}

func (s *AccountStore) GetStorage(address kakarot.Address, key kakarot.Key) kakarot.Word {
	if i, found := s.storageIndex[slotKey{address, key}]; found && s.storage[i].state == present {
		return s.storage[i].current
	}
	return s.GetCommittedStorage(address, key)
}

func (s *AccountStore) SetStorage(address kakarot.Address, key kakarot.Key, value kakarot.Word) kakarot.StorageStatus {
	k := slotKey{address, key}
	i, found := s.storageIndex[k]
	if !found {
		i = len(s.storage)
		s.storage = append(s.storage, storageSlot{})
		s.storageIndex[k] = i
	}
	previous := s.storage[i]
	s.journal = append(s.journal, undoEntry{kind: storageEntry, index: i, storage: previous})
	slot := &s.storage[i]
	if slot.state == absent {
		committed := s.committedStorage(address, key)
		*slot = storageSlot{state: present, original: committed, current: committed}
	}
	status := kakarot.GetStorageStatus(slot.original, slot.current, value)
	slot.current = value
	return status
}

// GetCommittedStorage returns the value of the slot at the beginning of the
// transaction.
func (s *AccountStore) GetCommittedStorage(address kakarot.Address, key kakarot.Key) kakarot.Word {
	if i, found := s.storageIndex[slotKey{address, key}]; found && s.storage[i].state == present {
		return s.storage[i].original
	}
	return s.committedStorage(address, key)
}

func (s *AccountStore) committedStorage(address kakarot.Address, key kakarot.Key) kakarot.Word {
	if s.backing == nil {
		return kakarot.Word{}
	}
	return s.backing.GetStorage(address, key)
}

// SelfDestruct moves the balance of the account to the beneficiary. Only
// accounts created in the same transaction are removed at Flush.
func (s *AccountStore) SelfDestruct(address kakarot.Address, beneficiary kakarot.Address) bool {
	balance := s.GetBalance(address)
	first := true
	s.update(address, func(slot *accountSlot) {
		first = !slot.selfDestructed
		slot.selfDestructed = true
		slot.account.Balance = kakarot.Value{}
	})
	if beneficiary != address || !s.isCreated(address) {
		s.SetBalance(beneficiary, kakarot.Add(s.GetBalance(beneficiary), balance))
	}
	return first
}

func (s *AccountStore) HasSelfDestructed(address kakarot.Address) bool {
	i, found := s.accountIndex[address]
	return found && s.accounts[i].state == present && s.accounts[i].selfDestructed
}

// MarkCreated records that the account was created by the current
// transaction.
func (s *AccountStore) MarkCreated(address kakarot.Address) {
	s.update(address, func(slot *accountSlot) {
		slot.created = true
	})
}

func (s *AccountStore) isCreated(address kakarot.Address) bool {
	i, found := s.accountIndex[address]
	return found && s.accounts[i].state == present && s.accounts[i].created
}

func (s *AccountStore) GetTransientStorage(address kakarot.Address, key kakarot.Key) kakarot.Word {
	return s.transient[slotKey{address, key}]
}

func (s *AccountStore) SetTransientStorage(address kakarot.Address, key kakarot.Key, value kakarot.Word) {
	k := slotKey{address, key}
	s.journal = append(s.journal, undoEntry{kind: transientEntry, slot: k, word: s.transient[k]})
	s.transient[k] = value
}
