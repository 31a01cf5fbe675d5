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
	"maps"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/crypto"
)

// InMemory is a host world state kept entirely in memory. It is used by
// tests and the command line tools as the committed state below an
// AccountStore. Empty accounts and zero storage values are equivalent to
// missing entries.
type InMemory map[kakarot.Address]StoredAccount

// StoredAccount is an account record of the in-memory host state.
type StoredAccount struct {
	Balance kakarot.Value
	Nonce   uint64
	Code    kakarot.Code
	Storage Storage
}

// Storage holds the storage slots of a StoredAccount.
type Storage map[kakarot.Key]kakarot.Word

func (s InMemory) AccountExists(address kakarot.Address) bool {
	a := s[address]
	return a.Balance != (kakarot.Value{}) || a.Nonce != 0 || len(a.Code) != 0
}

func (s InMemory) GetBalance(address kakarot.Address) kakarot.Value {
	return s[address].Balance
}

func (s InMemory) SetBalance(address kakarot.Address, value kakarot.Value) {
	a := s[address]
	a.Balance = value
	s[address] = a
}

func (s InMemory) GetNonce(address kakarot.Address) uint64 {
	return s[address].Nonce
}

func (s InMemory) SetNonce(address kakarot.Address, nonce uint64) {
	a := s[address]
	a.Nonce = nonce
	s[address] = a
}

func (s InMemory) GetCode(address kakarot.Address) kakarot.Code {
	return bytes.Clone(s[address].Code)
}

func (s InMemory) GetCodeHash(address kakarot.Address) kakarot.Hash {
	if !s.AccountExists(address) {
		return kakarot.Hash{}
	}
	return kakarot.Hash(crypto.Keccak256Hash(s[address].Code))
}

func (s InMemory) GetCodeSize(address kakarot.Address) int {
	return len(s[address].Code)
}

func (s InMemory) SetCode(address kakarot.Address, code kakarot.Code) {
	a := s[address]
	a.Code = bytes.Clone(code)
	s[address] = a
}

func (s InMemory) GetStorage(address kakarot.Address, key kakarot.Key) kakarot.Word {
	return s[address].Storage[key]
}

func (s InMemory) SetStorage(address kakarot.Address, key kakarot.Key, value kakarot.Word) kakarot.StorageStatus {
	a := s[address]
	if a.Storage == nil {
		a.Storage = Storage{}
		s[address] = a
	}
	current := a.Storage[key]
	a.Storage[key] = value
	return kakarot.GetStorageStatus(current, current, value)
}

func (s InMemory) SelfDestruct(address kakarot.Address, beneficiary kakarot.Address) bool {
	balance := s.GetBalance(address)
	s.SetBalance(beneficiary, kakarot.Add(s.GetBalance(beneficiary), balance))
	delete(s, address)
	return true
}

func (s InMemory) DeleteAccount(address kakarot.Address) {
	delete(s, address)
}

func (s InMemory) Equal(other InMemory) bool {
	return equalMapsIgnoringZero(s, other, func(a, b StoredAccount) bool {
		return a.Equal(&b)
	})
}

func (s InMemory) Clone() InMemory {
	if s == nil {
		return nil
	}
	res := make(InMemory, len(s))
	for k, v := range s {
		res[k] = v.Clone()
	}
	return res
}

func (s InMemory) Diff(other InMemory) []string {
	return diffMaps("", s, other, func(address kakarot.Address, a, b StoredAccount) []string {
		if a.Equal(&b) {
			return nil
		}
		return a.Diff(fmt.Sprintf("%v/", address), &b)
	})
}

func (a *StoredAccount) Equal(other *StoredAccount) bool {
	return a.Balance == other.Balance &&
		a.Nonce == other.Nonce &&
		bytes.Equal(a.Code, other.Code) &&
		a.Storage.Equal(other.Storage)
}

func (a *StoredAccount) Clone() StoredAccount {
	return StoredAccount{
		Balance: a.Balance,
		Nonce:   a.Nonce,
		Code:    bytes.Clone(a.Code),
		Storage: maps.Clone(a.Storage),
	}
}

func (a *StoredAccount) Diff(prefix string, other *StoredAccount) []string {
	var res []string
	if a.Balance != other.Balance {
		res = append(res, fmt.Sprintf("different balance: %v != %v", a.Balance, other.Balance))
	}
	if a.Nonce != other.Nonce {
		res = append(res, fmt.Sprintf("different nonce: %v != %v", a.Nonce, other.Nonce))
	}
	if !bytes.Equal(a.Code, other.Code) {
		res = append(res, fmt.Sprintf("different code: 0x%x != 0x%x", a.Code, other.Code))
	}
	res = append(res, diffMaps("Storage/", a.Storage, other.Storage, func(k kakarot.Key, x, y kakarot.Word) []string {
		if x == y {
			return nil
		}
		return []string{fmt.Sprintf("different value for key %v: %v != %v", k, x, y)}
	})...)
	for i, diff := range res {
		res[i] = prefix + diff
	}
	return res
}

func (s Storage) Equal(other Storage) bool {
	return equalMapsIgnoringZero(s, other, func(a, b kakarot.Word) bool {
		return a == b
	})
}

// equalMapsIgnoringZero compares two maps, ignoring zero-valued entries.
func equalMapsIgnoringZero[K comparable, V any](a, b map[K]V, equal func(V, V) bool) bool {
	for k, v := range a {
		if !equal(v, b[k]) {
			return false
		}
	}
	for k, v := range b {
		if !equal(v, a[k]) {
			return false
		}
	}
	return true
}

// diffMaps compares two maps and returns a list of differences.
func diffMaps[K comparable, V any](prefix string, a, b map[K]V, diff func(K, V, V) []string) []string {
	var diffs []string
	for k, v := range a {
		diffs = append(diffs, diff(k, v, b[k])...)
	}
	for k, v := range b {
		if _, overlap := a[k]; !overlap {
			diffs = append(diffs, diff(k, a[k], v)...)
		}
	}
	for i, diff := range diffs {
		diffs[i] = prefix + diff
	}
	return diffs
}
