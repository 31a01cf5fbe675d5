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

import "fmt"

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package kakarot

// WorldState is the guest view of the accounts kept by the host ledger. Each
// account has a balance, a nonce, optional code and storage. Missing
// accounts read as empty.
type WorldState interface {
	AccountExists(Address) bool

	GetBalance(Address) Value
	SetBalance(Address, Value)

	GetNonce(Address) uint64
	SetNonce(Address, uint64)

	GetCode(Address) Code
	GetCodeHash(Address) Hash
	GetCodeSize(Address) int
	SetCode(Address, Code)

	GetStorage(Address, Key) Word
	SetStorage(Address, Key, Word) StorageStatus

	// SelfDestruct moves the balance of addr to beneficiary, creating the
	// beneficiary if needed, and schedules addr for deletion. It reports
	// whether addr was destructed for the first time in this transaction.
	SelfDestruct(addr Address, beneficiary Address) bool
}

// StorageStatus describes how a storage update relates to the value the
// slot had at the start of the transaction. Interpreters price SSTORE with
// it. In the comments X, Y and Z are distinct non-zero values:
//
//	<original> -> <current> -> <new>
type StorageStatus int

const (
	StorageAssigned         StorageStatus = iota
	StorageAdded                          // 0 -> 0 -> Z
	StorageDeleted                        // X -> X -> 0
	StorageModified                       // X -> X -> Z
	StorageDeletedAdded                   // X -> 0 -> Z
	StorageModifiedDeleted                // X -> Y -> 0
	StorageDeletedRestored                // X -> 0 -> X
	StorageAddedDeleted                   // 0 -> Y -> 0
	StorageModifiedRestored               // X -> Y -> X
)

var storageStatusNames = [...]string{
	StorageAssigned:         "StorageAssigned",
	StorageAdded:            "StorageAdded",
	StorageDeleted:          "StorageDeleted",
	StorageModified:         "StorageModified",
	StorageDeletedAdded:     "StorageDeletedAdded",
	StorageModifiedDeleted:  "StorageModifiedDeleted",
	StorageDeletedRestored:  "StorageDeletedRestored",
	StorageAddedDeleted:     "StorageAddedDeleted",
	StorageModifiedRestored: "StorageModifiedRestored",
}

func (s StorageStatus) String() string {
	if s >= 0 && int(s) < len(storageStatusNames) {
		return storageStatusNames[s]
	}
	return fmt.Sprintf("StorageStatus(%d)", int(s))
}

// GetStorageStatus classifies an update of a slot holding current, whose
// committed value is original, to new.
func GetStorageStatus(original, current, new Word) StorageStatus {
	zero := Word{}
	switch {
	case current == new:
		return StorageAssigned
	case original == current: // first write in this transaction
		switch {
		case original == zero:
			return StorageAdded
		case new == zero:
			return StorageDeleted
		default:
			return StorageModified
		}
	case original == zero: // slot created earlier in this transaction
		if new == zero {
			return StorageAddedDeleted
		}
	case current == zero: // slot cleared earlier in this transaction
		if new == original {
			return StorageDeletedRestored
		}
		return StorageDeletedAdded
	case new == zero:
		return StorageModifiedDeleted
	case new == original:
		return StorageModifiedRestored
	}
	return StorageAssigned
}
