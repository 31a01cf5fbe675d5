// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package native provides an in-memory implementation of the host ledger's
// contract environment. It hosts native contracts written in Go, deploys the
// native accounts of guest addresses, queues messages to L1 and supports
// rolling back all effects of a guest transaction.
package native

import (
	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"golang.org/x/crypto/sha3"
)

// Selector computes the entry point selector of a native function name: the
// keccak256 hash of the name truncated to 250 bits.
func Selector(name string) kakarot.Felt {
	return truncatedKeccak([]byte(name))
}

// StorageKey computes the storage address of a storage variable. Mapping
// variables are addressed by additionally hashing in the mapping keys.
func StorageKey(name string, keys ...kakarot.Felt) kakarot.Felt {
	data := []byte(name)
	for _, key := range keys {
		data = append(data, key[:]...)
	}
	return truncatedKeccak(data)
}

// ShortString encodes an ASCII string of up to 31 characters as a felt.
func ShortString(s string) kakarot.Felt {
	var res kakarot.Felt
	if len(s) > 31 {
		s = s[:31]
	}
	copy(res[32-len(s):], s)
	return res
}

func truncatedKeccak(data []byte) kakarot.Felt {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	var res kakarot.Felt
	hasher.Sum(res[:0])
	res[0] &= 0x03
	return res
}
