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
	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

const defaultMapperCacheSize = 1 << 12

// AddressMapper derives the native account address controlled by a guest
// address. The address is the keccak256 hash of a deployer felt and the guest
// address, reduced into the native field. Results are cached.
type AddressMapper struct {
	deployer kakarot.NativeAddress
	cache    *lru.Cache[kakarot.Address, kakarot.NativeAddress]
}

func NewAddressMapper(deployer kakarot.NativeAddress) *AddressMapper {
	return NewAddressMapperWithCacheSize(deployer, defaultMapperCacheSize)
}

func NewAddressMapperWithCacheSize(deployer kakarot.NativeAddress, size int) *AddressMapper {
	cache, err := lru.New[kakarot.Address, kakarot.NativeAddress](size)
	if err != nil {
		// only fails for non-positive sizes
		panic(err)
	}
	return &AddressMapper{deployer: deployer, cache: cache}
}

func (m *AddressMapper) NativeAddressOf(address kakarot.Address) kakarot.NativeAddress {
	if res, found := m.cache.Get(address); found {
		return res
	}
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(m.deployer[:])
	hasher.Write(address[:])
	var word kakarot.Word
	hasher.Sum(word[:0])
	res := kakarot.NativeAddress(kakarot.FeltFromUint256(new(uint256.Int).SetBytes32(word[:])))
	m.cache.Add(address, res)
	return res
}
