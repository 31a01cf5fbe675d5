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
	"golang.org/x/exp/constraints"
)

// Family is the precompile family an address belongs to.
type Family int

const (
	NotPrecompile Family = iota
	EthereumStandard
	Rollup
	NativeBridge
)

func (f Family) String() string {
	switch f {
	case NotPrecompile:
		return "NotPrecompile"
	case EthereumStandard:
		return "EthereumStandard"
	case Rollup:
		return "Rollup"
	case NativeBridge:
		return "NativeBridge"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Classifier maps addresses to precompile families. It is immutable once
// created and safe to share.
type Classifier struct {
	ethereum    map[uint64]bool // value is true if the precompile is implemented
	rollup      map[uint64]struct{}
	bridgeFirst uint64
	bridgeLast  uint64
	tokens      map[kakarot.Address]kakarot.NativeAddress
}

// NewClassifier creates a classifier for the address space of the given
// configuration. The configuration is expected to be valid.
func NewClassifier(config Config) *Classifier {
	c := &Classifier{
		ethereum:    map[uint64]bool{},
		rollup:      map[uint64]struct{}{},
		bridgeFirst: config.NativeBridgeFirst,
		bridgeLast:  config.NativeBridgeLast,
		tokens:      map[kakarot.Address]kakarot.NativeAddress{},
	}
	for _, address := range config.EthereumPrecompiles {
		c.ethereum[address] = true
	}
	for _, address := range config.NotImplementedPrecompiles {
		c.ethereum[address] = false
	}
	for _, address := range config.RollupPrecompiles {
		c.rollup[address] = struct{}{}
	}
	for address, token := range config.DualVMTokens {
		c.tokens[address] = token
	}
	return c
}

// Classify returns the family of the given address. Every address belongs to
// exactly one family.
func (c *Classifier) Classify(address kakarot.Address) Family {
	if _, found := c.tokens[address]; found {
		return NativeBridge
	}
	n, ok := address.Uint64()
	if !ok || n == 0 {
		return NotPrecompile
	}
	if _, found := c.ethereum[n]; found {
		return EthereumStandard
	}
	if _, found := c.rollup[n]; found {
		return Rollup
	}
	if inRange(n, c.bridgeFirst, c.bridgeLast) {
		return NativeBridge
	}
	return NotPrecompile
}

// IsImplemented reports whether an Ethereum standard precompile is backed by
// an implementation.
func (c *Classifier) IsImplemented(address kakarot.Address) bool {
	n, ok := address.Uint64()
	return ok && c.ethereum[n]
}

// DualVMToken returns the native token a whitelisted token address forwards
// to.
func (c *Classifier) DualVMToken(address kakarot.Address) (kakarot.NativeAddress, bool) {
	token, found := c.tokens[address]
	return token, found
}

// Precompiles lists all precompile addresses, to be pre-warmed at the start
// of each transaction.
func (c *Classifier) Precompiles() []kakarot.Address {
	res := make([]kakarot.Address, 0, len(c.ethereum)+len(c.rollup)+len(c.tokens))
	for n := range c.ethereum {
		res = append(res, kakarot.AddressFromUint64(n))
	}
	for n := range c.rollup {
		res = append(res, kakarot.AddressFromUint64(n))
	}
	for n := c.bridgeFirst; n >= c.bridgeFirst && n <= c.bridgeLast; n++ {
		res = append(res, kakarot.AddressFromUint64(n))
	}
	for address := range c.tokens {
		res = append(res, address)
	}
	return res
}

func inRange[T constraints.Integer](value, first, last T) bool {
	return first <= value && value <= last
}
