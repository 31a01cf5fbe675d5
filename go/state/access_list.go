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
	"github.com/Fantom-foundation/Kakarot/go/kakarot"
)

// AccessListCache tracks the warm addresses and storage slots of a single
// transaction. The first touch of an entry reports a cold access and warms
// the entry. Warming performed after a snapshot is undone when the snapshot
// is reverted.
type AccessListCache struct {
	addresses map[kakarot.Address]struct{}
	slots     map[slotKey]struct{}
	undo      []func()
}

func NewAccessListCache() *AccessListCache {
	return &AccessListCache{
		addresses: map[kakarot.Address]struct{}{},
		slots:     map[slotKey]struct{}{},
	}
}

// TouchAddress warms the address and returns its status before the call.
func (c *AccessListCache) TouchAddress(address kakarot.Address) kakarot.AccessStatus {
	if _, found := c.addresses[address]; found {
		return kakarot.WarmAccess
	}
	c.addresses[address] = struct{}{}
	c.undo = append(c.undo, func() { delete(c.addresses, address) })
	return kakarot.ColdAccess
}

// TouchSlot warms the storage slot and returns its status before the call.
func (c *AccessListCache) TouchSlot(address kakarot.Address, key kakarot.Key) kakarot.AccessStatus {
	k := slotKey{address, key}
	if _, found := c.slots[k]; found {
		return kakarot.WarmAccess
	}
	c.slots[k] = struct{}{}
	c.undo = append(c.undo, func() { delete(c.slots, k) })
	return kakarot.ColdAccess
}

func (c *AccessListCache) IsAddressWarm(address kakarot.Address) bool {
	_, found := c.addresses[address]
	return found
}

func (c *AccessListCache) IsSlotWarm(address kakarot.Address, key kakarot.Key) bool {
	_, found := c.slots[slotKey{address, key}]
	return found
}

// PreWarm marks the given addresses and storage slots as warm. It is free of
// charge and intended for entries warm by definition, such as precompiles.
func (c *AccessListCache) PreWarm(addresses []kakarot.Address, slots []kakarot.AccessTuple) {
	for _, address := range addresses {
		c.TouchAddress(address)
	}
	for _, tuple := range slots {
		for _, key := range tuple.Keys {
			c.TouchSlot(tuple.Address, key)
		}
	}
}

// PreWarmAccessList warms all entries of a declared access list, including the
// listed addresses themselves, and returns the gas to be charged for it.
// Duplicated entries are charged for every occurrence.
func (c *AccessListCache) PreWarmAccessList(list []kakarot.AccessTuple, addressCost, keyCost kakarot.Gas) kakarot.Gas {
	var cost kakarot.Gas
	for _, tuple := range list {
		c.TouchAddress(tuple.Address)
		cost += addressCost
		for _, key := range tuple.Keys {
			c.TouchSlot(tuple.Address, key)
			cost += keyCost
		}
	}
	return cost
}

// Snapshot returns a marker to which the warm sets can be reverted.
func (c *AccessListCache) Snapshot() int {
	return len(c.undo)
}

// Revert restores the warm sets to the state at the given snapshot.
func (c *AccessListCache) Revert(snapshot int) {
	for len(c.undo) > snapshot {
		c.undo[len(c.undo)-1]()
		c.undo = c.undo[:len(c.undo)-1]
	}
}
