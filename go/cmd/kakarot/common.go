// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.


package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/holiman/uint256"
)

// Native contracts hosted by the demo ledger of the command line tools.
var (
	demoCounter   = kakarot.NativeAddress(kakarot.FeltFromUint64(0xc0de))
	demoForwarder = kakarot.NativeAddress(kakarot.FeltFromUint64(0xf0))
	demoMinter    = kakarot.NativeAddress(kakarot.FeltFromUint64(0x6d696e74))
	demoOwner     = kakarot.Address{0x0e}
)

// newDemoEnvironment creates a native environment with a counter, a
// forwarder, and one token per configured dual VM token.
func newDemoEnvironment(config kprocessor.Config, authorized []kakarot.Address) (kprocessor.NativeEnvironment, *native.Ledger, error) {
	ledger := native.NewLedger()
	ledger.Deploy(demoCounter, native.Counter{})
	ledger.Deploy(demoForwarder, native.Forwarder{})
	for _, token := range config.DualVMTokens {
		ledger.Deploy(token, native.Token{Name: "Demo Token", Symbol: "DEMO", Decimals: 18, Minter: demoMinter})
	}

	callers := native.NewAuthorizedCallers(demoOwner)
	for _, caller := range authorized {
		if err := callers.SetAuthorized(demoOwner, caller, true); err != nil {
			return kprocessor.NativeEnvironment{}, nil, err
		}
	}
	return kprocessor.NativeEnvironment{
		Ledger:     ledger,
		Mapper:     native.NewAddressMapper(config.NativeAccountDeployer),
		Authorized: callers,
	}, ledger, nil
}

// parseAddress accepts hex addresses with a 0x prefix and decimal numbers.
// Short hex addresses are left padded.
func parseAddress(value string) (kakarot.Address, error) {
	var res kakarot.Address
	if digits, found := strings.CutPrefix(value, "0x"); found {
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		data, err := hex.DecodeString(digits)
		if err != nil {
			return res, fmt.Errorf("invalid address %q: %w", value, err)
		}
		if len(data) > len(res) {
			return res, fmt.Errorf("invalid address %q: too long", value)
		}
		copy(res[len(res)-len(data):], data)
		return res, nil
	}
	n, err := uint256.FromDecimal(value)
	if err != nil {
		return res, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if n.BitLen() > 160 {
		return res, fmt.Errorf("invalid address %q: too large", value)
	}
	return kakarot.Address(n.Bytes20()), nil
}

// parseData decodes hex encoded input, the 0x prefix is optional.
func parseData(value string) (kakarot.Data, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid input %q: %w", value, err)
	}
	return data, nil
}
