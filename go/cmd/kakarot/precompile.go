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
	"bytes"
	"fmt"

	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/urfave/cli/v2"
)

var PrecompileCmd = addCommonFlags(cli.Command{
	Action:    doPrecompile,
	Name:      "precompile",
	Usage:     "Run a precompile against a demo native ledger",
	ArgsUsage: "<address> [<input hex>]",
	Flags: []cli.Flag{
		callerFlag,
		messageAddressFlag,
		authorizeFlag,
	},
})

func doPrecompile(context *cli.Context) error {
	if context.Args().Len() < 1 || context.Args().Len() > 2 {
		return fmt.Errorf("expected a precompile address and an optional input")
	}
	address, err := parseAddress(context.Args().Get(0))
	if err != nil {
		return err
	}
	input, err := parseData(context.Args().Get(1))
	if err != nil {
		return err
	}

	config, err := configFlag.Fetch(context)
	if err != nil {
		return err
	}
	caller, _, err := callerFlag.Fetch(context)
	if err != nil {
		return err
	}
	messageAddress, set, err := messageAddressFlag.Fetch(context)
	if err != nil {
		return err
	}
	if !set {
		messageAddress = caller
	}
	authorized, err := authorizeFlag.Fetch(context)
	if err != nil {
		return err
	}

	env, ledger, err := newDemoEnvironment(config, authorized)
	if err != nil {
		return err
	}
	registry := kprocessor.NewRegistry(config, env)
	output, reverted, gasUsed := registry.RunPrecompile(address, input, caller, messageAddress)

	out := context.App.Writer
	fmt.Fprintf(out, "family:   %v\n", registry.Classify(address))
	fmt.Fprintf(out, "output:   0x%x\n", output)
	if bytes.HasPrefix(output, []byte("Kakarot: ")) {
		fmt.Fprintf(out, "message:  %s\n", output)
	}
	fmt.Fprintf(out, "reverted: %t\n", reverted)
	fmt.Fprintf(out, "gas used: %d\n", gasUsed)
	for _, message := range ledger.Messages() {
		fmt.Fprintf(out, "to L1:    from %v to %v payload %v\n", message.From, message.To, message.Payload)
	}
	return nil
}
