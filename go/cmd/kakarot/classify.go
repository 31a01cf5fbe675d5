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
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/urfave/cli/v2"
)

var ClassifyCmd = addCommonFlags(cli.Command{
	Action:    doClassify,
	Name:      "classify",
	Usage:     "Print the precompile family of addresses, or list all precompiles",
	ArgsUsage: "[<address>...]",
})

func doClassify(context *cli.Context) error {
	config, err := configFlag.Fetch(context)
	if err != nil {
		return err
	}
	classifier := kprocessor.NewClassifier(config)

	addresses := classifier.Precompiles()
	if context.Args().Present() {
		addresses = addresses[:0]
		for _, arg := range context.Args().Slice() {
			address, err := parseAddress(arg)
			if err != nil {
				return err
			}
			addresses = append(addresses, address)
		}
	} else {
		slices.SortFunc(addresses, func(a, b kakarot.Address) int {
			return a.ToUint256().Cmp(b.ToUint256())
		})
	}

	for _, address := range addresses {
		family := classifier.Classify(address)
		suffix := ""
		if family == kprocessor.EthereumStandard && !classifier.IsImplemented(address) {
			suffix = " (not implemented)"
		}
		if token, found := classifier.DualVMToken(address); found {
			suffix = fmt.Sprintf(" (dual VM token %v)", token)
		}
		fmt.Fprintf(context.App.Writer, "%v %v%s\n", address, family, suffix)
	}
	return nil
}

var ConfigCmd = addCommonFlags(cli.Command{
	Action: doConfig,
	Name:   "config",
	Usage:  "Print the effective runtime configuration as JSON",
})

func doConfig(context *cli.Context) error {
	config, err := configFlag.Fetch(context)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(context.App.Writer, string(data))
	return nil
}
