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
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

type configFlagType struct {
	cli.StringFlag
}

var configFlag = &configFlagType{
	cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "JSON file with the runtime configuration, defaults are used if not set",
	},
}

// Fetch loads the configuration file named by the flag, or the default
// configuration if the flag is not set.
func (f *configFlagType) Fetch(context *cli.Context) (kprocessor.Config, error) {
	path := context.String(f.Name)
	if path == "" {
		return kprocessor.DefaultConfig(), nil
	}
	return kprocessor.LoadConfig(path)
}

type addressFlagType struct {
	cli.StringFlag
}

var callerFlag = &addressFlagType{
	cli.StringFlag{
		Name:  "caller",
		Usage: "address of the caller of the precompile",
		Value: "0x01",
	},
}

var messageAddressFlag = &addressFlagType{
	cli.StringFlag{
		Name:  "message-address",
		Usage: "context address of the call, defaults to the caller",
	},
}

// Fetch parses the address given to the flag. The second result is false
// if the flag is not set.
func (f *addressFlagType) Fetch(context *cli.Context) (kakarot.Address, bool, error) {
	value := context.String(f.Name)
	if value == "" {
		return kakarot.Address{}, false, nil
	}
	address, err := parseAddress(value)
	return address, err == nil, err
}

type authorizeFlagType struct {
	cli.StringSliceFlag
}

var authorizeFlag = &authorizeFlagType{
	cli.StringSliceFlag{
		Name:    "authorize",
		Aliases: []string{"a"},
		Usage:   "addresses allowed to use the whitelisted native call precompile",
	},
}

func (f *authorizeFlagType) Fetch(context *cli.Context) ([]kakarot.Address, error) {
	var res []kakarot.Address
	for _, value := range context.StringSlice(f.Name) {
		address, err := parseAddress(value)
		if err != nil {
			return nil, err
		}
		res = append(res, address)
	}
	return res, nil
}

type jobsFlagType struct {
	cli.IntFlag
}

var jobsFlag = &jobsFlagType{
	cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "number of jobs run simultaneously",
		Value:   runtime.NumCPU(),
	},
}

func (f *jobsFlagType) Fetch(context *cli.Context) int {
	if jobs := context.Int(f.Name); jobs > 0 {
		return jobs
	}
	return runtime.NumCPU()
}

type seedFlagType struct {
	cli.Uint64Flag
}

var seedFlag = &seedFlagType{
	cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "seed for the random number generator",
	},
}

func (f *seedFlagType) Fetch(context *cli.Context) uint64 {
	return context.Uint64(f.Name)
}

var verbosityFlag = &cli.IntFlag{
	Name:  "verbosity",
	Usage: "log level, 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
	Value: 2,
}

func setupLogging(context *cli.Context) error {
	verbosity := context.Int(verbosityFlag.Name)
	if verbosity < 0 || verbosity > 5 {
		return fmt.Errorf("invalid verbosity %d", verbosity)
	}
	if verbosity == 0 {
		log.SetDefault(log.NewLogger(log.DiscardHandler()))
		return nil
	}
	handler := log.NewTerminalHandlerWithLevel(context.App.ErrWriter, log.FromLegacyLevel(verbosity), false)
	log.SetDefault(log.NewLogger(handler))
	return nil
}

var cpuProfileFlag = &cli.StringFlag{
	Name:  "cpuprofile",
	Usage: "store CPU profile in the provided filename",
}

// addCommonFlags adds the flags shared by all commands and wraps the action
// of the command to honor them.
func addCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, configFlag, cpuProfileFlag)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {
		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}
		return action(ctx)
	}
	return command
}
