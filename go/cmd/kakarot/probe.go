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
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
	"github.com/dsnet/golib/unitconv"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
	"pgregory.net/rand"
)

var ProbeCmd = addCommonFlags(cli.Command{
	Action: doProbe,
	Name:   "probe",
	Usage:  "Run random precompile calls and check their outcome for consistency",
	Flags: []cli.Flag{
		jobsFlag,
		seedFlag,
		&cli.Uint64Flag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "number of calls to run",
			Value:   100_000,
		},
	},
})

// probeCaller is authorized to use the whitelisted native call precompile.
var probeCaller = kakarot.Address{0xa1}

func doProbe(context *cli.Context) error {
	config, err := configFlag.Fetch(context)
	if err != nil {
		return err
	}
	jobCount := jobsFlag.Fetch(context)
	seed := seedFlag.Fetch(context)
	total := context.Uint64("count")
	out := context.App.Writer

	fmt.Fprintf(out, "Start probing %d precompile calls using %d jobs, seed %d ...\n", total, jobCount, seed)

	// Run a progress printer in the background.
	counter := atomic.Uint64{}
	stopProgressPrinter := make(chan struct{})
	var progressGroup sync.WaitGroup
	progressGroup.Add(1)
	go func() {
		defer progressGroup.Done()
		start := time.Now()
		last := uint64(0)
		for {
			select {
			case <-stopProgressPrinter:
				return
			case <-time.After(5 * time.Second):
				relativeTime := time.Since(start)
				current := counter.Load()
				diff := current - last
				last = current
				rate := float64(diff) / 5
				fmt.Fprintf(out,
					"[t=%4d:%02d] - Processing ~%s calls per second, total %d\n",
					int(relativeTime.Seconds())/60, int(relativeTime.Seconds())%60,
					unitconv.FormatPrefix(rate, unitconv.SI, 0), current,
				)
			}
		}
	}()

	var (
		issuesMutex sync.Mutex
		issues      []error
	)
	numIssues := func() int {
		issuesMutex.Lock()
		defer issuesMutex.Unlock()
		return len(issues)
	}

	var wg sync.WaitGroup
	wg.Add(jobCount)
	for i := 0; i < jobCount; i++ {
		go func(job uint64) {
			defer wg.Done()
			p, err := newProber(config, rand.New(seed, job))
			if err == nil {
				for numIssues() == 0 && counter.Add(1) <= total {
					if err = p.probe(); err != nil {
						break
					}
				}
			}
			if err != nil {
				issuesMutex.Lock()
				issues = append(issues, err)
				issuesMutex.Unlock()
			}
		}(uint64(i))
	}

	wg.Wait()
	close(stopProgressPrinter)
	progressGroup.Wait()

	fmt.Fprintf(out, "Probing completed, %d calls executed\n", min(counter.Load(), total))
	if len(issues) == 0 {
		fmt.Fprintf(out, "All calls behaved consistently!\n")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(out, "Issue: %v\n", issue)
	}
	return fmt.Errorf("%d issues found", len(issues))
}

// prober issues random precompile calls against its own demo ledger.
type prober struct {
	registry    *kprocessor.Registry
	precompiles []kakarot.Address
	rnd         *rand.Rand
}

func newProber(config kprocessor.Config, rnd *rand.Rand) (*prober, error) {
	env, _, err := newDemoEnvironment(config, []kakarot.Address{probeCaller})
	if err != nil {
		return nil, err
	}
	registry := kprocessor.NewRegistry(config, env)
	return &prober{
		registry:    registry,
		precompiles: registry.Precompiles(),
		rnd:         rnd,
	}, nil
}

// probe runs a single random call and checks properties every precompile
// call has to satisfy.
func (p *prober) probe() error {
	address := p.address()
	input := p.input(address)
	caller := probeCaller
	if p.rnd.Intn(4) == 0 {
		caller = p.randomAddress()
	}

	family := p.registry.Classify(address)
	output, reverted, gasUsed := p.registry.RunPrecompile(address, input, caller, caller)

	describe := func() string {
		return fmt.Sprintf("address %v (%v), caller %v, input 0x%x", address, family, caller, input)
	}
	if gasUsed < 0 {
		return fmt.Errorf("negative gas used %d for %s", gasUsed, describe())
	}
	if family == kprocessor.NotPrecompile {
		want := (&kprocessor.PrecompileError{Kind: kprocessor.UnknownPrecompile, Address: address}).Payload()
		if !reverted || !bytes.Equal(output, want) {
			return fmt.Errorf("unexpected result %q for %s", output, describe())
		}
	}
	if reverted && len(output) > 0 && !bytes.HasPrefix(output, []byte("Kakarot: ")) {
		return fmt.Errorf("unexpected failure payload %q for %s", output, describe())
	}

	// Only native bridge calls may depend on native state.
	if family != kprocessor.NativeBridge {
		again, revertedAgain, gasUsedAgain := p.registry.RunPrecompile(address, input, caller, caller)
		if !bytes.Equal(output, again) || reverted != revertedAgain || gasUsed != gasUsedAgain {
			return fmt.Errorf("non-deterministic result for %s", describe())
		}
	}
	return nil
}

func (p *prober) address() kakarot.Address {
	switch n := p.rnd.Intn(10); {
	case n < 7:
		return p.precompiles[p.rnd.Intn(len(p.precompiles))]
	case n < 9:
		return kakarot.AddressFromUint64(uint64(p.rnd.Intn(kprocessor.MulticallAddress + 16)))
	}
	return p.randomAddress()
}

func (p *prober) randomAddress() kakarot.Address {
	var res kakarot.Address
	for i := range res {
		res[i] = byte(p.rnd.Uint32())
	}
	return res
}

var probeSelectors = []string{"inc", "get", "set_counter", "unknown"}

func (p *prober) input(address kakarot.Address) kakarot.Data {
	if n, _ := address.Uint64(); n == kprocessor.WhitelistedCallAddress && p.rnd.Intn(2) == 0 {
		selector := native.Selector(probeSelectors[p.rnd.Intn(len(probeSelectors))])
		calldata := make([]kakarot.Felt, p.rnd.Intn(3))
		for i := range calldata {
			calldata[i] = kakarot.FeltFromUint64(p.rnd.Uint64())
		}
		res := append(kakarot.Data{}, demoCounter[:]...)
		res = append(res, selector[:]...)
		res = appendWord(res, 0x60)
		res = appendWord(res, uint64(len(calldata)))
		for _, felt := range calldata {
			res = append(res, felt[:]...)
		}
		if p.rnd.Intn(8) == 0 {
			res = res[:p.rnd.Intn(len(res))]
		}
		return res
	}
	res := make(kakarot.Data, p.rnd.Intn(200))
	for i := range res {
		res[i] = byte(p.rnd.Uint32())
	}
	return res
}

func appendWord(data kakarot.Data, value uint64) kakarot.Data {
	word := uint256.NewInt(value).Bytes32()
	return append(data, word[:]...)
}
