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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/native"
	kprocessor "github.com/Fantom-foundation/Kakarot/go/processor/kakarot"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"kakarot"}, args...))
	return out.String(), err
}

func TestParseAddress(t *testing.T) {
	tests := map[string]struct {
		input string
		want  kakarot.Address
		err   bool
	}{
		"short hex":    {input: "0x04", want: kakarot.AddressFromUint64(4)},
		"odd hex":      {input: "0x75001", want: kakarot.AddressFromUint64(0x75001)},
		"full hex":     {input: "0x0102030405060708091011121314151617181920", want: kakarot.Address{1, 2, 3, 4, 5, 6, 7, 8, 9, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x20}},
		"decimal":      {input: "256", want: kakarot.AddressFromUint64(0x100)},
		"too long hex": {input: "0x010203040506070809101112131415161718192021", err: true},
		"invalid hex":  {input: "0xzz", err: true},
		"too large":    {input: "1461501637330902918203684832716283019655932542976", err: true},
		"not a number": {input: "abc", err: true},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseAddress(test.input)
			if test.err {
				if err == nil {
					t.Fatalf("expected an error for %q", test.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := test.want; want != got {
				t.Errorf("unexpected address, wanted %v, got %v", want, got)
			}
		})
	}
}

func TestParseData(t *testing.T) {
	for _, input := range []string{"0x0102", "0102"} {
		got, err := parseData(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := (kakarot.Data{1, 2}); !bytes.Equal(want, got) {
			t.Errorf("unexpected data, wanted %x, got %x", want, got)
		}
	}
	if _, err := parseData("0x012"); err == nil {
		t.Errorf("odd length input should be rejected")
	}
}

func TestPrecompileCmd_RunsEthereumPrecompile(t *testing.T) {
	out, err := run(t, "precompile", "0x04", "0x010203")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"family:   EthereumStandard", "output:   0x010203", "reverted: false", "gas used: 18"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPrecompileCmd_ReportsUnknownPrecompile(t *testing.T) {
	out, err := run(t, "precompile", "0x1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"family:   NotPrecompile", "message:  Kakarot: UnknownPrecompile 4660", "reverted: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPrecompileCmd_WhitelistedCallNeedsAuthorization(t *testing.T) {
	selector := native.Selector("inc")
	input := append(kakarot.Data{}, demoCounter[:]...)
	input = append(input, selector[:]...)
	input = appendWord(input, 0x60)
	input = appendWord(input, 0)
	encoded := fmt.Sprintf("0x%x", input)

	out, err := run(t, "precompile", "0x75001", encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "message:  Kakarot: unauthorizedPrecompile"; !strings.Contains(out, want) {
		t.Errorf("output does not contain %q:\n%s", want, out)
	}

	out, err = run(t, "precompile", "--caller", "0xa1", "--authorize", "0xa1", "0x75001", encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"family:   NativeBridge", "reverted: false", "gas used: 10000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPrecompileCmd_RejectsInvalidArguments(t *testing.T) {
	tests := map[string][]string{
		"no address":      {"precompile"},
		"too many":        {"precompile", "0x04", "0x00", "0x00"},
		"invalid address": {"precompile", "0xzz"},
		"invalid input":   {"precompile", "0x04", "0x0"},
		"invalid caller":  {"precompile", "--caller", "xyz", "0x04"},
		"invalid config":  {"precompile", "--config", filepath.Join(t.TempDir(), "missing.json"), "0x04"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, args...); err == nil {
				t.Errorf("expected an error for %v", args)
			}
		})
	}
}

func TestClassifyCmd_PrintsFamilies(t *testing.T) {
	out, err := run(t, "classify", "0x01", "0x05", "0x100", "0x75002", "0x1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join([]string{
		kakarot.AddressFromUint64(1).String() + " EthereumStandard",
		kakarot.AddressFromUint64(5).String() + " EthereumStandard (not implemented)",
		kakarot.AddressFromUint64(0x100).String() + " Rollup",
		kakarot.AddressFromUint64(0x75002).String() + " NativeBridge",
		kakarot.AddressFromUint64(0x1234).String() + " NotPrecompile",
	}, "\n") + "\n"
	if want != out {
		t.Errorf("unexpected output, wanted\n%s\ngot\n%s", want, out)
	}
}

func TestClassifyCmd_ListsAllPrecompilesSorted(t *testing.T) {
	out, err := run(t, "classify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if want, got := 14, len(lines); want != got {
		t.Fatalf("unexpected number of precompiles, wanted %d, got %d:\n%s", want, got, out)
	}
	if want := kakarot.AddressFromUint64(1).String() + " EthereumStandard"; lines[0] != want {
		t.Errorf("unexpected first line, wanted %q, got %q", want, lines[0])
	}
	if want := kakarot.AddressFromUint64(0x75003).String() + " NativeBridge"; lines[len(lines)-1] != want {
		t.Errorf("unexpected last line, wanted %q, got %q", want, lines[len(lines)-1])
	}
}

func TestConfigCmd_PrintsDefaultConfig(t *testing.T) {
	out, err := run(t, "config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got kprocessor.Config
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if want := kprocessor.DefaultConfig(); !reflect.DeepEqual(want, got) {
		t.Errorf("unexpected config, wanted %+v, got %+v", want, got)
	}
}

func TestConfigCmd_LoadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"nativePrecompileGas": 777}`), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	out, err := run(t, "config", "--config", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got kprocessor.Config
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if want := kakarot.Gas(777); got.NativePrecompileGas != want {
		t.Errorf("unexpected native precompile gas, wanted %d, got %d", want, got.NativePrecompileGas)
	}

	out, err = run(t, "precompile", "--config", path, "--caller", "0xa1", "--authorize", "0xa1", "0x75001", "0x00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "gas used: 777"; !strings.Contains(out, want) {
		t.Errorf("output does not contain %q:\n%s", want, out)
	}
}

func TestProbeCmd_FindsNoIssues(t *testing.T) {
	out, err := run(t, "probe", "--count", "500", "--jobs", "2", "--seed", "42")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	for _, want := range []string{"Probing completed, 500 calls executed", "All calls behaved consistently!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestSetupLogging_RejectsInvalidVerbosity(t *testing.T) {
	if _, err := run(t, "--verbosity", "9", "config"); err == nil {
		t.Errorf("invalid verbosity should be rejected")
	}
}
