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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
)

func TestConfig_DefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfig_DefaultConfigMatchesNetworkParameters(t *testing.T) {
	config := DefaultConfig()
	if want, got := kakarot.Gas(10_000), config.NativePrecompileGas; want != got {
		t.Errorf("unexpected native precompile gas, wanted %d, got %d", want, got)
	}
	if want, got := kakarot.Gas(3450), config.P256VerifyGas; want != got {
		t.Errorf("unexpected P-256 gas, wanted %d, got %d", want, got)
	}
	if want, got := kakarot.Gas(2400), config.AccessListAddressGas; want != got {
		t.Errorf("unexpected access list address gas, wanted %d, got %d", want, got)
	}
	if want, got := kakarot.Gas(1900), config.AccessListStorageKeyGas; want != got {
		t.Errorf("unexpected access list storage key gas, wanted %d, got %d", want, got)
	}
	if want, got := uint64(1263227476), config.ChainID; want != got {
		t.Errorf("unexpected chain id, wanted %d, got %d", want, got)
	}
	if want, got := 1024, config.MaxCallDepth; want != got {
		t.Errorf("unexpected call depth, wanted %d, got %d", want, got)
	}
	if want, got := 24576, config.MaxCodeSize; want != got {
		t.Errorf("unexpected code size, wanted %d, got %d", want, got)
	}
}

func TestConfig_ValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := map[string]func(*Config){
		"no ethereum precompiles": func(c *Config) {
			c.EthereumPrecompiles = nil
			c.NotImplementedPrecompiles = nil
		},
		"no rollup precompiles": func(c *Config) {
			c.RollupPrecompiles = nil
		},
		"empty bridge range": func(c *Config) {
			c.NativeBridgeFirst, c.NativeBridgeLast = 10, 9
		},
		"bridge starting at zero": func(c *Config) {
			c.NativeBridgeFirst = 0
		},
		"huge bridge range": func(c *Config) {
			c.NativeBridgeFirst, c.NativeBridgeLast = 1<<20, 1<<40
		},
		"zero address precompile": func(c *Config) {
			c.EthereumPrecompiles = append(c.EthereumPrecompiles, 0)
		},
		"not implemented outside ethereum set": func(c *Config) {
			c.NotImplementedPrecompiles = append(c.NotImplementedPrecompiles, 11)
		},
		"ethereum overlaps rollup": func(c *Config) {
			c.RollupPrecompiles = append(c.RollupPrecompiles, 3)
		},
		"ethereum overlaps bridge": func(c *Config) {
			c.EthereumPrecompiles = append(c.EthereumPrecompiles, WhitelistedCallAddress)
		},
		"rollup overlaps bridge": func(c *Config) {
			c.RollupPrecompiles = append(c.RollupPrecompiles, MulticallAddress)
		},
		"token overlaps ethereum": func(c *Config) {
			c.DualVMTokens = map[kakarot.Address]kakarot.NativeAddress{kakarot.AddressFromUint64(2): {1}}
		},
		"zero native gas": func(c *Config) {
			c.NativePrecompileGas = 0
		},
		"negative access list gas": func(c *Config) {
			c.AccessListStorageKeyGas = -1
		},
		"zero call depth": func(c *Config) {
			c.MaxCallDepth = 0
		},
	}

	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			config := DefaultConfig()
			modify(&config)
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected invalid config error, got %v", err)
			}
		})
	}
}

func TestConfig_LoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"nativePrecompileGas": 5000,
		"coinbase": "0x0000000000000000000000000000000000000042",
		"dualVmTokens": {"0x00000000000000000000000000000000000e7e00": "0x1234"}
	}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if want, got := kakarot.Gas(5000), config.NativePrecompileGas; want != got {
		t.Errorf("unexpected native precompile gas, wanted %d, got %d", want, got)
	}
	if want, got := kakarot.AddressFromUint64(0x42), config.Coinbase; want != got {
		t.Errorf("unexpected coinbase, wanted %v, got %v", want, got)
	}
	if want, got := DefaultConfig().P256VerifyGas, config.P256VerifyGas; want != got {
		t.Errorf("default not preserved, wanted %d, got %d", want, got)
	}
	token, found := config.DualVMTokens[kakarot.AddressFromUint64(0xe7e00)]
	if !found || token != kakarot.NativeAddress(kakarot.FeltFromUint64(0x1234)) {
		t.Errorf("unexpected dual VM tokens: %v", config.DualVMTokens)
	}
}

func TestConfig_LoadConfigReportsErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"invalid json":   `{"nativePrecompileGas": }`,
		"invalid config": `{"maxCallDepth": 0}`,
		"invalid felt":   `{"nativeAccountDeployer": "0x800000000000011000000000000000000000000000000000000000000000001"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("expected an error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
