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
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/params"
)

const (
	TxGas                     = kakarot.Gas(params.TxGas)
	TxGasContractCreation     = kakarot.Gas(params.TxGasContractCreation)
	TxDataNonZeroGasEIP2028   = kakarot.Gas(params.TxDataNonZeroGasEIP2028)
	TxDataZeroGasEIP2028      = kakarot.Gas(params.TxDataZeroGas)
	TxAccessListAddressGas    = kakarot.Gas(params.TxAccessListAddressGas)
	TxAccessListStorageKeyGas = kakarot.Gas(params.TxAccessListStorageKeyGas)

	createGasCostPerByte = kakarot.Gas(params.CreateDataGas)
	maxRefundQuotient    = kakarot.Gas(params.RefundQuotientEIP3529)

	// NativePrecompileGas is the default cost of a native bridge call.
	NativePrecompileGas = kakarot.Gas(10_000)
	// P256VerifyGas is the cost of a P-256 signature verification.
	P256VerifyGas = kakarot.Gas(3450)

	// ChainID is "KKRT" read as a big-endian integer.
	ChainID = uint64(0x4b4b5254)
)

// maxNativeBridgeRange bounds the number of native bridge addresses, all of
// which are pre-warmed by every transaction.
const maxNativeBridgeRange = 1 << 10

// Addresses of the native bridge precompiles.
const (
	WhitelistedCallAddress = 0x75001
	MessageToL1Address     = 0x75002
	MulticallAddress       = 0x75003
)

// Config is the immutable configuration of an Executor. It is provided once
// at construction time and never changes afterwards.
type Config struct {
	// Ethereum standard precompile addresses, including reserved but not
	// implemented ones.
	EthereumPrecompiles []uint64 `json:"ethereumPrecompiles"`
	// Subset of EthereumPrecompiles reserved but not implemented.
	NotImplementedPrecompiles []uint64 `json:"notImplementedPrecompiles"`
	// Addresses of rollup precompiles.
	RollupPrecompiles []uint64 `json:"rollupPrecompiles"`
	// Closed range of native bridge precompile addresses.
	NativeBridgeFirst uint64 `json:"nativeBridgeFirst"`
	NativeBridgeLast  uint64 `json:"nativeBridgeLast"`
	// Guest addresses of dual VM tokens and the native token contracts they
	// forward to.
	DualVMTokens map[kakarot.Address]kakarot.NativeAddress `json:"dualVmTokens,omitempty"`

	NativePrecompileGas     kakarot.Gas `json:"nativePrecompileGas"`
	P256VerifyGas           kakarot.Gas `json:"p256VerifyGas"`
	AccessListAddressGas    kakarot.Gas `json:"accessListAddressGas"`
	AccessListStorageKeyGas kakarot.Gas `json:"accessListStorageKeyGas"`
	MaxCallDepth            int         `json:"maxCallDepth"`
	MaxCodeSize             int         `json:"maxCodeSize"`

	Coinbase       kakarot.Address `json:"coinbase"`
	BlockGasLimit  kakarot.Gas     `json:"blockGasLimit"`
	ChainID        uint64          `json:"chainId"`
	MinBlobBaseFee uint64          `json:"minBlobBaseFee"`

	// Deployer used to derive native account addresses of guest accounts.
	NativeAccountDeployer kakarot.NativeAddress `json:"nativeAccountDeployer"`
}

// DefaultConfig returns the configuration of the Kakarot network.
func DefaultConfig() Config {
	return Config{
		EthereumPrecompiles:       []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		NotImplementedPrecompiles: []uint64{5, 8, 10},
		RollupPrecompiles:         []uint64{0x100},
		NativeBridgeFirst:         WhitelistedCallAddress,
		NativeBridgeLast:          MulticallAddress,
		NativePrecompileGas:       NativePrecompileGas,
		P256VerifyGas:             P256VerifyGas,
		AccessListAddressGas:      TxAccessListAddressGas,
		AccessListStorageKeyGas:   TxAccessListStorageKeyGas,
		MaxCallDepth:              int(params.CallCreateDepth),
		MaxCodeSize:               int(params.MaxCodeSize),
		BlockGasLimit:             7_000_000,
		ChainID:                   ChainID,
		MinBlobBaseFee:            1,
	}
}

// LoadConfig reads a JSON encoded configuration from a file. Fields missing
// in the file keep their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %v: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks that the precompile families are non-empty and disjoint
// and that gas and size parameters are usable.
func (c Config) Validate() error {
	if len(c.EthereumPrecompiles) == 0 {
		return fmt.Errorf("%w: no ethereum precompiles", ErrInvalidConfig)
	}
	if len(c.RollupPrecompiles) == 0 {
		return fmt.Errorf("%w: no rollup precompiles", ErrInvalidConfig)
	}
	if c.NativeBridgeFirst == 0 || c.NativeBridgeFirst > c.NativeBridgeLast || c.NativeBridgeLast-c.NativeBridgeFirst >= maxNativeBridgeRange {
		return fmt.Errorf("%w: invalid native bridge range [%d, %d]", ErrInvalidConfig, c.NativeBridgeFirst, c.NativeBridgeLast)
	}
	if slices.Contains(c.EthereumPrecompiles, 0) {
		return fmt.Errorf("%w: address 0 is not a precompile", ErrInvalidConfig)
	}
	for _, address := range c.NotImplementedPrecompiles {
		if !slices.Contains(c.EthereumPrecompiles, address) {
			return fmt.Errorf("%w: not implemented precompile %d is not an ethereum precompile", ErrInvalidConfig, address)
		}
	}
	inBridge := func(address uint64) bool {
		return c.NativeBridgeFirst <= address && address <= c.NativeBridgeLast
	}
	for _, address := range c.EthereumPrecompiles {
		if slices.Contains(c.RollupPrecompiles, address) || inBridge(address) {
			return fmt.Errorf("%w: precompile %d in multiple families", ErrInvalidConfig, address)
		}
	}
	for _, address := range c.RollupPrecompiles {
		if address == 0 || inBridge(address) {
			return fmt.Errorf("%w: rollup precompile %d overlaps another family", ErrInvalidConfig, address)
		}
	}
	for address := range c.DualVMTokens {
		if n, ok := address.Uint64(); ok && (n == 0 || slices.Contains(c.EthereumPrecompiles, n) || slices.Contains(c.RollupPrecompiles, n) || inBridge(n)) {
			return fmt.Errorf("%w: dual VM token %v overlaps another family", ErrInvalidConfig, address)
		}
	}
	if c.NativePrecompileGas <= 0 || c.P256VerifyGas <= 0 {
		return fmt.Errorf("%w: precompile gas must be positive", ErrInvalidConfig)
	}
	if c.AccessListAddressGas < 0 || c.AccessListStorageKeyGas < 0 {
		return fmt.Errorf("%w: negative access list gas", ErrInvalidConfig)
	}
	if c.MaxCallDepth <= 0 || c.MaxCodeSize <= 0 {
		return fmt.Errorf("%w: call depth and code size limits must be positive", ErrInvalidConfig)
	}
	return nil
}
