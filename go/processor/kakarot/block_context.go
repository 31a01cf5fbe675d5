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
	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/holiman/uint256"
)

// BlockContext provides the read-only block and chain metadata visible to a
// transaction. Values are fixed when the transaction starts.
type BlockContext struct {
	params     kakarot.BlockParameters
	blobHashes []kakarot.Hash
}

// NewBlockContext combines the block parameters supplied by the host chain
// with the defaults of the configuration. Zero coinbase, gas limit and chain
// id are replaced by the configured values; the randomness value is always
// zero and the blob base fee is never below the configured minimum.
func NewBlockContext(config Config, params kakarot.BlockParameters, blobHashes []kakarot.Hash) *BlockContext {
	if params.Coinbase == (kakarot.Address{}) {
		params.Coinbase = config.Coinbase
	}
	if params.GasLimit == 0 {
		params.GasLimit = config.BlockGasLimit
	}
	if params.ChainID == (kakarot.Word{}) {
		params.ChainID = kakarot.Word(uint256.NewInt(config.ChainID).Bytes32())
	}
	params.PrevRandao = kakarot.Hash{}
	minBlobBaseFee := kakarot.NewValue(config.MinBlobBaseFee)
	if params.BlobBaseFee.Cmp(minBlobBaseFee) < 0 {
		params.BlobBaseFee = minBlobBaseFee
	}
	return &BlockContext{
		params:     params,
		blobHashes: blobHashes,
	}
}

func (b *BlockContext) Coinbase() kakarot.Address {
	return b.params.Coinbase
}

func (b *BlockContext) Timestamp() int64 {
	return b.params.Timestamp
}

func (b *BlockContext) BlockNumber() int64 {
	return b.params.BlockNumber
}

// PrevRandao is always zero.
func (b *BlockContext) PrevRandao() kakarot.Hash {
	return b.params.PrevRandao
}

func (b *BlockContext) GasLimit() kakarot.Gas {
	return b.params.GasLimit
}

func (b *BlockContext) ChainID() kakarot.Word {
	return b.params.ChainID
}

// BaseFee is zero unless provided by the host chain.
func (b *BlockContext) BaseFee() kakarot.Value {
	return b.params.BaseFee
}

// BlobHash returns the versioned hash of the blob with the given index or
// zero if there is no such blob.
func (b *BlockContext) BlobHash(index uint64) kakarot.Hash {
	if index >= uint64(len(b.blobHashes)) {
		return kakarot.Hash{}
	}
	return b.blobHashes[index]
}

func (b *BlockContext) BlobBaseFee() kakarot.Value {
	return b.params.BlobBaseFee
}

// Parameters returns the normalized block parameters handed to interpreters.
func (b *BlockContext) Parameters() kakarot.BlockParameters {
	return b.params
}
