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
	"math/big"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/crypto/secp256r1"
)

const p256InputSize = 160

// p256Verify checks a secp256r1 signature. The input is the 32 byte message
// hash followed by the signature components r and s and the public key
// coordinates x and y. A valid signature yields a 32 byte word holding 1,
// anything else yields an empty output. The gas cost is fixed.
type p256Verify struct {
	gas kakarot.Gas
}

func (p p256Verify) Run(call *PrecompileCall) (kakarot.Data, error) {
	if err := call.Gas.Charge(p.gas); err != nil {
		return nil, err
	}
	input := call.Input
	if len(input) != p256InputSize {
		return nil, nil
	}
	hash := input[0:32]
	r := new(big.Int).SetBytes(input[32:64])
	s := new(big.Int).SetBytes(input[64:96])
	x := new(big.Int).SetBytes(input[96:128])
	y := new(big.Int).SetBytes(input[128:160])
	if !secp256r1.Verify(hash, r, s, x, y) {
		return nil, nil
	}
	output := make(kakarot.Data, 32)
	output[31] = 1
	return output, nil
}
