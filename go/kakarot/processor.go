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

// Processor executes guest transactions on top of a host ledger: it checks
// nonces, buys gas, runs the call tree including precompiles and the native
// bridge, refunds gas and pays the coinbase.
type Processor interface {
	// Run executes the transaction in the given block on the given state. A
	// non-nil error means the host transaction carrying the guest
	// transaction must be reverted as a whole; the state is then unchanged.
	Run(BlockParameters, Transaction, WorldState) (Receipt, error)
}

// Transaction is a guest transaction as submitted to the host ledger.
type Transaction struct {
	Sender     Address
	Recipient  *Address // nil for contract creations
	Nonce      uint64
	Input      Data // init code for contract creations
	Value      Value
	GasLimit   Gas
	GasPrice   Value // effective price, the base fee is zero
	AccessList []AccessTuple
	BlobHashes []Hash
}

// AccessTuple names an account and slots to be warmed before execution.
// Duplicates are allowed and paid for.
type AccessTuple struct {
	Address Address
	Keys    []Key
}

// Receipt is the outcome of a guest transaction.
type Receipt struct {
	Success         bool
	Output          Data
	ContractAddress *Address // set for successful contract creations
	GasUsed         Gas      // after refunds
	Logs            []Log
}
