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

// CallKind is the kind of a nested call issued through a RunContext.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

// CallParameters describe a nested call. For delegate calls the Recipient
// is the context address and CodeAddress names the code to run, which is
// how precompiles learn their message address.
type CallParameters struct {
	Sender      Address
	Recipient   Address // ignored by creates
	Value       Value   // zero for static calls
	Input       Data    // init code for creates
	Gas         Gas
	Salt        Hash // CREATE2 only
	CodeAddress Address
}

// CallResult is the outcome of a nested call as seen by the calling frame.
type CallResult struct {
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress Address // creates only
	Success        bool
}

// BlockParameters describe the block a transaction runs in. They are fixed
// for the duration of the transaction.
type BlockParameters struct {
	ChainID     Word
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
	PrevRandao  Hash
	BaseFee     Value
	BlobBaseFee Value
}

// TransactionParameters describe the running transaction.
type TransactionParameters struct {
	Origin     Address
	GasPrice   Value
	BlobHashes []Hash
}
