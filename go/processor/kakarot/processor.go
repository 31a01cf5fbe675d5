// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kakarot implements the guest transaction executor of the Kakarot
// runtime: precompile classification and dispatch, the native bridge, and
// the nested call machinery running on top of a host ledger.
package kakarot

import (
	"fmt"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/Fantom-foundation/Kakarot/go/state"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// Executor runs guest transactions. It is configured once and may be used
// for any number of sequential transactions.
type Executor struct {
	config      Config
	interpreter kakarot.Interpreter
	registry    *Registry
	ledger      kakarot.NativeLedger
}

// NewExecutor creates an executor running contract code on the given
// interpreter. The native environment may be partially nil, in which case
// native bridge calls fail.
func NewExecutor(config Config, interpreter kakarot.Interpreter, env NativeEnvironment) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Executor{
		config:      config,
		interpreter: interpreter,
		registry:    NewRegistry(config, env),
		ledger:      env.Ledger,
	}, nil
}

// Config returns the configuration of the executor.
func (e *Executor) Config() Config {
	return e.config
}

// Classify returns the precompile family of an address.
func (e *Executor) Classify(address kakarot.Address) Family {
	return e.registry.Classify(address)
}

// RunPrecompile executes a single precompile outside of a transaction.
func (e *Executor) RunPrecompile(
	address kakarot.Address,
	input kakarot.Data,
	caller kakarot.Address,
	messageAddress kakarot.Address,
) (kakarot.Data, bool, kakarot.Gas) {
	return e.registry.RunPrecompile(address, input, caller, messageAddress)
}

// Run executes a transaction. Guest state changes are only written to the
// given world state if the transaction is valid. A non-nil error reports
// that native effects had to be rolled back and the host transaction must be
// reverted.
func (e *Executor) Run(
	blockParams kakarot.BlockParameters,
	transaction kakarot.Transaction,
	worldState kakarot.WorldState,
) (kakarot.Receipt, error) {
	errorReceipt := kakarot.Receipt{
		Success: false,
		GasUsed: transaction.GasLimit,
	}
	isCreate := transaction.Recipient == nil
	block := NewBlockContext(e.config, blockParams, transaction.BlobHashes)
	store := state.NewAccountStore(worldState)
	access := state.NewAccessListCache()

	if err := checkNonce(transaction, store); err != nil {
		log.Debug("Rejected transaction", "sender", transaction.Sender, "err", err)
		return errorReceipt, nil
	}
	if isCreate && len(transaction.Input) > 2*e.config.MaxCodeSize {
		log.Debug("Rejected transaction", "sender", transaction.Sender, "err", "init code too large")
		return errorReceipt, nil
	}

	intrinsicGas := setupGasBilling(transaction)
	intrinsicGas += access.PreWarmAccessList(transaction.AccessList,
		e.config.AccessListAddressGas, e.config.AccessListStorageKeyGas)
	if transaction.GasLimit < intrinsicGas {
		log.Debug("Rejected transaction", "sender", transaction.Sender, "err", "intrinsic gas too low",
			"gas", transaction.GasLimit, "required", intrinsicGas)
		return errorReceipt, nil
	}
	gas := transaction.GasLimit - intrinsicGas

	if err := buyGas(transaction, store); err != nil {
		log.Debug("Rejected transaction", "sender", transaction.Sender, "err", err)
		return errorReceipt, nil
	}
	if !isCreate {
		store.SetNonce(transaction.Sender, transaction.Nonce+1)
	}

	warm := append(e.registry.Precompiles(), transaction.Sender, block.Coinbase())
	if !isCreate {
		warm = append(warm, *transaction.Recipient)
	}
	access.PreWarm(warm, nil)

	var nativeSnapshot kakarot.NativeSnapshot
	if e.ledger != nil {
		nativeSnapshot = e.ledger.Snapshot()
	}

	r := &runtime{
		AccountStore: store,
		interpreter:  e.interpreter,
		registry:     e.registry,
		config:       e.config,
		block:        block.Parameters(),
		transaction: kakarot.TransactionParameters{
			Origin:     transaction.Sender,
			GasPrice:   transaction.GasPrice,
			BlobHashes: transaction.BlobHashes,
		},
		access: access,
	}

	var result kakarot.CallResult
	var err error
	if isCreate {
		result, err = r.Call(kakarot.Create, kakarot.CallParameters{
			Sender: transaction.Sender,
			Value:  transaction.Value,
			Input:  transaction.Input,
			Gas:    gas,
		})
	} else {
		result, err = r.Call(kakarot.Call, kakarot.CallParameters{
			Sender:      transaction.Sender,
			Recipient:   *transaction.Recipient,
			Value:       transaction.Value,
			Input:       transaction.Input,
			Gas:         gas,
			CodeAddress: *transaction.Recipient,
		})
	}

	if err != nil || r.poisoned {
		if e.ledger != nil {
			e.ledger.Rollback(nativeSnapshot)
		}
		if err != nil {
			return errorReceipt, err
		}
		log.Warn("Reverting native state", "sender", transaction.Sender, "nativeCalls", r.nativeCalls)
		return errorReceipt, kakarot.ErrNativeStateReverted
	}
	if e.ledger != nil {
		e.ledger.Commit(nativeSnapshot)
	}

	gasLeft := result.GasLeft
	gasUsed := transaction.GasLimit - gasLeft
	if result.Success {
		refund := min(max(result.GasRefund, 0), gasUsed/maxRefundQuotient)
		gasLeft += refund
		gasUsed -= refund
	}
	refundGas(transaction, store, gasLeft)
	payCoinbase(transaction, store, block.Coinbase(), gasUsed)
	store.Flush(worldState)

	var logs []kakarot.Log
	if result.Success {
		logs = r.GetLogs()
	}
	var contractAddress *kakarot.Address
	if isCreate && result.Success {
		created := result.CreatedAddress
		contractAddress = &created
	}
	log.Debug("Executed transaction", "sender", transaction.Sender, "success", result.Success,
		"gasUsed", gasUsed, "logs", len(logs), "nativeCalls", r.nativeCalls)

	return kakarot.Receipt{
		Success:         result.Success,
		Output:          result.Output,
		ContractAddress: contractAddress,
		GasUsed:         gasUsed,
		Logs:            logs,
	}, nil
}

// setupGasBilling computes the intrinsic gas of a transaction, excluding its
// access list.
func setupGasBilling(transaction kakarot.Transaction) kakarot.Gas {
	var gas kakarot.Gas
	if transaction.Recipient == nil {
		gas = TxGasContractCreation
		words := (kakarot.Gas(len(transaction.Input)) + 31) / 32
		gas += words * kakarot.Gas(params.InitCodeWordGas)
	} else {
		gas = TxGas
	}

	if len(transaction.Input) > 0 {
		nonZeroBytes := kakarot.Gas(0)
		for _, inputByte := range transaction.Input {
			if inputByte != 0 {
				nonZeroBytes++
			}
		}
		zeroBytes := kakarot.Gas(len(transaction.Input)) - nonZeroBytes
		gas += zeroBytes * TxDataZeroGasEIP2028
		gas += nonZeroBytes * TxDataNonZeroGasEIP2028
	}
	return gas
}

func checkNonce(transaction kakarot.Transaction, context kakarot.WorldState) error {
	stateNonce := context.GetNonce(transaction.Sender)
	messageNonce := transaction.Nonce
	if messageNonce != stateNonce {
		return fmt.Errorf("nonce mismatch: %v != %v", messageNonce, stateNonce)
	}
	if stateNonce+1 < stateNonce {
		return fmt.Errorf("nonce overflow")
	}
	return nil
}

func buyGas(transaction kakarot.Transaction, context kakarot.WorldState) error {
	gas := transaction.GasPrice.Scale(uint64(transaction.GasLimit))

	// the value transferred by the transaction must be covered as well
	required := kakarot.Add(gas, transaction.Value)
	senderBalance := context.GetBalance(transaction.Sender)
	if required.Cmp(gas) < 0 || senderBalance.Cmp(required) < 0 {
		return fmt.Errorf("insufficient balance: %v < %v", senderBalance, required)
	}

	senderBalance = kakarot.Sub(senderBalance, gas)
	context.SetBalance(transaction.Sender, senderBalance)
	return nil
}

func refundGas(transaction kakarot.Transaction, context kakarot.WorldState, gasLeft kakarot.Gas) {
	refund := transaction.GasPrice.Scale(uint64(gasLeft))
	context.SetBalance(transaction.Sender, kakarot.Add(context.GetBalance(transaction.Sender), refund))
}

func payCoinbase(transaction kakarot.Transaction, context kakarot.WorldState, coinbase kakarot.Address, gasUsed kakarot.Gas) {
	fee := transaction.GasPrice.Scale(uint64(gasUsed))
	if fee == (kakarot.Value{}) {
		return
	}
	context.SetBalance(coinbase, kakarot.Add(context.GetBalance(coinbase), fee))
}
