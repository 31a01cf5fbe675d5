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

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package kakarot

// Interpreter executes guest bytecode. The runtime core does not interpret
// opcodes itself; it hands every frame to an Interpreter and serves calls,
// creates, precompiles and native bridge requests through the RunContext in
// the parameters.
type Interpreter interface {
	// Run executes a single frame. Reverts and halts of the guest code are
	// reported in the Result. A non-nil error signals a defect of the
	// interpreter itself; the result is meaningless in that case.
	Run(Parameters) (Result, error)
}

// Parameters describe a frame handed to the interpreter.
type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address // account whose storage the frame operates on
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash // nil if unknown
	Code      Code
}

// Result is the outcome of a frame.
type Result struct {
	Success   bool // false on revert and exceptional halt
	Output    Data
	GasLeft   Gas
	GasRefund Gas
}

// RunContext is the view of a running transaction offered to the code of a
// single frame. Nested calls go through Call so that precompiles and the
// native bridge can be intercepted.
type RunContext interface {
	TransactionContext

	Call(kind CallKind, parameter CallParameters) (CallResult, error)
}

// TransactionContext buffers all modifications of a transaction on top of
// the WorldState. Besides accounts it tracks transaction scoped data: the
// access list, transient storage, logs and self destructs. Everything can
// be rolled back to a snapshot.
type TransactionContext interface {
	WorldState

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	GetTransientStorage(Address, Key) Word
	SetTransientStorage(Address, Key, Word)

	// AccessAccount and AccessStorage warm the given entry and report its
	// state before the access.
	AccessAccount(Address) AccessStatus
	AccessStorage(Address, Key) AccessStatus
	IsAddressInAccessList(addr Address) bool
	IsSlotInAccessList(addr Address, key Key) (addressPresent, slotPresent bool)

	EmitLog(Log)
	GetLogs() []Log

	// GetCommittedStorage returns the value of a slot at the start of the
	// transaction.
	GetCommittedStorage(addr Address, key Key) Word
	HasSelfDestructed(addr Address) bool
}

// Snapshot identifies a point a TransactionContext can be restored to.
type Snapshot int

// AccessStatus tells whether an account or slot was accessed before in the
// running transaction.
type AccessStatus bool

const (
	ColdAccess AccessStatus = false
	WarmAccess AccessStatus = true
)

func (s AccessStatus) String() string {
	if s == WarmAccess {
		return "warm"
	}
	return "cold"
}

// Log is an event emitted by guest code or a precompile.
type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}
