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
	"math"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
)

// GasMeter tracks the gas budget of a single frame. Charges are atomic: a
// charge exceeding the remaining budget fails without consuming anything.
type GasMeter struct {
	limit     kakarot.Gas
	remaining kakarot.Gas
	refund    kakarot.Gas
}

// NewGasMeter creates a meter with the given budget. Negative budgets are
// treated as empty.
func NewGasMeter(budget kakarot.Gas) *GasMeter {
	budget = max(budget, 0)
	return &GasMeter{limit: budget, remaining: budget}
}

// newUnlimitedGasMeter creates a meter that never runs out of gas, used where
// the caller meters precompiles by their reported usage.
func newUnlimitedGasMeter() *GasMeter {
	return NewGasMeter(math.MaxInt64)
}

// Charge consumes the given amount of gas or fails with an OutOfGas error
// leaving the meter unchanged.
func (m *GasMeter) Charge(amount kakarot.Gas) error {
	if amount < 0 || amount > m.remaining {
		return &PrecompileError{Kind: OutOfGas, Left: m.remaining, Required: amount}
	}
	m.remaining -= amount
	return nil
}

// Return gives back gas that was charged for work that did not need it, such
// as the unused part of gas forwarded to a nested call.
func (m *GasMeter) Return(amount kakarot.Gas) {
	if amount > 0 {
		m.remaining = min(m.remaining+amount, m.limit)
	}
}

// Refund adds to the refund counter of the frame. Refunds are discarded if
// the frame fails.
func (m *GasMeter) Refund(amount kakarot.Gas) {
	m.refund += amount
}

// Remaining returns the gas still available.
func (m *GasMeter) Remaining() kakarot.Gas {
	return m.remaining
}

// Used returns the gas consumed so far.
func (m *GasMeter) Used() kakarot.Gas {
	return m.limit - m.remaining
}

// RefundCounter returns the accumulated refund.
func (m *GasMeter) RefundCounter() kakarot.Gas {
	return m.refund
}
