// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package native

import (
	"fmt"

	"github.com/Fantom-foundation/Kakarot/go/kakarot"
	"github.com/ethereum/go-ethereum/log"
)

const ErrNotOwner = kakarot.ConstError("caller is not the owner")

// AuthorizedCallers is the registry of guest contracts allowed to call the
// native bridge. Only the owner may modify it.
type AuthorizedCallers struct {
	owner   kakarot.Address
	callers map[kakarot.Address]bool
}

func NewAuthorizedCallers(owner kakarot.Address) *AuthorizedCallers {
	return &AuthorizedCallers{
		owner:   owner,
		callers: map[kakarot.Address]bool{},
	}
}

func (a *AuthorizedCallers) IsAuthorized(caller kakarot.Address) bool {
	return a.callers[caller]
}

// SetAuthorized grants or revokes the permission of a guest contract to call
// the native bridge.
func (a *AuthorizedCallers) SetAuthorized(sender, caller kakarot.Address, authorized bool) error {
	if sender != a.owner {
		return fmt.Errorf("%w: %v", ErrNotOwner, sender)
	}
	if authorized {
		a.callers[caller] = true
	} else {
		delete(a.callers, caller)
	}
	log.Info("Updated authorized native bridge caller", "caller", caller, "authorized", authorized)
	return nil
}
