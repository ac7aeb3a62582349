// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// SystemOwner owns every plain account. Such accounts are debited by
// signature; program-owned accounts only by derivation proof.
var SystemOwner = types.Address{}

// Account is one balance-holding entry in the ledger.
type Account struct {
	Address types.Address
	Balance uint64        // native units
	Owner   types.Address // SystemOwner or the id of the owning program
	Space   int           // allocated data bytes, counted toward the minimum balance
}

// IsSystem reports whether the account is owned by the system rather than a program.
func (a Account) IsSystem() bool {
	return a.Owner == SystemOwner
}

func (a Account) String() string {
	owner := "system"
	if !a.IsSystem() {
		owner = a.Owner.String()
	}
	return fmt.Sprintf("%s balance=%d owner=%s space=%d", a.Address, a.Balance, owner, a.Space)
}
