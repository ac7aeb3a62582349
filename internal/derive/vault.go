// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package derive

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// VaultNamespace is the first seed of every vault address.
const VaultNamespace = "vault"

// Proof is the capability proof for a derived address: the seeds and bump that
// reproduce it under ProgramID. It stands in for a signature when the derived
// account authorizes its own outgoing transfers.
type Proof struct {
	ProgramID types.Address
	Seeds     [][]byte // without the bump
	Bump      byte
}

// Address recomputes the derived address from the proof.
func (p Proof) Address() (types.Address, error) {
	seeds := make([][]byte, 0, len(p.Seeds)+1)
	seeds = append(seeds, p.Seeds...)
	seeds = append(seeds, []byte{p.Bump})
	return CreateAddress(seeds, p.ProgramID)
}

// Verify reports whether the proof reproduces addr.
func (p Proof) Verify(addr types.Address) bool {
	derived, err := p.Address()
	if err != nil {
		return false
	}
	return derived == addr
}

// Namespace returns the first seed as a string, or "" if there are no seeds.
func (p Proof) Namespace() string {
	if len(p.Seeds) == 0 {
		return ""
	}
	return string(p.Seeds[0])
}

// String renders the proof for logs.
func (p Proof) String() string {
	parts := make([]string, len(p.Seeds))
	for i, s := range p.Seeds {
		parts[i] = hex.EncodeToString(s)
	}
	return fmt.Sprintf("proof(program=%s seeds=[%s] bump=%d)", p.ProgramID, strings.Join(parts, ","), p.Bump)
}

// VaultSeeds returns the seeds identifying owner's vault.
func VaultSeeds(owner types.Address) [][]byte {
	ownerSeed := make([]byte, len(owner))
	copy(ownerSeed, owner[:])
	return [][]byte{[]byte(VaultNamespace), ownerSeed}
}

// Vault derives the vault address of owner under programID.
func Vault(programID, owner types.Address) (types.Address, Proof, error) {
	seeds := VaultSeeds(owner)
	addr, bump, err := FindAddress(seeds, programID)
	if err != nil {
		return types.Address{}, Proof{}, err
	}
	return addr, Proof{ProgramID: programID, Seeds: seeds, Bump: bump}, nil
}
