// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Signature is one ed25519 signature over Request.Message.
// The signer's address is its public key.
type Signature struct {
	Signer types.Address
	Sig    []byte
}

// Request carries the signed message that authorizes an Execute call.
// Every signature must verify; the verified signers may be debited by
// Transfer and CreateAccount inside the transaction. The ledger does not
// interpret Message: a signature proves who authorized the call, not which
// operation or amount. Callers that need that binding check the decoded
// message themselves.
type Request struct {
	Message    []byte
	Signatures []Signature
}

// verify checks every signature and returns the set of signers.
func (r Request) verify() (map[types.Address]bool, error) {
	signers := make(map[types.Address]bool, len(r.Signatures))
	for _, s := range r.Signatures {
		if len(s.Sig) != ed25519.SignatureSize {
			return nil, fmt.Errorf("%w: %s: signature is %d bytes", ErrInvalidSignature, s.Signer, len(s.Sig))
		}
		if !ed25519.Verify(ed25519.PublicKey(s.Signer[:]), r.Message, s.Sig) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, s.Signer)
		}
		signers[s.Signer] = true
	}
	return signers, nil
}
