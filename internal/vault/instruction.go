// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"bytes"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Method names carried in an Instruction.
const (
	MethodDeposit  = "deposit"
	MethodWithdraw = "withdraw"
)

// instructionPrefix domain-separates vault instructions from anything else
// an owner key might sign.
var instructionPrefix = []byte("VI")

// Instruction is the message an owner signs to authorize one vault call.
type Instruction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Program types.Address `codec:"prog"`
	Method  string        `codec:"meth"`
	Owner   types.Address `codec:"own"`
	Amount  uint64        `codec:"amt"`
	Nonce   []byte        `codec:"nonce"`
}

// Bytes returns the prefixed canonical msgpack encoding that gets signed.
func (i Instruction) Bytes() []byte {
	encoded := msgpack.Encode(&i)
	out := make([]byte, 0, len(instructionPrefix)+len(encoded))
	out = append(out, instructionPrefix...)
	return append(out, encoded...)
}

// DecodeInstruction parses the output of Instruction.Bytes.
func DecodeInstruction(data []byte) (Instruction, error) {
	if !bytes.HasPrefix(data, instructionPrefix) {
		return Instruction{}, fmt.Errorf("missing %q instruction prefix", instructionPrefix)
	}
	var inst Instruction
	if err := msgpack.Decode(data[len(instructionPrefix):], &inst); err != nil {
		return Instruction{}, fmt.Errorf("failed to decode instruction: %w", err)
	}
	return inst, nil
}
