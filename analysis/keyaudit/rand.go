// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import "regexp"

var randCheck = check{
	name:  "rand",
	title: "Insecure Random Analysis",
	// Key generation, sealing nonces, KDF salts and instruction nonces
	dirs: []string{"internal/crypto", "internal/keystore", "internal/vault", "internal/derive"},
	scan: scanRand,
}

var (
	mathRandImport   = regexp.MustCompile(`"math/rand(/v2)?"`)
	cryptoRandImport = regexp.MustCompile(`"crypto/rand"`)
	mathRandCall     = regexp.MustCompile(`rand\.(Seed|Intn\(|Int31|Int63|Float|Perm|Shuffle|NewSource|N\()`)
)

func scanRand(path string, lines []string) []finding {
	var findings []finding
	hasCryptoRand := false
	for i, line := range lines {
		if mathRandImport.MatchString(line) {
			findings = append(findings, finding{
				file:    path,
				line:    i + 1,
				content: line,
				reason:  "math/rand import in key-handling package; use crypto/rand",
			})
		}
		if cryptoRandImport.MatchString(line) {
			hasCryptoRand = true
		}
	}

	// math/rand-only calls catch an aliased import
	if hasCryptoRand {
		return findings
	}
	for i, line := range lines {
		if isComment(line) {
			continue
		}
		if mathRandCall.MatchString(line) {
			findings = append(findings, finding{
				file:    path,
				line:    i + 1,
				content: line,
				reason:  "math/rand function without crypto/rand import",
			})
		}
	}
	return findings
}
