// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"regexp"
	"strings"
)

var zeroCheck = check{
	name:  "zero",
	title: "Key Zeroing Analysis",
	dirs:  []string{"internal/crypto", "internal/keystore", "internal/vault", "internal/jsapi", "cmd/apvault"},
	scan:  scanZero,
}

var (
	keyMaterial = []*regexp.Regexp{
		regexp.MustCompile(`ed25519\.PrivateKey`),
		regexp.MustCompile(`NewKeyFromSeed`),
		regexp.MustCompile(`\bmasterKey\b`),
		regexp.MustCompile(`\bkeys\.Get\(`),
		regexp.MustCompile(`\bplaintext\b`),
	}
	zeroCall    = regexp.MustCompile(`ZeroBytes|\.Zero\(\)|\bclear\(`)
	funcPattern = regexp.MustCompile(`^func\s+(\([^)]+\)\s+)?(\w+)`)
)

// Functions that hand key material to their caller, who owns zeroing it.
var zeroExempt = map[string]string{
	"newKey":                   "stores the key in the returned *Key",
	"NewEd25519Signer":         "signer owns the key",
	"Sign":                     "signs with a key owned by the receiver",
	"store":                    "returns the stored *Key to the caller",
	"Get":                      "returns a *Key the caller must Zero",
	"Generate":                 "returns a *Key the caller must Zero",
	"Import":                   "returns a *Key the caller must Zero",
	"Open":                     "returns the plaintext to the caller",
	"open":                     "returns the plaintext to the caller",
	"seal":                     "encrypts caller-owned plaintext",
	"Seal":                     "encrypts caller-owned plaintext",
	"DeriveMasterKey":          "returns the key to the caller",
	"CreateKeystoreMetadata":   "returns the master key to the caller",
	"VerifyAndDeriveMasterKey": "returns the master key to the caller",
	"newGCM":                   "builds a cipher from a caller-owned key",
	"key":                      "returns a *Key the caller must Zero",
}

type funcState struct {
	name     string
	start    int
	braces   int
	refLine  int
	refText  string
	hasZero  bool
	declared bool
}

func scanZero(path string, lines []string) []finding {
	var findings []finding
	var fn funcState

	flush := func() {
		if fn.declared && fn.refLine > 0 && !fn.hasZero {
			if _, ok := zeroExempt[fn.name]; !ok {
				findings = append(findings, finding{
					file:    path,
					line:    fn.refLine,
					content: fn.refText,
					reason:  "key material in " + fn.name + " but no ZeroBytes/Zero call",
				})
			}
		}
		fn = funcState{}
	}

	for i, line := range lines {
		if m := funcPattern.FindStringSubmatch(line); m != nil {
			flush()
			fn = funcState{name: m[2], start: i + 1, declared: true}
		}
		if !fn.declared {
			continue
		}

		fn.braces += strings.Count(line, "{") - strings.Count(line, "}")
		if !isComment(line) && !strings.Contains(line, "type ") {
			for _, pat := range keyMaterial {
				if pat.MatchString(line) {
					if fn.refLine == 0 {
						fn.refLine, fn.refText = i+1, line
					}
					break
				}
			}
		}
		if zeroCall.MatchString(line) {
			fn.hasZero = true
		}
		if fn.braces == 0 && i+1 != fn.start {
			flush()
		}
	}
	flush()
	return findings
}
