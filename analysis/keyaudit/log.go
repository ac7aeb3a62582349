// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import "regexp"

var logCheck = check{
	name:  "log",
	title: "Key Logging Analysis",
	exempt: map[string]string{
		// keygen and export print the mnemonic because the user asked for it
		"cmd/apvault/commands.go": "mnemonic output is the command's purpose",
	},
	scan: scanLog,
}

var (
	secretName = `(?i)(private|priv|secret|master)_?key|\bseed\b|mnemonic\b|\bwords\b|plaintext`

	// A print or log call mentioning a secret as an argument
	outputCall = regexp.MustCompile(`(fmt\.(\w*Print\w*|Errorf)|\b(log|logger|slog|Logger)\.(Debug|Info|Warn|Error|Print\w*))\(`)
	secretArg  = regexp.MustCompile(`,\s*[\w.]*(` + secretName + `)[\w.\[\]:]*\s*[,)]`)
	directArg  = regexp.MustCompile(`\((` + secretName + `)\)`)
)

func scanLog(path string, lines []string) []finding {
	var findings []finding
	for i, line := range lines {
		if isComment(line) || !outputCall.MatchString(line) {
			continue
		}
		if secretArg.MatchString(line) || directArg.MatchString(line) {
			findings = append(findings, finding{
				file:    path,
				line:    i + 1,
				content: line,
				reason:  "possible key material in formatted output",
			})
		}
	}
	return findings
}
