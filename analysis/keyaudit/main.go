// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Command keyaudit is a source scanner for key-handling mistakes in apvault.
//
// It runs three line-based checks:
//
//	rand  math/rand in packages that produce keys, nonces or salts
//	zero  functions that touch private key material without zeroing it
//	log   formatted output or log calls that include key material
//
// Usage:
//
//	go run ./analysis/keyaudit [-checks rand,zero,log] <repo-root>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func main() {
	checksFlag := flag.String("checks", "rand,zero,log", "Comma-separated checks to run")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: keyaudit [-checks rand,zero,log] <repo-root>")
		os.Exit(1)
	}
	root := flag.Arg(0)

	var selected []check
	for _, name := range strings.Split(*checksFlag, ",") {
		c, ok := checksByName[strings.TrimSpace(name)]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown check %q\n", name)
			os.Exit(2)
		}
		selected = append(selected, c)
	}

	failed := false
	for _, c := range selected {
		rep, err := c.run(root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", c.name, err)
			os.Exit(2)
		}
		rep.write(os.Stdout)
		if len(rep.findings) > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
