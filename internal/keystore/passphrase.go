// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassphraseEnv names the environment variable that supplies the passphrase
// non-interactively.
const PassphraseEnv = "APVAULT_PASSPHRASE"

// ErrEmptyPassphrase indicates an empty passphrase was entered
var ErrEmptyPassphrase = errors.New("passphrase must not be empty")

// ReadPassphrase returns the keystore passphrase from APVAULT_PASSPHRASE,
// or prompts on stderr and reads it from stdin.
func ReadPassphrase(prompt string) ([]byte, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return []byte(p), nil
	}
	return readPassphrase(os.Stdin, os.Stderr, prompt)
}

// readPassphrase reads without echo when in is a terminal and reads a plain
// line otherwise.
func readPassphrase(in *os.File, out io.Writer, prompt string) ([]byte, error) {
	fd := int(in.Fd()) // #nosec G115 - file descriptors are small integers
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(out, prompt)
		p, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		if len(p) == 0 {
			return nil, ErrEmptyPassphrase
		}
		return p, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, ErrEmptyPassphrase
	}
	return []byte(line), nil
}
