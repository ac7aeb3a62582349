// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"context"
	"io"
	"strings"
)

// Context carries per-invocation state to a handler.
type Context struct {
	context.Context

	Out io.Writer

	// RawArgs is the argument text before quote-stripping.
	// Commands like 'js' use it to keep their input intact.
	RawArgs string
}

// ParseLine splits a command line into name and arguments. Double quotes
// group words and are removed. The raw argument text is returned unchanged.
func ParseLine(input string) (name string, args []string, raw string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil, ""
	}

	var parts []string
	var current strings.Builder
	inQuotes, quoted := false, false
	flush := func() {
		if current.Len() > 0 || quoted {
			parts = append(parts, current.String())
			current.Reset()
		}
		quoted = false
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch ch {
		case '"':
			inQuotes = !inQuotes
			quoted = true
		case ' ', '\t':
			if inQuotes {
				current.WriteByte(ch)
			} else {
				flush()
			}
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	if len(parts) == 0 {
		return "", nil, ""
	}
	name = parts[0]
	raw = strings.TrimSpace(strings.TrimPrefix(input, name))
	return name, parts[1:], raw
}
