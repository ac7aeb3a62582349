// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatUnits renders a native-unit amount with thousands separators.
func FormatUnits(amount uint64) string {
	s := strconv.FormatUint(amount, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// ParseUnits parses an amount, accepting '_' and ',' digit separators.
func ParseUnits(s string) (uint64, error) {
	clean := strings.NewReplacer("_", "", ",", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	v, err := strconv.ParseUint(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
