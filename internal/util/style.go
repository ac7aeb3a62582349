// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles renders CLI output. The zero value prints plain text.
type Styles struct {
	enabled bool
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	label   lipgloss.Style
	address lipgloss.Style
	amount  lipgloss.Style
}

// NewStyles returns styles that color output only if enabled is true.
func NewStyles(enabled bool) Styles {
	return Styles{
		enabled: enabled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		address: lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")),
		amount:  lipgloss.NewStyle().Bold(true),
	}
}

// StylesFor returns colored styles when w is a color-capable terminal.
func StylesFor(w io.Writer) Styles {
	return NewStyles(SupportsColor(w))
}

// SupportsColor checks whether w is a terminal that understands ANSI colors.
func SupportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { // #nosec G115 - file descriptors are small integers
		return false
	}
	termEnv := os.Getenv("TERM")
	return termEnv != "" && termEnv != "dumb"
}

func (s Styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

func (s Styles) Title(text string) string   { return s.render(s.title, text) }
func (s Styles) OK(text string) string      { return s.render(s.ok, text) }
func (s Styles) Error(text string) string   { return s.render(s.err, text) }
func (s Styles) Label(text string) string   { return s.render(s.label, text) }
func (s Styles) Address(text string) string { return s.render(s.address, text) }

// Amount renders a native-unit amount with separators.
func (s Styles) Amount(units uint64) string {
	return s.render(s.amount, FormatUnits(units))
}
