// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type finding struct {
	file    string
	line    int
	content string
	reason  string
}

type report struct {
	title    string
	files    int
	findings []finding
}

func (r report) write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s\n%s\n", r.title, strings.Repeat("=", len(r.title)))
	_, _ = fmt.Fprintf(w, "Files checked: %d\n\n", r.files)
	if len(r.findings) == 0 {
		_, _ = fmt.Fprintln(w, "No issues found.")
		_, _ = fmt.Fprintln(w)
		return
	}
	_, _ = fmt.Fprintf(w, "Potential issues: %d\n\n", len(r.findings))
	for _, f := range r.findings {
		_, _ = fmt.Fprintf(w, "%s:%d\n", f.file, f.line)
		_, _ = fmt.Fprintf(w, "  Line: %s\n", strings.TrimSpace(f.content))
		_, _ = fmt.Fprintf(w, "  Issue: %s\n\n", f.reason)
	}
}

// check is one scanner. dirs limits the walk; nil means the whole tree.
type check struct {
	name  string
	title string
	dirs  []string
	// exempt lists path suffixes that are skipped, with the reason
	exempt map[string]string
	scan   func(path string, lines []string) []finding
}

var checksByName = map[string]check{
	randCheck.name: randCheck,
	zeroCheck.name: zeroCheck,
	logCheck.name:  logCheck,
}

func (c check) run(root string) (report, error) {
	rep := report{title: c.title}
	dirs := c.dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	for _, dir := range dirs {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dirPath && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			for suffix := range c.exempt {
				if strings.HasSuffix(filepath.ToSlash(path), suffix) {
					return nil
				}
			}

			lines, err := readLines(path)
			if err != nil {
				return err
			}
			rep.files++
			rep.findings = append(rep.findings, c.scan(path, lines)...)
			return nil
		})
		if err != nil {
			return rep, fmt.Errorf("walking %s: %w", dir, err)
		}
	}
	return rep, nil
}

// skipDir excludes vendored, hidden, reference and analyzer trees.
func skipDir(name string) bool {
	switch name {
	case "vendor", "testdata", "analysis", "node_modules":
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "//")
}
