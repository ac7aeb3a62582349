// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package harness builds and drives the apvault binary for integration tests.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// Passphrase unlocks every harness keystore.
const Passphrase = "integration-passphrase"

var (
	buildOnce sync.Once
	buildPath string
	buildErr  error
)

// Build compiles cmd/apvault once per test binary.
func Build(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		root, err := findProjectRoot()
		if err != nil {
			buildErr = fmt.Errorf("failed to find project root: %w", err)
			return
		}
		dir, err := os.MkdirTemp("", "apvault-bin-")
		if err != nil {
			buildErr = err
			return
		}
		buildPath = filepath.Join(dir, "apvault")
		cmd := exec.Command("go", "build", "-o", buildPath, "./cmd/apvault")
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("failed to build apvault: %w\nOutput: %s", err, out)
		}
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return buildPath
}

// Apvault runs the apvault CLI against its own data directory.
type Apvault struct {
	t          *testing.T
	dataDir    string
	binaryPath string
	envVars    []string
}

// NewApvault creates a harness with a fresh data directory.
func NewApvault(t *testing.T) *Apvault {
	t.Helper()
	return &Apvault{
		t:          t,
		dataDir:    t.TempDir(),
		binaryPath: Build(t),
		envVars: []string{
			"APVAULT_PASSPHRASE=" + Passphrase,
			"APVAULT_DEBUG=",
		},
	}
}

// SetEnv adds an environment variable for every run.
func (a *Apvault) SetEnv(key, value string) {
	a.envVars = append(a.envVars, fmt.Sprintf("%s=%s", key, value))
}

// DataDir returns the harness data directory.
func (a *Apvault) DataDir() string {
	return a.dataDir
}

// WriteConfig writes config.yaml into the data directory.
func (a *Apvault) WriteConfig(yaml string) {
	a.t.Helper()
	if err := os.WriteFile(filepath.Join(a.dataDir, "config.yaml"), []byte(yaml), 0600); err != nil {
		a.t.Fatalf("failed to write config: %v", err)
	}
}

// Run executes apvault with args and returns stdout and stderr.
func (a *Apvault) Run(args ...string) (string, error) {
	return a.RunWithInput("", args...)
}

// RunWithInput executes apvault with stdin set to input.
func (a *Apvault) RunWithInput(input string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.binaryPath, append([]string{"-d", a.dataDir}, args...)...)
	cmd.Dir = a.dataDir
	cmd.Env = append(os.Environ(), a.envVars...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if testing.Verbose() {
		if stdout.Len() > 0 {
			a.t.Logf("apvault stdout: %s", stdout.String())
		}
		if stderr.Len() > 0 {
			a.t.Logf("apvault stderr: %s", stderr.String())
		}
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n" + stderr.String()
	}
	if err != nil {
		return output, fmt.Errorf("apvault command failed: %w\nOutput: %s", err, output)
	}
	return output, nil
}

// RunJS runs a script through -js with stdin as the source.
func (a *Apvault) RunJS(script string) (string, error) {
	return a.RunWithInput(script, "-js", "-")
}
