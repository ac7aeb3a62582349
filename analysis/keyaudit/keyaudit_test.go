// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestScanRand(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"crypto rand", "import \"crypto/rand\"\nfunc f() { rand.Read(b) }\n", 0},
		{"math rand import", "import \"math/rand\"\nfunc f() { rand.Intn(3) }\n", 2},
		{"math rand v2", "import mr \"math/rand/v2\"\n", 1},
		{"aliased call", "func f() { x := rand.Int63() }\n", 1},
		{"comment only", "// rand.Intn is not allowed here\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanRand("f.go", strings.Split(tt.src, "\n"))
			if len(got) != tt.want {
				t.Errorf("scanRand() = %d findings, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}

func TestScanZero(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{
			name: "zeroed",
			src: `func unlock() {
	masterKey := derive()
	defer ZeroBytes(masterKey)
}`,
			want: 0,
		},
		{
			name: "leaked",
			src: `func unlock() {
	masterKey := derive()
	use(masterKey)
}`,
			want: 1,
		},
		{
			name: "key zeroed by method",
			src: `func (a *app) cmd() error {
	key, err := a.keys.Get(name)
	if err != nil {
		return err
	}
	defer key.Zero()
	return nil
}`,
			want: 0,
		},
		{
			name: "exempt constructor",
			src: `func newKey(name string, private ed25519.PrivateKey) *Key {
	return &Key{private: private}
}`,
			want: 0,
		},
		{
			name: "second function checked separately",
			src: `func a() {
	defer ZeroBytes(x)
}
func b() {
	p := ed25519.NewKeyFromSeed(seed)
	_ = p
}`,
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanZero("f.go", strings.Split(tt.src, "\n"))
			if len(got) != tt.want {
				t.Errorf("scanZero() = %d findings, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}

func TestScanLog(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`logger.Info("unlocked", "seed", seed)`, true},
		{`fmt.Printf("%x\n", privateKey)`, true},
		{`fmt.Println(mnemonic)`, true},
		{`slog.Debug("key", "master_key", masterKey)`, true},
		{`logger.Info("deposit", "owner", owner, "amount", amount)`, false},
		{`fmt.Errorf("failed to read key file: %w", err)`, false},
		{`// fmt.Println(mnemonic)`, false},
		{`words := strings.Join(args, " ")`, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := len(scanLog("f.go", []string{tt.line})) > 0
			if got != tt.want {
				t.Errorf("scanLog(%q) flagged = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestCheckRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "internal/crypto/bad.go", "package crypto\n\nimport \"math/rand\"\n")
	writeFile(t, root, "internal/crypto/bad_test.go", "package crypto\n\nimport \"math/rand\"\n")
	writeFile(t, root, "internal/vault/ok.go", "package vault\n\nimport \"crypto/rand\"\n")
	writeFile(t, root, "_examples/x/internal/crypto/bad.go", "package crypto\n\nimport \"math/rand\"\n")
	writeFile(t, root, "cmd/apvault/commands.go", "package main\n\nfunc f() { fmt.Println(mnemonic) }\n")
	writeFile(t, root, "cmd/apvault/other.go", "package main\n\nfunc f() { fmt.Println(mnemonic) }\n")

	rep, err := randCheck.run(root)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if rep.files != 2 || len(rep.findings) != 1 {
		t.Fatalf("rand: files = %d findings = %d, want 2 and 1", rep.files, len(rep.findings))
	}
	if !strings.HasSuffix(rep.findings[0].file, filepath.Join("internal", "crypto", "bad.go")) {
		t.Errorf("finding file = %s", rep.findings[0].file)
	}

	rep, err = logCheck.run(root)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(rep.findings) != 1 || !strings.HasSuffix(rep.findings[0].file, "other.go") {
		t.Errorf("log findings = %+v, want only other.go", rep.findings)
	}

	var buf bytes.Buffer
	rep.write(&buf)
	if !strings.Contains(buf.String(), "Potential issues: 1") {
		t.Errorf("report = %q", buf.String())
	}
}

func TestChecksByName(t *testing.T) {
	for _, name := range []string{"rand", "zero", "log"} {
		if c, ok := checksByName[name]; !ok || c.scan == nil {
			t.Errorf("check %q missing", name)
		}
	}
}
