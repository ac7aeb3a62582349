// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/util"
	"github.com/aplane-algo/apvault/internal/version"
)

func main() {
	printVersion := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("d", "", "Data directory (default: ~/.apvault or APVAULT_DATA)")
	jsScript := flag.String("js", "", "Execute JavaScript script file (use '-' for stdin)")
	jsExpr := flag.String("e", "", "Execute JavaScript expression")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address (overrides config)")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Resolve data directory: -d flag > APVAULT_DATA env var > ~/.apvault
	resolvedDataDir := util.GetDataDir(*dataDir)
	if resolvedDataDir == "" {
		fmt.Fprintln(os.Stderr, "Error: Could not determine data directory")
		fmt.Fprintln(os.Stderr, "Use -d <path> or set APVAULT_DATA environment variable")
		os.Exit(1)
	}
	if err := os.MkdirAll(resolvedDataDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger()

	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		config.MetricsAddr = *metricsAddr
	}

	keysDir := util.KeysDir(resolvedDataDir)
	prompt := "Keystore passphrase: "
	if !keystore.Initialized(keysDir) {
		prompt = "New keystore passphrase: "
	}
	passphrase, err := keystore.ReadPassphrase(prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(appConfig{
		DataDir:    resolvedDataDir,
		Config:     config,
		Passphrase: passphrase,
		Logger:     logger,
		Out:        os.Stdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.startBackground(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	exitCode := 0
	switch {
	case *jsExpr != "":
		exitCode = a.runJS(ctx, *jsExpr)
	case *jsScript != "":
		exitCode = a.runJSFile(ctx, *jsScript)
	default:
		a.startREPL(ctx)
	}

	a.Close()
	os.Exit(exitCode)
}
