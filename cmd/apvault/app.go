// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aplane-algo/apvault/internal/command"
	"github.com/aplane-algo/apvault/internal/crypto"
	"github.com/aplane-algo/apvault/internal/jsapi"
	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/ledger/sqlite"
	"github.com/aplane-algo/apvault/internal/scripting"
	"github.com/aplane-algo/apvault/internal/util"
	"github.com/aplane-algo/apvault/internal/vault"
	"github.com/aplane-algo/apvault/internal/version"
)

// appConfig is everything needed to assemble an app.
type appConfig struct {
	DataDir    string
	Config     util.Config
	Passphrase []byte
	Logger     *slog.Logger
	Out        io.Writer

	// KDF overrides the Argon2id parameters for a new keystore (zero = default)
	KDF crypto.KDFParams
}

// app wires the ledger, vault manager, keystore and script runner together.
type app struct {
	dataDir string
	config  util.Config
	logger  *slog.Logger
	out     io.Writer
	styles  util.Styles

	ledger   *ledger.Ledger
	manager  *vault.Manager
	keys     *keystore.FileKeyStore
	runner   *scripting.GojaRunner
	registry *command.Registry
	metrics  *prometheus.Registry

	closeOnce sync.Once
}

func newApp(cfg appConfig) (*app, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}

	backend, err := openBackend(cfg.Config.Ledger)
	if err != nil {
		return nil, err
	}

	l, err := ledger.New(backend,
		ledger.WithParams(cfg.Config.Rent),
		ledger.WithLogger(cfg.Logger))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apvault",
		Name:      "build_info",
		Help:      "Build version of the running apvault.",
	}, []string{"version", "commit"})
	buildInfo.WithLabelValues(version.Version, version.Commit()).Set(1)
	reg.MustRegister(buildInfo)

	metrics, err := vault.NewMetrics(reg)
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	opts := []vault.Option{vault.WithLogger(cfg.Logger), vault.WithMetrics(metrics)}
	programID, err := cfg.Config.ProgramAddress()
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	if !programID.IsZero() {
		opts = append(opts, vault.WithProgramID(programID))
	}
	manager, err := vault.NewManager(l, opts...)
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	var ksOpts []keystore.Option
	if cfg.KDF != (crypto.KDFParams{}) {
		ksOpts = append(ksOpts, keystore.WithKDFParams(cfg.KDF))
	}
	keys, err := keystore.Open(util.KeysDir(cfg.DataDir), cfg.Passphrase, ksOpts...)
	crypto.ZeroBytes(cfg.Passphrase)
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	a := &app{
		dataDir: cfg.DataDir,
		config:  cfg.Config,
		logger:  cfg.Logger,
		out:     cfg.Out,
		styles:  util.StylesFor(cfg.Out),
		ledger:  l,
		manager: manager,
		keys:    keys,
		metrics: reg,
	}
	a.runner = scripting.NewGojaRunner(jsapi.Env{
		Manager: manager,
		Ledger:  l,
		Keys:    keys,
		Faucet:  cfg.Config.Faucet,
	})
	a.runner.SetOutput(func(s string) { a.println(s) })
	a.registry = a.initCommandRegistry()
	return a, nil
}

func openBackend(cfg util.LedgerConfig) (ledger.Backend, error) {
	switch cfg.Backend {
	case util.BackendMemory:
		return ledger.NewMemoryBackend(), nil
	case util.BackendSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// startBackground starts the config watcher and, if configured, the metrics server.
func (a *app) startBackground(ctx context.Context) error {
	path := util.GetConfigPath(a.dataDir)
	if err := util.WatchConfig(ctx, path, a.logger, a.applyConfig); err != nil {
		a.logger.Warn("config watcher disabled", "error", err)
	}
	if a.config.MetricsAddr != "" {
		if err := a.serveMetrics(ctx, a.config.MetricsAddr); err != nil {
			return err
		}
	}
	return nil
}

// applyConfig pushes reloadable settings into the running ledger.
func (a *app) applyConfig(c util.Config) {
	if err := a.ledger.SetParams(c.Rent); err != nil {
		a.logger.Warn("rent change rejected", "error", err)
	}
}

func (a *app) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	return mux
}

func (a *app) serveMetrics(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server: %w", err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	a.logger.Info("metrics listening", "addr", addr)
	return nil
}

// Close locks the keystore and closes the ledger.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		a.keys.Lock()
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("failed to close ledger", "error", err)
		}
	})
}

// resolve accepts an address or a stored key name.
func (a *app) resolve(nameOrAddr string) (types.Address, error) {
	if addr, err := types.DecodeAddress(nameOrAddr); err == nil {
		return addr, nil
	}
	meta, err := a.keys.Lookup(nameOrAddr)
	if err != nil {
		return types.Address{}, err
	}
	return meta.Address, nil
}

func (a *app) println(s string) {
	_, _ = fmt.Fprintln(a.out, s)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// formatError renders err with its vault kind and code when it has one.
func (a *app) formatError(err error) string {
	kind := vault.KindOf(err)
	if kind == vault.KindInternal || kind == vault.KindNone {
		return a.styles.Error("Error: ") + err.Error()
	}
	return a.styles.Error(fmt.Sprintf("Error [%s %d]: ", kind, vault.Code(err))) + err.Error()
}
