// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command locksidiand runs the Locksidian node: a permissionless P2P
// daemon that mines, stores and gossips notarized JSON documents, and
// exposes them over an HTTP API. It also carries the identity
// management sub-commands used to provision a node before its first
// run.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/node"
	"github.com/locksidian/locksidian-go/protocol/server"
	"github.com/locksidian/locksidian-go/registry"
)

const (
	packageName = "locksidian-go"
	version     = "0.1.0"

	defaultIdentityBits = 4096
	purgeInterval       = 1 * time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	switch {
	case opts.Trace:
		setLogLevel(btclog.LevelTrace)
		lsLog.Info("Logging in trace mode")
	case opts.Verbose:
		setLogLevel(btclog.LevelDebug)
		lsLog.Info("Logging using verbose mode")
	default:
		setLogLevel(btclog.LevelInfo)
	}

	if opts.Version {
		fmt.Printf("%s v%s\n", packageName, version)
		return nil
	}

	dataPath, err := dataDirPath(opts.DataDir)
	if err != nil {
		return err
	}

	switch {
	case opts.Identity != "":
		return runIdentityCLI(dataPath, func(store identity.Store) (string, error) {
			return identity.SetActiveIdentity(store, opts.Identity)
		})
	case opts.IdentityNew != "":
		bits := defaultIdentityBits
		if n, err := strconv.Atoi(opts.IdentityNew); err == nil {
			bits = n
		}
		return runIdentityCLI(dataPath, func(store identity.Store) (string, error) {
			return identity.GenerateNewIdentity(store, bits)
		})
	case opts.IdentityImport != "":
		pemHexBytes, err := os.ReadFile(opts.IdentityImport)
		if err != nil {
			return fmt.Errorf("failed to read PEM file: %w", err)
		}
		pemHex := strings.TrimSpace(string(pemHexBytes))
		return runIdentityCLI(dataPath, func(store identity.Store) (string, error) {
			return identity.ImportIdentity(store, pemHex)
		})
	case opts.IdentityExport != "":
		return runIdentityCLI(dataPath, func(store identity.Store) (string, error) {
			return identity.ExportIdentity(store, opts.IdentityExport)
		})
	}

	if opts.Daemon == "" {
		parser.WriteHelp(os.Stdout)
		return nil
	}

	return runDaemon(dataPath, opts)
}

// runIdentityCLI opens the registry, runs op against it and prints
// the resulting hash/PEM to stdout. Every identity sub-command follows
// this exact open-run-print-close shape.
func runIdentityCLI(dataPath string, op func(store identity.Store) (string, error)) error {
	reg, err := registry.Open(dataPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	result, err := op(reg)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func dataDirPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return registry.DefaultDatabasePath()
}

func runDaemon(dataPath string, opts Options) error {
	reg, err := registry.Open(dataPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	_, bindPort, err := net.SplitHostPort(opts.Daemon)
	if err != nil {
		return fmt.Errorf("invalid --daemon address %q: %w", opts.Daemon, err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStart()

	coordinator, err := node.New(startCtx, node.Config{
		Registry:  reg,
		Local:     opts.Local,
		Protected: opts.Protected,
		BindPort:  bindPort,
	})
	if err != nil {
		return err
	}

	if _, err := coordinator.ActiveIdentity(); err != nil {
		return fmt.Errorf("cannot start daemon: %w", err)
	}

	if opts.Entrypoint != "" {
		joinCtx, cancelJoin := context.WithTimeout(context.Background(), 10*time.Second)
		err := coordinator.Join(joinCtx, opts.Entrypoint)
		cancelJoin()
		if err != nil {
			return fmt.Errorf("failed to join entrypoint %s: %w", opts.Entrypoint, err)
		}
	}

	httpServer := server.New(opts.Daemon, coordinator)

	stopPurge := make(chan struct{})
	go purgeLoop(coordinator, stopPurge)
	defer close(stopPurge)

	serveErr := make(chan error, 1)
	go func() {
		lsLog.Infof("Locksidian daemon listening on %s (advertising %s)", opts.Daemon, coordinator.Address())
		serveErr <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-sigCh:
		lsLog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// purgeLoop periodically prunes peers that have gone stale, running
// for the lifetime of the daemon process.
func purgeLoop(coordinator *node.Coordinator, stop <-chan struct{}) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := coordinator.PurgePeers(ctx, server.DefaultPurgeMaxAge); err != nil {
				lsLog.Warnf("Peer purge failed: %v", err)
			}
			cancel()
		case <-stop:
			return
		}
	}
}
