// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/locksidian/locksidian-go/block"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/node"
	"github.com/locksidian/locksidian-go/peer"
	"github.com/locksidian/locksidian-go/protocol/server"
	"github.com/locksidian/locksidian-go/registry"
)

// logWriter implements io.Writer, fanning out to both stdout and an
// optional rotated log file, mirroring the btcd-family daemon idiom.
type logWriter struct {
	rotator *rotator.Rotator
}

func (w logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.rotator != nil {
		w.rotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = btclog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	lsLog = backendLog.Logger("LSDN")
)

func init() {
	node.UseLogger(backendLog.Logger("NODE"))
	block.UseLogger(backendLog.Logger("BLOK"))
	peer.UseLogger(backendLog.Logger("PEER"))
	registry.UseLogger(backendLog.Logger("REGI"))
	identity.UseLogger(backendLog.Logger("IDEN"))
	server.UseLogger(backendLog.Logger("PROT"))
}

// initLogRotator opens logFile for rotated, append-mode writing and
// attaches it to the process-wide log writer. Must be called before
// any logging occurs in daemon mode.
func initLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	backendLog = btclog.NewBackend(logWriter{rotator: r})
	setLogLevel(currentLevel)
	return nil
}

var currentLevel = btclog.LevelInfo

// setLogLevel reassigns every subsystem logger to a freshly built
// logger at level, used both at startup and after initLogRotator
// swaps out backendLog.
func setLogLevel(level btclog.Level) {
	currentLevel = level

	lsLog = backendLog.Logger("LSDN")
	lsLog.SetLevel(level)

	for _, l := range []btclog.Logger{
		backendLog.Logger("NODE"),
		backendLog.Logger("BLOK"),
		backendLog.Logger("PEER"),
		backendLog.Logger("REGI"),
		backendLog.Logger("IDEN"),
		backendLog.Logger("PROT"),
	} {
		l.SetLevel(level)
	}

	node.UseLogger(backendLog.Logger("NODE"))
	block.UseLogger(backendLog.Logger("BLOK"))
	peer.UseLogger(backendLog.Logger("PEER"))
	registry.UseLogger(backendLog.Logger("REGI"))
	identity.UseLogger(backendLog.Logger("IDEN"))
	server.UseLogger(backendLog.Logger("PROT"))
}
