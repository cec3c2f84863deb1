// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import "github.com/btcsuite/btclog"

// log is the REGI subsystem logger.
var log btclog.Logger

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

func init() {
	DisableLog()
}

// DisableLog disables all library log output until UseLogger is called.
func DisableLog() {
	log = btclog.Disabled
}
