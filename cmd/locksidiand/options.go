// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

// Options holds every startup flag and environment variable the
// daemon accepts, grounded on the reference implementation's opts.rs
// flag surface.
type Options struct {
	Version bool `short:"v" long:"version" description:"Display version information and exit"`

	Verbose bool `long:"verbose" description:"Log at debug level"`
	Trace   bool `long:"trace" description:"Log at trace level"`

	Daemon     string `short:"d" long:"daemon" env:"LS_DAEMON" description:"Start the Locksidian daemon, listening on the given address" value-name:"LISTEN_ADDR"`
	Local      bool   `long:"local" description:"Advertise 127.0.0.1 with the daemon's port instead of discovering a public IP (only meaningful with --daemon)"`
	Protected  bool   `short:"p" long:"protected" description:"Require a valid signature on POST /blocks (only meaningful with --daemon)"`
	Entrypoint string `short:"e" long:"entrypoint" description:"Address of an existing node to join on startup" value-name:"PEER_ADDR"`

	Identity       string `short:"i" long:"identity" description:"Switch the active node identity" value-name:"IDENTITY_HASH"`
	IdentityNew    string `long:"identity-new" description:"Generate a new identity (RSA key size in bits)" value-name:"BIT_SIZE"`
	IdentityImport string `long:"identity-import" description:"Import the PEM-encoded RSA keypair at the given path as a new, inactive identity" value-name:"PATH_TO_PEM_FILE"`
	IdentityExport string `long:"identity-export" description:"Export the specified identity's keypair to stdout" value-name:"IDENTITY_HASH"`

	DataDir string `long:"datadir" description:"Path to the node's SQLite database file (defaults to the platform data directory)" value-name:"PATH"`
}
