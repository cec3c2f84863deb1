// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package protocol defines the remote operations a node performs
// against a peer (registration, gossip, chain sync) as an interface,
// so the node coordinator can be driven by either a real HTTP
// implementation or, in tests, an in-memory stub (spec §9).
package protocol

import (
	"context"

	"github.com/locksidian/locksidian-go/block"
	"github.com/locksidian/locksidian-go/peer"
)

// Client is the set of remote calls the node coordinator issues
// against a single peer.
type Client interface {
	// CheckVersion reports whether the remote peer's protocol version
	// is compatible with ours.
	CheckVersion(ctx context.Context) (bool, error)

	// Register performs the registration handshake, returning the
	// remote peer's own PeerDto on success.
	Register(ctx context.Context, self peer.DTO) (peer.DTO, error)

	// GetPeers returns the remote peer's full known peer list.
	GetPeers(ctx context.Context) ([]peer.DTO, error)

	// Replicate sends a block to the remote peer for acceptance.
	Replicate(ctx context.Context, dto block.ReplicationDTO) error

	// GetHead returns the remote peer's current HEAD hash.
	GetHead(ctx context.Context) (string, error)

	// GetBlock fetches the block identified by hash, reporting found
	// = false rather than an error if the remote peer doesn't have it.
	GetBlock(ctx context.Context, hash string) (dto block.DTO, found bool, err error)

	// Address returns the address this client talks to. The node
	// coordinator excludes the delivering peer from propagation by its
	// identity, not through this method.
	Address() string
}
