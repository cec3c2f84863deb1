// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer models the remote nodes a Locksidian node knows about:
// their public key, advertised address, and the liveness timestamps
// used to decide when to purge them.
package peer

import (
	"fmt"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
)

// Peer is a remote node's public key, advertised address, and
// liveness bookkeeping.
type Peer struct {
	identity string
	key      *lscrypto.RSAKey
	address  string

	lastSent int64
	lastRecv int64
}

// New builds a Peer from a hex-encoded PEM public key and an
// advertised address, deriving the identity fingerprint from the key.
func New(keyHex, address string) (*Peer, error) {
	pem, err := lscrypto.FromHex(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid peer key hex: %w", err)
	}

	key, err := lscrypto.RSAKeyFromPublicPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("invalid peer public key: %w", err)
	}

	pemBytes, err := key.ExportPublicPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to re-export peer public key: %w", err)
	}

	return &Peer{
		identity: lscrypto.Fingerprint(pemBytes),
		key:      key,
		address:  address,
	}, nil
}

// Identity returns the peer's fingerprint.
func (p *Peer) Identity() string { return p.identity }

// Key returns the peer's public key.
func (p *Peer) Key() *lscrypto.RSAKey { return p.key }

// Address returns the peer's advertised host:port.
func (p *Peer) Address() string { return p.address }

// LastSent returns the millisecond timestamp of the last request sent
// to this peer.
func (p *Peer) LastSent() int64 { return p.lastSent }

// LastRecv returns the millisecond timestamp of the last request
// received from this peer.
func (p *Peer) LastRecv() int64 { return p.lastRecv }

// SetLastSent records that a request was just sent to this peer.
func (p *Peer) SetLastSent(timestamp int64) { p.lastSent = timestamp }

// SetLastRecv records that a request was just received from this peer.
func (p *Peer) SetLastRecv(timestamp int64) { p.lastRecv = timestamp }

// KeyHex returns the peer's public key re-exported as hex-encoded PEM,
// the wire representation used by PeerDto.
func (p *Peer) KeyHex() (string, error) {
	pem, err := p.key.ExportPublicPEM()
	if err != nil {
		return "", err
	}
	return lscrypto.ToHex(pem), nil
}
