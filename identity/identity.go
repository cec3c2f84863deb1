// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package identity models the RSA keypair plus fingerprint a node
// authors blocks under, and the single-active-identity invariant the
// registry enforces across process restarts.
package identity

import (
	"fmt"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
)

// ErrHashMismatch is returned when a loaded identity's recomputed
// fingerprint disagrees with the one it was stored under. This is
// always a fatal condition for that identity: the registry row has
// been corrupted or tampered with.
type ErrHashMismatch struct {
	Stored     string
	Recomputed string
}

func (e ErrHashMismatch) Error() string {
	return fmt.Sprintf("identity hash mismatch: stored %s, recomputed %s", e.Stored, e.Recomputed)
}

// Identity is an RSA keypair plus the fingerprint derived from its
// public key, the unit under which a node authors and signs blocks.
type Identity struct {
	hash   string
	key    *lscrypto.RSAKey
	active bool
}

// FromKey derives the identity's fingerprint from key's public half.
func FromKey(key *lscrypto.RSAKey) (*Identity, error) {
	pem, err := key.ExportPublicPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	return &Identity{
		hash: lscrypto.Fingerprint(pem),
		key:  key,
	}, nil
}

// Generate creates a brand-new RSA keypair of the given bit size and
// derives its identity.
func Generate(bits int) (*Identity, error) {
	key, err := lscrypto.GenerateRSAKey(bits)
	if err != nil {
		return nil, err
	}

	return FromKey(key)
}

// Restore reconstructs an Identity from a persisted private key PEM
// and its previously-stored fingerprint, failing with ErrHashMismatch
// if the two disagree.
func Restore(privatePEM []byte, passphrase, storedHash string) (*Identity, error) {
	key, err := lscrypto.RSAKeyFromPrivatePEM(privatePEM, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	id, err := FromKey(key)
	if err != nil {
		return nil, err
	}

	if id.hash != storedHash {
		return nil, ErrHashMismatch{Stored: storedHash, Recomputed: id.hash}
	}

	return id, nil
}

// Hash returns the identity's fingerprint.
func (i *Identity) Hash() string {
	return i.hash
}

// Key returns the identity's keypair.
func (i *Identity) Key() *lscrypto.RSAKey {
	return i.key
}

// Active reports whether this identity is currently the node's active
// signing identity.
func (i *Identity) Active() bool {
	return i.active
}

// SetActiveFlag mutates the in-memory active flag; callers persisting
// the transition must go through the registry's UpdateAsActive, which
// is the only place the single-active invariant is actually enforced.
func (i *Identity) SetActiveFlag(active bool) {
	i.active = active
}

// Sign signs data under this identity's private key.
func (i *Identity) Sign(data []byte) ([]byte, error) {
	return i.key.Sign(data)
}
