// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package identity

import (
	"fmt"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
)

// ErrNoActiveIdentity is returned when a node attempts to operate
// without ever having designated an active identity.
var ErrNoActiveIdentity = fmt.Errorf("locksidian node cannot operate without an active identity")

// GetActiveIdentity loads the currently active identity from store,
// reconstructing its keypair and verifying its fingerprint.
func GetActiveIdentity(store Store) (*Identity, error) {
	entity, err := store.GetActive()
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNoActiveIdentity
	}

	return entityToIdentity(entity)
}

// SetActiveIdentity marks the identity identified by hash as the
// node's active one. The store is responsible for making the
// clear-then-set transition atomic.
func SetActiveIdentity(store Store, hash string) (string, error) {
	entity, err := store.Get(hash)
	if err != nil {
		return "", err
	}
	if entity == nil {
		return "", fmt.Errorf("unknown identity hash: %s", hash)
	}

	if err := store.UpdateAsActive(hash); err != nil {
		return "", err
	}

	log.Infof("Identity %s is now active", hash)
	return hash, nil
}

// GenerateNewIdentity creates a new RSA keypair of the given bit size,
// persists it, and marks it as the node's active identity.
func GenerateNewIdentity(store Store, bits int) (string, error) {
	id, err := Generate(bits)
	if err != nil {
		return "", err
	}

	entity, err := identityToEntity(id)
	if err != nil {
		return "", err
	}

	if err := store.Save(entity); err != nil {
		return "", err
	}
	if err := store.UpdateAsActive(id.Hash()); err != nil {
		return "", err
	}

	log.Infof("Generated new %d-bit identity %s", bits, id.Hash())
	return id.Hash(), nil
}

// ImportIdentity loads the hex-encoded PEM private key given as pemHex
// (the contents of a PEM file, read by the caller), rejecting the
// import if that fingerprint already exists
// on this node. The imported identity is stored inactive: callers must
// explicitly call SetActiveIdentity to promote it.
func ImportIdentity(store Store, pemHex string) (string, error) {
	pem, err := lscrypto.FromHex(pemHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode PEM hex: %w", err)
	}

	key, err := lscrypto.RSAKeyFromPrivatePEM(pem, "")
	if err != nil {
		return "", err
	}

	id, err := FromKey(key)
	if err != nil {
		return "", err
	}

	existing, err := store.Get(id.Hash())
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("this identity is already configured on this node: %s", id.Hash())
	}

	entity, err := identityToEntity(id)
	if err != nil {
		return "", err
	}

	if err := store.Save(entity); err != nil {
		return "", err
	}

	log.Infof("Imported identity %s (inactive)", id.Hash())
	return id.Hash(), nil
}

// ExportIdentity returns the hex-encoded PEM private key of the
// identity identified by hash.
func ExportIdentity(store Store, hash string) (string, error) {
	entity, err := store.Get(hash)
	if err != nil {
		return "", err
	}
	if entity == nil {
		return "", fmt.Errorf("the specified identity does not exist: %s", hash)
	}

	return entity.Keypair, nil
}

func identityToEntity(id *Identity) (*Entity, error) {
	pem, err := id.Key().ExportPrivatePEM("")
	if err != nil {
		return nil, fmt.Errorf("failed to export private key: %w", err)
	}

	return &Entity{
		Hash:    id.Hash(),
		Keypair: lscrypto.ToHex(pem),
		Active:  id.Active(),
	}, nil
}

// FromEntity reconstructs an Identity from its persisted Entity,
// verifying the stored fingerprint still matches the keypair.
func FromEntity(entity *Entity) (*Identity, error) {
	return entityToIdentity(entity)
}

func entityToIdentity(entity *Entity) (*Identity, error) {
	pem, err := lscrypto.FromHex(entity.Keypair)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored keypair: %w", err)
	}

	id, err := Restore(pem, "", entity.Hash)
	if err != nil {
		return nil, err
	}

	id.SetActiveFlag(entity.Active)
	return id, nil
}
