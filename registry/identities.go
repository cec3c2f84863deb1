// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"errors"

	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/protoerr"
	"gorm.io/gorm"
)

// Registry implements identity.Store.
var _ identity.Store = (*Registry)(nil)

// Get returns the identity entity stored under hash, or nil if none.
func (r *Registry) Get(hash string) (*identity.Entity, error) {
	var row identityRow
	err := r.db.First(&row, "hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to read identity")
	}

	return rowToIdentityEntity(row), nil
}

// GetAllIdentities returns every identity entity known to this node.
func (r *Registry) GetAllIdentities() ([]*identity.Entity, error) {
	var rows []identityRow
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to list identities")
	}

	entities := make([]*identity.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, rowToIdentityEntity(row))
	}
	return entities, nil
}

// CountIdentities returns the number of identities known to this node.
func (r *Registry) CountIdentities() (int64, error) {
	var count int64
	if err := r.db.Model(&identityRow{}).Count(&count).Error; err != nil {
		return 0, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to count identities")
	}
	return count, nil
}

// GetActive returns the single identity entity flagged active, or nil
// if none has been designated yet.
func (r *Registry) GetActive() (*identity.Entity, error) {
	var row identityRow
	err := r.db.First(&row, "active = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to read active identity")
	}

	return rowToIdentityEntity(row), nil
}

// Save inserts a new identity entity with the entity's own Active
// flag; it is never implicitly promoted — callers decide activation
// via UpdateAsActive.
func (r *Registry) Save(entity *identity.Entity) error {
	row := identityRow{Hash: entity.Hash, Keypair: entity.Keypair, Active: entity.Active}
	if err := r.db.Create(&row).Error; err != nil {
		return protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save identity")
	}
	return nil
}

// UpdateAsActive atomically clears every identity's active flag and
// sets it on the one identified by hash, preserving the
// at-most-one-active invariant (spec §9 open question 4: wrapped in an
// explicit transaction rather than left as two independent writes).
func (r *Registry) UpdateAsActive(hash string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&identityRow{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}

		result := tx.Model(&identityRow{}).Where("hash = ?", hash).Update("active", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return protoerr.Newf(protoerr.KindRowsAffectedMismatch, "expected to activate 1 identity row, activated %d", result.RowsAffected)
		}
		return nil
	})
}

func rowToIdentityEntity(row identityRow) *identity.Entity {
	return &identity.Entity{Hash: row.Hash, Keypair: row.Keypair, Active: row.Active}
}
