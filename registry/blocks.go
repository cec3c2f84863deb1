// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"errors"

	"github.com/locksidian/locksidian-go/block"
	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/protoerr"
	"gorm.io/gorm"
)

// OrphanAdmissionWindow is the maximum number of blocks a fork block may
// trail behind HEAD and still be admitted (spec §4.5, §9 open
// question 2). The check is made by node.Coordinator.ReplicateBlock;
// SaveNext and SaveOrphan insert a block whatever its depth.
const OrphanAdmissionWindow = 5

// GetBlock returns the block stored under hash, or nil if absent
// (spec's NotFound is "content absent, not an error").
func (r *Registry) GetBlock(hash string) (*block.Block, error) {
	var row blockRow
	err := r.db.First(&row, "hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to read block")
	}

	return rowToBlock(row), nil
}

// GetAllBlocks returns every block in the registry.
func (r *Registry) GetAllBlocks() ([]*block.Block, error) {
	var rows []blockRow
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to list blocks")
	}

	blocks := make([]*block.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, rowToBlock(row))
	}
	return blocks, nil
}

// CountBlocks returns the number of blocks in the registry.
func (r *Registry) CountBlocks() (int64, error) {
	var count int64
	if err := r.db.Model(&blockRow{}).Count(&count).Error; err != nil {
		return 0, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to count blocks")
	}
	return count, nil
}

// FindByDataHash returns the block whose data_hash matches, or nil if
// none exists (spec §3 invariant 4: data_hash is unique).
func (r *Registry) FindByDataHash(dataHash string) (*block.Block, error) {
	var row blockRow
	err := r.db.First(&row, "data_hash = ?", dataHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to look up block by data hash")
	}

	return rowToBlock(row), nil
}

// GetHead returns the block of maximum height, or nil if the
// registry is empty (spec §3 invariant 6). Among blocks of equal
// height, one that some predecessor's next links to is preferred over
// an orphan.
func (r *Registry) GetHead() (*block.Block, error) {
	var row blockRow
	err := r.db.Order("height DESC").Order("hash IN (SELECT next FROM blocks) DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to read head")
	}

	return rowToBlock(row), nil
}

// SaveHead inserts newBlock as the registry's new head: if a current
// head exists with an empty Next, its Next is updated to newBlock's
// hash first. Both mutations happen inside one transaction, per spec
// §5's serializing-guard requirement for the predecessor-next update.
func (r *Registry) SaveHead(newBlock *block.Block) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if newBlock.Previous() != block.OriginPrevious {
			var predecessor blockRow
			err := tx.First(&predecessor, "hash = ?", newBlock.Previous()).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil && predecessor.Next == "" {
				if err := tx.Model(&blockRow{}).Where("hash = ?", predecessor.Hash).Update("next", newBlock.Hash()).Error; err != nil {
					return err
				}
			}
		}

		return tx.Create(blockToRow(newBlock)).Error
	})
}

// SaveNext links newBlock as previousHash's successor if previousHash
// is present locally and its Next is still empty, otherwise inserts
// newBlock standalone (an orphan). Both the read-check and the
// mutation happen under one transaction so concurrent insertions
// cannot both attach to the same Next slot (spec §5).
func (r *Registry) SaveNext(newBlock *block.Block, previousHash string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if previousHash != block.OriginPrevious {
			var predecessor blockRow
			err := tx.First(&predecessor, "hash = ?", previousHash).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil && predecessor.Next == "" {
				if err := tx.Model(&blockRow{}).Where("hash = ?", predecessor.Hash).Update("next", newBlock.Hash()).Error; err != nil {
					return err
				}
			}
		}

		return tx.Create(blockToRow(newBlock)).Error
	})
}

// SaveOrphan inserts newBlock without touching any predecessor's Next
// field, used when the predecessor already has a successor (spec
// §4.5 case 2) or is unknown locally (case 3).
func (r *Registry) SaveOrphan(newBlock *block.Block) error {
	if err := r.db.Create(blockToRow(newBlock)).Error; err != nil {
		return protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save orphan block")
	}
	return nil
}

// UpdateBlock persists changes to an already-stored block (in
// practice, only Next is ever mutated after acceptance).
func (r *Registry) UpdateBlock(b *block.Block) error {
	result := r.db.Model(&blockRow{}).Where("hash = ?", b.Hash()).Updates(map[string]any{"next": b.Next()})
	if result.Error != nil {
		return protoerr.Wrap(protoerr.KindRegistryWriteError, result.Error, "failed to update block")
	}
	if result.RowsAffected != 1 {
		return protoerr.Newf(protoerr.KindRowsAffectedMismatch, "expected to update 1 block row, updated %d", result.RowsAffected)
	}
	return nil
}

func rowToBlock(row blockRow) *block.Block {
	signature, _ := lscrypto.FromHex(row.Signature)
	return block.FromFields(
		[]byte(row.Data),
		row.DataHash,
		signature,
		row.Timestamp,
		row.Nonce,
		row.Previous,
		row.Hash,
		row.Height,
		row.Next,
		row.Author,
		row.ReceivedAt,
		row.ReceivedFrom,
	)
}

func blockToRow(b *block.Block) *blockRow {
	return &blockRow{
		Hash:         b.Hash(),
		Data:         string(b.Data()),
		DataHash:     b.DataHash(),
		Signature:    lscrypto.ToHex(b.Signature()),
		Timestamp:    b.Timestamp(),
		Nonce:        b.Nonce(),
		Previous:     b.Previous(),
		Height:       b.Height(),
		Next:         b.Next(),
		Author:       b.Author(),
		ReceivedAt:   b.ReceivedAt(),
		ReceivedFrom: b.ReceivedFrom(),
	}
}
