// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

// blockRow is the gorm-mapped row for the blocks table, matching
// spec §6's schema exactly.
type blockRow struct {
	Hash         string `gorm:"column:hash;primaryKey"`
	Data         string `gorm:"column:data"`
	DataHash     string `gorm:"column:data_hash;uniqueIndex"`
	Signature    string `gorm:"column:signature"`
	Timestamp    int64  `gorm:"column:timestamp"`
	Nonce        uint32 `gorm:"column:nonce"`
	Previous     string `gorm:"column:previous;index"`
	Height       uint64 `gorm:"column:height;index"`
	Next         string `gorm:"column:next;default:''"`
	Author       string `gorm:"column:author"`
	ReceivedAt   int64  `gorm:"column:received_at"`
	ReceivedFrom string `gorm:"column:received_from"`
}

func (blockRow) TableName() string { return "blocks" }

// peerRow is the gorm-mapped row for the peers table.
type peerRow struct {
	Identity string `gorm:"column:identity;primaryKey"`
	Key      string `gorm:"column:key"`
	Address  string `gorm:"column:address"`
	LastSent int64  `gorm:"column:last_sent"`
	LastRecv int64  `gorm:"column:last_recv"`
}

func (peerRow) TableName() string { return "peers" }

// identityRow is the gorm-mapped row for the identities table.
type identityRow struct {
	Hash    string `gorm:"column:hash;primaryKey"`
	Keypair string `gorm:"column:keypair"`
	Active  bool   `gorm:"column:active"`
}

func (identityRow) TableName() string { return "identities" }
