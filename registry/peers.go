// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"errors"

	"github.com/locksidian/locksidian-go/peer"
	"github.com/locksidian/locksidian-go/protoerr"
	"gorm.io/gorm"
)

// GetPeer returns the peer registered under identity, or nil if none.
func (r *Registry) GetPeer(identity string) (*peer.Peer, error) {
	var row peerRow
	err := r.db.First(&row, "identity = ?", identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to read peer")
	}

	return rowToPeer(row)
}

// GetAllPeers returns every known peer.
func (r *Registry) GetAllPeers() ([]*peer.Peer, error) {
	var rows []peerRow
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to list peers")
	}

	peers := make([]*peer.Peer, 0, len(rows))
	for _, row := range rows {
		p, err := rowToPeer(row)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, nil
}

// CountPeers returns the number of known peers.
func (r *Registry) CountPeers() (int64, error) {
	var count int64
	if err := r.db.Model(&peerRow{}).Count(&count).Error; err != nil {
		return 0, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to count peers")
	}
	return count, nil
}

// UpsertPeer inserts p if its identity is unknown, or updates the
// existing row's key/address/last_sent/last_recv otherwise. Exactly
// one row exists per identity after this call (spec §8 round-trip:
// registering the same peer twice leaves exactly one row).
func (r *Registry) UpsertPeer(p *peer.Peer) error {
	keyHex, err := p.KeyHex()
	if err != nil {
		return err
	}

	row := peerRow{
		Identity: p.Identity(),
		Key:      keyHex,
		Address:  p.Address(),
		LastSent: p.LastSent(),
		LastRecv: p.LastRecv(),
	}

	err = r.db.Save(&row).Error
	if err != nil {
		return protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to upsert peer")
	}
	return nil
}

// DeletePeer removes the peer registered under identity.
func (r *Registry) DeletePeer(identity string) error {
	if err := r.db.Delete(&peerRow{}, "identity = ?", identity).Error; err != nil {
		return protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to delete peer")
	}
	return nil
}

func rowToPeer(row peerRow) (*peer.Peer, error) {
	p, err := peer.New(row.Key, row.Address)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to reconstruct peer from stored key")
	}
	p.SetLastSent(row.LastSent)
	p.SetLastRecv(row.LastRecv)
	return p, nil
}
