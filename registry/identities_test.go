// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"testing"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/stretchr/testify/require"
)

func TestUpdateAsActiveIsSingleWriter(t *testing.T) {
	r := newTestRegistry(t)

	first, err := identity.Generate(2048)
	require.NoError(t, err)
	second, err := identity.Generate(2048)
	require.NoError(t, err)

	for _, id := range []*identity.Identity{first, second} {
		pem, err := id.Key().ExportPrivatePEM("")
		require.NoError(t, err)
		require.NoError(t, r.Save(&identity.Entity{Hash: id.Hash(), Keypair: lscrypto.ToHex(pem)}))
	}

	require.NoError(t, r.UpdateAsActive(first.Hash()))
	active, err := r.GetActive()
	require.NoError(t, err)
	require.Equal(t, first.Hash(), active.Hash)

	require.NoError(t, r.UpdateAsActive(second.Hash()))
	active, err = r.GetActive()
	require.NoError(t, err)
	require.Equal(t, second.Hash(), active.Hash)

	firstEntity, err := r.Get(first.Hash())
	require.NoError(t, err)
	require.False(t, firstEntity.Active)
}

func TestGetActiveReturnsNilWhenUnset(t *testing.T) {
	r := newTestRegistry(t)

	active, err := r.GetActive()
	require.NoError(t, err)
	require.Nil(t, active)
}
