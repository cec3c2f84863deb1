// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"testing"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/peer"
	"github.com/stretchr/testify/require"
)

func newTestPeer(t *testing.T, address string) *peer.Peer {
	t.Helper()

	key, err := lscrypto.GenerateRSAKey(2048)
	require.NoError(t, err)

	pub, err := key.PublicKey().ExportPublicPEM()
	require.NoError(t, err)

	p, err := peer.New(lscrypto.ToHex(pub), address)
	require.NoError(t, err)
	return p
}

func TestUpsertPeerTwiceLeavesExactlyOneRow(t *testing.T) {
	r := newTestRegistry(t)
	p := newTestPeer(t, "127.0.0.1:9000")

	require.NoError(t, r.UpsertPeer(p))

	p.SetLastSent(1000)
	p.SetLastRecv(2000)
	require.NoError(t, r.UpsertPeer(p))

	count, err := r.CountPeers()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	stored, err := r.GetPeer(p.Identity())
	require.NoError(t, err)
	require.Equal(t, int64(1000), stored.LastSent())
	require.Equal(t, int64(2000), stored.LastRecv())
}

func TestDeletePeerRemovesIt(t *testing.T) {
	r := newTestRegistry(t)
	p := newTestPeer(t, "127.0.0.1:9000")

	require.NoError(t, r.UpsertPeer(p))
	require.NoError(t, r.DeletePeer(p.Identity()))

	stored, err := r.GetPeer(p.Identity())
	require.NoError(t, err)
	require.Nil(t, stored)
}
