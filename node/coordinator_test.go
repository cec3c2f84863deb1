// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"strconv"
	"testing"

	"github.com/locksidian/locksidian-go/block"
	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/peer"
	"github.com/locksidian/locksidian-go/protocol"
	"github.com/locksidian/locksidian-go/protoerr"
	"github.com/stretchr/testify/require"
)

// fakeRegistry is a minimal in-memory stand-in for *registry.Registry,
// enough to exercise coordinator logic without a real SQLite file.
type fakeRegistry struct {
	identities map[string]*identity.Entity
	active     string

	blocks map[string]*block.Block
	peers  map[string]*peer.Peer
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		identities: make(map[string]*identity.Entity),
		blocks:     make(map[string]*block.Block),
		peers:      make(map[string]*peer.Peer),
	}
}

func (f *fakeRegistry) Get(hash string) (*identity.Entity, error) { return f.identities[hash], nil }

func (f *fakeRegistry) GetActive() (*identity.Entity, error) {
	if f.active == "" {
		return nil, nil
	}
	return f.identities[f.active], nil
}

func (f *fakeRegistry) Save(entity *identity.Entity) error {
	f.identities[entity.Hash] = entity
	return nil
}

func (f *fakeRegistry) UpdateAsActive(hash string) error {
	if _, ok := f.identities[hash]; !ok {
		return protoerr.New(protoerr.KindNotFound, "unknown identity")
	}
	f.active = hash
	return nil
}

func (f *fakeRegistry) GetAllIdentities() ([]*identity.Entity, error) {
	out := make([]*identity.Entity, 0, len(f.identities))
	for _, e := range f.identities {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRegistry) CountIdentities() (int64, error) { return int64(len(f.identities)), nil }

func (f *fakeRegistry) GetBlock(hash string) (*block.Block, error) { return f.blocks[hash], nil }

func (f *fakeRegistry) GetAllBlocks() ([]*block.Block, error) {
	out := make([]*block.Block, 0, len(f.blocks))
	for _, b := range f.blocks {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRegistry) CountBlocks() (int64, error) { return int64(len(f.blocks)), nil }

func (f *fakeRegistry) FindByDataHash(dataHash string) (*block.Block, error) {
	for _, b := range f.blocks {
		if b.DataHash() == dataHash {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeRegistry) GetHead() (*block.Block, error) {
	var head *block.Block
	for _, b := range f.blocks {
		if head == nil || b.Height() > head.Height() {
			head = b
		}
	}
	return head, nil
}

func (f *fakeRegistry) SaveHead(newBlock *block.Block) error {
	if newBlock.Previous() != block.OriginPrevious {
		if predecessor, ok := f.blocks[newBlock.Previous()]; ok && predecessor.Next() == "" {
			predecessor.SetNext(newBlock.Hash())
		}
	}
	f.blocks[newBlock.Hash()] = newBlock
	return nil
}

func (f *fakeRegistry) SaveNext(newBlock *block.Block, previousHash string) error {
	if predecessor, ok := f.blocks[previousHash]; ok && predecessor.Next() == "" {
		predecessor.SetNext(newBlock.Hash())
	}
	f.blocks[newBlock.Hash()] = newBlock
	return nil
}

func (f *fakeRegistry) SaveOrphan(newBlock *block.Block) error {
	f.blocks[newBlock.Hash()] = newBlock
	return nil
}

func (f *fakeRegistry) UpdateBlock(b *block.Block) error {
	f.blocks[b.Hash()] = b
	return nil
}

func (f *fakeRegistry) GetPeer(id string) (*peer.Peer, error) { return f.peers[id], nil }

func (f *fakeRegistry) GetAllPeers() ([]*peer.Peer, error) {
	out := make([]*peer.Peer, 0, len(f.peers))
	for _, p := range f.peers {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRegistry) CountPeers() (int64, error) { return int64(len(f.peers)), nil }

func (f *fakeRegistry) UpsertPeer(p *peer.Peer) error {
	f.peers[p.Identity()] = p
	return nil
}

func (f *fakeRegistry) DeletePeer(id string) error {
	delete(f.peers, id)
	return nil
}

var _ Registry = (*fakeRegistry)(nil)

func newTestCoordinator(t *testing.T, dial Dialer) (*Coordinator, *fakeRegistry, *identity.Identity) {
	t.Helper()

	reg := newFakeRegistry()

	id, err := identity.Generate(2048)
	require.NoError(t, err)

	pem, err := id.Key().ExportPrivatePEM("")
	require.NoError(t, err)
	require.NoError(t, reg.Save(&identity.Entity{Hash: id.Hash(), Keypair: lscrypto.ToHex(pem)}))
	require.NoError(t, reg.UpdateAsActive(id.Hash()))

	c, err := New(context.Background(), Config{
		Registry: reg,
		Dial:     dial,
		Resolver: StaticResolver{Address: "127.0.0.1:9999"},
		Local:    true,
	})
	require.NoError(t, err)

	return c, reg, id
}

func TestStoreDocumentMinesAndSavesFirstBlock(t *testing.T) {
	c, reg, _ := newTestCoordinator(t, nil)

	b, err := c.StoreDocument(context.Background(), []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	require.Equal(t, uint64(1), b.Height())
	require.True(t, b.IsOrigin())

	stored, err := reg.GetBlock(b.Hash())
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestStoreDocumentRejectsDuplicate(t *testing.T) {
	c, _, _ := newTestCoordinator(t, nil)

	_, err := c.StoreDocument(context.Background(), []byte(`{"a":1}`))
	require.NoError(t, err)

	_, err = c.StoreDocument(context.Background(), []byte(`{"a":1}`))
	require.Error(t, err)

	protoErr, ok := protoerr.As(err)
	require.True(t, ok)
	require.Equal(t, protoerr.KindDuplicateDocument, protoErr.Kind)
}

func stubDialer(address string) protocol.Client { return protocol.NewStub(address) }

func TestReplicateBlockRejectsUnknownAuthor(t *testing.T) {
	c, _, _ := newTestCoordinator(t, stubDialer)

	remoteAuthor, err := identity.Generate(2048)
	require.NoError(t, err)

	remoteBlock, err := block.New([]byte(`{"x":1}`), remoteAuthor.Hash(), remoteAuthor.Sign, block.EmptyHead)
	require.NoError(t, err)

	_, err = c.ReplicateBlock(context.Background(), remoteBlock.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.1:8080")
	require.Error(t, err)

	protoErr, ok := protoerr.As(err)
	require.True(t, ok)
	require.Equal(t, protoerr.KindUnknownAuthor, protoErr.Kind)
}

func TestReplicateBlockAcceptsKnownAuthorAsNewHead(t *testing.T) {
	c, reg, _ := newTestCoordinator(t, stubDialer)

	remoteAuthor, err := identity.Generate(2048)
	require.NoError(t, err)

	remotePEM, err := remoteAuthor.Key().ExportPublicPEM()
	require.NoError(t, err)
	remotePeer, err := peer.New(lscrypto.ToHex(remotePEM), "203.0.113.5:8080")
	require.NoError(t, err)
	require.NoError(t, reg.UpsertPeer(remotePeer))

	remoteBlock, err := block.New([]byte(`{"x":1}`), remoteAuthor.Hash(), remoteAuthor.Sign, block.EmptyHead)
	require.NoError(t, err)

	shouldSync, err := c.ReplicateBlock(context.Background(), remoteBlock.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.5:8080")
	require.NoError(t, err)
	require.False(t, shouldSync)

	head, err := reg.GetHead()
	require.NoError(t, err)
	require.Equal(t, remoteBlock.Hash(), head.Hash())
}

func TestReplicateBlockWithUnknownPredecessorTriggersSync(t *testing.T) {
	c, reg, _ := newTestCoordinator(t, stubDialer)

	remoteAuthor, err := identity.Generate(2048)
	require.NoError(t, err)

	remotePEM, err := remoteAuthor.Key().ExportPublicPEM()
	require.NoError(t, err)
	remotePeer, err := peer.New(lscrypto.ToHex(remotePEM), "203.0.113.5:8080")
	require.NoError(t, err)
	require.NoError(t, reg.UpsertPeer(remotePeer))

	first, err := block.New([]byte(`{"x":1}`), remoteAuthor.Hash(), remoteAuthor.Sign, block.EmptyHead)
	require.NoError(t, err)
	second, err := block.New([]byte(`{"x":2}`), remoteAuthor.Hash(), remoteAuthor.Sign, block.Head{Hash: first.Hash(), Height: first.Height()})
	require.NoError(t, err)

	shouldSync, err := c.ReplicateBlock(context.Background(), second.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.5:8080")
	require.NoError(t, err)
	require.True(t, shouldSync)
}

func TestReplicateBlockRejectsDuplicateDataHash(t *testing.T) {
	c, reg, _ := newTestCoordinator(t, stubDialer)

	remoteAuthor, err := identity.Generate(2048)
	require.NoError(t, err)

	remotePEM, err := remoteAuthor.Key().ExportPublicPEM()
	require.NoError(t, err)
	remotePeer, err := peer.New(lscrypto.ToHex(remotePEM), "203.0.113.5:8080")
	require.NoError(t, err)
	require.NoError(t, reg.UpsertPeer(remotePeer))

	b, err := block.New([]byte(`{"x":1}`), remoteAuthor.Hash(), remoteAuthor.Sign, block.EmptyHead)
	require.NoError(t, err)

	_, err = c.ReplicateBlock(context.Background(), b.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.5:8080")
	require.NoError(t, err)

	_, err = c.ReplicateBlock(context.Background(), b.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.5:8080")
	require.Error(t, err)

	protoErr, ok := protoerr.As(err)
	require.True(t, ok)
	require.Equal(t, protoerr.KindDuplicateDocument, protoErr.Kind)
}

// TestReplicateBlockRejectsForkBeyondAdmissionWindow covers spec
// scenario S6: a predecessor that already has a successor (a fork) is
// only admitted as an orphan while it trails HEAD by no more than
// OrphanAdmissionWindow blocks; a deeper fork must be rejected, unlike
// an unknown-predecessor orphan which has no such limit.
func TestReplicateBlockRejectsForkBeyondAdmissionWindow(t *testing.T) {
	c, reg, _ := newTestCoordinator(t, stubDialer)

	remoteAuthor, err := identity.Generate(2048)
	require.NoError(t, err)

	remotePEM, err := remoteAuthor.Key().ExportPublicPEM()
	require.NoError(t, err)
	remotePeer, err := peer.New(lscrypto.ToHex(remotePEM), "203.0.113.5:8080")
	require.NoError(t, err)
	require.NoError(t, reg.UpsertPeer(remotePeer))

	head := block.EmptyHead
	var forkPoint *block.Block
	chainLength := OrphanAdmissionWindow + 5
	for i := 0; i < chainLength; i++ {
		b, err := block.New([]byte(`{"x":`+strconv.Itoa(i)+`}`), remoteAuthor.Hash(), remoteAuthor.Sign, head)
		require.NoError(t, err)

		_, err = c.ReplicateBlock(context.Background(), b.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.5:8080")
		require.NoError(t, err)

		head = block.Head{Hash: b.Hash(), Height: b.Height()}
		if i == 0 {
			forkPoint = b
		}
	}

	// forkPoint already has a successor (the chain above continued past
	// it), so a sibling block replicated on top of it is a fork that
	// now trails HEAD by more than OrphanAdmissionWindow.
	sibling, err := block.New([]byte(`{"x":"sibling"}`), remoteAuthor.Hash(), remoteAuthor.Sign, block.Head{Hash: forkPoint.Hash(), Height: forkPoint.Height()})
	require.NoError(t, err)

	_, err = c.ReplicateBlock(context.Background(), sibling.ToReplicationDTO(remoteAuthor.Hash()), "203.0.113.5:8080")
	require.Error(t, err)

	protoErr, ok := protoerr.As(err)
	require.True(t, ok)
	require.Equal(t, protoerr.KindInvalidInput, protoErr.Kind)
}

func TestPurgePeersRemovesUnresponsivePeer(t *testing.T) {
	stub := protocol.NewStub("203.0.113.9:8080")
	stub.SetVersion(ProtocolVersion + 1)

	c, reg, _ := newTestCoordinator(t, func(address string) protocol.Client { return stub })

	deadPeer, err := peer.New(mustPublicKeyHex(t), "203.0.113.9:8080")
	require.NoError(t, err)
	deadPeer.SetLastRecv(0)
	require.NoError(t, reg.UpsertPeer(deadPeer))

	require.NoError(t, c.PurgePeers(context.Background(), 1))

	remaining, err := reg.GetAllPeers()
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func mustPublicKeyHex(t *testing.T) string {
	t.Helper()
	key, err := lscrypto.GenerateRSAKey(2048)
	require.NoError(t, err)
	pem, err := key.ExportPublicPEM()
	require.NoError(t, err)
	return lscrypto.ToHex(pem)
}
