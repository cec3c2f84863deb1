// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/locksidian/locksidian-go/block"
	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/peer"
	"github.com/locksidian/locksidian-go/protoerr"
	"github.com/stretchr/testify/require"
)

// fakeCoordinator is a minimal stand-in for *node.Coordinator, enough
// to exercise routing, status mapping and the protected-mode gate.
type fakeCoordinator struct {
	protected bool
	active    *identity.Identity

	head  *block.Block
	block *block.Block

	storeErr     error
	replicateErr error

	peers      []peer.DTO
	registerIn peer.DTO

	identities []*identity.Identity
}

func (f *fakeCoordinator) Address() string { return "127.0.0.1:8080" }
func (f *fakeCoordinator) Protected() bool { return f.protected }
func (f *fakeCoordinator) ActiveIdentity() (*identity.Identity, error) {
	if f.active == nil {
		return nil, protoerr.New(protoerr.KindNoActiveIdentity, "no active identity")
	}
	return f.active, nil
}

func (f *fakeCoordinator) StoreDocument(ctx context.Context, data []byte) (*block.Block, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	return f.block, nil
}

func (f *fakeCoordinator) GetHead() (*block.Block, error) { return f.head, nil }
func (f *fakeCoordinator) GetBlock(hash string) (*block.Block, error) {
	if f.block != nil && f.block.Hash() == hash {
		return f.block, nil
	}
	return nil, nil
}

func (f *fakeCoordinator) ReplicateBlock(ctx context.Context, dto block.ReplicationDTO, receivedFromAddress string) (bool, error) {
	if f.replicateErr != nil {
		return false, f.replicateErr
	}
	return false, nil
}

func (f *fakeCoordinator) SyncFromPeer(ctx context.Context, peerIdentity, fromHash string) error {
	return nil
}

func (f *fakeCoordinator) RegisterPeer(remote peer.DTO) (peer.DTO, error) {
	f.registerIn = remote
	return peer.DTO{Key: "self-key", Address: f.Address()}, nil
}

func (f *fakeCoordinator) GetPeers() ([]peer.DTO, error)                      { return f.peers, nil }
func (f *fakeCoordinator) PurgePeers(ctx context.Context, maxAge int64) error { return nil }

func (f *fakeCoordinator) Identities() ([]*identity.Identity, error) { return f.identities, nil }
func (f *fakeCoordinator) Identity(hash string) (*identity.Identity, error) {
	for _, id := range f.identities {
		if id.Hash() == hash {
			return id, nil
		}
	}
	return nil, nil
}

func (f *fakeCoordinator) CountBlocks() (int64, error)     { return 1, nil }
func (f *fakeCoordinator) CountPeers() (int64, error)      { return 2, nil }
func (f *fakeCoordinator) CountIdentities() (int64, error) { return 3, nil }

var _ Coordinator = (*fakeCoordinator)(nil)

func mustIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate(2048)
	require.NoError(t, err)
	return id
}

func TestRouterSetsSecurityHeaders(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t)}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "deny", resp.Header.Get("X-Frame-Options"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestNodeInfoReportsProtocolVersion(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t)}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out nodeInfoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Version)
}

func TestShowHeadNoContentWhenChainEmpty(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t)}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Get(server.URL + "/blocks")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStoreDocumentRejectsEmptyBody(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t)}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Post(server.URL+"/blocks", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStoreDocumentMapsDuplicateToConflict(t *testing.T) {
	coordinator := &fakeCoordinator{
		active:   mustIdentity(t),
		storeErr: protoerr.New(protoerr.KindDuplicateDocument, "data hash already exists").WithContext("existing-hash"),
	}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Post(server.URL+"/blocks", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReplicateBlockMapsDuplicateToConflict(t *testing.T) {
	coordinator := &fakeCoordinator{
		active:       mustIdentity(t),
		replicateErr: protoerr.New(protoerr.KindDuplicateDocument, "data hash already exists").WithContext("existing-hash"),
	}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	req, err := http.NewRequest(http.MethodPut, server.URL+"/blocks", strings.NewReader(`{"data_hash":"x"}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterPeerEchoesSelf(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t)}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	body, err := json.Marshal(peer.DTO{Key: "remote-key", Address: "203.0.113.9:8080"})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/peers/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out peer.DTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "self-key", out.Key)
	require.Equal(t, "remote-key", coordinator.registerIn.Key)
}

func TestNotFoundHandlerFor404Routes(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t)}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Get(server.URL + "/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProtectedModeRejectsMissingSignature(t *testing.T) {
	coordinator := &fakeCoordinator{active: mustIdentity(t), protected: true}
	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	resp, err := http.Post(server.URL+"/blocks", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProtectedModeAcceptsValidSignature(t *testing.T) {
	id := mustIdentity(t)
	coordinator := &fakeCoordinator{active: id, protected: true}

	b, err := block.New([]byte(`{"a":1}`), id.Hash(), id.Sign, block.EmptyHead)
	require.NoError(t, err)
	coordinator.block = b

	server := httptest.NewServer(Router(coordinator))
	defer server.Close()

	payload := []byte(`{"a":1}`)
	bodyHash := lscrypto.SHA512(payload)
	signature, err := id.Key().Sign([]byte(bodyHash))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/blocks", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("X-LS-SIGNATURE", lscrypto.ToHex(signature))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}
