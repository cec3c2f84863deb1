// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"context"
	"sync"

	"github.com/locksidian/locksidian-go/block"
	"github.com/locksidian/locksidian-go/peer"
)

// Stub is an in-memory Client used by node coordinator tests to
// exercise propagation, registration and sync logic without a real
// HTTP round trip.
type Stub struct {
	mu sync.Mutex

	address string
	version int

	peers     []peer.DTO
	blocks    map[string]block.DTO
	head      string
	replicate []block.ReplicationDTO

	registerErr  error
	replicateErr error
	versionErr   error
}

// NewStub builds a Stub reachable at address, reporting ProtocolVersion
// by default.
func NewStub(address string) *Stub {
	return &Stub{
		address: address,
		version: ProtocolVersion,
		blocks:  make(map[string]block.DTO),
	}
}

// SetVersion overrides the protocol version this stub reports, for
// exercising version-mismatch rejection.
func (s *Stub) SetVersion(version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

// SetPeers seeds the peer list returned by GetPeers.
func (s *Stub) SetPeers(peers []peer.DTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = peers
}

// SetHead seeds the hash returned by GetHead.
func (s *Stub) SetHead(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = hash
}

// PutBlock seeds a block retrievable via GetBlock.
func (s *Stub) PutBlock(dto block.DTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[dto.Hash] = dto
}

// FailRegister makes Register return err.
func (s *Stub) FailRegister(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerErr = err
}

// FailReplicate makes Replicate return err.
func (s *Stub) FailReplicate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replicateErr = err
}

// Replicated returns every ReplicationDTO this stub has received, in
// arrival order.
func (s *Stub) Replicated() []block.ReplicationDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]block.ReplicationDTO, len(s.replicate))
	copy(out, s.replicate)
	return out
}

func (s *Stub) Address() string { return s.address }

func (s *Stub) CheckVersion(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versionErr != nil {
		return false, s.versionErr
	}
	return s.version == ProtocolVersion, nil
}

func (s *Stub) Register(ctx context.Context, self peer.DTO) (peer.DTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return peer.DTO{}, s.registerErr
	}
	s.peers = append(s.peers, self)
	return peer.DTO{Key: "stub-peer-key", Address: s.address}, nil
}

func (s *Stub) GetPeers(ctx context.Context) ([]peer.DTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]peer.DTO, len(s.peers))
	copy(out, s.peers)
	return out, nil
}

func (s *Stub) Replicate(ctx context.Context, dto block.ReplicationDTO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replicateErr != nil {
		return s.replicateErr
	}
	s.replicate = append(s.replicate, dto)
	return nil
}

func (s *Stub) GetHead(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func (s *Stub) GetBlock(ctx context.Context, hash string) (block.DTO, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dto, ok := s.blocks[hash]
	return dto, ok, nil
}

var _ Client = (*Stub)(nil)
