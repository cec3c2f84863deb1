// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node implements the node coordinator: the component that
// owns the registry, the active identity, and the set of known peers,
// and drives block ingestion, replication acceptance, chain sync and
// gossip propagation on top of them (spec §4.4-§4.8).
package node

import (
	"context"
	"time"

	"github.com/locksidian/locksidian-go/block"
	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/metrics"
	"github.com/locksidian/locksidian-go/peer"
	"github.com/locksidian/locksidian-go/protocol"
	"github.com/locksidian/locksidian-go/protoerr"
)

// Coordinator satisfies metrics.Counter directly off the registry.
var _ metrics.Counter = (*Coordinator)(nil)

// OrphanAdmissionWindow bounds how far behind HEAD a received fork
// block (one whose predecessor already has a successor) may trail and
// still be admitted as an orphan (spec §4.5, §9 open question 2). It
// does not apply to blocks whose predecessor is unknown locally.
const OrphanAdmissionWindow = 5

// ProtocolVersion mirrors protocol.ProtocolVersion for callers that
// only import node.
const ProtocolVersion = protocol.ProtocolVersion

// Registry is the subset of registry.Registry the coordinator depends
// on, kept as an interface so coordinator tests can run against an
// in-memory fake instead of a real SQLite file.
type Registry interface {
	identity.Store

	GetBlock(hash string) (*block.Block, error)
	GetAllBlocks() ([]*block.Block, error)
	CountBlocks() (int64, error)
	FindByDataHash(dataHash string) (*block.Block, error)
	GetHead() (*block.Block, error)
	SaveHead(newBlock *block.Block) error
	SaveNext(newBlock *block.Block, previousHash string) error
	SaveOrphan(newBlock *block.Block) error
	UpdateBlock(b *block.Block) error

	GetPeer(identity string) (*peer.Peer, error)
	GetAllPeers() ([]*peer.Peer, error)
	CountPeers() (int64, error)
	UpsertPeer(p *peer.Peer) error
	DeletePeer(identity string) error

	GetAllIdentities() ([]*identity.Entity, error)
	CountIdentities() (int64, error)
}

// Dialer builds a protocol.Client for a peer reachable at address. In
// production this is protocol.NewHTTPClient; tests inject a factory
// returning protocol.Stub instances.
type Dialer func(address string) protocol.Client

// Coordinator is the node's central orchestrator, wired up once at
// startup and driven by the HTTP API handlers and background routines.
type Coordinator struct {
	registry Registry
	dial     Dialer
	resolver AddressResolver

	address   string
	local     bool
	protected bool
	timeout   time.Duration
}

// Config carries the coordinator's construction-time parameters.
type Config struct {
	Registry  Registry
	Dial      Dialer
	Resolver  AddressResolver
	Local     bool
	Protected bool
	Timeout   time.Duration
	BindPort  string
}

// New builds a Coordinator and resolves the node's advertised address
// (spec §4.8 step 2: public discovery unless --local is set).
func New(ctx context.Context, cfg Config) (*Coordinator, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = DefaultResolver{}
	}

	address, err := resolver.Resolve(ctx, cfg.Local, cfg.BindPort)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to resolve advertised address")
	}

	dial := cfg.Dial
	if dial == nil {
		dial = func(addr string) protocol.Client {
			return protocol.NewHTTPClient(addr, timeout)
		}
	}

	return &Coordinator{
		registry:  cfg.Registry,
		dial:      dial,
		resolver:  resolver,
		address:   address,
		local:     cfg.Local,
		protected: cfg.Protected,
		timeout:   timeout,
	}, nil
}

// Address returns the node's resolved advertised address.
func (c *Coordinator) Address() string { return c.address }

// Protected reports whether protected-mode (signature-gated writes)
// is enabled.
func (c *Coordinator) Protected() bool { return c.protected }

// ActiveIdentity returns the node's currently active signing identity
// (spec §4.2/§4.8: startup fails with NoActiveIdentity if none exists).
func (c *Coordinator) ActiveIdentity() (*identity.Identity, error) {
	return identity.GetActiveIdentity(c.registry)
}

// StoreDocument runs the local block-ingestion pipeline (spec §4.4):
// reject duplicates by data_hash, mine a new block on top of HEAD,
// persist it, then propagate it to every known peer.
func (c *Coordinator) StoreDocument(ctx context.Context, data []byte) (*block.Block, error) {
	dataHash := lscrypto.SHA512(data)

	existing, err := c.registry.FindByDataHash(dataHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, protoerr.Newf(protoerr.KindDuplicateDocument, "document is already stored in block %s", existing.Hash()).WithContext(existing.Hash())
	}

	author, err := c.ActiveIdentity()
	if err != nil {
		return nil, err
	}

	head, err := c.currentHead()
	if err != nil {
		return nil, err
	}

	b, err := block.New(data, author.Hash(), author.Sign, head)
	if err != nil {
		return nil, err
	}

	if err := c.registry.SaveHead(b); err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save new head block")
	}

	log.Infof("Stored new block %s at height %d", b.Hash(), b.Height())

	c.propagate(ctx, b, author.Hash())

	return b, nil
}

// GetHead returns the current chain HEAD, or nil if the chain is
// still empty.
func (c *Coordinator) GetHead() (*block.Block, error) {
	return c.registry.GetHead()
}

// GetBlock returns the block stored under hash, or nil if absent.
func (c *Coordinator) GetBlock(hash string) (*block.Block, error) {
	return c.registry.GetBlock(hash)
}

func (c *Coordinator) currentHead() (block.Head, error) {
	head, err := c.registry.GetHead()
	if err != nil {
		return block.Head{}, err
	}
	if head == nil {
		return block.EmptyHead, nil
	}
	return block.Head{Hash: head.Hash(), Height: head.Height()}, nil
}

// ReplicateBlock runs the replication acceptance pipeline (spec §4.5):
// resolve the author's public key from the peer registry, validate
// the block's internal integrity, signature and proof of work, then
// place it on the main chain or store it as an orphan. A fork block
// (predecessor already has a successor) is rejected outright if it
// trails HEAD by more than OrphanAdmissionWindow blocks.
//
// Returns (shouldSync, err): shouldSync is true when the block's
// predecessor is unknown locally and the caller should walk the chain
// back from the delivering peer to fill the gap (spec §4.6).
func (c *Coordinator) ReplicateBlock(ctx context.Context, dto block.ReplicationDTO, receivedFromAddress string) (bool, error) {
	receivedAt := time.Now().UnixNano() / int64(time.Millisecond)

	b, err := block.FromReplicationDTO(dto, receivedAt)
	if err != nil {
		return false, protoerr.Wrap(protoerr.KindInvalidInput, err, "malformed replication payload")
	}

	if existing, err := c.registry.FindByDataHash(b.DataHash()); err != nil {
		return false, err
	} else if existing != nil {
		return false, protoerr.Newf(protoerr.KindDuplicateDocument, "document is already stored in block %s", existing.Hash()).WithContext(existing.Hash())
	}

	authorPeer, err := c.registry.GetPeer(b.Author())
	if err != nil {
		return false, err
	}
	if authorPeer == nil {
		return false, protoerr.Newf(protoerr.KindUnknownAuthor, "no known peer matches author %s", b.Author())
	}

	if err := block.Validate(b, authorPeer.Key().Verify); err != nil {
		return false, err
	}

	head, err := c.registry.GetHead()
	if err != nil {
		return false, err
	}

	shouldSync := false

	if b.Previous() == block.OriginPrevious {
		// A genesis-equivalent block needs no predecessor lookup.
		if err := c.registry.SaveNext(b, b.Previous()); err != nil {
			return false, protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save replicated block")
		}
	} else {
		predecessor, err := c.registry.GetBlock(b.Previous())
		if err != nil {
			return false, err
		}

		switch {
		case predecessor == nil:
			// Predecessor entirely unknown: always admit as an orphan and
			// ask the caller to sync, regardless of how far it trails
			// HEAD (spec §4.5 branch 3).
			shouldSync = true
			if err := c.registry.SaveOrphan(b); err != nil {
				return false, protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save orphan block")
			}
		case predecessor.Next() == "":
			if err := c.registry.SaveNext(b, b.Previous()); err != nil {
				return false, protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save replicated block")
			}
		default:
			// Predecessor is known but already has a successor: this is a
			// fork (spec scenario S6), admitted as an orphan only while it
			// trails HEAD by no more than OrphanAdmissionWindow blocks.
			if head != nil && head.Height() >= b.Height() && head.Height()-b.Height() > OrphanAdmissionWindow {
				return false, protoerr.Newf(protoerr.KindInvalidInput, "orphan block %s trails HEAD by more than %d blocks, rejected", b.Hash(), OrphanAdmissionWindow)
			}

			if err := c.registry.SaveOrphan(b); err != nil {
				return false, protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save orphan block")
			}
		}
	}

	log.Infof("Accepted replicated block %s from %s (sync needed: %v)", b.Hash(), receivedFromAddress, shouldSync)

	author, identityErr := c.ActiveIdentity()
	if identityErr == nil {
		c.propagate(ctx, b, author.Hash())
	}

	return shouldSync, nil
}

// propagate sends b to every known peer except the one it was received
// from, best-effort (spec §4.7: a single unreachable peer must never
// block acceptance of a block).
func (c *Coordinator) propagate(ctx context.Context, b *block.Block, senderHash string) {
	peers, err := c.registry.GetAllPeers()
	if err != nil {
		log.Warnf("Failed to list peers for propagation: %v", err)
		return
	}

	dto := b.ToReplicationDTO(senderHash)

	for _, p := range peers {
		if p.Identity() == b.ReceivedFrom() {
			continue
		}

		client := c.dial(p.Address())

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := client.Replicate(reqCtx, dto)
		cancel()

		if err != nil {
			log.Warnf("Failed to propagate block %s to peer %s: %v", b.Hash(), p.Address(), err)
			continue
		}

		p.SetLastSent(time.Now().UnixNano() / int64(time.Millisecond))
		if err := c.registry.UpsertPeer(p); err != nil {
			log.Warnf("Failed to record propagation timestamp for peer %s: %v", p.Address(), err)
		}
	}
}

// Sync walks the chain backward from the remote peer at address,
// starting at (or before) fromHash, pulling in any block this node is
// missing (spec §4.6). It stops once it reaches a block this node
// already has, or the origin block.
func (c *Coordinator) Sync(ctx context.Context, address string, fromHash string) error {
	client := c.dial(address)

	hash := fromHash
	if hash == "" {
		remoteHead, err := client.GetHead(ctx)
		if err != nil {
			return err
		}
		hash = remoteHead
	}

	for hash != "" && hash != block.OriginPrevious {
		if local, err := c.registry.GetBlock(hash); err != nil {
			return err
		} else if local != nil {
			break
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		dto, found, err := client.GetBlock(reqCtx, hash)
		cancel()
		if err != nil {
			return err
		}
		if !found {
			break
		}

		b, err := block.FromDTO(dto)
		if err != nil {
			return protoerr.Wrap(protoerr.KindInvalidInput, err, "malformed block received during sync")
		}

		if err := c.registry.SaveOrphan(b); err != nil {
			return protoerr.Wrap(protoerr.KindRegistryWriteError, err, "failed to save block fetched during sync")
		}

		log.Infof("Synced block %s (height %d) from %s", b.Hash(), b.Height(), address)

		hash = b.Previous()
	}

	return c.relinkOrphans()
}

// SyncFromPeer resolves peerIdentity's advertised address in the
// registry and syncs the chain backward from fromHash against it,
// grounded on the reference implementation's replicate_block handler
// resolving the sender by its received_from fingerprint before
// issuing the follow-up sync call.
func (c *Coordinator) SyncFromPeer(ctx context.Context, peerIdentity, fromHash string) error {
	p, err := c.registry.GetPeer(peerIdentity)
	if err != nil {
		return err
	}
	if p == nil {
		return protoerr.Newf(protoerr.KindUnknownAuthor, "no known peer matches %s, cannot sync", peerIdentity)
	}

	return c.Sync(ctx, p.Address(), fromHash)
}

// relinkOrphans walks every stored block and sets each predecessor's
// Next pointer once its successor is present, repairing the
// forward-linked chain after a sync pass has filled in gaps
// out of arrival order.
func (c *Coordinator) relinkOrphans() error {
	blocks, err := c.registry.GetAllBlocks()
	if err != nil {
		return err
	}

	byPrevious := make(map[string]*block.Block, len(blocks))
	byHash := make(map[string]*block.Block, len(blocks))
	for _, b := range blocks {
		byHash[b.Hash()] = b
		byPrevious[b.Previous()] = b
	}

	for _, predecessor := range blocks {
		if predecessor.Next() != "" {
			continue
		}
		successor, ok := byPrevious[predecessor.Hash()]
		if !ok {
			continue
		}
		predecessor.SetNext(successor.Hash())
		if err := c.registry.UpdateBlock(predecessor); err != nil {
			return err
		}
	}

	return nil
}

// RegisterPeer runs the registration handshake server-side (spec
// §4.7): store the remote peer, then answer with our own peer DTO.
func (c *Coordinator) RegisterPeer(remote peer.DTO) (peer.DTO, error) {
	p, err := peer.FromDTO(remote)
	if err != nil {
		return peer.DTO{}, protoerr.Wrap(protoerr.KindInvalidInput, err, "invalid peer registration payload")
	}

	p.SetLastRecv(time.Now().UnixNano() / int64(time.Millisecond))

	if err := c.registry.UpsertPeer(p); err != nil {
		return peer.DTO{}, err
	}

	author, err := c.ActiveIdentity()
	if err != nil {
		return peer.DTO{}, err
	}

	selfPeer, err := peer.New(hexOrEmpty(author), c.address)
	if err != nil {
		return peer.DTO{}, err
	}

	return selfPeer.ToDTO()
}

func hexOrEmpty(id *identity.Identity) string {
	pem, err := id.Key().ExportPublicPEM()
	if err != nil {
		return ""
	}
	return lscrypto.ToHex(pem)
}

// Join performs the outbound half of registration against an
// entrypoint peer at address, used once at startup when --entrypoint
// is supplied (spec §4.8 step 3).
func (c *Coordinator) Join(ctx context.Context, address string) error {
	client := c.dial(address)

	if ok, err := client.CheckVersion(ctx); err != nil {
		return err
	} else if !ok {
		return protoerr.Newf(protoerr.KindUpstreamError, "entrypoint %s reports an incompatible protocol version", address)
	}

	author, err := c.ActiveIdentity()
	if err != nil {
		return err
	}

	selfPeer, err := peer.New(hexOrEmpty(author), c.address)
	if err != nil {
		return err
	}
	selfDTO, err := selfPeer.ToDTO()
	if err != nil {
		return err
	}

	remoteDTO, err := client.Register(ctx, selfDTO)
	if err != nil {
		return err
	}

	remotePeer, err := peer.FromDTO(remoteDTO)
	if err != nil {
		return protoerr.Wrap(protoerr.KindInvalidInput, err, "entrypoint returned an invalid peer payload")
	}
	remotePeer.SetLastRecv(time.Now().UnixNano() / int64(time.Millisecond))

	if err := c.registry.UpsertPeer(remotePeer); err != nil {
		return err
	}

	remotePeers, err := client.GetPeers(ctx)
	if err != nil {
		return err
	}
	for _, dto := range remotePeers {
		p, err := peer.FromDTO(dto)
		if err != nil {
			log.Warnf("Skipping malformed peer entry from entrypoint %s: %v", address, err)
			continue
		}
		if p.Identity() == author.Hash() {
			continue
		}
		if err := c.registry.UpsertPeer(p); err != nil {
			log.Warnf("Failed to store peer %s discovered via entrypoint: %v", p.Identity(), err)
		}
	}

	return c.Sync(ctx, address, "")
}

// GetPeers returns every peer known to this node, rendered as DTOs.
func (c *Coordinator) GetPeers() ([]peer.DTO, error) {
	peers, err := c.registry.GetAllPeers()
	if err != nil {
		return nil, err
	}

	dtos := make([]peer.DTO, 0, len(peers))
	for _, p := range peers {
		dto, err := p.ToDTO()
		if err != nil {
			log.Warnf("Skipping peer %s with unexportable key: %v", p.Identity(), err)
			continue
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// PurgePeers probes every known peer's protocol version and removes
// any peer that fails to respond correctly, pre-filtered by liveness
// staleness to reduce probe fan-out (spec §4.7).
func (c *Coordinator) PurgePeers(ctx context.Context, maxAge int64) error {
	peers, err := c.registry.GetAllPeers()
	if err != nil {
		return err
	}

	now := time.Now().UnixNano() / int64(time.Millisecond)

	for _, p := range peers {
		if p.LastRecv() != 0 && !p.IsStale(now, maxAge) {
			continue
		}

		client := c.dial(p.Address())
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		ok, err := client.CheckVersion(reqCtx)
		cancel()

		if err == nil && ok {
			p.SetLastRecv(now)
			if err := c.registry.UpsertPeer(p); err != nil {
				log.Warnf("Failed to refresh liveness for peer %s: %v", p.Identity(), err)
			}
			continue
		}

		log.Infof("Purging unresponsive peer %s (%s)", p.Identity(), p.Address())
		if err := c.registry.DeletePeer(p.Identity()); err != nil {
			log.Warnf("Failed to purge peer %s: %v", p.Identity(), err)
		}
	}

	return nil
}

// Identities returns every identity keypair known to this node.
func (c *Coordinator) Identities() ([]*identity.Identity, error) {
	entities, err := c.registry.GetAllIdentities()
	if err != nil {
		return nil, err
	}

	out := make([]*identity.Identity, 0, len(entities))
	for _, entity := range entities {
		id, err := identity.FromEntity(entity)
		if err != nil {
			log.Warnf("Skipping unreadable identity %s: %v", entity.Hash, err)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Identity returns the identity identified by hash, or nil if unknown.
func (c *Coordinator) Identity(hash string) (*identity.Identity, error) {
	entity, err := c.registry.Get(hash)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	return identity.FromEntity(entity)
}

// CountBlocks, CountPeers and CountIdentities satisfy metrics.Counter,
// letting the HTTP layer collect GET /metrics straight off the
// registry without a duplicate aggregation method here.
func (c *Coordinator) CountBlocks() (int64, error)     { return c.registry.CountBlocks() }
func (c *Coordinator) CountPeers() (int64, error)      { return c.registry.CountPeers() }
func (c *Coordinator) CountIdentities() (int64, error) { return c.registry.CountIdentities() }
