// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package server implements the node's HTTP API (spec §6): a
// gorilla/mux router wiring every endpoint to a node.Coordinator,
// standard security headers, request correlation logging, and the
// optional protected-mode signature gate on POST /blocks.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/locksidian/locksidian-go/block"
	"github.com/locksidian/locksidian-go/identity"
	"github.com/locksidian/locksidian-go/metrics"
	"github.com/locksidian/locksidian-go/peer"
)

// Coordinator is the subset of *node.Coordinator the HTTP layer
// depends on, kept as an interface so handler tests can run against a
// fake instead of a fully wired registry.
type Coordinator interface {
	Address() string
	Protected() bool
	ActiveIdentity() (*identity.Identity, error)

	StoreDocument(ctx context.Context, data []byte) (*block.Block, error)
	GetHead() (*block.Block, error)
	GetBlock(hash string) (*block.Block, error)
	ReplicateBlock(ctx context.Context, dto block.ReplicationDTO, receivedFromAddress string) (bool, error)
	SyncFromPeer(ctx context.Context, peerIdentity, fromHash string) error

	RegisterPeer(remote peer.DTO) (peer.DTO, error)
	GetPeers() ([]peer.DTO, error)
	PurgePeers(ctx context.Context, maxAge int64) error

	Identities() ([]*identity.Identity, error)
	Identity(hash string) (*identity.Identity, error)

	metrics.Counter
}

// DefaultPurgeMaxAge is the liveness window (milliseconds) the purge
// endpoint and background routine use when nothing else is specified.
const DefaultPurgeMaxAge = int64(24 * time.Hour / time.Millisecond)

// syncTimeout bounds the background chain sync a replicated orphan
// block triggers.
const syncTimeout = 30 * time.Second

// api holds the coordinator and the per-route handler methods.
type api struct {
	coordinator Coordinator
}

// Router builds the fully wired mux.Router implementing spec.md §6,
// with the headers and protected-mode middleware chained in.
func Router(coordinator Coordinator) *mux.Router {
	a := &api{coordinator: coordinator}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)

	r.HandleFunc("/", a.nodeInfo).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/identities", a.listIdentities).Methods(http.MethodGet)
	r.HandleFunc("/identities/active", a.activeIdentity).Methods(http.MethodGet)
	r.HandleFunc("/identities/{hash}", a.identityByHash).Methods(http.MethodGet)

	r.HandleFunc("/blocks", a.showHead).Methods(http.MethodGet)
	r.HandleFunc("/blocks", a.storeDocument).Methods(http.MethodPost)
	r.HandleFunc("/blocks", a.replicateBlock).Methods(http.MethodPut)
	r.HandleFunc("/blocks/{hash}", a.getBlock).Methods(http.MethodGet)

	r.HandleFunc("/peers", a.listPeers).Methods(http.MethodGet)
	r.HandleFunc("/peers", a.purgePeers).Methods(http.MethodDelete)
	r.HandleFunc("/peers/register", a.registerPeer).Methods(http.MethodPost)

	r.HandleFunc("/metrics", a.metrics).Methods(http.MethodGet)

	r.Use(requestLogging)
	r.Use(securityHeaders)
	if coordinator.Protected() {
		r.Use(protectedMode(coordinator))
	}

	return r
}

// New builds an *http.Server bound to addr, serving the node's HTTP
// API, grounded on the teacher's AllianceAPI.StartServer timeouts.
func New(addr string, coordinator Coordinator) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      Router(coordinator),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
