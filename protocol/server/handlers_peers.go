// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/locksidian/locksidian-go/peer"
)

// listPeers answers GET /peers.
func (a *api) listPeers(w http.ResponseWriter, r *http.Request) {
	peers, err := a.coordinator.GetPeers()
	if err != nil {
		writeError(w, err)
		return
	}
	if len(peers) == 0 {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, peers)
}

// registerPeer answers POST /peers/register: a remote node is
// announcing itself. We record it and answer with our own peer DTO so
// the caller can add us to its registry in turn.
func (a *api) registerPeer(w http.ResponseWriter, r *http.Request) {
	var dto peer.DTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed peer payload")
		return
	}

	self, err := a.coordinator.RegisterPeer(dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, self)
}

// purgePeers answers DELETE /peers: probe every known peer's protocol
// version and prune the ones that fail to respond.
func (a *api) purgePeers(w http.ResponseWriter, r *http.Request) {
	if err := a.coordinator.PurgePeers(r.Context(), DefaultPurgeMaxAge); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
