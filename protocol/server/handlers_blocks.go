// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/locksidian/locksidian-go/block"
)

// showHead answers GET /blocks.
func (a *api) showHead(w http.ResponseWriter, r *http.Request) {
	head, err := a.coordinator.GetHead()
	if err != nil {
		writeError(w, err)
		return
	}
	if head == nil {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"head": head.Hash()})
}

// storeDocument answers POST /blocks: the request body is the raw
// document to notarize.
func (a *api) storeDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "request body cannot be empty")
		return
	}

	b, err := a.coordinator.StoreDocument(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"block": b.Hash()})
}

// getBlock answers GET /blocks/{hash}.
func (a *api) getBlock(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	if hash == "" {
		writeJSONError(w, http.StatusBadRequest, "hash parameter cannot be empty")
		return
	}

	b, err := a.coordinator.GetBlock(hash)
	if err != nil {
		writeError(w, err)
		return
	}
	if b == nil {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, b.ToDTO())
}

// replicateBlock answers PUT /blocks: a peer is pushing a block it
// authored or forwarded. When acceptance reveals a gap back to a
// block we don't have, a follow-up sync against the sender is kicked
// off in the background rather than blocking this response, mirroring
// the best-effort propagation policy of spec §4.7.
func (a *api) replicateBlock(w http.ResponseWriter, r *http.Request) {
	var dto block.ReplicationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed replication payload")
		return
	}

	shouldSync, err := a.coordinator.ReplicateBlock(r.Context(), dto, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}

	if shouldSync {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			defer cancel()
			if err := a.coordinator.SyncFromPeer(ctx, dto.ReceivedFrom, dto.Previous); err != nil {
				log.Warnf("Background sync against %s failed: %v", dto.ReceivedFrom, err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]string{})
}
