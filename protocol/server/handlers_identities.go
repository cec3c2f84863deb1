// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"net/http"

	"github.com/gorilla/mux"
	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/identity"
)

// identityDTO is the public-facing rendering of an identity: its
// fingerprint and public key only, never the private key.
type identityDTO struct {
	Hash      string `json:"hash"`
	PublicKey string `json:"public_key"`
}

func toIdentityDTO(id *identity.Identity) (identityDTO, error) {
	pem, err := id.Key().ExportPublicPEM()
	if err != nil {
		return identityDTO{}, err
	}
	return identityDTO{Hash: id.Hash(), PublicKey: lscrypto.ToHex(pem)}, nil
}

// listIdentities answers GET /identities.
func (a *api) listIdentities(w http.ResponseWriter, r *http.Request) {
	ids, err := a.coordinator.Identities()
	if err != nil {
		writeError(w, err)
		return
	}
	if len(ids) == 0 {
		writeNoContent(w)
		return
	}

	dtos := make([]identityDTO, 0, len(ids))
	for _, id := range ids {
		dto, err := toIdentityDTO(id)
		if err != nil {
			log.Warnf("Skipping identity %s with unexportable key: %v", id.Hash(), err)
			continue
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"identities": dtos})
}

// activeIdentity answers GET /identities/active.
func (a *api) activeIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := a.coordinator.ActiveIdentity()
	if err != nil {
		writeError(w, err)
		return
	}

	dto, err := toIdentityDTO(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": dto})
}

// identityByHash answers GET /identities/{hash}.
func (a *api) identityByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	if hash == "" {
		writeJSONError(w, http.StatusBadRequest, "hash parameter cannot be empty")
		return
	}

	id, err := a.coordinator.Identity(hash)
	if err != nil {
		writeError(w, err)
		return
	}
	if id == nil {
		writeNoContent(w)
		return
	}

	dto, err := toIdentityDTO(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": dto})
}
