// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"net/http"

	"github.com/locksidian/locksidian-go/protocol"
)

type nodeInfoResponse struct {
	Package     string `json:"package"`
	Version     int    `json:"version"`
	Description string `json:"description"`
	Authors     string `json:"authors"`
}

// nodeInfo answers GET / with the node's package metadata and
// protocol version; protocol.HTTPClient.CheckVersion relies on the
// "version" field of this exact response to negotiate compatibility.
func (a *api) nodeInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nodeInfoResponse{
		Package:     "locksidian",
		Version:     protocol.ProtocolVersion,
		Description: "A permissionless peer-to-peer document notarization node.",
		Authors:     "The Locksidian developers",
	})
}
