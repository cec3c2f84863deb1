// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"net/http"

	"github.com/locksidian/locksidian-go/metrics"
)

// metrics answers GET /metrics with the node's block/peer/identity
// counts.
func (a *api) metrics(w http.ResponseWriter, r *http.Request) {
	collected, err := metrics.Collect(a.coordinator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collected)
}
