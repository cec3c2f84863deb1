// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/locksidian/locksidian-go/protoerr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("Failed to encode response body: %v", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps a handler error to its HTTP status per spec §7 and
// writes it as {"error": message}. A nil-content NotFound is rendered
// as a bare 204, matching the rest of the API's empty-result shape.
func writeError(w http.ResponseWriter, err error) {
	protoErr, ok := protoerr.As(err)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := protoErr.Kind.HTTPStatus()
	if status == http.StatusNoContent {
		writeNoContent(w)
		return
	}

	body := map[string]string{"error": protoErr.Error()}
	if protoErr.Context != "" {
		body["existing"] = protoErr.Context
	}
	writeJSON(w, status, body)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusNotFound, "Not Found")
}
