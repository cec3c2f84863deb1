// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package protoerr defines the sum of error kinds the node's
// components raise, and the mapping from each kind to an HTTP status
// code at the API boundary (spec §7).
package protoerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error categories a node operation can fail with.
type Kind int

const (
	// KindInvalidInput covers missing/empty parameters and undecodable DTOs.
	KindInvalidInput Kind = iota
	// KindDuplicateDocument is raised when a data hash already exists in the registry.
	KindDuplicateDocument
	// KindDataHashMismatch is raised when re-hashing data disagrees with the stored data_hash.
	KindDataHashMismatch
	// KindHeaderHashMismatch is raised when the recomputed header hash disagrees with the stored hash.
	KindHeaderHashMismatch
	// KindInvalidProofOfWork is raised when a block hash is not below its target.
	KindInvalidProofOfWork
	// KindSignatureInvalid is raised when a block's signature fails verification.
	KindSignatureInvalid
	// KindNotFound indicates the absence of requested content, not an error at the protocol level.
	KindNotFound
	// KindUnauthorized covers a failed protected-mode signature check.
	// The gate in protocol/server writes its 403 responses directly and
	// does not construct this kind.
	KindUnauthorized
	// KindRegistryReadError wraps a failed registry read.
	KindRegistryReadError
	// KindRegistryWriteError wraps a failed registry write.
	KindRegistryWriteError
	// KindUpstreamError wraps a failed outbound call during join/sync/propagate.
	KindUpstreamError
	// KindInvalidKeySize covers a requested RSA key size that violates policy
	// (crypto.GenerateRSAKey itself returns crypto.ErrInvalidKeySize).
	KindInvalidKeySize
	// KindIdentityHashMismatch covers a loaded identity whose fingerprint disagrees
	// with storage (identity.Restore itself returns identity.ErrHashMismatch).
	KindIdentityHashMismatch
	// KindNoActiveIdentity covers a node with no identity designated active
	// (identity.GetActiveIdentity itself returns identity.ErrNoActiveIdentity).
	KindNoActiveIdentity
	// KindRowsAffectedMismatch is raised when a write touches an unexpected number of rows.
	KindRowsAffectedMismatch
	// KindUnknownAuthor is raised when a replicated block's author, or the peer a
	// sync is requested from, is not a known peer.
	KindUnknownAuthor
)

// Error is the node's sum-type error: a Kind plus an underlying cause
// and optional context (e.g. the existing block hash for a duplicate).
type Error struct {
	Kind    Kind
	Message string
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Context)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithContext attaches extra context (e.g. an existing block hash) to
// the error.
func (e *Error) WithContext(context string) *Error {
	e.Context = context
	return e
}

// As is a small helper mirroring errors.As for *Error, used at API
// boundaries to decide the HTTP status to return.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to the HTTP status code spec §7 assigns it.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindDataHashMismatch, KindHeaderHashMismatch, KindInvalidProofOfWork, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindDuplicateDocument:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNoContent
	case KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
