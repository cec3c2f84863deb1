// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/protoerr"
)

// Verifier checks a signature over a message, e.g. Identity.Key().Verify.
type Verifier func(message, signature []byte) error

// Validate re-derives every committed field of b from scratch and
// checks the block's internal integrity and proof of work (spec §4.3).
// verify must check b.Signature() against the author's public key over
// b.Data(), the same bytes New signs.
func Validate(b *Block, verify Verifier) error {
	if err := validateDataHash(b); err != nil {
		return err
	}

	if err := validateProofOfWork(b); err != nil {
		return err
	}

	if err := verify(b.data, b.signature); err != nil {
		return protoerr.Wrap(protoerr.KindSignatureInvalid, err, "block signature does not verify against author's public key")
	}

	return nil
}

func validateDataHash(b *Block) error {
	recomputed := lscrypto.SHA512(b.data)
	if recomputed != b.dataHash {
		return protoerr.Newf(protoerr.KindDataHashMismatch, "data_hash mismatch: recomputed %s, stored %s", recomputed, b.dataHash)
	}
	return nil
}

func validateProofOfWork(b *Block) error {
	difficulty := Difficulty(len(b.data))
	target := Target(difficulty)

	recomputedHash := computeHash(b.dataHash, b.signature, b.timestamp, b.nonce, b.previous)
	if recomputedHash != b.hash {
		return protoerr.Newf(protoerr.KindHeaderHashMismatch, "header hash mismatch: recomputed %s, stored %s", recomputedHash, b.hash)
	}

	value, ok := hashAsInt(b.hash)
	if !ok {
		return protoerr.Newf(protoerr.KindHeaderHashMismatch, "block hash %s is not a valid hexadecimal integer", b.hash)
	}

	if value.Cmp(target) >= 0 {
		return protoerr.Newf(protoerr.KindInvalidProofOfWork, "block hash %s is not below target 2^%d", b.hash, difficulty)
	}

	return nil
}
