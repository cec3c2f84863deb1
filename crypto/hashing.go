// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto provides the cryptographic primitives used to identify
// nodes, sign documents and secure the block proof of work: SHA-512,
// RIPEMD-160, RSA and a strict hexadecimal codec.
package crypto

import (
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 required for fingerprint compatibility
)

// SHA512 returns the lower-case hexadecimal SHA-512 digest of data.
func SHA512(data []byte) string {
	sum := sha512.Sum512(data)
	return fmt.Sprintf("%x", sum[:])
}

// RIPEMD160 returns the lower-case hexadecimal RIPEMD-160 digest of data.
//
// Identity fingerprints are computed as RIPEMD160(SHA512(pem(key))); the
// SHA-512 stage already produced a hex string, and that hex string (its
// ASCII bytes) is what gets hashed here — not the raw digest bytes.
func RIPEMD160(data []byte) string {
	h := ripemd160.New()
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Fingerprint computes RIPEMD160(SHA512(pem)), the identity/peer hash
// defined in spec §3 and §4.2.
func Fingerprint(pem []byte) string {
	return RIPEMD160([]byte(SHA512(pem)))
}
