// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"fmt"
	"math/big"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
)

// powBase and powDivider are the constants of the difficulty formula:
// difficulty(len) = powBase - floor(len/powDivider).
const (
	powBase    = 512
	powDivider = 32
)

// Difficulty returns the proof-of-work exponent for a document of the
// given byte length. Larger payloads yield a smaller exponent and
// therefore an exponentially larger expected amount of work.
func Difficulty(dataLen int) int {
	return powBase - dataLen/powDivider
}

// Target returns 2^difficulty, the upper (exclusive) bound a block
// hash must fall under to be accepted.
func Target(difficulty int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(difficulty))
}

// headerString builds the exact concatenation the header hash is
// computed over: data_hash || hex(signature) || timestamp || nonce || previous.
func headerString(dataHash, signatureHex string, timestamp int64, nonce uint32, previous string) string {
	return fmt.Sprintf("%s%s%d%d%s", dataHash, signatureHex, timestamp, nonce, previous)
}

// computeHash recomputes the block header hash for the given fields.
func computeHash(dataHash string, signature []byte, timestamp int64, nonce uint32, previous string) string {
	buf := headerString(dataHash, lscrypto.ToHex(signature), timestamp, nonce, previous)
	return lscrypto.SHA512([]byte(buf))
}

// hashAsInt parses a 128-hex-digit block hash as an arbitrary-precision
// unsigned integer, per spec's numeric semantics.
func hashAsInt(hash string) (*big.Int, bool) {
	value, ok := new(big.Int).SetString(hash, 16)
	return value, ok
}

// mine searches for the smallest nonce, starting at 0, for which the
// header hash is strictly below target. It is deterministic and
// single-threaded for a given set of header fields.
func mine(dataHash string, signature []byte, timestamp int64, previous string, target *big.Int) (hash string, nonce uint32) {
	for nonce = 0; ; nonce++ {
		hash = computeHash(dataHash, signature, timestamp, nonce, previous)
		if value, ok := hashAsInt(hash); ok && value.Cmp(target) < 0 {
			return hash, nonce
		}
	}
}
