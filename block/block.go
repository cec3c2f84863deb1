// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package block implements the block data model: the data/header/
// metadata split, the size-adaptive proof-of-work mining and
// validation algorithms, and the chain-position helpers the registry
// and node coordinator build on.
package block

import (
	"time"

	lscrypto "github.com/locksidian/locksidian-go/crypto"
	"github.com/locksidian/locksidian-go/protoerr"
)

// OriginPrevious is the sentinel previous-hash value for the anchor
// block of a chain.
const OriginPrevious = ""

// Block is a single entry in the notarization chain: an opaque JSON
// document, a signed and mined header committing to it, and the
// node-local metadata describing where it sits in the chain.
type Block struct {
	// Data section.
	data []byte

	// Header section (contributes to Hash).
	dataHash  string
	signature []byte
	timestamp int64
	nonce     uint32
	previous  string

	// Metadata section (node-local context).
	hash         string
	height       uint64
	next         string
	author       string
	receivedAt   int64
	receivedFrom string
}

// Signer produces a signature over the given bytes, e.g. Identity.Sign.
type Signer func(data []byte) ([]byte, error)

// Head describes the chain tip a new block is built against.
type Head struct {
	Hash   string
	Height uint64
}

// EmptyHead is the sentinel head of a chain with no blocks yet.
var EmptyHead = Head{Hash: OriginPrevious, Height: 0}

// currentMillis returns the current time in milliseconds since epoch.
// Extracted so tests can avoid depending on wall-clock time indirectly
// through mining, which does not use it.
func currentMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// New mines and returns a new Block authored locally over data. sign
// must produce a signature under the author's private key; authorHash
// is the author's identity fingerprint; head is the chain tip to build
// on (use EmptyHead for the very first block).
//
// New does not check for a duplicate data hash: callers (the node
// coordinator) must perform that lookup against the registry first,
// per spec §4.4 step 1, and fail with a DuplicateDocument error before
// ever calling New.
func New(data []byte, authorHash string, sign Signer, head Head) (*Block, error) {
	dataHash := lscrypto.SHA512(data)

	signature, err := sign(data)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindSignatureInvalid, err, "failed to sign document")
	}

	now := currentMillis()

	b := &Block{
		data:      data,
		dataHash:  dataHash,
		signature: signature,
		timestamp: now,
		previous:  head.Hash,

		height:       head.Height + 1,
		author:       authorHash,
		receivedAt:   now,
		receivedFrom: authorHash,
	}

	difficulty := Difficulty(len(data))
	target := Target(difficulty)

	hash, nonce := mine(dataHash, signature, now, head.Hash, target)
	b.hash = hash
	b.nonce = nonce

	return b, nil
}

// FromFields reconstructs a Block from its persisted or received
// fields without recomputing or validating anything; used by DTO
// conversions and the registry when loading rows.
func FromFields(data []byte, dataHash string, signature []byte, timestamp int64, nonce uint32, previous, hash string, height uint64, next, author string, receivedAt int64, receivedFrom string) *Block {
	return &Block{
		data:      data,
		dataHash:  dataHash,
		signature: signature,
		timestamp: timestamp,
		nonce:     nonce,
		previous:  previous,

		hash:         hash,
		height:       height,
		next:         next,
		author:       author,
		receivedAt:   receivedAt,
		receivedFrom: receivedFrom,
	}
}

func (b *Block) Data() []byte          { return b.data }
func (b *Block) DataHash() string      { return b.dataHash }
func (b *Block) Signature() []byte     { return b.signature }
func (b *Block) Timestamp() int64      { return b.timestamp }
func (b *Block) Nonce() uint32         { return b.nonce }
func (b *Block) Previous() string      { return b.previous }
func (b *Block) Hash() string          { return b.hash }
func (b *Block) Height() uint64        { return b.height }
func (b *Block) Next() string          { return b.next }
func (b *Block) Author() string        { return b.author }
func (b *Block) ReceivedAt() int64     { return b.receivedAt }
func (b *Block) ReceivedFrom() string  { return b.receivedFrom }
func (b *Block) IsOrigin() bool        { return b.previous == OriginPrevious }

// SetNext records that successor's hash attached to this block on the
// main chain. Per spec, Next is set exactly once.
func (b *Block) SetNext(successorHash string) {
	b.next = successorHash
}

// Confirmations returns how many blocks sit above this one on the
// main chain, given the current head height.
func (b *Block) Confirmations(headHeight uint64) uint64 {
	if headHeight < b.height {
		return 0
	}
	return headHeight - b.height
}

// MainChain reports whether b is linked forward by predecessor's Next
// field, i.e. whether b sits on the main chain rather than being an
// orphan.
func (b *Block) MainChain(predecessor *Block) bool {
	if predecessor == nil {
		return b.IsOrigin()
	}
	return predecessor.Next() == b.Hash()
}
