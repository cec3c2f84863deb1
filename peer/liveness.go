// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// IsStale reports whether this peer has gone silent for longer than
// maxAge (in milliseconds) as of now, pre-filtering candidates for the
// purge routine's version probe. A peer that has never been contacted
// (LastRecv == 0) is never considered stale by this check alone: the
// probe still runs for it, the same as for any freshly registered
// peer, mirroring addrmgr's KnownAddress.isBad treatment of untried
// addresses.
func (p *Peer) IsStale(now, maxAge int64) bool {
	if p.lastRecv == 0 {
		return false
	}
	return now-p.lastRecv > maxAge
}
