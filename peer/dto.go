// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// DTO is the wire representation of a Peer exchanged during
// registration handshakes and peer-list responses.
type DTO struct {
	Key     string `json:"key"`
	Address string `json:"address"`
}

// ToDTO renders p as its wire representation.
func (p *Peer) ToDTO() (DTO, error) {
	keyHex, err := p.KeyHex()
	if err != nil {
		return DTO{}, err
	}

	return DTO{Key: keyHex, Address: p.address}, nil
}

// FromDTO builds a Peer from its wire representation.
func FromDTO(dto DTO) (*Peer, error) {
	return New(dto.Key, dto.Address)
}
