// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics reports aggregated counts over the registry, served
// at GET /metrics.
package metrics

import "github.com/locksidian/locksidian-go/protoerr"

// Counter is the subset of the registry's Count* operations metrics
// depends on.
type Counter interface {
	CountBlocks() (int64, error)
	CountPeers() (int64, error)
	CountIdentities() (int64, error)
}

// Metric is a single named count, e.g. {"name": "blocks", "count": 42}.
type Metric struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Collect gathers the node's block/peer/identity counts.
func Collect(counter Counter) ([]Metric, error) {
	blocks, err := counter.CountBlocks()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to count blocks")
	}

	peers, err := counter.CountPeers()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to count peers")
	}

	identities, err := counter.CountIdentities()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindRegistryReadError, err, "failed to count identities")
	}

	return []Metric{
		{Name: "blocks", Count: blocks},
		{Name: "peers", Count: peers},
		{Name: "identities", Count: identities},
	}, nil
}
