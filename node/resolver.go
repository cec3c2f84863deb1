// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/locksidian/locksidian-go/protoerr"
)

// publicIPEndpoint is queried to discover this node's externally
// routable IP address, mirroring the reference implementation's
// monip.org probe.
const publicIPEndpoint = "https://api.ipify.org"

// AddressResolver resolves the address this node advertises to peers:
// either a local address built from the bind port (--local) or a
// publicly routable one discovered through an outbound probe.
type AddressResolver interface {
	Resolve(ctx context.Context, local bool, bindPort string) (string, error)
}

// DefaultResolver is the production AddressResolver: a short-timeout
// outbound HTTP GET against a public IP echo service, grounded on
// original_source/src/blockchain/network/public.rs's get_public_ip.
type DefaultResolver struct {
	Client *http.Client
}

func (r DefaultResolver) httpClient() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: 3 * time.Second}
}

// Resolve returns "127.0.0.1:<bindPort>" when local is true, without
// any outbound call; the host part of the listen address is not used.
// Otherwise it discovers this node's public IP and joins it with
// bindPort.
func (r DefaultResolver) Resolve(ctx context.Context, local bool, bindPort string) (string, error) {
	if local {
		return "127.0.0.1:" + bindPort, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, publicIPEndpoint, nil)
	if err != nil {
		return "", protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to build public IP discovery request")
	}

	resp, err := r.httpClient().Do(req)
	if err != nil {
		return "", protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to reach public IP discovery service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to read public IP discovery response")
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", protoerr.New(protoerr.KindUpstreamError, "public IP discovery service returned an empty body")
	}

	return ip + ":" + bindPort, nil
}

// StaticResolver always resolves to a fixed address, used by tests
// and by any deployment that already knows its advertised address.
type StaticResolver struct {
	Address string
}

func (r StaticResolver) Resolve(ctx context.Context, local bool, bindPort string) (string, error) {
	return r.Address, nil
}

var _ AddressResolver = DefaultResolver{}
var _ AddressResolver = StaticResolver{}
