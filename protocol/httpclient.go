// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/locksidian/locksidian-go/block"
	"github.com/locksidian/locksidian-go/peer"
	"github.com/locksidian/locksidian-go/protoerr"
)

// ProtocolVersion is the current protocol revision this node speaks.
// spec §9 open question 3: peer version checks are implemented as
// exact equality against this constant, the narrower of the two
// narrative variants the reference documentation describes.
const ProtocolVersion = 1

// HTTPClient is the default Client implementation: a thin wrapper
// around *http.Client with a configurable timeout, grounded on the
// reference implementation's Client wrapper (address + http client).
type HTTPClient struct {
	http    *http.Client
	address string
}

// NewHTTPClient builds an HTTPClient talking to address with the given
// per-request timeout. Outbound calls must always carry a timeout
// (spec §5): failures become per-peer errors and never hang the
// caller indefinitely.
func NewHTTPClient(address string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		http:    &http.Client{Timeout: timeout},
		address: address,
	}
}

// Address returns the peer address this client talks to.
func (c *HTTPClient) Address() string { return c.address }

func (c *HTTPClient) url(path string) string {
	return fmt.Sprintf("http://%s%s", c.address, path)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindUpstreamError, err, fmt.Sprintf("request to %s failed", c.address))
	}

	if out != nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, protoerr.Wrap(protoerr.KindUpstreamError, err, "failed to decode response body")
		}
	}

	return resp, nil
}

type versionResponse struct {
	Version int `json:"version"`
}

// CheckVersion compares the remote peer's reported protocol version
// against ours for exact equality.
func (c *HTTPClient) CheckVersion(ctx context.Context) (bool, error) {
	var out versionResponse
	resp, err := c.do(ctx, http.MethodGet, "/", nil, &out)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	return out.Version == ProtocolVersion, nil
}

// Register performs the registration handshake (spec §4.7).
func (c *HTTPClient) Register(ctx context.Context, self peer.DTO) (peer.DTO, error) {
	var out peer.DTO
	resp, err := c.do(ctx, http.MethodPost, "/peers/register", self, &out)
	if err != nil {
		return peer.DTO{}, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return peer.DTO{}, protoerr.Newf(protoerr.KindUpstreamError, "registration with %s failed: status %d", c.address, resp.StatusCode)
	}
	return out, nil
}

// GetPeers returns the remote peer's peer list.
func (c *HTTPClient) GetPeers(ctx context.Context) ([]peer.DTO, error) {
	var out []peer.DTO
	resp, err := c.do(ctx, http.MethodGet, "/peers", nil, &out)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, protoerr.Newf(protoerr.KindUpstreamError, "get_peers on %s failed: status %d", c.address, resp.StatusCode)
	}
	return out, nil
}

// Replicate sends a block replication request to the remote peer.
func (c *HTTPClient) Replicate(ctx context.Context, dto block.ReplicationDTO) error {
	resp, err := c.do(ctx, http.MethodPut, "/blocks", dto, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return protoerr.Newf(protoerr.KindUpstreamError, "replication to %s failed: status %d", c.address, resp.StatusCode)
	}
	return nil
}

type headResponse struct {
	Head string `json:"head"`
}

// GetHead fetches the remote peer's current head hash.
func (c *HTTPClient) GetHead(ctx context.Context) (string, error) {
	var out headResponse
	resp, err := c.do(ctx, http.MethodGet, "/blocks", nil, &out)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", protoerr.Newf(protoerr.KindUpstreamError, "get_head on %s failed: status %d", c.address, resp.StatusCode)
	}
	return out.Head, nil
}

// GetBlock fetches a single block by hash from the remote peer.
func (c *HTTPClient) GetBlock(ctx context.Context, hash string) (block.DTO, bool, error) {
	var out block.DTO
	resp, err := c.do(ctx, http.MethodGet, "/blocks/"+hash, nil, &out)
	if err != nil {
		return block.DTO{}, false, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNoContent {
		return block.DTO{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return block.DTO{}, false, protoerr.Newf(protoerr.KindUpstreamError, "get_block on %s failed: status %d", c.address, resp.StatusCode)
	}
	return out, true, nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	resp.Body.Close()
}
