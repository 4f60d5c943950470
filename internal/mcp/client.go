// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ServerError represents a failure talking to one MCP server. A server
// error is never fatal to the session: the manager marks the server
// unreachable and the turn continues with the remaining tools.
type ServerError struct {
	ServerID string
	Message  string
	Cause    error
}

func (e *ServerError) Error() string {
	if e.Cause != nil {
		return "mcp server " + e.ServerID + ": " + e.Message + ": " + e.Cause.Error()
	}
	return "mcp server " + e.ServerID + ": " + e.Message
}

func (e *ServerError) Unwrap() error {
	return e.Cause
}

// IsServerError checks if an error came from an MCP server round trip.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// =============================================================================
// CLIENT
// =============================================================================

// defaultRequestTimeout bounds one MCP round trip.
const defaultRequestTimeout = 15 * time.Second

// Client speaks JSON-RPC 2.0 over HTTP POST to a single MCP server.
// Identity is a URL plus an optional bearer token. The client is
// thread-safe; request IDs are allocated atomically.
type Client struct {
	serverID   string
	url        string
	authToken  string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewClient creates a client for one server.
func NewClient(serverID, url, authToken string) *Client {
	return &Client{
		serverID:  serverID,
		url:       url,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// ServerID returns the server identity this client talks to.
func (c *Client) ServerID() string {
	return c.serverID
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ServerError{ServerID: c.serverID, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &ServerError{ServerID: c.serverID, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return &ServerError{ServerID: c.serverID, Message: "unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ServerError{ServerID: c.serverID, Message: "unexpected status " + resp.Status}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return &ServerError{ServerID: c.serverID, Message: "invalid response", Cause: err}
	}
	if rpcResp.Error != nil {
		return &ServerError{ServerID: c.serverID, Message: rpcResp.Error.Message}
	}

	if out != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return &ServerError{ServerID: c.serverID, Message: "invalid result payload", Cause: err}
		}
	}
	return nil
}

// Initialize performs the protocol handshake.
func (c *Client) Initialize(ctx context.Context) error {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		ClientInfo: clientInfo{
			Name:    "loom",
			Version: "1.0",
		},
	}
	return c.call(ctx, "initialize", params, nil)
}

// ListTools fetches the server's advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var result toolsListResult
	if err := c.call(ctx, "tools/list", struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes one remote tool with JSON-shaped arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResult, error) {
	var result ToolCallResult
	params := callToolParams{Name: name, Arguments: args}
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
