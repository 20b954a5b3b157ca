// Package mcp implements a small JSON-RPC 2.0 client for tool-serving
// backends. It covers the surface the registry needs: an initialize
// handshake, tools/list and tools/call. Messages are exchanged as
// newline-delimited JSON over a pluggable transport (child-process stdio or a
// websocket connection).
package mcp

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/parley-ai/parley", "mcp")

// protocolVersion is offered during the initialize handshake. Servers may
// accept a range of versions.
const protocolVersion = "2024-11-05"

// ErrClosed is returned for any operation on a closed client.
var ErrClosed = errors.New("mcp: client is closed")

// ClientInfo identifies the calling application to the server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the server metadata captured during the handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDefinition mirrors the subset of the tool schema the registry requires.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// Content is a single content part of a tool invocation result.
type Content struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CallResult is the structured output of a tool invocation.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text concatenates the text parts of the result, preserving order.
func (r CallResult) Text() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type != "text" {
			continue
		}
		if t := strings.TrimSpace(c.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Transport carries framed JSON-RPC payloads. Receive must honor context
// cancellation so a stuck server cannot wedge a caller past its deadline.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Client speaks JSON-RPC 2.0 over a Transport. Requests are serialized: one
// outstanding request at a time, which degrades concurrent callers to
// sequential completion without deadlock.
type Client struct {
	transport Transport
	info      ClientInfo

	nextID atomic.Uint64
	mu     sync.Mutex
	closed atomic.Bool

	serverInfo ServerInfo
}

// NewClient performs the initialize handshake over the given transport and
// returns a ready client. The transport is closed on handshake failure.
func NewClient(ctx context.Context, transport Transport, info ClientInfo) (*Client, error) {
	if transport == nil {
		return nil, errors.New("mcp: transport is nil")
	}
	if info.Name == "" {
		info.Name = "parley"
	}
	if info.Version == "" {
		info.Version = "dev"
	}

	c := &Client{
		transport: transport,
		info:      info,
	}
	if err := c.initialize(ctx); err != nil {
		_ = transport.Close()
		return nil, err
	}
	return c, nil
}

// Server returns the metadata captured during the handshake.
func (c *Client) Server() ServerInfo {
	return c.serverInfo
}

// Close releases the transport. Close is idempotent.
func (c *Client) Close() error {
	if c == nil || c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// ListTools retrieves the tools exposed by the server, following pagination
// cursors when the server elects to paginate.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var (
		cursor string
		tools  []ToolDefinition
	)
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var resp struct {
			Tools      []ToolDefinition `json:"tools"`
			NextCursor string           `json:"nextCursor,omitempty"`
		}
		if err := c.call(ctx, "tools/list", params, &resp); err != nil {
			return nil, err
		}
		tools = append(tools, resp.Tools...)
		if resp.NextCursor == "" {
			return tools, nil
		}
		cursor = resp.NextCursor
	}
}

// CallTool invokes a named tool. A server-side tool failure is returned as an
// error that carries the tool's textual output.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*CallResult, error) {
	if name == "" {
		return nil, errors.New("mcp: tool name is required")
	}

	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result CallResult
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	if result.IsError {
		msg := result.Text()
		if msg == "" {
			msg = "tool reported an error"
		}
		return &result, errors.Newf("mcp: tool %s failed: %s", name, msg)
	}
	return &result, nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      c.info,
		"capabilities": map[string]any{
			"tools": map[string]bool{"list": true, "call": true},
		},
	}

	var resp struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}
	if err := c.call(ctx, "initialize", params, &resp); err != nil {
		return errors.WithMessage(err, "mcp: initialize handshake failed")
	}
	c.serverInfo = resp.ServerInfo

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "initialized",
		"server", resp.ServerInfo.Name,
		"server_version", resp.ServerInfo.Version,
	)
	return nil
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if c.closed.Load() {
		return errors.WithStack(ErrClosed)
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return errors.Wrap(err, "mcp: marshal request")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return errors.WithStack(ErrClosed)
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		return errors.Wrap(err, "mcp: send request")
	}

	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			return errors.Wrap(err, "mcp: receive response")
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return errors.Wrap(err, "mcp: decode response")
		}
		// Server-initiated notifications carry a method; skip them while
		// waiting for the response matching our id.
		if env.Method != "" || env.ID == nil || *env.ID != id {
			continue
		}
		if env.Error != nil {
			return errors.Newf("mcp: server error %d: %s", env.Error.Code, env.Error.Message)
		}
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return errors.Wrap(err, "mcp: decode result")
			}
		}
		return nil
	}
}
