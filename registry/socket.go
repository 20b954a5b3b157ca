package registry

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/parley-ai/parley/mcp"
)

// socketConn holds a persistent websocket connection to a remote tool server.
// A dial failure marks only this backend failed; other backends are not
// affected.
type socketConn struct {
	cfg   *BackendConfig
	state connState

	mu     sync.Mutex
	client *mcp.Client
}

func newSocketConn(cfg *BackendConfig) *socketConn {
	return &socketConn{cfg: cfg}
}

func (c *socketConn) ID() string {
	return c.cfg.Name
}

func (c *socketConn) Transport() Transport {
	return TransportSocket
}

func (c *socketConn) State() State {
	return c.state.get()
}

func (c *socketConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.get() {
	case StateReady:
		return nil
	case StateClosed:
		return errors.Newf("backend %s is closed", c.cfg.Name)
	}

	c.state.set(StateConnecting)
	client, err := mcp.NewSocketClient(ctx, mcp.SocketConfig{
		Endpoint: c.cfg.Endpoint,
	})
	if err != nil {
		c.state.set(StateFailed)
		return errors.WithMessagef(err, "backend %s", c.cfg.Name)
	}

	c.client = client
	c.state.set(StateReady)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "backend_ready",
		"backend", c.cfg.Name,
		"transport", TransportSocket,
		"endpoint", c.cfg.Endpoint,
	)
	return nil
}

func (c *socketConn) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	client, err := c.ready()
	if err != nil {
		return nil, err
	}
	defs, err := client.ListTools(ctx)
	if err != nil {
		c.state.set(StateFailed)
		return nil, errors.WithMessagef(err, "backend %s", c.cfg.Name)
	}
	return descriptorsFromMCP(c.cfg.Name, defs), nil
}

func (c *socketConn) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	client, err := c.ready()
	if err != nil {
		return nil, err
	}
	res, err := client.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *socketConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.get() == StateClosed {
		return nil
	}
	c.state.set(StateClosed)
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *socketConn) ready() (*mcp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.get() != StateReady || c.client == nil {
		return nil, errors.Newf("backend %s is not ready: %s", c.cfg.Name, c.state.get())
	}
	return c.client, nil
}
