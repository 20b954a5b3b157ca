package registry

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/parley-ai/parley/mcp"
)

// subprocessConn spawns a command on Connect and speaks newline-delimited
// JSON-RPC over its standard streams. The child is killed on Close.
type subprocessConn struct {
	cfg   *BackendConfig
	state connState

	mu     sync.Mutex
	client *mcp.Client
}

func newSubprocessConn(cfg *BackendConfig) *subprocessConn {
	return &subprocessConn{cfg: cfg}
}

func (c *subprocessConn) ID() string {
	return c.cfg.Name
}

func (c *subprocessConn) Transport() Transport {
	return TransportSubprocess
}

func (c *subprocessConn) State() State {
	return c.state.get()
}

func (c *subprocessConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.get() {
	case StateReady:
		return nil
	case StateClosed:
		return errors.Newf("backend %s is closed", c.cfg.Name)
	}

	c.state.set(StateConnecting)
	client, err := mcp.NewStdioClient(ctx, mcp.StdioConfig{
		Command: c.cfg.Command,
		Args:    c.cfg.Args,
		Dir:     c.cfg.Dir,
		Env:     c.cfg.Env,
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
		"transport", TransportSubprocess,
		"server", client.Server().Name,
	)
	return nil
}

func (c *subprocessConn) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
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

func (c *subprocessConn) Call(ctx context.Context, name string, args map[string]any) (any, error) {
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

func (c *subprocessConn) Close() error {
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

func (c *subprocessConn) ready() (*mcp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.get() != StateReady || c.client == nil {
		return nil, errors.Newf("backend %s is not ready: %s", c.cfg.Name, c.state.get())
	}
	return c.client, nil
}

func descriptorsFromMCP(backend string, defs []mcp.ToolDefinition) []ToolDescriptor {
	descs := make([]ToolDescriptor, 0, len(defs))
	for _, d := range defs {
		descs = append(descs, ToolDescriptor{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
			Backend:     backend,
		})
	}
	return descs
}
