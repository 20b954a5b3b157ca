package registry

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/parley-ai/parley/llmutils"
	"github.com/parley-ai/parley/tools"
)

// connState is the shared atomic lifecycle holder embedded by connections.
type connState struct {
	v atomic.Int32
}

func (s *connState) get() State {
	return State(s.v.Load())
}

func (s *connState) set(st State) {
	s.v.Store(int32(st))
}

// localConn serves an in-process function table. It is ready as soon as
// Connect runs; there is no external process or socket behind it.
type localConn struct {
	id     string
	state  connState
	list   []tools.ITool
	byName map[string]tools.ITool
}

func newLocalConn(id string, list []tools.ITool) *localConn {
	byName := make(map[string]tools.ITool, len(list))
	for _, t := range list {
		byName[t.Name()] = t
	}
	return &localConn{
		id:     id,
		list:   list,
		byName: byName,
	}
}

func (c *localConn) ID() string {
	return c.id
}

func (c *localConn) Transport() Transport {
	return TransportLocal
}

func (c *localConn) State() State {
	return c.state.get()
}

func (c *localConn) Connect(_ context.Context) error {
	if c.state.get() == StateClosed {
		return errors.Newf("backend %s is closed", c.id)
	}
	if len(c.list) == 0 {
		c.state.set(StateFailed)
		return errors.Newf("backend %s has no local tools registered", c.id)
	}
	c.state.set(StateReady)
	return nil
}

func (c *localConn) ListTools(_ context.Context) ([]ToolDescriptor, error) {
	if c.state.get() != StateReady {
		return nil, errors.Newf("backend %s is not ready", c.id)
	}
	descs := make([]ToolDescriptor, 0, len(c.list))
	for _, t := range c.list {
		descs = append(descs, ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: toSchemaMap(t.Parameters()),
			Backend:     c.id,
		})
	}
	return descs, nil
}

func (c *localConn) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	if c.state.get() != StateReady {
		return nil, errors.Newf("backend %s is not ready", c.id)
	}
	tool, ok := c.byName[name]
	if !ok {
		return nil, errors.Newf("backend %s does not serve tool %s", c.id, name)
	}
	return tool.Call(ctx, llmutils.ToJSON(args))
}

func (c *localConn) Close() error {
	c.state.set(StateClosed)
	return nil
}
