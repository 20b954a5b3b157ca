// Package registry aggregates tool backends behind a single lookup, call and
// lifecycle surface. Backends are reached over one of three transports
// (in-process, subprocess stdio, websocket); tool names are unique across the
// registry with first-declared-backend-wins on collision.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/parley-ai/parley/chatmodel"
	"github.com/parley-ai/parley/llm"
	"github.com/parley-ai/parley/pkg/metricskey"
	"github.com/parley-ai/parley/tools"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var logger = xlog.NewPackageLogger("github.com/parley-ai/parley", "registry")

// Option configures a Registry.
type Option func(*Registry)

// WithLocalTools binds an in-process tool set to the named local backend.
func WithLocalTools(backend string, list ...tools.ITool) Option {
	return func(r *Registry) {
		r.localTools[backend] = list
	}
}

// WithCallTimeout overrides the configured per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

type binding struct {
	desc ToolDescriptor
	conn Connection
}

// BackendStatus reports one backend's lifecycle state.
type BackendStatus struct {
	Name      string    `json:"name"`
	Transport Transport `json:"transport"`
	State     State     `json:"state"`
}

// Registry is the process-wide tool registry. It is constructed once at
// startup and shared by reference; all methods are safe for concurrent use.
// Reload is stop-the-world with respect to lookups: in-flight calls hold the
// read side of the lock.
type Registry struct {
	cfg        *Config
	localTools map[string][]tools.ITool
	timeout    time.Duration

	mu               sync.RWMutex
	conns            *orderedmap.OrderedMap[string, Connection]
	tools            *orderedmap.OrderedMap[string, *binding]
	fullyInitialized bool
	closed           bool
}

// NewRegistry builds connections for every configured backend. No IO happens
// here; call InitializeAll to connect and discover tools.
func NewRegistry(cfg *Config, opts ...Option) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("registry config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:        cfg,
		localTools: map[string][]tools.ITool{},
		timeout:    timeout,
		tools:      orderedmap.New[string, *binding](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.conns = r.buildConnections()
	return r, nil
}

func (r *Registry) buildConnections() *orderedmap.OrderedMap[string, Connection] {
	conns := orderedmap.New[string, Connection]()
	for _, b := range r.cfg.Backends {
		var conn Connection
		switch b.Transport {
		case TransportLocal:
			conn = newLocalConn(b.Name, r.localTools[b.Name])
		case TransportSubprocess:
			conn = newSubprocessConn(b)
		case TransportSocket:
			conn = newSocketConn(b)
		}
		conns.Set(b.Name, conn)
	}
	return conns
}

// InitializeAll connects every backend and discovers its tools. A backend
// failure is logged and isolated; the rest keep going. Repeat calls after a
// successful pass are no-ops.
func (r *Registry) InitializeAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("registry is closed")
	}
	if r.fullyInitialized {
		return nil
	}
	r.initializeLocked(ctx)
	return nil
}

func (r *Registry) initializeLocked(ctx context.Context) {
	for pair := r.conns.Oldest(); pair != nil; pair = pair.Next() {
		conn := pair.Value
		if err := conn.Connect(ctx); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "backend_unavailable",
				"backend", conn.ID(),
				"transport", conn.Transport(),
				"err", err.Error(),
			)
			continue
		}

		descs, err := conn.ListTools(ctx)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "list_tools_failed",
				"backend", conn.ID(),
				"err", err.Error(),
			)
			continue
		}

		for _, desc := range descs {
			if existing, ok := r.tools.Get(desc.Name); ok {
				logger.ContextKV(ctx, xlog.WARNING,
					"status", "duplicate_tool_dropped",
					"tool", desc.Name,
					"backend", desc.Backend,
					"kept_backend", existing.desc.Backend,
				)
				continue
			}
			r.tools.Set(desc.Name, &binding{desc: desc, conn: conn})
		}
	}

	r.fullyInitialized = true
	logger.ContextKV(ctx, xlog.INFO,
		"status", "initialized",
		"backends", r.conns.Len(),
		"tools", r.tools.Len(),
	)
}

// ListTools returns every registered tool descriptor in registration order.
func (r *Registry) ListTools() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]ToolDescriptor, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		descs = append(descs, pair.Value.desc)
	}
	return descs
}

// FunctionDefinitions renders the registered tools in the shape the model
// provider expects.
func (r *Registry) FunctionDefinitions() []llm.FunctionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.FunctionDefinition, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		desc := pair.Value.desc
		defs = append(defs, llm.FunctionDefinition{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.InputSchema,
		})
	}
	return defs
}

// Backends reports the lifecycle state of every backend in declaration order.
func (r *Registry) Backends() []BackendStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]BackendStatus, 0, r.conns.Len())
	for pair := r.conns.Oldest(); pair != nil; pair = pair.Next() {
		statuses = append(statuses, BackendStatus{
			Name:      pair.Value.ID(),
			Transport: pair.Value.Transport(),
			State:     pair.Value.State(),
		})
	}
	return statuses
}

// CallTool resolves the call to its owning backend and dispatches it. The
// result is always a ToolResult; resolution and execution failures are folded
// into a failed envelope rather than raised. This path performs no connection
// setup.
func (r *Registry) CallTool(ctx context.Context, call chatmodel.ToolCall) ToolResult {
	toolName := call.Function.Name

	args, err := call.ParseArguments()
	if err != nil {
		return failedResult(toolName, err.Error())
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return failedResult(toolName, "registry is closed")
	}

	b, ok := r.tools.Get(toolName)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		return failedResult(toolName,
			"tool not found: "+toolName+", available: ["+strings.Join(r.toolNamesLocked(), ", ")+"]")
	}

	return dispatch(ctx, b.conn, toolName, args, r.timeout)
}

func (r *Registry) toolNamesLocked() []string {
	names := make([]string, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Reload tears down every backend and rebuilds the registry from the given
// configuration. Invalid configuration is rejected before any teardown, so a
// failed Reload leaves the running registry untouched. Lookups never observe
// a half-built registry: Reload holds the write lock for the whole pass. The
// new configuration's call timeout replaces any previous value.
func (r *Registry) Reload(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.New("registry config is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeConnsLocked(ctx)
	r.cfg = cfg
	r.timeout = timeout
	r.closed = false
	r.fullyInitialized = false
	r.tools = orderedmap.New[string, *binding]()
	r.conns = r.buildConnections()
	r.initializeLocked(ctx)
	return nil
}

// CloseAll releases every backend. Idempotent; subsequent CallTool requests
// return failed results.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closeConnsLocked(ctx)
	r.closed = true
	r.fullyInitialized = false
	r.tools = orderedmap.New[string, *binding]()
	return nil
}

func (r *Registry) closeConnsLocked(ctx context.Context) {
	for pair := r.conns.Oldest(); pair != nil; pair = pair.Next() {
		if err := pair.Value.Close(); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "close_failed",
				"backend", pair.Value.ID(),
				"err", err.Error(),
			)
		}
	}
}
