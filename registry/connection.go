package registry

import (
	"context"
	"encoding/json"
)

// State is the lifecycle phase of a backend connection.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ToolDescriptor is the registry's view of a single tool.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
	// Backend is the name of the owning backend.
	Backend string `json:"backend"`
}

// Connection is one tool backend. Implementations are safe for concurrent
// Call once Connect has succeeded.
type Connection interface {
	// ID returns the backend name from configuration.
	ID() string
	// Transport identifies the connection kind.
	Transport() Transport
	// State reports the current lifecycle phase.
	State() State
	// Connect establishes the backend. Safe to call again after failure.
	Connect(ctx context.Context) error
	// ListTools returns the tools the backend exposes.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	// Call invokes a named tool. The returned value is raw backend output,
	// normalized by the dispatcher.
	Call(ctx context.Context, name string, args map[string]any) (any, error)
	// Close releases the backend. Idempotent.
	Close() error
}

// toSchemaMap converts a tool's parameter definition to the generic map shape
// descriptors carry.
func toSchemaMap(v any) map[string]any {
	if v == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
