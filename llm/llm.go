// Package llm defines the streaming completion collaborator consumed by the
// orchestration loop. Providers implement two operations: a discrete detection
// call that decides whether the model wants tools, and a pure streaming call
// for the final answer. Wire-level concerns (signing, payload shape, HTTP
// retries) stay inside provider implementations.
package llm

import (
	"context"

	"github.com/parley-ai/parley/chatmodel"
)

// FunctionDefinition is the model-facing schema of a callable tool.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// Detection is the outcome of a detection call: either plain content, or one
// or more tool calls the model wants executed.
type Detection struct {
	Content   string
	ToolCalls []chatmodel.ToolCall
}

// StreamFunc receives one text delta of a streamed completion. Returning an
// error stops the stream.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Provider is a streaming completion service.
type Provider interface {
	// GetName returns the configured provider name, for logging.
	GetName() string

	// Detect asks the model whether tools are needed for the given
	// conversation. Tool schemas are passed via WithTools.
	Detect(ctx context.Context, messages []chatmodel.Message, options ...CallOption) (*Detection, error)

	// Stream generates the final answer as a sequence of text deltas. Tools
	// are never offered on this path.
	Stream(ctx context.Context, messages []chatmodel.Message, fn StreamFunc, options ...CallOption) error
}
