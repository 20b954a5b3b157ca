package assistants

import (
	"github.com/parley-ai/parley/llm"
	"github.com/parley-ai/parley/store"
)

// DefaultMaxIterations bounds the detection calls of one chat turn.
const DefaultMaxIterations = 4

// Option is a function that modifies the assistant Config.
type Option func(*Config)

type Config struct {
	// Name identifies the assistant in logs.
	Name string

	// MaxIterations is the maximum number of detection calls per chat turn.
	MaxIterations int

	// SystemPrompt is the base system prompt; the registry's tool
	// descriptors are appended to it.
	SystemPrompt string

	// Store, when set, receives the user turn and the final answer per
	// session.
	Store store.MessageStore

	// CallOptions are passed to every provider call.
	CallOptions []llm.CallOption
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:          "parley",
		MaxIterations: DefaultMaxIterations,
		SystemPrompt:  defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName sets the assistant name used in logs.
func WithName(name string) Option {
	return func(o *Config) {
		if name != "" {
			o.Name = name
		}
	}
}

// WithMaxIterations bounds the detection calls of one chat turn.
// Non-positive values keep the default.
func WithMaxIterations(n int) Option {
	return func(o *Config) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// WithSystemPrompt replaces the base system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		if prompt != "" {
			o.SystemPrompt = prompt
		}
	}
}

// WithStore enables per-session message history.
func WithStore(st store.MessageStore) Option {
	return func(o *Config) {
		o.Store = st
	}
}

// WithCallOptions sets provider call options applied to every call.
func WithCallOptions(opts ...llm.CallOption) Option {
	return func(o *Config) {
		o.CallOptions = opts
	}
}
