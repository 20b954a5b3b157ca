// Package llmfactory constructs completion providers from configuration.
package llmfactory

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/parley-ai/parley/llm"
	"github.com/parley-ai/parley/llm/openai"
)

var logger = xlog.NewPackageLogger("github.com/parley-ai/parley", "llmfactory")

// Factory returns configured completion providers by name.
type Factory interface {
	// DefaultProvider returns the first configured provider.
	DefaultProvider() (llm.Provider, error)
	// ProviderByName returns the named provider.
	ProviderByName(name string) (llm.Provider, error)
}

// Load reads the configuration file and returns a factory over it.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	byName map[string]llm.Provider
	lock   sync.Mutex
}

// New creates a provider factory over the given configuration.
func New(cfg *Config) Factory {
	return &factory{
		cfg:    cfg,
		byName: make(map[string]llm.Provider),
	}
}

// NewProvider constructs a single provider from its configuration.
func NewProvider(cfg *ProviderConfig) (llm.Provider, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "openai", "azure", "qwen":
		return openai.New(openai.Config{
			Name:    cfg.Name,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
		})
	default:
		return nil, errors.Newf("unsupported provider type: %s", cfg.Type)
	}
}

func (f *factory) DefaultProvider() (llm.Provider, error) {
	if len(f.cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	return f.ProviderByName(f.cfg.Providers[0].Name)
}

func (f *factory) ProviderByName(name string) (llm.Provider, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if p, ok := f.byName[name]; ok {
		return p, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.Name == name {
			p, err := NewProvider(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_provider",
				"type", cfg.Type,
				"model", cfg.Model,
				"name", cfg.Name,
			)

			f.byName[name] = p
			return p, nil
		}
	}
	return nil, errors.Newf("provider not found for name: %s", name)
}
