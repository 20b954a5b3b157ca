package registry

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// DefaultCallTimeout bounds a single tool invocation when the configuration
// does not set one.
const DefaultCallTimeout = 30 * time.Second

// Transport identifies how a backend is reached. The set is closed: each
// value has exactly one Connection implementation.
type Transport string

const (
	// TransportLocal is an in-process function table.
	TransportLocal Transport = "local"
	// TransportSubprocess is a spawned command speaking JSON-RPC over stdio.
	TransportSubprocess Transport = "subprocess"
	// TransportSocket is a persistent websocket connection.
	TransportSocket Transport = "socket"
)

// Config describes the tool backends available to the registry. Backend
// declaration order is significant: on duplicate tool names the first backend
// wins.
type Config struct {
	Backends []*BackendConfig `json:"backends" yaml:"backends" validate:"required,dive,required"`

	// CallTimeout bounds one tool invocation, as a Go duration string.
	// Empty means 30s.
	CallTimeout string `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
}

// BackendConfig describes a single tool backend.
type BackendConfig struct {
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Transport Transport `json:"transport" yaml:"transport" validate:"required,oneof=local subprocess socket"`

	// Command, Args, Env and Dir configure a subprocess backend.
	// Env entries are appended to the parent environment.
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Endpoint is the ws:// or wss:// URL of a socket backend.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// LoadConfig reads and validates the registry configuration from a JSON or
// YAML file, expanding environment variables.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks structural and per-transport requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithMessage(err, "invalid registry config")
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, b := range c.Backends {
		if seen[b.Name] {
			return errors.Newf("duplicate backend name: %s", b.Name)
		}
		seen[b.Name] = true

		switch b.Transport {
		case TransportSubprocess:
			if b.Command == "" {
				return errors.Newf("backend %s: subprocess transport requires a command", b.Name)
			}
		case TransportSocket:
			if !strings.HasPrefix(b.Endpoint, "ws://") && !strings.HasPrefix(b.Endpoint, "wss://") {
				return errors.Newf("backend %s: socket transport requires a ws:// or wss:// endpoint", b.Name)
			}
		}
	}
	return nil
}

// Timeout returns the configured per-call timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.CallTimeout == "" {
		return DefaultCallTimeout, nil
	}
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid call_timeout: %s", c.CallTimeout)
	}
	return d, nil
}
