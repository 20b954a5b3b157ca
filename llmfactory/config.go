package llmfactory

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config describes the completion providers available to the application.
type Config struct {
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"required,dive,required"`
}

// ProviderConfig names one completion provider. Qwen and Azure deployments
// are reached through their OpenAI-compatible endpoints, so BaseURL selects
// the deployment while Type selects defaults and validation.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// Type is one of: openai, azure, qwen.
	Type  string `json:"type" yaml:"type" validate:"required,oneof=openai azure qwen"`
	Model string `json:"model" yaml:"model" validate:"required"`
	// BaseURL overrides the provider endpoint; required for azure and qwen.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env" validate:"required"`
}

// LoadConfig reads and validates the provider configuration from a JSON or
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

// Validate checks structural and per-type requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithMessage(err, "invalid provider config")
	}
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if seen[p.Name] {
			return errors.Newf("duplicate provider name: %s", p.Name)
		}
		seen[p.Name] = true

		if (p.Type == "azure" || p.Type == "qwen") && p.BaseURL == "" {
			return errors.Newf("provider %s: type %s requires base_url", p.Name, p.Type)
		}
	}
	return nil
}

// APIKey resolves the provider credential from the environment.
func (p *ProviderConfig) APIKey() (string, error) {
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", errors.Newf("provider %s: environment variable %s is not set", p.Name, p.APIKeyEnv)
	}
	return key, nil
}
