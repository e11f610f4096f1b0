// Package config loads the composition-boundary configuration: backend
// endpoints and credential sources. Environment lookups happen here and only
// here; the engine core receives explicit values and never reads the process
// environment itself.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CloudBackend configures one cloud inference provider.
type CloudBackend struct {
	// APIKey is the explicit bearer credential. Takes precedence over
	// APIKeyEnv when both are set.
	APIKey string `yaml:"api_key"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible hosts).
	BaseURL string `yaml:"base_url"`
}

// ResolveCredential returns the explicit credential when present, otherwise
// the value of the named environment variable.
func (c CloudBackend) ResolveCredential() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}

// LocalBackend configures the local inference runtime.
type LocalBackend struct {
	BaseURL string `yaml:"base_url"`
}

// Backends groups the per-provider backend configuration.
type Backends struct {
	OpenAI    CloudBackend `yaml:"openai"`
	Anthropic CloudBackend `yaml:"anthropic"`
	Ollama    LocalBackend `yaml:"ollama"`
}

// Config is the root configuration document.
type Config struct {
	Backends Backends `yaml:"backends"`
}

// Default returns the configuration used when no file is supplied: standard
// credential environment variables and the default local runtime address.
func Default() *Config {
	return &Config{
		Backends: Backends{
			OpenAI:    CloudBackend{APIKeyEnv: "OPENAI_API_KEY"},
			Anthropic: CloudBackend{APIKeyEnv: "ANTHROPIC_API_KEY"},
			Ollama:    LocalBackend{BaseURL: "http://localhost:11434"},
		},
	}
}

// Load reads a YAML configuration file, applying Default values for omitted
// sections.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// CredentialFor resolves the credential for a provider namespace as used in
// model identifiers ("openai", "anthropic").
func (c *Config) CredentialFor(provider string) string {
	switch provider {
	case "anthropic":
		return c.Backends.Anthropic.ResolveCredential()
	default:
		return c.Backends.OpenAI.ResolveCredential()
	}
}

// BaseURLFor resolves the endpoint override for a provider namespace; the
// empty provider addresses the local runtime.
func (c *Config) BaseURLFor(provider string) string {
	switch provider {
	case "":
		return c.Backends.Ollama.BaseURL
	case "anthropic":
		return ""
	default:
		return c.Backends.OpenAI.BaseURL
	}
}
