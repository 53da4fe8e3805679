package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPathVariable overrides the location of the environment file
	EnvPathVariable = "SCROLLYSTORY_ENV"
	// APIKeyVariable fills in an API key missing from the environment file
	APIKeyVariable = "SCROLLYSTORY_API_KEY"

	// DefaultTemperature is the sampling temperature used when none is configured
	DefaultTemperature = 0.7
)

// Provider represents a provider's configuration
type Provider struct {
	Kind    string   `yaml:"kind,omitempty"`
	BaseURL string   `yaml:"base_url,omitempty"`
	APIKey  string   `yaml:"api_key"`
	Model   string   `yaml:"model,omitempty"`
	Models  []string `yaml:"models,omitempty"`
}

// GenerationConfig holds defaults for generate and refactor runs
type GenerationConfig struct {
	Temperature *float64 `yaml:"temperature,omitempty"`
	Stream      bool     `yaml:"stream,omitempty"`
	StoryStyle  string   `yaml:"story_style,omitempty"`
	Output      string   `yaml:"output,omitempty"`
}

// SamplingTemperature returns the configured temperature, or DefaultTemperature when unset.
// An explicit 0 is kept.
func (g GenerationConfig) SamplingTemperature() float64 {
	if g.Temperature == nil {
		return DefaultTemperature
	}
	return *g.Temperature
}

// EnvConfig represents the complete environment configuration
type EnvConfig struct {
	DefaultProvider string               `yaml:"default_provider,omitempty"`
	Providers       map[string]*Provider `yaml:"providers"`
	Generation      *GenerationConfig    `yaml:"generation,omitempty"`
	Server          *ServerConfig        `yaml:"server,omitempty"`
}

// GetEnvPath returns the environment file path from SCROLLYSTORY_ENV or the default
func GetEnvPath() string {
	if envPath := os.Getenv(EnvPathVariable); envPath != "" {
		DebugLog("Using environment file from %s: %s", EnvPathVariable, envPath)
		return envPath
	}
	DebugLog("Using default environment file: .env")
	return ".env"
}

// LoadEnvConfig loads the environment configuration from the given file
func LoadEnvConfig(path string) (*EnvConfig, error) {
	DebugLog("Attempting to load environment configuration from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		DebugLog("Error reading environment file: %v", err)
		return nil, fmt.Errorf("error reading env file: %w", err)
	}

	var config EnvConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		DebugLog("Error parsing environment file: %v", err)
		return nil, fmt.Errorf("error parsing env file: %w", err)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]*Provider)
	}

	DebugLog("Successfully loaded environment configuration (%d providers)", len(config.Providers))
	return &config, nil
}

// LoadOrEmpty loads the environment file, returning an empty configuration if it does not exist
func LoadOrEmpty(path string) (*EnvConfig, error) {
	config, err := LoadEnvConfig(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			DebugLog("Environment file %s not found, starting with empty configuration", path)
			return &EnvConfig{Providers: make(map[string]*Provider)}, nil
		}
		return nil, err
	}
	return config, nil
}

// SaveEnvConfig saves the environment configuration. The file holds API keys so it is
// written readable by the owner only.
func SaveEnvConfig(path string, config *EnvConfig) error {
	DebugLog("Attempting to save environment configuration to: %s", path)

	data, err := yaml.Marshal(config)
	if err != nil {
		DebugLog("Error marshaling environment config: %v", err)
		return fmt.Errorf("error marshaling env config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		DebugLog("Error writing environment file: %v", err)
		return fmt.Errorf("error writing env file: %w", err)
	}

	DebugLog("Successfully saved environment configuration")
	return nil
}

// GetProviderConfig retrieves configuration for a specific provider
func (c *EnvConfig) GetProviderConfig(providerName string) (*Provider, error) {
	provider, exists := c.Providers[providerName]
	if !exists {
		return nil, fmt.Errorf("provider %s not found in configuration", providerName)
	}
	if provider == nil {
		return nil, fmt.Errorf("provider %s configuration is nil", providerName)
	}

	if provider.APIKey == "" {
		if key := os.Getenv(APIKeyVariable); key != "" {
			DebugLog("Using API key from %s for provider %s", APIKeyVariable, providerName)
			withKey := *provider
			withKey.APIKey = key
			return &withKey, nil
		}
	}
	return provider, nil
}

// SelectProvider picks the provider to use: the explicit name if given, then the configured
// default, then the only configured provider.
func (c *EnvConfig) SelectProvider(name string) (string, *Provider, error) {
	if name == "" {
		name = c.DefaultProvider
	}
	if name == "" {
		names := c.ProviderNames()
		switch len(names) {
		case 0:
			return "", nil, fmt.Errorf("no providers configured; run 'scrollystory configure' first")
		case 1:
			name = names[0]
		default:
			return "", nil, fmt.Errorf("multiple providers configured (%s); choose one with --provider or set default_provider",
				strings.Join(names, ", "))
		}
	}

	provider, err := c.GetProviderConfig(name)
	if err != nil {
		return "", nil, err
	}
	return name, provider, nil
}

// AddProvider adds or updates a provider configuration
func (c *EnvConfig) AddProvider(name string, provider Provider) {
	if c.Providers == nil {
		c.Providers = make(map[string]*Provider)
	}
	providerCopy := provider
	c.Providers[name] = &providerCopy
}

// RemoveProvider deletes a provider; removing an unknown provider is not an error
func (c *EnvConfig) RemoveProvider(name string) {
	delete(c.Providers, name)
	if c.DefaultProvider == name {
		c.DefaultProvider = ""
	}
}

// UpdateAPIKey updates the API key for a specific provider
func (c *EnvConfig) UpdateAPIKey(providerName, apiKey string) error {
	provider, exists := c.Providers[providerName]
	if !exists {
		return fmt.Errorf("provider %s not found", providerName)
	}

	provider.APIKey = apiKey
	return nil
}

// ProviderNames returns the configured provider names in sorted order
func (c *EnvConfig) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetGenerationConfig returns generation defaults, filling in unset values
func (c *EnvConfig) GetGenerationConfig() GenerationConfig {
	var gen GenerationConfig
	if c.Generation != nil {
		gen = *c.Generation
	}
	t := gen.SamplingTemperature()
	gen.Temperature = &t
	return gen
}
