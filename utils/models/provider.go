// Package models talks to OpenAI-compatible chat completion endpoints.
package models

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kris-hansen/scrollystory/utils/config"
)

// ProviderKind identifies a provider family. It is resolved once, when a ProviderConfig is built.
type ProviderKind int

const (
	Custom ProviderKind = iota
	OpenAI
	Gemini
	AIPipe
	OpenRouter
)

var kindNames = map[ProviderKind]string{
	Custom:     "custom",
	OpenAI:     "openai",
	Gemini:     "gemini",
	AIPipe:     "aipipe",
	OpenRouter: "openrouter",
}

var defaultBaseURLs = map[ProviderKind]string{
	OpenAI:     "https://api.openai.com/v1",
	Gemini:     "https://generativelanguage.googleapis.com/v1beta/openai",
	AIPipe:     "https://aipipe.org/openrouter/v1",
	OpenRouter: "https://openrouter.ai/api/v1",
}

var defaultModels = map[ProviderKind]string{
	OpenAI:     "gpt-5",
	Gemini:     "gemini-2.5-flash",
	AIPipe:     "gpt-5",
	OpenRouter: "openai/gpt-4o-mini",
	Custom:     "gpt-4o-mini",
}

const (
	refererURL = "https://github.com/kris-hansen/scrollystory"
	appTitle   = "scrollystory"
)

func (k ProviderKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ProviderKind(%d)", int(k))
}

// ParseProviderKind parses a kind name such as "openrouter"
func ParseProviderKind(name string) (ProviderKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return Custom, fmt.Errorf("unknown provider kind %q (expected one of: openai, gemini, aipipe, openrouter, custom)", name)
}

// Kinds returns every kind in declaration order
func Kinds() []ProviderKind {
	return []ProviderKind{OpenAI, Gemini, AIPipe, OpenRouter, Custom}
}

// DefaultBaseURL returns the kind's default endpoint, empty for Custom
func (k ProviderKind) DefaultBaseURL() string {
	return defaultBaseURLs[k]
}

// DefaultModel returns the model used when none is configured
func (k ProviderKind) DefaultModel() string {
	return defaultModels[k]
}

// ResolveKind infers the provider family from a base URL's host
func ResolveKind(baseURL string) ProviderKind {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return Custom
	}
	host := strings.ToLower(u.Hostname())

	matches := func(domain string) bool {
		return host == domain || strings.HasSuffix(host, "."+domain)
	}
	switch {
	case matches("openai.com"):
		return OpenAI
	case host == "generativelanguage.googleapis.com":
		return Gemini
	case matches("aipipe.org"):
		return AIPipe
	case matches("openrouter.ai"):
		return OpenRouter
	default:
		return Custom
	}
}

// ProviderConfig is the capability value passed to every client call
type ProviderConfig struct {
	Name    string
	Kind    ProviderKind
	BaseURL string
	APIKey  string
	Model   string
	Models  []string
}

// NewProviderConfig builds a config, resolving the kind from the base URL
func NewProviderConfig(baseURL, apiKey, model string) ProviderConfig {
	return ProviderConfig{
		Kind:    ResolveKind(baseURL),
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
	}
}

// FromConfig converts a stored provider entry. An explicit base URL decides the kind;
// the stored kind only applies when the URL is absent or unrecognized.
func FromConfig(name string, p *config.Provider) (ProviderConfig, error) {
	cfg := NewProviderConfig(p.BaseURL, p.APIKey, p.Model)
	cfg.Name = name
	cfg.Models = p.Models

	if cfg.Kind == Custom && p.Kind != "" {
		kind, err := ParseProviderKind(p.Kind)
		if err != nil {
			return ProviderConfig{}, fmt.Errorf("provider %s: %w", name, err)
		}
		cfg.Kind = kind
	}
	return cfg, nil
}

// ResolveProvider selects a provider from the environment configuration. With no providers
// configured, an API key from SCROLLYSTORY_API_KEY selects the OpenAI defaults.
func ResolveProvider(env *config.EnvConfig, name string) (ProviderConfig, error) {
	if name == "" && len(env.Providers) == 0 {
		if key := os.Getenv(config.APIKeyVariable); key != "" {
			config.DebugLog("No providers configured, using %s with OpenAI defaults", config.APIKeyVariable)
			cfg := NewProviderConfig(OpenAI.DefaultBaseURL(), key, "")
			cfg.Name = OpenAI.String()
			return cfg, nil
		}
	}

	selected, p, err := env.SelectProvider(name)
	if err != nil {
		return ProviderConfig{}, err
	}
	cfg, err := FromConfig(selected, p)
	if err != nil {
		return ProviderConfig{}, err
	}
	config.DebugLog("Resolved provider %s", cfg)
	return cfg, nil
}

// Usable reports whether a request can be attempted
func (c ProviderConfig) Usable() bool {
	return c.APIKey != "" && c.Endpoint() != ""
}

// Endpoint returns the base URL without a trailing slash, falling back to the kind's default
func (c ProviderConfig) Endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = c.Kind.DefaultBaseURL()
	}
	return strings.TrimRight(base, "/")
}

// ResolvedModel returns the configured model or the kind's default
func (c ProviderConfig) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	return c.Kind.DefaultModel()
}

// WithModel returns a copy using the given model; an empty model keeps the current one
func (c ProviderConfig) WithModel(model string) ProviderConfig {
	if model != "" {
		c.Model = model
	}
	return c
}

// String never includes the full API key
func (c ProviderConfig) String() string {
	name := c.Name
	if name == "" {
		name = c.Kind.String()
	}
	return fmt.Sprintf("%s (kind=%s endpoint=%s model=%s key=%s)",
		name, c.Kind, c.Endpoint(), c.ResolvedModel(), config.MaskKey(c.APIKey))
}

// extraHeaders are attribution headers some gateways expect
func (c ProviderConfig) extraHeaders() map[string]string {
	switch c.Kind {
	case OpenRouter, AIPipe:
		return map[string]string{
			"HTTP-Referer": refererURL,
			"X-Title":      appTitle,
		}
	default:
		return nil
	}
}
