package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultServerPort is used when no port is configured
	DefaultServerPort = 8080
	// DefaultMaxUploadBytes bounds the size of CSV payloads accepted by the server
	DefaultMaxUploadBytes = 10 * 1024 * 1024
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Enabled        bool   `yaml:"enabled"`
	BearerToken    string `yaml:"bearerToken"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes,omitempty"`
}

// GetServerConfig returns the server configuration with defaults applied
func (c *EnvConfig) GetServerConfig() *ServerConfig {
	server := ServerConfig{}
	if c.Server != nil {
		server = *c.Server
	}
	if server.Port == 0 {
		server.Port = DefaultServerPort
	}
	if server.MaxUploadBytes == 0 {
		server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &server
}

// UpdateServerConfig replaces the server configuration
func (c *EnvConfig) UpdateServerConfig(server ServerConfig) {
	c.Server = &server
}

// GenerateBearerToken returns a random 32-byte token, hex encoded
func GenerateBearerToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate bearer token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
