package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadEnvConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	cfg := &EnvConfig{DefaultProvider: "openrouter"}
	cfg.AddProvider("openrouter", Provider{
		Kind:    "openrouter",
		BaseURL: "https://openrouter.ai/api/v1",
		APIKey:  "sk-or-test",
		Model:   "openai/gpt-4o-mini",
	})
	cfg.UpdateServerConfig(ServerConfig{Port: 9090, BearerToken: "secret"})

	require.NoError(t, SaveEnvConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadEnvConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", loaded.DefaultProvider)
	require.Contains(t, loaded.Providers, "openrouter")
	assert.Equal(t, "sk-or-test", loaded.Providers["openrouter"].APIKey)
	assert.Equal(t, 9090, loaded.GetServerConfig().Port)
	assert.Equal(t, "secret", loaded.GetServerConfig().BearerToken)
}

func TestLoadOrEmptyMissingFile(t *testing.T) {
	cfg, err := LoadOrEmpty(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)

	_, err = LoadEnvConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadEnvConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("providers: [unterminated"), 0600))

	_, err := LoadOrEmpty(path)
	assert.Error(t, err)
}

func TestGetEnvPath(t *testing.T) {
	t.Setenv(EnvPathVariable, "")
	assert.Equal(t, ".env", GetEnvPath())

	t.Setenv(EnvPathVariable, "/tmp/custom.env")
	assert.Equal(t, "/tmp/custom.env", GetEnvPath())
}

func TestGetProviderConfigAPIKeyOverride(t *testing.T) {
	cfg := &EnvConfig{}
	cfg.AddProvider("openai", Provider{Kind: "openai"})
	cfg.AddProvider("gemini", Provider{Kind: "gemini", APIKey: "stored"})

	t.Setenv(APIKeyVariable, "from-env")

	p, err := cfg.GetProviderConfig("openai")
	require.NoError(t, err)
	assert.Equal(t, "from-env", p.APIKey)
	assert.Empty(t, cfg.Providers["openai"].APIKey, "stored entry must not be mutated")

	p, err = cfg.GetProviderConfig("gemini")
	require.NoError(t, err)
	assert.Equal(t, "stored", p.APIKey)

	_, err = cfg.GetProviderConfig("missing")
	assert.Error(t, err)
}

func TestSelectProvider(t *testing.T) {
	t.Setenv(APIKeyVariable, "")

	empty := &EnvConfig{}
	_, _, err := empty.SelectProvider("")
	assert.Error(t, err)

	single := &EnvConfig{}
	single.AddProvider("only", Provider{APIKey: "k"})
	name, p, err := single.SelectProvider("")
	require.NoError(t, err)
	assert.Equal(t, "only", name)
	assert.Equal(t, "k", p.APIKey)

	multi := &EnvConfig{}
	multi.AddProvider("a", Provider{APIKey: "ka"})
	multi.AddProvider("b", Provider{APIKey: "kb"})
	_, _, err = multi.SelectProvider("")
	assert.ErrorContains(t, err, "a, b")

	multi.DefaultProvider = "b"
	name, _, err = multi.SelectProvider("")
	require.NoError(t, err)
	assert.Equal(t, "b", name)

	name, _, err = multi.SelectProvider("a")
	require.NoError(t, err)
	assert.Equal(t, "a", name)
}

func TestRemoveProviderClearsDefault(t *testing.T) {
	cfg := &EnvConfig{DefaultProvider: "a"}
	cfg.AddProvider("a", Provider{})
	cfg.AddProvider("b", Provider{})

	cfg.RemoveProvider("a")
	assert.Equal(t, []string{"b"}, cfg.ProviderNames())
	assert.Empty(t, cfg.DefaultProvider)

	cfg.RemoveProvider("unknown")
	assert.Equal(t, []string{"b"}, cfg.ProviderNames())

	assert.Error(t, cfg.UpdateAPIKey("a", "k"))
	require.NoError(t, cfg.UpdateAPIKey("b", "k"))
	assert.Equal(t, "k", cfg.Providers["b"].APIKey)
}

func TestGetGenerationConfigDefaults(t *testing.T) {
	cfg := &EnvConfig{}
	assert.Equal(t, DefaultTemperature, cfg.GetGenerationConfig().SamplingTemperature())

	cfg.Generation = &GenerationConfig{StoryStyle: "playful", Stream: true}
	gen := cfg.GetGenerationConfig()
	require.NotNil(t, gen.Temperature)
	assert.Equal(t, DefaultTemperature, *gen.Temperature)
	assert.Equal(t, "playful", gen.StoryStyle)
	assert.True(t, gen.Stream)
	assert.Nil(t, cfg.Generation.Temperature)
}

func TestGenerationConfigKeepsZeroTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  temperature: 0\n"), 0600))

	cfg, err := LoadEnvConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.GetGenerationConfig().SamplingTemperature())

	require.NoError(t, SaveEnvConfig(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "temperature: 0")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "sk-a****wxyz", MaskKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		Verbose, Debug = false, false
	})

	Verbose, Debug = false, false
	VerboseLog("hidden %d", 1)
	DebugLog("hidden %d", 2)
	assert.Empty(t, buf.String())

	Verbose = true
	VerboseLog("shown %d", 3)
	DebugLog("hidden %d", 4)
	assert.Contains(t, buf.String(), "shown 3")
	assert.NotContains(t, buf.String(), "hidden")

	Debug = true
	DebugLog("debug %d", 5)
	WarnLog("warn %d", 6)
	assert.Contains(t, buf.String(), "debug 5")
	assert.Contains(t, buf.String(), "warn 6")
}

func TestServerConfigDefaultsAndToken(t *testing.T) {
	env := &EnvConfig{}
	server := env.GetServerConfig()
	assert.Equal(t, DefaultServerPort, server.Port)
	assert.Equal(t, int64(DefaultMaxUploadBytes), server.MaxUploadBytes)
	assert.False(t, server.Enabled)

	token, err := GenerateBearerToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := GenerateBearerToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	env.UpdateServerConfig(ServerConfig{Port: 9000, Enabled: true, BearerToken: token})
	server = env.GetServerConfig()
	assert.Equal(t, 9000, server.Port)
	assert.Equal(t, token, server.BearerToken)
	assert.Equal(t, int64(DefaultMaxUploadBytes), server.MaxUploadBytes)
}
