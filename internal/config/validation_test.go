package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(issues []ValidationError) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Field
	}
	return out
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	components := filepath.Join(dir, "components")
	global := filepath.Join(dir, "global-assets")
	require.NoError(t, os.MkdirAll(components, 0o755))
	require.NoError(t, os.MkdirAll(global, 0o755))

	return &Config{
		Server:      ServerConfig{Port: 3000, Host: "localhost"},
		Components:  ComponentsConfig{Dir: components, GlobalAssetsDir: global},
		Development: DevelopmentConfig{HotReload: true, Debounce: 100 * time.Millisecond},
		Log:         LogConfig{Level: "info", Format: "pretty"},
	}
}

func TestValidateConfigWithDetailsClean(t *testing.T) {
	result := ValidateConfigWithDetails(validConfig(t))
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	assert.False(t, result.HasWarnings())
	assert.Empty(t, result.String())
}

func TestValidateConfigWithDetailsWarnings(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Port = 80
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "localhost:*"}
	cfg.Components.Dir = filepath.Join(t.TempDir(), "missing")
	cfg.Development.Debounce = 5 * time.Second

	result := ValidateConfigWithDetails(cfg)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{
		"server.port",
		"server.allowed_origins[0]",
		"components.dir",
		"development.debounce",
	}, fields(result.Warnings))
	assert.Contains(t, result.String(), "Validation warnings:")
}

func TestValidateConfigWithDetailsErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Port = 70000
	cfg.Server.Host = "bad host"
	cfg.Components.PartialsDir = filepath.Join(t.TempDir(), "nope")
	cfg.Components.Ignore = []string{"vendor", "a/tmp"}

	result := ValidateConfigWithDetails(cfg)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"server.port",
		"server.host",
		"components.partials_dir",
		"components.ignore[1]",
	}, fields(result.Errors))
	assert.Equal(t, "Use 'tmp'", result.Errors[3].Suggestions[0])
	assert.Contains(t, result.String(), "Validation errors:")
}

func TestValidateHostname(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::1", "0.0.0.0", "dev.example.com"} {
		assert.NoError(t, validateHostname(host), host)
	}
	for _, host := range []string{"a;b", "$(x)", "-bad-", "under_score"} {
		assert.Error(t, validateHostname(host), host)
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("components"))
	assert.NoError(t, validatePath("ui/components"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("../components"))
	assert.Error(t, validatePath("comp;rm"))
}
