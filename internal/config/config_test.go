package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProfileEmbedded, cfg.Profile)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.True(t, cfg.Lifecycle.Enabled)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("server:\n  port: 9090\nprofile: standard\nhistory:\n  backend: postgres\ndatabase:\n  url: postgres://x\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ProfileStandard, cfg.Profile)
	assert.True(t, cfg.IsStandardProfile())
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("TIMESCAPE_SERVER_PORT", "7070")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate_RejectsUnknownProfile(t *testing.T) {
	cfg := &Config{Profile: "bogus", Server: ServerConfig{Port: 8080}, History: HistoryConfig{Backend: "memory"}, Log: LogConfig{Level: "info"}}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidate_RejectsPostgresBackendWithoutURL(t *testing.T) {
	cfg := &Config{Profile: ProfileStandard, Server: ServerConfig{Port: 8080}, History: HistoryConfig{Backend: "postgres"}, Log: LogConfig{Level: "info"}}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidate_RejectsInvalidPort(t *testing.T) {
	cfg := &Config{Profile: ProfileEmbedded, Server: ServerConfig{Port: 0}, History: HistoryConfig{Backend: "memory"}, Log: LogConfig{Level: "info"}}
	err := cfg.Validate()
	assert.Error(t, err)
}
