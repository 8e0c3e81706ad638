package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BULKSHIP_PROFILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, "letter", cfg.LabelFormat)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.StatePath)
}

func TestLoad_ProfileOverlay(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(profile, []byte(`
api_base_url = "https://ship.example.com/api"
label_format = "4x6"
`), 0o644))
	t.Setenv("BULKSHIP_PROFILE", profile)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://ship.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "4x6", cfg.LabelFormat)
	// Settings the profile omits keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentWinsOverProfile(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(profile, []byte(`api_base_url = "https://file.example.com/api"`), 0o644))
	t.Setenv("BULKSHIP_PROFILE", profile)
	t.Setenv("API_BASE_URL", "https://env.example.com/api")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.APIBaseURL)
}

func TestLoad_MalformedProfile(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(profile, []byte(`api_base_url = [broken`), 0o644))
	t.Setenv("BULKSHIP_PROFILE", profile)

	_, err := config.Load()
	assert.Error(t, err)
}
