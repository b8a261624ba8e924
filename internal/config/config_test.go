package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvConfig, EnvVaultFile, EnvCipher, EnvKDFIterations,
		EnvRemixIterations, EnvLogLevel, EnvKeyring,
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_TOMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, DefaultFile, `
vault_file = "secrets.db"
cipher = "aes-256-ctr"
kdf_iterations = 5000
log_level = "debug"

[keyring]
enabled = false
service = "custom"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "secrets.db", cfg.VaultFile)
	assert.Equal(t, "aes-256-ctr", cfg.Cipher)
	assert.Equal(t, 5000, cfg.KDFIterations)
	assert.Equal(t, DefaultRemixIterations, cfg.RemixIterations)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Keyring.Enabled)
	assert.Equal(t, "custom", cfg.Keyring.Service)
}

func TestLoad_ExplicitPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "other.toml", `remix_iterations = 42`)
	t.Setenv(EnvConfig, path)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.RemixIterations)

	t.Setenv(EnvConfig, filepath.Join(dir, "missing.toml"))
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, DefaultFile, `chiper = "aes-256-cbc"`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chiper")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, DefaultFile, `log_level = "info"`)
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvKDFIterations, "1234")
	t.Setenv(EnvKeyring, "false")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 1234, cfg.KDFIterations)
	assert.False(t, cfg.Keyring.Enabled)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "CIPHERBOX_REMIX_ITERATIONS=77\n")
	// godotenv never overrides a variable that is already set, even to "".
	require.NoError(t, os.Unsetenv(EnvRemixIterations))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.RemixIterations)
}

func TestApplyEnvOverrides_BadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRemixIterations, "many")

	cfg := Default()
	assert.Error(t, cfg.ApplyEnvOverrides())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unsupported cipher", func(c *Config) { c.Cipher = "des-56-cbc" }, "cipher"},
		{"short key cipher", func(c *Config) { c.Cipher = "aes-128-cbc" }, "cipher"},
		{"no key size", func(c *Config) { c.Cipher = "chacha20" }, "cipher"},
		{"zero kdf", func(c *Config) { c.KDFIterations = 0 }, "kdf_iterations"},
		{"negative remix", func(c *Config) { c.RemixIterations = -1 }, "remix_iterations"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"vault in subdir", func(c *Config) { c.VaultFile = "a/b" }, "vault_file"},
		{"empty keyring service", func(c *Config) { c.Keyring.Service = "" }, "keyring.service"},
		{"kdf over uint32", func(c *Config) { c.KDFIterations = int(int64(math.MaxUint32) + int64(c.KDFIterations)) }, "kdf_iterations"},
		{"remix over uint32", func(c *Config) { c.RemixIterations = int(int64(math.MaxUint32) + int64(c.RemixIterations)) }, "remix_iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{Cipher: "aes-256-ofb"}
	cfg.SetDefaults()

	assert.Equal(t, "aes-256-ofb", cfg.Cipher)
	assert.Equal(t, DefaultVaultFile, cfg.VaultFile)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultKeyringService, cfg.Keyring.Service)
	assert.NoError(t, cfg.Validate())
}
