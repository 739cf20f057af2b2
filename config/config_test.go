package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/art")
	t.Setenv("STORAGE_BUCKET", "paintings")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ServerAddr)
	assert.Equal(t, StorageGCS, cfg.StorageBackend)
	assert.Equal(t, 20, cfg.MaxUploadMB)
	assert.Equal(t, 512, cfg.StyleInputSize)
	assert.InDelta(t, 0.05, cfg.DetectionConfidence, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenDuration)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// godotenv never overrides variables that already exist, so clear them
	// after t.Setenv has recorded the values to restore.
	for _, k := range []string{"DATABASE_URL", "STORAGE_BUCKET", "SUPABASE_BUCKET", "MAX_UPLOAD_MB"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DATABASE_URL=postgres://from-file/art\nSUPABASE_BUCKET=legacy-bucket\nMAX_UPLOAD_MB=5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-file/art", cfg.DatabaseURL)
	assert.Equal(t, "legacy-bucket", cfg.StorageBucket)
	assert.Equal(t, 5, cfg.MaxUploadMB)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad int", env: map[string]string{"MAX_UPLOAD_MB": "lots"}},
		{name: "bad float", env: map[string]string{"DETECTION_CONFIDENCE": "high"}},
		{name: "confidence out of range", env: map[string]string{"DETECTION_CONFIDENCE": "1.5"}},
		{name: "bad duration", env: map[string]string{"GEMINI_TIMEOUT": "soon"}},
		{name: "unknown backend", env: map[string]string{"STORAGE_BACKEND": "ftp"}},
		{name: "s3 without keys", env: map[string]string{"STORAGE_BACKEND": "s3"}},
		{name: "missing database", env: map[string]string{"DATABASE_URL": ""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("ART_CURATOR_TEST_VALUE", "  spaced  ")
	assert.Equal(t, "spaced", Env("ART_CURATOR_TEST_VALUE", "def"))
	assert.Equal(t, "def", Env("ART_CURATOR_TEST_UNSET", "def"))
}
