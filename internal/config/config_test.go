package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	t.Setenv("INFERENCE_API_KEY", "secret")
	t.Setenv("APP_UPLOAD_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "https://serverless.roboflow.com", cfg.Inference.APIURL)
	assert.Equal(t, "fetal-brain-abnormalities-ultrasound/1", cfg.Inference.ModelID)
	assert.Equal(t, 60*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, int64(16*1024*1024), cfg.App.MaxUploadSize)
	assert.Equal(t, []string{"png", "jpg", "jpeg"}, cfg.App.AllowedFormats)
	assert.False(t, cfg.S3.Enabled)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "secret")
	t.Setenv("APP_UPLOAD_DIR", t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("INFERENCE_API_URL", "http://localhost:9001/")
	t.Setenv("INFERENCE_TIMEOUT", "5s")
	t.Setenv("APP_ALLOWED_FORMATS", ".PNG, jpg")
	t.Setenv("S3_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://localhost:9001", cfg.Inference.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, []string{"png", "jpg"}, cfg.App.AllowedFormats)
	assert.True(t, cfg.S3.Enabled)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "")
	t.Setenv("APP_UPLOAD_DIR", t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFERENCE_API_KEY")
}

func TestLoadRejectsBadQuality(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "secret")
	t.Setenv("APP_UPLOAD_DIR", t.TempDir())
	t.Setenv("INFERENCE_JPEG_QUALITY", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadSweepAge(t *testing.T) {
	cases := map[string]string{
		"zero":              "0s",
		"negative":          "-5m",
		"below the timeout": "30s",
	}
	for name, age := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("INFERENCE_API_KEY", "secret")
			t.Setenv("APP_UPLOAD_DIR", t.TempDir())
			t.Setenv("INFERENCE_TIMEOUT", "60s")
			t.Setenv("APP_SWEEP_MAX_AGE", age)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "APP_SWEEP_MAX_AGE")
		})
	}
}

func TestLoadAcceptsSweepAgeEqualToTimeout(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "secret")
	t.Setenv("APP_UPLOAD_DIR", t.TempDir())
	t.Setenv("INFERENCE_TIMEOUT", "2m")
	t.Setenv("APP_SWEEP_MAX_AGE", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.App.SweepMaxAge)
}

func TestNormalizeFormats(t *testing.T) {
	assert.Equal(t, []string{"png", "jpg", "jpeg"}, normalizeFormats([]string{".PNG", "jpg,JPEG", " "}))
}
