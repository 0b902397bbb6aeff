package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Inference InferenceConfig
	S3        S3Config
	App       AppConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type LogConfig struct {
	Level string
}

type InferenceConfig struct {
	APIURL      string
	APIKey      string
	ModelID     string
	Timeout     time.Duration
	MaxSide     int
	JPEGQuality int
}

type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

type AppConfig struct {
	UploadDir      string
	MaxUploadSize  int64
	AllowedFormats []string
	SweepInterval  time.Duration
	SweepMaxAge    time.Duration
}

func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("INFERENCE_API_URL", "https://serverless.roboflow.com")
	v.SetDefault("INFERENCE_API_KEY", "")
	v.SetDefault("INFERENCE_MODEL_ID", "fetal-brain-abnormalities-ultrasound/1")
	v.SetDefault("INFERENCE_TIMEOUT", 60*time.Second)
	v.SetDefault("INFERENCE_MAX_SIDE", 1024)
	v.SetDefault("INFERENCE_JPEG_QUALITY", 90)
	v.SetDefault("S3_ENABLED", false)
	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_BUCKET_NAME", "scans")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("APP_UPLOAD_DIR", "./uploads")
	v.SetDefault("APP_MAX_UPLOAD_SIZE", 16*1024*1024) // 16MB
	v.SetDefault("APP_ALLOWED_FORMATS", []string{"png", "jpg", "jpeg"})
	v.SetDefault("APP_SWEEP_INTERVAL", 10*time.Minute)
	v.SetDefault("APP_SWEEP_MAX_AGE", time.Hour)

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("SERVER_PORT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Inference: InferenceConfig{
			APIURL:      strings.TrimRight(v.GetString("INFERENCE_API_URL"), "/"),
			APIKey:      v.GetString("INFERENCE_API_KEY"),
			ModelID:     strings.Trim(v.GetString("INFERENCE_MODEL_ID"), "/"),
			Timeout:     v.GetDuration("INFERENCE_TIMEOUT"),
			MaxSide:     v.GetInt("INFERENCE_MAX_SIDE"),
			JPEGQuality: v.GetInt("INFERENCE_JPEG_QUALITY"),
		},
		S3: S3Config{
			Enabled:         v.GetBool("S3_ENABLED"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("S3_USE_SSL"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Region:          v.GetString("S3_REGION"),
		},
		App: AppConfig{
			UploadDir:      v.GetString("APP_UPLOAD_DIR"),
			MaxUploadSize:  v.GetInt64("APP_MAX_UPLOAD_SIZE"),
			AllowedFormats: normalizeFormats(v.GetStringSlice("APP_ALLOWED_FORMATS")),
			SweepInterval:  v.GetDuration("APP_SWEEP_INTERVAL"),
			SweepMaxAge:    v.GetDuration("APP_SWEEP_MAX_AGE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := createDirs(cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Inference.APIKey == "" {
		return errors.New("INFERENCE_API_KEY is required")
	}
	if c.Inference.ModelID == "" {
		return errors.New("INFERENCE_MODEL_ID is required")
	}
	if c.App.MaxUploadSize <= 0 {
		return fmt.Errorf("APP_MAX_UPLOAD_SIZE must be positive, got %d", c.App.MaxUploadSize)
	}
	if len(c.App.AllowedFormats) == 0 {
		return errors.New("APP_ALLOWED_FORMATS is empty")
	}
	if c.Inference.JPEGQuality < 1 || c.Inference.JPEGQuality > 100 {
		return fmt.Errorf("INFERENCE_JPEG_QUALITY must be within 1..100, got %d", c.Inference.JPEGQuality)
	}
	// a sweep must never reach files that an in-flight inference still reads
	if c.App.SweepMaxAge <= 0 || c.App.SweepMaxAge < c.Inference.Timeout {
		return fmt.Errorf("APP_SWEEP_MAX_AGE must be positive and at least INFERENCE_TIMEOUT (%s), got %s",
			c.Inference.Timeout, c.App.SweepMaxAge)
	}
	return nil
}

// normalizeFormats lower-cases extensions and drops leading dots so ".PNG" and "png" match.
func normalizeFormats(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		for _, part := range strings.Split(f, ",") {
			part = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func createDirs(cfg *Config) error {
	dirs := []string{
		cfg.App.UploadDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
