/*
Package configs is responsible for loading and parsing the application's configuration settings.

It reads operating system environment variables: the running environment, port,
allowed WebSocket/CORS origins, the per-IP WebSocket connect rate, relay timer intervals, message limits, and the
optional S3 location of the external dataset.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values applied when the corresponding environment variable is unset.
const (
	DefaultPort                = 3000
	DefaultHeartbeatInterval   = 5 * time.Second
	DefaultSecretSweepInterval = time.Hour
	DefaultSecretTTL           = 24 * time.Hour
	DefaultDatasetPollInterval = 5 * time.Second
	DefaultMaxMessageBytes     = 64 * 1024

	// DefaultWSConnectRate is the sustained WebSocket upgrades per second allowed per client IP.
	DefaultWSConnectRate = 1.0

	// DefaultWSConnectBurst is how many upgrades a client IP may make back to back.
	DefaultWSConnectBurst = 10
)

// DefaultDatasetPaths lists the local CSV files checked when DATASET_PATHS is unset.
var DefaultDatasetPaths = []string{"data.csv", "output.csv", "coordinates.csv"}

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	WSConnectRate  float64
	WSConnectBurst int

	// Relay Settings
	HeartbeatInterval   time.Duration
	SecretSweepInterval time.Duration
	SecretTTL           time.Duration
	MaxMessageBytes     int64

	// Dataset Settings
	DatasetPollInterval time.Duration
	DatasetPaths        []string
	DatasetS3           S3Config
}

// S3Config locates the dataset in S3-compatible storage. Bucket empty means disabled.
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Keys            []string
}

// Enabled reports whether the dataset should be read from S3 instead of local files.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// It applies defaults, converts types and validates ranges.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := intEnv("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = listEnv("ALLOWED_ORIGINS")
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{}
	}

	if cfg.WSConnectRate, err = floatEnv("WS_CONNECT_RATE", DefaultWSConnectRate); err != nil {
		return nil, err
	}
	if cfg.WSConnectRate <= 0 {
		return nil, fmt.Errorf("WS_CONNECT_RATE must be positive, got %g", cfg.WSConnectRate)
	}

	if cfg.WSConnectBurst, err = intEnv("WS_CONNECT_BURST", DefaultWSConnectBurst); err != nil {
		return nil, err
	}
	if cfg.WSConnectBurst < 1 {
		return nil, fmt.Errorf("WS_CONNECT_BURST must be at least 1, got %d", cfg.WSConnectBurst)
	}

	// --- Relay Settings ---
	if cfg.HeartbeatInterval, err = durationEnv("HEARTBEAT_INTERVAL", DefaultHeartbeatInterval); err != nil {
		return nil, err
	}
	if cfg.SecretSweepInterval, err = durationEnv("SECRET_SWEEP_INTERVAL", DefaultSecretSweepInterval); err != nil {
		return nil, err
	}
	if cfg.SecretTTL, err = durationEnv("SECRET_TTL", DefaultSecretTTL); err != nil {
		return nil, err
	}

	maxBytes, err := intEnv("MAX_MESSAGE_BYTES", DefaultMaxMessageBytes)
	if err != nil {
		return nil, err
	}
	if maxBytes < 1024 {
		return nil, fmt.Errorf("MAX_MESSAGE_BYTES must be at least 1024, got %d", maxBytes)
	}
	cfg.MaxMessageBytes = int64(maxBytes)

	// --- Dataset Settings ---
	if cfg.DatasetPollInterval, err = durationEnv("DATASET_POLL_INTERVAL", DefaultDatasetPollInterval); err != nil {
		return nil, err
	}

	cfg.DatasetPaths = listEnv("DATASET_PATHS")
	if len(cfg.DatasetPaths) == 0 {
		cfg.DatasetPaths = append([]string(nil), DefaultDatasetPaths...)
	}

	s3cfg := S3Config{
		Bucket:          os.Getenv("DATASET_S3_BUCKET"),
		Endpoint:        os.Getenv("DATASET_S3_ENDPOINT"),
		Region:          os.Getenv("DATASET_S3_REGION"),
		AccessKeyID:     os.Getenv("DATASET_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("DATASET_S3_SECRET_ACCESS_KEY"),
		Keys:            listEnv("DATASET_S3_KEYS"),
	}

	if s3cfg.Enabled() {
		if s3cfg.Endpoint == "" {
			return nil, fmt.Errorf("DATASET_S3_ENDPOINT environment variable is required when DATASET_S3_BUCKET is set")
		}
		if s3cfg.AccessKeyID == "" || s3cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("DATASET_S3_ACCESS_KEY_ID and DATASET_S3_SECRET_ACCESS_KEY are required when DATASET_S3_BUCKET is set")
		}
		if s3cfg.Region == "" {
			s3cfg.Region = "auto"
		}
		if len(s3cfg.Keys) == 0 {
			s3cfg.Keys = append([]string(nil), DefaultDatasetPaths...)
		}
	}
	cfg.DatasetS3 = s3cfg

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

// listEnv splits a comma separated variable, dropping empty entries.
func listEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
