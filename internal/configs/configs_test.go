package configs

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "HEARTBEAT_INTERVAL", "SECRET_SWEEP_INTERVAL",
		"SECRET_TTL", "MAX_MESSAGE_BYTES", "WS_CONNECT_RATE", "WS_CONNECT_BURST", "DATASET_POLL_INTERVAL", "DATASET_PATHS", "DATASET_S3_BUCKET",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := &AppConfig{
		Environment:         "development",
		Port:                DefaultPort,
		AllowedOrigins:      []string{},
		WSConnectRate:       1,
		WSConnectBurst:      10,
		HeartbeatInterval:   5 * time.Second,
		SecretSweepInterval: time.Hour,
		SecretTTL:           24 * time.Hour,
		MaxMessageBytes:     65536,
		DatasetPollInterval: 5 * time.Second,
		DatasetPaths:        []string{"data.csv", "output.csv", "coordinates.csv"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if !cfg.IsDevelopment() || cfg.DatasetS3.Enabled() {
		t.Fatalf("expected development without S3")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("HEARTBEAT_INTERVAL", "2s")
	t.Setenv("WS_CONNECT_RATE", "0.5")
	t.Setenv("WS_CONNECT_BURST", "3")
	t.Setenv("SECRET_TTL", "1h")
	t.Setenv("DATASET_S3_BUCKET", "relay-data")
	t.Setenv("DATASET_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("DATASET_S3_ACCESS_KEY_ID", "key")
	t.Setenv("DATASET_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("DATASET_S3_KEYS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
	if cfg.Port != 8081 || cfg.HeartbeatInterval != 2*time.Second || cfg.SecretTTL != time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.WSConnectRate != 0.5 || cfg.WSConnectBurst != 3 {
		t.Fatalf("connect rate overrides not applied: rate=%g burst=%d", cfg.WSConnectRate, cfg.WSConnectBurst)
	}
	if !cfg.DatasetS3.Enabled() || cfg.DatasetS3.Region != "auto" || len(cfg.DatasetS3.Keys) != 3 {
		t.Fatalf("unexpected S3 config: %+v", cfg.DatasetS3)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"privileged port":   {"PORT", "80"},
		"non-numeric port":  {"PORT", "abc"},
		"bad duration":      {"HEARTBEAT_INTERVAL", "soon"},
		"negative duration": {"SECRET_TTL", "-1h"},
		"tiny frames":       {"MAX_MESSAGE_BYTES", "10"},
		"zero connect rate": {"WS_CONNECT_RATE", "0"},
		"bad connect rate":  {"WS_CONNECT_RATE", "fast"},
		"zero burst":        {"WS_CONNECT_BURST", "0"},
		"s3 no endpoint":    {"DATASET_S3_BUCKET", "bucket"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATASET_S3_ENDPOINT", "")
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
			if !strings.Contains(err.Error(), kv[0]) && !strings.Contains(err.Error(), "port") {
				t.Fatalf("error %q does not mention %s", err, kv[0])
			}
		})
	}
}
