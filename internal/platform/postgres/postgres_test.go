package postgres

import "testing"

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
}

func TestConfigValidate_IdleAboveOpen(t *testing.T) {
	cfg := Config{URL: "postgres://x", PingTimeout: 1, MaxOpenConns: 1, MaxIdleConns: 2}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() expected error when idle > open")
	}
}

func TestConfigFromEnv_InvalidDuration(t *testing.T) {
	t.Setenv("DATABASE_PING_TIMEOUT", "soon")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("ConfigFromEnv() expected error")
	}
}

func TestConfigValidate_UnparseableURL(t *testing.T) {
	cfg := Config{URL: "postgres://localhost:notaport/db", PingTimeout: 1, MaxOpenConns: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() expected error for bad port")
	}
}

func TestConfigFromEnv_ApplicationName(t *testing.T) {
	t.Setenv("DATABASE_APPLICATION_NAME", "paperpolish-worker")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.ApplicationName != "paperpolish-worker" {
		t.Fatalf("ApplicationName=%q, want paperpolish-worker", cfg.ApplicationName)
	}
}
