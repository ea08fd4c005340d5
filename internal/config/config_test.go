package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Redis.QueueStream != "quint:synthesis" {
		t.Fatalf("QueueStream = %q", cfg.Redis.QueueStream)
	}
	if cfg.Interview.DefaultQuestionCount != 5 {
		t.Fatalf("DefaultQuestionCount = %d", cfg.Interview.DefaultQuestionCount)
	}
	if !cfg.Vault.Fallback || cfg.Vault.MasterKey != FallbackMasterKey {
		t.Fatal("expected fallback master key when MASTER_KEY is unset")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MASTER_KEY", "operator-secret")
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_PER_HOUR", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vault.Fallback {
		t.Fatal("fallback flag set despite MASTER_KEY present")
	}
	if cfg.Vault.MasterKey != "operator-secret" {
		t.Fatalf("MasterKey = %q", cfg.Vault.MasterKey)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("Driver = %q", cfg.DB.Driver)
	}
	if cfg.HTTP.ClientTimeout != 5*time.Second {
		t.Fatalf("ClientTimeout = %v", cfg.HTTP.ClientTimeout)
	}
	if cfg.Rate.PerHour != 12 {
		t.Fatalf("PerHour = %d", cfg.Rate.PerHour)
	}
}
