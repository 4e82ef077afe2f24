package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.App.Port != "9000" {
		t.Fatalf("AppPort = %q, want 9000", cfg.App.Port)
	}
	if cfg.Sync.PageSize != 100 {
		t.Fatalf("PageSize = %d, want 100", cfg.Sync.PageSize)
	}
	if cfg.Sync.CronSpec != "0 * * * *" {
		t.Fatalf("CronSpec = %q, want hourly", cfg.Sync.CronSpec)
	}
	if cfg.UpstreamTimeout().Seconds() != 10 {
		t.Fatalf("UpstreamTimeout = %v, want 10s", cfg.UpstreamTimeout())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	// 环境变量设置后应覆盖默认值
	_ = os.Setenv("NEWSHUB_APP_PORT", "8080")
	_ = os.Setenv("NEWSHUB_SYNC_WORKERS", "8")
	defer func() {
		_ = os.Unsetenv("NEWSHUB_APP_PORT")
		_ = os.Unsetenv("NEWSHUB_SYNC_WORKERS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("AppPort = %q, want 8080", cfg.App.Port)
	}
	if cfg.Sync.Workers != 8 {
		t.Fatalf("Workers = %d, want 8", cfg.Sync.Workers)
	}
}
