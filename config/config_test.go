package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("BILI_API_BASE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.BiliAPIBase != "https://api.bilibili.com" {
		t.Errorf("BiliAPIBase = %q, want upstream default", cfg.BiliAPIBase)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.FollowingsPageSize != 50 || cfg.UploadsPageSize != 30 {
		t.Errorf("page sizes = %d/%d, want 50/30", cfg.FollowingsPageSize, cfg.UploadsPageSize)
	}
	if cfg.FollowingsMaxPages != 2 || cfg.UploadsMaxPages != 2 {
		t.Errorf("max pages = %d/%d, want 2/2", cfg.FollowingsMaxPages, cfg.UploadsMaxPages)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BILI_REQUEST_TIMEOUT", "3s")
	t.Setenv("BILI_UPLOADS_MAX_PAGES", "5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.RequestTimeout)
	}
	if cfg.UploadsMaxPages != 5 {
		t.Errorf("UploadsMaxPages = %d, want 5", cfg.UploadsMaxPages)
	}
}

func TestLoadInvalidTimeout(t *testing.T) {
	t.Setenv("BILI_REQUEST_TIMEOUT", "banana")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for invalid BILI_REQUEST_TIMEOUT")
	}
}

func TestValidateDigestReady(t *testing.T) {
	t.Setenv("BILI_SESSDATA", "abc123")
	cfg, _ := Load()
	if err := cfg.ValidateDigestReady(); err != nil {
		t.Errorf("expected valid digest config, got %v", err)
	}
	t.Setenv("BILI_SESSDATA", "")
	cfg, _ = Load()
	if err := cfg.ValidateDigestReady(); err == nil {
		t.Errorf("expected error when BILI_SESSDATA missing")
	}
}
