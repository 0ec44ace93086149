package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Rewrite.IPv4Replacement != "127.0.0.1" {
		t.Errorf("IPv4Replacement = %q", cfg.Rewrite.IPv4Replacement)
	}
	if cfg.Rewrite.IPv6Replacement != "::1" {
		t.Errorf("IPv6Replacement = %q", cfg.Rewrite.IPv6Replacement)
	}
	if cfg.Rewrite.HostReplacement != "localhost" {
		t.Errorf("HostReplacement = %q", cfg.Rewrite.HostReplacement)
	}
	if !cfg.Rewrite.TrimLeading || !cfg.Rewrite.OptimizeAuthUser {
		t.Error("TrimLeading and OptimizeAuthUser should default on")
	}
	if cfg.Rewrite.SkipUnmatched || cfg.Rewrite.RedactAuthUser || cfg.Rewrite.Thorough ||
		cfg.Rewrite.RewriteJSON || cfg.Rewrite.FlushPerLine {
		t.Error("optional rewrite behaviors should default off")
	}
	if cfg.Server.BufferSize == 0 || cfg.Server.BufferSize&(cfg.Server.BufferSize-1) != 0 {
		t.Errorf("BufferSize = %d, want a power of two", cfg.Server.BufferSize)
	}
	if cfg.Redis.Channel == "" || cfg.Redis.Key == "" {
		t.Error("redis channel and key must have defaults")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rewrite.HostReplacement != "localhost" {
		t.Errorf("HostReplacement = %q", cfg.Rewrite.HostReplacement)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrubgate.toml")
	body := `
[rewrite]
ipv4_replacement = "10.0.0.0"
redact_auth_user = true
thorough = true

[server]
tcp_addr = ":9000"

[redis]
address = "redis.internal:6379"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Rewrite.IPv4Replacement != "10.0.0.0" {
		t.Errorf("IPv4Replacement = %q, want file value", cfg.Rewrite.IPv4Replacement)
	}
	if !cfg.Rewrite.RedactAuthUser || !cfg.Rewrite.Thorough {
		t.Error("file-enabled flags not applied")
	}
	// Keys the file does not mention keep their defaults.
	if cfg.Rewrite.IPv6Replacement != "::1" || !cfg.Rewrite.TrimLeading {
		t.Error("defaults lost for keys absent from the file")
	}
	if cfg.Server.TCPAddr != ":9000" {
		t.Errorf("TCPAddr = %q", cfg.Server.TCPAddr)
	}
	if cfg.Server.UDPAddr != ":8082" {
		t.Errorf("UDPAddr = %q, want default kept", cfg.Server.UDPAddr)
	}
	if cfg.Redis.Address != "redis.internal:6379" {
		t.Errorf("Redis.Address = %q", cfg.Redis.Address)
	}
	if cfg.Redis.Channel != "scrubgate_updates" {
		t.Errorf("Redis.Channel = %q, want default kept", cfg.Redis.Channel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("rewrite = [unclosed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
