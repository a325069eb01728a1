package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Proxy.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Proxy.Host)
	}
	if cfg.Proxy.Port != 48898 {
		t.Errorf("Port = %d, want 48898", cfg.Proxy.Port)
	}
	if cfg.Net.ConnChannelSize != 4 {
		t.Errorf("ConnChannelSize = %d, want 4", cfg.Net.ConnChannelSize)
	}
	if cfg.Features.StripPasswords {
		t.Error("StripPasswords defaults to true, want false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROXY_PORT", "50000")
	t.Setenv("STRIP_PASSWORDS", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Proxy.Port != 50000 {
		t.Errorf("Port = %d, want 50000", cfg.Proxy.Port)
	}
	if !cfg.Features.StripPasswords {
		t.Error("StripPasswords not overridden by environment")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}
