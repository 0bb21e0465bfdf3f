package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("unexpected server addr: %q", settings.Server.Addr)
	}
	if settings.LLM.Provider != "gemini" {
		t.Errorf("unexpected provider: %q", settings.LLM.Provider)
	}
	if settings.LLM.MaxTokens != 4096 {
		t.Errorf("unexpected max tokens: %d", settings.LLM.MaxTokens)
	}
	if settings.Chat.MaxTurns != 10 {
		t.Errorf("unexpected max turns: %d", settings.Chat.MaxTurns)
	}
	if !settings.Chat.TrimIntrospection {
		t.Error("expected introspection trimming on by default")
	}
	if settings.Storage.Backend != "blob" {
		t.Errorf("unexpected storage backend: %q", settings.Storage.Backend)
	}
	if settings.RemoteConfig.TTL != time.Hour {
		t.Errorf("unexpected config TTL: %v", settings.RemoteConfig.TTL)
	}
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDR", "0.0.0.0:9000")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("CHAT_MAX_TURNS", "5")
	t.Setenv("CHAT_TRIM_INTROSPECTION", "false")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("REMOTE_CONFIG_TTL", "30m")

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("unexpected server addr: %q", settings.Server.Addr)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("unexpected provider: %q", settings.LLM.Provider)
	}
	if settings.Chat.MaxTurns != 5 {
		t.Errorf("unexpected max turns: %d", settings.Chat.MaxTurns)
	}
	if settings.Chat.TrimIntrospection {
		t.Error("expected introspection trimming disabled")
	}
	if settings.Storage.Backend != "sqlite" {
		t.Errorf("unexpected storage backend: %q", settings.Storage.Backend)
	}
	if settings.RemoteConfig.TTL != 30*time.Minute {
		t.Errorf("unexpected config TTL: %v", settings.RemoteConfig.TTL)
	}
}

func TestNewRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LLM_MAX_TOKENS", "not-a-number"},
		{"LLM_TEMPERATURE", "warm"},
		{"CHAT_MAX_TURNS", "many"},
		{"CHAT_TRIM_INTROSPECTION", "maybe"},
		{"REMOTE_CONFIG_TTL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
