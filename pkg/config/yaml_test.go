package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cruxrec.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
subtitles:
  language: en
  auto_sub: true
summarizer:
  model: gemini-1.5-pro
  timeout: 90s
cache:
  ttl: 48h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Subtitles.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Subtitles.Language)
	}
	if !cfg.Subtitles.AutoSub {
		t.Errorf("auto_sub should be true")
	}
	if cfg.Summarizer.Timeout.Std() != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", cfg.Summarizer.Timeout.Std())
	}
	if cfg.Cache.TTL.Std() != 48*time.Hour {
		t.Errorf("ttl = %v, want 48h", cfg.Cache.TTL.Std())
	}

	// Untouched keys keep their defaults.
	if cfg.Subtitles.Pattern != "subs.*" {
		t.Errorf("pattern = %q, want default subs.*", cfg.Subtitles.Pattern)
	}
	if cfg.Transcriber.Model != "whisper-1" {
		t.Errorf("transcriber model = %q, want default whisper-1", cfg.Transcriber.Model)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, `
subtitles:
  langauge: en
`)
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for misspelled key")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := writeConfigFile(t, `
summarizer:
  timeout: soon
`)
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for invalid duration")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Subtitles.Language != "ru" {
		t.Errorf("language = %q, want default ru", cfg.Subtitles.Language)
	}

	cfg, err = LoadOrDefault("")
	if err != nil {
		t.Fatalf("empty path should fall back to defaults: %v", err)
	}
	if cfg.Cache.TTL.Std() != 24*time.Hour {
		t.Errorf("ttl = %v, want default 24h", cfg.Cache.TTL.Std())
	}
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	out, err := DefaultConfig().Summarizer.Timeout.MarshalYAML()
	if err != nil {
		t.Fatalf("marshal duration: %v", err)
	}
	if out != "1m0s" {
		t.Errorf("marshaled duration = %v, want 1m0s", out)
	}
}
