package config

import (
	"testing"
	"time"
)

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should validate, got: %v", errs)
	}
}

func TestValidateSubtitles(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		shouldError bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty language", func(c *Config) { c.Subtitles.Language = "" }, true},
		{"empty pattern", func(c *Config) { c.Subtitles.Pattern = "" }, true},
		{"empty ytdlp binary", func(c *Config) { c.Subtitles.YtdlpBin = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.shouldError && len(errs) == 0 {
				t.Errorf("expected error, got none")
			}
			if !tt.shouldError && len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestValidateAPISections(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		shouldError bool
	}{
		{"bad transcriber base URL", func(c *Config) { c.Transcriber.APIBase = "not-a-url" }, true},
		{"empty transcriber model", func(c *Config) { c.Transcriber.Model = "" }, true},
		{"zero max duration", func(c *Config) { c.Transcriber.MaxDuration = 0 }, true},
		{"bad summarizer base URL", func(c *Config) { c.Summarizer.APIBase = "ftp://host" }, true},
		{"zero summarizer timeout", func(c *Config) { c.Summarizer.Timeout = 0 }, true},
		{"valid overrides", func(c *Config) {
			c.Transcriber.MaxDuration = Duration(time.Minute)
			c.Summarizer.Timeout = Duration(30 * time.Second)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.shouldError && len(errs) == 0 {
				t.Errorf("expected error, got none")
			}
			if !tt.shouldError && len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestValidateDisabledSectionsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Proxy.Disabled = true
	cfg.Proxy.Address = "not a host port"
	cfg.Gateway.Enabled = false
	cfg.Gateway.ListenAddr = "garbage"
	cfg.Cache.Enabled = false
	cfg.Cache.Path = ""

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("disabled sections should not be validated: %v", errs)
	}
}

func TestValidateEnabledSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad proxy address", func(c *Config) {
			c.Proxy.Disabled = false
			c.Proxy.Address = "no-port"
		}},
		{"bad gateway listen addr", func(c *Config) {
			c.Gateway.Enabled = true
			c.Gateway.ListenAddr = "garbage"
		}},
		{"gateway max jobs zero", func(c *Config) {
			c.Gateway.Enabled = true
			c.Gateway.MaxJobs = 0
		}},
		{"cache enabled without path", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Path = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if errs := cfg.Validate(); len(errs) == 0 {
				t.Errorf("expected error, got none")
			}
		})
	}
}
