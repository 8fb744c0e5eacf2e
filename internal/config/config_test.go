package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEONARDO_API_KEY", "k")
	t.Setenv("LEONARDO_BASE_URL", "")
	t.Setenv("LEOMEDIA_TEMPLATES", "")
	t.Setenv("LEOMEDIA_STRICT_TEMPLATES", "")
	t.Setenv("LEOMEDIA_POLL_INTERVAL", "")
	t.Setenv("LEOMEDIA_POLL_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "k" {
		t.Errorf("unexpected api key: %q", cfg.APIKey)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("unexpected base url: %q", cfg.BaseURL)
	}
	if cfg.PollInterval != DefaultPollInterval || cfg.PollTimeout != DefaultPollTimeout {
		t.Errorf("unexpected poll settings: %v / %v", cfg.PollInterval, cfg.PollTimeout)
	}
	if cfg.StrictTemplates {
		t.Error("expected lenient template loading by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LEONARDO_API_KEY", "k")
	t.Setenv("LEONARDO_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("LEOMEDIA_TEMPLATES", "/etc/leomedia/templates.json")
	t.Setenv("LEOMEDIA_STRICT_TEMPLATES", "true")
	t.Setenv("LEOMEDIA_POLL_INTERVAL", "2s")
	t.Setenv("LEOMEDIA_POLL_TIMEOUT", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("unexpected base url: %q", cfg.BaseURL)
	}
	if cfg.TemplateFile != "/etc/leomedia/templates.json" {
		t.Errorf("unexpected template file: %q", cfg.TemplateFile)
	}
	if !cfg.StrictTemplates {
		t.Error("expected strict template loading")
	}
	if cfg.PollInterval != 2*time.Second || cfg.PollTimeout != time.Minute {
		t.Errorf("unexpected poll settings: %v / %v", cfg.PollInterval, cfg.PollTimeout)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("LEOMEDIA_POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable interval")
	}

	t.Setenv("LEOMEDIA_POLL_INTERVAL", "-5s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative interval")
	}
}
