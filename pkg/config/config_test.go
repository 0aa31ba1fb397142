package config_test

import (
	"testing"
	"time"

	"github.com/nekoweb/revolt/pkg/config"
)

func TestStagingToggleSwapsAllEndpoints(t *testing.T) {
	prod := config.Production()
	staging := config.Staging()

	if prod.APIBaseURL == staging.APIBaseURL {
		t.Fatal("staging API URL should differ from production")
	}
	if prod.WSURL == staging.WSURL {
		t.Fatal("staging WS URL should differ from production")
	}
	if staging.RequestTimeout != prod.RequestTimeout {
		t.Fatal("staging should keep the default timeouts")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv err: %v", err)
	}
	if cfg.APIBaseURL != config.Production().APIBaseURL {
		t.Fatalf("expected production default, got %s", cfg.APIBaseURL)
	}
	if cfg.ReconnectMin <= 0 || cfg.ReconnectMax < cfg.ReconnectMin {
		t.Fatalf("reconnect bounds not sane: min=%v max=%v", cfg.ReconnectMin, cfg.ReconnectMax)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REVOLT_STAGING", "true")
	t.Setenv("REVOLT_API_URL", "http://localhost:8090")
	t.Setenv("REVOLT_REQUEST_TIMEOUT", "3s")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv err: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8090" {
		t.Fatalf("API URL override lost: %s", cfg.APIBaseURL)
	}
	if cfg.WSURL != config.Staging().WSURL {
		t.Fatalf("staging toggle not applied: %s", cfg.WSURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("timeout override lost: %v", cfg.RequestTimeout)
	}
}

func TestFromEnvBadDuration(t *testing.T) {
	t.Setenv("REVOLT_REQUEST_TIMEOUT", "soon")
	if _, err := config.FromEnv(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
