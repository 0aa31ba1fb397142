// Package config carries the endpoint and timeout configuration shared
// by the REST gateway and the realtime channel.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Production endpoints.
const (
	productionAPIURL   = "https://api.revolt.chat"
	productionWSURL    = "wss://ws.revolt.chat?format=json&version=1"
	productionMediaURL = "https://autumn.revolt.chat"
)

// Staging endpoints. The toggle swaps REST, socket and media together.
const (
	stagingAPIURL   = "https://revolt.chat/api"
	stagingWSURL    = "wss://revolt.chat/events/?format=json&version=1"
	stagingMediaURL = "https://autumn.revolt.chat"
)

// Config aggregates everything the access layer needs to reach the
// service: base URLs plus the timeouts bounding every REST call and
// connection attempt.
type Config struct {
	APIBaseURL   string
	WSURL        string
	MediaBaseURL string

	// RequestTimeout bounds each REST call end to end.
	RequestTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// ReconnectMin and ReconnectMax bound the exponential backoff
	// between realtime reconnect attempts.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Production returns the default configuration against the production
// endpoints.
func Production() Config {
	return Config{
		APIBaseURL:       productionAPIURL,
		WSURL:            productionWSURL,
		MediaBaseURL:     productionMediaURL,
		RequestTimeout:   15 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReconnectMin:     time.Second,
		ReconnectMax:     30 * time.Second,
	}
}

// Staging returns the same defaults pointed at the staging endpoints.
func Staging() Config {
	cfg := Production()
	cfg.APIBaseURL = stagingAPIURL
	cfg.WSURL = stagingWSURL
	cfg.MediaBaseURL = stagingMediaURL
	return cfg
}

// FromEnv builds a configuration from environment variables.
// REVOLT_STAGING selects the staging preset; REVOLT_API_URL,
// REVOLT_WS_URL and REVOLT_MEDIA_URL override individual endpoints;
// REVOLT_REQUEST_TIMEOUT and REVOLT_HANDSHAKE_TIMEOUT take Go duration
// strings.
func FromEnv() (Config, error) {
	cfg := Production()
	if isTruthy(os.Getenv("REVOLT_STAGING")) {
		cfg = Staging()
	}

	if v := strings.TrimSpace(os.Getenv("REVOLT_API_URL")); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REVOLT_WS_URL")); v != "" {
		cfg.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REVOLT_MEDIA_URL")); v != "" {
		cfg.MediaBaseURL = v
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REVOLT_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HandshakeTimeout, err = durationEnv("REVOLT_HANDSHAKE_TIMEOUT", cfg.HandshakeTimeout); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return d, nil
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
