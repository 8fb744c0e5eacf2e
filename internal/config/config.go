// Package config resolves runtime configuration for the CLI from the
// environment, with optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Leonardo REST API base URL.
	DefaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"

	// DefaultTemplateFile is the template registry file looked up when
	// LEOMEDIA_TEMPLATES is unset.
	DefaultTemplateFile = "templates.json"

	// Default polling cadence, matching the service's typical job latency.
	DefaultPollInterval = 10 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// Config holds everything the CLI needs to construct the client and poller.
type Config struct {
	APIKey          string
	BaseURL         string
	TemplateFile    string
	StrictTemplates bool
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

// Load reads configuration from the environment.
// A .env file in the working directory is applied first if present;
// real environment variables take precedence over it.
//
// Recognized variables:
//
//	LEONARDO_API_KEY          API key (required by the client, validated there)
//	LEONARDO_BASE_URL         API base URL override
//	LEOMEDIA_TEMPLATES        path to the template registry file
//	LEOMEDIA_STRICT_TEMPLATES "true" to fail hard on a malformed template file
//	LEOMEDIA_POLL_INTERVAL    poll interval, Go duration syntax (e.g. "10s")
//	LEOMEDIA_POLL_TIMEOUT     poll timeout, Go duration syntax (e.g. "5m")
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := &Config{
		APIKey:       os.Getenv("LEONARDO_API_KEY"),
		BaseURL:      DefaultBaseURL,
		TemplateFile: DefaultTemplateFile,
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
	}

	if v := os.Getenv("LEONARDO_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("LEOMEDIA_TEMPLATES"); v != "" {
		cfg.TemplateFile = v
	}
	if v := os.Getenv("LEOMEDIA_STRICT_TEMPLATES"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LEOMEDIA_STRICT_TEMPLATES %q: %w", v, err)
		}
		cfg.StrictTemplates = strict
	}

	var err error
	if cfg.PollInterval, err = durationEnv("LEOMEDIA_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = durationEnv("LEOMEDIA_POLL_TIMEOUT", cfg.PollTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durationEnv parses a duration environment variable, keeping fallback when unset.
func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, v)
	}
	return d, nil
}
