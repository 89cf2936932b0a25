// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.EarthEngine.Project = "test-project"
	cfg.EarthEngine.CredentialsFile = "/secrets/key.json"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"missing project", func(c *Config) { c.EarthEngine.Project = "" }, "EE_PROJECT"},
		{
			"account without key",
			func(c *Config) {
				c.EarthEngine.CredentialsFile = ""
				c.EarthEngine.ServiceAccount = "svc@example.iam.gserviceaccount.com"
			},
			"EE_PRIVATE_KEY_FILE",
		},
		{
			"account with key",
			func(c *Config) {
				c.EarthEngine.CredentialsFile = ""
				c.EarthEngine.ServiceAccount = "svc@example.iam.gserviceaccount.com"
				c.EarthEngine.PrivateKeyFile = "/secrets/key.pem"
			},
			"",
		},
		{"bad base url", func(c *Config) { c.EarthEngine.BaseURL = "not a url" }, "EE_BASE_URL"},
		{"too many retries", func(c *Config) { c.EarthEngine.MaxRetries = 50 }, "EE_MAX_RETRIES"},
		{"bad start date", func(c *Config) { c.Layer.StartDate = "2017/01/01" }, "LAYER_START_DATE"},
		{"end before start", func(c *Config) { c.Layer.EndDate = "2016-12-31" }, "after"},
		{"empty palette", func(c *Config) { c.Layer.Palette = nil }, "LAYER_PALETTE"},
		{"inverted range", func(c *Config) { c.Layer.Min = 100 }, "max"},
		{"zero scale", func(c *Config) { c.Polygons.ReductionScale = 0 }, "POLYGON_REDUCTION_SCALE"},
		{"zero series scale", func(c *Config) { c.Layer.SeriesScale = 0 }, "LAYER_SERIES_SCALE"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcache" }, "CACHE_BACKEND"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }, "REDIS_ADDR"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "CACHE_TTL"},
		{"short window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{
			"disabled rate limit skips bounds",
			func(c *Config) { c.Security.RateLimitDisabled = true; c.Security.RateLimitReqs = 0 },
			"",
		},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
