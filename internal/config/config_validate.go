// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateEarthEngine(); err != nil {
		return err
	}
	if err := c.validateLayer(); err != nil {
		return err
	}
	if err := c.validatePolygons(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.TemplatePath == "" {
		return fmt.Errorf("TEMPLATE_PATH is required")
	}
	return nil
}

func (c *Config) validateEarthEngine() error {
	ee := c.EarthEngine
	if ee.Project == "" {
		return fmt.Errorf("EE_PROJECT is required")
	}
	if ee.CredentialsFile == "" {
		if ee.ServiceAccount == "" || ee.PrivateKeyFile == "" {
			return fmt.Errorf("either EE_CREDENTIALS_FILE or both EE_ACCOUNT and EE_PRIVATE_KEY_FILE are required")
		}
	}
	if _, err := url.ParseRequestURI(ee.BaseURL); err != nil {
		return fmt.Errorf("EE_BASE_URL must be a valid URL: %w", err)
	}
	if ee.RateLimit < 0 {
		return fmt.Errorf("EE_RATE_LIMIT must not be negative")
	}
	if ee.RateLimit > 0 && ee.RateBurst < 1 {
		return fmt.Errorf("EE_RATE_BURST must be at least 1 when EE_RATE_LIMIT is set")
	}
	if ee.MaxRetries < 0 || ee.MaxRetries > 10 {
		return fmt.Errorf("EE_MAX_RETRIES must be between 0 and 10")
	}
	return nil
}

func (c *Config) validateLayer() error {
	l := c.Layer
	if l.Collection == "" || l.Band == "" {
		return fmt.Errorf("LAYER_COLLECTION and LAYER_BAND are required")
	}
	start, err := time.Parse(time.DateOnly, l.StartDate)
	if err != nil {
		return fmt.Errorf("LAYER_START_DATE must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(time.DateOnly, l.EndDate)
	if err != nil {
		return fmt.Errorf("LAYER_END_DATE must be YYYY-MM-DD: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("LAYER_END_DATE must be after LAYER_START_DATE")
	}
	if l.Max <= l.Min {
		return fmt.Errorf("layer max must be greater than layer min")
	}
	if len(l.Palette) == 0 {
		return fmt.Errorf("LAYER_PALETTE must contain at least one color")
	}
	if l.ReductionScale <= 0 || l.SeriesScale <= 0 {
		return fmt.Errorf("LAYER_REDUCTION_SCALE and LAYER_SERIES_SCALE must be positive")
	}
	if l.SeriesYear < 1970 || l.SeriesYear > 9999 {
		return fmt.Errorf("LAYER_SERIES_YEAR must be a four digit year after 1970")
	}
	return nil
}

func (c *Config) validatePolygons() error {
	p := c.Polygons
	if p.Dir == "" {
		return fmt.Errorf("POLYGON_DIR is required")
	}
	if p.Collection == "" || p.Band == "" {
		return fmt.Errorf("POLYGON_COLLECTION and POLYGON_BAND are required")
	}
	if p.ReductionScale <= 0 {
		return fmt.Errorf("POLYGON_REDUCTION_SCALE must be positive")
	}
	return nil
}

var validCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
	"badger": true,
}

func (c *Config) validateCache() error {
	if !validCacheBackends[c.Cache.Backend] {
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, redis, badger")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	switch c.Cache.Backend {
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	case "badger":
		if c.Cache.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required when CACHE_BACKEND=badger")
		}
	}
	return nil
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
