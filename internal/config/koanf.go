// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cloudfrequency/config.yaml",
	"/etc/cloudfrequency/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultEarthEngineURL is the Earth Engine REST endpoint.
const DefaultEarthEngineURL = "https://earthengine.googleapis.com/v1"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         60 * time.Second, // point series reductions are slow
			ShutdownTimeout: 10 * time.Second,
			TemplatePath:    "web/templates/index.html",
			StaticDir:       "static",
			Environment:     "development",
		},
		EarthEngine: EarthEngineConfig{
			BaseURL:    DefaultEarthEngineURL,
			Timeout:    45 * time.Second,
			RateLimit:  10,
			RateBurst:  5,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Layer: LayerConfig{
			Collection:     "MODIS/061/MOD09GA",
			Band:           "state_1km",
			StartDate:      "2017-01-01",
			EndDate:        "2017-12-31",
			Min:            0,
			Max:            100,
			Palette:        []string{"000000", "00FF00", "FF0000"},
			ReductionScale: 20000,
			SeriesYear:     2015,
			SeriesScale:    1000,
		},
		Polygons: PolygonsConfig{
			Dir:            "static/polygons",
			Collection:     "NOAA/DMSP-OLS/NIGHTTIME_LIGHTS",
			Band:           "stable_lights",
			ReductionScale: 20000,
			WikiURL:        "http://en.wikipedia.org/wiki/",
		},
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "cloudfrequency:details:",
			BadgerPath:      "/data/cache",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with the precedence
// environment > config file > defaults, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"layer.palette",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"template_path":         "server.template_path",
	"static_dir":            "server.static_dir",
	"environment":           "server.environment",

	// Earth Engine
	"ee_project":                     "earthengine.project",
	"ee_account":                     "earthengine.service_account",
	"ee_private_key_file":            "earthengine.private_key_file",
	"ee_credentials_file":            "earthengine.credentials_file",
	"google_application_credentials": "earthengine.credentials_file",
	"ee_base_url":                    "earthengine.base_url",
	"ee_timeout":                     "earthengine.timeout",
	"ee_rate_limit":                  "earthengine.rate_limit",
	"ee_rate_burst":                  "earthengine.rate_burst",
	"ee_max_retries":                 "earthengine.max_retries",
	"ee_retry_delay":                 "earthengine.retry_delay",

	// Cloud frequency layer
	"layer_collection":      "layer.collection",
	"layer_band":            "layer.band",
	"layer_start_date":      "layer.start_date",
	"layer_end_date":        "layer.end_date",
	"layer_palette":         "layer.palette",
	"layer_reduction_scale": "layer.reduction_scale",
	"layer_series_year":     "layer.series_year",
	"layer_series_scale":    "layer.series_scale",

	// Polygons
	"polygon_dir":             "polygons.dir",
	"polygon_collection":      "polygons.collection",
	"polygon_band":            "polygons.band",
	"polygon_reduction_scale": "polygons.reduction_scale",
	"wiki_url":                "polygons.wiki_url",

	// Cache
	"cache_backend":          "cache.backend",
	"cache_ttl":              "cache.ttl",
	"cache_cleanup_interval": "cache.cleanup_interval",
	"redis_addr":             "cache.redis_addr",
	"redis_password":         "cache.redis_password",
	"redis_db":               "cache.redis_db",
	"redis_prefix":           "cache.redis_prefix",
	"badger_path":            "cache.badger_path",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path.
//
//   - EE_PROJECT -> earthengine.project
//   - CACHE_BACKEND -> cache.backend
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
