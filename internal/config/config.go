// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package config loads the server configuration.
//
// Values are layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables. The result is validated before use.
//
// Example config.yaml:
//
//	earthengine:
//	  project: my-ee-project
//	  service_account: trendy@my-ee-project.iam.gserviceaccount.com
//	  private_key_file: /secrets/privatekey.pem
//	cache:
//	  backend: redis
//	  redis_addr: redis:6379
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	EarthEngine EarthEngineConfig `koanf:"earthengine"`
	Layer       LayerConfig       `koanf:"layer"`
	Polygons    PolygonsConfig    `koanf:"polygons"`
	Cache       CacheConfig       `koanf:"cache"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP listener and asset settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	TemplatePath    string        `koanf:"template_path"` // main page template
	StaticDir       string        `koanf:"static_dir"`    // served under /static/
	Environment     string        `koanf:"environment"`   // development or production
}

// EarthEngineConfig holds the remote analysis service settings.
//
// Credentials come either from a service account email plus a PEM private
// key file, or from a JSON key file downloaded from the Cloud console.
type EarthEngineConfig struct {
	Project         string        `koanf:"project"`
	ServiceAccount  string        `koanf:"service_account"`
	PrivateKeyFile  string        `koanf:"private_key_file"`
	CredentialsFile string        `koanf:"credentials_file"`
	BaseURL         string        `koanf:"base_url"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimit       float64       `koanf:"rate_limit"` // outbound requests per second, 0 disables
	RateBurst       int           `koanf:"rate_burst"`
	MaxRetries      int           `koanf:"max_retries"`
	RetryDelay      time.Duration `koanf:"retry_delay"`
}

// LayerConfig describes the cloud frequency layer and the point queries
// made against it.
type LayerConfig struct {
	Collection     string   `koanf:"collection"`
	Band           string   `koanf:"band"`
	StartDate      string   `koanf:"start_date"`
	EndDate        string   `koanf:"end_date"`
	Min            float64  `koanf:"min"`
	Max            float64  `koanf:"max"`
	Palette        []string `koanf:"palette"`
	ReductionScale float64  `koanf:"reduction_scale"` // meters
	SeriesYear     int      `koanf:"series_year"`     // year of the monthly point series
	SeriesScale    float64  `koanf:"series_scale"`    // meters, monthly point series only
}

// PolygonsConfig holds the polygon registry and night-lights series settings.
type PolygonsConfig struct {
	Dir            string  `koanf:"dir"`
	Collection     string  `koanf:"collection"`
	Band           string  `koanf:"band"`
	ReductionScale float64 `koanf:"reduction_scale"`
	WikiURL        string  `koanf:"wiki_url"`
}

// CacheConfig selects the polygon details cache backend.
type CacheConfig struct {
	Backend         string        `koanf:"backend"` // memory, redis or badger
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
	RedisPassword   string        `koanf:"redis_password"`
	RedisDB         int           `koanf:"redis_db"`
	RedisPrefix     string        `koanf:"redis_prefix"`
	BadgerPath      string        `koanf:"badger_path"`
}

// SecurityConfig holds CORS and inbound rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, in that order of precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
