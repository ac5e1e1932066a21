// Package config loads the platform configuration consumed when wiring the
// pipeline driver and resolver: local platform identity, enabled protocols
// and delivery tuning. Configuration comes from a YAML file with
// FEDERATION_* environment overrides on top.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/protocol"
)

// Config is the platform configuration.
type Config struct {
	// BaseURL is the local platform's base URL, used to absolutize
	// host-relative references during pre-send.
	BaseURL string `yaml:"base_url"`

	// Name identifies the platform in outbound documents and logs.
	Name string `yaml:"name"`

	// Protocols lists the enabled protocol tags.
	Protocols []string `yaml:"protocols"`

	Delivery DeliveryConfig `yaml:"delivery"`
	Resolver ResolverConfig `yaml:"resolver"`
}

// DeliveryConfig tunes outbound dispatch.
type DeliveryConfig struct {
	// Workers sizes the inbound processing pool.
	Workers int `yaml:"workers"`

	// QueueSize bounds the inbound work queue.
	QueueSize int `yaml:"queue_size"`

	// RatePerSecond caps dispatch and profile fetches. Zero disables
	// limiting.
	RatePerSecond float64 `yaml:"rate_per_second"`

	// Burst is the limiter burst size.
	Burst int `yaml:"burst"`
}

// ResolverConfig tunes remote profile resolution.
type ResolverConfig struct {
	// ProfileTTL is the cache lifetime of resolved profiles.
	ProfileTTL time.Duration `yaml:"profile_ttl"`

	// Timeout bounds a single resolution fetch.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default configuration. A BaseURL must still be
// provided before the config validates.
func Default() *Config {
	return &Config{
		Name:      "federation",
		Protocols: []string{protocol.ActivityPub, protocol.Legacy},
		Delivery: DeliveryConfig{
			Workers:       4,
			QueueSize:     256,
			RatePerSecond: 20,
			Burst:         40,
		},
		Resolver: ResolverConfig{
			ProfileTTL: 30 * time.Minute,
			Timeout:    15 * time.Second,
		},
	}
}

// Load reads a YAML config file, applies environment overrides and
// validates the result. An empty path loads defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "config", "Load", "reading "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parsing "+path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays FEDERATION_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("FEDERATION_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("FEDERATION_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("FEDERATION_DELIVERY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Delivery.Workers = n
		}
	}
	if v := os.Getenv("FEDERATION_DELIVERY_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Delivery.RatePerSecond = f
		}
	}
	if v := os.Getenv("FEDERATION_RESOLVER_PROFILE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Resolver.ProfileTTL = d
		}
	}
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.WrapInvalid(errors.ErrInvalidIdentifier, "config", "Validate",
			fmt.Sprintf("base_url %q is not an absolute URL", c.BaseURL))
	}

	if len(c.Protocols) == 0 {
		return errors.WrapInvalid(errors.ErrMissingRequiredField, "config", "Validate",
			"at least one protocol must be enabled")
	}
	for _, p := range c.Protocols {
		if p != protocol.ActivityPub && p != protocol.Legacy {
			return errors.WrapInvalid(errors.ErrInvalidIdentifier, "config", "Validate",
				fmt.Sprintf("unknown protocol %q", p))
		}
	}

	if c.Delivery.Workers <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidIdentifier, "config", "Validate",
			"delivery.workers must be positive")
	}
	if c.Delivery.QueueSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidIdentifier, "config", "Validate",
			"delivery.queue_size must be positive")
	}
	if c.Resolver.ProfileTTL <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidIdentifier, "config", "Validate",
			"resolver.profile_ttl must be positive")
	}
	return nil
}
