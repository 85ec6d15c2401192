// Package config handles configuration for the server component: defaults,
// a .env/environment overlay, a JSON file overlay and command-line flags,
// applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"
)

const MinSecretKeyLength = 32

// Config holds runtime settings for the sessionkeeper server.
//
// An empty DatabaseDSN selects the in-memory credential store and an empty
// RedisURL selects the in-process denylist cache.
type Config struct {
	EndpointAddrHTTP             string
	EndpointAddrGRPC             string
	DatabaseDSN                  string
	RedisURL                     string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	BcryptCost                   int
	LogLevel                     string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key is public and must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.RedisURL = ""
	c.SecretKey = "development-secret-key-change-me-0000"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.BcryptCost = 10
	c.LogLevel = "info"
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.SecretKey) < MinSecretKeyLength {
		errs = append(errs, fmt.Errorf("secret key must be at least %d characters", MinSecretKeyLength))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("refresh token validity must be positive"))
	}
	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("http endpoint address is required"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
